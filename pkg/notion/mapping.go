package notion

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"github.com/harrisonrobin/agenda/pkg/model"
	"github.com/harrisonrobin/agenda/pkg/util"
)

func (s *Source) mapPage(page *notionapi.Page) model.Task {
	props := page.Properties

	title := propertyText(props[s.props.TaskProp])
	if title == "" {
		title = "Untitled"
	}
	project := propertyText(props[s.props.ProjectProp])
	if project == "" {
		project = model.DefaultProject
	}

	var relationIDs []string
	if rel, ok := props[s.props.ProjectProp].(*notionapi.RelationProperty); ok {
		for _, r := range rel.Relation {
			relationIDs = append(relationIDs, string(r.ID))
		}
	}

	created := propertyTime(props[s.props.CreatedTimeProp])
	if created.IsZero() {
		created = page.CreatedTime
	}
	edited := propertyTime(props[s.props.LastEditedProp])
	if edited.IsZero() {
		edited = page.LastEditedTime
	}

	done, _ := props[s.props.DoneCheckboxProp].(*notionapi.CheckboxProperty)

	return model.Task{
		ID:               string(page.ID),
		Title:            title,
		Priority:         strings.ToLower(propertyText(props[s.props.PriorityProp])),
		Status:           propertyText(props[s.props.StatusProp]),
		Due:              util.NormalizeDate(propertyText(props[s.props.DueProp])),
		Done:             done != nil && done.Checkbox,
		Project:          project,
		RelationIDs:      relationIDs,
		EstimatedMinutes: clampMinutes(propertyNumber(props[s.props.EstimatedMinutesProp]), s.defaultMinutes),
		CreatedAt:        created,
		LastEditedAt:     edited,
		URL:              page.URL,
	}
}

// propertyText flattens a property to the string a person would read.
func propertyText(p notionapi.Property) string {
	switch v := p.(type) {
	case *notionapi.TitleProperty:
		return plainText(v.Title)
	case *notionapi.RichTextProperty:
		return plainText(v.RichText)
	case *notionapi.SelectProperty:
		return v.Select.Name
	case *notionapi.StatusProperty:
		return v.Status.Name
	case *notionapi.DateProperty:
		if v.Date == nil || v.Date.Start == nil {
			return ""
		}
		return time.Time(*v.Date.Start).Format(util.DateLayout)
	case *notionapi.NumberProperty:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case *notionapi.CheckboxProperty:
		return strconv.FormatBool(v.Checkbox)
	case *notionapi.CreatedTimeProperty:
		return v.CreatedTime.UTC().Format(time.RFC3339)
	case *notionapi.LastEditedTimeProperty:
		return v.LastEditedTime.UTC().Format(time.RFC3339)
	case *notionapi.MultiSelectProperty:
		names := make([]string, 0, len(v.MultiSelect))
		for _, o := range v.MultiSelect {
			names = append(names, o.Name)
		}
		return strings.Join(names, ",")
	case *notionapi.RelationProperty:
		ids := make([]string, 0, len(v.Relation))
		for _, r := range v.Relation {
			ids = append(ids, string(r.ID))
		}
		return strings.Join(ids, ",")
	default:
		return ""
	}
}

func propertyNumber(p notionapi.Property) float64 {
	switch v := p.(type) {
	case *notionapi.NumberProperty:
		return v.Number
	case nil:
		return 0
	default:
		n, err := strconv.ParseFloat(strings.TrimSpace(propertyText(p)), 64)
		if err != nil {
			return 0
		}
		return n
	}
}

func propertyTime(p notionapi.Property) time.Time {
	switch v := p.(type) {
	case *notionapi.CreatedTimeProperty:
		return v.CreatedTime
	case *notionapi.LastEditedTimeProperty:
		return v.LastEditedTime
	case *notionapi.DateProperty:
		if v.Date != nil && v.Date.Start != nil {
			return time.Time(*v.Date.Start)
		}
	}
	return time.Time{}
}

func plainText(parts []notionapi.RichText) string {
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(part.PlainText)
	}
	return strings.TrimSpace(b.String())
}

func pageTitle(page *notionapi.Page) string {
	if page == nil {
		return ""
	}
	for _, p := range page.Properties {
		if t, ok := p.(*notionapi.TitleProperty); ok {
			if text := plainText(t.Title); text != "" {
				return text
			}
		}
	}
	return ""
}

// clampMinutes defaults missing or non-positive estimates and bounds the
// rest to a workable range.
func clampMinutes(value float64, fallback int) int {
	if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return fallback
	}
	return model.ClampEstimate(int(math.Round(value)), fallback)
}
