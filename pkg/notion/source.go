package notion

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jomei/notionapi"
	"golang.org/x/sync/errgroup"

	"github.com/harrisonrobin/agenda/pkg/apperr"
	"github.com/harrisonrobin/agenda/pkg/model"
	"github.com/harrisonrobin/agenda/pkg/source"
	"github.com/harrisonrobin/agenda/pkg/util"
)

// Query pages through every database row matching filter.
func (s *Source) Query(ctx context.Context, filter source.Filter) ([]model.Task, error) {
	nf, err := s.buildFilter(filter)
	if err != nil {
		return nil, err
	}

	var pages []notionapi.Page
	var cursor notionapi.Cursor
	for {
		resp, err := s.api.QueryDatabase(ctx, &notionapi.DatabaseQueryRequest{
			Filter:      nf,
			StartCursor: cursor,
			PageSize:    pageSize,
		})
		if err != nil {
			return nil, apperr.Wrap(apperr.Upstream, err, "query notion database")
		}
		pages = append(pages, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	tasks := make([]model.Task, 0, len(pages))
	for i := range pages {
		tasks = append(tasks, s.mapPage(&pages[i]))
	}
	if err := s.resolveProjects(ctx, tasks); err != nil {
		return nil, err
	}
	s.log.Debug("notion query", "pages", len(pages))
	return tasks, nil
}

// Get fetches one page by id.
func (s *Source) Get(ctx context.Context, id string) (model.Task, error) {
	page, err := s.api.GetPage(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return model.Task{}, apperr.Wrap(apperr.NotFound, err, "Task not found.")
		}
		return model.Task{}, apperr.Wrap(apperr.Upstream, err, "get notion page %s", id)
	}
	tasks := []model.Task{s.mapPage(page)}
	if err := s.resolveProjects(ctx, tasks); err != nil {
		return model.Task{}, err
	}
	return tasks[0], nil
}

// Update writes the done checkbox or the due date of a page.
func (s *Source) Update(ctx context.Context, id string, m model.Mutation) error {
	props, err := s.mutationProperties(m)
	if err != nil {
		return err
	}
	if _, err := s.api.UpdatePage(ctx, id, &notionapi.PageUpdateRequest{Properties: props}); err != nil {
		return apperr.Wrap(apperr.Upstream, err, "update notion page %s", id)
	}
	return nil
}

func (s *Source) mutationProperties(m model.Mutation) (notionapi.Properties, error) {
	props := notionapi.Properties{}
	if m.MarkDone {
		props[s.props.DoneCheckboxProp] = notionapi.CheckboxProperty{
			Type:     notionapi.PropertyTypeCheckbox,
			Checkbox: true,
		}
	}
	if m.Due != "" {
		if _, err := util.ParseDate(m.Due); err != nil {
			return nil, apperr.Wrap(apperr.Validation, err, "Invalid target date. Use YYYY-MM-DD.")
		}
		props[s.props.DueProp] = dueDateProperty{Start: m.Due}
	}
	if len(props) == 0 {
		return nil, apperr.New(apperr.Validation, "nothing to update")
	}
	return props, nil
}

func (s *Source) buildFilter(f source.Filter) (notionapi.Filter, error) {
	var filters notionapi.AndCompoundFilter

	date := func(value string) (*notionapi.Date, error) {
		t, err := util.ParseDate(value)
		if err != nil {
			return nil, apperr.Wrap(apperr.Validation, err, "invalid filter date")
		}
		d := notionapi.Date(t)
		return &d, nil
	}

	if f.DueOnOrBefore != "" {
		d, err := date(f.DueOnOrBefore)
		if err != nil {
			return nil, err
		}
		filters = append(filters, notionapi.PropertyFilter{
			Property: s.props.DueProp,
			Date:     &notionapi.DateFilterCondition{OnOrBefore: d},
		})
	}
	if f.DueOn != "" {
		d, err := date(f.DueOn)
		if err != nil {
			return nil, err
		}
		filters = append(filters, notionapi.PropertyFilter{
			Property: s.props.DueProp,
			Date:     &notionapi.DateFilterCondition{Equals: d},
		})
	}
	if f.EditedOnOrAfter != "" {
		d, err := date(f.EditedOnOrAfter)
		if err != nil {
			return nil, err
		}
		filters = append(filters, notionapi.TimestampFilter{
			Timestamp:      notionapi.TimestampLastEdited,
			LastEditedTime: &notionapi.DateFilterCondition{OnOrAfter: d},
		})
	}
	if f.EditedBefore != "" {
		d, err := date(f.EditedBefore)
		if err != nil {
			return nil, err
		}
		filters = append(filters, notionapi.TimestampFilter{
			Timestamp:      notionapi.TimestampLastEdited,
			LastEditedTime: &notionapi.DateFilterCondition{Before: d},
		})
	}

	switch len(filters) {
	case 0:
		return nil, nil
	case 1:
		return filters[0], nil
	default:
		return filters, nil
	}
}

// resolveProjects replaces relation ids with the related pages' titles.
// Distinct ids are fetched in parallel; failures fall back to the id.
func (s *Source) resolveProjects(ctx context.Context, tasks []model.Task) error {
	seen := make(map[string]bool)
	var missing []string
	for _, t := range tasks {
		for _, id := range t.RelationIDs {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			if !s.titles.Contains(id) {
				missing = append(missing, id)
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(relationWorkers)
	for _, id := range missing {
		g.Go(func() error {
			s.titles.Add(id, s.fetchTitle(gctx, id))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range tasks {
		if len(tasks[i].RelationIDs) == 0 {
			continue
		}
		var names []string
		for _, id := range tasks[i].RelationIDs {
			if name, ok := s.titles.Get(id); ok && strings.TrimSpace(name) != "" {
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			tasks[i].Project = strings.Join(names, ", ")
		}
	}
	return nil
}

func (s *Source) fetchTitle(ctx context.Context, id string) string {
	page, err := s.api.GetPage(ctx, id)
	if err != nil {
		s.log.Warn("could not resolve relation title", "page_id", id, "error", err)
		return id
	}
	if title := pageTitle(page); title != "" {
		return title
	}
	return id
}

// dueDateProperty writes a date without a time part. notionapi.Date always
// marshals as RFC3339, which turns a date-only property into a UTC datetime.
type dueDateProperty struct {
	Start string // YYYY-MM-DD
}

func (p dueDateProperty) GetID() string { return "" }

func (p dueDateProperty) GetType() notionapi.PropertyType { return notionapi.PropertyTypeDate }

func (p dueDateProperty) MarshalJSON() ([]byte, error) {
	type start struct {
		Start string `json:"start"`
	}
	return json.Marshal(struct {
		Type notionapi.PropertyType `json:"type"`
		Date start                  `json:"date"`
	}{Type: notionapi.PropertyTypeDate, Date: start{Start: p.Start}})
}
