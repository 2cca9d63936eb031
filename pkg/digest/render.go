package digest

import (
	"fmt"
	"strings"

	"github.com/harrisonrobin/agenda/pkg/model"
	"github.com/harrisonrobin/agenda/pkg/util"
)

// RenderOptions bound the size of the text digest.
type RenderOptions struct {
	MaxLines           int
	MaxTasksPerSection int
}

// Text renders the digest as the plain message posted to chat.
func Text(d *Digest, opts RenderOptions) string {
	var lines []string
	add := func(format string, args ...any) {
		if opts.MaxLines <= 0 || len(lines) < opts.MaxLines {
			lines = append(lines, fmt.Sprintf(format, args...))
		}
	}

	add("DAILY DIGEST | %s", util.DisplayDate(d.Today))
	if d.Mode == model.EVENING {
		add("MODE | EVENING SWEEP")
		if d.Progress != nil {
			add("PROGRESS | done %d | pending today %d", d.Progress.CompletedToday, d.Progress.PendingDueToday)
		}
	}

	sections := []struct {
		title  string
		bucket model.Bucket
	}{
		{"OVERDUE", model.OVERDUE},
		{"DUE TODAY", model.DUE_TODAY},
		{"DUE SOON", model.DUE_SOON},
	}
	for _, sec := range sections {
		tasks := d.InBucket(sec.bucket)
		if len(tasks) == 0 {
			continue
		}
		add("%s (%d)", sec.title, len(tasks))
		visible := tasks
		if opts.MaxTasksPerSection >= 0 && len(visible) > opts.MaxTasksPerSection {
			visible = visible[:opts.MaxTasksPerSection]
		}
		for _, t := range visible {
			add("- %s", CompactLine(t))
		}
		if overflow := len(tasks) - len(visible); overflow > 0 {
			add("- +%d more", overflow)
		}
	}

	if len(d.Top) > 0 {
		add("TOP 3")
		for i, t := range d.Top {
			add("%d. %s", i+1, CompactLine(t))
		}
	}

	if d.Capacity.Available {
		add("CAPACITY")
		add("Free %s | Planned %s", util.FormatMinutes(d.Capacity.FreeMinutes), util.FormatMinutes(d.Capacity.RequiredMinutes))
		status := "CONSTRAINED"
		if d.Capacity.Status == BALANCED_DAY {
			status = "BALANCED"
		}
		add("Status %s", status)
	}

	if d.SuggestedDefer != nil {
		add("DEFER CANDIDATE | %s", CompactLine(*d.SuggestedDefer))
	}
	if d.AISummary != "" {
		add("AI NOTE | %s", d.AISummary)
	}
	return strings.Join(lines, "\n")
}

// CompactLine formats one task as "[P0] title | project | due | estimate".
func CompactLine(t model.ScoredTask) string {
	return fmt.Sprintf("%s %s | %s | %s | %s",
		priorityTag(t.Priority),
		util.Truncate(t.Title, 54),
		util.Truncate(t.Project, 18),
		DuePhrase(t.DueInDays),
		util.FormatMinutes(t.EstimatedMinutes),
	)
}

// DuePhrase describes a due offset in words.
func DuePhrase(dueInDays int) string {
	switch {
	case dueInDays < 0:
		return fmt.Sprintf("%dd late", -dueInDays)
	case dueInDays == 0:
		return "due today"
	case dueInDays == 1:
		return "due tomorrow"
	default:
		return fmt.Sprintf("due in %dd", dueInDays)
	}
}

func priorityTag(priority string) string {
	p := strings.TrimSpace(priority)
	if p == "" {
		return "[P?]"
	}
	return "[" + strings.ToUpper(p) + "]"
}
