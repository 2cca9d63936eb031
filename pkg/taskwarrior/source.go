package taskwarrior

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/harrisonrobin/agenda/pkg/apperr"
	"github.com/harrisonrobin/agenda/pkg/logging"
	"github.com/harrisonrobin/agenda/pkg/model"
	"github.com/harrisonrobin/agenda/pkg/source"
	"github.com/harrisonrobin/agenda/pkg/util"
)

var priorityTags = map[string]string{
	"H": "p0",
	"M": "p1",
	"L": "p2",
}

// Source is a TaskSource over a local Taskwarrior database.
type Source struct {
	client         *Client
	baseFilter     []string
	loc            *time.Location
	defaultMinutes int
	log            *slog.Logger
}

// NewSource builds a source. baseFilter narrows due-date queries, typically
// to status:pending.
func NewSource(client *Client, baseFilter []string, loc *time.Location, defaultMinutes int, log *slog.Logger) *Source {
	if loc == nil {
		loc = time.UTC
	}
	return &Source{
		client:         client,
		baseFilter:     baseFilter,
		loc:            loc,
		defaultMinutes: defaultMinutes,
		log:            logging.OrDiscard(log),
	}
}

// Query exports tasks matching filter. Queries on modification time skip
// the base filter so completed tasks are included.
func (s *Source) Query(ctx context.Context, f source.Filter) ([]model.Task, error) {
	args, err := s.filterArgs(f)
	if err != nil {
		return nil, err
	}
	tasks, err := s.client.GetTasks(ctx, args)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, err, "export taskwarrior tasks")
	}

	out := make([]model.Task, 0, len(tasks))
	for i := range tasks {
		out = append(out, s.toTask(&tasks[i]))
	}
	return out, nil
}

func (s *Source) filterArgs(f source.Filter) ([]string, error) {
	var args []string
	if f.EditedOnOrAfter == "" && f.EditedBefore == "" {
		args = append(args, s.baseFilter...)
	}
	if f.DueOnOrBefore != "" {
		next, err := util.ShiftDate(f.DueOnOrBefore, 1)
		if err != nil {
			return nil, apperr.Wrap(apperr.Validation, err, "invalid filter date")
		}
		args = append(args, "due.before:"+next)
	}
	if f.DueOn != "" {
		if !util.IsISODate(f.DueOn) {
			return nil, apperr.New(apperr.Validation, "invalid filter date %q", f.DueOn)
		}
		args = append(args, "due:"+f.DueOn)
	}
	if f.EditedOnOrAfter != "" {
		prev, err := util.ShiftDate(f.EditedOnOrAfter, -1)
		if err != nil {
			return nil, apperr.Wrap(apperr.Validation, err, "invalid filter date")
		}
		args = append(args, "modified.after:"+prev+"T23:59:59")
	}
	if f.EditedBefore != "" {
		if !util.IsISODate(f.EditedBefore) {
			return nil, apperr.New(apperr.Validation, "invalid filter date %q", f.EditedBefore)
		}
		args = append(args, "modified.before:"+f.EditedBefore)
	}
	return args, nil
}

// Get exports the single task with uuid id.
func (s *Source) Get(ctx context.Context, id string) (model.Task, error) {
	tasks, err := s.client.GetTasks(ctx, []string{id})
	if err != nil {
		return model.Task{}, apperr.Wrap(apperr.Upstream, err, "export taskwarrior task %s", id)
	}
	for i := range tasks {
		if tasks[i].UUID == id {
			return s.toTask(&tasks[i]), nil
		}
	}
	return model.Task{}, apperr.New(apperr.NotFound, "Task not found.")
}

// Update completes the task or moves its due date.
func (s *Source) Update(ctx context.Context, id string, m model.Mutation) error {
	if m.Due != "" {
		if !util.IsISODate(m.Due) {
			return apperr.New(apperr.Validation, "Invalid target date. Use YYYY-MM-DD.")
		}
		if err := s.client.Modify(ctx, id, "due:"+m.Due); err != nil {
			return apperr.Wrap(apperr.Upstream, err, "modify taskwarrior task %s", id)
		}
	}
	if m.MarkDone {
		if err := s.client.Done(ctx, id); err != nil {
			return apperr.Wrap(apperr.Upstream, err, "complete taskwarrior task %s", id)
		}
	}
	if !m.MarkDone && m.Due == "" {
		return apperr.New(apperr.Validation, "nothing to update")
	}
	return nil
}

func (s *Source) toTask(t *Task) model.Task {
	minutes := 0
	if est, err := ParseDuration(t.Est); err != nil {
		s.log.Debug("ignoring unparsable estimate", "uuid", t.UUID, "est", t.Est)
	} else if est > 0 {
		minutes = int(est.Round(time.Minute) / time.Minute)
	}

	due := ""
	if d := t.Due.OrZero(); !d.IsZero() {
		due = d.In(s.loc).Format(util.DateLayout)
	}
	project := strings.TrimSpace(t.Project)
	if project == "" {
		project = model.DefaultProject
	}

	return model.Task{
		ID:               t.UUID,
		Title:            t.Description,
		Priority:         priorityTags[strings.ToUpper(t.Priority)],
		Status:           t.Status,
		Due:              due,
		Done:             t.Status == COMPLETED,
		Project:          project,
		EstimatedMinutes: model.ClampEstimate(minutes, s.defaultMinutes),
		CreatedAt:        t.Entry.OrZero(),
		LastEditedAt:     t.Modified.OrZero(),
	}
}
