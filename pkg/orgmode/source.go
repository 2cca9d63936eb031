// Package orgmode reads tasks from Emacs org files and writes completion and
// deadline changes back to them.
package orgmode

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/harrisonrobin/agenda/pkg/apperr"
	"github.com/harrisonrobin/agenda/pkg/logging"
	"github.com/harrisonrobin/agenda/pkg/model"
	"github.com/harrisonrobin/agenda/pkg/source"
	"github.com/harrisonrobin/agenda/pkg/util"
)

var (
	todoKeyword  = regexp.MustCompile(`^(\*+\s+)TODO\b`)
	deadlineDate = regexp.MustCompile(`<\d{4}-\d{2}-\d{2}[^>]*>`)
)

// Source is a TaskSource over a set of org files. Headlines without an :ID:
// property are ignored.
type Source struct {
	files          []string
	loc            *time.Location
	defaultMinutes int
	log            *slog.Logger

	mu sync.Mutex
}

func NewSource(files []string, loc *time.Location, defaultMinutes int, log *slog.Logger) *Source {
	if loc == nil {
		loc = time.UTC
	}
	return &Source{files: files, loc: loc, defaultMinutes: max(1, defaultMinutes), log: logging.OrDiscard(log)}
}

func (s *Source) entries() ([]Entry, error) {
	var all []Entry
	for _, path := range s.files {
		f, err := os.Open(path)
		if err != nil {
			return nil, apperr.Wrap(apperr.Upstream, err, "open org file %s", path)
		}
		entries, err := Parse(f, path, s.loc, s.defaultMinutes)
		f.Close()
		if err != nil {
			return nil, apperr.Wrap(apperr.Upstream, err, "parse org file %s", path)
		}
		all = append(all, entries...)
	}
	return all, nil
}

// Query returns headlines matching f. Edited bounds match the CLOSED
// timestamp, so they select tasks completed in that window.
func (s *Source) Query(_ context.Context, f source.Filter) ([]model.Task, error) {
	for _, d := range []string{f.DueOnOrBefore, f.DueOn, f.EditedOnOrAfter, f.EditedBefore} {
		if d != "" && !util.IsISODate(d) {
			return nil, apperr.New(apperr.Validation, "invalid filter date %q", d)
		}
	}
	s.mu.Lock()
	entries, err := s.entries()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	edited := f.EditedOnOrAfter != "" || f.EditedBefore != ""
	var out []model.Task
	for _, e := range entries {
		t := e.Task
		if f.DueOnOrBefore != "" && (t.Due == "" || t.Due > f.DueOnOrBefore) {
			continue
		}
		if f.DueOn != "" && t.Due != f.DueOn {
			continue
		}
		if edited {
			if t.LastEditedAt.IsZero() {
				continue
			}
			day := t.LastEditedAt.In(s.loc).Format(util.DateLayout)
			if f.EditedOnOrAfter != "" && day < f.EditedOnOrAfter {
				continue
			}
			if f.EditedBefore != "" && day >= f.EditedBefore {
				continue
			}
		}
		out = append(out, t)
	}
	s.log.Debug("org query", "files", len(s.files), "matched", len(out))
	return out, nil
}

func (s *Source) find(id string) (Entry, error) {
	entries, err := s.entries()
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.Task.ID == id {
			return e, nil
		}
	}
	return Entry{}, apperr.New(apperr.NotFound, "Task not found.")
}

func (s *Source) Get(_ context.Context, id string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.find(id)
	if err != nil {
		return model.Task{}, err
	}
	return e.Task, nil
}

// Update flips TODO to DONE with a CLOSED stamp, or rewrites the DEADLINE
// (adding one under the headline when absent).
func (s *Source) Update(_ context.Context, id string, m model.Mutation) error {
	if !m.MarkDone && m.Due == "" {
		return apperr.New(apperr.Validation, "nothing to update")
	}
	var stamp string
	if m.Due != "" {
		var err error
		if stamp, err = deadlineStamp(m.Due); err != nil {
			return apperr.New(apperr.Validation, "Invalid target date. Use YYYY-MM-DD.")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.find(id)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(e.File)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, err, "read org file %s", e.File)
	}
	lines := strings.Split(string(data), "\n")

	var insert []string
	if m.MarkDone {
		lines[e.Headline] = todoKeyword.ReplaceAllString(lines[e.Headline], "${1}DONE")
		insert = append(insert, "CLOSED: ["+time.Now().In(s.loc).Format("2006-01-02 Mon 15:04")+"]")
	}
	if stamp != "" {
		if e.Deadline >= 0 {
			lines[e.Deadline] = deadlineDate.ReplaceAllString(lines[e.Deadline], stamp)
		} else {
			insert = append(insert, "DEADLINE: "+stamp)
		}
	}
	if len(insert) > 0 {
		planning := strings.Join(insert, " ")
		at := e.Headline + 1
		if m.MarkDone && e.Deadline == at {
			lines[at] = planning + " " + strings.TrimSpace(lines[at])
		} else {
			lines = append(lines[:at], append([]string{planning}, lines[at:]...)...)
		}
	}

	if err := writeAtomic(e.File, []byte(strings.Join(lines, "\n"))); err != nil {
		return apperr.Wrap(apperr.Upstream, err, "write org file %s", e.File)
	}
	s.log.Info("org task updated", "id", id, "file", e.File, "done", m.MarkDone, "due", m.Due)
	return nil
}

func writeAtomic(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
