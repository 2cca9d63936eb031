// Package dailylog writes one JSON record per digest run.
package dailylog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harrisonrobin/agenda/pkg/digest"
	"github.com/harrisonrobin/agenda/pkg/model"
)

// Record summarizes a digest. FreeMinutes is null when no calendar was consulted.
type Record struct {
	Date            string   `json:"date"`
	Mode            string   `json:"mode"`
	NumTasks        int      `json:"num_tasks"`
	NumOverdue      int      `json:"num_overdue"`
	NumDueSoon      int      `json:"num_due_soon"`
	Top3IDs         []string `json:"top_3_ids"`
	FreeMinutes     *int     `json:"free_minutes"`
	RequiredMinutes int      `json:"required_minutes"`
	DayStatus       string   `json:"day_status"`
	CompletedToday  *int     `json:"completed_today,omitempty"`
	PendingDueToday *int     `json:"pending_due_today,omitempty"`
}

// FromDigest builds the record. Due-soon counts include tasks due today.
func FromDigest(d *digest.Digest) Record {
	r := Record{
		Date:            d.Today,
		Mode:            string(d.Mode),
		NumTasks:        len(d.Ranked),
		NumOverdue:      d.Count(model.OVERDUE),
		NumDueSoon:      d.Count(model.DUE_SOON) + d.Count(model.DUE_TODAY),
		Top3IDs:         make([]string, 0, len(d.Top)),
		RequiredMinutes: d.Capacity.RequiredMinutes,
		DayStatus:       d.Capacity.Status,
	}
	for _, t := range d.Top {
		r.Top3IDs = append(r.Top3IDs, t.ID)
	}
	if d.Capacity.Available {
		free := d.Capacity.FreeMinutes
		r.FreeMinutes = &free
	}
	if d.Progress != nil {
		done, pending := d.Progress.CompletedToday, d.Progress.PendingDueToday
		r.CompletedToday, r.PendingDueToday = &done, &pending
	}
	return r
}

// Path returns the file a record is written to.
func Path(dir string, r Record) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s.json", r.Date, r.Mode))
}

// Write stores r under dir, replacing an earlier run of the same day and mode.
func Write(dir string, r Record) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("unable to create log dir: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	path := Path(dir, r)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("unable to write daily log: %w", err)
	}
	return path, nil
}
