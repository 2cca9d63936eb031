package taskwarrior

import (
	"fmt"
	"strings"
	"time"
)

const (
	PENDING   = "pending"
	COMPLETED = "completed"
	WAITING   = "waiting"
	DELETED   = "deleted"
)

type CustomTime struct {
	time.Time
}

const taskwarriorTimeLayout = "20060102T150405Z" // YYYYMMDDTHHMMSSZ, 'Z' indicates UTC

// UnmarshalJSON implements the json.Unmarshaler interface for CustomTime.
func (ct *CustomTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "0" {
		ct.Time = time.Time{}
		return nil
	}

	t, err := time.Parse(taskwarriorTimeLayout, s)
	if err != nil {
		return fmt.Errorf("failed to parse Taskwarrior time string '%s': %w", s, err)
	}
	ct.Time = t
	return nil
}

// MarshalJSON implements the json.Marshaler interface for CustomTime.
func (ct CustomTime) MarshalJSON() ([]byte, error) {
	if ct.Time.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + ct.Time.Format(taskwarriorTimeLayout) + `"`), nil
}

// OrZero returns the wrapped time, or the zero time for a nil pointer.
func (ct *CustomTime) OrZero() time.Time {
	if ct == nil {
		return time.Time{}
	}
	return ct.Time
}

// Task is one record of `task export`.
type Task struct {
	UUID        string      `json:"uuid"`
	Description string      `json:"description"`
	Status      string      `json:"status"`
	Priority    string      `json:"priority,omitempty"` // H, M or L
	Project     string      `json:"project,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Due         *CustomTime `json:"due,omitempty"`
	Entry       *CustomTime `json:"entry,omitempty"`
	Modified    *CustomTime `json:"modified,omitempty"`
	End         *CustomTime `json:"end,omitempty"`
	// Est is the estimate UDA (uda.estimate.label=est), exported as an
	// ISO 8601 duration such as PT1H30M.
	Est string `json:"est,omitempty"`
}
