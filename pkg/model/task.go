package model

import (
	"strings"
	"time"
)

// DefaultProject is used when a task carries no project label.
const DefaultProject = "unassigned"

const (
	MinEstimatedMinutes = 5
	MaxEstimatedMinutes = 8 * 60
)

// ClampEstimate bounds an estimate to [MinEstimatedMinutes,
// MaxEstimatedMinutes]. Missing or non-positive estimates become fallback.
func ClampEstimate(minutes, fallback int) int {
	if minutes <= 0 {
		return fallback
	}
	return max(MinEstimatedMinutes, min(MaxEstimatedMinutes, minutes))
}

// Task represents a normalized task read from any task source.
type Task struct {
	ID       string
	Title    string
	Priority string // lower-cased tag, e.g. "p0"
	Status   string
	Due      string // YYYY-MM-DD, empty when the task has no due date
	Done     bool
	Project  string
	// RelationIDs holds unresolved project references for sources that
	// model projects as linked records.
	RelationIDs      []string
	EstimatedMinutes int
	CreatedAt        time.Time
	LastEditedAt     time.Time
	URL              string
}

// Bucket is the coarse due-date urgency of a task.
type Bucket string

const (
	OVERDUE   Bucket = "overdue"
	DUE_TODAY Bucket = "due_today"
	DUE_SOON  Bucket = "due_soon"
	LATER     Bucket = "later"
)

// Rank orders buckets from most to least urgent.
func (b Bucket) Rank() int {
	switch b {
	case OVERDUE:
		return 0
	case DUE_TODAY:
		return 1
	case DUE_SOON:
		return 2
	default:
		return 3
	}
}

// ScoredTask is a Task plus the fields derived during one digest computation.
// None of these fields are ever persisted.
type ScoredTask struct {
	Task
	DueInDays          int
	Overdue            bool
	DaysSinceLastTouch int
	DaysSinceCreated   int
	Bucket             Bucket
	Score              float64
	PScore             float64
	DScore             float64
	SScore             float64
}

// priorityValues maps the tracked priority tags to their weight. Anything
// else is worth UnknownPriorityValue.
var priorityValues = map[string]int{
	"p0": 5,
	"p1": 4,
	"p2": 3,
	"p3": 2,
}

// UnknownPriorityValue ranks below every recognized tag.
const UnknownPriorityValue = 1

// PriorityValue returns the numeric weight for a priority tag.
func PriorityValue(priority string) int {
	if v, ok := priorityValues[strings.ToLower(strings.TrimSpace(priority))]; ok {
		return v
	}
	return UnknownPriorityValue
}

// Mode selects which digest is produced.
type Mode string

const (
	MORNING Mode = "morning"
	EVENING Mode = "evening"
)

// Mutation is the concrete change applied to a task in its source.
type Mutation struct {
	MarkDone bool
	Due      string // YYYY-MM-DD; empty leaves the due date untouched
}

// CalendarEvent is a busy interval reported by a calendar source.
type CalendarEvent struct {
	Summary      string
	Start        time.Time
	End          time.Time
	AllDay       bool
	SelfDeclined bool
}
