package orgmode

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/harrisonrobin/agenda/pkg/model"
	"github.com/harrisonrobin/agenda/pkg/util"
)

var (
	headlineRegex = regexp.MustCompile(`^(\*+)\s+(TODO|DONE)\b\s*(?:\[#([A-Z])\])?\s*(.*?)(?:\s+:([\w@:]+):)?\s*$`)
	deadlineRegex = regexp.MustCompile(`DEADLINE:\s+<(\d{4}-\d{2}-\d{2})[^>]*>`)
	closedRegex   = regexp.MustCompile(`CLOSED:\s+\[(\d{4}-\d{2}-\d{2})(?:\s+[A-Za-z]{2,3})?(?:\s+(\d{1,2}:\d{2}))?\]`)
	headingRegex  = regexp.MustCompile(`^\*+\s`)
	propertyRegex = regexp.MustCompile(`^:([A-Za-z_-]+):\s*(.*)$`)
	stampRegex    = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})(?:\s+[A-Za-z]{2,3})?(?:\s+(\d{1,2}:\d{2}))?`)
)

// Entry is a parsed headline and where it sits in its file.
type Entry struct {
	Task model.Task
	File string
	// Headline is the 0-based line of the TODO/DONE heading.
	Headline int
	// Deadline is the line carrying DEADLINE, or -1.
	Deadline int
}

// priorities maps org cookies to the digest's priority tags.
var priorities = map[string]string{"A": "p0", "B": "p1", "C": "p2"}

// Parse reads TODO and DONE headlines. A headline is kept only when its
// property drawer carries an :ID:.
func Parse(r io.Reader, file string, loc *time.Location, defaultMinutes int) ([]Entry, error) {
	if loc == nil {
		loc = time.Local
	}
	scanner := bufio.NewScanner(r)
	var (
		entries []Entry
		current *Entry
		tags    []string
		lineNo  = -1
	)
	flush := func() {
		if current != nil && current.Task.ID != "" {
			if current.Task.Project == "" {
				if len(tags) > 0 {
					current.Task.Project = tags[0]
				} else {
					current.Task.Project = model.DefaultProject
				}
			}
			entries = append(entries, *current)
		}
		current, tags = nil, nil
	}

	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line := strings.TrimSpace(raw)

		if headingRegex.MatchString(raw) {
			flush()
			m := headlineRegex.FindStringSubmatch(raw)
			if m == nil {
				continue
			}
			current = &Entry{File: file, Headline: lineNo, Deadline: -1}
			current.Task.Status = strings.ToLower(m[2])
			current.Task.Done = m[2] == "DONE"
			current.Task.Priority = priorities[m[3]]
			current.Task.Title = strings.TrimSpace(m[4])
			current.Task.EstimatedMinutes = defaultMinutes
			if m[5] != "" {
				tags = strings.Split(m[5], ":")
			}
			continue
		}
		if current == nil {
			continue
		}

		if m := deadlineRegex.FindStringSubmatch(line); m != nil {
			current.Task.Due = m[1]
			current.Deadline = lineNo
		}
		if m := closedRegex.FindStringSubmatch(line); m != nil {
			current.Task.LastEditedAt = stamp(m[1], m[2], loc)
		}
		if m := propertyRegex.FindStringSubmatch(line); m != nil {
			value := strings.TrimSpace(m[2])
			switch strings.ToUpper(m[1]) {
			case "ID":
				current.Task.ID = value
			case "PROJECT":
				current.Task.Project = value
			case "EFFORT":
				if mins, ok := parseEffort(value); ok {
					current.Task.EstimatedMinutes = model.ClampEstimate(mins, defaultMinutes)
				}
			case "CREATED":
				if sm := stampRegex.FindStringSubmatch(value); sm != nil {
					current.Task.CreatedAt = stamp(sm[1], sm[2], loc)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return entries, nil
}

func stamp(date, clock string, loc *time.Location) time.Time {
	layout, value := "2006-01-02", date
	if clock != "" {
		layout, value = "2006-01-02 15:04", date+" "+clock
	}
	t, err := time.ParseInLocation(layout, value, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseEffort reads an org Effort value, "H:MM" or plain minutes.
func parseEffort(value string) (int, bool) {
	if h, m, ok := strings.Cut(value, ":"); ok {
		hours, err1 := strconv.Atoi(h)
		mins, err2 := strconv.Atoi(m)
		if err1 != nil || err2 != nil {
			return 0, false
		}
		return hours*60 + mins, hours*60+mins > 0
	}
	mins, err := strconv.Atoi(value)
	return mins, err == nil && mins > 0
}

// deadlineStamp renders an org active timestamp for date.
func deadlineStamp(date string) (string, error) {
	t, err := util.ParseDate(date)
	if err != nil {
		return "", err
	}
	return "<" + t.Format("2006-01-02 Mon") + ">", nil
}
