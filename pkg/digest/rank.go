package digest

import (
	"sort"

	"github.com/harrisonrobin/agenda/pkg/model"
)

// TopN is the size of the top selection.
const TopN = 3

// Rank returns a copy of tasks in digest order: bucket, then descending
// score, then due date, title and finally id. The order is total, so input
// order never affects the result.
func Rank(tasks []model.ScoredTask) []model.ScoredTask {
	ranked := make([]model.ScoredTask, len(tasks))
	copy(ranked, tasks)
	sort.Slice(ranked, func(i, j int) bool {
		return less(ranked[i], ranked[j])
	})
	return ranked
}

func less(a, b model.ScoredTask) bool {
	if ra, rb := a.Bucket.Rank(), b.Bucket.Rank(); ra != rb {
		return ra < rb
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Due != b.Due {
		return a.Due < b.Due
	}
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	return a.ID < b.ID
}

// SelectTop greedily picks up to TopN tasks from ranked, allowing at most
// maxPerProject per project. Slots left open are then filled from the
// skipped tasks in ranked order, ignoring the cap.
func SelectTop(ranked []model.ScoredTask, maxPerProject int) []model.ScoredTask {
	selected := make([]model.ScoredTask, 0, TopN)
	var skipped []model.ScoredTask
	perProject := make(map[string]int)

	for _, t := range ranked {
		if len(selected) >= TopN {
			break
		}
		if perProject[t.Project] < maxPerProject {
			selected = append(selected, t)
			perProject[t.Project]++
		} else {
			skipped = append(skipped, t)
		}
	}

	for _, t := range skipped {
		if len(selected) >= TopN {
			break
		}
		selected = append(selected, t)
	}
	return selected
}
