package digest

import (
	"math/rand"
	"testing"

	"github.com/harrisonrobin/agenda/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(id, project string, bucket model.Bucket, score float64, due, title string) model.ScoredTask {
	return model.ScoredTask{
		Task:   model.Task{ID: id, Title: title, Project: project, Due: due, EstimatedMinutes: 30},
		Bucket: bucket,
		Score:  score,
	}
}

func ids(tasks []model.ScoredTask) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestRankOrder(t *testing.T) {
	tasks := []model.ScoredTask{
		scored("later-high", "a", model.LATER, 0.99, "2026-03-20", "L"),
		scored("soon", "a", model.DUE_SOON, 0.7, "2026-03-01", "S"),
		scored("today-low", "a", model.DUE_TODAY, 0.5, "2026-02-27", "T2"),
		scored("today-high", "a", model.DUE_TODAY, 0.9, "2026-02-27", "T1"),
		scored("overdue", "a", model.OVERDUE, 0.1, "2026-02-20", "O"),
		scored("tie-late-due", "a", model.DUE_SOON, 0.6, "2026-03-02", "A"),
		scored("tie-early-due", "a", model.DUE_SOON, 0.6, "2026-02-28", "Z"),
		scored("tie-title-b", "a", model.DUE_SOON, 0.5, "2026-02-28", "b"),
		scored("tie-title-B", "a", model.DUE_SOON, 0.5, "2026-02-28", "B"),
	}

	got := ids(Rank(tasks))
	assert.Equal(t, []string{
		"overdue",
		"today-high", "today-low",
		"soon", "tie-early-due", "tie-late-due", "tie-title-B", "tie-title-b",
		"later-high",
	}, got)
}

func TestRankIgnoresInputOrder(t *testing.T) {
	base := []model.ScoredTask{
		scored("1", "a", model.DUE_SOON, 0.5, "2026-02-28", "same"),
		scored("2", "b", model.DUE_SOON, 0.5, "2026-02-28", "same"),
		scored("3", "c", model.OVERDUE, 0.5, "2026-02-20", "x"),
		scored("4", "d", model.DUE_TODAY, 0.3, "2026-02-27", "y"),
		scored("5", "e", model.DUE_TODAY, 0.3, "2026-02-27", "y"),
		scored("6", "f", model.LATER, 0.8, "2026-04-01", "z"),
	}
	want := ids(Rank(base))

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		shuffled := append([]model.ScoredTask(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		require.Equal(t, want, ids(Rank(shuffled)))
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	in := []model.ScoredTask{
		scored("b", "a", model.LATER, 0.1, "2026-03-20", "b"),
		scored("a", "a", model.OVERDUE, 0.1, "2026-02-20", "a"),
	}
	Rank(in)
	assert.Equal(t, "b", in[0].ID)
}

func TestSelectTopDiversityCap(t *testing.T) {
	ranked := []model.ScoredTask{
		scored("a1", "alpha", model.OVERDUE, 0.9, "2026-02-20", "a1"),
		scored("a2", "alpha", model.OVERDUE, 0.8, "2026-02-20", "a2"),
		scored("a3", "alpha", model.DUE_TODAY, 0.7, "2026-02-27", "a3"),
		scored("b1", "beta", model.DUE_SOON, 0.6, "2026-02-28", "b1"),
	}

	got := SelectTop(ranked, 2)
	assert.Equal(t, []string{"a1", "a2", "b1"}, ids(got))
}

func TestSelectTopFillsFromSkippedWhenNeeded(t *testing.T) {
	ranked := []model.ScoredTask{
		scored("a1", "alpha", model.OVERDUE, 0.9, "2026-02-20", "a1"),
		scored("a2", "alpha", model.OVERDUE, 0.8, "2026-02-20", "a2"),
		scored("a3", "alpha", model.DUE_TODAY, 0.7, "2026-02-27", "a3"),
		scored("a4", "alpha", model.DUE_TODAY, 0.6, "2026-02-27", "a4"),
	}

	got := SelectTop(ranked, 2)
	assert.Equal(t, []string{"a1", "a2", "a3"}, ids(got))
}

func TestSelectTopSizeBounds(t *testing.T) {
	mk := func(n int) []model.ScoredTask {
		var out []model.ScoredTask
		for i := 0; i < n; i++ {
			p := "p" + string(rune('a'+i%2))
			out = append(out, scored(string(rune('a'+i)), p, model.DUE_SOON, 1-float64(i)/10, "2026-02-28", "t"))
		}
		return out
	}
	for n := 0; n <= 6; n++ {
		got := SelectTop(mk(n), 2)
		assert.Len(t, got, min(TopN, n), "n=%d", n)
	}
	assert.Len(t, SelectTop(mk(5), 0), 3)
}
