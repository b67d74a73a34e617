// Package progress computes category and stage completion from activity statuses.
//
// Everything here is pure: callers load the inputs and persist the outputs.
// Activity filtering (deleted, inactive) happens where the groups are loaded.
package progress

import (
	"time"

	"github.com/fosware/conecta-toolv1-sub004/internal/model"
)

// Result is the derived progress of one category or stage.
type Result struct {
	Progress int    `json:"progress"`
	Status   string `json:"status"`
}

// add folds n activities of one status into c. Cancelled ones stay out of
// Total; statuses outside the known four count as pending. An empty status
// (a category with no activities) adds nothing.
func add(c *model.StatusCounts, status model.ActivityStatus, n int) {
	if status == "" || n <= 0 {
		return
	}
	switch status {
	case model.ActivityCancelled:
		c.Cancelled += n
		return
	case model.ActivityCompleted:
		c.Completed += n
	case model.ActivityInProgress:
		c.InProgress += n
	default:
		c.Pending += n
	}
	c.Total += n
}

// Tally folds per-status groups into per-category counts, keeping the order
// in which categories first appear.
func Tally(groups []model.StatusGroup) []model.CategoryCounts {
	out := make([]model.CategoryCounts, 0, len(groups))
	index := make(map[int]int, len(groups))
	for _, g := range groups {
		i, ok := index[g.CategoryID]
		if !ok {
			i = len(out)
			index[g.CategoryID] = i
			out = append(out, model.CategoryCounts{CategoryID: g.CategoryID})
		}
		add(&out[i].Counts, g.Status, g.N)
	}
	return out
}

// Percent returns round(100*part/total) with halves rounded up, 0 when total is 0.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*part + total) / (2 * total)
}

// Label derives the coarse status from a progress value.
func Label(progress int, hasWork, inProgress bool) string {
	switch {
	case progress >= 100 && hasWork:
		return model.ProgressCompleted
	case progress > 0 && progress < 100, inProgress:
		return model.ProgressInProgress
	default:
		return model.ProgressPending
	}
}

// ForCounts computes the category result from already aggregated counts.
func ForCounts(c model.StatusCounts) Result {
	p := Percent(c.Completed, c.Total)
	return Result{Progress: p, Status: Label(p, c.Total > 0, c.InProgress > 0)}
}

// Row builds the progress view row for a category.
func Row(categoryID int, c model.StatusCounts, now time.Time) model.ProgressRow {
	r := ForCounts(c)
	return model.ProgressRow{
		CategoryID:  categoryID,
		Progress:    r.Progress,
		Status:      r.Status,
		Counts:      c,
		RefreshedAt: now,
	}
}

// ForStage averages the progress of the categories assigned to a stage.
// A stage with no categories is 0 / pending.
func ForStage(rows []model.ProgressRow) Result {
	if len(rows) == 0 {
		return Result{Progress: 0, Status: model.ProgressPending}
	}

	sum := 0
	inProgress := false
	for _, r := range rows {
		sum += r.Progress
		if r.Status == model.ProgressInProgress {
			inProgress = true
		}
	}
	p := Percent(sum, 100*len(rows))
	return Result{Progress: p, Status: Label(p, true, inProgress)}
}
