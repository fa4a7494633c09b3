// internal/analytics/activity.go
package analytics

import (
	"repolens/internal/model"
)

// CommitActivityAnalytics summarizes the weekly commit series the API
// reports for the trailing year.
type CommitActivityAnalytics struct {
	Weeks         []model.WeekActivity `json:"weeks"`
	TotalCommits  int                  `json:"total_commits"`
	WeeklyAverage float64              `json:"weekly_average"`
	BusiestWeek   *model.WeekActivity  `json:"busiest_week"`
}

// AnalyzeCommitActivity derives totals over the reported weeks. An empty
// series (repository still warming, or no commits) yields a zeroed summary.
func AnalyzeCommitActivity(weeks []model.WeekActivity) CommitActivityAnalytics {
	out := CommitActivityAnalytics{Weeks: weeks}
	if len(weeks) == 0 {
		out.Weeks = []model.WeekActivity{}
		return out
	}

	for _, w := range weeks {
		out.TotalCommits += w.Total
		if out.BusiestWeek == nil || w.Total > out.BusiestWeek.Total {
			week := w
			out.BusiestWeek = &week
		}
	}
	out.WeeklyAverage = round1(float64(out.TotalCommits) / float64(len(weeks)))
	return out
}
