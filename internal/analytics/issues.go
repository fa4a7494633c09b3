// internal/analytics/issues.go
package analytics

import (
	"time"

	"repolens/internal/model"
)

// IssueAnalytics summarizes the issue and pull-request listing.
type IssueAnalytics struct {
	OpenIssues         int     `json:"open_issues"`
	ClosedIssues       int     `json:"closed_issues"`
	OpenPullRequests   int     `json:"open_pull_requests"`
	ClosedPullRequests int     `json:"closed_pull_requests"`
	AverageDaysToClose float64 `json:"average_days_to_close"`
	AverageComments    float64 `json:"average_comments"`
	OldestOpenDays     float64 `json:"oldest_open_issue_days"`
}

// AnalyzeIssues derives issue counts and close-time averages. Pull requests
// count separately; days-to-close covers closed issues only.
func AnalyzeIssues(records []model.IssueRecord, now time.Time) IssueAnalytics {
	var out IssueAnalytics

	closeDays := 0.0
	closedIssues := 0
	comments := 0
	var oldestOpen *time.Time

	for _, rec := range records {
		comments += rec.Comments
		switch {
		case rec.IsPullRequest && rec.State == "open":
			out.OpenPullRequests++
		case rec.IsPullRequest:
			out.ClosedPullRequests++
		case rec.State == "open":
			out.OpenIssues++
			if oldestOpen == nil || rec.CreatedAt.Before(*oldestOpen) {
				created := rec.CreatedAt
				oldestOpen = &created
			}
		default:
			out.ClosedIssues++
			if rec.ClosedAt != nil {
				closeDays += rec.ClosedAt.Sub(rec.CreatedAt).Hours() / 24
				closedIssues++
			}
		}
	}

	if closedIssues > 0 {
		out.AverageDaysToClose = round1(closeDays / float64(closedIssues))
	}
	if len(records) > 0 {
		out.AverageComments = round1(float64(comments) / float64(len(records)))
	}
	if oldestOpen != nil {
		out.OldestOpenDays = round1(now.Sub(*oldestOpen).Hours() / 24)
	}

	return out
}
