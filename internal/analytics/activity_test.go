// internal/analytics/activity_test.go
package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repolens/internal/model"
)

func TestAnalyzeCommitActivity(t *testing.T) {
	week := func(d int) time.Time { return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC) }

	t.Run("totals and busiest week", func(t *testing.T) {
		weeks := []model.WeekActivity{
			{WeekStart: week(2), Total: 10},
			{WeekStart: week(9), Total: 25},
			{WeekStart: week(16), Total: 7},
		}

		out := AnalyzeCommitActivity(weeks)

		assert.Equal(t, 42, out.TotalCommits)
		assert.Equal(t, 14.0, out.WeeklyAverage)
		require.NotNil(t, out.BusiestWeek)
		assert.Equal(t, week(9), out.BusiestWeek.WeekStart)
	})

	t.Run("empty series", func(t *testing.T) {
		out := AnalyzeCommitActivity(nil)

		assert.NotNil(t, out.Weeks)
		assert.Empty(t, out.Weeks)
		assert.Zero(t, out.TotalCommits)
		assert.Nil(t, out.BusiestWeek)
	})
}
