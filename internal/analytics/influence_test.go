// internal/analytics/influence_test.go
package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repolens/internal/model"
)

func TestInfluenceScore(t *testing.T) {
	t.Run("brand-new empty account scores zero", func(t *testing.T) {
		assert.Zero(t, InfluenceScore(0, 0, 0))
	})

	t.Run("weights reach, output, and age", func(t *testing.T) {
		// 0.6*log10(1001)*10 + 0.2*5 + 0.2*5
		assert.InDelta(t, 20.0, InfluenceScore(1000, 50, 5), 0.01)
	})

	t.Run("repo and age contributions are capped", func(t *testing.T) {
		base := InfluenceScore(100, 100, 10)
		assert.Equal(t, base, InfluenceScore(100, 5000, 10), "repos beyond the cap add nothing")
		assert.Equal(t, base, InfluenceScore(100, 100, 40), "age beyond the cap adds nothing")
	})

	t.Run("monotonic in followers", func(t *testing.T) {
		assert.Greater(t, InfluenceScore(10000, 10, 2), InfluenceScore(100, 10, 2))
	})
}

func TestAnalyzeInfluence(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	created := time.Date(2019, 6, 15, 0, 0, 0, 0, time.UTC)

	profile := func(login string, followers int, company string) model.UserProfile {
		return model.UserProfile{
			Login:          login,
			Company:        company,
			Followers:      followers,
			PublicRepos:    20,
			AccountCreated: created,
		}
	}

	t.Run("notables pick reach, then employer, then score", func(t *testing.T) {
		profiles := []model.UserProfile{
			profile("famous-1", 50000, ""),
			profile("quiet-1", 3, ""),
			profile("famous-2", 12000, "Google"),
			profile("employed-1", 200, "Google LLC"),
			profile("quiet-2", 4, ""),
			profile("employed-2", 150, "@microsoft"),
			profile("scorer", 8000, ""),
		}

		out := AnalyzeInfluence(profiles, nil, now)

		assert.Equal(t, 7, out.AnalyzedProfiles)
		got := make([]string, 0, len(out.Notables))
		for _, n := range out.Notables {
			got = append(got, n.Login)
		}
		// famous-2 is taken by reach first, so the employer group skips it;
		// the score group then drains the rest highest-score first.
		assert.Equal(t, []string{"famous-1", "famous-2", "employed-1", "employed-2", "scorer", "quiet-2", "quiet-1"}, got)
	})

	t.Run("reach group caps at ten, score group mops up", func(t *testing.T) {
		var profiles []model.UserProfile
		for i := 0; i < 14; i++ {
			profiles = append(profiles, profile(fmt.Sprintf("famous-%d", i), 20000*(i+1), ""))
		}

		out := AnalyzeInfluence(profiles, nil, now)

		got := make([]string, 0, len(out.Notables))
		for _, n := range out.Notables {
			got = append(got, n.Login)
		}
		want := make([]string, 0, 14)
		for i := 0; i < 10; i++ {
			want = append(want, fmt.Sprintf("famous-%d", i))
		}
		// The four overflowing the reach cap come back through the score
		// group, highest follower count (and so score) first.
		want = append(want, "famous-13", "famous-12", "famous-11", "famous-10")
		assert.Equal(t, want, got)
	})

	t.Run("star timestamps attach to notables when known", func(t *testing.T) {
		starred := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
		out := AnalyzeInfluence(
			[]model.UserProfile{profile("famous-1", 50000, "")},
			map[string]*time.Time{"famous-1": &starred},
			now,
		)

		require.NotEmpty(t, out.Notables)
		require.NotNil(t, out.Notables[0].StarredAt)
		assert.Equal(t, starred, *out.Notables[0].StarredAt)
	})

	t.Run("concentration reports the top decile share", func(t *testing.T) {
		profiles := []model.UserProfile{profile("big", 900, "")}
		for i := 0; i < 9; i++ {
			profiles = append(profiles, profile(fmt.Sprintf("small-%d", i), 10, ""))
		}

		out := AnalyzeInfluence(profiles, nil, now)

		// top 10% of 10 profiles is one profile: 900 of 990 followers.
		assert.Equal(t, 90.9, out.ConcentrationPercent)
	})

	t.Run("tiny cohorts still measure one profile", func(t *testing.T) {
		out := AnalyzeInfluence([]model.UserProfile{
			profile("a", 70, ""),
			profile("b", 30, ""),
		}, nil, now)

		assert.Equal(t, 70.0, out.ConcentrationPercent)
	})

	t.Run("distribution buckets follower ranges", func(t *testing.T) {
		out := AnalyzeInfluence([]model.UserProfile{
			profile("a", 5, ""),
			profile("b", 99, ""),
			profile("c", 100, ""),
			profile("d", 2500, ""),
			profile("e", 60000, ""),
		}, nil, now)

		assert.Equal(t, map[string]int{
			"under_100":    2,
			"100_to_999":   1,
			"1000_to_9999": 1,
			"10000_plus":   1,
		}, out.FollowerDistribution)
	})

	t.Run("empty input stays calm", func(t *testing.T) {
		out := AnalyzeInfluence(nil, nil, now)

		assert.Zero(t, out.AnalyzedProfiles)
		assert.Empty(t, out.Notables)
		assert.Zero(t, out.ConcentrationPercent)
	})
}
