// internal/analytics/influence.go
package analytics

import (
	"math"
	"sort"
	"strings"
	"time"

	"repolens/internal/model"
)

const (
	notableFollowerFloor  = 10000
	maxNotablesByReach    = 10
	maxNotablesByEmployer = 5
	maxNotablesByScore    = 5
	maxNotables           = 20
)

// wellKnownEmployers is matched case-insensitively as a substring of the
// profile's free-text company field.
var wellKnownEmployers = []string{
	"google", "microsoft", "meta", "facebook", "amazon", "apple",
	"netflix", "github", "stripe", "shopify", "vercel", "openai",
	"uber", "airbnb",
}

// InfluencerProfile is one analyzed stargazer with its derived score.
type InfluencerProfile struct {
	Login          string     `json:"login"`
	Name           string     `json:"name,omitempty"`
	Company        string     `json:"company,omitempty"`
	Followers      int        `json:"followers"`
	Following      int        `json:"following"`
	PublicRepos    int        `json:"public_repos"`
	AccountCreated time.Time  `json:"account_created"`
	StarredAt      *time.Time `json:"starred_at,omitempty"`
	Score          float64    `json:"score"`
}

// InfluencerAnalytics is the derived influence summary over the analyzed
// stargazer profiles.
type InfluencerAnalytics struct {
	AnalyzedProfiles     int                 `json:"analyzed_profiles"`
	AverageFollowers     float64             `json:"average_followers"`
	Notables             []InfluencerProfile `json:"notables"`
	ConcentrationPercent float64             `json:"follower_concentration_percent"`
	FollowerDistribution map[string]int      `json:"follower_distribution"`
}

// InfluenceScore weighs follower reach (log-damped), repository output, and
// account age. Repo and age contributions are hard-capped so neither can
// dominate the reach term.
func InfluenceScore(followers, publicRepos int, accountAgeYears float64) float64 {
	return 0.6*math.Log10(float64(followers)+1)*10 +
		0.2*math.Min(float64(publicRepos)/10, 10) +
		0.2*math.Min(accountAgeYears, 10)
}

// AnalyzeInfluence derives the influence summary. starredAt may be nil when
// the star listing carried no timestamps; input order is preserved in the
// notables selection.
func AnalyzeInfluence(profiles []model.UserProfile, starredAt map[string]*time.Time, now time.Time) InfluencerAnalytics {
	out := InfluencerAnalytics{
		AnalyzedProfiles:     len(profiles),
		Notables:             []InfluencerProfile{},
		FollowerDistribution: map[string]int{},
	}

	scored := make([]InfluencerProfile, 0, len(profiles))
	totalFollowers := 0
	for _, p := range profiles {
		ageYears := now.Sub(p.AccountCreated).Hours() / 24 / 365
		ip := InfluencerProfile{
			Login:          p.Login,
			Name:           p.Name,
			Company:        p.Company,
			Followers:      p.Followers,
			Following:      p.Following,
			PublicRepos:    p.PublicRepos,
			AccountCreated: p.AccountCreated,
			Score:          round2(InfluenceScore(p.Followers, p.PublicRepos, ageYears)),
		}
		if starredAt != nil {
			ip.StarredAt = starredAt[p.Login]
		}
		scored = append(scored, ip)
		totalFollowers += p.Followers
		out.FollowerDistribution[followerBand(p.Followers)]++
	}
	if len(scored) > 0 {
		out.AverageFollowers = round1(float64(totalFollowers) / float64(len(scored)))
	}

	out.Notables = selectNotables(scored)
	out.ConcentrationPercent = concentration(scored)
	return out
}

// selectNotables picks, in order: accounts with big follower reach, accounts
// at well-known employers, then top scorers not already chosen. The pick
// order is kept as-is, never re-sorted.
func selectNotables(scored []InfluencerProfile) []InfluencerProfile {
	notables := make([]InfluencerProfile, 0, maxNotables)
	chosen := map[string]bool{}

	take := func(p InfluencerProfile) {
		if len(notables) < maxNotables && !chosen[p.Login] {
			notables = append(notables, p)
			chosen[p.Login] = true
		}
	}

	reach := 0
	for _, p := range scored {
		if reach == maxNotablesByReach {
			break
		}
		if p.Followers >= notableFollowerFloor {
			take(p)
			reach++
		}
	}

	employed := 0
	for _, p := range scored {
		if employed == maxNotablesByEmployer {
			break
		}
		if !chosen[p.Login] && atWellKnownEmployer(p.Company) {
			take(p)
			employed++
		}
	}

	byScore := make([]InfluencerProfile, len(scored))
	copy(byScore, scored)
	sort.SliceStable(byScore, func(i, j int) bool { return byScore[i].Score > byScore[j].Score })
	topScorers := 0
	for _, p := range byScore {
		if topScorers == maxNotablesByScore {
			break
		}
		if !chosen[p.Login] {
			take(p)
			topScorers++
		}
	}

	return notables
}

func atWellKnownEmployer(company string) bool {
	if company == "" {
		return false
	}
	lowered := strings.ToLower(company)
	for _, employer := range wellKnownEmployers {
		if strings.Contains(lowered, employer) {
			return true
		}
	}
	return false
}

// concentration reports the share of all followers held by the top 10% of
// profiles by follower count (at least one profile), as a percentage.
func concentration(scored []InfluencerProfile) float64 {
	if len(scored) == 0 {
		return 0
	}
	followers := make([]int, len(scored))
	total := 0
	for i, p := range scored {
		followers[i] = p.Followers
		total += p.Followers
	}
	if total == 0 {
		return 0
	}
	sort.Sort(sort.Reverse(sort.IntSlice(followers)))

	cohort := (len(followers) + 9) / 10
	top := 0
	for _, f := range followers[:cohort] {
		top += f
	}
	return round1(float64(top) / float64(total) * 100)
}

func followerBand(followers int) string {
	switch {
	case followers < 100:
		return "under_100"
	case followers < 1000:
		return "100_to_999"
	case followers < 10000:
		return "1000_to_9999"
	default:
		return "10000_plus"
	}
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
