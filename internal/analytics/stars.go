// internal/analytics/stars.go
package analytics

import (
	"sort"
	"time"

	"repolens/internal/model"
)

const dayFormat = "2006-01-02"

var milestoneThresholds = []int{1000, 5000, 10000, 50000, 100000}

// StarHistoryPoint is one day that saw star activity: the signed change and
// the cumulative count at end of day. Days without events are not emitted.
type StarHistoryPoint struct {
	Date       string `json:"date"`
	Delta      int    `json:"delta"`
	Cumulative int    `json:"cumulative"`
}

// DayDelta names one day's signed star change.
type DayDelta struct {
	Date  string `json:"date"`
	Delta int    `json:"delta"`
}

// Milestone records the first day the cumulative series reached a threshold.
type Milestone struct {
	Threshold int    `json:"threshold"`
	Date      string `json:"date"`
}

// StarGrowth sums recent daily deltas over trailing windows.
type StarGrowth struct {
	Last7Days   int `json:"last_7_days"`
	Last30Days  int `json:"last_30_days"`
	Last90Days  int `json:"last_90_days"`
	Last365Days int `json:"last_365_days"`
}

// StarAnalytics is the derived star history for one repository. The series
// covers only timestamped events; CurrentStars carries the repository's live
// total, which also counts events fetched without timestamps.
type StarAnalytics struct {
	CurrentStars        int                `json:"current_stars"`
	AnalyzedEvents      int                `json:"analyzed_events"`
	UntimestampedEvents int                `json:"untimestamped_events,omitempty"`
	Points              []StarHistoryPoint `json:"points"`
	BestDay             *DayDelta          `json:"best_day"`
	WorstDay            *DayDelta          `json:"worst_day,omitempty"`
	Growth              StarGrowth         `json:"growth"`
	Milestones          []Milestone        `json:"milestones"`
}

// AnalyzeStars derives the star history from fetched events and the live
// star total. Events without a timestamp are excluded from the series but
// still show up in the untimestamped count.
func AnalyzeStars(events []model.StarEvent, currentStars int, now time.Time) StarAnalytics {
	out := StarAnalytics{
		CurrentStars:   currentStars,
		AnalyzedEvents: len(events),
		Milestones:     []Milestone{},
	}

	deltas := map[string]int{}
	for _, ev := range events {
		if ev.StarredAt == nil {
			out.UntimestampedEvents++
			continue
		}
		deltas[ev.StarredAt.UTC().Format(dayFormat)]++
	}

	days := make([]string, 0, len(deltas))
	for day := range deltas {
		days = append(days, day)
	}
	sort.Strings(days)

	cumulative := 0
	out.Points = make([]StarHistoryPoint, 0, len(days))
	for _, day := range days {
		cumulative += deltas[day]
		out.Points = append(out.Points, StarHistoryPoint{Date: day, Delta: deltas[day], Cumulative: cumulative})
	}

	for _, p := range out.Points {
		if out.BestDay == nil || p.Delta > out.BestDay.Delta {
			out.BestDay = &DayDelta{Date: p.Date, Delta: p.Delta}
		}
		// The star listing only reports additions today, so a negative
		// delta never occurs and WorstDay stays nil.
		if p.Delta < 0 && (out.WorstDay == nil || p.Delta < out.WorstDay.Delta) {
			out.WorstDay = &DayDelta{Date: p.Date, Delta: p.Delta}
		}
	}

	out.Growth = StarGrowth{
		Last7Days:   sumSince(out.Points, now.AddDate(0, 0, -7)),
		Last30Days:  sumSince(out.Points, now.AddDate(0, 0, -30)),
		Last90Days:  sumSince(out.Points, now.AddDate(0, 0, -90)),
		Last365Days: sumSince(out.Points, now.AddDate(0, 0, -365)),
	}

	for _, threshold := range milestoneThresholds {
		if currentStars < threshold {
			continue
		}
		for _, p := range out.Points {
			if p.Cumulative >= threshold {
				out.Milestones = append(out.Milestones, Milestone{Threshold: threshold, Date: p.Date})
				break
			}
		}
	}

	return out
}

// sumSince adds up the deltas of points on or after the cutoff day.
func sumSince(points []StarHistoryPoint, cutoff time.Time) int {
	day := cutoff.UTC().Format(dayFormat)
	total := 0
	for _, p := range points {
		if p.Date >= day {
			total += p.Delta
		}
	}
	return total
}
