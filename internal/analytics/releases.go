// internal/analytics/releases.go
package analytics

import (
	"math"
	"path"
	"sort"
	"strings"
	"time"

	"repolens/internal/model"
)

const mib = 1 << 20

// ReleaseDownloads is one release with its summed asset downloads.
type ReleaseDownloads struct {
	TagName     string     `json:"tag_name"`
	Name        string     `json:"name,omitempty"`
	PublishedAt *time.Time `json:"published_at"`
	Downloads   int        `json:"downloads"`
	AssetCount  int        `json:"asset_count"`
}

// ReleaseAnalytics is the derived release and cadence summary for one repository.
type ReleaseAnalytics struct {
	TotalReleases       int               `json:"total_releases"`
	PublishedReleases   int               `json:"published_releases"`
	Prereleases         int               `json:"prereleases"`
	TotalDownloads      int               `json:"total_downloads"`
	AverageDownloads    int               `json:"average_downloads_per_release"`
	MostDownloaded      *ReleaseDownloads `json:"most_downloaded_release"`
	Latest              *ReleaseDownloads `json:"latest_release"`
	DaysBetweenReleases float64           `json:"days_between_releases"`
	ReleasesPerMonth    float64           `json:"releases_per_month"`
	ReleasesPerYear     float64           `json:"releases_per_year"`
}

// DownloadStats breaks asset downloads out by release, file extension, and
// asset size band.
type DownloadStats struct {
	TotalDownloads int                `json:"total_downloads"`
	Releases       []ReleaseDownloads `json:"releases"`
	ByExtension    map[string]int     `json:"downloads_by_extension"`
	BySizeBand     map[string]int     `json:"downloads_by_size_band"`
}

// releaseDownloads sums the asset download counts of one release.
func releaseDownloads(r model.Release) int {
	total := 0
	for _, a := range r.Assets {
		total += a.DownloadCount
	}
	return total
}

func toReleaseDownloads(r model.Release) ReleaseDownloads {
	return ReleaseDownloads{
		TagName:     r.TagName,
		Name:        r.Name,
		PublishedAt: r.PublishedAt,
		Downloads:   releaseDownloads(r),
		AssetCount:  len(r.Assets),
	}
}

// AnalyzeReleases derives the release summary. Cadence covers published,
// non-draft releases only and is zero when fewer than two qualify.
func AnalyzeReleases(releases []model.Release) ReleaseAnalytics {
	out := ReleaseAnalytics{TotalReleases: len(releases)}

	var published []model.Release
	for _, r := range releases {
		downloads := releaseDownloads(r)
		out.TotalDownloads += downloads
		if r.Prerelease {
			out.Prereleases++
		}
		if !r.Draft && r.PublishedAt != nil {
			published = append(published, r)
		}
		if out.MostDownloaded == nil || downloads > out.MostDownloaded.Downloads {
			rd := toReleaseDownloads(r)
			out.MostDownloaded = &rd
		}
	}
	out.PublishedReleases = len(published)

	if len(releases) > 0 {
		out.AverageDownloads = int(math.Round(float64(out.TotalDownloads) / float64(len(releases))))
	}

	sort.SliceStable(published, func(i, j int) bool {
		return published[i].PublishedAt.Before(*published[j].PublishedAt)
	})
	if len(published) > 0 {
		latest := toReleaseDownloads(published[len(published)-1])
		out.Latest = &latest
	}
	if len(published) >= 2 {
		span := published[len(published)-1].PublishedAt.Sub(*published[0].PublishedAt)
		days := span.Hours() / 24 / float64(len(published)-1)
		out.DaysBetweenReleases = round1(days)
		if days > 0 {
			out.ReleasesPerMonth = round1(30 / days)
			out.ReleasesPerYear = round1(365 / days)
		}
	}

	return out
}

// AnalyzeDownloads derives the per-release and per-bucket download breakdown.
func AnalyzeDownloads(releases []model.Release) DownloadStats {
	out := DownloadStats{
		Releases:    make([]ReleaseDownloads, 0, len(releases)),
		ByExtension: map[string]int{},
		BySizeBand:  map[string]int{},
	}
	for _, r := range releases {
		rd := toReleaseDownloads(r)
		out.TotalDownloads += rd.Downloads
		out.Releases = append(out.Releases, rd)
		for _, a := range r.Assets {
			out.ByExtension[assetExtension(a.Name)] += a.DownloadCount
			out.BySizeBand[sizeBand(a.Size)] += a.DownloadCount
		}
	}
	return out
}

// assetExtension buckets an asset by its lowercase file extension, "unknown"
// when it has none.
func assetExtension(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ext == "" {
		return "unknown"
	}
	return ext
}

// sizeBand places an asset size into fixed bands cut at 1, 10, 100, and
// 1024 MiB.
func sizeBand(size int) string {
	switch {
	case size < 1*mib:
		return "under_1mib"
	case size < 10*mib:
		return "1_to_10mib"
	case size < 100*mib:
		return "10_to_100mib"
	case size < 1024*mib:
		return "100_to_1024mib"
	default:
		return "over_1024mib"
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
