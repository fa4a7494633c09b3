// internal/insights/service.go
package insights

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"repolens/internal/analytics"
	"repolens/internal/github"
	"repolens/internal/model"
	"repolens/internal/quota"
)

const contributorsCap = 30

// GitHub is the slice of the API client the service consumes.
type GitHub interface {
	Authenticated() bool
	GetRepository(ctx context.Context, owner, name string) (*model.Repository, error)
	ListLanguages(ctx context.Context, owner, name string) (map[string]int, error)
	ListContributors(ctx context.Context, owner, name string, hardCap int) ([]model.Contributor, error)
	ListReleases(ctx context.Context, owner, name string, hardCap int) ([]model.Release, error)
	ListStargazers(ctx context.Context, owner, name string, hardCap int) ([]model.StarEvent, error)
	ListIssues(ctx context.Context, owner, name, state string, hardCap int) ([]model.IssueRecord, error)
	ListTrafficReferrers(ctx context.Context, owner, name string) ([]model.Referrer, bool, error)
	ListCommitActivity(ctx context.Context, owner, name string) ([]model.WeekActivity, error)
	SearchRepositories(ctx context.Context, query, sort string, limit int) ([]model.SearchItem, int, error)
	EnrichProfiles(ctx context.Context, logins []string, batchSize int, delay time.Duration) ([]model.UserProfile, error)
	PlanScope(ctx context.Context) github.Plan
	RateLimits(ctx context.Context) ([]quota.Snapshot, error)
}

// Service orchestrates fetching and derivation for one tool invocation at a
// time. Batch tuning is swappable at runtime; everything else is immutable
// after construction.
type Service struct {
	gh     GitHub
	logger *slog.Logger
	now    func() time.Time

	mu         sync.RWMutex
	batchSize  int
	batchDelay time.Duration
}

// NewService creates a new Service instance.
func NewService(gh GitHub, logger *slog.Logger, batchSize int, batchDelay time.Duration) *Service {
	return &Service{
		gh:         gh,
		logger:     logger,
		now:        time.Now,
		batchSize:  batchSize,
		batchDelay: batchDelay,
	}
}

// SetBatchTuning swaps the profile-enrichment batch parameters, typically on
// a configuration reload.
func (s *Service) SetBatchTuning(size int, delay time.Duration) {
	if size < 1 {
		return
	}
	s.mu.Lock()
	s.batchSize, s.batchDelay = size, delay
	s.mu.Unlock()
	s.logger.Info("profile batch tuning updated", "batch_size", size, "batch_delay", delay.String())
}

func (s *Service) batchTuning() (int, time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batchSize, s.batchDelay
}

// RepositoryOverview is the metadata-plus-composition summary for one repository.
type RepositoryOverview struct {
	Repository      string                    `json:"repository"`
	Metadata        *model.Repository         `json:"metadata"`
	Languages       []analytics.LanguageShare `json:"languages"`
	TopContributors []model.Contributor       `json:"top_contributors"`
}

// Overview fetches repository metadata, language composition, and the top
// contributors. A missing repository yields null metadata and empty lists.
func (s *Service) Overview(ctx context.Context, repo string) (*RepositoryOverview, error) {
	owner, name, err := model.ParseRepository(repo)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With("owner", owner, "repo", name)

	out := &RepositoryOverview{
		Repository:      repo,
		Languages:       []analytics.LanguageShare{},
		TopContributors: []model.Contributor{},
	}

	metadata, err := s.gh.GetRepository(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("fetching repository %s: %w", repo, err)
	}
	if metadata == nil {
		logger.Info("repository not found")
		return out, nil
	}
	out.Metadata = metadata

	languages, err := s.gh.ListLanguages(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("fetching languages for %s: %w", repo, err)
	}
	out.Languages = analytics.LanguageShares(languages)

	contributors, err := s.gh.ListContributors(ctx, owner, name, contributorsCap)
	if err != nil {
		return nil, err
	}
	out.TopContributors = contributors

	logger.Info("overview assembled", "languages", len(out.Languages), "contributors", len(contributors))
	return out, nil
}

// ReleaseReport is the cadence and download summary for one repository.
type ReleaseReport struct {
	Repository string `json:"repository"`
	analytics.ReleaseAnalytics
}

// ReleaseAnalytics fetches releases (all of them when limit is 0) and
// derives the cadence summary.
func (s *Service) ReleaseAnalytics(ctx context.Context, repo string, limit int) (*ReleaseReport, error) {
	owner, name, err := model.ParseRepository(repo)
	if err != nil {
		return nil, err
	}

	releases, err := s.gh.ListReleases(ctx, owner, name, limit)
	if err != nil {
		return nil, err
	}

	s.logger.Info("release analysis complete", "owner", owner, "repo", name, "releases", len(releases))
	return &ReleaseReport{Repository: repo, ReleaseAnalytics: analytics.AnalyzeReleases(releases)}, nil
}

// DownloadReport breaks downloads out per release and per asset bucket,
// optionally narrowed to one tag.
type DownloadReport struct {
	Repository string `json:"repository"`
	Tag        string `json:"tag,omitempty"`
	analytics.DownloadStats
}

// DownloadStats fetches releases and derives the download breakdown. A
// non-empty tag narrows the stats to that release; an unknown tag yields
// empty stats.
func (s *Service) DownloadStats(ctx context.Context, repo, tag string) (*DownloadReport, error) {
	owner, name, err := model.ParseRepository(repo)
	if err != nil {
		return nil, err
	}

	releases, err := s.gh.ListReleases(ctx, owner, name, 0)
	if err != nil {
		return nil, err
	}

	if tag != "" {
		var narrowed []model.Release
		for _, r := range releases {
			if r.TagName == tag {
				narrowed = append(narrowed, r)
			}
		}
		releases = narrowed
	}

	return &DownloadReport{Repository: repo, Tag: tag, DownloadStats: analytics.AnalyzeDownloads(releases)}, nil
}

// StarReport is the star history summary for one repository.
type StarReport struct {
	Repository string `json:"repository"`
	analytics.StarAnalytics
}

// StarHistory fetches star events (all of them when maxEvents is 0) and
// derives the growth series against the repository's live star total.
func (s *Service) StarHistory(ctx context.Context, repo string, maxEvents int) (*StarReport, error) {
	owner, name, err := model.ParseRepository(repo)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With("owner", owner, "repo", name)

	metadata, err := s.gh.GetRepository(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("fetching repository %s: %w", repo, err)
	}
	currentStars := 0
	if metadata != nil {
		currentStars = metadata.StarsCount
	}

	events, err := s.gh.ListStargazers(ctx, owner, name, maxEvents)
	if err != nil {
		return nil, err
	}

	logger.Info("star history fetched", "events", len(events), "current_stars", currentStars)
	return &StarReport{Repository: repo, StarAnalytics: analytics.AnalyzeStars(events, currentStars, s.now())}, nil
}

// InfluencerReport is the influence summary over enriched stargazer profiles.
type InfluencerReport struct {
	Repository string      `json:"repository"`
	Plan       github.Plan `json:"plan"`
	analytics.InfluencerAnalytics
}

// Influencers fetches stargazers, enriches the most recent ones into full
// profiles, and derives the influence summary. A positive limit overrides
// the quota-based plan; otherwise the planner sizes the analysis.
func (s *Service) Influencers(ctx context.Context, repo string, limit int) (*InfluencerReport, error) {
	owner, name, err := model.ParseRepository(repo)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With("owner", owner, "repo", name)

	plan := github.Plan{AnalysisLimit: limit, Exhaustive: false}
	if limit <= 0 {
		plan = s.gh.PlanScope(ctx)
	}

	fetchCap := plan.AnalysisLimit
	if plan.Exhaustive {
		fetchCap = 0
	}
	events, err := s.gh.ListStargazers(ctx, owner, name, fetchCap)
	if err != nil {
		return nil, err
	}

	// The listing is oldest-first; the most recent stargazers are the tail.
	tail := events
	if len(tail) > plan.AnalysisLimit {
		tail = tail[len(tail)-plan.AnalysisLimit:]
	}

	logins := make([]string, 0, len(tail))
	starredAt := make(map[string]*time.Time, len(tail))
	for _, ev := range tail {
		logins = append(logins, ev.Login)
		starredAt[ev.Login] = ev.StarredAt
	}

	batchSize, batchDelay := s.batchTuning()
	logger.Info("enriching stargazer profiles",
		"events", len(events), "selected", len(logins),
		"batch_size", batchSize, "exhaustive", plan.Exhaustive)

	profiles, err := s.gh.EnrichProfiles(ctx, logins, batchSize, batchDelay)
	if err != nil {
		return nil, err
	}

	report := &InfluencerReport{
		Repository:          repo,
		Plan:                plan,
		InfluencerAnalytics: analytics.AnalyzeInfluence(profiles, starredAt, s.now()),
	}
	return report, nil
}

// IssueReport is the issue and pull-request summary for one repository.
type IssueReport struct {
	Repository    string `json:"repository"`
	State         string `json:"state"`
	SampledIssues int    `json:"sampled_issues"`
	analytics.IssueAnalytics
}

// IssueSummary fetches up to maxIssues issues (0 = all) in the given state
// and derives the summary.
func (s *Service) IssueSummary(ctx context.Context, repo, state string, maxIssues int) (*IssueReport, error) {
	owner, name, err := model.ParseRepository(repo)
	if err != nil {
		return nil, err
	}
	if state == "" {
		state = "all"
	}

	records, err := s.gh.ListIssues(ctx, owner, name, state, maxIssues)
	if err != nil {
		return nil, err
	}

	return &IssueReport{
		Repository:     repo,
		State:          state,
		SampledIssues:  len(records),
		IssueAnalytics: analytics.AnalyzeIssues(records, s.now()),
	}, nil
}

// ActivityReport is the weekly commit summary for one repository.
type ActivityReport struct {
	Repository string `json:"repository"`
	analytics.CommitActivityAnalytics
}

// CommitActivity fetches the trailing year of weekly commit totals.
func (s *Service) CommitActivity(ctx context.Context, repo string) (*ActivityReport, error) {
	owner, name, err := model.ParseRepository(repo)
	if err != nil {
		return nil, err
	}

	weeks, err := s.gh.ListCommitActivity(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	return &ActivityReport{Repository: repo, CommitActivityAnalytics: analytics.AnalyzeCommitActivity(weeks)}, nil
}

// TrafficReport is the referrer listing, flagged unavailable when the
// credential lacks push access.
type TrafficReport struct {
	Repository string           `json:"repository"`
	Available  bool             `json:"available"`
	Referrers  []model.Referrer `json:"referrers"`
}

// TrafficReferrers fetches the two-week referrer traffic rows.
func (s *Service) TrafficReferrers(ctx context.Context, repo string) (*TrafficReport, error) {
	owner, name, err := model.ParseRepository(repo)
	if err != nil {
		return nil, err
	}

	referrers, available, err := s.gh.ListTrafficReferrers(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	return &TrafficReport{Repository: repo, Available: available, Referrers: referrers}, nil
}

// SearchReport is one page of repository search results.
type SearchReport struct {
	Query        string             `json:"query"`
	TotalMatches int                `json:"total_matches"`
	Items        []model.SearchItem `json:"items"`
}

// Search runs a full-text repository search.
func (s *Service) Search(ctx context.Context, query, sort string, limit int) (*SearchReport, error) {
	items, total, err := s.gh.SearchRepositories(ctx, query, sort, limit)
	if err != nil {
		return nil, err
	}
	return &SearchReport{Query: query, TotalMatches: total, Items: items}, nil
}

// QuotaReport is the live rate-limit standing per resource class.
type QuotaReport struct {
	Authenticated bool             `json:"authenticated"`
	Resources     []quota.Snapshot `json:"resources"`
}

// QuotaStatus queries the quota endpoint and reports every resource class.
func (s *Service) QuotaStatus(ctx context.Context) (*QuotaReport, error) {
	snapshots, err := s.gh.RateLimits(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching rate limits: %w", err)
	}
	return &QuotaReport{Authenticated: s.gh.Authenticated(), Resources: snapshots}, nil
}
