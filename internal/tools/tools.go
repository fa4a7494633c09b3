// internal/tools/tools.go
package tools

import (
	"context"

	"repolens/internal/insights"
)

const (
	defaultIssueSample = 200
	defaultSearchHits  = 10
)

// RegisterAll wires every analysis operation of the service into the
// registry under its public tool name.
func RegisterAll(r *Registry, svc *insights.Service) {
	repoParam := Param{
		Name:        "repository",
		Type:        "string",
		Required:    true,
		Description: "Repository in owner/name form, e.g. golang/go",
	}

	r.Register(Tool{
		Name:        "get_repository_overview",
		Description: "Repository metadata with language shares and top contributors",
		Params:      []Param{repoParam},
		Run: func(ctx context.Context, args Args) (any, error) {
			return svc.Overview(ctx, args.String("repository"))
		},
	})

	r.Register(Tool{
		Name:        "get_release_analytics",
		Description: "Release cadence and download totals across the release history",
		Params: []Param{
			repoParam,
			{Name: "limit", Type: "integer", Description: "Cap on releases fetched, newest first. 0 fetches all"},
		},
		Run: func(ctx context.Context, args Args) (any, error) {
			return svc.ReleaseAnalytics(ctx, args.String("repository"), args.Int("limit"))
		},
	})

	r.Register(Tool{
		Name:        "get_download_stats",
		Description: "Download counts broken out by release, asset type and asset size",
		Params: []Param{
			repoParam,
			{Name: "tag", Type: "string", Description: "Narrow the stats to a single release tag"},
		},
		Run: func(ctx context.Context, args Args) (any, error) {
			return svc.DownloadStats(ctx, args.String("repository"), args.String("tag"))
		},
	})

	r.Register(Tool{
		Name:        "get_star_history",
		Description: "Daily star growth, best days, growth windows and milestones",
		Params: []Param{
			repoParam,
			{Name: "max_events", Type: "integer", Description: "Cap on star events fetched. 0 fetches the full history"},
		},
		Run: func(ctx context.Context, args Args) (any, error) {
			return svc.StarHistory(ctx, args.String("repository"), args.Int("max_events"))
		},
	})

	r.Register(Tool{
		Name:        "analyze_influencers",
		Description: "Influence scoring of recent stargazers with notable-account detection",
		Params: []Param{
			repoParam,
			{Name: "limit", Type: "integer", Description: "How many recent stargazers to profile. 0 lets the quota planner decide"},
		},
		Run: func(ctx context.Context, args Args) (any, error) {
			return svc.Influencers(ctx, args.String("repository"), args.Int("limit"))
		},
	})

	r.Register(Tool{
		Name:        "get_issue_summary",
		Description: "Issue and pull request counts with close-time and comment averages",
		Params: []Param{
			repoParam,
			{Name: "state", Type: "string", Description: "Filter to open or closed. Defaults to all"},
			{Name: "limit", Type: "integer", Description: "Cap on issues sampled. Defaults to 200"},
		},
		Run: func(ctx context.Context, args Args) (any, error) {
			limit := args.Int("limit")
			if limit <= 0 {
				limit = defaultIssueSample
			}
			return svc.IssueSummary(ctx, args.String("repository"), args.String("state"), limit)
		},
	})

	r.Register(Tool{
		Name:        "get_commit_activity",
		Description: "Weekly commit totals for the last year with the busiest week",
		Params:      []Param{repoParam},
		Run: func(ctx context.Context, args Args) (any, error) {
			return svc.CommitActivity(ctx, args.String("repository"))
		},
	})

	r.Register(Tool{
		Name:        "get_traffic_referrers",
		Description: "Top referring sites, available only with push access to the repository",
		Params:      []Param{repoParam},
		Run: func(ctx context.Context, args Args) (any, error) {
			return svc.TrafficReferrers(ctx, args.String("repository"))
		},
	})

	r.Register(Tool{
		Name:        "search_repositories",
		Description: "Search public repositories, ordered by best match or a sort key",
		Params: []Param{
			{Name: "query", Type: "string", Required: true, Description: "Search query, e.g. language:go topic:cli"},
			{Name: "sort", Type: "string", Description: "Sort key: stars, forks or updated. Defaults to best match"},
			{Name: "limit", Type: "integer", Description: "Number of hits to return. Defaults to 10, capped at 100"},
		},
		Run: func(ctx context.Context, args Args) (any, error) {
			limit := args.Int("limit")
			if limit <= 0 {
				limit = defaultSearchHits
			}
			return svc.Search(ctx, args.String("query"), args.String("sort"), limit)
		},
	})

	r.Register(Tool{
		Name:        "get_rate_limit_status",
		Description: "Current rate-limit standing per API resource",
		Run: func(ctx context.Context, args Args) (any, error) {
			return svc.QuotaStatus(ctx)
		},
	})
}
