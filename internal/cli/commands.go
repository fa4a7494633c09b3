// internal/cli/commands.go
package cli

import (
	"github.com/spf13/cobra"

	"repolens/internal/tools"
)

var overviewCmd = &cobra.Command{
	Use:   "overview <owner/name>",
	Short: "Repository metadata, language shares and top contributors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(cmd.Context(), "get_repository_overview", tools.Args{"repository": args[0]})
	},
}

var releasesLimit int

var releasesCmd = &cobra.Command{
	Use:   "releases <owner/name>",
	Short: "Release cadence and download totals",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(cmd.Context(), "get_release_analytics", tools.Args{
			"repository": args[0],
			"limit":      releasesLimit,
		})
	},
}

var downloadsTag string

var downloadsCmd = &cobra.Command{
	Use:   "downloads <owner/name>",
	Short: "Download counts by release, asset type and size band",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(cmd.Context(), "get_download_stats", tools.Args{
			"repository": args[0],
			"tag":        downloadsTag,
		})
	},
}

var starsMaxEvents int

var starsCmd = &cobra.Command{
	Use:   "stars <owner/name>",
	Short: "Daily star growth, growth windows and milestones",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(cmd.Context(), "get_star_history", tools.Args{
			"repository": args[0],
			"max_events": starsMaxEvents,
		})
	},
}

var influencersLimit int

var influencersCmd = &cobra.Command{
	Use:   "influencers <owner/name>",
	Short: "Influence scoring of recent stargazers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(cmd.Context(), "analyze_influencers", tools.Args{
			"repository": args[0],
			"limit":      influencersLimit,
		})
	},
}

var (
	issuesState string
	issuesLimit int
)

var issuesCmd = &cobra.Command{
	Use:   "issues <owner/name>",
	Short: "Issue and pull request summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(cmd.Context(), "get_issue_summary", tools.Args{
			"repository": args[0],
			"state":      issuesState,
			"limit":      issuesLimit,
		})
	},
}

var activityCmd = &cobra.Command{
	Use:   "activity <owner/name>",
	Short: "Weekly commit totals for the last year",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(cmd.Context(), "get_commit_activity", tools.Args{"repository": args[0]})
	},
}

var trafficCmd = &cobra.Command{
	Use:   "traffic <owner/name>",
	Short: "Top referring sites (needs push access)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(cmd.Context(), "get_traffic_referrers", tools.Args{"repository": args[0]})
	},
}

var (
	searchSort  string
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search public repositories",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(cmd.Context(), "search_repositories", tools.Args{
			"query": args[0],
			"sort":  searchSort,
			"limit": searchLimit,
		})
	},
}

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Current rate-limit standing per API resource",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(cmd.Context(), "get_rate_limit_status", nil)
	},
}

func init() {
	releasesCmd.Flags().IntVar(&releasesLimit, "limit", 0, "cap on releases fetched, 0 fetches all")
	downloadsCmd.Flags().StringVar(&downloadsTag, "tag", "", "narrow the stats to one release tag")
	starsCmd.Flags().IntVar(&starsMaxEvents, "max-events", 0, "cap on star events fetched, 0 fetches the full history")
	influencersCmd.Flags().IntVar(&influencersLimit, "limit", 0, "stargazers to profile, 0 lets the quota planner decide")
	issuesCmd.Flags().StringVar(&issuesState, "state", "all", "issue state: open, closed or all")
	issuesCmd.Flags().IntVar(&issuesLimit, "limit", 200, "cap on issues sampled")
	searchCmd.Flags().StringVar(&searchSort, "sort", "", "sort key: stars, forks or updated")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "number of hits to return")

	rootCmd.AddCommand(
		overviewCmd,
		releasesCmd,
		downloadsCmd,
		starsCmd,
		influencersCmd,
		issuesCmd,
		activityCmd,
		trafficCmd,
		searchCmd,
		quotaCmd,
	)
}
