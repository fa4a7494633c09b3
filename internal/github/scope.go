// internal/github/scope.go
package github

import (
	"context"

	"repolens/internal/quota"
)

// Plan is the budget a star analysis should run under: how many events to
// fetch and whether that covers the whole listing.
type Plan struct {
	AnalysisLimit int  `json:"analysis_limit"`
	Exhaustive    bool `json:"exhaustive"`
}

// PlanScope sizes an analysis against the core quota actually left. It
// prefers the tracker's latest snapshot, falls back to a live rate-limit
// lookup, and if even that fails returns fixed safe defaults rather than an
// error.
func (c *Client) PlanScope(ctx context.Context) Plan {
	snap, ok := c.quota.Snapshot(quota.ResourceCore)
	if !ok {
		if _, err := c.RateLimits(ctx); err != nil {
			c.logger.Warn("quota unknown, planning with safe defaults", "error", err)
			if c.authed {
				return Plan{AnalysisLimit: 5000, Exhaustive: true}
			}
			return Plan{AnalysisLimit: 50, Exhaustive: false}
		}
		snap, ok = c.quota.Snapshot(quota.ResourceCore)
		if !ok {
			if c.authed {
				return Plan{AnalysisLimit: 5000, Exhaustive: true}
			}
			return Plan{AnalysisLimit: 50, Exhaustive: false}
		}
	}

	plan := planFromRemaining(c.authed, snap.Remaining)
	c.logger.Debug("analysis scope planned",
		"remaining", snap.Remaining, "analysis_limit", plan.AnalysisLimit, "exhaustive", plan.Exhaustive)
	return plan
}

// planFromRemaining applies the scope bands top-down, first match wins.
func planFromRemaining(authed bool, remaining int) Plan {
	var plan Plan
	switch {
	case !authed:
		plan = Plan{AnalysisLimit: min(25, remaining-10), Exhaustive: false}
	case remaining > 2000:
		plan = Plan{AnalysisLimit: min(remaining-100, 50000), Exhaustive: true}
	case remaining > 500:
		plan = Plan{AnalysisLimit: min(remaining-100, 10000), Exhaustive: true}
	case remaining > 100:
		plan = Plan{AnalysisLimit: min(100, remaining-20), Exhaustive: false}
	default:
		plan = Plan{AnalysisLimit: max(10, remaining-5), Exhaustive: false}
	}
	plan.AnalysisLimit = max(10, plan.AnalysisLimit)
	return plan
}
