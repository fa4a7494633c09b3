// internal/github/enrich.go
package github

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"repolens/internal/model"
)

// EnrichProfiles resolves logins to full user profiles in fixed-size batches.
// Lookups inside a batch run concurrently; batches are separated by delay so
// a long enrichment run does not hammer the API. Individual lookup failures
// are logged and the login dropped, so the result can be shorter than the
// input. Order otherwise follows the input. The only error returned is
// cancellation between batches; a batch already in flight runs to completion.
func (c *Client) EnrichProfiles(ctx context.Context, logins []string, batchSize int, delay time.Duration) ([]model.UserProfile, error) {
	if batchSize < 1 {
		batchSize = 1
	}

	profiles := make([]model.UserProfile, 0, len(logins))

	for start := 0; start < len(logins); start += batchSize {
		end := min(start+batchSize, len(logins))
		batch := logins[start:end]

		slots := make([]*model.UserProfile, len(batch))
		g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
		g.SetLimit(len(batch))

		for i, login := range batch {
			i, login := i, login
			g.Go(func() error {
				profile, err := c.GetUser(gctx, login)
				if err != nil {
					c.logger.Warn("profile lookup failed, dropping login", "login", login, "error", err)
					return nil
				}
				slots[i] = profile
				return nil
			})
		}
		// Lookup errors never propagate, so this cannot fail.
		_ = g.Wait()

		for _, p := range slots {
			if p != nil {
				profiles = append(profiles, *p)
			}
		}

		c.logger.Debug("profile batch complete",
			"batch_start", start, "batch_size", len(batch), "resolved", len(profiles))

		if err := ctx.Err(); err != nil {
			return profiles, err
		}
		if end < len(logins) {
			if err := sleepCtx(ctx, delay); err != nil {
				return profiles, err
			}
		}
	}

	return profiles, nil
}
