// internal/github/poll.go
package github

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/go-github/v62/github"

	"repolens/internal/model"
	"repolens/internal/quota"
)

// GitHub computes repository statistics asynchronously and answers 202 while
// the cache warms. We poll a few times and then give up with an empty result
// instead of surfacing the warm-up as an error.
const (
	statPollAttempts = 4
	statPollDelay    = 2 * time.Second
)

// ListCommitActivity fetches the last year of weekly commit totals, polling
// through the statistics warm-up window. The result may be empty when the
// repository is missing, has no commits, or is still warming after the poll
// budget is spent.
func (c *Client) ListCommitActivity(ctx context.Context, owner, name string) ([]model.WeekActivity, error) {
	var weeks []model.WeekActivity

	// attempt returns done=true once it has a final answer for the caller.
	attempt := func() (bool, error) {
		var activity []*github.WeeklyCommitActivity
		err := c.do(ctx, quota.ResourceCore, func() (*github.Response, error) {
			var resp *github.Response
			var err error
			activity, resp, err = c.gh.Repositories.ListCommitActivity(ctx, owner, name)
			return resp, err
		})
		if err != nil {
			var accepted *github.AcceptedError
			if stderrors.As(err, &accepted) {
				return false, nil
			}
			if isNotFound(err) {
				weeks = []model.WeekActivity{}
				return true, nil
			}
			return false, err
		}
		if len(activity) == 0 {
			return false, nil
		}

		weeks = make([]model.WeekActivity, 0, len(activity))
		for _, w := range activity {
			weeks = append(weeks, model.WeekActivity{
				WeekStart: w.GetWeek().Time,
				Total:     w.GetTotal(),
			})
		}
		return true, nil
	}

	for i := 0; i < statPollAttempts; i++ {
		done, err := attempt()
		if err != nil {
			return nil, fmt.Errorf("fetching commit activity for %s/%s: %w", owner, name, err)
		}
		if done {
			return weeks, nil
		}
		c.logger.Debug("commit activity warming, retrying", "owner", owner, "repo", name, "attempt", i+1)
		if err := sleepCtx(ctx, c.statDelay); err != nil {
			return nil, err
		}
	}

	done, err := attempt()
	if err != nil {
		return nil, fmt.Errorf("fetching commit activity for %s/%s: %w", owner, name, err)
	}
	if done {
		return weeks, nil
	}

	c.logger.Info("commit activity still warming after poll budget, returning empty",
		"owner", owner, "repo", name)
	return []model.WeekActivity{}, nil
}
