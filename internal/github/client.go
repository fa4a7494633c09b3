// internal/github/client.go
package github

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	custom_errors "repolens/internal/errors"
	"repolens/internal/model"
	"repolens/internal/quota"
)

const (
	defaultPageSize = 100
	// pagePauseEvery inserts a courtesy pause after every Nth page of a
	// paginated walk, independent of quota state, to soften burst pressure.
	pagePauseEvery = 10
)

// Client is a wrapper around the go-github client. Every response it sees is
// reported to the quota tracker, and every request is gated on the tracker's
// view of the current rate limit.
type Client struct {
	gh         *github.Client
	httpClient *http.Client
	quota      *quota.Tracker
	logger     *slog.Logger
	authed     bool

	pageSize  int
	pagePause time.Duration
	statDelay time.Duration
}

// NewClient creates and configures a new Client instance. An empty token
// yields an unauthenticated client with GitHub's much lower quota ceiling.
func NewClient(token string, tracker *quota.Tracker, logger *slog.Logger) *Client {
	httpClient := &http.Client{}
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	return &Client{
		gh:         github.NewClient(httpClient),
		httpClient: httpClient,
		quota:      tracker,
		logger:     logger,
		authed:     token != "",
		pageSize:   defaultPageSize,
		pagePause:  time.Second,
		statDelay:  statPollDelay,
	}
}

// Authenticated reports whether the client was built with a credential.
func (c *Client) Authenticated() bool {
	return c.authed
}

// SetHTTPTimeout bounds each individual API request. Call it before
// SetAPIBaseURL: the enterprise rewrite copies the transport settings.
func (c *Client) SetHTTPTimeout(d time.Duration) {
	if d > 0 {
		c.httpClient.Timeout = d
	}
}

// SetAPIBaseURL points the client at a GitHub Enterprise instance. The
// /api/v3/ prefix is appended automatically.
func (c *Client) SetAPIBaseURL(base string) error {
	gh, err := c.gh.WithEnterpriseURLs(base, base)
	if err != nil {
		return err
	}
	c.gh = gh
	return nil
}

// observe feeds a response's quota headers to the tracker. Responses without
// the full header set are ignored by the tracker itself.
func (c *Client) observe(resp *github.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	c.quota.Observe(resp.Header)
}

// do runs one API call behind the quota gate. When the server reports an
// exhausted or abuse-triggered rate limit with an actionable wait hint, the
// call sleeps that hint out and retries once; without a hint it surfaces a
// typed QuotaExceededError. All other failures pass through untouched.
func (c *Client) do(ctx context.Context, resource string, call func() (*github.Response, error)) error {
	if err := c.quota.Wait(ctx, resource); err != nil {
		return err
	}

	resp, err := call()
	c.observe(resp)
	if err == nil {
		return nil
	}

	wait, qerr := quotaHint(resource, err)
	if qerr == nil {
		return err
	}
	if wait <= 0 {
		return qerr
	}

	c.logger.Warn("rate limited, sleeping before retry",
		"resource", resource,
		"wait", wait.Round(time.Second).String(),
	)
	if err := sleepCtx(ctx, wait); err != nil {
		return err
	}

	resp, err = call()
	c.observe(resp)
	if err == nil {
		return nil
	}
	if _, qerr := quotaHint(resource, err); qerr != nil {
		return qerr
	}
	return err
}

// walkPages drives a page-numbered listing from page 1. The walk stops on an
// empty page, a short page, or once hardCap records have accumulated
// (hardCap 0 means unbounded). fetch returns how many records page n
// contributed. Every pagePauseEvery pages a fixed pause is inserted before
// continuing.
func (c *Client) walkPages(ctx context.Context, resource string, hardCap int, fetch func(page int) (int, *github.Response, error)) error {
	total := 0
	for page := 1; ; page++ {
		var n int
		err := c.do(ctx, resource, func() (*github.Response, error) {
			var resp *github.Response
			var err error
			n, resp, err = fetch(page)
			return resp, err
		})
		if err != nil {
			return err
		}

		total += n
		if n == 0 || n < c.pageSize {
			return nil
		}
		if hardCap > 0 && total >= hardCap {
			return nil
		}

		if page%pagePauseEvery == 0 {
			if err := sleepCtx(ctx, c.pagePause); err != nil {
				return err
			}
		}
	}
}

// GetRepository fetches repository metadata. A missing or inaccessible
// repository yields a nil result rather than an error.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*model.Repository, error) {
	var repo *github.Repository
	err := c.do(ctx, quota.ResourceCore, func() (*github.Response, error) {
		var resp *github.Response
		var err error
		repo, resp, err = c.gh.Repositories.Get(ctx, owner, name)
		return resp, err
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return toRepository(repo), nil
}

// GetUser fetches the full profile for one account.
func (c *Client) GetUser(ctx context.Context, login string) (*model.UserProfile, error) {
	var user *github.User
	err := c.do(ctx, quota.ResourceCore, func() (*github.Response, error) {
		var resp *github.Response
		var err error
		user, resp, err = c.gh.Users.Get(ctx, login)
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	profile := toUserProfile(user)
	return &profile, nil
}

// ListLanguages fetches the byte count per language for a repository.
func (c *Client) ListLanguages(ctx context.Context, owner, name string) (map[string]int, error) {
	var langs map[string]int
	err := c.do(ctx, quota.ResourceCore, func() (*github.Response, error) {
		var resp *github.Response
		var err error
		langs, resp, err = c.gh.Repositories.ListLanguages(ctx, owner, name)
		return resp, err
	})
	if err != nil {
		if isNotFound(err) {
			return map[string]int{}, nil
		}
		return nil, err
	}
	return langs, nil
}

// RateLimits queries the quota-status endpoint and seeds the tracker with
// every resource class it reports.
func (c *Client) RateLimits(ctx context.Context) ([]quota.Snapshot, error) {
	limits, _, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		return nil, err
	}

	seed := func(resource string, r *github.Rate) {
		if r == nil {
			return
		}
		c.quota.Seed(resource, r.Limit, r.Remaining, r.Limit-r.Remaining, r.Reset.Time)
	}
	seed(quota.ResourceCore, limits.Core)
	seed(quota.ResourceSearch, limits.Search)
	seed("graphql", limits.GraphQL)

	return c.quota.Snapshots(), nil
}

// quotaHint inspects an error for rate-limit semantics, returning the wait
// the server suggested (zero when it gave none) and the typed error to
// surface if the wait cannot or should not be taken.
func quotaHint(resource string, err error) (time.Duration, *custom_errors.QuotaExceededError) {
	var rateErr *github.RateLimitError
	if stderrors.As(err, &rateErr) {
		reset := rateErr.Rate.Reset.Time
		return time.Until(reset), &custom_errors.QuotaExceededError{Resource: resource, ResetAt: reset}
	}

	var abuseErr *github.AbuseRateLimitError
	if stderrors.As(err, &abuseErr) {
		retryAfter := abuseErr.GetRetryAfter()
		return retryAfter, &custom_errors.QuotaExceededError{Resource: resource, RetryAfter: retryAfter}
	}

	return 0, nil
}

func isNotFound(err error) bool {
	var ghErr *github.ErrorResponse
	return stderrors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}

// isForbidden matches 403s that are not rate-limit errors, e.g. traffic
// stats requested without push access.
func isForbidden(err error) bool {
	var ghErr *github.ErrorResponse
	return stderrors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusForbidden
}

// isMediaTypeRejected matches the server refusing an enhanced media-type
// request variant for this endpoint/auth combination.
func isMediaTypeRejected(err error) bool {
	var ghErr *github.ErrorResponse
	if !stderrors.As(err, &ghErr) || ghErr.Response == nil {
		return false
	}
	code := ghErr.Response.StatusCode
	return code == http.StatusUnsupportedMediaType || code == http.StatusUnprocessableEntity
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// toRepository translates a github.Repository object to our internal model.Repository.
func toRepository(r *github.Repository) *model.Repository {
	repo := &model.Repository{
		GithubRepoID:    r.GetID(),
		Owner:           r.GetOwner().GetLogin(),
		Name:            r.GetName(),
		FullName:        r.GetFullName(),
		Description:     r.Description,
		URL:             r.GetHTMLURL(),
		Language:        r.Language,
		License:         r.GetLicense().GetSPDXID(),
		Topics:          r.Topics,
		DefaultBranch:   r.GetDefaultBranch(),
		ForksCount:      r.GetForksCount(),
		StarsCount:      r.GetStargazersCount(),
		OpenIssuesCount: r.GetOpenIssuesCount(),
		WatchersCount:   r.GetWatchersCount(),
		Archived:        r.GetArchived(),
		Fork:            r.GetFork(),
		RepoCreatedAt:   r.GetCreatedAt().Time,
		RepoUpdatedAt:   r.GetUpdatedAt().Time,
	}
	if r.PushedAt != nil {
		pushed := r.GetPushedAt().Time
		repo.RepoPushedAt = &pushed
	}
	return repo
}

// toUserProfile translates a github.User object to our internal model.UserProfile.
func toUserProfile(u *github.User) model.UserProfile {
	return model.UserProfile{
		Login:          u.GetLogin(),
		Name:           u.GetName(),
		Company:        u.GetCompany(),
		Location:       u.GetLocation(),
		Followers:      u.GetFollowers(),
		Following:      u.GetFollowing(),
		PublicRepos:    u.GetPublicRepos(),
		AccountCreated: u.GetCreatedAt().Time,
		URL:            u.GetHTMLURL(),
	}
}
