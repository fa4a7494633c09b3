// internal/github/fetch.go
package github

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v62/github"

	"repolens/internal/model"
	"repolens/internal/quota"
)

// ListReleases fetches up to hardCap releases (0 = all), drafts included.
// Repositories without releases yield an empty slice.
func (c *Client) ListReleases(ctx context.Context, owner, name string, hardCap int) ([]model.Release, error) {
	var all []model.Release
	err := c.walkPages(ctx, quota.ResourceCore, hardCap, func(page int) (int, *github.Response, error) {
		opts := &github.ListOptions{Page: page, PerPage: c.pageSize}
		releases, resp, err := c.gh.Repositories.ListReleases(ctx, owner, name, opts)
		if err != nil {
			if isNotFound(err) {
				return 0, resp, nil
			}
			return 0, resp, err
		}
		for _, r := range releases {
			all = append(all, toRelease(r))
		}
		return len(releases), resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing releases for %s/%s: %w", owner, name, err)
	}
	if hardCap > 0 && len(all) > hardCap {
		all = all[:hardCap]
	}
	return all, nil
}

// ListStargazers fetches up to hardCap star events (0 = all). It first asks
// for the timestamp-bearing media type; if the server rejects that variant
// for this endpoint/auth combination it falls back, for the whole call, to
// the plain listing restarted from page 1, with StarredAt left nil.
func (c *Client) ListStargazers(ctx context.Context, owner, name string, hardCap int) ([]model.StarEvent, error) {
	events, err := c.listStargazersTimestamped(ctx, owner, name, hardCap)
	if err == nil {
		return events, nil
	}
	if !isMediaTypeRejected(err) {
		return nil, fmt.Errorf("listing stargazers for %s/%s: %w", owner, name, err)
	}

	c.logger.Warn("star timestamps unavailable, falling back to plain stargazer listing",
		"owner", owner, "repo", name, "error", err)

	events, err = c.listStargazersPlain(ctx, owner, name, hardCap)
	if err != nil {
		return nil, fmt.Errorf("listing stargazers for %s/%s: %w", owner, name, err)
	}
	return events, nil
}

func (c *Client) listStargazersTimestamped(ctx context.Context, owner, name string, hardCap int) ([]model.StarEvent, error) {
	var all []model.StarEvent
	err := c.walkPages(ctx, quota.ResourceCore, hardCap, func(page int) (int, *github.Response, error) {
		opts := &github.ListOptions{Page: page, PerPage: c.pageSize}
		gazers, resp, err := c.gh.Activity.ListStargazers(ctx, owner, name, opts)
		if err != nil {
			if isNotFound(err) {
				return 0, resp, nil
			}
			return 0, resp, err
		}
		for _, g := range gazers {
			all = append(all, toStarEvent(g))
		}
		return len(gazers), resp, nil
	})
	if err != nil {
		return nil, err
	}
	if hardCap > 0 && len(all) > hardCap {
		all = all[:hardCap]
	}
	return all, nil
}

// listStargazersPlain walks the stargazers listing with the default media
// type, which carries no star timestamps.
func (c *Client) listStargazersPlain(ctx context.Context, owner, name string, hardCap int) ([]model.StarEvent, error) {
	var all []model.StarEvent
	err := c.walkPages(ctx, quota.ResourceCore, hardCap, func(page int) (int, *github.Response, error) {
		u := fmt.Sprintf("repos/%s/%s/stargazers?per_page=%d&page=%d", owner, name, c.pageSize, page)
		req, err := c.gh.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return 0, nil, err
		}

		var users []*github.User
		resp, err := c.gh.Do(ctx, req, &users)
		if err != nil {
			if isNotFound(err) {
				return 0, resp, nil
			}
			return 0, resp, err
		}
		for _, user := range users {
			all = append(all, model.StarEvent{Login: user.GetLogin()})
		}
		return len(users), resp, nil
	})
	if err != nil {
		return nil, err
	}
	if hardCap > 0 && len(all) > hardCap {
		all = all[:hardCap]
	}
	return all, nil
}

// ListIssues fetches up to hardCap issues (0 = all) in the given state
// ("open", "closed", or "all"). Pull requests arrive through the same
// listing and are flagged on the record.
func (c *Client) ListIssues(ctx context.Context, owner, name, state string, hardCap int) ([]model.IssueRecord, error) {
	if state == "" {
		state = "all"
	}
	var all []model.IssueRecord
	err := c.walkPages(ctx, quota.ResourceCore, hardCap, func(page int) (int, *github.Response, error) {
		opts := &github.IssueListByRepoOptions{
			State:       state,
			ListOptions: github.ListOptions{Page: page, PerPage: c.pageSize},
		}
		issues, resp, err := c.gh.Issues.ListByRepo(ctx, owner, name, opts)
		if err != nil {
			if isNotFound(err) {
				return 0, resp, nil
			}
			return 0, resp, err
		}
		for _, is := range issues {
			all = append(all, toIssueRecord(is))
		}
		return len(issues), resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing issues for %s/%s: %w", owner, name, err)
	}
	if hardCap > 0 && len(all) > hardCap {
		all = all[:hardCap]
	}
	return all, nil
}

// ListContributors fetches up to hardCap contributors (0 = all) ordered by
// contribution count, the ordering the API provides.
func (c *Client) ListContributors(ctx context.Context, owner, name string, hardCap int) ([]model.Contributor, error) {
	var all []model.Contributor
	err := c.walkPages(ctx, quota.ResourceCore, hardCap, func(page int) (int, *github.Response, error) {
		opts := &github.ListContributorsOptions{
			ListOptions: github.ListOptions{Page: page, PerPage: c.pageSize},
		}
		contribs, resp, err := c.gh.Repositories.ListContributors(ctx, owner, name, opts)
		if err != nil {
			if isNotFound(err) {
				return 0, resp, nil
			}
			return 0, resp, err
		}
		for _, cn := range contribs {
			all = append(all, model.Contributor{Login: cn.GetLogin(), Contributions: cn.GetContributions()})
		}
		return len(contribs), resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing contributors for %s/%s: %w", owner, name, err)
	}
	if hardCap > 0 && len(all) > hardCap {
		all = all[:hardCap]
	}
	return all, nil
}

// ListTrafficReferrers fetches the referrer traffic rows. The endpoint needs
// push access; without it the call degrades to an empty, flagged result
// rather than failing.
func (c *Client) ListTrafficReferrers(ctx context.Context, owner, name string) ([]model.Referrer, bool, error) {
	var refs []*github.TrafficReferrer
	err := c.do(ctx, quota.ResourceCore, func() (*github.Response, error) {
		var resp *github.Response
		var err error
		refs, resp, err = c.gh.Repositories.ListTrafficReferrers(ctx, owner, name)
		return resp, err
	})
	if err != nil {
		if isNotFound(err) || isForbidden(err) {
			c.logger.Info("traffic stats unavailable for this access level", "owner", owner, "repo", name)
			return []model.Referrer{}, false, nil
		}
		return nil, false, fmt.Errorf("listing traffic referrers for %s/%s: %w", owner, name, err)
	}

	out := make([]model.Referrer, 0, len(refs))
	for _, r := range refs {
		out = append(out, model.Referrer{Referrer: r.GetReferrer(), Count: r.GetCount(), Uniques: r.GetUniques()})
	}
	return out, true, nil
}

// SearchRepositories runs a full-text repository search, returning up to
// limit rows (the search API serves at most one page of 100 here).
func (c *Client) SearchRepositories(ctx context.Context, query, sort string, limit int) ([]model.SearchItem, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var result *github.RepositoriesSearchResult
	err := c.do(ctx, quota.ResourceSearch, func() (*github.Response, error) {
		opts := &github.SearchOptions{
			Sort:        sort,
			Order:       "desc",
			ListOptions: github.ListOptions{Page: 1, PerPage: limit},
		}
		var resp *github.Response
		var err error
		result, resp, err = c.gh.Search.Repositories(ctx, query, opts)
		return resp, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("searching repositories for %q: %w", query, err)
	}

	items := make([]model.SearchItem, 0, len(result.Repositories))
	for _, r := range result.Repositories {
		items = append(items, model.SearchItem{
			FullName:    r.GetFullName(),
			Description: r.Description,
			Language:    r.Language,
			Stars:       r.GetStargazersCount(),
			Forks:       r.GetForksCount(),
			URL:         r.GetHTMLURL(),
		})
	}
	return items, result.GetTotal(), nil
}

// toRelease translates a github.RepositoryRelease to our internal model.Release.
func toRelease(r *github.RepositoryRelease) model.Release {
	rel := model.Release{
		TagName:    r.GetTagName(),
		Name:       r.GetName(),
		Draft:      r.GetDraft(),
		Prerelease: r.GetPrerelease(),
	}
	if r.PublishedAt != nil {
		published := r.GetPublishedAt().Time
		rel.PublishedAt = &published
	}
	for _, a := range r.Assets {
		rel.Assets = append(rel.Assets, model.ReleaseAsset{
			Name:          a.GetName(),
			Size:          a.GetSize(),
			DownloadCount: a.GetDownloadCount(),
			ContentType:   a.GetContentType(),
		})
	}
	return rel
}

// toStarEvent translates a github.Stargazer, keeping the timestamp only when
// the server actually sent one.
func toStarEvent(g *github.Stargazer) model.StarEvent {
	ev := model.StarEvent{Login: g.GetUser().GetLogin()}
	if g.StarredAt != nil {
		starred := g.GetStarredAt().Time
		ev.StarredAt = &starred
	}
	return ev
}

// toIssueRecord translates a github.Issue to our internal model.IssueRecord.
func toIssueRecord(is *github.Issue) model.IssueRecord {
	rec := model.IssueRecord{
		Number:        is.GetNumber(),
		State:         is.GetState(),
		IsPullRequest: is.IsPullRequest(),
		Comments:      is.GetComments(),
		CreatedAt:     is.GetCreatedAt().Time,
	}
	if is.ClosedAt != nil {
		closed := is.GetClosedAt().Time
		rec.ClosedAt = &closed
	}
	return rec
}
