// internal/model/models.go
package model

import (
	"strings"
	"time"

	custom_errors "repolens/internal/errors"
)

// Repository represents the metadata of a GitHub repository.
type Repository struct {
	GithubRepoID    int64      `json:"github_repo_id"`
	Owner           string     `json:"owner"`
	Name            string     `json:"name"`
	FullName        string     `json:"full_name"`
	Description     *string    `json:"description"`
	URL             string     `json:"url"`
	Language        *string    `json:"language"`
	License         string     `json:"license,omitempty"`
	Topics          []string   `json:"topics,omitempty"`
	DefaultBranch   string     `json:"default_branch"`
	ForksCount      int        `json:"forks_count"`
	StarsCount      int        `json:"stars_count"`
	OpenIssuesCount int        `json:"open_issues_count"`
	WatchersCount   int        `json:"watchers_count"`
	Archived        bool       `json:"archived"`
	Fork            bool       `json:"fork"`
	RepoCreatedAt   time.Time  `json:"created_at"`
	RepoUpdatedAt   time.Time  `json:"updated_at"`
	RepoPushedAt    *time.Time `json:"pushed_at"`
}

// Release is one published (or draft) release with its downloadable assets.
type Release struct {
	TagName     string         `json:"tag_name"`
	Name        string         `json:"name"`
	Draft       bool           `json:"draft"`
	Prerelease  bool           `json:"prerelease"`
	PublishedAt *time.Time     `json:"published_at"`
	Assets      []ReleaseAsset `json:"assets"`
}

// ReleaseAsset is a single downloadable file attached to a release.
type ReleaseAsset struct {
	Name          string `json:"name"`
	Size          int    `json:"size"`
	DownloadCount int    `json:"download_count"`
	ContentType   string `json:"content_type"`
}

// StarEvent is one stargazer record. StarredAt is nil when the listing was
// fetched without the star-timestamp media type; that distinction is resolved
// once at the fetch boundary and never re-inspected downstream.
type StarEvent struct {
	Login     string     `json:"login"`
	StarredAt *time.Time `json:"starred_at"`
}

// UserProfile is the full profile of a GitHub account.
type UserProfile struct {
	Login          string    `json:"login"`
	Name           string    `json:"name,omitempty"`
	Company        string    `json:"company,omitempty"`
	Location       string    `json:"location,omitempty"`
	Followers      int       `json:"followers"`
	Following      int       `json:"following"`
	PublicRepos    int       `json:"public_repos"`
	AccountCreated time.Time `json:"account_created"`
	URL            string    `json:"url,omitempty"`
}

// Contributor is a lightweight contributor record from the contributors listing.
type Contributor struct {
	Login         string `json:"login"`
	Contributions int    `json:"contributions"`
}

// IssueRecord is one issue or pull request from the issues listing.
type IssueRecord struct {
	Number        int        `json:"number"`
	State         string     `json:"state"`
	IsPullRequest bool       `json:"is_pull_request"`
	Comments      int        `json:"comments"`
	CreatedAt     time.Time  `json:"created_at"`
	ClosedAt      *time.Time `json:"closed_at"`
}

// Referrer is one traffic-referrer row; requires elevated repo access to fetch.
type Referrer struct {
	Referrer string `json:"referrer"`
	Count    int    `json:"count"`
	Uniques  int    `json:"uniques"`
}

// WeekActivity is one week of commit activity.
type WeekActivity struct {
	WeekStart time.Time `json:"week_start"`
	Total     int       `json:"total"`
}

// SearchItem is one repository row from full-text repository search.
type SearchItem struct {
	FullName    string  `json:"full_name"`
	Description *string `json:"description"`
	Language    *string `json:"language"`
	Stars       int     `json:"stars"`
	Forks       int     `json:"forks"`
	URL         string  `json:"url"`
}

// ParseRepository splits an 'owner/name' identifier into its parts.
func ParseRepository(repo string) (owner, name string, err error) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &custom_errors.ErrInvalidRepoFormat{Repo: repo}
	}
	return parts[0], parts[1], nil
}
