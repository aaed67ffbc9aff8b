package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/ahmednasr/recruiter-bot/internal/models"
	"github.com/ahmednasr/recruiter-bot/internal/telemetry"
)

// DefaultBaseURL is the public GitHub REST endpoint.
const DefaultBaseURL = "https://api.github.com"

const (
	apiVersion = "2022-11-28"
	perPage    = 100
	// maxBodyBytes caps any single response body we decode.
	maxBodyBytes = 8 << 20
)

// Client is a minimal wrapper around GitHub's REST API v3.
// It covers only the endpoints the aggregator requires.
// All requests draw from a shared Quota.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	quota   *Quota
}

// NewClient returns a ready-to-use GitHub API client.
// token may be an empty string, but you will be subject to very low rate‑limits.
func NewClient(baseURL, token string, quota *Quota) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if quota == nil {
		quota = NewQuota()
	}
	return &Client{
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		quota:   quota,
	}
}

// Quota exposes the shared rate-limit state.
func (c *Client) Quota() *Quota { return c.quota }

// apiUser is the subset of GET /users/{username} we read.
type apiUser struct {
	Login       string    `json:"login"`
	Name        string    `json:"name"`
	Bio         string    `json:"bio"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Blog        string    `json:"blog"`
	HTMLURL     string    `json:"html_url"`
	PublicRepos int       `json:"public_repos"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	CreatedAt   time.Time `json:"created_at"`
}

// apiRepo is the subset of a repository listing entry we read.
type apiRepo struct {
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	Stars       int       `json:"stargazers_count"`
	Forks       int       `json:"forks_count"`
	Fork        bool      `json:"fork"`
	PushedAt    time.Time `json:"pushed_at"`
}

// apiContent is one entry of GET /repos/{owner}/{repo}/contents/{path}.
type apiContent struct {
	Type     string `json:"type"` // file | dir | symlink | submodule
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// GetUser fetches a single account profile.
func (c *Client) GetUser(ctx context.Context, handle models.Handle) (apiUser, error) {
	var u apiUser
	_, err := c.get(ctx, "/users/"+url.PathEscape(string(handle)), nil, &u)
	return u, err
}

// ListUserRepos pages through the account's repositories, most recently
// pushed first, until limit entries are collected or the listing ends.
func (c *Client) ListUserRepos(ctx context.Context, handle models.Handle, limit int) ([]apiRepo, error) {
	var out []apiRepo
	for page := 1; len(out) < limit; page++ {
		q := url.Values{}
		q.Set("type", "owner")
		q.Set("sort", "pushed")
		q.Set("direction", "desc")
		q.Set("per_page", strconv.Itoa(perPage))
		q.Set("page", strconv.Itoa(page))

		var batch []apiRepo
		h, err := c.get(ctx, "/users/"+url.PathEscape(string(handle))+"/repos", q, &batch)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
		if len(batch) < perPage || !hasNextPage(h.Get("Link")) {
			break
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetContents returns either a directory listing (dir=true) or a single
// file entry for path. The empty path is the repository root.
func (c *Client) GetContents(ctx context.Context, ref models.RepoRef, path string) (entries []apiContent, file apiContent, dir bool, err error) {
	p := fmt.Sprintf("/repos/%s/%s/contents/%s",
		url.PathEscape(string(ref.Owner)), url.PathEscape(ref.Name), escapePath(path))

	var raw json.RawMessage
	if _, err = c.get(ctx, p, nil, &raw); err != nil {
		return nil, apiContent{}, false, err
	}
	if b := bytes.TrimSpace(raw); len(b) > 0 && b[0] == '[' {
		if err = json.Unmarshal(b, &entries); err != nil {
			return nil, apiContent{}, false, errors.Wrap(err, "decode directory listing")
		}
		return entries, apiContent{}, true, nil
	}
	if err = json.Unmarshal(raw, &file); err != nil {
		return nil, apiContent{}, false, errors.Wrap(err, "decode file entry")
	}
	return nil, file, false, nil
}

// get builds a GET request against the API and decodes JSON into v.
func (c *Client) get(ctx context.Context, path string, q url.Values, v any) (http.Header, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	c.addHeaders(req)
	return c.do(req, v)
}

// addHeaders sets authentication and Accept headers.
func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("User-Agent", "recruiter-bot")
}

// do reserves quota, executes the HTTP request and decodes JSON into v,
// mapping upstream statuses onto the package's sentinel errors.
func (c *Client) do(req *http.Request, v any) (http.Header, error) {
	if err := c.quota.Reserve(); err != nil {
		telemetry.RecordRateLimited(req.Context())
		log.Printf("[GitHub Client] quota exhausted, rejecting %s without a request", req.URL.Path)
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrapf(ErrUpstreamUnavailable, "GET %s: %v", req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.quota.Update(resp.Header)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return resp.Header, errors.Wrapf(ErrNotFound, "GET %s", req.URL.Path)
	case isRateLimitResponse(resp):
		c.quota.Exhaust(resetTime(resp.Header))
		telemetry.RecordRateLimited(req.Context())
		return resp.Header, errors.Wrapf(ErrRateLimited, "GET %s: %s", req.URL.Path, resp.Status)
	case resp.StatusCode >= 300:
		return resp.Header, errors.Wrapf(ErrUpstreamUnavailable, "GET %s: unexpected status %s", req.URL.Path, resp.Status)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(v); err != nil {
		return resp.Header, errors.Wrapf(ErrUpstreamUnavailable, "decode %s: %v", req.URL.Path, err)
	}
	return resp.Header, nil
}

func isRateLimitResponse(resp *http.Response) bool {
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.StatusCode == http.StatusForbidden &&
		(resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.Header.Get("Retry-After") != "")
}

func resetTime(h http.Header) time.Time {
	if secs, err := strconv.Atoi(h.Get("Retry-After")); err == nil {
		return time.Now().Add(time.Duration(secs) * time.Second)
	}
	if unix, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		return time.Unix(unix, 0)
	}
	return time.Now().Add(time.Minute)
}

func hasNextPage(link string) bool {
	return strings.Contains(link, `rel="next"`)
}

func escapePath(p string) string {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
