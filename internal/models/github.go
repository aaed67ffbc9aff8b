package models

import "time"

// Handle is a canonical, lowercase GitHub account name.
type Handle string

func (h Handle) String() string { return string(h) }

// RepoRef identifies a repository as owner/name.
type RepoRef struct {
	Owner Handle `json:"owner"`
	Name  string `json:"name"`
}

func (r RepoRef) String() string { return string(r.Owner) + "/" + r.Name }

// ProfileSummary is a snapshot of a GitHub account taken once per request.
type ProfileSummary struct {
	Handle      Handle        `json:"handle"`
	DisplayName string        `json:"display_name"`
	Bio         string        `json:"bio"`
	Company     string        `json:"company,omitempty"`
	Location    string        `json:"location,omitempty"`
	Blog        string        `json:"blog,omitempty"`
	ProfileURL  string        `json:"profile_url"`
	PublicRepos int           `json:"public_repos"`
	Followers   int           `json:"followers"`
	Following   int           `json:"following"`
	CreatedAt   time.Time     `json:"created_at"`
	AccountAge  time.Duration `json:"account_age"`
}

// RepositorySummary is the compact view of one repository.
type RepositorySummary struct {
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Language    string    `json:"language"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	PushedAt    time.Time `json:"pushed_at"`
	Description string    `json:"description"`
	Fork        bool      `json:"fork"`
	Score       float64   `json:"score"` // ranking score, higher first
}

// NodeKind distinguishes files from directories in a FileTreeNode.
type NodeKind string

const (
	NodeFile NodeKind = "file"
	NodeDir  NodeKind = "dir"
)

// FileTreeNode is one entry of a depth-bounded repository tree.
type FileTreeNode struct {
	Path  string   `json:"path"`
	Kind  NodeKind `json:"kind"`
	Size  int64    `json:"size"`
	Depth int      `json:"depth"` // number of '/' separators in Path
}

// FileTree is the bounded result of a breadth-first tree walk.
type FileTree struct {
	Repo      RepoRef        `json:"repo"`
	Nodes     []FileTreeNode `json:"nodes"`
	Truncated bool           `json:"truncated"` // maxEntries stopped the walk
}

// Snippet is the truncated text content of a single file.
type Snippet struct {
	Repo      RepoRef `json:"repo"`
	Path      string  `json:"path"`
	Size      int64   `json:"size"`
	Content   string  `json:"content"`
	Truncated bool    `json:"truncated"`
	Binary    bool    `json:"binary"`
}

// Inspection is a sampled set of source snippets from one repository.
type Inspection struct {
	Repo     RepoRef   `json:"repo"`
	Snippets []Snippet `json:"snippets"`
	Visited  int       `json:"visited"` // tree nodes examined
}
