package github

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
)

// fakeGitHub serves the slice of the REST API the aggregator uses.
type fakeGitHub struct {
	users map[string]apiUser
	repos map[string][]apiRepo
	files map[string]map[string]string // "owner/name" -> path -> content
	sizes map[string]int64             // "owner/name/path" -> reported size override
	hits  atomic.Int32
	// rateHeaders, when set, are attached to every response.
	rateHeaders map[string]string
}

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{
		users: map[string]apiUser{},
		repos: map[string][]apiRepo{},
		files: map[string]map[string]string{},
		sizes: map[string]int64{},
	}
}

func (f *fakeGitHub) start(t *testing.T) (*httptest.Server, *Aggregator) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, "", NewQuota())
	return srv, NewAggregator(client, Limits{})
}

func (f *fakeGitHub) serve(w http.ResponseWriter, r *http.Request) {
	f.hits.Add(1)
	for k, v := range f.rateHeaders {
		w.Header().Set(k, v)
	}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case len(parts) == 2 && parts[0] == "users":
		u, ok := f.users[parts[1]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, u)
	case len(parts) == 3 && parts[0] == "users" && parts[2] == "repos":
		repos := f.repos[parts[1]]
		if r.URL.Query().Get("page") != "1" {
			repos = nil
		}
		writeJSON(w, repos)
	case len(parts) >= 4 && parts[0] == "repos" && parts[3] == "contents":
		f.serveContents(w, r, parts[1]+"/"+parts[2], strings.Join(parts[4:], "/"))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeGitHub) serveContents(w http.ResponseWriter, r *http.Request, repo, p string) {
	files, ok := f.files[repo]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if content, ok := files[p]; ok {
		size := int64(len(content))
		if s, ok := f.sizes[repo+"/"+p]; ok {
			size = s
		}
		writeJSON(w, apiContent{
			Type:     "file",
			Path:     p,
			Size:     size,
			Encoding: "base64",
			Content:  base64.StdEncoding.EncodeToString([]byte(content)),
		})
		return
	}

	prefix := ""
	if p != "" {
		prefix = p + "/"
	}
	children := map[string]apiContent{}
	for fp, content := range files {
		if !strings.HasPrefix(fp, prefix) {
			continue
		}
		rest := strings.TrimPrefix(fp, prefix)
		name, _, nested := strings.Cut(rest, "/")
		if nested {
			children[name] = apiContent{Type: "dir", Path: prefix + name}
		} else {
			children[name] = apiContent{Type: "file", Path: fp, Size: int64(len(content))}
		}
	}
	if len(children) == 0 {
		http.NotFound(w, r)
		return
	}
	names := make([]string, 0, len(children))
	for n := range children {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]apiContent, 0, len(names))
	for _, n := range names {
		out = append(out, children[n])
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
