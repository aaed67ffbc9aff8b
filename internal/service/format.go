package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ahmednasr/recruiter-bot/internal/models"
)

// Tool results are plain text: compact, line-oriented, stable for a fixed
// aggregator result.

func formatProfile(p models.ProfileSummary, repos []models.RepositorySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Profile: %s\n", p.Handle)
	if p.DisplayName != "" {
		fmt.Fprintf(&b, "Name: %s\n", p.DisplayName)
	}
	if p.Bio != "" {
		fmt.Fprintf(&b, "Bio: %s\n", p.Bio)
	}
	if p.Company != "" {
		fmt.Fprintf(&b, "Company: %s\n", p.Company)
	}
	if p.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", p.Location)
	}
	if p.Blog != "" {
		fmt.Fprintf(&b, "Blog: %s\n", p.Blog)
	}
	if p.ProfileURL != "" {
		fmt.Fprintf(&b, "URL: %s\n", p.ProfileURL)
	}
	fmt.Fprintf(&b, "Public repositories: %d\n", p.PublicRepos)
	fmt.Fprintf(&b, "Followers: %d, following: %d\n", p.Followers, p.Following)
	if !p.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Account created: %s (%s)\n", p.CreatedAt.Format("2006-01-02"), formatAge(p.AccountAge))
	}

	if len(repos) == 0 {
		b.WriteString("Portfolio: no public repositories\n")
		return b.String()
	}
	stars, forks := 0, 0
	langs := map[string]int{}
	for _, r := range repos {
		stars += r.Stars
		if r.Fork {
			forks++
		}
		if r.Language != "" {
			langs[r.Language]++
		}
	}
	fmt.Fprintf(&b, "Portfolio (top %d by activity): %d stars total, %d forks of other projects\n",
		len(repos), stars, forks)
	if len(langs) > 0 {
		fmt.Fprintf(&b, "Languages: %s\n", formatLanguages(langs))
	}
	return b.String()
}

// formatLanguages orders by count desc, then name.
func formatLanguages(langs map[string]int) string {
	names := make([]string, 0, len(langs))
	for l := range langs {
		names = append(names, l)
	}
	sort.Slice(names, func(i, j int) bool {
		if langs[names[i]] != langs[names[j]] {
			return langs[names[i]] > langs[names[j]]
		}
		return names[i] < names[j]
	})
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s (%d)", n, langs[n])
	}
	return strings.Join(parts, ", ")
}

func formatAge(d time.Duration) string {
	days := int(d.Hours() / 24)
	switch {
	case days >= 365:
		return fmt.Sprintf("%.1f years", float64(days)/365)
	case days >= 30:
		return fmt.Sprintf("%d months", days/30)
	default:
		return fmt.Sprintf("%d days", days)
	}
}

func formatRepositories(h models.Handle, repos []models.RepositorySummary) string {
	if len(repos) == 0 {
		return fmt.Sprintf("%s has no public repositories", h)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Repositories of %s (%d, most active first):\n", h, len(repos))
	for i, r := range repos {
		lang := r.Language
		if lang == "" {
			lang = "n/a"
		}
		fmt.Fprintf(&b, "%d. %s [%s] stars=%d forks=%d pushed=%s", i+1, r.Name, lang, r.Stars, r.Forks, formatDate(r.PushedAt))
		if r.Fork {
			b.WriteString(" (fork)")
		}
		if r.Description != "" {
			fmt.Fprintf(&b, " - %s", r.Description)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("2006-01-02")
}

func formatTree(tree models.FileTree, depth, entries int) string {
	if len(tree.Nodes) == 0 {
		return fmt.Sprintf("%s is empty", tree.Repo)
	}
	nodes := append([]models.FileTreeNode(nil), tree.Nodes...)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Path < nodes[j].Path })

	var b strings.Builder
	fmt.Fprintf(&b, "File tree of %s (depth <= %d, %d entries):\n", tree.Repo, depth, len(nodes))
	for _, n := range nodes {
		if n.Kind == models.NodeDir {
			fmt.Fprintf(&b, "[D] %s/\n", n.Path)
			continue
		}
		fmt.Fprintf(&b, "[F] %s (%d bytes)\n", n.Path, n.Size)
	}
	if tree.Truncated {
		fmt.Fprintf(&b, "(listing stopped at %d entries)\n", entries)
	}
	return b.String()
}

func formatSnippet(s models.Snippet) string {
	if s.Binary {
		return fmt.Sprintf("%s/%s is a binary file (%d bytes); content not shown", s.Repo, s.Path, s.Size)
	}
	return fmt.Sprintf("File %s/%s (%d bytes):\n%s", s.Repo, s.Path, s.Size, s.Content)
}

func formatInspection(ins models.Inspection) string {
	if len(ins.Snippets) == 0 {
		return fmt.Sprintf("No readable source files found in %s (%d entries examined)", ins.Repo, ins.Visited)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Sampled %d source files from %s (%d entries examined):\n", len(ins.Snippets), ins.Repo, ins.Visited)
	for _, s := range ins.Snippets {
		fmt.Fprintf(&b, "\n--- %s (%d bytes) ---\n%s\n", s.Path, s.Size, s.Content)
	}
	return b.String()
}
