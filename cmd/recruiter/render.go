package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ahmednasr/recruiter-bot/internal/models"
	"github.com/ahmednasr/recruiter-bot/internal/service"
)

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateHeader = true
	tw.Style().Options.DrawBorder = true
	return tw
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func checkFormat(format string) (asJSON bool, err error) {
	switch strings.ToLower(format) {
	case "", "table":
		return false, nil
	case "json":
		return true, nil
	default:
		return false, errors.Errorf("unsupported format: %s", format)
	}
}

func writeProfile(w io.Writer, p models.ProfileSummary, format string) error {
	asJSON, err := checkFormat(format)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(w, p)
	}

	tw := newTable(w)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignLeft, WidthMax: 80},
	})
	rows := []table.Row{
		{"Handle", p.Handle},
		{"Name", orDash(p.DisplayName)},
		{"Bio", orDash(p.Bio)},
		{"Company", orDash(p.Company)},
		{"Location", orDash(p.Location)},
		{"Blog", orDash(p.Blog)},
		{"Public repos", p.PublicRepos},
		{"Followers", p.Followers},
		{"Following", p.Following},
		{"Created", formatDay(p.CreatedAt)},
		{"Account age", fmt.Sprintf("%d days", int(p.AccountAge.Hours()/24))},
	}
	for _, r := range rows {
		tw.AppendRow(r)
	}
	_ = tw.Render()
	return nil
}

func writeRepositories(w io.Writer, repos []models.RepositorySummary, format string) error {
	asJSON, err := checkFormat(format)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(w, repos)
	}

	tw := newTable(w)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, WidthMax: 60},
	})
	tw.AppendHeader(table.Row{"#", "Name", "Language", "Stars", "Forks", "Pushed", "Score", "Description"})
	for i, r := range repos {
		name := r.Name
		if r.Fork {
			name += " (fork)"
		}
		tw.AppendRow(table.Row{i + 1, name, orDash(r.Language), r.Stars, r.Forks, formatDay(r.PushedAt), fmt.Sprintf("%.3f", r.Score), orDash(r.Description)})
	}
	if len(repos) == 0 {
		tw.AppendRow(table.Row{"-", "(no repositories)", "-", 0, 0, "-", "-", "-"})
	}
	_ = tw.Render()
	return nil
}

func writeTree(w io.Writer, tree models.FileTree, format string) error {
	asJSON, err := checkFormat(format)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(w, tree)
	}

	nodes := append([]models.FileTreeNode(nil), tree.Nodes...)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Path < nodes[j].Path })

	tw := newTable(w)
	tw.SetTitle(tree.Repo.String())
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
	tw.AppendHeader(table.Row{"Kind", "Path", "Size"})
	for _, n := range nodes {
		size := "-"
		if n.Kind == models.NodeFile {
			size = fmt.Sprint(n.Size)
		}
		tw.AppendRow(table.Row{n.Kind, n.Path, size})
	}
	if tree.Truncated {
		tw.AppendFooter(table.Row{"", fmt.Sprintf("truncated at %d entries", len(nodes)), ""})
	}
	_ = tw.Render()
	return nil
}

func writeSnippet(w io.Writer, s models.Snippet, format string) error {
	asJSON, err := checkFormat(format)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(w, s)
	}
	if s.Binary {
		_, err := fmt.Fprintf(w, "%s/%s: binary file, %d bytes\n", s.Repo, s.Path, s.Size)
		return err
	}
	_, err = fmt.Fprintf(w, "%s/%s (%d bytes)\n\n%s\n", s.Repo, s.Path, s.Size, s.Content)
	return err
}

func writeTools(w io.Writer, specs []service.ToolSpec, format string) error {
	asJSON, err := checkFormat(format)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(w, specs)
	}

	tw := newTable(w)
	tw.Style().Options.SeparateRows = true
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 3, WidthMax: 60}})
	tw.AppendHeader(table.Row{"Tool", "Parameters", "Description"})
	for _, s := range specs {
		tw.AppendRow(table.Row{s.Name, formatParams(s.Parameters), s.Description})
	}
	_ = tw.Render()
	return nil
}

// formatParams lists parameters sorted, required ones marked with '*'.
func formatParams(schema service.InputSchema) string {
	required := map[string]bool{}
	for _, r := range schema.Required {
		required[r] = true
	}
	names := make([]string, 0, len(schema.Properties))
	for n := range schema.Properties {
		names = append(names, n)
	}
	sort.Strings(names)

	lines := make([]string, len(names))
	for i, n := range names {
		mark := ""
		if required[n] {
			mark = "*"
		}
		lines[i] = fmt.Sprintf("%s%s: %s", n, mark, schema.Properties[n].Type)
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}
