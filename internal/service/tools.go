package service

import (
	"fmt"

	"github.com/ahmednasr/recruiter-bot/internal/github"
)

// Schemas of the tool catalog. Changing a name or a required parameter
// breaks the engine's function calling.

func profileSpec() ToolSpec {
	return ToolSpec{
		Name:        ToolGetProfile,
		Description: "Get a GitHub user's public profile plus an overview of their most active repositories (languages, total stars).",
		Parameters: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"username": {Type: "string", Description: "GitHub username, @mention or profile URL"},
			},
			Required: []string{"username"},
		},
	}
}

func listRepositoriesSpec(l github.Limits) ToolSpec {
	return ToolSpec{
		Name:        ToolListRepositories,
		Description: "List a user's public repositories ranked by recent activity, then stars, then forks.",
		Parameters: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"username":  {Type: "string", Description: "GitHub username"},
				"max_count": {Type: "integer", Description: fmt.Sprintf("How many repositories to return (1-%d, default %d)", l.MaxRepos, min(defaultRepoCount, l.MaxRepos))},
			},
			Required: []string{"username"},
		},
	}
}

func fileTreeSpec(l github.Limits) ToolSpec {
	return ToolSpec{
		Name:        ToolGetFileTree,
		Description: "List files and directories of a repository breadth first, bounded by depth and entry count.",
		Parameters: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"repository":  {Type: "string", Description: "owner/name, a repository URL, or just the name when username is given"},
				"username":    {Type: "string", Description: "Repository owner when repository is a bare name"},
				"max_depth":   {Type: "integer", Description: fmt.Sprintf("Directory levels below the root to include (0-%d)", l.TreeMaxDepth)},
				"max_entries": {Type: "integer", Description: fmt.Sprintf("Maximum nodes to return (1-%d)", l.TreeMaxEntries)},
			},
			Required: []string{"repository"},
		},
	}
}

func fileSnippetSpec(l github.Limits) ToolSpec {
	return ToolSpec{
		Name:        ToolGetFileSnippet,
		Description: "Read the beginning of one file in a repository, such as README.md or a source file.",
		Parameters: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"repository": {Type: "string", Description: "owner/name, a repository URL, or just the name when username is given"},
				"path":       {Type: "string", Description: "File path inside the repository"},
				"username":   {Type: "string", Description: "Repository owner when repository is a bare name"},
				"max_chars":  {Type: "integer", Description: fmt.Sprintf("Maximum characters of content (1-%d)", l.SnippetMaxChars)},
			},
			Required: []string{"repository", "path"},
		},
	}
}

func inspectSpec(l github.Limits) ToolSpec {
	return ToolSpec{
		Name:        ToolInspectRepository,
		Description: "Sample several source files of a repository to judge code quality and structure.",
		Parameters: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"repository":  {Type: "string", Description: "owner/name, a repository URL, or just the name when username is given"},
				"username":    {Type: "string", Description: "Repository owner when repository is a bare name"},
				"max_files":   {Type: "integer", Description: "How many files to sample (1-30, default 10)"},
				"max_chars":   {Type: "integer", Description: fmt.Sprintf("Characters per file (%d-%d, default %d)", minInspectChars, l.SnippetMaxChars, min(defaultInspectChars, l.SnippetMaxChars))},
				"path_filter": {Type: "string", Description: "Only sample files whose path contains this text"},
			},
			Required: []string{"repository"},
		},
	}
}
