package github

import (
	"strings"

	"github.com/go-faster/errors"

	"github.com/ahmednasr/recruiter-bot/internal/models"
)

// maxHandleLen is GitHub's limit on account names.
const maxHandleLen = 39

const surroundingPunct = " \t\r\n.,;:!?\"'`()[]{}<>"

var profilePrefixes = []string{
	"https://www.github.com/",
	"http://www.github.com/",
	"https://github.com/",
	"http://github.com/",
	"www.github.com/",
	"github.com/",
}

// fillerWords may sit between an analysis verb and the handle
// ("analyze the github user octocat").
var fillerWords = map[string]bool{
	"the": true, "a": true, "an": true, "this": true, "that": true,
	"user": true, "profile": true, "account": true, "github": true,
	"developer": true, "candidate": true, "engineer": true, "person": true,
	"of": true, "for": true, "me": true, "please": true, "my": true,
	"his": true, "her": true, "their": true, "on": true, "at": true,
}

// analysisVerbs introduce a bare handle in free text ("analyze octocat").
var analysisVerbs = map[string]bool{
	"analyze":     true,
	"analyse":     true,
	"check":       true,
	"review":      true,
	"investigate": true,
	"inspect":     true,
	"assess":      true,
	"evaluate":    true,
	"проаналізуй": true,
	"перевір":     true,
	"оціни":       true,
}

var errMissingOwner = errors.New("resolve repository: owner is required")

// ResolveHandle normalises a bare handle, an @mention or a profile URL into a
// canonical lowercase handle. A URL that points below the account (for
// example at a repository) fails with AmbiguousTarget and carries the
// recognised handle and repository name.
func ResolveHandle(text string) (models.Handle, error) {
	rest := stripLocator(text)
	rest = strings.TrimPrefix(rest, "@")
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return "", &ResolutionError{Kind: ResolutionEmpty, Input: text}
	}

	if owner, repo, found := strings.Cut(rest, "/"); found {
		if !validHandle(owner) {
			return "", &ResolutionError{Kind: ResolutionInvalidCharacters, Input: text}
		}
		repo, _, _ = strings.Cut(repo, "/")
		return "", &ResolutionError{
			Kind:       ResolutionAmbiguousTarget,
			Input:      text,
			Handle:     strings.ToLower(owner),
			Repository: repo,
		}
	}

	if !validHandle(rest) {
		return "", &ResolutionError{Kind: ResolutionInvalidCharacters, Input: text}
	}
	return models.Handle(strings.ToLower(rest)), nil
}

// ResolveRepository turns "owner/name", a repository URL or a bare name
// (with defaultOwner) into a RepoRef. Trailing path segments such as
// /tree/main are ignored.
func ResolveRepository(text string, defaultOwner models.Handle) (models.RepoRef, error) {
	rest := strings.Trim(stripLocator(text), "/")
	if rest == "" {
		return models.RepoRef{}, &ResolutionError{Kind: ResolutionEmpty, Input: text}
	}

	parts := strings.Split(rest, "/")
	var owner models.Handle
	var name string
	if len(parts) == 1 {
		if defaultOwner == "" {
			return models.RepoRef{}, errMissingOwner
		}
		owner, name = defaultOwner, parts[0]
	} else {
		if !validHandle(parts[0]) {
			return models.RepoRef{}, &ResolutionError{Kind: ResolutionInvalidCharacters, Input: text}
		}
		owner, name = models.Handle(strings.ToLower(parts[0])), parts[1]
	}

	name = strings.TrimSuffix(name, ".git")
	if !validRepoName(name) {
		return models.RepoRef{}, &ResolutionError{Kind: ResolutionInvalidCharacters, Input: text}
	}
	return models.RepoRef{Owner: owner, Name: name}, nil
}

// FindHandle looks for the GitHub account a free-text message is about.
// Profile URLs and @mentions win; otherwise the word after a leading
// analysis verb is tried.
func FindHandle(text string) (models.Handle, bool) {
	fields := strings.Fields(text)
	for _, f := range fields {
		lower := strings.ToLower(f)
		if !strings.Contains(lower, "github.com/") && !strings.HasPrefix(strings.Trim(f, surroundingPunct), "@") {
			continue
		}
		h, err := ResolveHandle(f)
		if err == nil {
			return h, true
		}
		var re *ResolutionError
		if errors.As(err, &re) && re.Kind == ResolutionAmbiguousTarget {
			return models.Handle(re.Handle), true
		}
	}

	for i := 0; i+1 < len(fields); i++ {
		if !analysisVerbs[strings.ToLower(strings.Trim(fields[i], surroundingPunct))] {
			continue
		}
		j := i + 1
		for j < len(fields) && fillerWords[strings.ToLower(strings.Trim(fields[j], surroundingPunct))] {
			j++
		}
		if j == len(fields) {
			break
		}
		if h, err := ResolveHandle(fields[j]); err == nil {
			return h, true
		}
	}
	return "", false
}

// stripLocator trims whitespace and punctuation, the github.com prefix in
// any of its URL forms, and a query string or fragment.
func stripLocator(text string) string {
	s := strings.Trim(text, surroundingPunct)
	lower := strings.ToLower(s)
	for _, p := range profilePrefixes {
		if strings.HasPrefix(lower, p) {
			s = s[len(p):]
			break
		}
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	return strings.Trim(s, surroundingPunct)
}

func validHandle(s string) bool {
	if s == "" || len(s) > maxHandleLen || s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}
	for _, r := range s {
		if !isAlnum(r) && r != '-' {
			return false
		}
	}
	return true
}

func validRepoName(s string) bool {
	if s == "" || s == "." || s == ".." || len(s) > 100 {
		return false
	}
	for _, r := range s {
		if !isAlnum(r) && r != '-' && r != '_' && r != '.' {
			return false
		}
	}
	return true
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
