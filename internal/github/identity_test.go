package github

import (
	"testing"

	"github.com/ahmednasr/recruiter-bot/internal/models"
)

func TestResolveHandle_URLFormsMatchBareHandle(t *testing.T) {
	bare, err := ResolveHandle("Octocat")
	if err != nil {
		t.Fatalf("bare handle: %v", err)
	}

	forms := []string{
		"octocat",
		"  octocat  ",
		"@octocat",
		"@Octocat,",
		"https://github.com/octocat",
		"https://github.com/octocat/",
		"http://github.com/octocat",
		"https://www.github.com/octocat",
		"github.com/octocat",
		"GitHub.com/OctoCat/",
		"https://github.com/octocat?tab=repositories",
		"(https://github.com/octocat).",
	}
	for _, f := range forms {
		t.Run(f, func(t *testing.T) {
			got, err := ResolveHandle(f)
			if err != nil {
				t.Fatalf("ResolveHandle(%q): %v", f, err)
			}
			if got != bare {
				t.Errorf("ResolveHandle(%q) = %q, want %q", f, got, bare)
			}
		})
	}
}

func TestResolveHandle_Failures(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  ResolutionKind
	}{
		{name: "empty", input: "", kind: ResolutionEmpty},
		{name: "blank", input: "   ", kind: ResolutionEmpty},
		{name: "bare prefix", input: "https://github.com/", kind: ResolutionEmpty},
		{name: "lone at", input: "@", kind: ResolutionEmpty},
		{name: "spaces inside", input: "analyze octocat", kind: ResolutionInvalidCharacters},
		{name: "underscore", input: "octo_cat", kind: ResolutionInvalidCharacters},
		{name: "leading hyphen", input: "-octocat", kind: ResolutionInvalidCharacters},
		{name: "too long", input: "a123456789012345678901234567890123456789", kind: ResolutionInvalidCharacters},
		{name: "repository url", input: "https://github.com/octocat/Hello-World", kind: ResolutionAmbiguousTarget},
		{name: "deep url", input: "github.com/octocat/Hello-World/tree/main", kind: ResolutionAmbiguousTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveHandle(tt.input)
			if err == nil {
				t.Fatalf("expected error for %q", tt.input)
			}
			if !IsResolution(err, tt.kind) {
				t.Errorf("ResolveHandle(%q) error = %v, want kind %s", tt.input, err, tt.kind)
			}
		})
	}
}

func TestResolveHandle_AmbiguousTargetKeepsParts(t *testing.T) {
	_, err := ResolveHandle("https://github.com/Octocat/Hello-World/blob/main/README")
	re, ok := err.(*ResolutionError)
	if !ok {
		t.Fatalf("expected *ResolutionError, got %T", err)
	}
	if re.Handle != "octocat" || re.Repository != "Hello-World" {
		t.Errorf("got handle=%q repo=%q", re.Handle, re.Repository)
	}
}

func TestResolveHandle_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		got, err := ResolveHandle("https://github.com/Torvalds")
		if err != nil || got != "torvalds" {
			t.Fatalf("run %d: got %q, %v", i, got, err)
		}
	}
}

func TestResolveRepository(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		owner   models.Handle
		want    models.RepoRef
		wantErr bool
	}{
		{name: "owner slash name", input: "Octocat/Hello-World", want: models.RepoRef{Owner: "octocat", Name: "Hello-World"}},
		{name: "url", input: "https://github.com/octocat/Hello-World", want: models.RepoRef{Owner: "octocat", Name: "Hello-World"}},
		{name: "url with tree path", input: "https://github.com/octocat/linguist/tree/main/lib", want: models.RepoRef{Owner: "octocat", Name: "linguist"}},
		{name: "git suffix and fragment", input: "github.com/octocat/spoon-knife.git#readme", want: models.RepoRef{Owner: "octocat", Name: "spoon-knife"}},
		{name: "bare name with owner", input: "Hello-World", owner: "octocat", want: models.RepoRef{Owner: "octocat", Name: "Hello-World"}},
		{name: "bare name without owner", input: "Hello-World", wantErr: true},
		{name: "empty", input: " ", owner: "octocat", wantErr: true},
		{name: "bad name", input: "octocat/hello world", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveRepository(tt.input, tt.owner)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFindHandle(t *testing.T) {
	tests := []struct {
		text string
		want models.Handle
		ok   bool
	}{
		{text: "analyze octocat", want: "octocat", ok: true},
		{text: "Analyze: torvalds please", want: "torvalds", ok: true},
		{text: "what about https://github.com/Torvalds?", want: "torvalds", ok: true},
		{text: "is @octocat good for a Senior Backend role?", want: "octocat", ok: true},
		{text: "look at github.com/octocat/Hello-World", want: "octocat", ok: true},
		{text: "analyze the user octocat", want: "octocat", ok: true},
		{text: "please check the GitHub profile of torvalds.", want: "torvalds", ok: true},
		{text: "review the candidate", ok: false},
		{text: "is this person good for a Senior Backend role?", ok: false},
		{text: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := FindHandle(tt.text)
			if ok != tt.ok || got != tt.want {
				t.Errorf("FindHandle(%q) = %q, %t; want %q, %t", tt.text, got, ok, tt.want, tt.ok)
			}
		})
	}
}
