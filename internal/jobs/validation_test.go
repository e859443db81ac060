package jobs

import (
	"strings"
	"testing"

	"github.com/sevigo/code-pulse/internal/core"
)

func TestValidateJob(t *testing.T) {
	tests := []struct {
		name    string
		job     *core.Job
		needSHA bool
		wantErr bool
	}{
		{name: "Nil job", job: nil, wantErr: true},
		{name: "Valid sync job", job: &core.Job{RepoFullName: "acme/api"}, wantErr: false},
		{name: "Malformed repository", job: &core.Job{RepoFullName: "acme"}, wantErr: true},
		{name: "Missing SHA", job: &core.Job{RepoFullName: "acme/api"}, needSHA: true, wantErr: true},
		{name: "Valid commit job", job: &core.Job{RepoFullName: "acme/api", CommitSHA: "abc"}, needSHA: true, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := validateJob(tt.job, tt.needSHA)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateJob() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (owner != "acme" || repo != "api") {
				t.Errorf("validateJob() = %q, %q, want acme, api", owner, repo)
			}
		})
	}
}

func TestBuildDiff(t *testing.T) {
	files := []core.ChangedFile{
		{Filename: "main.go", Patch: "@@ -1 +1 @@\n-a\n+b\n"},
		{Filename: "logo.png"},
		{Filename: "pkg/util.go", Patch: "@@ -1 +1,2 @@\n a\n+c"},
	}

	tests := []struct {
		name          string
		maxBytes      int
		wantTruncated bool
		wantContains  []string
		wantMissing   []string
	}{
		{
			name:         "Unlimited",
			maxBytes:     0,
			wantContains: []string{"+++ b/main.go", "logo.png (no textual diff)", "+++ b/pkg/util.go", "+c"},
		},
		{
			name:          "Truncated after first file",
			maxBytes:      60,
			wantTruncated: true,
			wantContains:  []string{"+++ b/main.go", "diff truncated, logo.png and later files omitted"},
			wantMissing:   []string{"pkg/util.go"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff, truncated := BuildDiff(files, tt.maxBytes)
			if truncated != tt.wantTruncated {
				t.Errorf("BuildDiff() truncated = %v, want %v", truncated, tt.wantTruncated)
			}
			for _, s := range tt.wantContains {
				if !strings.Contains(diff, s) {
					t.Errorf("BuildDiff() missing %q in:\n%s", s, diff)
				}
			}
			for _, s := range tt.wantMissing {
				if strings.Contains(diff, s) {
					t.Errorf("BuildDiff() unexpectedly contains %q in:\n%s", s, diff)
				}
			}
		})
	}
}
