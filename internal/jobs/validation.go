package jobs

import (
	"fmt"
	"strings"

	"github.com/sevigo/code-pulse/internal/core"
)

// validateJob ensures the job carries what its stage needs.
func validateJob(job *core.Job, needSHA bool) (owner, repo string, err error) {
	if job == nil {
		return "", "", fmt.Errorf("job cannot be nil")
	}
	owner, repo, err = core.SplitRepoFullName(job.RepoFullName)
	if err != nil {
		return "", "", err
	}
	if needSHA && job.CommitSHA == "" {
		return "", "", fmt.Errorf("job %s has no commit SHA", job.ID)
	}
	return owner, repo, nil
}

// BuildDiff concatenates the patches of a commit into one unified diff,
// stopping before maxBytes is exceeded. Files without a patch (binaries,
// oversized files) are listed by name only. A non-positive maxBytes means no
// limit.
func BuildDiff(files []core.ChangedFile, maxBytes int) (string, bool) {
	var b strings.Builder
	truncated := false

	for _, f := range files {
		var section string
		if f.Patch == "" {
			section = fmt.Sprintf("--- %s (no textual diff)\n", f.Filename)
		} else {
			section = fmt.Sprintf("--- a/%s\n+++ b/%s\n%s\n", f.Filename, f.Filename, strings.TrimRight(f.Patch, "\n"))
		}

		if maxBytes > 0 && b.Len()+len(section) > maxBytes {
			truncated = true
			fmt.Fprintf(&b, "... diff truncated, %s and later files omitted\n", f.Filename)
			break
		}
		b.WriteString(section)
	}
	return b.String(), truncated
}
