package core

import (
	"fmt"
	"strings"

	"github.com/google/go-github/v73/github"
)

// PushEvent represents a simplified, internal view of a GitHub push webhook.
type PushEvent struct {
	RepoOwner      string
	RepoName       string
	RepoFullName   string
	Ref            string
	HeadSHA        string
	CommitCount    int
	InstallationID int64
}

// EventFromPush transforms a raw GitHub PushEvent into the internal PushEvent.
// Branch deletions and tag pushes are rejected since they carry no new commits
// worth scoring.
func EventFromPush(event *github.PushEvent) (*PushEvent, error) {
	if event.GetDeleted() {
		return nil, fmt.Errorf("push deletes %s", event.GetRef())
	}
	if !strings.HasPrefix(event.GetRef(), "refs/heads/") {
		return nil, fmt.Errorf("push is not to a branch: %s", event.GetRef())
	}

	repo := event.GetRepo()
	if repo == nil || repo.GetOwner() == nil || repo.GetOwner().GetLogin() == "" || repo.GetName() == "" {
		return nil, fmt.Errorf("repository or owner information is missing from the event")
	}

	if event.GetInstallation() == nil || event.GetInstallation().GetID() == 0 {
		return nil, fmt.Errorf("installation ID is missing from the event")
	}

	fullName := repo.GetFullName()
	if fullName == "" {
		fullName = repo.GetOwner().GetLogin() + "/" + repo.GetName()
	}

	return &PushEvent{
		RepoOwner:      repo.GetOwner().GetLogin(),
		RepoName:       repo.GetName(),
		RepoFullName:   fullName,
		Ref:            event.GetRef(),
		HeadSHA:        event.GetAfter(),
		CommitCount:    len(event.Commits),
		InstallationID: event.GetInstallation().GetID(),
	}, nil
}

// SyncJob builds the job that discovers the commits announced by the push.
func (e *PushEvent) SyncJob() *Job {
	return &Job{
		Kind:           KindSync,
		RepoFullName:   e.RepoFullName,
		InstallationID: e.InstallationID,
	}
}

// SplitRepoFullName splits "owner/name" into its two parts.
func SplitRepoFullName(fullName string) (owner, name string, err error) {
	parts := strings.Split(fullName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository full name: %q", fullName)
	}
	return parts[0], parts[1], nil
}
