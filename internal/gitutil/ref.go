// Package gitutil parses the ways people refer to GitHub repositories and
// commits on the command line.
package gitutil

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	repoURLRegex   = regexp.MustCompile(`^(?:https?://)?(?:www\.)?github\.com/([^/]+)/([^/]+)$`)
	sshURLRegex    = regexp.MustCompile(`^git@github\.com:([^/]+)/([^/]+)$`)
	commitURLRegex = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/commit/([0-9a-fA-F]{7,40})$`)
	shaRegex       = regexp.MustCompile(`^[0-9a-fA-F]{7,40}$`)
	nameRegex      = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// ParseRepoRef normalizes a repository reference to its "owner/repo" full
// name. Supported forms:
//
//	owner/repo
//	https://github.com/owner/repo(.git)
//	git@github.com:owner/repo.git
func ParseRepoRef(ref string) (string, error) {
	ref = strings.TrimSuffix(strings.TrimSpace(ref), "/")
	ref = strings.TrimSuffix(ref, ".git")

	var owner, repo string
	if m := repoURLRegex.FindStringSubmatch(ref); m != nil {
		owner, repo = m[1], m[2]
	} else if m := sshURLRegex.FindStringSubmatch(ref); m != nil {
		owner, repo = m[1], m[2]
	} else if parts := strings.Split(ref, "/"); len(parts) == 2 {
		owner, repo = parts[0], parts[1]
	} else {
		return "", fmt.Errorf("invalid repository reference: %s", ref)
	}

	if !nameRegex.MatchString(owner) || !nameRegex.MatchString(repo) {
		return "", fmt.Errorf("invalid repository reference: %s", ref)
	}
	return owner + "/" + repo, nil
}

// ParseCommitRef extracts the repository and SHA from a commit URL
// (https://github.com/{owner}/{repo}/commit/{sha}) or from "owner/repo@sha".
// The SHA is returned lower-cased.
func ParseCommitRef(ref string) (repoFullName, sha string, err error) {
	ref = strings.TrimSuffix(strings.TrimSpace(ref), "/")

	if m := commitURLRegex.FindStringSubmatch(ref); m != nil {
		return m[1] + "/" + m[2], strings.ToLower(m[3]), nil
	}

	repoPart, shaPart, ok := strings.Cut(ref, "@")
	if !ok || !shaRegex.MatchString(shaPart) {
		return "", "", fmt.Errorf("invalid commit reference: %s", ref)
	}
	repoFullName, err = ParseRepoRef(repoPart)
	if err != nil {
		return "", "", fmt.Errorf("invalid commit reference: %s", ref)
	}
	return repoFullName, strings.ToLower(shaPart), nil
}
