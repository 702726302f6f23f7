// Package gitrepo wraps the git operations used during a release run.
package gitrepo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/klog/v2"

	"github.com/git-pkgs/autorelease/internal/run"
)

// Repo is a local git checkout.
type Repo struct {
	dir string
}

// Open returns a Repo for the given directory, or the current directory
// if dir is empty.
//
// This fails fast when the directory has no .git entry. It is a cheap
// sanity check, not a full validation; special checkout layouts exist,
// but a typical CI checkout has .git at the root.
func Open(dir string) (*Repo, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting current dir: %w", err)
		}
		dir = cwd
	}

	gitDir := filepath.Join(dir, ".git")
	if _, err := os.Stat(gitDir); err != nil {
		return nil, fmt.Errorf("%s does not exist: not a git repository", gitDir)
	}

	return &Repo{dir: dir}, nil
}

// Dir returns the repository path.
func (r *Repo) Dir() string {
	return r.dir
}

func (r *Repo) gitArgs(args ...string) []string {
	return append([]string{"-C", r.dir}, args...)
}

// FetchTags fetches all tags from the remote. The orchestrator calls
// this once per run so later tag checks can stay local.
func (r *Repo) FetchTags(ctx context.Context) error {
	return run.Run(ctx, "git", r.gitArgs("fetch", "--tags")...)
}

// TagExists checks if the tag exists locally. All remote tags were
// fetched at the start of the run, so a local check is sufficient.
func (r *Repo) TagExists(ctx context.Context, tag string) (bool, error) {
	out, err := run.OutputString(ctx, "git", r.gitArgs("tag", "--list", tag)...)
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(out, "\n") {
		if line == tag {
			return true, nil
		}
	}
	return false, nil
}

// CreateAndPushTag creates a tag pointing at the given commit and
// pushes it to the remote.
func (r *Repo) CreateAndPushTag(ctx context.Context, tag, commitSHA string) error {
	if err := run.Run(ctx, "git", r.gitArgs("tag", tag, commitSHA)...); err != nil {
		return err
	}
	if err := run.Run(ctx, "git", r.gitArgs("push", "--tags")...); err != nil {
		return err
	}
	klog.Infof("created and pushed tag %s at %s", tag, commitSHA)
	return nil
}

// CommitSubject returns the subject line of the commit message.
func (r *Repo) CommitSubject(ctx context.Context, commitSHA string) (string, error) {
	return run.OutputString(ctx, "git", r.gitArgs("log", "-1", "--format=format:%s", commitSHA)...)
}

// CommitBody returns the body of the commit message, without the
// subject line.
func (r *Repo) CommitBody(ctx context.Context, commitSHA string) (string, error) {
	return run.OutputString(ctx, "git", r.gitArgs("log", "-1", "--format=format:%b", commitSHA)...)
}
