// Package github creates release announcements through the gh CLI.
//
// The gh tool is already installed and authenticated inside a GitHub
// Actions workflow, so no API client or token plumbing is needed here.
package github

import (
	"context"
	"errors"

	"k8s.io/klog/v2"

	"github.com/git-pkgs/autorelease/internal/run"
)

// Gh wraps the gh executable.
type Gh struct {
	exe string
}

// New returns a Gh using the gh binary from PATH.
func New() *Gh {
	return &Gh{exe: "gh"}
}

// NewWithExe returns a Gh using the given executable.
func NewWithExe(exe string) *Gh {
	return &Gh{exe: exe}
}

// ReleaseOpts are the inputs for creating a GitHub release.
type ReleaseOpts struct {
	// Tag to create the release for. The tag must already exist.
	Tag string

	// Release title. Optional.
	Title string

	// Release notes. Optional.
	Notes string

	// Files to upload and attach to the release.
	Files []string
}

// CreateRelease creates a new release for an existing tag.
func (g *Gh) CreateRelease(ctx context.Context, opt ReleaseOpts) error {
	args := []string{
		"release",
		"create",
		// Abort if the tag does not exist.
		"--verify-tag",
	}

	if opt.Title != "" {
		args = append(args, "--title", opt.Title)
	}
	if opt.Notes != "" {
		args = append(args, "--notes", opt.Notes)
	}

	args = append(args, opt.Tag)
	args = append(args, opt.Files...)

	if err := run.Run(ctx, g.exe, args...); err != nil {
		return err
	}
	klog.Infof("created release for tag %s", opt.Tag)
	return nil
}

// ReleaseExists checks if a release for the given tag exists.
func (g *Gh) ReleaseExists(ctx context.Context, tag string) (bool, error) {
	err := run.Run(ctx, g.exe, "release", "view", tag)
	if err == nil {
		return true, nil
	}

	// gh exits with code 1 when the release is missing. Other failures
	// (launch errors, auth problems) stay errors.
	var cmdErr *run.CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode == 1 {
		return false, nil
	}
	return false, err
}
