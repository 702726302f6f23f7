// Package autorelease promotes workspace packages to their released
// state: a published registry version and a pushed git tag.
//
// Each promotion is guarded by a remote-state check (the registry's
// sparse index for published versions, the fetched tag list for tags),
// so a release run is idempotent and safe to re-trigger after a
// partial failure.
//
// Basic usage:
//
//	import (
//		"context"
//		"github.com/git-pkgs/autorelease"
//	)
//
//	pkgs := []autorelease.Package{autorelease.NewPackage("release-utils")}
//	outcomes, err := autorelease.Release(context.Background(), commitSHA, "", pkgs)
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, o := range outcomes {
//		fmt.Println(o.Package, o.Version, o.Published, o.Tagged)
//	}
//
// The packages are processed strictly in the given order; when they
// depend on one another, list a dependency before its dependents.
package autorelease

import (
	"context"

	"github.com/git-pkgs/autorelease/internal/cargo"
	"github.com/git-pkgs/autorelease/internal/client"
	"github.com/git-pkgs/autorelease/internal/gitrepo"
	"github.com/git-pkgs/autorelease/internal/index"
	"github.com/git-pkgs/autorelease/internal/release"
)

// Re-export types from internal/release
type (
	// Package identifies a releasable package by name and workspace root.
	Package = release.Package

	// Outcome records what a release run did for one package.
	Outcome = release.Outcome

	// Releaser promotes packages in caller order.
	Releaser = release.Releaser

	// PackageError reports which package failed at which step.
	PackageError = release.PackageError

	// Step names the per-package release step that failed.
	Step = release.Step

	// Condition selects the commit-message field the trigger prefix is
	// matched against.
	Condition = release.Condition

	// VersionSource resolves a package's locally declared version.
	VersionSource = release.VersionSource

	// Index answers which versions of a package exist remotely.
	Index = release.Index

	// TagStore checks, creates and pushes release tags.
	TagStore = release.TagStore

	// Publisher performs the registry publish action.
	Publisher = release.Publisher
)

// Re-export constants
const (
	TriggerPrefix = release.TriggerPrefix

	ConditionSubject = release.ConditionSubject
	ConditionBody    = release.ConditionBody

	StepLocalVersion  = release.StepLocalVersion
	StepRegistryQuery = release.StepRegistryQuery
	StepPublish       = release.StepPublish
	StepTagQuery      = release.StepTagQuery
	StepTagPush       = release.StepTagPush
)

// DefaultIndexURL is the sparse index for the crates.io registry.
const DefaultIndexURL = index.DefaultURL

// NewPackage creates a Package rooted at the current directory.
func NewPackage(name string) Package {
	return release.NewPackage(name)
}

// ParsePackage accepts either a plain package name or a package URL of
// the form pkg:cargo/<name>.
func ParsePackage(arg, workspace string) (Package, error) {
	return release.ParsePackage(arg, workspace)
}

// ParseCondition converts a string into a Condition.
func ParseCondition(s string) (Condition, error) {
	return release.ParseCondition(s)
}

// NewReleaser wires a Releaser against the given checkout and registry
// index. If workspace is empty the current directory is used; if
// indexURL is empty DefaultIndexURL is used.
func NewReleaser(workspace, indexURL string) (*Releaser, error) {
	repo, err := gitrepo.Open(workspace)
	if err != nil {
		return nil, err
	}

	tool := cargo.New()
	return &Releaser{
		Versions:  tool,
		Index:     index.New(indexURL, client.DefaultClient()),
		Tags:      repo,
		Publisher: tool,
	}, nil
}

// Release promotes each package in order using the default wiring:
// local versions and publishes through cargo, tags through the
// checkout at workspace, version lookups against the crates.io sparse
// index. See Releaser.Release for the ordering and failure contract.
func Release(ctx context.Context, commitSHA, workspace string, packages []Package) ([]Outcome, error) {
	r, err := NewReleaser(workspace, "")
	if err != nil {
		return nil, err
	}
	return r.Release(ctx, commitSHA, packages)
}
