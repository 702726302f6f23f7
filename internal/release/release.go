// Package release drives the idempotent promotion of workspace
// packages to a registry release and a pushed git tag.
package release

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/git-pkgs/purl"
	"k8s.io/klog/v2"
)

// Package identifies a releasable package: a name unique within the
// run, and the workspace root its local version is resolved from.
type Package struct {
	Name      string
	Workspace string
}

// NewPackage creates a Package rooted at the current directory.
func NewPackage(name string) Package {
	return Package{Name: name, Workspace: "."}
}

// ParsePackage accepts either a plain package name or a package URL of
// the form pkg:cargo/<name>.
func ParsePackage(arg, workspace string) (Package, error) {
	if workspace == "" {
		workspace = "."
	}

	if !strings.HasPrefix(arg, "pkg:") {
		if arg == "" {
			return Package{}, errors.New("package name must not be empty")
		}
		return Package{Name: arg, Workspace: workspace}, nil
	}

	p, err := purl.Parse(arg)
	if err != nil {
		return Package{}, fmt.Errorf("parsing package URL %q: %w", arg, err)
	}
	if p.Type != "cargo" {
		return Package{}, fmt.Errorf("unsupported package URL type %q, only cargo is supported", p.Type)
	}
	return Package{Name: p.Name, Workspace: workspace}, nil
}

// TagName returns the git tag marking a release of the package at the
// given version, e.g. release-utils at 0.4.1 is release-utils-v0.4.1.
func (p Package) TagName(version string) string {
	return p.Name + "-v" + version
}

// Step names the per-package release step that failed.
type Step string

const (
	StepLocalVersion  Step = "local-version"
	StepRegistryQuery Step = "registry-query"
	StepPublish       Step = "publish"
	StepTagQuery      Step = "tag-query"
	StepTagPush       Step = "tag-push"
)

// PackageError reports which package failed at which step. The run
// stops at the first failing package; earlier packages keep whatever
// state they reached.
type PackageError struct {
	Package string
	Step    Step
	Err     error
}

func (e *PackageError) Error() string {
	return fmt.Sprintf("failed to release package %s (step %s): %v", e.Package, e.Step, e.Err)
}

func (e *PackageError) Unwrap() error {
	return e.Err
}

// Outcome records what a release run did for one package. Published
// and Tagged are false when the remote state already existed, so a
// fully released package re-runs as a no-op.
type Outcome struct {
	Package   string
	Version   string
	Tag       string
	Published bool
	Tagged    bool
}

// VersionSource resolves the version a package declares in the local
// workspace.
type VersionSource interface {
	LocalVersion(ctx context.Context, workspace, name string) (string, error)
}

// Index answers which versions of a package exist remotely. Refresh
// must treat an unpublished package as a normal outcome, not an error.
type Index interface {
	Refresh(ctx context.Context, name string) error
	HasVersion(name, version string) bool
}

// TagStore checks, creates and pushes release tags. FetchTags is
// called once per run, before any package is processed, so TagExists
// can stay local.
type TagStore interface {
	FetchTags(ctx context.Context) error
	TagExists(ctx context.Context, tag string) (bool, error)
	CreateAndPushTag(ctx context.Context, tag, commitSHA string) error
}

// Publisher performs the registry publish action for a package.
type Publisher interface {
	Publish(ctx context.Context, workspace, name string) error
}

// Releaser promotes packages, in caller order, to their released
// state: a published registry version and a pushed git tag.
type Releaser struct {
	Versions  VersionSource
	Index     Index
	Tags      TagStore
	Publisher Publisher
}

// Release processes packages strictly in the given order, releasing
// each one if needed. It stops at the first failing package and
// returns the outcomes of the packages completed before the failure.
//
// The order of packages is significant when they depend on one
// another: the registry rejects a package whose dependency version is
// not yet visible, so dependencies must come first.
//
// Every step is an idempotency guard followed by an action, so
// re-running after a partial failure converges to the same final
// state.
func (r *Releaser) Release(ctx context.Context, commitSHA string, packages []Package) ([]Outcome, error) {
	if err := r.Tags.FetchTags(ctx); err != nil {
		return nil, fmt.Errorf("fetching remote tags: %w", err)
	}

	outcomes := make([]Outcome, 0, len(packages))
	for _, pkg := range packages {
		outcome, err := r.releasePackage(ctx, commitSHA, pkg)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

// releasePackage releases a single package, if needed. It publishes to
// the registry if the local version does not exist there, and pushes a
// release tag if one does not exist yet.
func (r *Releaser) releasePackage(ctx context.Context, commitSHA string, pkg Package) (Outcome, error) {
	fail := func(step Step, err error) (Outcome, error) {
		return Outcome{}, &PackageError{Package: pkg.Name, Step: step, Err: err}
	}

	localVersion, err := r.Versions.LocalVersion(ctx, pkg.Workspace, pkg.Name)
	if err != nil {
		return fail(StepLocalVersion, err)
	}
	klog.Infof("local version of %s is %s", pkg.Name, localVersion)

	outcome := Outcome{
		Package: pkg.Name,
		Version: localVersion,
		Tag:     pkg.TagName(localVersion),
	}

	// Create the registry release if it doesn't exist.
	if err := r.Index.Refresh(ctx, pkg.Name); err != nil {
		return fail(StepRegistryQuery, err)
	}
	if r.Index.HasVersion(pkg.Name, localVersion) {
		klog.Infof("%s-%s has already been published", pkg.Name, localVersion)
	} else {
		if err := r.Publisher.Publish(ctx, pkg.Workspace, pkg.Name); err != nil {
			return fail(StepPublish, err)
		}
		outcome.Published = true
	}

	// Create the remote git tag if it doesn't exist.
	exists, err := r.Tags.TagExists(ctx, outcome.Tag)
	if err != nil {
		return fail(StepTagQuery, err)
	}
	if exists {
		klog.Infof("git tag %s already exists", outcome.Tag)
	} else {
		if err := r.Tags.CreateAndPushTag(ctx, outcome.Tag, commitSHA); err != nil {
			return fail(StepTagPush, err)
		}
		outcome.Tagged = true
	}

	return outcome, nil
}
