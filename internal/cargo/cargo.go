// Package cargo reads local package versions from the workspace
// manifest and publishes packages to the registry.
package cargo

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"k8s.io/klog/v2"

	"github.com/git-pkgs/autorelease/internal/run"
)

// NotInWorkspaceError is returned when the workspace metadata has no
// entry for the requested package.
type NotInWorkspaceError struct {
	Name      string
	Workspace string
}

func (e *NotInWorkspaceError) Error() string {
	return fmt.Sprintf("failed to find %s in local metadata of %s", e.Name, e.Workspace)
}

// Cargo shells out to the cargo binary.
type Cargo struct {
	exe string
}

// New returns a Cargo using the cargo binary from PATH.
func New() *Cargo {
	return &Cargo{exe: "cargo"}
}

// NewWithExe returns a Cargo using the given executable.
func NewWithExe(exe string) *Cargo {
	return &Cargo{exe: exe}
}

// metadata is the subset of `cargo metadata` output consumed here.
type metadata struct {
	Packages []struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"packages"`
}

func manifestPath(workspace string) string {
	return filepath.Join(workspace, "Cargo.toml")
}

// LocalVersion returns the version the workspace manifest declares for
// the named package. Dependencies are excluded from the lookup; only
// local workspace members count.
func (c *Cargo) LocalVersion(ctx context.Context, workspace, name string) (string, error) {
	out, err := run.Output(ctx, c.exe,
		"metadata",
		"--format-version", "1",
		"--no-deps",
		"--manifest-path", manifestPath(workspace),
	)
	if err != nil {
		return "", err
	}

	var meta metadata
	if err := json.Unmarshal(out, &meta); err != nil {
		return "", fmt.Errorf("parsing cargo metadata: %w", err)
	}

	for _, pkg := range meta.Packages {
		if pkg.Name == name {
			return pkg.Version, nil
		}
	}

	return "", &NotInWorkspaceError{Name: name, Workspace: workspace}
}

// Publish uploads the named package to the registry. The registry
// rejects re-publishing an existing version, so callers check the
// remote version set first.
func (c *Cargo) Publish(ctx context.Context, workspace, name string) error {
	err := run.Run(ctx, c.exe,
		"publish",
		"--package", name,
		"--manifest-path", manifestPath(workspace),
	)
	if err != nil {
		return err
	}
	klog.Infof("published %s", name)
	return nil
}
