package main

import (
	"errors"
	"flag"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/git-pkgs/autorelease/internal/cargo"
	"github.com/git-pkgs/autorelease/internal/config"
	"github.com/git-pkgs/autorelease/internal/gitrepo"
	"github.com/git-pkgs/autorelease/internal/index"
	"github.com/git-pkgs/autorelease/internal/release"
)

var (
	flagPackages  []string
	flagCondition string
	flagIndexURL  string
	flagWorkspace string
)

var rootCmd = &cobra.Command{
	Use:   "autorelease",
	Short: "Publish and tag packages marked for release",
	Long: `Autorelease promotes workspace packages to their released state: a
published registry version and a pushed git tag. Each action is guarded
by a remote-state check, so re-running after a partial failure is safe.

Packages are processed in the order given; list dependencies before
their dependents.`,
	Args: cobra.NoArgs,
	RunE: runRelease,
}

func init() {
	rootCmd.Flags().StringArrayVarP(&flagPackages, "package", "p", nil,
		"package to release, as a name or pkg:cargo/<name> (repeatable)")
	rootCmd.Flags().StringVar(&flagCondition, "condition", "",
		`only release when this commit message field starts with "release:" (body|subject)`)
	rootCmd.Flags().StringVar(&flagIndexURL, "index-url", "",
		"registry index base URL (default $AUTORELEASE_INDEX_URL or "+index.DefaultURL+")")
	rootCmd.Flags().StringVar(&flagWorkspace, "workspace", "",
		"workspace root containing the checkout (default: current directory)")
	_ = rootCmd.MarkFlagRequired("package")

	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(klogFlags)

	rootCmd.AddCommand(announceCmd)
}

func runRelease(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.CommitSHA == "" {
		return errors.New("GITHUB_SHA is not set")
	}

	repo, err := gitrepo.Open(flagWorkspace)
	if err != nil {
		return err
	}

	if flagCondition != "" {
		cond, err := release.ParseCondition(flagCondition)
		if err != nil {
			return err
		}
		ok, err := release.ShouldRelease(ctx, repo, cfg.CommitSHA, cond)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	packages := make([]release.Package, 0, len(flagPackages))
	for _, arg := range flagPackages {
		pkg, err := release.ParsePackage(arg, repo.Dir())
		if err != nil {
			return err
		}
		packages = append(packages, pkg)
	}

	indexURL := flagIndexURL
	if indexURL == "" {
		indexURL = cfg.IndexURL
	}

	tool := cargo.New()
	releaser := &release.Releaser{
		Versions:  tool,
		Index:     index.New(indexURL, nil),
		Tags:      repo,
		Publisher: tool,
	}

	outcomes, err := releaser.Release(ctx, cfg.CommitSHA, packages)
	for _, o := range outcomes {
		klog.Infof("%s %s: published=%t tagged=%t (tag %s)",
			o.Package, o.Version, o.Published, o.Tagged, o.Tag)
	}
	return err
}
