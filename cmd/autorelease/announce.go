package main

import (
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/git-pkgs/autorelease/internal/config"
	"github.com/git-pkgs/autorelease/internal/github"
)

var (
	flagTag   string
	flagTitle string
	flagNotes string
)

var announceCmd = &cobra.Command{
	Use:   "announce [files...]",
	Short: "Create a GitHub release for an existing tag",
	Long: `Announce creates a GitHub release record for a tag pushed by a
release run, optionally attaching binaries. If a release for the tag
already exists, this is a no-op.`,
	RunE: runAnnounce,
}

func init() {
	announceCmd.Flags().StringVar(&flagTag, "tag", "", "tag to create the release for")
	announceCmd.Flags().StringVar(&flagTitle, "title", "", "release title")
	announceCmd.Flags().StringVar(&flagNotes, "notes", "", "release notes")
	_ = announceCmd.MarkFlagRequired("tag")
}

func runAnnounce(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	gh := github.NewWithExe(cfg.GhExe)

	exists, err := gh.ReleaseExists(ctx, flagTag)
	if err != nil {
		return err
	}
	if exists {
		klog.Infof("release for tag %s already exists", flagTag)
		return nil
	}

	return gh.CreateRelease(ctx, github.ReleaseOpts{
		Tag:   flagTag,
		Title: flagTitle,
		Notes: flagNotes,
		Files: args,
	})
}
