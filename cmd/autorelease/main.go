// Command autorelease tags and publishes packages after a merge,
// driven by a release-marked commit. It is meant to run unattended in
// CI once the triggering commit has landed.
package main

import (
	"context"
	"os"

	"k8s.io/klog/v2"
)

func main() {
	defer klog.Flush()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
