package release

import (
	"context"
	"fmt"
	"strings"

	"k8s.io/klog/v2"
)

// TriggerPrefix marks a commit message as authorizing a release.
const TriggerPrefix = "release:"

// Condition selects which commit-message field the trigger prefix is
// matched against.
type Condition string

const (
	ConditionSubject Condition = "subject"
	ConditionBody    Condition = "body"
)

// ParseCondition converts a flag value into a Condition.
func ParseCondition(s string) (Condition, error) {
	switch Condition(s) {
	case ConditionSubject:
		return ConditionSubject, nil
	case ConditionBody:
		return ConditionBody, nil
	default:
		return "", fmt.Errorf("invalid condition %q, expected body or subject", s)
	}
}

// CommitReader reads fields of a commit message.
type CommitReader interface {
	CommitSubject(ctx context.Context, commitSHA string) (string, error)
	CommitBody(ctx context.Context, commitSHA string) (string, error)
}

// ShouldRelease reports whether the selected field of the commit
// message starts with TriggerPrefix.
func ShouldRelease(ctx context.Context, commits CommitReader, commitSHA string, cond Condition) (bool, error) {
	var msg string
	var err error

	switch cond {
	case ConditionBody:
		msg, err = commits.CommitBody(ctx, commitSHA)
	case ConditionSubject:
		msg, err = commits.CommitSubject(ctx, commitSHA)
	default:
		return false, fmt.Errorf("invalid condition %q", cond)
	}
	if err != nil {
		return false, fmt.Errorf("reading commit message %s of %s: %w", cond, commitSHA, err)
	}

	if strings.HasPrefix(msg, TriggerPrefix) {
		return true, nil
	}

	klog.Infof("commit message %s of %s does not start with %q", cond, commitSHA, TriggerPrefix)
	return false, nil
}
