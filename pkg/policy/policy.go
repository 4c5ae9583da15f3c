// Package policy enforces the safety policy that gates every Bitbucket
// operation before any network call is made. All checks are pure functions
// of the immutable configuration and their inputs; a failed check returns a
// *ViolationError and a passing check returns nil.
//
// Write handlers evaluate checks in a fixed order so the caller learns about
// the broadest restriction first: read-only mode, then confirmation for
// destructive actions, then workspace resolution, then the allow-lists.
package policy

import (
	"fmt"
	"strings"

	"github.com/or2ooo/bitbucket-mcp/pkg/config"
)

// ViolationError reports a failed safety check. It carries only a message:
// policy failures are always locally caused and never retryable.
type ViolationError struct {
	Message string
}

func (e *ViolationError) Error() string {
	return e.Message
}

func violationf(format string, args ...interface{}) *ViolationError {
	return &ViolationError{Message: fmt.Sprintf(format, args...)}
}

// IsViolation reports whether err is a safety policy violation.
func IsViolation(err error) bool {
	_, ok := err.(*ViolationError)
	return ok
}

// CheckNotReadOnly fails when the server runs in read-only mode. There are
// no exceptions: every write operation is rejected.
func CheckNotReadOnly(cfg *config.Config) error {
	if cfg.ReadOnly {
		return violationf("read-only mode is enabled: write operations are not permitted")
	}
	return nil
}

// CheckWorkspaceAllowed fails when a workspace allow-list is configured and
// the given workspace is not on it. Comparison is case-insensitive; an
// empty allow-list permits every workspace.
func CheckWorkspaceAllowed(cfg *config.Config, workspace string) error {
	if len(cfg.AllowedWorkspaces) == 0 {
		return nil
	}
	lowered := strings.ToLower(workspace)
	for _, allowed := range cfg.AllowedWorkspaces {
		if allowed == lowered {
			return nil
		}
	}
	return violationf("workspace %q is not allowed (allowed: %s)",
		workspace, strings.Join(cfg.AllowedWorkspaces, ", "))
}

// CheckRepositoryAllowed fails when the repository is outside the configured
// allow-lists. The workspace check always runs first: a repository
// restriction never weakens the workspace restriction. A repository is
// accepted when either the workspace/slug composite or the bare slug is on
// the list; an empty list permits every repository.
func CheckRepositoryAllowed(cfg *config.Config, workspace, repoSlug string) error {
	if err := CheckWorkspaceAllowed(cfg, workspace); err != nil {
		return err
	}
	if len(cfg.AllowedRepos) == 0 {
		return nil
	}
	composite := strings.ToLower(workspace + "/" + repoSlug)
	bare := strings.ToLower(repoSlug)
	for _, allowed := range cfg.AllowedRepos {
		if allowed == composite || allowed == bare {
			return nil
		}
	}
	return violationf("repository %q in workspace %q is not allowed (allowed: %s)",
		repoSlug, workspace, strings.Join(cfg.AllowedRepos, ", "))
}

// RequireConfirmation fails unless confirmed is exactly true. Irreversible
// operations (merge, decline, delete) pass their action label here so the
// failure message tells the caller what needs confirming.
func RequireConfirmation(confirmed bool, action string) error {
	if !confirmed {
		return violationf("%s requires confirmation: pass confirm=true to proceed", action)
	}
	return nil
}

// ResolveWorkspace returns the explicit workspace when given, the configured
// default otherwise, and fails when neither is available.
func ResolveWorkspace(cfg *config.Config, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if cfg.DefaultWorkspace != "" {
		return cfg.DefaultWorkspace, nil
	}
	return "", violationf("no workspace specified and no default workspace configured (set %s)", config.EnvDefaultWorkspace)
}
