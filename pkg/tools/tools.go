// Package tools implements the MCP tools exposed by the server. Each tool is
// a small struct holding its dependencies, with a Definition describing the
// schema and a Handle executing the call.
//
// Every handler runs the safety checks before touching the network, in a
// fixed order: read-only mode, confirmation for destructive actions,
// workspace resolution, then the allow-lists. API and policy failures are
// both returned as tool errors so the caller sees the message instead of a
// protocol fault.
package tools

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/or2ooo/bitbucket-mcp/pkg/bitbucket"
	"github.com/or2ooo/bitbucket-mcp/pkg/config"
	"github.com/or2ooo/bitbucket-mcp/pkg/log"
	"github.com/or2ooo/bitbucket-mcp/pkg/policy"
)

// Deps bundles what every tool needs. The client and configuration are
// shared and read-only after startup.
type Deps struct {
	Client *bitbucket.Client
	Config *config.Config
}

// resolveWorkspace applies the default-workspace fallback and the workspace
// allow-list to an explicit (possibly empty) workspace argument.
func (d *Deps) resolveWorkspace(explicit string) (string, error) {
	workspace, err := policy.ResolveWorkspace(d.Config, explicit)
	if err != nil {
		return "", err
	}
	if err := policy.CheckWorkspaceAllowed(d.Config, workspace); err != nil {
		return "", err
	}
	return workspace, nil
}

// resolveRepo resolves the workspace and checks the repository allow-list.
func (d *Deps) resolveRepo(explicitWorkspace, repoSlug string) (string, error) {
	workspace, err := policy.ResolveWorkspace(d.Config, explicitWorkspace)
	if err != nil {
		return "", err
	}
	if err := policy.CheckRepositoryAllowed(d.Config, workspace, repoSlug); err != nil {
		return "", err
	}
	return workspace, nil
}

// errorResult converts any error into a tool error result. The transport
// error is nil on purpose: policy violations and API failures are results
// the model should read, not protocol faults.
func errorResult(tool string, err error) (*mcp.CallToolResult, error) {
	if policy.IsViolation(err) {
		log.Warn("tool call rejected by policy", "tool", tool, "error", err.Error())
	} else {
		log.Error("tool call failed", "tool", tool, "error", err.Error())
	}
	return mcp.NewToolResultError(err.Error()), nil
}

// workspaceArg is the workspace parameter shared by almost every tool.
func workspaceArg() mcp.ToolOption {
	return mcp.WithString("workspace",
		mcp.Description("Workspace slug. Falls back to the configured default workspace."))
}

// repoArg is the repository slug parameter shared by repository-scoped tools.
func repoArg() mcp.ToolOption {
	return mcp.WithString("repo_slug",
		mcp.Required(),
		mcp.Description("Repository slug, e.g. \"my-service\"."))
}

// confirmArg gates irreversible operations. It defaults to false so a bare
// call never performs the action.
func confirmArg(action string) mcp.ToolOption {
	return mcp.WithBoolean("confirm",
		mcp.Description("Must be true to actually "+action+"."))
}

// maxPagesArg caps pagination for list tools.
func maxPagesArg() mcp.ToolOption {
	return mcp.WithNumber("max_pages",
		mcp.Description("Maximum number of result pages to fetch (default 10)."))
}
