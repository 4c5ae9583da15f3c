package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/or2ooo/bitbucket-mcp/pkg/format"
	"github.com/or2ooo/bitbucket-mcp/pkg/policy"
)

// GetFileTool fetches a file's content at a ref.
type GetFileTool struct {
	deps *Deps
}

func NewGetFileTool(deps *Deps) *GetFileTool {
	return &GetFileTool{deps: deps}
}

func (t *GetFileTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_get_file",
		mcp.WithDescription("Get the raw content of a file at a branch, tag or commit."),
		workspaceArg(),
		repoArg(),
		mcp.WithString("path", mcp.Required(), mcp.Description("File path inside the repository.")),
		mcp.WithString("ref",
			mcp.Description("Branch name, tag or commit hash. Default main.")),
	)
}

func (t *GetFileTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoSlug, err := req.RequireString("repo_slug")
	if err != nil {
		return errorResult("bb_get_file", err)
	}
	path, err := req.RequireString("path")
	if err != nil {
		return errorResult("bb_get_file", err)
	}
	workspace, err := t.deps.resolveRepo(req.GetString("workspace", ""), repoSlug)
	if err != nil {
		return errorResult("bb_get_file", err)
	}

	content, err := t.deps.Client.GetFileContent(ctx, workspace, repoSlug,
		req.GetString("ref", "main"), path)
	if err != nil {
		return errorResult("bb_get_file", err)
	}
	return mcp.NewToolResultText(content), nil
}

// CommitFileTool writes a single file and commits it. Requires confirmation
// because it rewrites repository history forward.
type CommitFileTool struct {
	deps *Deps
}

func NewCommitFileTool(deps *Deps) *CommitFileTool {
	return &CommitFileTool{deps: deps}
}

func (t *CommitFileTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_commit_file",
		mcp.WithDescription("Create a commit on a branch that writes the given content to a file. Requires confirm=true."),
		workspaceArg(),
		repoArg(),
		mcp.WithString("path", mcp.Required(), mcp.Description("File path to write.")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full new content of the file.")),
		mcp.WithString("message", mcp.Required(), mcp.Description("Commit message.")),
		mcp.WithString("branch", mcp.Description("Branch to commit on. Default main.")),
		confirmArg("create the commit"),
	)
}

func (t *CommitFileTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := policy.CheckNotReadOnly(t.deps.Config); err != nil {
		return errorResult("bb_commit_file", err)
	}
	if err := policy.RequireConfirmation(req.GetBool("confirm", false), "committing a file"); err != nil {
		return errorResult("bb_commit_file", err)
	}
	repoSlug, err := req.RequireString("repo_slug")
	if err != nil {
		return errorResult("bb_commit_file", err)
	}
	path, err := req.RequireString("path")
	if err != nil {
		return errorResult("bb_commit_file", err)
	}
	content, err := req.RequireString("content")
	if err != nil {
		return errorResult("bb_commit_file", err)
	}
	message, err := req.RequireString("message")
	if err != nil {
		return errorResult("bb_commit_file", err)
	}
	workspace, err := t.deps.resolveRepo(req.GetString("workspace", ""), repoSlug)
	if err != nil {
		return errorResult("bb_commit_file", err)
	}

	branch := req.GetString("branch", "main")
	err = t.deps.Client.CommitFiles(ctx, workspace, repoSlug, branch, message,
		map[string]string{path: content})
	if err != nil {
		return errorResult("bb_commit_file", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Committed %s to %s on branch %s.", path, workspace+"/"+repoSlug, branch)), nil
}

// CurrentUserTool reports the authenticated account.
type CurrentUserTool struct {
	deps *Deps
}

func NewCurrentUserTool(deps *Deps) *CurrentUserTool {
	return &CurrentUserTool{deps: deps}
}

func (t *CurrentUserTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_current_user",
		mcp.WithDescription("Show the Bitbucket account the server is authenticated as."),
	)
}

func (t *CurrentUserTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	account, err := t.deps.Client.GetCurrentUser(ctx)
	if err != nil {
		return errorResult("bb_current_user", err)
	}
	return mcp.NewToolResultText(format.Account(account)), nil
}
