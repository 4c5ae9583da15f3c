package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/or2ooo/bitbucket-mcp/pkg/bitbucket"
	"github.com/or2ooo/bitbucket-mcp/pkg/format"
)

// ListRepositoriesTool lists the repositories of a workspace.
type ListRepositoriesTool struct {
	deps *Deps
}

func NewListRepositoriesTool(deps *Deps) *ListRepositoriesTool {
	return &ListRepositoriesTool{deps: deps}
}

func (t *ListRepositoriesTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_list_repositories",
		mcp.WithDescription("List repositories in a Bitbucket workspace, most recently updated first."),
		workspaceArg(),
		mcp.WithString("role",
			mcp.Description("Filter by the caller's role: owner, admin, contributor or member.")),
		mcp.WithString("query",
			mcp.Description("Bitbucket filter expression, e.g. name ~ \"api\".")),
		maxPagesArg(),
	)
}

func (t *ListRepositoriesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspace, err := t.deps.resolveWorkspace(req.GetString("workspace", ""))
	if err != nil {
		return errorResult("bb_list_repositories", err)
	}

	repos, err := t.deps.Client.ListRepositories(ctx, workspace,
		req.GetString("role", ""),
		req.GetString("query", ""),
		req.GetInt("max_pages", bitbucket.DefaultMaxPages))
	if err != nil {
		return errorResult("bb_list_repositories", err)
	}
	return mcp.NewToolResultText(format.RepositoryList(workspace, repos)), nil
}

// GetRepositoryTool fetches a single repository.
type GetRepositoryTool struct {
	deps *Deps
}

func NewGetRepositoryTool(deps *Deps) *GetRepositoryTool {
	return &GetRepositoryTool{deps: deps}
}

func (t *GetRepositoryTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_get_repository",
		mcp.WithDescription("Get details of a single Bitbucket repository."),
		workspaceArg(),
		repoArg(),
	)
}

func (t *GetRepositoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoSlug, err := req.RequireString("repo_slug")
	if err != nil {
		return errorResult("bb_get_repository", err)
	}
	workspace, err := t.deps.resolveRepo(req.GetString("workspace", ""), repoSlug)
	if err != nil {
		return errorResult("bb_get_repository", err)
	}

	repo, err := t.deps.Client.GetRepository(ctx, workspace, repoSlug)
	if err != nil {
		return errorResult("bb_get_repository", err)
	}
	return mcp.NewToolResultText(format.Repository(repo)), nil
}

// ListBranchesTool lists the branches of a repository.
type ListBranchesTool struct {
	deps *Deps
}

func NewListBranchesTool(deps *Deps) *ListBranchesTool {
	return &ListBranchesTool{deps: deps}
}

func (t *ListBranchesTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_list_branches",
		mcp.WithDescription("List the branches of a Bitbucket repository."),
		workspaceArg(),
		repoArg(),
		maxPagesArg(),
	)
}

func (t *ListBranchesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoSlug, err := req.RequireString("repo_slug")
	if err != nil {
		return errorResult("bb_list_branches", err)
	}
	workspace, err := t.deps.resolveRepo(req.GetString("workspace", ""), repoSlug)
	if err != nil {
		return errorResult("bb_list_branches", err)
	}

	branches, err := t.deps.Client.ListBranches(ctx, workspace, repoSlug,
		req.GetInt("max_pages", bitbucket.DefaultMaxPages))
	if err != nil {
		return errorResult("bb_list_branches", err)
	}
	return mcp.NewToolResultText(format.BranchList(workspace+"/"+repoSlug, branches)), nil
}
