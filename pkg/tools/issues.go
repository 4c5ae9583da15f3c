package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/or2ooo/bitbucket-mcp/pkg/bitbucket"
	"github.com/or2ooo/bitbucket-mcp/pkg/format"
	"github.com/or2ooo/bitbucket-mcp/pkg/policy"
)

// ListIssuesTool lists issue-tracker issues.
type ListIssuesTool struct {
	deps *Deps
}

func NewListIssuesTool(deps *Deps) *ListIssuesTool {
	return &ListIssuesTool{deps: deps}
}

func (t *ListIssuesTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_list_issues",
		mcp.WithDescription("List issues in a repository's issue tracker."),
		workspaceArg(),
		repoArg(),
		mcp.WithString("query",
			mcp.Description("Bitbucket issue filter expression, e.g. state = \"open\".")),
		maxPagesArg(),
	)
}

func (t *ListIssuesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoSlug, err := req.RequireString("repo_slug")
	if err != nil {
		return errorResult("bb_list_issues", err)
	}
	workspace, err := t.deps.resolveRepo(req.GetString("workspace", ""), repoSlug)
	if err != nil {
		return errorResult("bb_list_issues", err)
	}

	issues, err := t.deps.Client.ListIssues(ctx, workspace, repoSlug,
		req.GetString("query", ""),
		req.GetInt("max_pages", bitbucket.DefaultMaxPages))
	if err != nil {
		return errorResult("bb_list_issues", err)
	}
	return mcp.NewToolResultText(format.IssueList(workspace+"/"+repoSlug, issues)), nil
}

// GetIssueTool fetches a single issue.
type GetIssueTool struct {
	deps *Deps
}

func NewGetIssueTool(deps *Deps) *GetIssueTool {
	return &GetIssueTool{deps: deps}
}

func (t *GetIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_get_issue",
		mcp.WithDescription("Get details of a single issue."),
		workspaceArg(),
		repoArg(),
		mcp.WithNumber("issue_id", mcp.Required(), mcp.Description("Issue ID.")),
	)
}

func (t *GetIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoSlug, err := req.RequireString("repo_slug")
	if err != nil {
		return errorResult("bb_get_issue", err)
	}
	id, err := req.RequireInt("issue_id")
	if err != nil {
		return errorResult("bb_get_issue", err)
	}
	workspace, err := t.deps.resolveRepo(req.GetString("workspace", ""), repoSlug)
	if err != nil {
		return errorResult("bb_get_issue", err)
	}

	issue, err := t.deps.Client.GetIssue(ctx, workspace, repoSlug, id)
	if err != nil {
		return errorResult("bb_get_issue", err)
	}
	return mcp.NewToolResultText(format.Issue(issue)), nil
}

// CommentIssueTool adds a comment to an issue.
type CommentIssueTool struct {
	deps *Deps
}

func NewCommentIssueTool(deps *Deps) *CommentIssueTool {
	return &CommentIssueTool{deps: deps}
}

func (t *CommentIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_comment_issue",
		mcp.WithDescription("Add a comment to an issue."),
		workspaceArg(),
		repoArg(),
		mcp.WithNumber("issue_id", mcp.Required(), mcp.Description("Issue ID.")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Comment text (markdown).")),
	)
}

func (t *CommentIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := policy.CheckNotReadOnly(t.deps.Config); err != nil {
		return errorResult("bb_comment_issue", err)
	}
	repoSlug, err := req.RequireString("repo_slug")
	if err != nil {
		return errorResult("bb_comment_issue", err)
	}
	id, err := req.RequireInt("issue_id")
	if err != nil {
		return errorResult("bb_comment_issue", err)
	}
	content, err := req.RequireString("content")
	if err != nil {
		return errorResult("bb_comment_issue", err)
	}
	workspace, err := t.deps.resolveRepo(req.GetString("workspace", ""), repoSlug)
	if err != nil {
		return errorResult("bb_comment_issue", err)
	}

	comment, err := t.deps.Client.CommentIssue(ctx, workspace, repoSlug, id, content)
	if err != nil {
		return errorResult("bb_comment_issue", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Added comment %d to issue #%d.", comment.ID, id)), nil
}

// CreateIssueTool opens a new issue.
type CreateIssueTool struct {
	deps *Deps
}

func NewCreateIssueTool(deps *Deps) *CreateIssueTool {
	return &CreateIssueTool{deps: deps}
}

func (t *CreateIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_create_issue",
		mcp.WithDescription("Create an issue in a repository's issue tracker."),
		workspaceArg(),
		repoArg(),
		mcp.WithString("title", mcp.Required(), mcp.Description("Issue title.")),
		mcp.WithString("content", mcp.Description("Issue body (markdown).")),
		mcp.WithString("kind",
			mcp.Description("bug, enhancement, proposal or task. Default bug.")),
		mcp.WithString("priority",
			mcp.Description("trivial, minor, major, critical or blocker. Default major.")),
	)
}

func (t *CreateIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := policy.CheckNotReadOnly(t.deps.Config); err != nil {
		return errorResult("bb_create_issue", err)
	}
	repoSlug, err := req.RequireString("repo_slug")
	if err != nil {
		return errorResult("bb_create_issue", err)
	}
	title, err := req.RequireString("title")
	if err != nil {
		return errorResult("bb_create_issue", err)
	}
	workspace, err := t.deps.resolveRepo(req.GetString("workspace", ""), repoSlug)
	if err != nil {
		return errorResult("bb_create_issue", err)
	}

	issue, err := t.deps.Client.CreateIssue(ctx, workspace, repoSlug, &bitbucket.NewIssue{
		Title:    title,
		Content:  req.GetString("content", ""),
		Kind:     req.GetString("kind", ""),
		Priority: req.GetString("priority", ""),
	})
	if err != nil {
		return errorResult("bb_create_issue", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created issue #%d.\n\n%s", issue.ID, format.Issue(issue))), nil
}
