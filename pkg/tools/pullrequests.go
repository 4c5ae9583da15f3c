package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/or2ooo/bitbucket-mcp/pkg/bitbucket"
	"github.com/or2ooo/bitbucket-mcp/pkg/format"
	"github.com/or2ooo/bitbucket-mcp/pkg/policy"
)

// prTarget resolves the common workspace/repo_slug/pr_id triple of the pull
// request tools.
func prTarget(deps *Deps, req mcp.CallToolRequest) (workspace, repoSlug string, id int, err error) {
	repoSlug, err = req.RequireString("repo_slug")
	if err != nil {
		return "", "", 0, err
	}
	id, err = req.RequireInt("pr_id")
	if err != nil {
		return "", "", 0, err
	}
	workspace, err = deps.resolveRepo(req.GetString("workspace", ""), repoSlug)
	if err != nil {
		return "", "", 0, err
	}
	return workspace, repoSlug, id, nil
}

func prIDArg() mcp.ToolOption {
	return mcp.WithNumber("pr_id",
		mcp.Required(),
		mcp.Description("Pull request ID."))
}

// ListPullRequestsTool lists pull requests with an optional state filter.
type ListPullRequestsTool struct {
	deps *Deps
}

func NewListPullRequestsTool(deps *Deps) *ListPullRequestsTool {
	return &ListPullRequestsTool{deps: deps}
}

func (t *ListPullRequestsTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_list_pull_requests",
		mcp.WithDescription("List pull requests of a repository, optionally filtered by state."),
		workspaceArg(),
		repoArg(),
		mcp.WithString("state",
			mcp.Description("Filter by state: OPEN, MERGED, DECLINED or SUPERSEDED. Default OPEN.")),
		maxPagesArg(),
	)
}

func (t *ListPullRequestsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoSlug, err := req.RequireString("repo_slug")
	if err != nil {
		return errorResult("bb_list_pull_requests", err)
	}
	workspace, err := t.deps.resolveRepo(req.GetString("workspace", ""), repoSlug)
	if err != nil {
		return errorResult("bb_list_pull_requests", err)
	}

	prs, err := t.deps.Client.ListPullRequests(ctx, workspace, repoSlug,
		req.GetString("state", "OPEN"),
		req.GetInt("max_pages", bitbucket.DefaultMaxPages))
	if err != nil {
		return errorResult("bb_list_pull_requests", err)
	}
	return mcp.NewToolResultText(format.PullRequestList(workspace+"/"+repoSlug, prs)), nil
}

// GetPullRequestTool fetches one pull request with its comments.
type GetPullRequestTool struct {
	deps *Deps
}

func NewGetPullRequestTool(deps *Deps) *GetPullRequestTool {
	return &GetPullRequestTool{deps: deps}
}

func (t *GetPullRequestTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_get_pull_request",
		mcp.WithDescription("Get details of a pull request, including its comments."),
		workspaceArg(),
		repoArg(),
		prIDArg(),
	)
}

func (t *GetPullRequestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspace, repoSlug, id, err := prTarget(t.deps, req)
	if err != nil {
		return errorResult("bb_get_pull_request", err)
	}

	pr, err := t.deps.Client.GetPullRequest(ctx, workspace, repoSlug, id)
	if err != nil {
		return errorResult("bb_get_pull_request", err)
	}
	out := format.PullRequest(pr)

	// Comments are best effort: a failure fetching them must not hide the
	// pull request itself, but the caller is told they could not be loaded.
	comments, cerr := t.deps.Client.ListPullRequestComments(ctx, workspace, repoSlug, id, 1)
	switch {
	case cerr != nil:
		out += "\n(comments could not be retrieved: " + cerr.Error() + ")\n"
	case len(comments) > 0:
		out += "\n" + format.CommentList(comments)
	}
	return mcp.NewToolResultText(out), nil
}

// CreatePullRequestTool opens a new pull request.
type CreatePullRequestTool struct {
	deps *Deps
}

func NewCreatePullRequestTool(deps *Deps) *CreatePullRequestTool {
	return &CreatePullRequestTool{deps: deps}
}

func (t *CreatePullRequestTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_create_pull_request",
		mcp.WithDescription("Create a pull request from a source branch onto a destination branch."),
		workspaceArg(),
		repoArg(),
		mcp.WithString("title", mcp.Required(), mcp.Description("Pull request title.")),
		mcp.WithString("source_branch", mcp.Required(), mcp.Description("Branch the changes live on.")),
		mcp.WithString("destination_branch",
			mcp.Description("Branch to merge into. Defaults to the repository main branch.")),
		mcp.WithString("description", mcp.Description("Pull request description (markdown).")),
		mcp.WithBoolean("close_source_branch",
			mcp.Description("Delete the source branch after the pull request is merged.")),
	)
}

func (t *CreatePullRequestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := policy.CheckNotReadOnly(t.deps.Config); err != nil {
		return errorResult("bb_create_pull_request", err)
	}
	repoSlug, err := req.RequireString("repo_slug")
	if err != nil {
		return errorResult("bb_create_pull_request", err)
	}
	title, err := req.RequireString("title")
	if err != nil {
		return errorResult("bb_create_pull_request", err)
	}
	sourceBranch, err := req.RequireString("source_branch")
	if err != nil {
		return errorResult("bb_create_pull_request", err)
	}
	workspace, err := t.deps.resolveRepo(req.GetString("workspace", ""), repoSlug)
	if err != nil {
		return errorResult("bb_create_pull_request", err)
	}

	pr, err := t.deps.Client.CreatePullRequest(ctx, workspace, repoSlug, &bitbucket.NewPullRequest{
		Title:             title,
		Description:       req.GetString("description", ""),
		SourceBranch:      sourceBranch,
		DestinationBranch: req.GetString("destination_branch", ""),
		CloseSourceBranch: req.GetBool("close_source_branch", false),
	})
	if err != nil {
		return errorResult("bb_create_pull_request", err)
	}
	return mcp.NewToolResultText("Created pull request.\n\n" + format.PullRequest(pr)), nil
}

// UpdatePullRequestTool edits the title and/or description of a pull
// request.
type UpdatePullRequestTool struct {
	deps *Deps
}

func NewUpdatePullRequestTool(deps *Deps) *UpdatePullRequestTool {
	return &UpdatePullRequestTool{deps: deps}
}

func (t *UpdatePullRequestTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_update_pull_request",
		mcp.WithDescription("Edit the title and/or description of a pull request. Omitted fields are left unchanged."),
		workspaceArg(),
		repoArg(),
		prIDArg(),
		mcp.WithString("title", mcp.Description("New pull request title.")),
		mcp.WithString("description", mcp.Description("New pull request description (markdown).")),
	)
}

func (t *UpdatePullRequestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := policy.CheckNotReadOnly(t.deps.Config); err != nil {
		return errorResult("bb_update_pull_request", err)
	}
	title := req.GetString("title", "")
	description := req.GetString("description", "")
	if title == "" && description == "" {
		return mcp.NewToolResultError("nothing to update: provide a title and/or a description"), nil
	}
	workspace, repoSlug, id, err := prTarget(t.deps, req)
	if err != nil {
		return errorResult("bb_update_pull_request", err)
	}

	pr, err := t.deps.Client.UpdatePullRequest(ctx, workspace, repoSlug, id, title, description)
	if err != nil {
		return errorResult("bb_update_pull_request", err)
	}
	return mcp.NewToolResultText("Updated pull request.\n\n" + format.PullRequest(pr)), nil
}

// ApprovePullRequestTool records or withdraws an approval.
type ApprovePullRequestTool struct {
	deps *Deps
}

func NewApprovePullRequestTool(deps *Deps) *ApprovePullRequestTool {
	return &ApprovePullRequestTool{deps: deps}
}

func (t *ApprovePullRequestTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_approve_pull_request",
		mcp.WithDescription("Approve a pull request as the authenticated user, or withdraw a previous approval."),
		workspaceArg(),
		repoArg(),
		prIDArg(),
		mcp.WithBoolean("withdraw",
			mcp.Description("Withdraw an existing approval instead of approving.")),
	)
}

func (t *ApprovePullRequestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := policy.CheckNotReadOnly(t.deps.Config); err != nil {
		return errorResult("bb_approve_pull_request", err)
	}
	workspace, repoSlug, id, err := prTarget(t.deps, req)
	if err != nil {
		return errorResult("bb_approve_pull_request", err)
	}

	if req.GetBool("withdraw", false) {
		if err := t.deps.Client.UnapprovePullRequest(ctx, workspace, repoSlug, id); err != nil {
			return errorResult("bb_approve_pull_request", err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Withdrew approval of PR #%d.", id)), nil
	}
	if err := t.deps.Client.ApprovePullRequest(ctx, workspace, repoSlug, id); err != nil {
		return errorResult("bb_approve_pull_request", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Approved PR #%d.", id)), nil
}

// MergePullRequestTool merges a pull request. Irreversible, so it requires
// confirmation.
type MergePullRequestTool struct {
	deps *Deps
}

func NewMergePullRequestTool(deps *Deps) *MergePullRequestTool {
	return &MergePullRequestTool{deps: deps}
}

func (t *MergePullRequestTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_merge_pull_request",
		mcp.WithDescription("Merge a pull request. Irreversible; requires confirm=true."),
		workspaceArg(),
		repoArg(),
		prIDArg(),
		confirmArg("merge the pull request"),
		mcp.WithString("merge_strategy",
			mcp.Description("merge_commit, squash or fast_forward. Default is the repository setting.")),
		mcp.WithString("message", mcp.Description("Custom merge commit message.")),
		mcp.WithBoolean("close_source_branch",
			mcp.Description("Delete the source branch after merging.")),
	)
}

func (t *MergePullRequestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := policy.CheckNotReadOnly(t.deps.Config); err != nil {
		return errorResult("bb_merge_pull_request", err)
	}
	if err := policy.RequireConfirmation(req.GetBool("confirm", false), "merging a pull request"); err != nil {
		return errorResult("bb_merge_pull_request", err)
	}
	workspace, repoSlug, id, err := prTarget(t.deps, req)
	if err != nil {
		return errorResult("bb_merge_pull_request", err)
	}

	pr, err := t.deps.Client.MergePullRequest(ctx, workspace, repoSlug, id, &bitbucket.MergeOptions{
		Message:           req.GetString("message", ""),
		MergeStrategy:     req.GetString("merge_strategy", ""),
		CloseSourceBranch: req.GetBool("close_source_branch", false),
	})
	if err != nil {
		return errorResult("bb_merge_pull_request", err)
	}
	return mcp.NewToolResultText("Merged pull request.\n\n" + format.PullRequest(pr)), nil
}

// DeclinePullRequestTool declines a pull request. Requires confirmation.
type DeclinePullRequestTool struct {
	deps *Deps
}

func NewDeclinePullRequestTool(deps *Deps) *DeclinePullRequestTool {
	return &DeclinePullRequestTool{deps: deps}
}

func (t *DeclinePullRequestTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_decline_pull_request",
		mcp.WithDescription("Decline (close without merging) a pull request. Requires confirm=true."),
		workspaceArg(),
		repoArg(),
		prIDArg(),
		confirmArg("decline the pull request"),
	)
}

func (t *DeclinePullRequestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := policy.CheckNotReadOnly(t.deps.Config); err != nil {
		return errorResult("bb_decline_pull_request", err)
	}
	if err := policy.RequireConfirmation(req.GetBool("confirm", false), "declining a pull request"); err != nil {
		return errorResult("bb_decline_pull_request", err)
	}
	workspace, repoSlug, id, err := prTarget(t.deps, req)
	if err != nil {
		return errorResult("bb_decline_pull_request", err)
	}

	pr, err := t.deps.Client.DeclinePullRequest(ctx, workspace, repoSlug, id)
	if err != nil {
		return errorResult("bb_decline_pull_request", err)
	}
	return mcp.NewToolResultText("Declined pull request.\n\n" + format.PullRequest(pr)), nil
}

// CommentPullRequestTool adds a general or inline comment.
type CommentPullRequestTool struct {
	deps *Deps
}

func NewCommentPullRequestTool(deps *Deps) *CommentPullRequestTool {
	return &CommentPullRequestTool{deps: deps}
}

func (t *CommentPullRequestTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_comment_pull_request",
		mcp.WithDescription("Add a comment to a pull request, optionally anchored to a file line in the diff."),
		workspaceArg(),
		repoArg(),
		prIDArg(),
		mcp.WithString("content", mcp.Required(), mcp.Description("Comment text (markdown).")),
		mcp.WithString("file_path", mcp.Description("File to anchor an inline comment to.")),
		mcp.WithNumber("line", mcp.Description("Line number in the new version of the file.")),
	)
}

func (t *CommentPullRequestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := policy.CheckNotReadOnly(t.deps.Config); err != nil {
		return errorResult("bb_comment_pull_request", err)
	}
	content, err := req.RequireString("content")
	if err != nil {
		return errorResult("bb_comment_pull_request", err)
	}
	workspace, repoSlug, id, err := prTarget(t.deps, req)
	if err != nil {
		return errorResult("bb_comment_pull_request", err)
	}

	var inline *bitbucket.InlineLocation
	if path := req.GetString("file_path", ""); path != "" {
		inline = &bitbucket.InlineLocation{Path: path, To: req.GetInt("line", 0)}
	}

	comment, err := t.deps.Client.CommentPullRequest(ctx, workspace, repoSlug, id, content, inline)
	if err != nil {
		return errorResult("bb_comment_pull_request", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Added comment %d to PR #%d.", comment.ID, id)), nil
}

// GetPullRequestDiffTool fetches the unified diff of a pull request.
type GetPullRequestDiffTool struct {
	deps *Deps
}

func NewGetPullRequestDiffTool(deps *Deps) *GetPullRequestDiffTool {
	return &GetPullRequestDiffTool{deps: deps}
}

func (t *GetPullRequestDiffTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_get_pr_diff",
		mcp.WithDescription("Get the unified diff of a pull request."),
		workspaceArg(),
		repoArg(),
		prIDArg(),
	)
}

func (t *GetPullRequestDiffTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspace, repoSlug, id, err := prTarget(t.deps, req)
	if err != nil {
		return errorResult("bb_get_pr_diff", err)
	}

	diff, err := t.deps.Client.GetPullRequestDiff(ctx, workspace, repoSlug, id)
	if err != nil {
		return errorResult("bb_get_pr_diff", err)
	}
	if diff == "" {
		return mcp.NewToolResultText("The diff is empty."), nil
	}
	return mcp.NewToolResultText(diff), nil
}

// ListPullRequestCommitsTool lists the commits on a pull request.
type ListPullRequestCommitsTool struct {
	deps *Deps
}

func NewListPullRequestCommitsTool(deps *Deps) *ListPullRequestCommitsTool {
	return &ListPullRequestCommitsTool{deps: deps}
}

func (t *ListPullRequestCommitsTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_list_pr_commits",
		mcp.WithDescription("List the commits on a pull request, newest first."),
		workspaceArg(),
		repoArg(),
		prIDArg(),
		maxPagesArg(),
	)
}

func (t *ListPullRequestCommitsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspace, repoSlug, id, err := prTarget(t.deps, req)
	if err != nil {
		return errorResult("bb_list_pr_commits", err)
	}

	commits, err := t.deps.Client.ListPullRequestCommits(ctx, workspace, repoSlug, id,
		req.GetInt("max_pages", bitbucket.DefaultMaxPages))
	if err != nil {
		return errorResult("bb_list_pr_commits", err)
	}
	return mcp.NewToolResultText(format.CommitList(commits)), nil
}
