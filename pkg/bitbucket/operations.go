package bitbucket

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// repoPath builds the /repositories/{workspace}/{slug} path prefix with
// both segments escaped.
func repoPath(workspace, repoSlug string) string {
	return fmt.Sprintf("repositories/%s/%s", url.PathEscape(workspace), url.PathEscape(repoSlug))
}

// ListRepositories lists the repositories of a workspace. role filters by
// the caller's permission (owner, admin, contributor, member); empty means
// no filter. query is a Bitbucket filter expression, e.g. `name ~ "api"`.
func (c *Client) ListRepositories(ctx context.Context, workspace, role, query string, maxPages int) ([]Repository, error) {
	params := map[string]string{
		"role": role,
		"q":    query,
		"sort": "-updated_on",
	}
	return ListAll[Repository](ctx, c, "repositories/"+url.PathEscape(workspace), params, maxPages)
}

// GetRepository fetches a single repository.
func (c *Client) GetRepository(ctx context.Context, workspace, repoSlug string) (*Repository, error) {
	var repo Repository
	if err := c.Get(ctx, repoPath(workspace, repoSlug), nil, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// ListBranches lists the branches of a repository.
func (c *Client) ListBranches(ctx context.Context, workspace, repoSlug string, maxPages int) ([]Branch, error) {
	return ListAll[Branch](ctx, c, repoPath(workspace, repoSlug)+"/refs/branches", nil, maxPages)
}

// ListPullRequests lists pull requests, optionally filtered by state
// (OPEN, MERGED, DECLINED, SUPERSEDED).
func (c *Client) ListPullRequests(ctx context.Context, workspace, repoSlug, state string, maxPages int) ([]PullRequest, error) {
	params := map[string]string{"state": strings.ToUpper(state)}
	return ListAll[PullRequest](ctx, c, repoPath(workspace, repoSlug)+"/pullrequests", params, maxPages)
}

// GetPullRequest fetches a single pull request.
func (c *Client) GetPullRequest(ctx context.Context, workspace, repoSlug string, id int) (*PullRequest, error) {
	var pr PullRequest
	if err := c.Get(ctx, fmt.Sprintf("%s/pullrequests/%d", repoPath(workspace, repoSlug), id), nil, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// CreatePullRequest opens a new pull request from the source branch onto
// the destination branch.
func (c *Client) CreatePullRequest(ctx context.Context, workspace, repoSlug string, newPR *NewPullRequest) (*PullRequest, error) {
	body := map[string]interface{}{
		"title": newPR.Title,
		"source": map[string]interface{}{
			"branch": map[string]string{"name": newPR.SourceBranch},
		},
	}
	if newPR.Description != "" {
		body["description"] = newPR.Description
	}
	if newPR.DestinationBranch != "" {
		body["destination"] = map[string]interface{}{
			"branch": map[string]string{"name": newPR.DestinationBranch},
		}
	}
	if newPR.CloseSourceBranch {
		body["close_source_branch"] = true
	}

	var pr PullRequest
	if err := c.Post(ctx, repoPath(workspace, repoSlug)+"/pullrequests", body, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// UpdatePullRequest edits the title and/or description of a pull request.
// Empty fields are left unchanged.
func (c *Client) UpdatePullRequest(ctx context.Context, workspace, repoSlug string, id int, title, description string) (*PullRequest, error) {
	body := map[string]interface{}{}
	if title != "" {
		body["title"] = title
	}
	if description != "" {
		body["description"] = description
	}

	var pr PullRequest
	if err := c.Put(ctx, fmt.Sprintf("%s/pullrequests/%d", repoPath(workspace, repoSlug), id), body, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// ApprovePullRequest records the authenticated user's approval.
func (c *Client) ApprovePullRequest(ctx context.Context, workspace, repoSlug string, id int) error {
	return c.Post(ctx, fmt.Sprintf("%s/pullrequests/%d/approve", repoPath(workspace, repoSlug), id), nil, nil)
}

// UnapprovePullRequest withdraws the authenticated user's approval.
func (c *Client) UnapprovePullRequest(ctx context.Context, workspace, repoSlug string, id int) error {
	return c.Delete(ctx, fmt.Sprintf("%s/pullrequests/%d/approve", repoPath(workspace, repoSlug), id))
}

// MergePullRequest merges a pull request. opts may be nil for server
// defaults.
func (c *Client) MergePullRequest(ctx context.Context, workspace, repoSlug string, id int, opts *MergeOptions) (*PullRequest, error) {
	var body interface{}
	if opts != nil {
		body = opts
	}

	var pr PullRequest
	if err := c.Post(ctx, fmt.Sprintf("%s/pullrequests/%d/merge", repoPath(workspace, repoSlug), id), body, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// DeclinePullRequest declines (closes without merging) a pull request.
func (c *Client) DeclinePullRequest(ctx context.Context, workspace, repoSlug string, id int) (*PullRequest, error) {
	var pr PullRequest
	if err := c.Post(ctx, fmt.Sprintf("%s/pullrequests/%d/decline", repoPath(workspace, repoSlug), id), nil, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// ListPullRequestComments lists the comments of a pull request.
func (c *Client) ListPullRequestComments(ctx context.Context, workspace, repoSlug string, id, maxPages int) ([]Comment, error) {
	return ListAll[Comment](ctx, c, fmt.Sprintf("%s/pullrequests/%d/comments", repoPath(workspace, repoSlug), id), nil, maxPages)
}

// CommentPullRequest adds a comment to a pull request. inline may be nil
// for a general comment.
func (c *Client) CommentPullRequest(ctx context.Context, workspace, repoSlug string, id int, content string, inline *InlineLocation) (*Comment, error) {
	body := map[string]interface{}{
		"content": map[string]string{"raw": content},
	}
	if inline != nil {
		body["inline"] = inline
	}

	var comment Comment
	if err := c.Post(ctx, fmt.Sprintf("%s/pullrequests/%d/comments", repoPath(workspace, repoSlug), id), body, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListPullRequestCommits lists the commits on a pull request, newest first.
func (c *Client) ListPullRequestCommits(ctx context.Context, workspace, repoSlug string, id, maxPages int) ([]Commit, error) {
	return ListAll[Commit](ctx, c, fmt.Sprintf("%s/pullrequests/%d/commits", repoPath(workspace, repoSlug), id), nil, maxPages)
}

// GetPullRequestDiff fetches the unified diff of a pull request as text.
func (c *Client) GetPullRequestDiff(ctx context.Context, workspace, repoSlug string, id int) (string, error) {
	return c.GetRaw(ctx, fmt.Sprintf("%s/pullrequests/%d/diff", repoPath(workspace, repoSlug), id), nil)
}

// ListIssues lists issue-tracker issues, optionally filtered by a
// Bitbucket query expression.
func (c *Client) ListIssues(ctx context.Context, workspace, repoSlug, query string, maxPages int) ([]Issue, error) {
	params := map[string]string{"q": query}
	return ListAll[Issue](ctx, c, repoPath(workspace, repoSlug)+"/issues", params, maxPages)
}

// GetIssue fetches a single issue.
func (c *Client) GetIssue(ctx context.Context, workspace, repoSlug string, id int) (*Issue, error) {
	var issue Issue
	if err := c.Get(ctx, fmt.Sprintf("%s/issues/%d", repoPath(workspace, repoSlug), id), nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// CreateIssue opens a new issue.
func (c *Client) CreateIssue(ctx context.Context, workspace, repoSlug string, newIssue *NewIssue) (*Issue, error) {
	body := map[string]interface{}{
		"title": newIssue.Title,
	}
	if newIssue.Content != "" {
		body["content"] = map[string]string{"raw": newIssue.Content}
	}
	if newIssue.Kind != "" {
		body["kind"] = newIssue.Kind
	}
	if newIssue.Priority != "" {
		body["priority"] = newIssue.Priority
	}

	var issue Issue
	if err := c.Post(ctx, repoPath(workspace, repoSlug)+"/issues", body, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// CommentIssue adds a comment to an issue.
func (c *Client) CommentIssue(ctx context.Context, workspace, repoSlug string, id int, content string) (*Comment, error) {
	body := map[string]interface{}{
		"content": map[string]string{"raw": content},
	}

	var comment Comment
	if err := c.Post(ctx, fmt.Sprintf("%s/issues/%d/comments", repoPath(workspace, repoSlug), id), body, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListPipelines lists pipeline runs, newest first.
func (c *Client) ListPipelines(ctx context.Context, workspace, repoSlug string, maxPages int) ([]Pipeline, error) {
	params := map[string]string{"sort": "-created_on"}
	return ListAll[Pipeline](ctx, c, repoPath(workspace, repoSlug)+"/pipelines/", params, maxPages)
}

// GetPipeline fetches a single pipeline run by UUID (including the braces
// Bitbucket wraps around it).
func (c *Client) GetPipeline(ctx context.Context, workspace, repoSlug, pipelineUUID string) (*Pipeline, error) {
	var pipeline Pipeline
	if err := c.Get(ctx, fmt.Sprintf("%s/pipelines/%s", repoPath(workspace, repoSlug), url.PathEscape(pipelineUUID)), nil, &pipeline); err != nil {
		return nil, err
	}
	return &pipeline, nil
}

// TriggerPipeline starts a pipeline run on the given branch.
func (c *Client) TriggerPipeline(ctx context.Context, workspace, repoSlug, branch string) (*Pipeline, error) {
	body := map[string]interface{}{
		"target": map[string]string{
			"ref_type": "branch",
			"ref_name": branch,
			"type":     "pipeline_ref_target",
		},
	}

	var pipeline Pipeline
	if err := c.Post(ctx, repoPath(workspace, repoSlug)+"/pipelines/", body, &pipeline); err != nil {
		return nil, err
	}
	return &pipeline, nil
}

// StopPipeline requests that a running pipeline be halted.
func (c *Client) StopPipeline(ctx context.Context, workspace, repoSlug, pipelineUUID string) error {
	return c.Post(ctx, fmt.Sprintf("%s/pipelines/%s/stopPipeline", repoPath(workspace, repoSlug), url.PathEscape(pipelineUUID)), nil, nil)
}

// GetFileContent fetches the raw content of a file at the given commit or
// branch ref.
func (c *Client) GetFileContent(ctx context.Context, workspace, repoSlug, ref, path string) (string, error) {
	// File paths may contain slashes; escape each segment individually.
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return c.GetRaw(ctx, fmt.Sprintf("%s/src/%s/%s", repoPath(workspace, repoSlug), url.PathEscape(ref), strings.Join(segments, "/")), nil)
}

// CommitFiles creates a commit on branch writing the given files, where
// each map key is a repository path and the value the full new content.
func (c *Client) CommitFiles(ctx context.Context, workspace, repoSlug, branch, message string, files map[string]string) error {
	fields := map[string]string{
		"message": message,
		"branch":  branch,
	}
	for path, content := range files {
		fields[path] = content
	}

	form, err := NewFileForm(fields)
	if err != nil {
		return err
	}
	return c.PostForm(ctx, repoPath(workspace, repoSlug)+"/src", form, nil)
}

// GetCurrentUser fetches the authenticated account.
func (c *Client) GetCurrentUser(ctx context.Context) (*Account, error) {
	var account Account
	if err := c.Get(ctx, "user", nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}
