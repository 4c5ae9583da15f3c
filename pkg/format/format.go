// Package format renders Bitbucket resources as compact plain text suitable
// for tool results. Formatters are pure functions over the API types and
// never touch the network.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/or2ooo/bitbucket-mcp/pkg/bitbucket"
)

const dateLayout = "2006-01-02 15:04"

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.UTC().Format(dateLayout)
}

func accountName(a *bitbucket.Account) string {
	if a == nil {
		return "unknown"
	}
	if a.DisplayName != "" {
		return a.DisplayName
	}
	if a.Nickname != "" {
		return a.Nickname
	}
	return a.Username
}

// Repository renders a single repository with its metadata.
func Repository(repo *bitbucket.Repository) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s\n", repo.FullName)
	if repo.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", repo.Description)
	}
	visibility := "public"
	if repo.IsPrivate {
		visibility = "private"
	}
	fmt.Fprintf(&b, "Visibility: %s\n", visibility)
	if repo.Language != "" {
		fmt.Fprintf(&b, "Language: %s\n", repo.Language)
	}
	if repo.MainBranch != nil {
		fmt.Fprintf(&b, "Main branch: %s\n", repo.MainBranch.Name)
	}
	fmt.Fprintf(&b, "Updated: %s\n", formatDate(repo.UpdatedOn))
	if repo.Links.HTML.Href != "" {
		fmt.Fprintf(&b, "URL: %s\n", repo.Links.HTML.Href)
	}
	return b.String()
}

// RepositoryList renders repositories one per line.
func RepositoryList(workspace string, repos []bitbucket.Repository) string {
	if len(repos) == 0 {
		return fmt.Sprintf("No repositories found in workspace %q.", workspace)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d repositories in workspace %q:\n", len(repos), workspace)
	for _, repo := range repos {
		line := fmt.Sprintf("- %s", repo.FullName)
		if repo.Language != "" {
			line += fmt.Sprintf(" [%s]", repo.Language)
		}
		if repo.Description != "" {
			line += " - " + truncate(repo.Description, 80)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// BranchList renders branch names with their head commits.
func BranchList(repo string, branches []bitbucket.Branch) string {
	if len(branches) == 0 {
		return fmt.Sprintf("No branches found in %s.", repo)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Branches in %s:\n", repo)
	for _, br := range branches {
		line := "- " + br.Name
		if br.Target != nil && br.Target.Hash != "" {
			line += fmt.Sprintf(" (%s)", shortHash(br.Target.Hash))
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// PullRequest renders a single pull request in full.
func PullRequest(pr *bitbucket.PullRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PR #%d: %s\n", pr.ID, pr.Title)
	fmt.Fprintf(&b, "State: %s\n", pr.State)
	fmt.Fprintf(&b, "Author: %s\n", accountName(pr.Author))
	fmt.Fprintf(&b, "Branch: %s -> %s\n", pr.Source.Branch.Name, pr.Destination.Branch.Name)
	fmt.Fprintf(&b, "Updated: %s\n", formatDate(pr.UpdatedOn))
	if pr.CommentCount > 0 {
		fmt.Fprintf(&b, "Comments: %d\n", pr.CommentCount)
	}
	if pr.Reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", pr.Reason)
	}
	if pr.Links.HTML.Href != "" {
		fmt.Fprintf(&b, "URL: %s\n", pr.Links.HTML.Href)
	}
	if pr.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", pr.Description)
	}
	return b.String()
}

// PullRequestList renders pull requests one per line.
func PullRequestList(repo string, prs []bitbucket.PullRequest) string {
	if len(prs) == 0 {
		return fmt.Sprintf("No pull requests found in %s.", repo)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d pull requests in %s:\n", len(prs), repo)
	for _, pr := range prs {
		fmt.Fprintf(&b, "- #%d [%s] %s (%s -> %s, by %s)\n",
			pr.ID, pr.State, pr.Title,
			pr.Source.Branch.Name, pr.Destination.Branch.Name,
			accountName(pr.Author))
	}
	return b.String()
}

// CommentList renders pull request or issue comments.
func CommentList(comments []bitbucket.Comment) string {
	if len(comments) == 0 {
		return "No comments."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d comments:\n", len(comments))
	for _, c := range comments {
		if c.Deleted {
			continue
		}
		fmt.Fprintf(&b, "--- %s (%s)", accountName(c.User), formatDate(c.CreatedOn))
		if c.Inline != nil {
			fmt.Fprintf(&b, " on %s:%d", c.Inline.Path, c.Inline.To)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s\n", c.Content.Raw)
	}
	return b.String()
}

// CommitList renders commits one per line.
func CommitList(commits []bitbucket.Commit) string {
	if len(commits) == 0 {
		return "No commits."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d commits:\n", len(commits))
	for _, c := range commits {
		fmt.Fprintf(&b, "- %s %s\n", shortHash(c.Hash), firstLine(c.Message))
	}
	return b.String()
}

// Issue renders a single issue in full.
func Issue(issue *bitbucket.Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Issue #%d: %s\n", issue.ID, issue.Title)
	fmt.Fprintf(&b, "State: %s\n", issue.State)
	if issue.Kind != "" {
		fmt.Fprintf(&b, "Kind: %s\n", issue.Kind)
	}
	if issue.Priority != "" {
		fmt.Fprintf(&b, "Priority: %s\n", issue.Priority)
	}
	fmt.Fprintf(&b, "Reporter: %s\n", accountName(issue.Reporter))
	if issue.Assignee != nil {
		fmt.Fprintf(&b, "Assignee: %s\n", accountName(issue.Assignee))
	}
	fmt.Fprintf(&b, "Updated: %s\n", formatDate(issue.UpdatedOn))
	if issue.Content.Raw != "" {
		fmt.Fprintf(&b, "\n%s\n", issue.Content.Raw)
	}
	return b.String()
}

// IssueList renders issues one per line.
func IssueList(repo string, issues []bitbucket.Issue) string {
	if len(issues) == 0 {
		return fmt.Sprintf("No issues found in %s.", repo)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d issues in %s:\n", len(issues), repo)
	for _, issue := range issues {
		line := fmt.Sprintf("- #%d [%s] %s", issue.ID, issue.State, issue.Title)
		if issue.Kind != "" {
			line += fmt.Sprintf(" (%s)", issue.Kind)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// Pipeline renders a single pipeline run.
func Pipeline(p *bitbucket.Pipeline) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pipeline #%d\n", p.BuildNumber)
	fmt.Fprintf(&b, "Status: %s\n", pipelineStatus(p))
	if p.Target.RefName != "" {
		fmt.Fprintf(&b, "Ref: %s\n", p.Target.RefName)
	}
	fmt.Fprintf(&b, "Triggered by: %s\n", accountName(p.Creator))
	fmt.Fprintf(&b, "Created: %s\n", formatDate(p.CreatedOn))
	if p.DurationSec > 0 {
		fmt.Fprintf(&b, "Duration: %ds\n", p.DurationSec)
	}
	return b.String()
}

// PipelineList renders pipeline runs one per line.
func PipelineList(repo string, pipelines []bitbucket.Pipeline) string {
	if len(pipelines) == 0 {
		return fmt.Sprintf("No pipelines found in %s.", repo)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d pipelines in %s:\n", len(pipelines), repo)
	for _, p := range pipelines {
		line := fmt.Sprintf("- #%d [%s]", p.BuildNumber, pipelineStatus(&p))
		if p.Target.RefName != "" {
			line += " " + p.Target.RefName
		}
		line += fmt.Sprintf(" (%s)", formatDate(p.CreatedOn))
		b.WriteString(line + "\n")
	}
	return b.String()
}

// Account renders the authenticated user.
func Account(a *bitbucket.Account) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Authenticated as: %s\n", accountName(a))
	if a.Username != "" {
		fmt.Fprintf(&b, "Username: %s\n", a.Username)
	}
	if a.UUID != "" {
		fmt.Fprintf(&b, "UUID: %s\n", a.UUID)
	}
	return b.String()
}

func pipelineStatus(p *bitbucket.Pipeline) string {
	if p.State.Result != nil && p.State.Result.Name != "" {
		return p.State.Result.Name
	}
	return p.State.Name
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
