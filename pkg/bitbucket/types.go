package bitbucket

import "time"

// PaginatedResponse is the envelope Bitbucket wraps around every collection
// endpoint. Values preserves server order. Next, when set, is an absolute
// URL to the following page with all query parameters already embedded.
type PaginatedResponse[T any] struct {
	Size    int    `json:"size"`
	Page    int    `json:"page"`
	Pagelen int    `json:"pagelen"`
	Next    string `json:"next,omitempty"`
	Values  []T    `json:"values"`
}

// Link is a single hyperlink in a resource's links object.
type Link struct {
	Href string `json:"href"`
}

// Links holds the hyperlinks Bitbucket attaches to most resources. Only the
// ones the server renders are modeled.
type Links struct {
	HTML Link `json:"html,omitempty"`
	Diff Link `json:"diff,omitempty"`
}

// Account represents a Bitbucket user or team account.
type Account struct {
	UUID        string `json:"uuid,omitempty"`
	AccountID   string `json:"account_id,omitempty"`
	Username    string `json:"username,omitempty"`
	Nickname    string `json:"nickname,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Type        string `json:"type,omitempty"` // "user" or "team"
}

// Branch is a named ref inside a repository.
type Branch struct {
	Name   string  `json:"name"`
	Target *Commit `json:"target,omitempty"`
}

// Commit represents a single commit.
type Commit struct {
	Hash    string       `json:"hash"`
	Message string       `json:"message,omitempty"`
	Date    time.Time    `json:"date,omitempty"`
	Author  CommitAuthor `json:"author,omitempty"`
	Links   Links        `json:"links,omitempty"`
}

// CommitAuthor carries both the raw signature line and the resolved account,
// when Bitbucket can map the email to one.
type CommitAuthor struct {
	Raw  string   `json:"raw,omitempty"`
	User *Account `json:"user,omitempty"`
}

// Repository represents a Bitbucket repository.
type Repository struct {
	UUID        string    `json:"uuid,omitempty"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	FullName    string    `json:"full_name"`
	Description string    `json:"description,omitempty"`
	IsPrivate   bool      `json:"is_private"`
	Language    string    `json:"language,omitempty"`
	Size        int64     `json:"size,omitempty"`
	CreatedOn   time.Time `json:"created_on,omitempty"`
	UpdatedOn   time.Time `json:"updated_on,omitempty"`
	MainBranch  *Branch   `json:"mainbranch,omitempty"`
	Owner       *Account  `json:"owner,omitempty"`
	Links       Links     `json:"links,omitempty"`
}

// PullRequestEndpoint is one side of a pull request (source or destination).
type PullRequestEndpoint struct {
	Branch     Branch      `json:"branch"`
	Commit     *Commit     `json:"commit,omitempty"`
	Repository *Repository `json:"repository,omitempty"`
}

// PullRequest represents a Bitbucket pull request. State is one of OPEN,
// MERGED, DECLINED or SUPERSEDED.
type PullRequest struct {
	ID                int                 `json:"id"`
	Title             string              `json:"title"`
	Description       string              `json:"description,omitempty"`
	State             string              `json:"state"`
	Author            *Account            `json:"author,omitempty"`
	Source            PullRequestEndpoint `json:"source"`
	Destination       PullRequestEndpoint `json:"destination"`
	CloseSourceBranch bool                `json:"close_source_branch,omitempty"`
	CommentCount      int                 `json:"comment_count,omitempty"`
	TaskCount         int                 `json:"task_count,omitempty"`
	Reason            string              `json:"reason,omitempty"`
	MergeCommit       *Commit             `json:"merge_commit,omitempty"`
	CreatedOn         time.Time           `json:"created_on,omitempty"`
	UpdatedOn         time.Time           `json:"updated_on,omitempty"`
	Links             Links               `json:"links,omitempty"`
}

// RenderedContent is Bitbucket's rich-text payload; Raw is the authored
// markup, HTML the rendered form.
type RenderedContent struct {
	Raw    string `json:"raw,omitempty"`
	Markup string `json:"markup,omitempty"`
	HTML   string `json:"html,omitempty"`
}

// Comment represents a comment on a pull request or issue.
type Comment struct {
	ID        int             `json:"id"`
	Content   RenderedContent `json:"content"`
	User      *Account        `json:"user,omitempty"`
	Inline    *InlineLocation `json:"inline,omitempty"`
	CreatedOn time.Time       `json:"created_on,omitempty"`
	UpdatedOn time.Time       `json:"updated_on,omitempty"`
	Deleted   bool            `json:"deleted,omitempty"`
	Links     Links           `json:"links,omitempty"`
}

// InlineLocation anchors a comment to a file position in the diff.
type InlineLocation struct {
	Path string `json:"path"`
	From int    `json:"from,omitempty"`
	To   int    `json:"to,omitempty"`
}

// Issue represents a Bitbucket issue-tracker issue.
type Issue struct {
	ID        int             `json:"id"`
	Title     string          `json:"title"`
	Content   RenderedContent `json:"content,omitempty"`
	State     string          `json:"state,omitempty"` // new, open, resolved, ...
	Kind      string          `json:"kind,omitempty"`  // bug, enhancement, proposal, task
	Priority  string          `json:"priority,omitempty"`
	Reporter  *Account        `json:"reporter,omitempty"`
	Assignee  *Account        `json:"assignee,omitempty"`
	Votes     int             `json:"votes,omitempty"`
	CreatedOn time.Time       `json:"created_on,omitempty"`
	UpdatedOn time.Time       `json:"updated_on,omitempty"`
	Links     Links           `json:"links,omitempty"`
}

// PipelineState is the nested state object of a pipeline run.
type PipelineState struct {
	Name   string `json:"name"` // PENDING, IN_PROGRESS, COMPLETED
	Result *struct {
		Name string `json:"name"` // SUCCESSFUL, FAILED, STOPPED, ERROR
	} `json:"result,omitempty"`
}

// PipelineTarget describes what a pipeline ran against.
type PipelineTarget struct {
	RefType string `json:"ref_type,omitempty"`
	RefName string `json:"ref_name,omitempty"`
	Type    string `json:"type,omitempty"`
	Selector *struct {
		Type    string `json:"type,omitempty"`
		Pattern string `json:"pattern,omitempty"`
	} `json:"selector,omitempty"`
}

// Pipeline represents a single pipeline run.
type Pipeline struct {
	UUID        string         `json:"uuid"`
	BuildNumber int            `json:"build_number"`
	State       PipelineState  `json:"state"`
	Target      PipelineTarget `json:"target,omitempty"`
	Creator     *Account       `json:"creator,omitempty"`
	CreatedOn   time.Time      `json:"created_on,omitempty"`
	CompletedOn *time.Time     `json:"completed_on,omitempty"`
	DurationSec int            `json:"duration_in_seconds,omitempty"`
}

// NewPullRequest contains the fields for creating a pull request.
type NewPullRequest struct {
	Title             string `json:"title"`
	Description       string `json:"description,omitempty"`
	SourceBranch      string `json:"-"`
	DestinationBranch string `json:"-"`
	CloseSourceBranch bool   `json:"close_source_branch,omitempty"`
}

// NewIssue contains the fields for creating an issue.
type NewIssue struct {
	Title    string `json:"title"`
	Content  string `json:"-"`
	Kind     string `json:"kind,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// MergeOptions tunes how a pull request merge is performed.
type MergeOptions struct {
	Message           string `json:"message,omitempty"`
	MergeStrategy     string `json:"merge_strategy,omitempty"` // merge_commit, squash, fast_forward
	CloseSourceBranch bool   `json:"close_source_branch,omitempty"`
}
