package bitbucket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
)

func TestGetRepository(t *testing.T) {
	var gotMethod, gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"slug": "site",
			"name": "Site",
			"full_name": "ws/site",
			"is_private": true,
			"mainbranch": {"name": "main"}
		}`)
	})

	repo, err := client.GetRepository(context.Background(), "ws", "site")
	if err != nil {
		t.Fatalf("GetRepository() error = %v", err)
	}

	if gotMethod != http.MethodGet {
		t.Errorf("method = %s, want GET", gotMethod)
	}
	if gotPath != "/repositories/ws/site" {
		t.Errorf("path = %s, want /repositories/ws/site", gotPath)
	}
	if repo.FullName != "ws/site" {
		t.Errorf("FullName = %q", repo.FullName)
	}
	if repo.MainBranch == nil || repo.MainBranch.Name != "main" {
		t.Errorf("MainBranch = %+v, want main", repo.MainBranch)
	}
}

func TestListPullRequestsStateFilter(t *testing.T) {
	var gotState string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotState = r.URL.Query().Get("state")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"values": [{"id": 1, "title": "First", "state": "OPEN", "source": {"branch": {"name": "f"}}, "destination": {"branch": {"name": "main"}}}]}`)
	})

	prs, err := client.ListPullRequests(context.Background(), "ws", "site", "open", 0)
	if err != nil {
		t.Fatalf("ListPullRequests() error = %v", err)
	}

	if gotState != "OPEN" {
		t.Errorf("state param = %q, want OPEN (upper-cased)", gotState)
	}
	if len(prs) != 1 || prs[0].ID != 1 {
		t.Fatalf("prs = %+v", prs)
	}
	if prs[0].Source.Branch.Name != "f" {
		t.Errorf("Source.Branch.Name = %q", prs[0].Source.Branch.Name)
	}
}

func TestCreatePullRequestBody(t *testing.T) {
	var body map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": 9, "title": "Add feature", "state": "OPEN", "source": {"branch": {"name": "feature"}}, "destination": {"branch": {"name": "main"}}}`)
	})

	pr, err := client.CreatePullRequest(context.Background(), "ws", "site", &NewPullRequest{
		Title:             "Add feature",
		Description:       "details",
		SourceBranch:      "feature",
		DestinationBranch: "main",
		CloseSourceBranch: true,
	})
	if err != nil {
		t.Fatalf("CreatePullRequest() error = %v", err)
	}
	if pr.ID != 9 {
		t.Errorf("ID = %d, want 9", pr.ID)
	}

	source := body["source"].(map[string]interface{})["branch"].(map[string]interface{})["name"]
	if source != "feature" {
		t.Errorf("source branch = %v, want feature", source)
	}
	if body["close_source_branch"] != true {
		t.Errorf("close_source_branch = %v, want true", body["close_source_branch"])
	}
}

func TestMergePullRequest(t *testing.T) {
	var gotMethod, gotPath string
	var body map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": 7, "state": "MERGED", "source": {"branch": {"name": "f"}}, "destination": {"branch": {"name": "main"}}}`)
	})

	pr, err := client.MergePullRequest(context.Background(), "ws", "site", 7, &MergeOptions{
		MergeStrategy:     "squash",
		CloseSourceBranch: true,
	})
	if err != nil {
		t.Fatalf("MergePullRequest() error = %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if gotPath != "/repositories/ws/site/pullrequests/7/merge" {
		t.Errorf("path = %s", gotPath)
	}
	if body["merge_strategy"] != "squash" {
		t.Errorf("merge_strategy = %v", body["merge_strategy"])
	}
	if pr.State != "MERGED" {
		t.Errorf("State = %q, want MERGED", pr.State)
	}
}

func TestUnapprovePullRequestUsesDelete(t *testing.T) {
	var gotMethod, gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.UnapprovePullRequest(context.Background(), "ws", "site", 3); err != nil {
		t.Fatalf("UnapprovePullRequest() error = %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Errorf("method = %s, want DELETE", gotMethod)
	}
	if gotPath != "/repositories/ws/site/pullrequests/3/approve" {
		t.Errorf("path = %s", gotPath)
	}
}

func TestGetPullRequestDiff(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "diff --git a/x b/x\n+added\n")
	})

	diff, err := client.GetPullRequestDiff(context.Background(), "ws", "site", 5)
	if err != nil {
		t.Fatalf("GetPullRequestDiff() error = %v", err)
	}
	if diff != "diff --git a/x b/x\n+added\n" {
		t.Errorf("diff = %q", diff)
	}
}

func TestTriggerPipeline(t *testing.T) {
	var body map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"uuid": "{abc}", "build_number": 12, "state": {"name": "PENDING"}}`)
	})

	pipeline, err := client.TriggerPipeline(context.Background(), "ws", "site", "main")
	if err != nil {
		t.Fatalf("TriggerPipeline() error = %v", err)
	}

	target := body["target"].(map[string]interface{})
	if target["ref_name"] != "main" || target["ref_type"] != "branch" {
		t.Errorf("target = %v", target)
	}
	if pipeline.BuildNumber != 12 {
		t.Errorf("BuildNumber = %d, want 12", pipeline.BuildNumber)
	}
}

func TestCommitFiles(t *testing.T) {
	var gotPath, branch, message, content string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
		}
		branch = r.FormValue("branch")
		message = r.FormValue("message")
		content = r.FormValue("README.md")
		w.WriteHeader(http.StatusCreated)
	})

	err := client.CommitFiles(context.Background(), "ws", "site", "main", "docs update", map[string]string{
		"README.md": "# hello",
	})
	if err != nil {
		t.Fatalf("CommitFiles() error = %v", err)
	}

	if gotPath != "/repositories/ws/site/src" {
		t.Errorf("path = %s", gotPath)
	}
	if branch != "main" || message != "docs update" || content != "# hello" {
		t.Errorf("form fields = %q %q %q", branch, message, content)
	}
}

func TestGetFileContentEscapesPath(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "package main\n")
	})

	content, err := client.GetFileContent(context.Background(), "ws", "site", "main", "cmd/app/main.go")
	if err != nil {
		t.Fatalf("GetFileContent() error = %v", err)
	}
	if gotPath != "/repositories/ws/site/src/main/cmd/app/main.go" {
		t.Errorf("path = %s", gotPath)
	}
	if content != "package main\n" {
		t.Errorf("content = %q", content)
	}
}

func TestGetCurrentUser(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user" {
			t.Errorf("path = %s, want /user", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"display_name": "Dev Eloper", "nickname": "dev", "account_id": "1234"}`)
	})

	account, err := client.GetCurrentUser(context.Background())
	if err != nil {
		t.Fatalf("GetCurrentUser() error = %v", err)
	}
	if account.DisplayName != "Dev Eloper" {
		t.Errorf("DisplayName = %q", account.DisplayName)
	}
}

func TestUpdatePullRequestOmitsEmptyFields(t *testing.T) {
	var gotMethod, gotPath string
	var body map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": 7, "title": "Renamed", "state": "OPEN", "source": {"branch": {"name": "f"}}, "destination": {"branch": {"name": "main"}}}`)
	})

	pr, err := client.UpdatePullRequest(context.Background(), "ws", "site", 7, "Renamed", "")
	if err != nil {
		t.Fatalf("UpdatePullRequest() error = %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("method = %s, want PUT", gotMethod)
	}
	if gotPath != "/repositories/ws/site/pullrequests/7" {
		t.Errorf("path = %s", gotPath)
	}
	if body["title"] != "Renamed" {
		t.Errorf("body title = %v", body["title"])
	}
	if _, ok := body["description"]; ok {
		t.Error("empty description should not be sent")
	}
	if pr.Title != "Renamed" {
		t.Errorf("Title = %q", pr.Title)
	}
}

func TestCommentIssue(t *testing.T) {
	var gotPath string
	var body map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": 41, "content": {"raw": "looking into it"}}`)
	})

	comment, err := client.CommentIssue(context.Background(), "ws", "site", 12, "looking into it")
	if err != nil {
		t.Fatalf("CommentIssue() error = %v", err)
	}

	if gotPath != "/repositories/ws/site/issues/12/comments" {
		t.Errorf("path = %s", gotPath)
	}
	content, _ := body["content"].(map[string]interface{})
	if content["raw"] != "looking into it" {
		t.Errorf("content.raw = %v", content["raw"])
	}
	if comment.ID != 41 {
		t.Errorf("ID = %d", comment.ID)
	}
}

func TestGetPipelineEscapesUUID(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"uuid": "{abc-123}", "build_number": 5, "state": {"name": "IN_PROGRESS"}}`)
	})

	pipeline, err := client.GetPipeline(context.Background(), "ws", "site", "{abc-123}")
	if err != nil {
		t.Fatalf("GetPipeline() error = %v", err)
	}

	if gotPath != "/repositories/ws/site/pipelines/%7Babc-123%7D" {
		t.Errorf("path = %s, braces should be escaped", gotPath)
	}
	if pipeline.BuildNumber != 5 {
		t.Errorf("BuildNumber = %d", pipeline.BuildNumber)
	}
}

func TestStopPipeline(t *testing.T) {
	var gotMethod, gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.StopPipeline(context.Background(), "ws", "site", "{abc-123}"); err != nil {
		t.Fatalf("StopPipeline() error = %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if gotPath != "/repositories/ws/site/pipelines/%7Babc-123%7D/stopPipeline" {
		t.Errorf("path = %s", gotPath)
	}
}
