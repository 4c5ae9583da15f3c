// Package server wires the Bitbucket client, the safety configuration and
// the tool handlers into an MCP server instance. No business logic lives
// here, only wiring.
package server

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/or2ooo/bitbucket-mcp/pkg/bitbucket"
	"github.com/or2ooo/bitbucket-mcp/pkg/config"
	"github.com/or2ooo/bitbucket-mcp/pkg/log"
	"github.com/or2ooo/bitbucket-mcp/pkg/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates the MCP server with every tool registered. The configuration
// must already be validated.
func New(ctx context.Context, cfg *config.Config) (*server.MCPServer, error) {
	client := bitbucket.NewClientFromConfig(ctx, cfg)

	s := server.NewMCPServer(
		"bitbucket-mcp",
		Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions(cfg)),
	)

	deps := &tools.Deps{Client: client, Config: cfg}

	listRepos := tools.NewListRepositoriesTool(deps)
	s.AddTool(listRepos.Definition(), listRepos.Handle)

	getRepo := tools.NewGetRepositoryTool(deps)
	s.AddTool(getRepo.Definition(), getRepo.Handle)

	listBranches := tools.NewListBranchesTool(deps)
	s.AddTool(listBranches.Definition(), listBranches.Handle)

	listPRs := tools.NewListPullRequestsTool(deps)
	s.AddTool(listPRs.Definition(), listPRs.Handle)

	getPR := tools.NewGetPullRequestTool(deps)
	s.AddTool(getPR.Definition(), getPR.Handle)

	createPR := tools.NewCreatePullRequestTool(deps)
	s.AddTool(createPR.Definition(), createPR.Handle)

	updatePR := tools.NewUpdatePullRequestTool(deps)
	s.AddTool(updatePR.Definition(), updatePR.Handle)

	approvePR := tools.NewApprovePullRequestTool(deps)
	s.AddTool(approvePR.Definition(), approvePR.Handle)

	mergePR := tools.NewMergePullRequestTool(deps)
	s.AddTool(mergePR.Definition(), mergePR.Handle)

	declinePR := tools.NewDeclinePullRequestTool(deps)
	s.AddTool(declinePR.Definition(), declinePR.Handle)

	commentPR := tools.NewCommentPullRequestTool(deps)
	s.AddTool(commentPR.Definition(), commentPR.Handle)

	prDiff := tools.NewGetPullRequestDiffTool(deps)
	s.AddTool(prDiff.Definition(), prDiff.Handle)

	prCommits := tools.NewListPullRequestCommitsTool(deps)
	s.AddTool(prCommits.Definition(), prCommits.Handle)

	listIssues := tools.NewListIssuesTool(deps)
	s.AddTool(listIssues.Definition(), listIssues.Handle)

	getIssue := tools.NewGetIssueTool(deps)
	s.AddTool(getIssue.Definition(), getIssue.Handle)

	createIssue := tools.NewCreateIssueTool(deps)
	s.AddTool(createIssue.Definition(), createIssue.Handle)

	commentIssue := tools.NewCommentIssueTool(deps)
	s.AddTool(commentIssue.Definition(), commentIssue.Handle)

	listPipelines := tools.NewListPipelinesTool(deps)
	s.AddTool(listPipelines.Definition(), listPipelines.Handle)

	getPipeline := tools.NewGetPipelineTool(deps)
	s.AddTool(getPipeline.Definition(), getPipeline.Handle)

	triggerPipeline := tools.NewTriggerPipelineTool(deps)
	s.AddTool(triggerPipeline.Definition(), triggerPipeline.Handle)

	stopPipeline := tools.NewStopPipelineTool(deps)
	s.AddTool(stopPipeline.Definition(), stopPipeline.Handle)

	getFile := tools.NewGetFileTool(deps)
	s.AddTool(getFile.Definition(), getFile.Handle)

	commitFile := tools.NewCommitFileTool(deps)
	s.AddTool(commitFile.Definition(), commitFile.Handle)

	currentUser := tools.NewCurrentUserTool(deps)
	s.AddTool(currentUser.Definition(), currentUser.Handle)

	log.Info("server initialized",
		"read_only", cfg.ReadOnly,
		"default_workspace", cfg.DefaultWorkspace,
		"allowed_workspaces", len(cfg.AllowedWorkspaces),
		"allowed_repos", len(cfg.AllowedRepos))

	return s, nil
}

// ServeStdio runs the server over stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func serverInstructions(cfg *config.Config) string {
	base := `You have access to Bitbucket Cloud through bb_* tools.

Reading (repositories, pull requests, issues, pipelines, files) needs no
confirmation. Destructive operations (merge, decline, trigger pipeline,
commit) require passing confirm=true; call them without it first so the user
sees what would happen, then retry with confirm=true once the user agrees.

When the user does not name a workspace, the configured default workspace is
used automatically.`
	if cfg.ReadOnly {
		base += `

This server runs in READ-ONLY mode: every write tool will be rejected. Do
not retry writes; tell the user the server configuration forbids them.`
	}
	return base
}
