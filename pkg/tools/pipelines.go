package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/or2ooo/bitbucket-mcp/pkg/bitbucket"
	"github.com/or2ooo/bitbucket-mcp/pkg/format"
	"github.com/or2ooo/bitbucket-mcp/pkg/policy"
)

// ListPipelinesTool lists pipeline runs.
type ListPipelinesTool struct {
	deps *Deps
}

func NewListPipelinesTool(deps *Deps) *ListPipelinesTool {
	return &ListPipelinesTool{deps: deps}
}

func (t *ListPipelinesTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_list_pipelines",
		mcp.WithDescription("List pipeline runs of a repository, newest first."),
		workspaceArg(),
		repoArg(),
		maxPagesArg(),
	)
}

func (t *ListPipelinesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoSlug, err := req.RequireString("repo_slug")
	if err != nil {
		return errorResult("bb_list_pipelines", err)
	}
	workspace, err := t.deps.resolveRepo(req.GetString("workspace", ""), repoSlug)
	if err != nil {
		return errorResult("bb_list_pipelines", err)
	}

	pipelines, err := t.deps.Client.ListPipelines(ctx, workspace, repoSlug,
		req.GetInt("max_pages", bitbucket.DefaultMaxPages))
	if err != nil {
		return errorResult("bb_list_pipelines", err)
	}
	return mcp.NewToolResultText(format.PipelineList(workspace+"/"+repoSlug, pipelines)), nil
}

// GetPipelineTool fetches a single pipeline run.
type GetPipelineTool struct {
	deps *Deps
}

func NewGetPipelineTool(deps *Deps) *GetPipelineTool {
	return &GetPipelineTool{deps: deps}
}

func (t *GetPipelineTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_get_pipeline",
		mcp.WithDescription("Get details of a single pipeline run."),
		workspaceArg(),
		repoArg(),
		pipelineUUIDArg(),
	)
}

func (t *GetPipelineTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoSlug, err := req.RequireString("repo_slug")
	if err != nil {
		return errorResult("bb_get_pipeline", err)
	}
	uuid, err := req.RequireString("pipeline_uuid")
	if err != nil {
		return errorResult("bb_get_pipeline", err)
	}
	workspace, err := t.deps.resolveRepo(req.GetString("workspace", ""), repoSlug)
	if err != nil {
		return errorResult("bb_get_pipeline", err)
	}

	pipeline, err := t.deps.Client.GetPipeline(ctx, workspace, repoSlug, uuid)
	if err != nil {
		return errorResult("bb_get_pipeline", err)
	}
	return mcp.NewToolResultText(format.Pipeline(pipeline)), nil
}

// StopPipelineTool halts a running pipeline. Requires confirmation because
// stopping a deploy mid-flight can leave the target half-updated.
type StopPipelineTool struct {
	deps *Deps
}

func NewStopPipelineTool(deps *Deps) *StopPipelineTool {
	return &StopPipelineTool{deps: deps}
}

func (t *StopPipelineTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_stop_pipeline",
		mcp.WithDescription("Stop a running pipeline. Requires confirm=true."),
		workspaceArg(),
		repoArg(),
		pipelineUUIDArg(),
		confirmArg("stop the pipeline"),
	)
}

func (t *StopPipelineTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := policy.CheckNotReadOnly(t.deps.Config); err != nil {
		return errorResult("bb_stop_pipeline", err)
	}
	if err := policy.RequireConfirmation(req.GetBool("confirm", false), "stopping a pipeline"); err != nil {
		return errorResult("bb_stop_pipeline", err)
	}
	repoSlug, err := req.RequireString("repo_slug")
	if err != nil {
		return errorResult("bb_stop_pipeline", err)
	}
	uuid, err := req.RequireString("pipeline_uuid")
	if err != nil {
		return errorResult("bb_stop_pipeline", err)
	}
	workspace, err := t.deps.resolveRepo(req.GetString("workspace", ""), repoSlug)
	if err != nil {
		return errorResult("bb_stop_pipeline", err)
	}

	if err := t.deps.Client.StopPipeline(ctx, workspace, repoSlug, uuid); err != nil {
		return errorResult("bb_stop_pipeline", err)
	}
	return mcp.NewToolResultText("Requested pipeline stop for " + uuid + "."), nil
}

func pipelineUUIDArg() mcp.ToolOption {
	return mcp.WithString("pipeline_uuid",
		mcp.Required(),
		mcp.Description("Pipeline UUID, including the surrounding braces."))
}

// TriggerPipelineTool starts a pipeline run on a branch. Requires
// confirmation because a run can deploy.
type TriggerPipelineTool struct {
	deps *Deps
}

func NewTriggerPipelineTool(deps *Deps) *TriggerPipelineTool {
	return &TriggerPipelineTool{deps: deps}
}

func (t *TriggerPipelineTool) Definition() mcp.Tool {
	return mcp.NewTool("bb_trigger_pipeline",
		mcp.WithDescription("Trigger a pipeline run on a branch. Requires confirm=true."),
		workspaceArg(),
		repoArg(),
		mcp.WithString("branch", mcp.Required(), mcp.Description("Branch to run the pipeline on.")),
		confirmArg("trigger the pipeline"),
	)
}

func (t *TriggerPipelineTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := policy.CheckNotReadOnly(t.deps.Config); err != nil {
		return errorResult("bb_trigger_pipeline", err)
	}
	if err := policy.RequireConfirmation(req.GetBool("confirm", false), "triggering a pipeline"); err != nil {
		return errorResult("bb_trigger_pipeline", err)
	}
	repoSlug, err := req.RequireString("repo_slug")
	if err != nil {
		return errorResult("bb_trigger_pipeline", err)
	}
	branch, err := req.RequireString("branch")
	if err != nil {
		return errorResult("bb_trigger_pipeline", err)
	}
	workspace, err := t.deps.resolveRepo(req.GetString("workspace", ""), repoSlug)
	if err != nil {
		return errorResult("bb_trigger_pipeline", err)
	}

	pipeline, err := t.deps.Client.TriggerPipeline(ctx, workspace, repoSlug, branch)
	if err != nil {
		return errorResult("bb_trigger_pipeline", err)
	}
	return mcp.NewToolResultText("Triggered pipeline.\n\n" + format.Pipeline(pipeline)), nil
}
