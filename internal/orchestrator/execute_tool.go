package orchestrator

import (
	"context"
	"time"

	"university-query-engine/internal/domain"
)

const defaultToolTimeoutSeconds = 15

// runTool is S5 for the single-tool case the policy table always produces
// (§4.9's "sequentially when one tool's output feeds another" is honored
// internally by analyze_image, which performs its own RAG follow-up; see
// DESIGN.md). Each call is bounded by a per-tool timeout and always
// produces a ToolCall record, win or lose.
func (o *Orchestrator) runTool(ctx context.Context, req Request, d decision, convContext string) domain.ToolCall {
	timeoutSeconds := o.Config.ToolTimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = defaultToolTimeoutSeconds
	}
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	if convContext != "" {
		d.Args["conversation_context"] = convContext
	}

	started := time.Now()
	call := domain.ToolCall{
		ToolType:        d.Primary,
		Arguments:       d.Args,
		ExecutionStatus: domain.ExecRunning,
		StartedAt:       started,
	}

	if o.Tools == nil || !o.Tools.Has(d.Primary) {
		call.ExecutionStatus = domain.ExecFailed
		call.Error = "no handler registered for " + string(d.Primary)
		call.CompletedAt = time.Now()
		call.ExecutionTimeMS = call.CompletedAt.Sub(started).Milliseconds()
		return call
	}

	result, err := o.Tools.Dispatch(callCtx, d.Primary, d.Args)
	call.CompletedAt = time.Now()
	call.ExecutionTimeMS = call.CompletedAt.Sub(started).Milliseconds()
	if err != nil {
		call.ExecutionStatus = domain.ExecFailed
		call.Error = err.Error()
		return call
	}
	call.ExecutionStatus = domain.ExecSucceeded
	call.Result = result
	return call
}
