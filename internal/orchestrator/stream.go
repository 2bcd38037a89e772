package orchestrator

import (
	"context"
	"strings"

	"university-query-engine/internal/domain"
	"university-query-engine/internal/intent"
)

// EventKind tags one StreamEvent. A successful run emits sources →
// artifacts → content* → done; a failed run emits a single error event.
type EventKind string

const (
	EventSources   EventKind = "sources"
	EventArtifacts EventKind = "artifacts"
	EventContent   EventKind = "content"
	EventDone      EventKind = "done"
	EventError     EventKind = "error"
)

// StreamEvent is one item of the channel ExecuteStream returns. Only the
// field matching Kind is populated. An HTTP layer adapts this directly to
// an SSE frame: `event: <kind>\ndata: <json of the populated field>\n\n`.
type StreamEvent struct {
	Kind      EventKind
	Sources   []domain.Source
	Artifacts []domain.ArtifactRef
	Content   string
	Error     string
}

// ExecuteStream is the streaming counterpart to Execute (§4.9b). It runs
// the same S0–S6 pipeline but emits sources and artifacts as soon as they
// are known, then the final content split into chunks, terminating with
// done. A retrieval or tool failure emits a single error event and nothing
// else. The internal goroutine closes the channel when it finishes;
// callers range over it until closed.
func (o *Orchestrator) ExecuteStream(ctx context.Context, req Request) <-chan StreamEvent {
	out := make(chan StreamEvent, 8)

	go func() {
		defer close(out)

		convContext := o.runContext(ctx, req)
		hasImage := req.AttachedImage != nil
		cls := intent.Classify(req.Query, hasImage)

		retrievals, vref, err := o.runRetrieve(ctx, req)
		if err != nil {
			emitError(ctx, out, "retrieval failed: "+err.Error())
			return
		}

		dec := o.decide(req, cls, vref, retrievals)
		call := o.runTool(ctx, req, dec, convContext)
		if call.ExecutionStatus == domain.ExecFailed {
			emitError(ctx, out, "tool "+string(dec.Primary)+" failed: "+call.Error)
			return
		}

		artifacts := o.attachArtifacts(ctx, retrievals, cls.WantsFillableForm)
		resp := o.synthesize(req, dec, call, cls, artifacts)

		if !sendEvent(ctx, out, StreamEvent{Kind: EventSources, Sources: resp.Sources}) {
			return
		}
		if !sendEvent(ctx, out, StreamEvent{Kind: EventArtifacts, Artifacts: resp.Artifacts}) {
			return
		}
		for _, chunk := range splitIntoChunks(resp.Content, 40) {
			if !sendEvent(ctx, out, StreamEvent{Kind: EventContent, Content: chunk}) {
				return
			}
		}
		sendEvent(ctx, out, StreamEvent{Kind: EventDone})
	}()

	return out
}

func emitError(ctx context.Context, out chan<- StreamEvent, msg string) {
	sendEvent(ctx, out, StreamEvent{Kind: EventError, Error: msg})
}

// sendEvent reports whether the event was delivered; false means the
// caller's context was cancelled and the goroutine should stop producing.
func sendEvent(ctx context.Context, out chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// splitIntoChunks breaks content into word-bounded pieces roughly
// wordsPerChunk words long, so a streaming client sees incremental
// progress instead of one final blob.
func splitIntoChunks(content string, wordsPerChunk int) []string {
	if content == "" {
		return nil
	}
	words := strings.Fields(content)
	if len(words) == 0 {
		return []string{content}
	}
	var chunks []string
	for i := 0; i < len(words); i += wordsPerChunk {
		end := i + wordsPerChunk
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}
