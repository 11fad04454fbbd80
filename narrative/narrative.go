// Package narrative is the boundary to the external content service that
// writes location descriptions, dialogue and turn narration. The engine
// only sees the Service interface; HTTPClient talks to a remote service,
// Offline synthesizes results from local content, and Fallback chains the
// two so a failing remote never blocks play.
package narrative

//go:generate mockgen -destination=mock/mock_service.go -package=narrativemock github.com/nathoo/wayfarer/narrative Service

import (
	"context"
	"errors"
	"fmt"

	"github.com/nathoo/wayfarer/types"
)

var (
	// ErrUnavailable marks a transient failure; callers fall back to a
	// locally synthesized result.
	ErrUnavailable = errors.New("narrative service unavailable")
	// ErrMissingCredentials is surfaced to the user; no fallback hides it.
	ErrMissingCredentials = errors.New("narrative service credentials missing")
)

// Error is a typed failure from a service call.
type Error struct {
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("narrative %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("narrative %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Context is what the service is told about the player when a command is
// submitted.
type Context struct {
	Stats    types.PlayerStats     `json:"stats"`
	Quests   []types.Quest         `json:"quests"`
	Location *types.LocationRecord `json:"location,omitempty"`
}

// InitResult opens a session.
type InitResult struct {
	Narrative string               `json:"narrative"`
	Delta     types.StatsDelta     `json:"delta"`
	Location  types.LocationRecord `json:"location"`
}

// QuestDelta either offers a quest (Add) or reports objective progress.
type QuestDelta struct {
	Add      string              `json:"add,omitempty"`
	Kind     types.ObjectiveKind `json:"kind,omitempty"`
	Target   string              `json:"target,omitempty"`
	Quantity int                 `json:"quantity,omitempty"`
}

// CommandResult is the response to a free-form command.
type CommandResult struct {
	Narrative string                `json:"narrative"`
	Delta     types.StatsDelta      `json:"delta"`
	Quests    []QuestDelta          `json:"quests,omitempty"`
	Location  *types.LocationRecord `json:"location,omitempty"`
	// Spawns are entity template IDs to place at the player's location.
	Spawns []string `json:"spawns,omitempty"`
}

// Service is the external narrative/content contract.
type Service interface {
	Initialize(ctx context.Context) (InitResult, error)
	SubmitCommand(ctx context.Context, text string, c Context) (CommandResult, error)
	GenerateLocationDetails(ctx context.Context, idOrName string, level int, existing *types.LocationRecord) (types.LocationRecord, error)
}

// Chunk is one piece of progressively delivered narration.
type Chunk struct {
	Text string `json:"text"`
}

// StreamResult is the terminal value of a stream.
type StreamResult struct {
	Result CommandResult
	Err    error
}

// Streamer is implemented by services that can deliver narration
// incrementally. The chunk channel is closed before the single result is
// sent; the caller may ignore chunks and just wait for the result.
type Streamer interface {
	Stream(ctx context.Context, text string, c Context) (<-chan Chunk, <-chan StreamResult)
}

// Stream uses svc's streaming support when it has one and otherwise runs
// SubmitCommand and delivers the narration as a single chunk.
func Stream(ctx context.Context, svc Service, text string, c Context) (<-chan Chunk, <-chan StreamResult) {
	if s, ok := svc.(Streamer); ok {
		return s.Stream(ctx, text, c)
	}
	chunks := make(chan Chunk, 1)
	done := make(chan StreamResult, 1)
	go func() {
		res, err := svc.SubmitCommand(ctx, text, c)
		if err == nil && res.Narrative != "" {
			chunks <- Chunk{Text: res.Narrative}
		}
		close(chunks)
		done <- StreamResult{Result: res, Err: err}
		close(done)
	}()
	return chunks, done
}

// Collect drains a stream and returns the final result.
func Collect(chunks <-chan Chunk, done <-chan StreamResult, onChunk func(Chunk)) (CommandResult, error) {
	for c := range chunks {
		if onChunk != nil {
			onChunk(c)
		}
	}
	r := <-done
	return r.Result, r.Err
}
