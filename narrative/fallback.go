package narrative

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/wayfarer/logging"
	"github.com/nathoo/wayfarer/types"
)

// Fallback calls Primary and, on a transient failure, logs it and answers
// from Secondary instead. Missing credentials and cancellation are passed
// through untouched.
type Fallback struct {
	Primary   Service
	Secondary Service
	log       *logrus.Entry
}

// NewFallback chains primary to secondary.
func NewFallback(primary, secondary Service) *Fallback {
	return &Fallback{
		Primary:   primary,
		Secondary: secondary,
		log:       logging.For("narrative").WithField("backend", "fallback"),
	}
}

func (f *Fallback) shouldFallBack(ctx context.Context, op string, err error) bool {
	if err == nil || ctx.Err() != nil || errors.Is(err, ErrMissingCredentials) {
		return false
	}
	f.log.WithError(err).WithField("op", op).Warn("narrative service failed, using offline result")
	return true
}

// Initialize implements Service.
func (f *Fallback) Initialize(ctx context.Context) (InitResult, error) {
	res, err := f.Primary.Initialize(ctx)
	if f.shouldFallBack(ctx, "initialize", err) {
		return f.Secondary.Initialize(ctx)
	}
	return res, err
}

// SubmitCommand implements Service.
func (f *Fallback) SubmitCommand(ctx context.Context, text string, c Context) (CommandResult, error) {
	res, err := f.Primary.SubmitCommand(ctx, text, c)
	if f.shouldFallBack(ctx, "submit", err) {
		return f.Secondary.SubmitCommand(ctx, text, c)
	}
	return res, err
}

// GenerateLocationDetails implements Service.
func (f *Fallback) GenerateLocationDetails(ctx context.Context, idOrName string, level int, existing *types.LocationRecord) (types.LocationRecord, error) {
	res, err := f.Primary.GenerateLocationDetails(ctx, idOrName, level, existing)
	if f.shouldFallBack(ctx, "location", err) {
		return f.Secondary.GenerateLocationDetails(ctx, idOrName, level, existing)
	}
	return res, err
}

// Stream streams from Primary; if Primary fails before producing any
// text, the secondary's stream is forwarded in its place.
func (f *Fallback) Stream(ctx context.Context, text string, c Context) (<-chan Chunk, <-chan StreamResult) {
	out := make(chan Chunk, 16)
	done := make(chan StreamResult, 1)

	go func() {
		defer close(done)
		chunks, result := Stream(ctx, f.Primary, text, c)
		sent := false
		for ch := range chunks {
			sent = true
			out <- ch
		}
		r := <-result
		if !sent && f.shouldFallBack(ctx, "stream", r.Err) {
			chunks, result = Stream(ctx, f.Secondary, text, c)
			for ch := range chunks {
				out <- ch
			}
			r = <-result
		}
		close(out)
		done <- r
	}()
	return out, done
}
