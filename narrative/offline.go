package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/nathoo/wayfarer/engine/registry"
	"github.com/nathoo/wayfarer/engine/world"
	"github.com/nathoo/wayfarer/types"
)

// Offline synthesizes results from the loaded content. It never fails
// except on a cancelled context, and the same inputs always produce the
// same output.
type Offline struct {
	content *registry.Content
}

// NewOffline creates an offline service over content.
func NewOffline(content *registry.Content) *Offline {
	return &Offline{content: content}
}

// Initialize returns the authored intro and start location.
func (o *Offline) Initialize(ctx context.Context) (InitResult, error) {
	if err := ctx.Err(); err != nil {
		return InitResult{}, err
	}
	loc, ok := o.content.Location(o.content.Game.Start)
	if !ok {
		loc = o.synthesize(o.content.Game.Start, 1)
	}
	text := o.content.Game.Intro
	if text == "" {
		text = fmt.Sprintf("You arrive at %s.", loc.Name)
	}
	return InitResult{Narrative: text, Location: loc}, nil
}

// SubmitCommand answers free-form commands with a description of where
// the player stands.
func (o *Offline) SubmitCommand(ctx context.Context, text string, c Context) (CommandResult, error) {
	if err := ctx.Err(); err != nil {
		return CommandResult{}, err
	}
	text = strings.TrimSpace(text)
	var b strings.Builder
	switch {
	case c.Location == nil:
		fmt.Fprintf(&b, "You try to %s, but nothing happens.", text)
	case text == "" || strings.HasPrefix(strings.ToLower(text), "look"):
		b.WriteString(c.Location.Description)
	default:
		fmt.Fprintf(&b, "You try to %s. %s stays quiet around you.", text, c.Location.Name)
	}
	return CommandResult{Narrative: b.String()}, nil
}

// GenerateLocationDetails returns the authored record when there is one.
// Otherwise it keeps an existing record, or invents a bare one.
func (o *Offline) GenerateLocationDetails(ctx context.Context, idOrName string, level int, existing *types.LocationRecord) (types.LocationRecord, error) {
	if err := ctx.Err(); err != nil {
		return types.LocationRecord{}, err
	}
	if loc, ok := o.content.FindLocation(idOrName); ok {
		return loc, nil
	}
	if existing != nil {
		return registry.CloneLocation(*existing), nil
	}
	return o.synthesize(idOrName, level), nil
}

func (o *Offline) synthesize(idOrName string, level int) types.LocationRecord {
	name := world.CleanLabel(idOrName)
	if name == "" {
		name = "Nowhere"
	}
	return types.LocationRecord{
		ID:          Slug(idOrName),
		Name:        name,
		Description: fmt.Sprintf("You stand in %s. Little here has been charted.", name),
		Level:       level,
		Exits:       []types.Exit{},
	}
}

// Stream delivers the offline narration word by word.
func (o *Offline) Stream(ctx context.Context, text string, c Context) (<-chan Chunk, <-chan StreamResult) {
	res, err := o.SubmitCommand(ctx, text, c)
	words := strings.SplitAfter(res.Narrative, " ")
	chunks := make(chan Chunk, len(words))
	done := make(chan StreamResult, 1)
	if err == nil {
		for _, w := range words {
			if w != "" {
				chunks <- Chunk{Text: w}
			}
		}
	}
	close(chunks)
	done <- StreamResult{Result: res, Err: err}
	close(done)
	return chunks, done
}

// Slug turns a display name into a location ID.
func Slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore && b.Len() > 0:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimRight(b.String(), "_")
}
