package narrative_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/nathoo/wayfarer/engine/registry"
	"github.com/nathoo/wayfarer/narrative"
	narrativemock "github.com/nathoo/wayfarer/narrative/mock"
	"github.com/nathoo/wayfarer/types"
)

func testContent() *registry.Content {
	c := registry.NewContent()
	c.Game = registry.GameInfo{Title: "Test", Start: "village", Intro: "Welcome, traveler."}
	c.Locations["village"] = types.LocationRecord{
		ID: "village", Name: "Oakvale", Description: "Thatched roofs and woodsmoke.",
		Exits: []types.Exit{{Direction: types.North, TargetID: "forest", Label: "Forest"}},
	}
	return c
}

type FallbackTestSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	primary   *narrativemock.MockService
	secondary *narrativemock.MockService
	fallback  *narrative.Fallback
	ctx       context.Context
}

func (s *FallbackTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.primary = narrativemock.NewMockService(s.ctrl)
	s.secondary = narrativemock.NewMockService(s.ctrl)
	s.fallback = narrative.NewFallback(s.primary, s.secondary)
	s.ctx = context.Background()
}

func (s *FallbackTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *FallbackTestSuite) TestPrimarySucceeds() {
	s.primary.EXPECT().
		SubmitCommand(s.ctx, "look", gomock.Any()).
		Return(narrative.CommandResult{Narrative: "remote"}, nil)

	res, err := s.fallback.SubmitCommand(s.ctx, "look", narrative.Context{})
	s.Require().NoError(err)
	s.Equal("remote", res.Narrative)
}

func (s *FallbackTestSuite) TestTransientFailureUsesSecondary() {
	s.Run("submit", func() {
		s.primary.EXPECT().
			SubmitCommand(s.ctx, "look", gomock.Any()).
			Return(narrative.CommandResult{}, &narrative.Error{Op: "submit", Status: 503, Err: narrative.ErrUnavailable})
		s.secondary.EXPECT().
			SubmitCommand(s.ctx, "look", gomock.Any()).
			Return(narrative.CommandResult{Narrative: "offline"}, nil)

		res, err := s.fallback.SubmitCommand(s.ctx, "look", narrative.Context{})
		s.Require().NoError(err)
		s.Equal("offline", res.Narrative)
	})

	s.Run("initialize", func() {
		s.primary.EXPECT().Initialize(s.ctx).Return(narrative.InitResult{}, errors.New("boom"))
		s.secondary.EXPECT().Initialize(s.ctx).Return(narrative.InitResult{Narrative: "hello"}, nil)

		res, err := s.fallback.Initialize(s.ctx)
		s.Require().NoError(err)
		s.Equal("hello", res.Narrative)
	})

	s.Run("location", func() {
		s.primary.EXPECT().
			GenerateLocationDetails(s.ctx, "cave", 3, gomock.Nil()).
			Return(types.LocationRecord{}, narrative.ErrUnavailable)
		s.secondary.EXPECT().
			GenerateLocationDetails(s.ctx, "cave", 3, gomock.Nil()).
			Return(types.LocationRecord{ID: "cave"}, nil)

		loc, err := s.fallback.GenerateLocationDetails(s.ctx, "cave", 3, nil)
		s.Require().NoError(err)
		s.Equal("cave", loc.ID)
	})
}

func (s *FallbackTestSuite) TestMissingCredentialsSurface() {
	s.primary.EXPECT().
		Initialize(s.ctx).
		Return(narrative.InitResult{}, &narrative.Error{Op: "initialize", Err: narrative.ErrMissingCredentials})

	_, err := s.fallback.Initialize(s.ctx)
	s.Require().Error(err)
	s.ErrorIs(err, narrative.ErrMissingCredentials)
}

func (s *FallbackTestSuite) TestCancelledContextDoesNotFallBack() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	s.primary.EXPECT().
		SubmitCommand(ctx, "look", gomock.Any()).
		Return(narrative.CommandResult{}, ctx.Err())

	_, err := s.fallback.SubmitCommand(ctx, "look", narrative.Context{})
	s.ErrorIs(err, context.Canceled)
}

func (s *FallbackTestSuite) TestStreamFallsBack() {
	s.primary.EXPECT().
		SubmitCommand(s.ctx, "sing", gomock.Any()).
		Return(narrative.CommandResult{}, narrative.ErrUnavailable)
	s.secondary.EXPECT().
		SubmitCommand(s.ctx, "sing", gomock.Any()).
		Return(narrative.CommandResult{Narrative: "la la"}, nil)

	var got []string
	chunks, done := s.fallback.Stream(s.ctx, "sing", narrative.Context{})
	res, err := narrative.Collect(chunks, done, func(c narrative.Chunk) { got = append(got, c.Text) })
	s.Require().NoError(err)
	s.Equal("la la", res.Narrative)
	s.Equal([]string{"la la"}, got)
}

func TestFallbackSuite(t *testing.T) {
	suite.Run(t, new(FallbackTestSuite))
}

func TestOffline(t *testing.T) {
	ctx := context.Background()
	o := narrative.NewOffline(testContent())

	ir, err := o.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Welcome, traveler.", ir.Narrative)
	assert.Equal(t, "village", ir.Location.ID)

	loc, err := o.GenerateLocationDetails(ctx, "Oakvale", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "village", loc.ID)

	loc, err = o.GenerateLocationDetails(ctx, "Misty Hollow", 4, nil)
	require.NoError(t, err)
	assert.Equal(t, "misty_hollow", loc.ID)
	assert.Equal(t, "Misty Hollow", loc.Name)
	assert.Equal(t, 4, loc.Level)

	again, _ := o.GenerateLocationDetails(ctx, "Misty Hollow", 4, nil)
	assert.Equal(t, loc, again, "offline generation must be deterministic")

	village, _ := testContent().Location("village")
	res, err := o.SubmitCommand(ctx, "look around", narrative.Context{Location: &village})
	require.NoError(t, err)
	assert.Equal(t, village.Description, res.Narrative)
}

func TestOffline_Stream(t *testing.T) {
	o := narrative.NewOffline(testContent())
	village, _ := testContent().Location("village")

	var b strings.Builder
	chunks, done := o.Stream(context.Background(), "look", narrative.Context{Location: &village})
	res, err := narrative.Collect(chunks, done, func(c narrative.Chunk) { b.WriteString(c.Text) })
	require.NoError(t, err)
	assert.Equal(t, res.Narrative, b.String())
}

func TestOffline_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := narrative.NewOffline(testContent()).Initialize(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "misty_hollow", narrative.Slug("  Misty   Hollow! "))
	assert.Equal(t, "cave_2", narrative.Slug("Cave #2"))
	assert.Equal(t, "", narrative.Slug("!!!"))
}

func TestHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/initialize":
			json.NewEncoder(w).Encode(narrative.InitResult{Narrative: "hi", Location: types.LocationRecord{ID: "gate"}})
		case "/command":
			var req struct {
				Text string `json:"text"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			json.NewEncoder(w).Encode(narrative.CommandResult{
				Narrative: "you said " + req.Text,
				Delta:     types.StatsDelta{Gold: 5},
			})
		case "/location":
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		case "/command/stream":
			fmt.Fprintln(w, `{"text":"The wind "}`)
			fmt.Fprintln(w, `{"text":"howls."}`)
			fmt.Fprintln(w, `{"done":true,"result":{"delta":{"hp":-1}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := narrative.NewHTTPClient(narrative.HTTPConfig{BaseURL: srv.URL, APIKey: "secret"})
	ctx := context.Background()

	ir, err := c.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gate", ir.Location.ID)

	res, err := c.SubmitCommand(ctx, "hello", narrative.Context{})
	require.NoError(t, err)
	assert.Equal(t, "you said hello", res.Narrative)
	assert.Equal(t, 5, res.Delta.Gold)

	_, err = c.GenerateLocationDetails(ctx, "cave", 1, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, narrative.ErrUnavailable)
	var ne *narrative.Error
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, http.StatusServiceUnavailable, ne.Status)

	var parts []string
	chunks, done := c.Stream(ctx, "listen", narrative.Context{})
	sres, err := narrative.Collect(chunks, done, func(ch narrative.Chunk) { parts = append(parts, ch.Text) })
	require.NoError(t, err)
	assert.Equal(t, []string{"The wind ", "howls."}, parts)
	assert.Equal(t, "The wind howls.", sres.Narrative)
	assert.Equal(t, -1, sres.Delta.HP)
}

func TestHTTPClient_MissingKey(t *testing.T) {
	t.Setenv(narrative.APIKeyEnv, "")
	c := narrative.NewHTTPClient(narrative.HTTPConfig{BaseURL: "http://127.0.0.1:1"})
	assert.False(t, c.IsAvailable())

	_, err := c.Initialize(context.Background())
	assert.ErrorIs(t, err, narrative.ErrMissingCredentials)
}

func TestHTTPClient_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := narrative.NewHTTPClient(narrative.HTTPConfig{BaseURL: srv.URL, APIKey: "wrong"})
	_, err := c.SubmitCommand(context.Background(), "x", narrative.Context{})
	assert.ErrorIs(t, err, narrative.ErrMissingCredentials)
}
