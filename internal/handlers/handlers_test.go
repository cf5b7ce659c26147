package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/reidmcb/fairway-live/internal/models"
	"github.com/reidmcb/fairway-live/internal/notify"
	"github.com/reidmcb/fairway-live/internal/reconcile"
	"github.com/reidmcb/fairway-live/internal/scoring"
	"github.com/reidmcb/fairway-live/internal/store"
	"github.com/reidmcb/fairway-live/internal/websocket"
)

// testEnv wires the full handler stack over the in-memory store, with a stub
// auth layer that stamps a fixed user onto every request.
type testEnv struct {
	app    *fiber.App
	st     *store.MemoryStore
	userID uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := store.NewMemoryStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Close)

	dedupe := notify.NewDeduper(10 * time.Second)
	t.Cleanup(dedupe.Close)
	notifier := notify.New(hub, dedupe, log)

	points := scoring.NewRecomputer(st, log)
	rec := reconcile.New(st, log)

	userID := uuid.New()
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", userID.String())
		c.Locals("userRole", string(models.UserRoleAdmin))
		return c.Next()
	})
	api := app.Group("/api/v1")
	api.Post("/competitions", CreateCompetition(st))
	api.Get("/competitions/:id", GetCompetition(st))
	api.Put("/competitions/:id/groups", UpdateGroups(st, rec, points, hub, log))
	api.Put("/competitions/:id/teams/:teamId/players/:player/scores", UpsertPlayerScores(st, points, notifier, hub, log))
	api.Put("/teams/:teamId/players/:player", UpdatePlayerAttributes(st, points, notifier, hub, log))

	return &testEnv{app: app, st: st, userID: userID}
}

// do runs one request through the app and decodes the JSON response into out
// (skipped when out is nil).
func (e *testEnv) do(t *testing.T, method, path string, body, out any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	if out != nil {
		defer resp.Body.Close()
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

// seedCompetition stores a competition with 18 par-4 holes, stroke index equal
// to hole number.
func (e *testEnv) seedCompetition(t *testing.T, compType models.CompetitionType, allowance int) *models.Competition {
	t.Helper()
	holes := make([]models.Hole, 18)
	for i := range holes {
		holes[i] = models.Hole{Number: i + 1, Par: 4, StrokeIndex: i + 1}
	}
	comp := &models.Competition{
		Name:              "Club Champs",
		CompetitionType:   compType,
		HandicapAllowance: allowance,
		CreatedBy:         e.userID,
		Holes:             holes,
	}
	require.NoError(t, e.st.CreateCompetition(context.Background(), comp))
	return comp
}

// seedTeam stores a team plus a membership row per player, all with the given
// course handicap.
func (e *testEnv) seedTeam(t *testing.T, compID uuid.UUID, handicap int, players ...string) *models.Team {
	t.Helper()
	ctx := context.Background()
	team := &models.Team{
		CompetitionID: compID,
		Name:          "Test Team",
		Players:       append(models.StringList(nil), players...),
	}
	require.NoError(t, e.st.CreateTeam(ctx, team))
	for _, p := range players {
		require.NoError(t, e.st.UpsertMembership(ctx, &models.TeamMembership{
			TeamID:         team.ID,
			PlayerName:     p,
			PlayerKey:      models.NormalizeName(p),
			CourseHandicap: handicap,
		}))
	}
	return team
}

func scoresBody(holeStrokes map[int]int) UpsertScoresRequest {
	scores := make([]int, 18)
	for hole, strokes := range holeStrokes {
		scores[hole-1] = strokes
	}
	return UpsertScoresRequest{Scores: scores}
}
