package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reidmcb/fairway-live/internal/models"
	"github.com/reidmcb/fairway-live/internal/reconcile"
)

func scoresPath(compID, teamID uuid.UUID, player string) string {
	return fmt.Sprintf("/api/v1/competitions/%s/teams/%s/players/%s/scores", compID, teamID, player)
}

func TestUpsertPlayerScoresComputesTeamPoints(t *testing.T) {
	env := newTestEnv(t)
	comp := env.seedCompetition(t, models.CompetitionAllianceStableford, 100)
	team := env.seedTeam(t, comp.ID, 0, "Alice", "Bob")

	var out struct {
		Status           string `json:"status"`
		TeamPoints       int    `json:"teamPoints"`
		PointsOverridden bool   `json:"pointsOverridden"`
	}
	// Birdie on 1, par on 2: 3 + 2 points off scratch.
	resp := env.do(t, http.MethodPut, scoresPath(comp.ID, team.ID, "Alice"),
		scoresBody(map[int]int{1: 3, 2: 4}), &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", out.Status)
	assert.Equal(t, 5, out.TeamPoints)
	assert.False(t, out.PointsOverridden)
}

func TestUpsertPlayerScoresBlankMeansNoChange(t *testing.T) {
	env := newTestEnv(t)
	comp := env.seedCompetition(t, models.CompetitionAllianceStableford, 100)
	team := env.seedTeam(t, comp.ID, 0, "Alice", "Bob")

	resp := env.do(t, http.MethodPut, scoresPath(comp.ID, team.ID, "Alice"),
		scoresBody(map[int]int{1: 3}), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Second write touches only hole 2; hole 1 must survive.
	var out struct {
		TeamPoints int `json:"teamPoints"`
	}
	resp = env.do(t, http.MethodPut, scoresPath(comp.ID, team.ID, "Alice"),
		scoresBody(map[int]int{2: 4}), &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, out.TeamPoints, "hole 1's birdie still counts")

	scores, err := env.st.ListPlayerScores(context.Background(), team.ID, "alice")
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, 3, scores[0].Strokes)
	assert.Equal(t, 4, scores[1].Strokes)
}

func TestUpsertPlayerScoresRejectsWrongLength(t *testing.T) {
	env := newTestEnv(t)
	comp := env.seedCompetition(t, models.CompetitionAllianceStableford, 100)
	team := env.seedTeam(t, comp.ID, 0, "Alice", "Bob")

	resp := env.do(t, http.MethodPut, scoresPath(comp.ID, team.ID, "Alice"),
		UpsertScoresRequest{Scores: []int{4, 4, 4}}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpsertPlayerScoresRefusesSilentClear(t *testing.T) {
	env := newTestEnv(t)
	comp := env.seedCompetition(t, models.CompetitionAllianceStableford, 100)
	team := env.seedTeam(t, comp.ID, 0, "Alice", "Bob")

	resp := env.do(t, http.MethodPut, scoresPath(comp.ID, team.ID, "Alice"),
		scoresBody(map[int]int{1: 3}), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// An all-blank array without the flag is rejected and nothing is deleted.
	resp = env.do(t, http.MethodPut, scoresPath(comp.ID, team.ID, "Alice"),
		UpsertScoresRequest{Scores: make([]int, 18)}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	scores, err := env.st.ListPlayerScores(context.Background(), team.ID, "alice")
	require.NoError(t, err)
	assert.Len(t, scores, 1)
}

func TestUpsertPlayerScoresAllowClear(t *testing.T) {
	env := newTestEnv(t)
	comp := env.seedCompetition(t, models.CompetitionAllianceStableford, 100)
	team := env.seedTeam(t, comp.ID, 0, "Alice", "Bob")

	resp := env.do(t, http.MethodPut, scoresPath(comp.ID, team.ID, "Alice"),
		scoresBody(map[int]int{1: 3, 5: 6}), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		TeamPoints int `json:"teamPoints"`
	}
	resp = env.do(t, http.MethodPut, scoresPath(comp.ID, team.ID, "Alice"),
		UpsertScoresRequest{Scores: make([]int, 18), AllowClear: true}, &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, out.TeamPoints)

	scores, err := env.st.ListPlayerScores(context.Background(), team.ID, "alice")
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestUpsertPlayerScoresOverrideLifecycle(t *testing.T) {
	env := newTestEnv(t)
	comp := env.seedCompetition(t, models.CompetitionAllianceStableford, 100)
	team := env.seedTeam(t, comp.ID, 0, "Alice", "Bob")

	override := 40
	body := scoresBody(map[int]int{1: 3})
	body.TotalOverride = &override

	var out struct {
		TeamPoints       int  `json:"teamPoints"`
		PointsOverridden bool `json:"pointsOverridden"`
	}
	resp := env.do(t, http.MethodPut, scoresPath(comp.ID, team.ID, "Alice"), body, &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 40, out.TeamPoints)
	assert.True(t, out.PointsOverridden)

	// The next plain write re-derives the total from the untouched score rows.
	resp = env.do(t, http.MethodPut, scoresPath(comp.ID, team.ID, "Alice"),
		scoresBody(map[int]int{2: 4}), &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, out.TeamPoints)
	assert.False(t, out.PointsOverridden)
}

func TestUpsertPlayerScoresHandicapStrokesApply(t *testing.T) {
	env := newTestEnv(t)
	comp := env.seedCompetition(t, models.CompetitionAllianceStableford, 100)
	// Course handicap 18: one stroke on every hole.
	team := env.seedTeam(t, comp.ID, 18, "Alice", "Bob")

	var out struct {
		TeamPoints int `json:"teamPoints"`
	}
	// Gross 4 nets to 3 on a par 4: 3 points.
	resp := env.do(t, http.MethodPut, scoresPath(comp.ID, team.ID, "Alice"),
		scoresBody(map[int]int{1: 4}), &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, out.TeamPoints)
}

func TestUpsertPlayerScoresBestBallTakesBetterPlayer(t *testing.T) {
	env := newTestEnv(t)
	comp := env.seedCompetition(t, models.CompetitionBestBallPairs, 100)
	team := env.seedTeam(t, comp.ID, 0, "Alice", "Bob")

	resp := env.do(t, http.MethodPut, scoresPath(comp.ID, team.ID, "Alice"),
		scoresBody(map[int]int{1: 5}), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		TeamPoints int `json:"teamPoints"`
	}
	resp = env.do(t, http.MethodPut, scoresPath(comp.ID, team.ID, "Bob"),
		scoresBody(map[int]int{1: 3}), &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, out.TeamPoints, "the hole counts the better ball only")
}

func TestUpsertPlayerScoresSyncsGroupMap(t *testing.T) {
	env := newTestEnv(t)
	comp := env.seedCompetition(t, models.CompetitionAllianceStableford, 100)

	var sheet []GroupResponse
	resp := env.do(t, http.MethodPut, groupsPath(comp), []reconcile.GroupInput{
		{Players: []string{"Alice", "Bob"}},
	}, &sheet)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	teamID := *sheet[0].TeamID

	resp = env.do(t, http.MethodPut, scoresPath(comp.ID, teamID, "Alice"),
		scoresBody(map[int]int{1: 3, 2: 4}), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The tee sheet read agrees with the Score rows without another groups
	// update in between.
	var got CompetitionResponse
	resp = env.do(t, http.MethodGet, "/api/v1/competitions/"+comp.ID.String(), nil, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, got.Groups, 1)
	want := make([]int, 18)
	want[0], want[1] = 3, 4
	assert.Equal(t, want, got.Groups[0].Scores["Alice"])

	// And a clear empties the mirrored array too.
	resp = env.do(t, http.MethodPut, scoresPath(comp.ID, teamID, "Alice"),
		UpsertScoresRequest{Scores: make([]int, 18), AllowClear: true}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/competitions/"+comp.ID.String(), nil, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, make([]int, 18), got.Groups[0].Scores["Alice"])
}

func TestUpsertPlayerScoresNotFound(t *testing.T) {
	env := newTestEnv(t)
	comp := env.seedCompetition(t, models.CompetitionAllianceStableford, 100)
	team := env.seedTeam(t, comp.ID, 0, "Alice", "Bob")
	body := scoresBody(map[int]int{1: 4})

	t.Run("unknown competition", func(t *testing.T) {
		resp := env.do(t, http.MethodPut, scoresPath(uuid.New(), team.ID, "Alice"), body, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
	t.Run("unknown team", func(t *testing.T) {
		resp := env.do(t, http.MethodPut, scoresPath(comp.ID, uuid.New(), "Alice"), body, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
	t.Run("team from another competition", func(t *testing.T) {
		other := env.seedCompetition(t, models.CompetitionAllianceStableford, 100)
		foreign := env.seedTeam(t, other.ID, 0, "Carol", "Dave")
		resp := env.do(t, http.MethodPut, scoresPath(comp.ID, foreign.ID, "Carol"), body, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
	t.Run("unknown player", func(t *testing.T) {
		resp := env.do(t, http.MethodPut, scoresPath(comp.ID, team.ID, "Mallory"), body, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
