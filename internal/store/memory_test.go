package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reidmcb/fairway-live/internal/models"
)

func TestMemoryStoreUpsertScoreLastWriterWins(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	teamID := uuid.New()

	sc := models.Score{CompetitionID: uuid.New(), TeamID: teamID, PlayerKey: "alice", HoleNumber: 3, Strokes: 5}
	require.NoError(t, st.UpsertScore(ctx, &sc))
	firstID := sc.ID

	corrected := sc
	corrected.ID = uuid.Nil
	corrected.Strokes = 4
	require.NoError(t, st.UpsertScore(ctx, &corrected))
	assert.Equal(t, firstID, corrected.ID, "the existing row is updated, not duplicated")

	scores, err := st.ListPlayerScores(ctx, teamID, "alice")
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 4, scores[0].Strokes)
}

func TestMemoryStoreGroupsAreIsolatedCopies(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	comp := &models.Competition{Name: "Champs", CompetitionType: models.CompetitionMedalStrokeplay, CreatedBy: uuid.New()}
	require.NoError(t, st.CreateCompetition(ctx, comp))

	g := models.Group{
		ID:      uuid.New(),
		Players: models.StringList{"Alice"},
		Scores:  models.ScoresMap{"Alice": {4, 3}},
	}
	require.NoError(t, st.SaveGroups(ctx, comp.ID, []models.Group{g}))

	// Mutating the caller's copy must not leak into stored state.
	g.Scores["Alice"][0] = 9

	got, err := st.GetCompetition(ctx, comp.ID)
	require.NoError(t, err)
	require.Len(t, got.Groups, 1)
	assert.Equal(t, []int{4, 3}, got.Groups[0].Scores["Alice"])

	// And mutating a read result must not leak either.
	got.Groups[0].Players[0] = "Mallory"
	again, err := st.GetCompetition(ctx, comp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"Alice"}, again.Groups[0].Players)
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	_, err := st.GetCompetition(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.GetTeam(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.GetMembership(ctx, uuid.New(), "alice")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, st.SaveGroups(ctx, uuid.New(), nil), ErrNotFound)
	assert.ErrorIs(t, st.SaveTeam(ctx, &models.Team{ID: uuid.New()}), ErrNotFound)
}
