package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/reidmcb/fairway-live/internal/models"
	"github.com/reidmcb/fairway-live/internal/notify"
	"github.com/reidmcb/fairway-live/internal/scoring"
	"github.com/reidmcb/fairway-live/internal/store"
	"github.com/reidmcb/fairway-live/internal/websocket"
)

// UpsertScoresRequest is the JSON body for a player score write. Scores must be
// exactly 18 entries; a zero/blank entry means "no change for that hole", never
// "erase it". Clearing everything requires the explicit AllowClear flag so a
// client bug can't mass-delete an afternoon of scoring.
type UpsertScoresRequest struct {
	Scores        []int  `json:"scores"`
	AllowClear    bool   `json:"allowClear"`
	TotalOverride *int   `json:"totalOverride"` // Client-supplied team total for this write only
	Origin        string `json:"origin"`        // Originating client tag, echoed on popup events
}

// ScoresUpdatedPayload is the scores-updated broadcast: the minimal delta a
// viewer needs to patch its local leaderboard without a refetch.
type ScoresUpdatedPayload struct {
	TeamID           string `json:"teamId"`
	Player           string `json:"player"`
	Scores           []int  `json:"scores"`
	TeamPoints       int    `json:"teamPoints"`
	PointsOverridden bool   `json:"pointsOverridden"`
}

// UpsertPlayerScores returns a handler for
// PUT /api/v1/competitions/:id/teams/:teamId/players/:player/scores.
//
// Pipeline per write: validate -> upsert score cells (last writer wins) ->
// recompute team points from all current scores -> diff before/after for
// notable events -> broadcast. Each stage commits its own writes; a failure in
// a later stage never rolls back an earlier one, and the whole call is safe to
// retry.
func UpsertPlayerScores(st store.Store, points *scoring.Recomputer, notifier *notify.Notifier, hub *websocket.Hub, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		compID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid competition ID"})
		}
		teamID, err := uuid.Parse(c.Params("teamId"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid team ID"})
		}
		player := c.Params("player")

		var req UpsertScoresRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if len(req.Scores) != 18 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "scores must have exactly 18 entries"})
		}
		allBlank := true
		for _, s := range req.Scores {
			if s > 0 {
				allBlank = false
				break
			}
		}
		if allBlank && !req.AllowClear {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "refusing to clear all scores without allowClear",
			})
		}

		comp, err := st.GetCompetition(c.Context(), compID)
		if err != nil {
			return storeError(c, err, "competition")
		}
		team, err := st.GetTeam(c.Context(), teamID)
		if err != nil || team.CompetitionID != compID {
			if err == nil {
				err = store.ErrNotFound
			}
			return storeError(c, err, "team")
		}
		playerKey := models.NormalizeName(player)
		if _, err := st.GetMembership(c.Context(), teamID, playerKey); err != nil {
			return storeError(c, err, "player")
		}

		before, err := scoreArray(c, st, teamID, playerKey)
		if err != nil {
			return storeError(c, err, "scores")
		}

		var enteredBy *uuid.UUID
		if userIDStr, _ := c.Locals("userID").(string); userIDStr != "" {
			if id, err := uuid.Parse(userIDStr); err == nil {
				enteredBy = &id
			}
		}

		after := append([]int(nil), before...)
		if allBlank {
			// Explicit bulk clear: every cell for this player goes away.
			if err := st.DeletePlayerScores(c.Context(), teamID, playerKey); err != nil {
				return storeError(c, err, "scores")
			}
			after = make([]int, 18)
		} else {
			for i, strokes := range req.Scores {
				if strokes <= 0 {
					continue // blank input hole: no change
				}
				sc := models.Score{
					CompetitionID: compID,
					TeamID:        teamID,
					PlayerKey:     playerKey,
					HoleNumber:    i + 1,
					Strokes:       strokes,
					EnteredBy:     enteredBy,
				}
				if err := st.UpsertScore(c.Context(), &sc); err != nil {
					return storeError(c, err, "scores")
				}
				after[i] = strokes
			}
		}

		// Mirror the write onto the owning group's score map so a tee sheet
		// read between now and the next groups update agrees with the Score
		// rows. The rows stay the source of truth; a failed mirror is logged
		// and the write stands.
		if err := syncGroupScores(c, st, comp, teamID, playerKey, after); err != nil {
			log.Error("group score map sync failed", "competition", compID, "team", teamID, "err", err)
		}

		team, err = points.RecomputeTeam(c.Context(), comp, teamID, req.TotalOverride)
		if err != nil {
			log.Error("team points recompute failed", "team", teamID, "err", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to recompute team points"})
		}

		notifier.ScoreEvents(comp, teamID, player, before, after, req.Origin)

		payload := ScoresUpdatedPayload{
			TeamID:           teamID.String(),
			Player:           player,
			Scores:           after,
			TeamPoints:       team.TeamPoints,
			PointsOverridden: team.PointsOverridden,
		}
		if err := hub.Publish(compID, "scores-updated", payload); err != nil {
			log.Error("scores-updated broadcast failed", "competition", compID, "err", err)
		}

		// Medal viewers track per-player running totals, not team points.
		if comp.CompetitionType == models.CompetitionMedalStrokeplay {
			totals, err := points.TeamTotals(c.Context(), comp, teamID)
			if err != nil {
				log.Error("medal totals failed", "team", teamID, "err", err)
			} else if err := hub.Publish(compID, "medal-player-updated", totals); err != nil {
				log.Error("medal-player-updated broadcast failed", "competition", compID, "err", err)
			}
		}

		return c.JSON(fiber.Map{
			"status":           "ok",
			"teamPoints":       team.TeamPoints,
			"pointsOverridden": team.PointsOverridden,
		})
	}
}

// syncGroupScores writes a player's current 18-slot score array onto the group
// that references the team. Stale spellings of the same player are dropped so
// the map holds one entry per player.
func syncGroupScores(c *fiber.Ctx, st store.Store, comp *models.Competition, teamID uuid.UUID, playerKey string, scores []int) error {
	for i := range comp.Groups {
		g := &comp.Groups[i]
		if !groupReferences(g, teamID) {
			continue
		}
		slot := ""
		for _, p := range g.Players {
			if models.NormalizeName(p) == playerKey {
				slot = p
				break
			}
		}
		if slot == "" {
			continue
		}
		if g.Scores == nil {
			g.Scores = models.ScoresMap{}
		}
		for k := range g.Scores {
			if k != slot && models.NormalizeName(k) == playerKey {
				delete(g.Scores, k)
			}
		}
		g.Scores[slot] = append([]int(nil), scores...)
		return st.SaveGroups(c.Context(), comp.ID, comp.Groups)
	}
	return nil
}

func groupReferences(g *models.Group, teamID uuid.UUID) bool {
	for _, id := range []*uuid.UUID{g.TeamID, g.TeamAID, g.TeamBID} {
		if id != nil && *id == teamID {
			return true
		}
	}
	return false
}

// scoreArray loads a player's current Score rows as an 18-slot array, 0 where no
// row exists.
func scoreArray(c *fiber.Ctx, st store.Store, teamID uuid.UUID, playerKey string) ([]int, error) {
	rows, err := st.ListPlayerScores(c.Context(), teamID, playerKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	out := make([]int, 18)
	for _, row := range rows {
		if row.HoleNumber >= 1 && row.HoleNumber <= 18 {
			out[row.HoleNumber-1] = row.Strokes
		}
	}
	return out, nil
}
