package handlers

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/reidmcb/fairway-live/internal/models"
	"github.com/reidmcb/fairway-live/internal/notify"
	"github.com/reidmcb/fairway-live/internal/scoring"
	"github.com/reidmcb/fairway-live/internal/store"
	"github.com/reidmcb/fairway-live/internal/websocket"
)

// UpdatePlayerRequest is the JSON body for a player attribute write. Every field
// is a pointer: only submitted fields change, everything else keeps its stored
// value.
type UpdatePlayerRequest struct {
	Teebox         *string `json:"teebox"`
	CourseHandicap *int    `json:"courseHandicap"`
	Waters         *int    `json:"waters"`
	Dog            *bool   `json:"dog"`
	TwoClubs       *int    `json:"twoClubs"`
	Fines          *int    `json:"fines"`
	Origin         string  `json:"origin"`
}

// MembershipResponse is the record returned (and broadcast) after an update.
type MembershipResponse struct {
	TeamID         string `json:"teamId"`
	Player         string `json:"player"`
	Teebox         string `json:"teebox"`
	CourseHandicap int    `json:"courseHandicap"`
	Waters         int    `json:"waters"`
	Dog            bool   `json:"dog"`
	TwoClubs       int    `json:"twoClubs"`
	Fines          int    `json:"fines"`
}

// UpdatePlayerAttributes returns a handler for
// PUT /api/v1/teams/:teamId/players/:player.
//
// It upserts the player's TeamMembership, recomputes the team's points (a
// handicap change shifts every net score), emits popup events for mini-stat
// transitions, and broadcasts the membership change - plus a fines-updated
// message when the fines total moved.
func UpdatePlayerAttributes(st store.Store, points *scoring.Recomputer, notifier *notify.Notifier, hub *websocket.Hub, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		teamID, err := uuid.Parse(c.Params("teamId"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid team ID"})
		}
		player := c.Params("player")
		playerKey := models.NormalizeName(player)

		var req UpdatePlayerRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		team, err := st.GetTeam(c.Context(), teamID)
		if err != nil {
			return storeError(c, err, "team")
		}
		comp, err := st.GetCompetition(c.Context(), team.CompetitionID)
		if err != nil {
			return storeError(c, err, "competition")
		}

		m, err := st.GetMembership(c.Context(), teamID, playerKey)
		switch {
		case err == nil:
		case errors.Is(err, store.ErrNotFound):
			// First attribute write for this player: allowed only for actual
			// team members, so a typo'd name can't grow the team.
			if !onTeam(team, playerKey) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "player not found"})
			}
			m = &models.TeamMembership{
				ID:         uuid.New(),
				TeamID:     teamID,
				PlayerName: strings.TrimSpace(player),
				PlayerKey:  playerKey,
			}
		default:
			return storeError(c, err, "player")
		}

		before := m.Stats()
		finesChanged := false
		if req.Teebox != nil {
			m.Teebox = *req.Teebox
		}
		if req.CourseHandicap != nil {
			m.CourseHandicap = *req.CourseHandicap
		}
		if req.Waters != nil {
			m.Waters = *req.Waters
		}
		if req.Dog != nil {
			m.Dog = *req.Dog
		}
		if req.TwoClubs != nil {
			m.TwoClubs = *req.TwoClubs
		}
		if req.Fines != nil && *req.Fines != m.Fines {
			m.Fines = *req.Fines
			finesChanged = true
		}

		if err := st.UpsertMembership(c.Context(), m); err != nil {
			return storeError(c, err, "player")
		}

		if _, err := points.RecomputeTeam(c.Context(), comp, teamID, nil); err != nil {
			log.Error("team points recompute failed", "team", teamID, "err", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to recompute team points"})
		}

		notifier.StatEvents(comp, teamID, player, before, m.Stats(), req.Origin)

		resp := MembershipResponse{
			TeamID:         teamID.String(),
			Player:         m.PlayerName,
			Teebox:         m.Teebox,
			CourseHandicap: m.CourseHandicap,
			Waters:         m.Waters,
			Dog:            m.Dog,
			TwoClubs:       m.TwoClubs,
			Fines:          m.Fines,
		}
		if err := hub.Publish(comp.ID, "team-user-updated", resp); err != nil {
			log.Error("team-user-updated broadcast failed", "competition", comp.ID, "err", err)
		}
		if finesChanged {
			if err := hub.Publish(comp.ID, "fines-updated", fiber.Map{
				"teamId": teamID.String(),
				"player": m.PlayerName,
				"fines":  m.Fines,
			}); err != nil {
				log.Error("fines-updated broadcast failed", "competition", comp.ID, "err", err)
			}
		}

		return c.JSON(resp)
	}
}

func onTeam(team *models.Team, playerKey string) bool {
	for _, p := range team.Players {
		if models.NormalizeName(p) == playerKey {
			return true
		}
	}
	return false
}
