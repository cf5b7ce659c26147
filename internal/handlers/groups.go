package handlers

import (
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/reidmcb/fairway-live/internal/models"
	"github.com/reidmcb/fairway-live/internal/reconcile"
	"github.com/reidmcb/fairway-live/internal/scoring"
	"github.com/reidmcb/fairway-live/internal/store"
	"github.com/reidmcb/fairway-live/internal/websocket"
)

// UpdateGroups returns a handler for PUT /api/v1/competitions/:id/groups.
//
// The body is the complete new array of group definitions; any group not in it
// is removed from the plan, but no historical team or score is ever deleted.
// Each element is decoded individually so one malformed group (players that
// aren't an array, say) is skipped instead of failing the whole operation.
//
// After reconciliation every referenced team's points are recomputed and the
// merged tee sheet is broadcast to the competition's live channel. The whole
// operation is idempotent: submitting the same groups twice converges on the
// same merged state with no duplicate teams.
func UpdateGroups(st store.Store, rec *reconcile.Reconciler, points *scoring.Recomputer, hub *websocket.Hub, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		compID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid competition ID"})
		}

		var raw []json.RawMessage
		if err := json.Unmarshal(c.Body(), &raw); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "body must be an array of groups"})
		}
		incoming := make([]reconcile.GroupInput, 0, len(raw))
		for i, msg := range raw {
			var in reconcile.GroupInput
			if err := json.Unmarshal(msg, &in); err != nil {
				log.Warn("skipping malformed group definition", "competition", compID, "index", i, "err", err)
				continue
			}
			incoming = append(incoming, in)
		}

		comp, err := st.GetCompetition(c.Context(), compID)
		if err != nil {
			return storeError(c, err, "competition")
		}

		merged, err := rec.Reconcile(c.Context(), comp, incoming)
		if err != nil {
			log.Error("group reconciliation failed", "competition", compID, "err", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update groups"})
		}

		// Recompute points for every team the merged sheet references. Each
		// recompute re-reads all current scores, so order doesn't matter.
		for teamID := range referencedTeams(merged) {
			if _, err := points.RecomputeTeam(c.Context(), comp, teamID, nil); err != nil {
				log.Error("team points recompute failed", "team", teamID, "err", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to recompute team points"})
			}
		}

		resp := make([]GroupResponse, 0, len(merged))
		for _, g := range merged {
			resp = append(resp, groupResponse(g))
		}
		if err := hub.Publish(compID, "groups-updated", resp); err != nil {
			// Viewers recover with a refetch; the write already committed.
			log.Error("groups-updated broadcast failed", "competition", compID, "err", err)
		}
		return c.JSON(resp)
	}
}

func referencedTeams(groups []models.Group) map[uuid.UUID]bool {
	ids := make(map[uuid.UUID]bool)
	for _, g := range groups {
		for _, id := range []*uuid.UUID{g.TeamID, g.TeamAID, g.TeamBID} {
			if id != nil {
				ids[*id] = true
			}
		}
	}
	return ids
}
