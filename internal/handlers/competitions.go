// Package handlers contains the HTTP route handler functions for the Fairway
// Live API. Each exported function follows the "handler factory" pattern: it
// takes its dependencies (store, hub, services) and returns a fiber.Handler.
// This lets us inject everything without global variables.
//
// Error mapping follows one taxonomy throughout the package:
//   - malformed input (missing field, wrong array length)  -> 400, no partial write
//   - referenced competition/team/player absent            -> 404
//   - storage failure                                      -> 500, logged, caller retries
//
// Handlers commit their writes incrementally; a failure partway through leaves
// already-committed writes in place. Every operation is safe to retry.
package handlers

import (
	"errors"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/reidmcb/fairway-live/internal/models"
	"github.com/reidmcb/fairway-live/internal/store"
)

// HoleRequest is one hole definition on competition creation.
type HoleRequest struct {
	Number      int `json:"number"`      // 1-18
	Par         int `json:"par"`         // 3, 4 or 5
	StrokeIndex int `json:"strokeIndex"` // 1-18; duplicates are tolerated
}

// CreateCompetitionRequest is the JSON body for POST /api/v1/competitions.
// The competition type and handicap allowance are fixed here, once, and are not
// mutable through the normal update flow afterwards.
type CreateCompetitionRequest struct {
	Name              string        `json:"name"`
	CompetitionType   string        `json:"competitionType"`
	HandicapAllowance *int          `json:"handicapAllowance"` // Percent; nil defaults to 100
	Holes             []HoleRequest `json:"holes"`
}

// CompetitionResponse is what we send back for a competition. A dedicated
// response struct (instead of the raw GORM model) keeps the JSON surface under
// our control and lets us add computed fields like the leaderboard.
type CompetitionResponse struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	CompetitionType   string          `json:"competitionType"`
	HandicapAllowance int             `json:"handicapAllowance"`
	Holes             []HoleResponse  `json:"holes"`
	Groups            []GroupResponse `json:"groups"`
	Leaderboard       []TeamResponse  `json:"leaderboard"`
	CreatedAt         string          `json:"createdAt"`
}

type HoleResponse struct {
	Number      int `json:"number"`
	Par         int `json:"par"`
	StrokeIndex int `json:"strokeIndex"`
}

type TeamResponse struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Players          []string `json:"players"`
	TeamPoints       int      `json:"teamPoints"`
	PointsOverridden bool     `json:"pointsOverridden"`
}

type GroupResponse struct {
	ID           string                      `json:"id"`
	Position     int                         `json:"position"`
	TeeTime      *time.Time                  `json:"teeTime"`
	Players      []string                    `json:"players"`
	DisplayNames []string                    `json:"displayNames"`
	Scores       map[string][]int            `json:"scores"`
	Teeboxes     map[string]string           `json:"teeboxes"`
	Handicaps    map[string]int              `json:"handicaps"`
	MiniStats    map[string]models.MiniStats `json:"miniStats"`
	Fines        map[string]int              `json:"fines"`
	TeamID       *uuid.UUID                  `json:"teamId,omitempty"`
	TeamAID      *uuid.UUID                  `json:"teamAId,omitempty"`
	TeamBID      *uuid.UUID                  `json:"teamBId,omitempty"`
}

func groupResponse(g models.Group) GroupResponse {
	return GroupResponse{
		ID:           g.ID.String(),
		Position:     g.Position,
		TeeTime:      g.TeeTime,
		Players:      g.Players,
		DisplayNames: g.DisplayNames,
		Scores:       g.Scores,
		Teeboxes:     g.Teeboxes,
		Handicaps:    g.Handicaps,
		MiniStats:    g.MiniStats,
		Fines:        g.Fines,
		TeamID:       g.TeamID,
		TeamAID:      g.TeamAID,
		TeamBID:      g.TeamBID,
	}
}

func teamResponse(t models.Team) TeamResponse {
	return TeamResponse{
		ID:               t.ID.String(),
		Name:             t.Name,
		Players:          t.Players,
		TeamPoints:       t.TeamPoints,
		PointsOverridden: t.PointsOverridden,
	}
}

// storeError maps a store failure onto the right HTTP outcome.
func storeError(c *fiber.Ctx, err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": what + " not found"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "storage failure"})
}

// CreateCompetition returns a handler for POST /api/v1/competitions.
// Requires "admin" or "manager" role (enforced by RequireRole on the route).
func CreateCompetition(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userIDStr, _ := c.Locals("userID").(string)
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid user ID"})
		}

		var req CreateCompetitionRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
		}
		compType := models.CompetitionType(req.CompetitionType)
		if !compType.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "competitionType must be 'best_ball_pairs', 'alliance_stableford' or 'medal_strokeplay'",
			})
		}
		allowance := 100
		if req.HandicapAllowance != nil {
			allowance = *req.HandicapAllowance
			if allowance < 0 || allowance > 100 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "handicapAllowance must be between 0 and 100"})
			}
		}
		if len(req.Holes) == 0 || len(req.Holes) > 18 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "between 1 and 18 holes are required"})
		}
		seen := make(map[int]bool, len(req.Holes))
		holes := make([]models.Hole, 0, len(req.Holes))
		for _, h := range req.Holes {
			if h.Number < 1 || h.Number > 18 || seen[h.Number] {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "hole numbers must be unique and between 1 and 18"})
			}
			if h.Par < 3 || h.Par > 5 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "par must be 3, 4 or 5"})
			}
			if h.StrokeIndex < 1 || h.StrokeIndex > 18 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "strokeIndex must be between 1 and 18"})
			}
			seen[h.Number] = true
			holes = append(holes, models.Hole{Number: h.Number, Par: h.Par, StrokeIndex: h.StrokeIndex})
		}

		comp := models.Competition{
			Name:              req.Name,
			CompetitionType:   compType,
			HandicapAllowance: allowance,
			CreatedBy:         userID,
			Holes:             holes,
		}
		if err := st.CreateCompetition(c.Context(), &comp); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create competition"})
		}
		return c.Status(fiber.StatusCreated).JSON(competitionResponse(&comp, nil))
	}
}

// GetCompetition returns a handler for GET /api/v1/competitions/:id. The
// response includes the full tee sheet and the leaderboard sorted by team
// points (orphaned historical teams included, so past state stays queryable).
func GetCompetition(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid competition ID"})
		}
		comp, err := st.GetCompetition(c.Context(), id)
		if err != nil {
			return storeError(c, err, "competition")
		}
		teams, err := st.ListTeams(c.Context(), id)
		if err != nil {
			return storeError(c, err, "teams")
		}
		return c.JSON(competitionResponse(comp, teams))
	}
}

func competitionResponse(comp *models.Competition, teams []models.Team) CompetitionResponse {
	resp := CompetitionResponse{
		ID:                comp.ID.String(),
		Name:              comp.Name,
		CompetitionType:   string(comp.CompetitionType),
		HandicapAllowance: comp.HandicapAllowance,
		Holes:             make([]HoleResponse, 0, len(comp.Holes)),
		Groups:            make([]GroupResponse, 0, len(comp.Groups)),
		Leaderboard:       make([]TeamResponse, 0, len(teams)),
		CreatedAt:         comp.CreatedAt.UTC().Format(time.RFC3339),
	}
	for _, h := range comp.Holes {
		resp.Holes = append(resp.Holes, HoleResponse{Number: h.Number, Par: h.Par, StrokeIndex: h.StrokeIndex})
	}
	for _, g := range comp.Groups {
		resp.Groups = append(resp.Groups, groupResponse(g))
	}
	for _, t := range teams {
		resp.Leaderboard = append(resp.Leaderboard, teamResponse(t))
	}
	sort.SliceStable(resp.Leaderboard, func(i, j int) bool {
		return resp.Leaderboard[i].TeamPoints > resp.Leaderboard[j].TeamPoints
	})
	return resp
}
