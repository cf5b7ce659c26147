package scoring

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/reidmcb/fairway-live/internal/models"
	"github.com/reidmcb/fairway-live/internal/store"
)

// Recomputer re-derives a team's points from current Score rows and persists the
// result. It never applies deltas: every call re-reads all scores, which is what
// makes concurrent score writes for different players commutative.
type Recomputer struct {
	store store.Store
	log   *slog.Logger
}

// NewRecomputer builds a Recomputer over the given store.
func NewRecomputer(st store.Store, log *slog.Logger) *Recomputer {
	return &Recomputer{store: st, log: log}
}

// RecomputeTeam recalculates and saves the team's points.
//
// When override is non-nil the stored total takes the client's value for this
// write (alternate scoring conventions), but the full per-hole computation still
// runs against the persisted Score rows so a later non-overridden write re-derives
// the canonical total from unchanged history.
func (r *Recomputer) RecomputeTeam(ctx context.Context, comp *models.Competition, teamID uuid.UUID, override *int) (*models.Team, error) {
	team, err := r.store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("load team: %w", err)
	}
	members, err := r.store.ListMemberships(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}
	scores, err := r.store.ListTeamScores(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}

	computed := TeamPoints(members, scores, comp.Holes, comp.HandicapAllowance)
	if override != nil {
		team.TeamPoints = *override
		team.PointsOverridden = true
		r.log.Info("team points overridden",
			"team", teamID, "computed", computed, "override", *override)
	} else {
		team.TeamPoints = computed
		team.PointsOverridden = false
	}

	if err := r.store.SaveTeam(ctx, team); err != nil {
		return nil, fmt.Errorf("save team: %w", err)
	}
	return team, nil
}

// TeamTotals returns the per-player medal figures for every member of the team,
// in membership order. Used for medal leaderboards and the medal-player-updated
// live feed.
func (r *Recomputer) TeamTotals(ctx context.Context, comp *models.Competition, teamID uuid.UUID) ([]PlayerTotals, error) {
	members, err := r.store.ListMemberships(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}
	scores, err := r.store.ListTeamScores(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	totals := make([]PlayerTotals, 0, len(members))
	for _, m := range members {
		totals = append(totals, Totals(m, scores, comp.Holes, comp.HandicapAllowance))
	}
	return totals, nil
}
