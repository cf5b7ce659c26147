// Package reconcile implements the group reconciler: it takes a complete,
// client-submitted array of group definitions, matches each one against the
// best-overlapping previously stored group, merges the accumulated per-player
// state onto the new player ordering, and creates or reuses the scoring teams.
//
// The one rule everything here serves: an update-groups call must never silently
// discard history. Player attributes ride along on a name match, reshuffled teams
// copy memberships and scores forward from their best predecessor, and teams or
// scores outside the merge target are left alone.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reidmcb/fairway-live/internal/models"
	"github.com/reidmcb/fairway-live/internal/store"
)

// GroupInput is one group definition as submitted by a client. The attribute maps
// are keyed by player display name; keys are matched against Players by
// normalized-name comparison, so clients don't have to be byte-exact.
type GroupInput struct {
	Players      []string                    `json:"players"`
	DisplayNames []string                    `json:"displayNames"`
	TeeTime      *time.Time                  `json:"teeTime"`
	Scores       map[string][]int            `json:"scores"`
	Teeboxes     map[string]string           `json:"teeboxes"`
	Handicaps    map[string]int              `json:"handicaps"`
	MiniStats    map[string]models.MiniStats `json:"miniStats"`
	Fines        map[string]int              `json:"fines"`
}

// Reconciler merges incoming group definitions against stored state and writes
// teams, memberships and copied-forward scores as it goes. Writes are incremental
// and idempotent rather than transactional: re-running the same update converges
// on the same state.
type Reconciler struct {
	store store.Store
	log   *slog.Logger
}

// New builds a Reconciler over the given store.
func New(st store.Store, log *slog.Logger) *Reconciler {
	return &Reconciler{store: st, log: log}
}

// Reconcile replaces the competition's groups with the incoming set, preserving
// all previously accumulated per-player state, and resolves each merged group to
// its scoring team(s). The merged groups are persisted and returned in submission
// order. Malformed groups (no players, or more than four) are skipped with a
// warning, never fatal to the whole operation.
func (r *Reconciler) Reconcile(ctx context.Context, comp *models.Competition, incoming []GroupInput) ([]models.Group, error) {
	existingTeams, err := r.store.ListTeams(ctx, comp.ID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	teamsByKey := make(map[string]*models.Team, len(existingTeams))
	for i := range existingTeams {
		teamsByKey[existingTeams[i].Key()] = &existingTeams[i]
	}

	merged := make([]models.Group, 0, len(incoming))
	usedBase := make(map[uuid.UUID]bool)
	for i, in := range incoming {
		if len(in.Players) == 0 || len(in.Players) > 4 {
			r.log.Warn("skipping malformed group", "competition", comp.ID, "position", i, "players", len(in.Players))
			continue
		}
		base := bestOverlapGroup(comp.Groups, in.Players)
		group := mergeGroup(comp.ID, base, in, len(merged))
		// A base donates its identity to at most one merged group per update.
		// When a 4-ball splits into two 2-balls, both halves merge against the
		// same base; the second half needs a fresh ID or the keyed group upsert
		// would collapse the two rows into one.
		if base != nil && usedBase[base.ID] {
			group.ID = uuid.New()
		} else if base != nil {
			usedBase[base.ID] = true
		}

		if err := r.resolveTeams(ctx, comp, &group, in, existingTeams, teamsByKey); err != nil {
			return nil, err
		}
		merged = append(merged, group)
	}

	if err := r.store.SaveGroups(ctx, comp.ID, merged); err != nil {
		return nil, fmt.Errorf("save groups: %w", err)
	}
	return merged, nil
}

// bestOverlapGroup picks the existing group sharing the strictly highest number
// of players (by normalized name) with the incoming list. Ties keep the first
// candidate encountered; zero overlap means no base at all.
func bestOverlapGroup(existing []models.Group, players []string) *models.Group {
	incoming := make(map[string]bool, len(players))
	for _, p := range players {
		incoming[models.NormalizeName(p)] = true
	}
	var best *models.Group
	bestCount := 0
	for i := range existing {
		count := 0
		for _, p := range existing[i].Players {
			if incoming[models.NormalizeName(p)] {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = &existing[i], count
		}
	}
	return best
}

// lookup finds the value stored under any key that normalizes to the same name.
func lookup[V any](m map[string]V, name string) (V, bool) {
	key := models.NormalizeName(name)
	for k, v := range m {
		if models.NormalizeName(k) == key {
			return v, true
		}
	}
	var zero V
	return zero, false
}

// mergeGroup builds the merged group: the incoming player order wins, and each
// attribute map is re-keyed onto it with incoming values taking precedence over
// the base's values for the same (normalized) player. The base is read, never
// mutated. A group keeps its base's identity so the tee sheet stays stable across
// wholesale updates.
func mergeGroup(competitionID uuid.UUID, base *models.Group, in GroupInput, position int) models.Group {
	group := models.Group{
		ID:            uuid.New(),
		CompetitionID: competitionID,
		Position:      position,
		TeeTime:       in.TeeTime,
		Players:       append(models.StringList(nil), in.Players...),
		Scores:        models.ScoresMap{},
		Teeboxes:      models.StringMap{},
		Handicaps:     models.IntMap{},
		MiniStats:     models.StatsMap{},
		Fines:         models.IntMap{},
	}
	if base != nil {
		group.ID = base.ID
		if group.TeeTime == nil {
			group.TeeTime = base.TeeTime
		}
	}

	for _, player := range in.Players {
		if v, ok := lookup(in.Scores, player); ok {
			group.Scores[player] = append([]int(nil), v...)
		} else if base != nil {
			if v, ok := lookup(base.Scores, player); ok {
				group.Scores[player] = append([]int(nil), v...)
			}
		}
		if v, ok := lookup(in.Teeboxes, player); ok {
			group.Teeboxes[player] = v
		} else if base != nil {
			if v, ok := lookup(base.Teeboxes, player); ok {
				group.Teeboxes[player] = v
			}
		}
		if v, ok := lookup(in.Handicaps, player); ok {
			group.Handicaps[player] = v
		} else if base != nil {
			if v, ok := lookup(base.Handicaps, player); ok {
				group.Handicaps[player] = v
			}
		}
		if v, ok := lookup(in.MiniStats, player); ok {
			group.MiniStats[player] = v
		} else if base != nil {
			if v, ok := lookup(base.MiniStats, player); ok {
				group.MiniStats[player] = v
			}
		}
		if v, ok := lookup(in.Fines, player); ok {
			group.Fines[player] = v
		} else if base != nil {
			if v, ok := lookup(base.Fines, player); ok {
				group.Fines[player] = v
			}
		}
	}

	group.DisplayNames = mergeDisplayNames(base, in)
	return group
}

// mergeDisplayNames repositions display labels onto the incoming player order:
// an explicitly submitted label wins, otherwise the base's label for the same
// player follows that player to their new slot, otherwise the slot is empty.
func mergeDisplayNames(base *models.Group, in GroupInput) models.StringList {
	fromBase := make(map[string]string)
	if base != nil {
		for i, p := range base.Players {
			if i < len(base.DisplayNames) && base.DisplayNames[i] != "" {
				fromBase[models.NormalizeName(p)] = base.DisplayNames[i]
			}
		}
	}
	names := make(models.StringList, len(in.Players))
	for i, p := range in.Players {
		if i < len(in.DisplayNames) && in.DisplayNames[i] != "" {
			names[i] = in.DisplayNames[i]
		} else {
			names[i] = fromBase[models.NormalizeName(p)]
		}
	}
	return names
}

// resolveTeams maps the merged group onto its scoring unit(s): the whole group,
// or two pairs when the competition type splits 4-player groups. An exact
// player-set match reuses the existing team; otherwise a new team is created and
// seeded from the best-overlapping previous team.
func (r *Reconciler) resolveTeams(ctx context.Context, comp *models.Competition, group *models.Group, in GroupInput, existingTeams []models.Team, teamsByKey map[string]*models.Team) error {
	type unit struct {
		players []string
		assign  func(id uuid.UUID)
	}
	var units []unit
	if comp.CompetitionType.SplitsPairs() && len(group.Players) == 4 {
		units = []unit{
			{players: group.Players[0:2], assign: func(id uuid.UUID) { group.TeamAID = &id }},
			{players: group.Players[2:4], assign: func(id uuid.UUID) { group.TeamBID = &id }},
		}
	} else {
		units = []unit{
			{players: group.Players, assign: func(id uuid.UUID) { group.TeamID = &id }},
		}
	}

	for _, u := range units {
		team, err := r.ensureTeam(ctx, comp, group, in, u.players, existingTeams, teamsByKey)
		if err != nil {
			return err
		}
		u.assign(team.ID)
	}
	return nil
}

// ensureTeam returns the team for the exact player set, creating and seeding one
// if it doesn't exist yet.
func (r *Reconciler) ensureTeam(ctx context.Context, comp *models.Competition, group *models.Group, in GroupInput, players []string, existingTeams []models.Team, teamsByKey map[string]*models.Team) (*models.Team, error) {
	key := models.TeamKey(players)
	if team, ok := teamsByKey[key]; ok {
		// Reused as-is. Top up memberships for any player missing one so
		// attribute updates always have a row to land on, then apply whatever
		// the client submitted explicitly this time.
		if err := r.seedMemberships(ctx, team.ID, group, players, nil); err != nil {
			return nil, err
		}
		if err := r.applyIncoming(ctx, team.ID, in, players); err != nil {
			return nil, err
		}
		return team, nil
	}

	team := &models.Team{
		ID:            uuid.New(),
		CompetitionID: comp.ID,
		Name:          strings.Join(players, " / "),
		Players:       append(models.StringList(nil), players...),
	}
	if err := r.store.CreateTeam(ctx, team); err != nil {
		return nil, fmt.Errorf("create team: %w", err)
	}

	// Clone history forward from the best-overlapping previous team so a player's
	// handicap, teebox, tallies and already-entered strokes survive a reshuffle.
	copied := map[string]bool{}
	if prev := bestOverlapTeam(existingTeams, players); prev != nil {
		var err error
		copied, err = r.copyForward(ctx, comp.ID, prev, team, players)
		if err != nil {
			return nil, err
		}
	}
	if err := r.seedMemberships(ctx, team.ID, group, players, copied); err != nil {
		return nil, err
	}
	if err := r.applyIncoming(ctx, team.ID, in, players); err != nil {
		return nil, err
	}

	teamsByKey[key] = team
	return team, nil
}

// applyIncoming writes explicitly submitted attribute values onto existing
// membership rows. Only attributes present in the incoming maps are touched:
// values the merged group carried over from its base stay where they are, so an
// update made through the player-attributes endpoint between tee sheet
// submissions is not clobbered. Team points read membership handicaps, so a
// resubmitted handicap has to land here, not just on the group map.
func (r *Reconciler) applyIncoming(ctx context.Context, teamID uuid.UUID, in GroupInput, players []string) error {
	for _, player := range players {
		hc, hasHC := lookup(in.Handicaps, player)
		tb, hasTB := lookup(in.Teeboxes, player)
		ms, hasMS := lookup(in.MiniStats, player)
		fn, hasFN := lookup(in.Fines, player)
		if !hasHC && !hasTB && !hasMS && !hasFN {
			continue
		}

		m, err := r.store.GetMembership(ctx, teamID, models.NormalizeName(player))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return fmt.Errorf("load membership for %q: %w", player, err)
		}

		changed := false
		if hasHC && m.CourseHandicap != hc {
			m.CourseHandicap = hc
			changed = true
		}
		if hasTB && m.Teebox != tb {
			m.Teebox = tb
			changed = true
		}
		if hasMS && m.Stats() != ms {
			m.Waters, m.Dog, m.TwoClubs = ms.Waters, ms.Dog, ms.TwoClubs
			changed = true
		}
		if hasFN && m.Fines != fn {
			m.Fines = fn
			changed = true
		}
		if !changed {
			continue
		}
		if err := r.store.UpsertMembership(ctx, m); err != nil {
			return fmt.Errorf("update membership for %q: %w", player, err)
		}
	}
	return nil
}

// bestOverlapTeam picks the previous team sharing the most players (by
// normalized name) with the new player set. Ties keep the first seen; zero
// overlap means no predecessor.
func bestOverlapTeam(teams []models.Team, players []string) *models.Team {
	incoming := make(map[string]bool, len(players))
	for _, p := range players {
		incoming[models.NormalizeName(p)] = true
	}
	var best *models.Team
	bestCount := 0
	for i := range teams {
		count := 0
		for _, p := range teams[i].Players {
			if incoming[models.NormalizeName(p)] {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = &teams[i], count
		}
	}
	return best
}

// copyForward duplicates the predecessor's membership and score rows onto the new
// team for every player belonging to both. Rows are copied, never moved: the old
// team keeps its full history. Returns the set of player keys that received a
// membership copy.
func (r *Reconciler) copyForward(ctx context.Context, competitionID uuid.UUID, prev, next *models.Team, players []string) (map[string]bool, error) {
	copied := make(map[string]bool)
	for _, player := range players {
		key := models.NormalizeName(player)

		m, err := r.store.GetMembership(ctx, prev.ID, key)
		switch {
		case err == nil:
			clone := *m
			clone.ID = uuid.New()
			clone.TeamID = next.ID
			if err := r.store.UpsertMembership(ctx, &clone); err != nil {
				return nil, fmt.Errorf("copy membership for %q: %w", player, err)
			}
			copied[key] = true
		case errors.Is(err, store.ErrNotFound):
			// Player wasn't on the predecessor; seeded below instead.
		default:
			return nil, fmt.Errorf("load membership for %q: %w", player, err)
		}

		scores, err := r.store.ListPlayerScores(ctx, prev.ID, key)
		if err != nil {
			return nil, fmt.Errorf("load scores for %q: %w", player, err)
		}
		for _, sc := range scores {
			clone := sc
			clone.ID = uuid.New()
			clone.TeamID = next.ID
			clone.CompetitionID = competitionID
			if err := r.store.UpsertScore(ctx, &clone); err != nil {
				return nil, fmt.Errorf("copy score for %q hole %d: %w", player, sc.HoleNumber, err)
			}
		}
	}
	return copied, nil
}

// seedMemberships makes sure every player on the team has a membership row,
// creating missing ones from the merged group's attribute maps. Players in the
// skip set (already copied forward) and players with an existing row are left
// untouched so accumulated state is never clobbered.
func (r *Reconciler) seedMemberships(ctx context.Context, teamID uuid.UUID, group *models.Group, players []string, skip map[string]bool) error {
	for _, player := range players {
		key := models.NormalizeName(player)
		if skip[key] {
			continue
		}
		if _, err := r.store.GetMembership(ctx, teamID, key); err == nil {
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("load membership for %q: %w", player, err)
		}

		m := models.TeamMembership{
			ID:         uuid.New(),
			TeamID:     teamID,
			PlayerName: strings.TrimSpace(player),
			PlayerKey:  key,
		}
		if v, ok := lookup(group.Teeboxes, player); ok {
			m.Teebox = v
		}
		if v, ok := lookup(group.Handicaps, player); ok {
			m.CourseHandicap = v
		}
		if v, ok := lookup(group.MiniStats, player); ok {
			m.Waters, m.Dog, m.TwoClubs = v.Waters, v.Dog, v.TwoClubs
		}
		if v, ok := lookup(group.Fines, player); ok {
			m.Fines = v
		}
		if err := r.store.UpsertMembership(ctx, &m); err != nil {
			return fmt.Errorf("seed membership for %q: %w", player, err)
		}
	}
	return nil
}
