package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reidmcb/fairway-live/internal/models"
)

// MemoryStore is a mutex-guarded in-memory Store. It backs the package tests and
// doubles as a throwaway dev mode. Values are deep-copied on the way in and out so
// callers can't alias internal state.
type MemoryStore struct {
	mu           sync.RWMutex
	competitions map[uuid.UUID]models.Competition
	holes        map[uuid.UUID][]models.Hole  // competition -> holes
	groups       map[uuid.UUID][]models.Group // competition -> groups, position order
	teams        map[uuid.UUID]models.Team
	memberships  map[uuid.UUID]map[string]models.TeamMembership // team -> playerKey -> row
	scores       map[scoreKey]models.Score
}

type scoreKey struct {
	teamID    uuid.UUID
	playerKey string
	hole      int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		competitions: make(map[uuid.UUID]models.Competition),
		holes:        make(map[uuid.UUID][]models.Hole),
		groups:       make(map[uuid.UUID][]models.Group),
		teams:        make(map[uuid.UUID]models.Team),
		memberships:  make(map[uuid.UUID]map[string]models.TeamMembership),
		scores:       make(map[scoreKey]models.Score),
	}
}

func cloneGroup(g models.Group) models.Group {
	out := g
	out.Players = append(models.StringList(nil), g.Players...)
	out.DisplayNames = append(models.StringList(nil), g.DisplayNames...)
	if g.Scores != nil {
		out.Scores = make(models.ScoresMap, len(g.Scores))
		for k, v := range g.Scores {
			out.Scores[k] = append([]int(nil), v...)
		}
	}
	if g.Teeboxes != nil {
		out.Teeboxes = make(models.StringMap, len(g.Teeboxes))
		for k, v := range g.Teeboxes {
			out.Teeboxes[k] = v
		}
	}
	if g.Handicaps != nil {
		out.Handicaps = make(models.IntMap, len(g.Handicaps))
		for k, v := range g.Handicaps {
			out.Handicaps[k] = v
		}
	}
	if g.MiniStats != nil {
		out.MiniStats = make(models.StatsMap, len(g.MiniStats))
		for k, v := range g.MiniStats {
			out.MiniStats[k] = v
		}
	}
	if g.Fines != nil {
		out.Fines = make(models.IntMap, len(g.Fines))
		for k, v := range g.Fines {
			out.Fines[k] = v
		}
	}
	return out
}

func cloneTeam(t models.Team) models.Team {
	out := t
	out.Players = append(models.StringList(nil), t.Players...)
	return out
}

func (s *MemoryStore) CreateCompetition(_ context.Context, comp *models.Competition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if comp.ID == uuid.Nil {
		comp.ID = uuid.New()
	}
	now := time.Now()
	comp.CreatedAt, comp.UpdatedAt = now, now
	holes := make([]models.Hole, len(comp.Holes))
	for i, h := range comp.Holes {
		if h.ID == uuid.Nil {
			h.ID = uuid.New()
		}
		h.CompetitionID = comp.ID
		holes[i] = h
		comp.Holes[i] = h
	}
	stored := *comp
	stored.Holes, stored.Groups = nil, nil
	s.competitions[comp.ID] = stored
	s.holes[comp.ID] = holes
	return nil
}

func (s *MemoryStore) GetCompetition(_ context.Context, id uuid.UUID) (*models.Competition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	comp, ok := s.competitions[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := comp
	out.Holes = append([]models.Hole(nil), s.holes[id]...)
	sort.Slice(out.Holes, func(i, j int) bool { return out.Holes[i].Number < out.Holes[j].Number })
	for _, g := range s.groups[id] {
		out.Groups = append(out.Groups, cloneGroup(g))
	}
	sort.Slice(out.Groups, func(i, j int) bool { return out.Groups[i].Position < out.Groups[j].Position })
	return &out, nil
}

func (s *MemoryStore) SaveGroups(_ context.Context, competitionID uuid.UUID, groups []models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.competitions[competitionID]; !ok {
		return ErrNotFound
	}
	// Keyed on ID like the SQL upsert: a repeated ID replaces the earlier row.
	stored := make([]models.Group, 0, len(groups))
	index := make(map[uuid.UUID]int, len(groups))
	for _, g := range groups {
		g.CompetitionID = competitionID
		if i, ok := index[g.ID]; ok {
			stored[i] = cloneGroup(g)
			continue
		}
		index[g.ID] = len(stored)
		stored = append(stored, cloneGroup(g))
	}
	s.groups[competitionID] = stored
	return nil
}

func (s *MemoryStore) CreateTeam(_ context.Context, team *models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if team.ID == uuid.Nil {
		team.ID = uuid.New()
	}
	now := time.Now()
	team.CreatedAt, team.UpdatedAt = now, now
	s.teams[team.ID] = cloneTeam(*team)
	return nil
}

func (s *MemoryStore) SaveTeam(_ context.Context, team *models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[team.ID]; !ok {
		return ErrNotFound
	}
	team.UpdatedAt = time.Now()
	s.teams[team.ID] = cloneTeam(*team)
	return nil
}

func (s *MemoryStore) GetTeam(_ context.Context, id uuid.UUID) (*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, ok := s.teams[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneTeam(team)
	return &out, nil
}

func (s *MemoryStore) ListTeams(_ context.Context, competitionID uuid.UUID) ([]models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var teams []models.Team
	for _, t := range s.teams {
		if t.CompetitionID == competitionID {
			teams = append(teams, cloneTeam(t))
		}
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].CreatedAt.Before(teams[j].CreatedAt) })
	return teams, nil
}

func (s *MemoryStore) UpsertMembership(_ context.Context, m *models.TeamMembership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byPlayer := s.memberships[m.TeamID]
	if byPlayer == nil {
		byPlayer = make(map[string]models.TeamMembership)
		s.memberships[m.TeamID] = byPlayer
	}
	now := time.Now()
	if existing, ok := byPlayer[m.PlayerKey]; ok {
		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
	} else {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	byPlayer[m.PlayerKey] = *m
	return nil
}

func (s *MemoryStore) GetMembership(_ context.Context, teamID uuid.UUID, playerKey string) (*models.TeamMembership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memberships[teamID][playerKey]
	if !ok {
		return nil, ErrNotFound
	}
	out := m
	return &out, nil
}

func (s *MemoryStore) ListMemberships(_ context.Context, teamID uuid.UUID) ([]models.TeamMembership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ms []models.TeamMembership
	for _, m := range s.memberships[teamID] {
		ms = append(ms, m)
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].PlayerKey < ms[j].PlayerKey })
	return ms, nil
}

func (s *MemoryStore) UpsertScore(_ context.Context, sc *models.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := scoreKey{teamID: sc.TeamID, playerKey: sc.PlayerKey, hole: sc.HoleNumber}
	now := time.Now()
	if existing, ok := s.scores[key]; ok {
		sc.ID = existing.ID
		sc.EnteredAt = existing.EnteredAt
	} else {
		if sc.ID == uuid.Nil {
			sc.ID = uuid.New()
		}
		sc.EnteredAt = now
	}
	sc.UpdatedAt = now
	s.scores[key] = *sc
	return nil
}

func (s *MemoryStore) ListTeamScores(_ context.Context, teamID uuid.UUID) ([]models.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var scores []models.Score
	for _, sc := range s.scores {
		if sc.TeamID == teamID {
			scores = append(scores, sc)
		}
	}
	sortScores(scores)
	return scores, nil
}

func (s *MemoryStore) ListPlayerScores(_ context.Context, teamID uuid.UUID, playerKey string) ([]models.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var scores []models.Score
	for _, sc := range s.scores {
		if sc.TeamID == teamID && sc.PlayerKey == playerKey {
			scores = append(scores, sc)
		}
	}
	sortScores(scores)
	return scores, nil
}

func (s *MemoryStore) DeletePlayerScores(_ context.Context, teamID uuid.UUID, playerKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.scores {
		if key.teamID == teamID && key.playerKey == playerKey {
			delete(s.scores, key)
		}
	}
	return nil
}

func sortScores(scores []models.Score) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].PlayerKey != scores[j].PlayerKey {
			return scores[i].PlayerKey < scores[j].PlayerKey
		}
		return scores[i].HoleNumber < scores[j].HoleNumber
	})
}
