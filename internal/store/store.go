// Package store abstracts the persistence layer behind the CRUD operations the
// core components need. Two implementations exist: a GORM/PostgreSQL store used by
// the server, and an in-memory store used by tests (and usable as a dev mode).
//
// The contract is deliberately transactionally weak: no method spans more than one
// entity family, and callers must not rely on multi-row atomicity. Reconciliation
// and score writes are designed to be idempotent instead, so a crash between two
// writes is recovered by re-running the client update.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/reidmcb/fairway-live/internal/models"
)

// ErrNotFound is returned when a referenced entity does not exist. Handlers map it
// to a 404; everything else coming out of a store is treated as a storage failure.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence surface consumed by the reconciler, the scoring engine
// and the handlers.
type Store interface {
	// Competitions. GetCompetition returns the aggregate with its holes (ordered
	// by number) and groups (ordered by position) loaded.
	CreateCompetition(ctx context.Context, comp *models.Competition) error
	GetCompetition(ctx context.Context, id uuid.UUID) (*models.Competition, error)

	// SaveGroups replaces the competition's group set with the given groups.
	// Groups keep their IDs across updates, so this is an upsert of the new set
	// plus removal of group rows that are no longer present. Teams and scores
	// referenced by removed groups are never touched.
	SaveGroups(ctx context.Context, competitionID uuid.UUID, groups []models.Group) error

	// Teams. Orphaned teams (no longer referenced by any group) remain listable
	// and queryable by ID for history.
	CreateTeam(ctx context.Context, team *models.Team) error
	SaveTeam(ctx context.Context, team *models.Team) error
	GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)
	ListTeams(ctx context.Context, competitionID uuid.UUID) ([]models.Team, error)

	// Memberships, keyed by (team, normalized player name).
	UpsertMembership(ctx context.Context, m *models.TeamMembership) error
	GetMembership(ctx context.Context, teamID uuid.UUID, playerKey string) (*models.TeamMembership, error)
	ListMemberships(ctx context.Context, teamID uuid.UUID) ([]models.TeamMembership, error)

	// Scores, keyed by (competition, team, player, hole). Absent rows mean "not
	// entered"; a zero stroke count is never stored.
	UpsertScore(ctx context.Context, s *models.Score) error
	ListTeamScores(ctx context.Context, teamID uuid.UUID) ([]models.Score, error)
	ListPlayerScores(ctx context.Context, teamID uuid.UUID, playerKey string) ([]models.Score, error)
	DeletePlayerScores(ctx context.Context, teamID uuid.UUID, playerKey string) error
}
