package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/reidmcb/fairway-live/internal/models"
)

// GormStore is the PostgreSQL-backed Store used by the server.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps a connected *gorm.DB in a Store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) CreateCompetition(ctx context.Context, comp *models.Competition) error {
	return s.db.WithContext(ctx).Create(comp).Error
}

func (s *GormStore) GetCompetition(ctx context.Context, id uuid.UUID) (*models.Competition, error) {
	var comp models.Competition
	err := s.db.WithContext(ctx).
		Preload("Holes", func(db *gorm.DB) *gorm.DB { return db.Order("number ASC") }).
		Preload("Groups", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&comp, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &comp, nil
}

// SaveGroups upserts the new group set and removes rows that are no longer part of
// the plan. Removed groups take nothing with them: their teams, memberships and
// scores stay untouched for history.
func (s *GormStore) SaveGroups(ctx context.Context, competitionID uuid.UUID, groups []models.Group) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		keep := make([]uuid.UUID, 0, len(groups))
		for i := range groups {
			groups[i].CompetitionID = competitionID
			keep = append(keep, groups[i].ID)
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).Create(&groups[i]).Error; err != nil {
				return fmt.Errorf("save group %s: %w", groups[i].ID, err)
			}
		}
		del := tx.Where("competition_id = ?", competitionID)
		if len(keep) > 0 {
			del = del.Where("id NOT IN ?", keep)
		}
		return del.Delete(&models.Group{}).Error
	})
}

func (s *GormStore) CreateTeam(ctx context.Context, team *models.Team) error {
	return s.db.WithContext(ctx).Create(team).Error
}

func (s *GormStore) SaveTeam(ctx context.Context, team *models.Team) error {
	return s.db.WithContext(ctx).Save(team).Error
}

func (s *GormStore) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	var team models.Team
	if err := s.db.WithContext(ctx).First(&team, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &team, nil
}

func (s *GormStore) ListTeams(ctx context.Context, competitionID uuid.UUID) ([]models.Team, error) {
	var teams []models.Team
	err := s.db.WithContext(ctx).
		Where("competition_id = ?", competitionID).
		Order("created_at ASC").
		Find(&teams).Error
	return teams, err
}

// UpsertMembership inserts or updates the (team, player) row. ON CONFLICT keeps the
// row's identity stable so repeated attribute updates never duplicate a membership.
func (s *GormStore) UpsertMembership(ctx context.Context, m *models.TeamMembership) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "team_id"}, {Name: "player_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"player_id", "player_name", "teebox", "course_handicap",
			"waters", "dog", "two_clubs", "fines", "updated_at",
		}),
	}).Create(m).Error
}

func (s *GormStore) GetMembership(ctx context.Context, teamID uuid.UUID, playerKey string) (*models.TeamMembership, error) {
	var m models.TeamMembership
	err := s.db.WithContext(ctx).
		Where("team_id = ? AND player_key = ?", teamID, playerKey).
		First(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *GormStore) ListMemberships(ctx context.Context, teamID uuid.UUID) ([]models.TeamMembership, error) {
	var ms []models.TeamMembership
	err := s.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at ASC").
		Find(&ms).Error
	return ms, err
}

// UpsertScore is last-writer-wins on the (competition, team, player, hole) cell:
// no version check, the later write simply replaces the strokes.
func (s *GormStore) UpsertScore(ctx context.Context, sc *models.Score) error {
	if sc.ID == uuid.Nil {
		sc.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "competition_id"}, {Name: "team_id"},
			{Name: "player_key"}, {Name: "hole_number"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"strokes", "entered_by", "updated_at"}),
	}).Create(sc).Error
}

func (s *GormStore) ListTeamScores(ctx context.Context, teamID uuid.UUID) ([]models.Score, error) {
	var scores []models.Score
	err := s.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("hole_number ASC").
		Find(&scores).Error
	return scores, err
}

func (s *GormStore) ListPlayerScores(ctx context.Context, teamID uuid.UUID, playerKey string) ([]models.Score, error) {
	var scores []models.Score
	err := s.db.WithContext(ctx).
		Where("team_id = ? AND player_key = ?", teamID, playerKey).
		Order("hole_number ASC").
		Find(&scores).Error
	return scores, err
}

func (s *GormStore) DeletePlayerScores(ctx context.Context, teamID uuid.UUID, playerKey string) error {
	return s.db.WithContext(ctx).
		Where("team_id = ? AND player_key = ?", teamID, playerKey).
		Delete(&models.Score{}).Error
}
