// Package models defines the data structures (models) that map to database tables.
// GORM uses these structs to generate SQL queries and map database rows back to Go values.
// The struct field tags (the backtick strings like `gorm:"..."`) tell GORM how to handle
// each field: its column type, constraints, default values, and relationships.
//
// The data model represents a live golf competition tracker where:
//   - A Competition owns a fixed set of Holes and an ordered list of Groups
//   - Groups are tee-time pairings of up to 4 players, the unit players see in the UI
//   - Teams are the scoring unit (2 players, or 4 before a pair split) that Scores
//     and handicaps are actually recorded against
//   - Scores track gross strokes per player per hole; team points are always
//     recomputed from them, never accumulated
//
// Player identity is a normalized display name (see NormalizeName). TeamMembership
// carries an optional PlayerID for accounts we know about, but the matching logic
// must keep working for guest slots that only ever have a name.
package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// --- Enums ---
// Go doesn't have a built-in enum keyword, so we simulate them using a named string
// type plus constants. The values are human-readable in the database and the closed
// set is checked once at competition creation, never by substring probing.

// CompetitionType describes how a competition is scored and how groups map to teams.
// It is fixed at creation time and immutable afterwards.
type CompetitionType string

const (
	// CompetitionBestBallPairs splits each 4-player group into two 2-player teams
	// (players 1+2 and players 3+4); each team scores the better ball per hole.
	CompetitionBestBallPairs CompetitionType = "best_ball_pairs"
	// CompetitionAllianceStableford keeps a group as a single team; the best
	// individual Stableford points count per hole.
	CompetitionAllianceStableford CompetitionType = "alliance_stableford"
	// CompetitionMedalStrokeplay is classic stroke play: lowest net total wins.
	CompetitionMedalStrokeplay CompetitionType = "medal_strokeplay"
)

// Valid reports whether t is one of the known competition types.
func (t CompetitionType) Valid() bool {
	switch t {
	case CompetitionBestBallPairs, CompetitionAllianceStableford, CompetitionMedalStrokeplay:
		return true
	}
	return false
}

// SplitsPairs reports whether a 4-player group maps onto two separate 2-player teams.
func (t CompetitionType) SplitsPairs() bool {
	return t == CompetitionBestBallPairs
}

// UserRole represents a user's global permission level across the platform.
type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"   // Full access: manage users, competitions, everything
	UserRoleManager UserRole = "manager" // Can create and manage competitions
	UserRoleUser    UserRole = "user"    // Regular player: can join competitions and record scores
)

// --- Player identity ---

// NormalizeName produces the canonical matching key for a player display name:
// surrounding whitespace is trimmed and the result is Unicode case-folded.
// Every piece of name-based matching in the system goes through this function so
// "  Bob " and "BOB" resolve to the same player.
//
// A fresh Caser is built per call because cases.Caser carries internal state and
// must not be shared between goroutines.
func NormalizeName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// TeamKey computes an order-independent identity for a set of players: the sorted,
// normalized names joined with "|". Two teams with the same key are the same team.
func TeamKey(players []string) string {
	keys := make([]string, 0, len(players))
	for _, p := range players {
		keys = append(keys, NormalizeName(p))
	}
	sort.Strings(keys)
	return strings.Join(keys, "|")
}

// --- Models ---
// Each struct below maps to a database table. GORM uses the struct name (snake_cased
// and pluralized) as the table name by default: Competition -> competitions, etc.

// User represents a registered person in the system. Users are created lazily the
// first time an authenticated request hits the API (see middleware.Auth).
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ClerkID     *string   `gorm:"uniqueIndex:idx_users_clerk_id"` // External identity provider ID; pointer = nullable
	DisplayName string    `gorm:"not null"`
	Email       string    `gorm:"uniqueIndex;not null"`
	AvatarURL   *string
	Role        UserRole `gorm:"type:user_role;not null;default:'user'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Competition is the top-level aggregate: one event played over a fixed set of
// holes, with groups of players that map onto scoring teams.
//
// HandicapAllowance is the percentage of each player's course handicap that counts
// (an 85% allowance turns a 20 handicap into a playing handicap of 17). It is set
// at creation and never changed by the normal update flow.
type Competition struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name              string          `gorm:"not null"`
	CompetitionType   CompetitionType `gorm:"type:competition_type;not null"`
	HandicapAllowance int             `gorm:"not null;default:100"` // Percent, 0-100; <=0 is treated as 100 by the scoring engine
	CreatedBy         uuid.UUID       `gorm:"type:uuid;not null"`
	Creator           User            `gorm:"foreignKey:CreatedBy"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Holes             []Hole  `gorm:"foreignKey:CompetitionID"` // Ordered by Number
	Groups            []Group `gorm:"foreignKey:CompetitionID"` // Ordered by Position
}

// Hole stores per-hole details for a competition.
// StrokeIndex ranks the holes by difficulty (1 = hardest) and drives handicap
// stroke allocation. The indexes should be a permutation of 1-18 but duplicates
// are a data-quality concern, not enforced: duplicate indexes simply allocate
// strokes identically.
type Hole struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompetitionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_competition_hole"`
	Number        int       `gorm:"not null;uniqueIndex:idx_competition_hole"` // 1-18
	Par           int       `gorm:"not null"`                                  // 3, 4 or 5
	StrokeIndex   int       `gorm:"not null"`                                  // 1 (hardest) - 18 (easiest)
}

// Group represents a tee-time pairing of up to 4 players. It has its own stable
// identity (not just a position in the competition's array) so that reconciliation
// can replace the set of groups wholesale without losing track of which group is
// which across updates.
//
// The player-keyed maps are stored as JSONB columns. Keys are raw display names as
// submitted; lookups always go through NormalizeName.
type Group struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompetitionID uuid.UUID  `gorm:"type:uuid;not null;index"`
	Position      int        `gorm:"not null"` // Display order on the tee sheet
	TeeTime       *time.Time // Optional scheduled start time
	Players       StringList `gorm:"type:jsonb;not null"` // Ordered display names, up to 4
	DisplayNames  StringList `gorm:"type:jsonb"`          // Optional per-slot labels for guest slots; "" where unset
	Scores        ScoresMap  `gorm:"type:jsonb"`          // player -> 18 gross strokes (0 = blank / not entered)
	Teeboxes      StringMap  `gorm:"type:jsonb"`          // player -> teebox name
	Handicaps     IntMap     `gorm:"type:jsonb"`          // player -> course handicap
	MiniStats     StatsMap   `gorm:"type:jsonb"`          // player -> waters / dog / two-clubs tallies
	Fines         IntMap     `gorm:"type:jsonb"`          // player -> fines total
	TeamID        *uuid.UUID `gorm:"type:uuid"`           // Single team, when the group is one scoring unit
	TeamAID       *uuid.UUID `gorm:"type:uuid"`           // First pair (players 1+2) under a pair-split type
	TeamBID       *uuid.UUID `gorm:"type:uuid"`           // Second pair (players 3+4) under a pair-split type
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Team is the scoring unit. TeamPoints is derived state: it is always a pure
// function of current Score rows, Hole data and TeamMembership handicaps, and is
// recomputed from scratch on every write rather than adjusted incrementally.
// A client may override the computed total for a single write (alternate scoring
// conventions); PointsOverridden records that the stored total came from a client.
type Team struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompetitionID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	Name             string     `gorm:"not null"`
	Players          StringList `gorm:"type:jsonb;not null"` // Ordered display names: 2, or 4 before a pair split
	TeamPoints       int        `gorm:"not null;default:0"`
	PointsOverridden bool       `gorm:"not null;default:false"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Key returns the team's order-independent player-set identity.
func (t Team) Key() string { return TeamKey(t.Players) }

// MiniStats are the side-game tallies tracked per player.
type MiniStats struct {
	Waters   int  `json:"waters"`   // Balls in the water
	Dog      bool `json:"dog"`      // Currently holding "the dog" (worst shot of the day)
	TwoClubs int  `json:"twoClubs"` // Two-club-length penalties taken
}

// TeamMembership holds a player's per-team state: tee selection, course handicap
// and mini-game tallies. A membership is owned exclusively by its team; when a new
// team is cloned from a best-matching predecessor the rows are copied, not shared,
// so the old team's history stays intact.
type TeamMembership struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TeamID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_team_player"`
	PlayerID       *uuid.UUID `gorm:"type:uuid"` // Canonical account ID when the player is a known user; nil for guests
	PlayerName     string     `gorm:"not null"`  // Display name as entered
	PlayerKey      string     `gorm:"not null;uniqueIndex:idx_team_player"` // NormalizeName(PlayerName), the matching key
	Teebox         string
	CourseHandicap int `gorm:"not null;default:0"`
	Waters         int `gorm:"not null;default:0"`
	Dog            bool
	TwoClubs       int `gorm:"not null;default:0"`
	Fines          int `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Stats returns the membership's mini-game tallies as a MiniStats value.
func (m TeamMembership) Stats() MiniStats {
	return MiniStats{Waters: m.Waters, Dog: m.Dog, TwoClubs: m.TwoClubs}
}

// Score records the gross strokes a player took on a single hole, keyed by
// (competition, team, player, hole). A hole with no strokes entered has no row at
// all; zero is never stored as a sentinel.
type Score struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompetitionID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_comp_team_player_hole"`
	TeamID        uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_comp_team_player_hole"`
	PlayerKey     string     `gorm:"not null;uniqueIndex:idx_comp_team_player_hole"` // Normalized player name
	HoleNumber    int        `gorm:"not null;uniqueIndex:idx_comp_team_player_hole"` // 1-18
	Strokes       int        `gorm:"not null"`                                       // Always positive
	EnteredBy     *uuid.UUID `gorm:"type:uuid"` // Which user entered this score, when known
	EnteredAt     time.Time  `gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime"`
}
