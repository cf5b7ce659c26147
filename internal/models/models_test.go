package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Bob", "bob"},
		{"  Bob ", "bob"},
		{"BOB", "bob"},
		{"bob", "bob"},
		{"Jean-Pierre", "jean-pierre"},
		{"STRASSE", "strasse"},
		{"Straße", "strasse"}, // case folding, not just lowercasing
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), "input %q", tt.in)
	}
}

func TestTeamKeyOrderIndependent(t *testing.T) {
	a := TeamKey([]string{"Alice", "Bob"})
	b := TeamKey([]string{"BOB ", "alice"})
	assert.Equal(t, a, b)
	assert.Equal(t, "alice|bob", a)

	assert.NotEqual(t, TeamKey([]string{"Alice", "Bob"}), TeamKey([]string{"Alice", "Carol"}))
}

func TestTeamKeyMatchesTeamMethod(t *testing.T) {
	team := Team{Players: StringList{"Carol", "Dave"}}
	assert.Equal(t, TeamKey([]string{"dave", "carol"}), team.Key())
}

func TestCompetitionTypeValid(t *testing.T) {
	assert.True(t, CompetitionBestBallPairs.Valid())
	assert.True(t, CompetitionAllianceStableford.Valid())
	assert.True(t, CompetitionMedalStrokeplay.Valid())
	assert.False(t, CompetitionType("skins").Valid())
	assert.False(t, CompetitionType("").Valid())
	assert.False(t, CompetitionType("best ball").Valid(), "no substring matching")
}

func TestCompetitionTypeSplitsPairs(t *testing.T) {
	assert.True(t, CompetitionBestBallPairs.SplitsPairs())
	assert.False(t, CompetitionAllianceStableford.SplitsPairs())
	assert.False(t, CompetitionMedalStrokeplay.SplitsPairs())
}

func TestMembershipStats(t *testing.T) {
	m := TeamMembership{Waters: 2, Dog: true, TwoClubs: 1, Fines: 50}
	assert.Equal(t, MiniStats{Waters: 2, Dog: true, TwoClubs: 1}, m.Stats())
}
