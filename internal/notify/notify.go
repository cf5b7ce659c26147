// Package notify turns score and mini-stat state transitions into notable-event
// notifications ("an eagle on 7!"), suppresses duplicates through a TTL signature
// cache, and publishes the survivors to the competition's live channel.
//
// Notification is strictly best-effort: the score write it follows is the source
// of truth, so publish failures are logged and swallowed, never surfaced to the
// originating request.
package notify

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/reidmcb/fairway-live/internal/models"
)

// EventType classifies a notable event.
type EventType string

const (
	TypeEagle    EventType = "eagle"     // New gross is two under par
	TypeBirdie   EventType = "birdie"    // New gross is one under par
	TypeBlowUp   EventType = "blow-up"   // New gross is triple bogey or worse
	TypeWater    EventType = "water"     // Another ball in the water
	TypeDog      EventType = "dog"       // The dog has a new owner
	TypeTwoClubs EventType = "two-clubs" // Another two-club penalty
)

// PopupEvent is the payload published for a surviving notable event. Origin
// carries the originating client's tag when the event came from an optimistic
// client emission, so that client can suppress its own redundant popup.
type PopupEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	CompetitionID uuid.UUID `json:"competitionId"`
	TeamID        uuid.UUID `json:"teamId"`
	Player        string    `json:"player"`
	Hole          int       `json:"hole,omitempty"`
	Gross         int       `json:"gross,omitempty"`
	Origin        string    `json:"origin,omitempty"`
	At            time.Time `json:"at"`
}

// signature is the deterministic dedup key: everything that identifies the
// logical real-world event, and nothing (like timestamps or event IDs) that
// differs between duplicate triggers of it.
func (e PopupEvent) signature() string {
	return fmt.Sprintf("%s|%s|%s|%s|%d",
		e.Type, e.CompetitionID, e.TeamID, models.NormalizeName(e.Player), e.Hole)
}

// Publisher is the slice of the live transport the notifier needs.
type Publisher interface {
	Publish(competitionID uuid.UUID, messageType string, payload any) error
}

// Notifier classifies state transitions and emits the surviving events.
type Notifier struct {
	pub    Publisher
	dedupe *Deduper
	log    *slog.Logger
}

// New builds a Notifier publishing through pub and deduplicating through dedupe.
func New(pub Publisher, dedupe *Deduper, log *slog.Logger) *Notifier {
	return &Notifier{pub: pub, dedupe: dedupe, log: log}
}

// ScoreEvents diffs a player's 18-hole score arrays from before and after a write
// and emits one event per changed hole that classifies as notable. Classification
// uses the new gross value against par, unadjusted; handicap strokes are a
// scoring concern, not a "did something exciting happen" concern.
func (n *Notifier) ScoreEvents(comp *models.Competition, teamID uuid.UUID, player string, before, after []int, origin string) []PopupEvent {
	parByHole := make(map[int]int, len(comp.Holes))
	for _, h := range comp.Holes {
		parByHole[h.Number] = h.Par
	}

	var emitted []PopupEvent
	for i := 0; i < 18 && i < len(after); i++ {
		gross := after[i]
		if gross <= 0 || (i < len(before) && before[i] == gross) {
			continue
		}
		par, ok := parByHole[i+1]
		if !ok {
			continue
		}
		var typ EventType
		switch diff := gross - par; {
		case diff == -2:
			typ = TypeEagle
		case diff == -1:
			typ = TypeBirdie
		case diff >= 3:
			typ = TypeBlowUp
		default:
			continue
		}
		ev := PopupEvent{
			Type:          typ,
			CompetitionID: comp.ID,
			TeamID:        teamID,
			Player:        player,
			Hole:          i + 1,
			Gross:         gross,
			Origin:        origin,
		}
		n.emit(ev, &emitted)
	}
	return emitted
}

// StatEvents compares a player's mini-game tallies before and after a write.
// Only upward transitions are notable: a water count or two-club count going up,
// or the dog changing hands (false -> true). Corrections downward stay silent.
func (n *Notifier) StatEvents(comp *models.Competition, teamID uuid.UUID, player string, before, after models.MiniStats, origin string) []PopupEvent {
	var emitted []PopupEvent
	base := PopupEvent{
		CompetitionID: comp.ID,
		TeamID:        teamID,
		Player:        player,
		Origin:        origin,
	}
	if after.Waters > before.Waters {
		ev := base
		ev.Type = TypeWater
		n.emit(ev, &emitted)
	}
	if after.Dog && !before.Dog {
		ev := base
		ev.Type = TypeDog
		n.emit(ev, &emitted)
	}
	if after.TwoClubs > before.TwoClubs {
		ev := base
		ev.Type = TypeTwoClubs
		n.emit(ev, &emitted)
	}
	return emitted
}

// EmitClientEvent pushes a client-originated (optimistic echo) event through the
// same dedup and publish path as server-detected ones. Returns whether the event
// survived deduplication.
func (n *Notifier) EmitClientEvent(ev PopupEvent) bool {
	var emitted []PopupEvent
	n.emit(ev, &emitted)
	return len(emitted) == 1
}

// emit applies dedup, stamps identity, publishes, and appends to out on success.
// A repeat within the TTL is dropped silently; a publish failure is logged and
// the event still counts as emitted (the write it describes already happened).
func (n *Notifier) emit(ev PopupEvent, out *[]PopupEvent) bool {
	if n.dedupe.Seen(ev.signature()) {
		return false
	}
	ev.ID = uuid.NewString()
	ev.At = time.Now()
	if err := n.pub.Publish(ev.CompetitionID, "popup-event", ev); err != nil {
		n.log.Error("publish popup event failed",
			"competition", ev.CompetitionID, "type", ev.Type, "player", ev.Player, "err", err)
	}
	*out = append(*out, ev)
	return true
}
