// JSONB column types for the player-keyed attribute maps on Group and the ordered
// player lists on Group and Team.
//
// GORM can persist any type that implements driver.Valuer (Go value -> database
// value) and sql.Scanner (database value -> Go value). Each type below serializes
// to JSON so Postgres stores it in a jsonb column and we get the nested structure
// back as real Go maps/slices.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList is an ordered list of strings stored as a JSON array.
type StringList []string

// StringMap maps a player display name to a string attribute (e.g. teebox).
type StringMap map[string]string

// IntMap maps a player display name to an integer attribute (handicap, fines).
type IntMap map[string]int

// ScoresMap maps a player display name to an 18-slot array of gross strokes.
// A slot holding 0 means "not entered" - blank holes are never real scores.
type ScoresMap map[string][]int

// StatsMap maps a player display name to their mini-game tallies.
type StatsMap map[string]MiniStats

func jsonValue(v any) (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// jsonScan decodes a jsonb column into dest. Postgres drivers hand jsonb back as
// []byte or string depending on configuration, so both are accepted. A SQL NULL
// leaves dest at its zero value.
func jsonScan(src, dest any) error {
	if src == nil {
		return nil
	}
	switch s := src.(type) {
	case []byte:
		return json.Unmarshal(s, dest)
	case string:
		return json.Unmarshal([]byte(s), dest)
	default:
		return fmt.Errorf("cannot scan %T into %T", src, dest)
	}
}

func (l StringList) Value() (driver.Value, error) { return jsonValue([]string(l)) }
func (l *StringList) Scan(src any) error          { return jsonScan(src, l) }

func (m StringMap) Value() (driver.Value, error) { return jsonValue(map[string]string(m)) }
func (m *StringMap) Scan(src any) error          { return jsonScan(src, m) }

func (m IntMap) Value() (driver.Value, error) { return jsonValue(map[string]int(m)) }
func (m *IntMap) Scan(src any) error          { return jsonScan(src, m) }

func (m ScoresMap) Value() (driver.Value, error) { return jsonValue(map[string][]int(m)) }
func (m *ScoresMap) Scan(src any) error          { return jsonScan(src, m) }

func (m StatsMap) Value() (driver.Value, error) { return jsonValue(map[string]MiniStats(m)) }
func (m *StatsMap) Scan(src any) error          { return jsonScan(src, m) }
