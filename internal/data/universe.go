package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Instrument is one tradable symbol known to the local data directory.
type Instrument struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Exchange string `json:"exchange,omitempty"`
	Provider string `json:"provider,omitempty"` // where the bars came from
	Interval string `json:"interval,omitempty"`
	FirstBar string `json:"first_bar,omitempty"` // ISO 8601
	LastBar  string `json:"last_bar,omitempty"`
}

// Universe is the set of instruments that can be backtested without a
// network round trip.
type Universe struct {
	UpdatedAt   string       `json:"updated_at"` // ISO 8601 timestamp
	Instruments []Instrument `json:"instruments"`
}

// Upsert adds or replaces an instrument, keeping the list sorted by symbol.
func (u *Universe) Upsert(inst Instrument) {
	inst.Symbol = strings.ToUpper(strings.TrimSpace(inst.Symbol))
	for i := range u.Instruments {
		if u.Instruments[i].Symbol == inst.Symbol {
			u.Instruments[i] = inst
			return
		}
	}
	u.Instruments = append(u.Instruments, inst)
	sort.Slice(u.Instruments, func(i, j int) bool { return u.Instruments[i].Symbol < u.Instruments[j].Symbol })
}

func (u *Universe) Symbols() []string {
	out := make([]string, 0, len(u.Instruments))
	for _, inst := range u.Instruments {
		out = append(out, inst.Symbol)
	}
	return out
}

// LoadUniverse loads a universe from a JSON file
func LoadUniverse(filePath string) (*Universe, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe file: %w", err)
	}
	var u Universe
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("failed to parse universe file: %w", err)
	}
	return &u, nil
}

// SaveUniverse saves a universe to a JSON file
func SaveUniverse(u *Universe, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	raw, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal universe: %w", err)
	}
	if err := os.WriteFile(filePath, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write universe file: %w", err)
	}
	return nil
}

// DefaultUniversePath returns UNIVERSE_FILE or ./data/universe.json.
func DefaultUniversePath() string {
	if path := os.Getenv("UNIVERSE_FILE"); path != "" {
		return path
	}
	return "./data/universe.json"
}
