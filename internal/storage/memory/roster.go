package memory

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/pokedo/internal/game/battle"
)

// rosterFile is the YAML layout of a roster seed file.
type rosterFile struct {
	Players map[string][]battle.RosterEntry `yaml:"players"`
}

// Roster serves trainers' collections from memory.
// All methods are safe for concurrent use.
type Roster struct {
	mu      sync.RWMutex
	entries map[string][]battle.RosterEntry
}

// NewRoster returns an empty Roster.
func NewRoster() *Roster {
	return &Roster{entries: make(map[string][]battle.RosterEntry)}
}

// LoadRoster decodes a roster seed document.
//
// Postcondition: every entry passed RosterEntry.Validate.
func LoadRoster(r io.Reader) (*Roster, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f rosterFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding roster: %w", err)
	}
	ros := NewRoster()
	for player, entries := range f.Players {
		if err := ros.Set(player, entries); err != nil {
			return nil, err
		}
	}
	return ros, nil
}

// LoadRosterFile reads a roster seed file from path.
func LoadRosterFile(path string) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening roster file: %w", err)
	}
	defer f.Close()
	return LoadRoster(f)
}

// Set replaces playerID's collection.
func (r *Roster) Set(playerID string, entries []battle.RosterEntry) error {
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("roster of %s, entry %d: %w", playerID, i, err)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[playerID] = slices.Clone(entries)
	return nil
}

// Roster returns a copy of playerID's collection.
func (r *Roster) Roster(ctx context.Context, playerID string) ([]battle.RosterEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.entries[playerID]), nil
}

// Players returns the ids of every trainer with a collection.
func (r *Roster) Players() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for id := range r.entries {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
