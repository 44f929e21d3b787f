package moves

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/pokedo/internal/game/pokemon"
)

//go:embed data/moves.yaml
var defaultPoolYAML []byte

// moveDef is the on-disk shape of a move.
type moveDef struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Category string `yaml:"category"`
	Power    int    `yaml:"power"`
	Accuracy *int   `yaml:"accuracy"` // nil = never misses
	PP       int    `yaml:"pp"`
	Priority int    `yaml:"priority"`
	Drain    int    `yaml:"drain"`
	Recoil   int    `yaml:"recoil"`
	Status   string `yaml:"status"`
	Chance   int    `yaml:"chance"`
	Heal     int    `yaml:"heal"`
	Protect  bool   `yaml:"protect"`
}

type poolFile struct {
	Types     map[string][]moveDef `yaml:"types"`
	Universal []moveDef            `yaml:"universal"`
	Catalog   []moveDef            `yaml:"catalog"`
}

// Pool is a read-only set of move definitions indexed by type and by name.
// It is safe for concurrent use once loaded.
type Pool struct {
	byType    map[pokemon.Type][]Move
	universal []Move
	byName    map[string]Move
}

// LoadPool parses a YAML move pool.
//
// Postcondition: every move in the returned Pool passes Validate and names are
// unique; otherwise an error describing the first bad entry is returned.
func LoadPool(r io.Reader) (*Pool, error) {
	var f poolFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding move pool: %w", err)
	}

	p := &Pool{
		byType: make(map[pokemon.Type][]Move),
		byName: make(map[string]Move),
	}
	add := func(def moveDef, defaultType string) (Move, error) {
		if def.Type == "" {
			def.Type = defaultType
		}
		m, err := def.toMove()
		if err != nil {
			return Move{}, err
		}
		if _, dup := p.byName[m.Name]; dup {
			return Move{}, fmt.Errorf("duplicate move %q", m.Name)
		}
		p.byName[m.Name] = m
		return m, nil
	}

	// Walk types in chart order so the pool layout does not depend on map order.
	for _, t := range pokemon.AllTypes() {
		defs, ok := f.Types[t.String()]
		if !ok {
			continue
		}
		for _, def := range defs {
			m, err := add(def, t.String())
			if err != nil {
				return nil, err
			}
			if m.Type != t {
				return nil, fmt.Errorf("move %q listed under %s has type %s", m.Name, t, m.Type)
			}
			p.byType[t] = append(p.byType[t], m)
		}
	}
	for key := range f.Types {
		if _, err := pokemon.ParseType(key); err != nil {
			return nil, fmt.Errorf("move pool: %w", err)
		}
	}
	for _, def := range f.Universal {
		m, err := add(def, "")
		if err != nil {
			return nil, err
		}
		p.universal = append(p.universal, m)
	}
	for _, def := range f.Catalog {
		if _, err := add(def, ""); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (d moveDef) toMove() (Move, error) {
	typ, err := pokemon.ParseType(d.Type)
	if err != nil {
		return Move{}, fmt.Errorf("move %q: %w", d.Name, err)
	}
	cat, err := ParseCategory(d.Category)
	if err != nil {
		return Move{}, fmt.Errorf("move %q: %w", d.Name, err)
	}
	status, err := pokemon.ParseStatus(d.Status)
	if err != nil {
		return Move{}, fmt.Errorf("move %q: %w", d.Name, err)
	}
	m := Move{
		Name:          d.Name,
		Type:          typ,
		Category:      cat,
		Power:         d.Power,
		Accuracy:      100,
		PP:            d.PP,
		Priority:      d.Priority,
		DrainPercent:  d.Drain,
		RecoilPercent: d.Recoil,
		Status:        status,
		EffectChance:  d.Chance,
		SelfHeal:      d.Heal > 0,
		HealPercent:   d.Heal,
		Protect:       d.Protect,
	}
	if d.Accuracy == nil {
		m.SureHit = true
	} else {
		m.Accuracy = *d.Accuracy
	}
	if err := m.Validate(); err != nil {
		return Move{}, err
	}
	return m, nil
}

var (
	defaultOnce sync.Once
	defaultPool *Pool
	defaultErr  error
)

// DefaultPool returns the pool compiled into the binary. The result is shared
// and loaded once.
func DefaultPool() (*Pool, error) {
	defaultOnce.Do(func() {
		defaultPool, defaultErr = LoadPool(bytes.NewReader(defaultPoolYAML))
	})
	return defaultPool, defaultErr
}

// Lookup returns the move with the given name from any section of the pool.
func (p *Pool) Lookup(name string) (Move, bool) {
	m, ok := p.byName[name]
	return m, ok
}

// ForType returns a copy of the generated-moveset candidates for t.
func (p *Pool) ForType(t pokemon.Type) []Move {
	src := p.byType[t]
	out := make([]Move, len(src))
	copy(out, src)
	return out
}

// Len reports the number of distinct moves in the pool.
func (p *Pool) Len() int { return len(p.byName) }
