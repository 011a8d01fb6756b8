// Package migrations implements tokenchain's versioned migrations
// engine: a fixed, compile-time registry of named state transitions,
// each gated by a configured block height, with pure hooks a peer can
// run without any input besides height and its own committed state —
// the property that keeps independently-operated peers in agreement.
package migrations

import (
	"fmt"
	"os"
	"sort"

	"github.com/blockberries/tokenchain/codeerr"
	"github.com/blockberries/tokenchain/merkle"
	"gopkg.in/yaml.v3"
)

// Migration is one named, height-gated state transition. Every hook is
// a pure function of height, the migration's own Extra config, and the
// store's committed contents — never wall-clock time or anything else
// that could diverge between peers.
type Migration interface {
	// Name identifies the migration; must match a key in the loaded
	// configuration exactly.
	Name() string

	// Initialize runs once, the first block at which the migration
	// becomes active. It may scan and rewrite store state.
	Initialize(store *merkle.Store, extra map[string]string) error

	// TransformRead rewrites a stored value read back out under key,
	// for migrations that change a serialized representation without
	// rewriting every existing row up front. Returns data unchanged if
	// the migration has nothing to do for that key.
	TransformRead(key, data []byte) []byte

	// EndpointGate reports whether endpoint should be enabled. Most
	// migrations have no opinion and return true.
	EndpointGate(endpoint string) bool
}

// Entry is one row of the runtime migration configuration: a migration
// name, the height it activates at, whether it's disabled, and any
// migration-specific parameters.
type Entry struct {
	Name        string            `yaml:"name"`
	BlockHeight uint64            `yaml:"block_height"`
	Disabled    bool              `yaml:"disabled"`
	Extra       map[string]string `yaml:"extra"`
}

// config is the on-disk shape of a migrations configuration file.
type config struct {
	Migrations []Entry `yaml:"migrations"`
}

// Registry is the fixed, compile-time set of supported migrations.
// Register every migration the binary understands with NewRegistry;
// Load then checks a runtime configuration file against exactly this
// set.
type Registry struct {
	byName map[string]Migration
}

// NewRegistry builds a Registry from the given migrations. Names must
// be unique.
func NewRegistry(all ...Migration) *Registry {
	r := &Registry{byName: make(map[string]Migration, len(all))}
	for _, m := range all {
		r.byName[m.Name()] = m
	}
	return r
}

// ActivationSet is a loaded, height-resolved view of a Registry: for
// each compile-time-known migration, the height at which it activates
// (or never, if disabled) and any extra parameters.
type ActivationSet struct {
	registry *Registry
	entries  map[string]Entry
}

// Load reads a YAML migrations configuration from path and checks it
// against r: every migration r knows must appear exactly once, and
// every entry in the file must name a migration r knows
// (missing-migration / unsupported-migration-type).
func (r *Registry) Load(path string) (*ActivationSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("migrations: read %s: %w", path, err)
	}
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("migrations: parse %s: %w", path, err)
	}

	entries := make(map[string]Entry, len(cfg.Migrations))
	for _, e := range cfg.Migrations {
		if _, known := r.byName[e.Name]; !known {
			return nil, codeerr.UnsupportedMigrationType(e.Name)
		}
		if _, dup := entries[e.Name]; dup {
			return nil, codeerr.UnsupportedMigrationType(e.Name)
		}
		entries[e.Name] = e
	}
	for name := range r.byName {
		if _, present := entries[name]; !present {
			return nil, codeerr.MissingMigration(name)
		}
	}

	return &ActivationSet{registry: r, entries: entries}, nil
}

// ActiveAt returns every migration active at height h, in name order
// (activeNames sorts them, so Go map iteration order is never observable).
func (a *ActivationSet) ActiveAt(h uint64) []Migration {
	var out []Migration
	for _, name := range a.activeNames(h) {
		out = append(out, a.registry.byName[name])
	}
	return out
}

// IsActive reports whether the named migration is active at height h.
func (a *ActivationSet) IsActive(name string, h uint64) bool {
	e, ok := a.entries[name]
	if !ok || e.Disabled {
		return false
	}
	return h >= e.BlockHeight
}

// Extra returns the configured extra parameters for name.
func (a *ActivationSet) Extra(name string) map[string]string {
	return a.entries[name].Extra
}

func (a *ActivationSet) activeNames(h uint64) []string {
	names := make([]string, 0, len(a.entries))
	for name := range a.registry.byName {
		if a.IsActive(name, h) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// TransformRead runs every active migration's TransformRead hook over
// data, in name order, so the result is independent of registration
// order.
func (a *ActivationSet) TransformRead(h uint64, key, data []byte) []byte {
	for _, m := range a.ActiveAt(h) {
		data = m.TransformRead(key, data)
	}
	return data
}

// EndpointEnabled reports whether endpoint is enabled at height h: all
// active migrations must agree (any gate returning false disables it).
func (a *ActivationSet) EndpointEnabled(h uint64, endpoint string) bool {
	for _, m := range a.ActiveAt(h) {
		if !m.EndpointGate(endpoint) {
			return false
		}
	}
	return true
}

// RunInitializers runs Initialize for every migration that has just
// become active at height h (called once, from begin-block, the block
// at which a migration's configured height is first reached).
func (a *ActivationSet) RunInitializers(h uint64, store *merkle.Store) error {
	for _, name := range a.activeNames(h) {
		e := a.entries[name]
		if e.BlockHeight != h {
			continue
		}
		if err := a.registry.byName[name].Initialize(store, e.Extra); err != nil {
			return fmt.Errorf("migrations: initialize %q: %w", name, err)
		}
	}
	return nil
}
