package permission

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/keshon/server-warden/datastore"
	"github.com/keshon/server-warden/internal/host"
)

// overridesKey is the datastore key the whole override map lives under.
const overridesKey = "alter_cmd"

// Record is the persisted override for one (plugin, handler) pair. Nil fields
// mean "no override, defer to whatever the plugin's source set". A pointer to
// an empty alias list is an explicit override to zero aliases, which is not
// the same as nil.
type Record struct {
	Permission *host.Tier `json:"permission,omitempty"`
	Name       *string    `json:"name,omitempty"`
	Aliases    *[]string  `json:"aliases,omitempty"`
}

// IsZero reports whether the record overrides nothing.
func (r Record) IsZero() bool {
	return r.Permission == nil && r.Name == nil && r.Aliases == nil
}

// OverrideMap is the sole persisted entity: plugin name -> handler ID -> record.
type OverrideMap map[string]map[string]Record

func (m OverrideMap) clone() OverrideMap {
	out := make(OverrideMap, len(m))
	for plugin, perPlugin := range m {
		cp := make(map[string]Record, len(perPlugin))
		for id, rec := range perPlugin {
			cp[id] = rec
		}
		out[plugin] = cp
	}
	return out
}

// Store persists the override map in the datastore. Every mutation is a full
// read-modify-write of the map, serialized through one mutex so concurrent
// patches cannot interleave and drop each other's sibling fields.
type Store struct {
	ds *datastore.DataStore
	mu sync.Mutex
}

// NewStore returns a store backed by ds.
func NewStore(ds *datastore.DataStore) *Store {
	return &Store{ds: ds}
}

// Overrides returns the full persisted override map, empty when nothing has
// been written yet. The caller owns the returned map; later patches never
// show through it.
func (s *Store) Overrides() (OverrideMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Record returns the override record for one handler. Unknown keys yield an
// empty record, never an error.
func (s *Store) Record(plugin, handlerID string) (Record, error) {
	m, err := s.Overrides()
	if err != nil {
		return Record{}, err
	}
	return m[plugin][handlerID], nil
}

// SetPermission patches the permission field of one record.
func (s *Store) SetPermission(plugin, handlerID string, tier host.Tier) error {
	return s.patch(plugin, handlerID, func(r *Record) {
		r.Permission = &tier
	})
}

// SetName patches the display name field of one record.
func (s *Store) SetName(plugin, handlerID, name string) error {
	return s.patch(plugin, handlerID, func(r *Record) {
		r.Name = &name
	})
}

// SetAliases patches the alias field of one record. The list is normalized
// before storage; nil becomes an explicit empty list.
func (s *Store) SetAliases(plugin, handlerID string, aliases []string) error {
	normalized := NormalizeAliases(aliases)
	return s.patch(plugin, handlerID, func(r *Record) {
		r.Aliases = &normalized
	})
}

// patch performs one logical read-modify-write of the override map.
func (s *Store) patch(plugin, handlerID string, fn func(*Record)) error {
	if plugin == "" || handlerID == "" {
		return fmt.Errorf("plugin and handler must be non-empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return err
	}

	perPlugin := m[plugin]
	if perPlugin == nil {
		perPlugin = make(map[string]Record)
		m[plugin] = perPlugin
	}

	rec := perPlugin[handlerID]
	fn(&rec)
	perPlugin[handlerID] = rec

	s.ds.Put(overridesKey, m)
	if err := s.ds.SaveToFile(); err != nil {
		return fmt.Errorf("failed to persist overrides: %w", err)
	}
	return nil
}

// load reads the override map from the datastore. Values come back as generic
// JSON, so they round-trip through encoding/json into the typed map.
//
// The returned map is always a private copy: the value installed in the
// datastore is shared with concurrent readers (and marshalled by the
// datastore's auto-save), so it must never be handed out or mutated in place.
// patch installs a freshly built map on every write.
func (s *Store) load() (OverrideMap, error) {
	raw, ok := s.ds.Get(overridesKey)
	if !ok {
		return OverrideMap{}, nil
	}

	// Skip the round-trip when the stored value is already typed (the common
	// case after the first patch of a process lifetime).
	if m, ok := raw.(OverrideMap); ok {
		return m.clone(), nil
	}

	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("error marshalling overrides: %w", err)
	}
	var m OverrideMap
	if err := json.Unmarshal(buf, &m); err != nil {
		return nil, fmt.Errorf("error unmarshalling overrides: %w", err)
	}
	if m == nil {
		m = OverrideMap{}
	}
	return m, nil
}

// NormalizeAliases returns aliases with duplicates removed, insertion order
// preserved. The result is never nil.
func NormalizeAliases(aliases []string) []string {
	out := make([]string, 0, len(aliases))
	seen := make(map[string]bool, len(aliases))
	for _, a := range aliases {
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}
