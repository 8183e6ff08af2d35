package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]Profile)
	registryMu sync.RWMutex
)

// Register adds an instrument profile to the registry.
// Panics if a profile with the same key is already registered or if the
// profile cannot pass the usability gate with any mapping.
func Register(p Profile) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[p.Info.Key]; exists {
		panic(fmt.Sprintf("profile already registered: %s", p.Info.Key))
	}
	if len(p.FieldsWithRole(RolePrimary)) == 0 {
		panic(fmt.Sprintf("profile %s has no primary measurement field", p.Info.Key))
	}

	registry[p.Info.Key] = cloneProfile(p)
}

// Get returns a profile by key.
// Returns false if not found.
func Get(key string) (Profile, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	p, ok := registry[key]
	if !ok {
		return Profile{}, false
	}
	return cloneProfile(p), true
}

// All returns all registered profiles sorted by key.
func All() []Profile {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Profile, 0, len(registry))
	for _, p := range registry {
		result = append(result, cloneProfile(p))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// ProfileCount returns the number of registered profiles.
func ProfileCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// ExtendSynonyms puts extra synonyms ahead of the built-in list for one field
// of a registered profile. Used to apply site-specific vocabulary.
func ExtendSynonyms(key string, field Field, synonyms []string) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	p, ok := registry[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProfile, key)
	}
	for i := range p.Fields {
		if p.Fields[i].Name != field {
			continue
		}
		merged := make([]string, 0, len(synonyms)+len(p.Fields[i].Synonyms))
		merged = append(merged, synonyms...)
		merged = append(merged, p.Fields[i].Synonyms...)
		p.Fields[i].Synonyms = merged
		registry[key] = p
		return nil
	}
	return fmt.Errorf("profile %s has no field %q", key, field)
}

// Clear removes all registered profiles.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Profile)
}

func cloneProfile(p Profile) Profile {
	fields := make([]FieldDef, len(p.Fields))
	for i, f := range p.Fields {
		f.Synonyms = append([]string(nil), f.Synonyms...)
		fields[i] = f
	}
	p.Fields = fields
	return p
}
