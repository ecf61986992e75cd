package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[RecordKind]KindDefinition)
	registryMu sync.RWMutex
)

// Register adds a kind definition to the registry.
// Panics if the kind is already registered or the definition is inconsistent.
func Register(def KindDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Kind]; exists {
		panic(fmt.Sprintf("record kind already registered: %s", def.Kind))
	}
	if def.IDField != "" {
		if _, ok := def.Field(def.IDField); !ok {
			panic(fmt.Sprintf("record kind %s: unknown id field %q", def.Kind, def.IDField))
		}
		if def.IDPattern == nil {
			panic(fmt.Sprintf("record kind %s: id field %q has no pattern", def.Kind, def.IDField))
		}
	}
	if def.TimeField != "" {
		if _, ok := def.Field(def.TimeField); !ok {
			panic(fmt.Sprintf("record kind %s: unknown time field %q", def.Kind, def.TimeField))
		}
	}
	if def.Label == "" {
		def.Label = string(def.Kind)
	}

	registry[def.Kind] = def
}

// Get returns a kind definition.
// Returns false if not found.
func Get(kind RecordKind) (KindDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[kind]
	return def, ok
}

// All returns all registered kind definitions sorted by kind.
func All() []KindDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]KindDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Kind < result[j].Kind
	})

	return result
}

// Kinds returns the registered kind names sorted alphabetically.
func Kinds() []RecordKind {
	defs := All()
	kinds := make([]RecordKind, len(defs))
	for i, def := range defs {
		kinds[i] = def.Kind
	}
	return kinds
}

// KindCount returns the number of registered kinds.
func KindCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}
