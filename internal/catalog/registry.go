package catalog

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the declared collections by name.
type Registry struct {
	mu          sync.RWMutex
	collections map[string]Collection
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{collections: make(map[string]Collection)}
}

// Register adds a collection. Names must be unique.
func (r *Registry) Register(c Collection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.collections[c.Name]; exists {
		return fmt.Errorf("collection already registered: %s", c.Name)
	}
	r.collections[c.Name] = c
	return nil
}

// Get returns a collection by name.
func (r *Registry) Get(name string) (Collection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.collections[name]
	return c, ok
}

// All returns every collection, sorted by group then name.
func (r *Registry) All() []Collection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Collection, 0, len(r.collections))
	for _, c := range r.collections {
		result = append(result, c)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Group != result[j].Group {
			return result[i].Group < result[j].Group
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// ByGroup returns the collections of group sorted by name.
func (r *Registry) ByGroup(group string) []Collection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Collection
	for _, c := range r.collections {
		if c.Group == group {
			result = append(result, c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Groups returns the group names, sorted.
func (r *Registry) Groups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for _, c := range r.collections {
		seen[c.Group] = true
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// Len returns the number of collections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.collections)
}
