// Package memory provides the in-memory scene store used by headless runs,
// the CLIs, and tests. The host application owns the real scene graph; this
// store mirrors the narrow slice of it the registry operates on.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"clonecore/pkg/domain"
)

var _ domain.SceneStore = (*Store)(nil)

// Store holds scene objects keyed by name under a mutex. Collections are
// derived from object membership on enumeration, never stored separately,
// so membership edits cannot drift from collection listings.
type Store struct {
	mu      sync.RWMutex
	objects map[string]domain.SceneObject
}

// NewStore returns an empty scene store.
func NewStore() *Store {
	return &Store{objects: make(map[string]domain.SceneObject)}
}

// Seed replaces the store contents with the given objects. Intended for
// test setup and snapshot loading.
func (s *Store) Seed(objects ...domain.SceneObject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = make(map[string]domain.SceneObject, len(objects))
	for _, o := range objects {
		s.objects[o.Name] = cloneObject(o)
	}
}

// Objects enumerates every object sorted by name.
func (s *Store) Objects() []domain.SceneObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SceneObject, 0, len(s.objects))
	for _, o := range s.objects {
		out = append(out, cloneObject(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Object returns the named object.
func (s *Store) Object(name string) (domain.SceneObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[name]
	if !ok {
		return domain.SceneObject{}, false
	}
	return cloneObject(o), true
}

// CollectionsMatching enumerates collections whose name matches the glob
// pattern, members sorted within each collection.
func (s *Store) CollectionsMatching(pattern string) []domain.TraitCollection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := make(map[string][]string)
	for _, o := range s.objects {
		for _, col := range o.Collections {
			ok, err := doublestar.Match(pattern, col)
			if err != nil || !ok {
				continue
			}
			members[col] = append(members[col], o.Name)
		}
	}
	out := make([]domain.TraitCollection, 0, len(members))
	for name, objs := range members {
		sort.Strings(objs)
		out = append(out, domain.TraitCollection{Name: name, Objects: objs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// InViewLayer reports whether the named object is visible in the active
// view layer. Unknown objects are not visible.
func (s *Store) InViewLayer(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[name]
	return ok && o.InViewLayer
}

func (s *Store) mutate(name string, fn func(*domain.SceneObject)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[name]
	if !ok {
		return fmt.Errorf("scene object %s not found", name)
	}
	fn(&o)
	s.objects[name] = o
	return nil
}

// SetScale updates the object's scale.
func (s *Store) SetScale(name string, scale domain.Vec3) error {
	return s.mutate(name, func(o *domain.SceneObject) { o.Scale = scale })
}

// SetPosition updates the object's position.
func (s *Store) SetPosition(name string, position domain.Vec3) error {
	return s.mutate(name, func(o *domain.SceneObject) { o.Position = position })
}

// SetBounds updates the object's model-space bounds.
func (s *Store) SetBounds(name string, min, max domain.Vec3) error {
	return s.mutate(name, func(o *domain.SceneObject) {
		o.BoundsMin = min
		o.BoundsMax = max
	})
}

// SetMembership adds or removes the object from the named collection.
func (s *Store) SetMembership(object, collection string, member bool) error {
	return s.mutate(object, func(o *domain.SceneObject) {
		idx := -1
		for i, c := range o.Collections {
			if c == collection {
				idx = i
				break
			}
		}
		switch {
		case member && idx < 0:
			o.Collections = append(o.Collections, collection)
			sort.Strings(o.Collections)
		case !member && idx >= 0:
			o.Collections = append(o.Collections[:idx], o.Collections[idx+1:]...)
		}
	})
}

// SetInViewLayer updates the object's view-layer visibility.
func (s *Store) SetInViewLayer(name string, visible bool) error {
	return s.mutate(name, func(o *domain.SceneObject) { o.InViewLayer = visible })
}

// SetShapeKeys replaces the object's shape key names.
func (s *Store) SetShapeKeys(name string, keys []string) error {
	return s.mutate(name, func(o *domain.SceneObject) {
		o.ShapeKeys = append([]string(nil), keys...)
	})
}

// snapshot is the on-disk JSON form accepted by LoadSnapshot.
type snapshot struct {
	Objects []domain.SceneObject `json:"objects"`
}

// LoadSnapshot reads a JSON scene snapshot from path and seeds the store
// with it. The CLIs use this to operate on exported scenes.
func (s *Store) LoadSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read scene snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse scene snapshot %s: %w", path, err)
	}
	s.Seed(snap.Objects...)
	return nil
}

// ExportSnapshot serialises the current scene to JSON.
func (s *Store) ExportSnapshot() ([]byte, error) {
	return json.MarshalIndent(snapshot{Objects: s.Objects()}, "", "  ")
}

func cloneObject(o domain.SceneObject) domain.SceneObject {
	out := o
	out.Collections = append([]string(nil), o.Collections...)
	out.ShapeKeys = append([]string(nil), o.ShapeKeys...)
	return out
}
