// Package registry provides the identifier registries every entity class is
// loaded into. A registry assigns dense indices in insertion order, enforces
// identifier validity, and can be locked once loading finishes, after which
// additions fail and lookups are stable.
package registry

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/talgya/grandsim/internal/errs"
)

// DuplicatePolicy controls what a second insertion of the same identifier
// does. The policy is chosen per call site.
type DuplicatePolicy int

const (
	// DuplicateFail rejects the insertion with an error.
	DuplicateFail DuplicatePolicy = iota
	// DuplicateWarn keeps the first entry and logs a warning.
	DuplicateWarn
	// DuplicateIgnore keeps the first entry silently.
	DuplicateIgnore
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidIdentifier reports whether s is a legal entity identifier.
func ValidIdentifier(s string) bool { return identifierPattern.MatchString(s) }

// Registry stores items of type T addressed both by dense index and by
// identifier string.
type Registry[T any] struct {
	name   string
	idOf   func(*T) string
	items  []T
	index  map[string]int32
	locked bool
}

// New creates a registry. name labels log output; idOf extracts an item's
// identifier.
func New[T any](name string, idOf func(*T) string) *Registry[T] {
	return &Registry[T]{
		name:  name,
		idOf:  idOf,
		index: make(map[string]int32),
	}
}

// Add registers item and returns its assigned dense index. Errors map to the
// taxonomy: Locked after Lock, InvalidParameter for a bad identifier,
// AlreadyExists under DuplicateFail.
func (r *Registry[T]) Add(item T, policy DuplicatePolicy) (int32, errs.Set) {
	if r.locked {
		slog.Error("cannot add to locked registry", "registry", r.name)
		return -1, errs.Of(errs.Locked)
	}
	id := r.idOf(&item)
	if !ValidIdentifier(id) {
		slog.Error("invalid identifier", "registry", r.name, "identifier", id)
		return -1, errs.Of(errs.InvalidParameter)
	}
	if existing, ok := r.index[id]; ok {
		switch policy {
		case DuplicateWarn:
			slog.Warn("duplicate identifier ignored", "registry", r.name, "identifier", id)
			return existing, errs.Set(0)
		case DuplicateIgnore:
			return existing, errs.Set(0)
		default:
			slog.Error("duplicate identifier", "registry", r.name, "identifier", id)
			return -1, errs.Of(errs.AlreadyExists)
		}
	}
	idx := int32(len(r.items))
	r.items = append(r.items, item)
	r.index[id] = idx
	return idx, errs.Set(0)
}

// Lock freezes the registry. Further Adds fail; lookups stay O(1).
func (r *Registry[T]) Lock() { r.locked = true }

// Locked reports whether the registry has been locked.
func (r *Registry[T]) Locked() bool { return r.locked }

// Len returns the number of registered items.
func (r *Registry[T]) Len() int { return len(r.items) }

// At returns a pointer to the item at the given dense index.
func (r *Registry[T]) At(i int32) *T { return &r.items[i] }

// Lookup returns the dense index for an identifier.
func (r *Registry[T]) Lookup(id string) (int32, bool) {
	i, ok := r.index[id]
	return i, ok
}

// Get returns the item for an identifier.
func (r *Registry[T]) Get(id string) (*T, bool) {
	if i, ok := r.index[id]; ok {
		return &r.items[i], true
	}
	return nil, false
}

// MustGet returns the item for an identifier or an error naming the registry.
func (r *Registry[T]) MustGet(id string) (*T, error) {
	if item, ok := r.Get(id); ok {
		return item, nil
	}
	return nil, fmt.Errorf("%s %q does not exist", r.name, id)
}

// Items exposes all items in registration order.
func (r *Registry[T]) Items() []T { return r.items }

// Name returns the registry's label.
func (r *Registry[T]) Name() string { return r.name }
