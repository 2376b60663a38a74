package dependency

import (
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// Registry maps dependency names to their descriptors. It is filled once
// at start-up and only read afterwards.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]*Descriptor
}

func NewRegistry() *Registry {
	return &Registry{descriptors: map[string]*Descriptor{}}
}

// Register adds a descriptor. Names must be unique.
func (r *Registry) Register(d Descriptor) error {
	if err := d.Validate(); err != nil {
		return errors.Wrap(err, "invalid descriptor")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.descriptors[d.Name]; ok {
		return errors.Errorf("dependency '%s' is already registered", d.Name)
	}
	r.descriptors[d.Name] = &d

	grip.Debug(message.Fields{
		"message":    "registered dependency",
		"dependency": d.Name,
		"depends_on": d.DependsOn,
	})

	return nil
}

// MustRegister is Register for static tables; it panics on error.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.descriptors[name]
	return d, ok
}

// Names returns the registered names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptors returns every descriptor ordered by name.
func (r *Registry) Descriptors() []*Descriptor {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Descriptor, 0, len(names))
	for _, name := range names {
		out = append(out, r.descriptors[name])
	}
	return out
}

// Recommended returns the descriptors flagged as recommended, ordered by
// name.
func (r *Registry) Recommended() []*Descriptor {
	out := []*Descriptor{}
	for _, d := range r.Descriptors() {
		if d.Recommended {
			out = append(out, d)
		}
	}
	return out
}

// SortVersions orders versions that parse as semantic versions
// numerically, and puts anything else (e.g. "2005sp1", "8u101") after
// them in lexical order.
func SortVersions(versions []string) []string {
	out := append([]string{}, versions...)
	sort.SliceStable(out, func(i, j int) bool {
		vi, erri := semver.NewVersion(out[i])
		vj, errj := semver.NewVersion(out[j])
		switch {
		case erri == nil && errj == nil:
			if vi.Equal(vj) {
				return out[i] < out[j]
			}
			return vi.LessThan(vj)
		case erri == nil:
			return true
		case errj == nil:
			return false
		default:
			return out[i] < out[j]
		}
	})
	return out
}
