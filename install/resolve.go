package install

import (
	"strings"

	"github.com/evergreen-ci/cloak/model/dependency"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// ConflictResolution records an independently requested queue entry that
// was dropped because another dependency requires the same dependency.
// The version the requiring dependency names is the one installed.
type ConflictResolution struct {
	Parent           string `json:"parent"`
	Dependency       string `json:"dependency"`
	RequestedVersion string `json:"requested_version"`
	ChosenVersion    string `json:"chosen_version"`
}

func (c ConflictResolution) String() string {
	requested := c.RequestedVersion
	if requested == "" {
		requested = "<none>"
	}
	return "'" + c.Parent + "' requires '" + c.Dependency + ":" + c.ChosenVersion +
		"', overriding requested version " + requested
}

// Graph is the result of resolving a request: the top-level queue and the
// sub-dependencies of every dependency reached from it.
type Graph struct {
	Queue         []Item
	DependingDeps map[string][]Item
	Conflicts     []ConflictResolution
}

type resolver struct {
	reg       *dependency.Registry
	osVersion string
	graph     *Graph
	expanded  map[string]bool
	path      []string
}

// Resolve expands the sub-dependencies of every queue item, depth first.
// Queue entries that another dependency requires are removed from the
// queue, unless the dependency allows several versions side by side.
func Resolve(reg *dependency.Registry, osVersion string, queue []Item) (*Graph, error) {
	r := &resolver{
		reg:       reg,
		osVersion: osVersion,
		graph: &Graph{
			Queue:         append([]Item{}, queue...),
			DependingDeps: map[string][]Item{},
			Conflicts:     []ConflictResolution{},
		},
		expanded: map[string]bool{},
	}

	for _, item := range queue {
		if err := r.expand(item.Name); err != nil {
			return nil, err
		}
	}

	grip.Debug(message.Fields{
		"message":        "resolved dependencies",
		"os":             osVersion,
		"queue":          r.graph.Queue,
		"depending_deps": r.graph.DependingDeps,
		"conflicts":      len(r.graph.Conflicts),
	})

	return r.graph, nil
}

func (r *resolver) expand(name string) error {
	for _, onPath := range r.path {
		if onPath == name {
			cycle := strings.Join(append(append([]string{}, r.path...), name), " -> ")
			return newInstallError(name, errors.Wrap(ErrDependencyCycle, cycle))
		}
	}
	if r.expanded[name] {
		return nil
	}

	d, ok := r.reg.Get(name)
	if !ok {
		return installErrorf(name, "dependency is not registered")
	}
	subs, err := d.Dependencies(r.osVersion)
	if err != nil {
		return newInstallError(name, err)
	}

	r.path = append(r.path, name)
	defer func() { r.path = r.path[:len(r.path)-1] }()

	for _, sub := range subs {
		r.graph.DependingDeps[name] = append(r.graph.DependingDeps[name], Item{Name: sub.Name, Version: sub.Version})

		if err = r.expand(sub.Name); err != nil {
			return err
		}

		r.prune(name, sub)
	}

	r.expanded[name] = true
	return nil
}

// prune removes the first queue entry for sub, which parent now installs.
func (r *resolver) prune(parent string, sub dependency.Ref) {
	pos := -1
	for i, item := range r.graph.Queue {
		if item.Name == sub.Name {
			pos = i
			break
		}
	}
	if pos < 0 {
		return
	}

	// Resolve has already checked that sub is registered.
	if d, _ := r.reg.Get(sub.Name); d.MultiVersion {
		return
	}

	removed := r.graph.Queue[pos]
	r.graph.Queue = append(r.graph.Queue[:pos], r.graph.Queue[pos+1:]...)

	if removed.Version == sub.Version {
		return
	}
	conflict := ConflictResolution{
		Parent:           parent,
		Dependency:       sub.Name,
		RequestedVersion: removed.Version,
		ChosenVersion:    sub.Version,
	}
	r.graph.Conflicts = append(r.graph.Conflicts, conflict)
	grip.Warning(message.Fields{
		"message":           "requested version overridden by a sub-dependency",
		"parent":            conflict.Parent,
		"dependency":        conflict.Dependency,
		"requested_version": conflict.RequestedVersion,
		"chosen_version":    conflict.ChosenVersion,
	})
}
