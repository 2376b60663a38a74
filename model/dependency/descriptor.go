package dependency

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// Logic is the installable behavior of a dependency. A fresh value is
// created by Descriptor.New for every install.
type Logic interface {
	// Init receives the chosen version and the settings addressed to this
	// dependency (keys without the "name." prefix).
	Init(version string, settings map[string]string) error
	// Check runs after the installer, if any, has been fetched and before
	// anything is done on the guest.
	Check(rc *RunContext) error
	// Run performs the guest side work.
	Run(ctx context.Context, rc *RunContext) error
}

// Descriptor is the static description of a dependency.
type Descriptor struct {
	Name           string
	Description    string
	DefaultVersion string

	// DependsOn lists "name[:version]" references installed before this
	// dependency on every target. TargetDependsOn adds references for a
	// single OS version.
	DependsOn       []string
	TargetDependsOn map[string][]string

	MustReboot   bool
	MultiVersion bool
	Recommended  bool
	Tags         []string

	// Exes are the installers this dependency can use. When non-empty,
	// an install fails unless one matches the target and version.
	Exes []Exe

	New func() Logic
}

// Ref is a parsed "name[:version]" reference.
type Ref struct {
	Name    string
	Version string
}

func (r Ref) String() string {
	if r.Version == "" {
		return r.Name
	}
	return r.Name + ":" + r.Version
}

// ParseRef splits a "name[:version]" string on its first colon.
func ParseRef(s string) (Ref, error) {
	name, version, _ := strings.Cut(s, ":")
	ref := Ref{Name: strings.TrimSpace(name), Version: strings.TrimSpace(version)}
	if ref.Name == "" {
		return Ref{}, errors.Errorf("invalid dependency reference '%s'", s)
	}
	return ref, nil
}

// Dependencies returns the sub-dependencies of d for the given OS version,
// in declaration order.
func (d *Descriptor) Dependencies(osVersion string) ([]Ref, error) {
	raw := make([]string, 0, len(d.DependsOn)+len(d.TargetDependsOn[osVersion]))
	raw = append(raw, d.DependsOn...)
	raw = append(raw, d.TargetDependsOn[osVersion]...)

	refs := make([]Ref, 0, len(raw))
	for _, s := range raw {
		ref, err := ParseRef(s)
		if err != nil {
			return nil, errors.Wrapf(err, "dependency '%s'", d.Name)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Versions returns the distinct versions offered by the installers of d,
// plus the default version.
func (d *Descriptor) Versions() []string {
	seen := map[string]bool{}
	out := []string{}
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	add(d.DefaultVersion)
	for _, exe := range d.Exes {
		add(exe.Version)
	}
	return SortVersions(out)
}

// Validate checks that the descriptor can be registered.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return errors.New("descriptor has no name")
	}
	if strings.ContainsAny(d.Name, ":=. ") {
		return errors.Errorf("descriptor name '%s' contains reserved characters", d.Name)
	}
	if d.New == nil {
		return errors.Errorf("descriptor '%s' has no logic", d.Name)
	}
	if _, err := d.Dependencies(""); err != nil {
		return err
	}
	for target := range d.TargetDependsOn {
		if _, err := d.Dependencies(target); err != nil {
			return err
		}
	}
	for i, exe := range d.Exes {
		if exe.URL == "" || exe.SHA1 == "" {
			return errors.Errorf("installer %d of '%s' needs a URL and a SHA-1", i, d.Name)
		}
	}
	return nil
}
