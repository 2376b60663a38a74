package install

import (
	"context"

	"github.com/evergreen-ci/cloak/model/image"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// Tracker answers whether a dependency is installed on an image, from the
// repository and from what the current run installed, and persists the
// run's installs at the end.
type Tracker struct {
	repo  image.Repository
	image string

	// run maps a dependency name to the versions installed during this
	// run. A name with no versions was installed without one.
	run   map[string][]string
	order []string
}

func NewTracker(repo image.Repository, imageName string) *Tracker {
	return &Tracker{
		repo:  repo,
		image: imageName,
		run:   map[string][]string{},
	}
}

// IsInstalled reports whether name is installed, with exactly version if
// version is not empty, either by an earlier run or by this one.
func (t *Tracker) IsInstalled(ctx context.Context, name, version string) (bool, error) {
	installed, err := t.repo.DependencyInstalled(ctx, t.image, name, version)
	if err != nil {
		return false, errors.Wrapf(err, "checking whether '%s' is installed on '%s'", name, t.image)
	}
	if installed {
		return true, nil
	}

	versions, ok := t.run[name]
	if !ok {
		return false, nil
	}
	if version == "" {
		return true, nil
	}
	for _, v := range versions {
		if v == version {
			return true, nil
		}
	}
	return false, nil
}

// Record adds name at version to the run set.
func (t *Tracker) Record(name, version string) {
	versions, ok := t.run[name]
	if !ok {
		t.order = append(t.order, name)
		versions = []string{}
	}
	if version != "" {
		versions = append(versions, version)
	}
	t.run[name] = versions
}

// Empty reports whether nothing was recorded.
func (t *Tracker) Empty() bool { return len(t.run) == 0 }

// Installed returns the run set ordered by name then version.
func (t *Tracker) Installed() []image.InstalledDependency {
	out := []image.InstalledDependency{}
	for _, name := range t.order {
		if len(t.run[name]) == 0 {
			out = append(out, image.InstalledDependency{Name: name})
			continue
		}
		for _, version := range t.run[name] {
			out = append(out, image.InstalledDependency{Name: name, Version: version})
		}
	}
	return image.Union(out)
}

// Persist merges the run set into the installed set of the image: it
// re-reads the stored set, takes the union and writes it back. Only one
// run may own an image at a time.
func (t *Tracker) Persist(ctx context.Context) error {
	stored, err := t.repo.InstalledVersions(ctx, t.image)
	if err != nil {
		return errors.Wrapf(err, "reading installed dependencies of '%s'", t.image)
	}

	merged := image.Union(stored, t.Installed())
	if err = t.repo.AddInstalledVersions(ctx, t.image, merged); err != nil {
		return errors.Wrapf(err, "saving installed dependencies of '%s'", t.image)
	}

	grip.Info(message.Fields{
		"message":   "saved installed dependencies",
		"image":     t.image,
		"run":       len(t.Installed()),
		"installed": len(merged),
	})
	return nil
}
