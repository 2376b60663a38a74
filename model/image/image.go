package image

import (
	"sort"

	"github.com/evergreen-ci/cloak"
	"github.com/pkg/errors"
)

// InstalledDependency is one (name, version) pair recorded as installed on
// an image. An empty Version means the dependency was installed without a
// version.
type InstalledDependency struct {
	Name    string `bson:"name" json:"name" db:"name"`
	Version string `bson:"version" json:"version" db:"version"`
}

// Image is a guest image that dependencies are installed into.
type Image struct {
	Name      string `bson:"_id" json:"name" db:"name"`
	OSVersion string `bson:"os_version" json:"os_version" db:"os_version"`
	Platform  string `bson:"platform" json:"platform" db:"platform"`
	IPAddr    string `bson:"ip_addr" json:"ip_addr" db:"ip_addr"`
	Port      int    `bson:"port" json:"port" db:"port"`
	Mode      string `bson:"mode" json:"mode" db:"mode"`

	Installed []InstalledDependency `bson:"installed" json:"installed" db:"-"`
}

// Validate checks the fields required to install into the image and
// defaults the mode.
func (i *Image) Validate() error {
	if i.Mode == "" {
		i.Mode = cloak.ImageModeNormal
	}
	catcher := newCatcher()
	catcher.NewWhen(i.Name == "", "image name must be set")
	catcher.NewWhen(i.OSVersion == "", "image OS version must be set")
	catcher.NewWhen(i.IPAddr == "", "image IP address must be set")
	catcher.NewWhen(i.Port <= 0 || i.Port > 65535, "image agent port is invalid")
	return catcher.Resolve()
}

// Installable returns an error if dependencies may not be installed into
// the image. Only images still in the normal mode accept new software;
// once snapshots exist they have to be cloned first.
func (i *Image) Installable() error {
	if i.Mode != cloak.ImageModeNormal {
		return errors.Errorf("image '%s' is in mode '%s'; dependencies can only be installed into images in mode '%s'",
			i.Name, i.Mode, cloak.ImageModeNormal)
	}
	return nil
}

// HasInstalled reports whether installed contains name. With a version,
// the version must match exactly; without one any version matches.
func HasInstalled(installed []InstalledDependency, name, version string) bool {
	for _, dep := range installed {
		if dep.Name != name {
			continue
		}
		if version == "" || dep.Version == version {
			return true
		}
	}
	return false
}

// Union merges the given sets, dropping duplicates, and returns the result
// ordered by name then version.
func Union(sets ...[]InstalledDependency) []InstalledDependency {
	seen := map[InstalledDependency]bool{}
	out := []InstalledDependency{}
	for _, set := range sets {
		for _, dep := range set {
			if !seen[dep] {
				seen[dep] = true
				out = append(out, dep)
			}
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Name != out[b].Name {
			return out[a].Name < out[b].Name
		}
		return out[a].Version < out[b].Version
	})
	return out
}
