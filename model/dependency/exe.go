package dependency

import (
	"path"
)

// Exe describes one downloadable installer.
type Exe struct {
	Version  string
	Target   string
	Arch     string
	URL      string
	SHA1     string
	Filename string
}

// File returns the name the installer is cached under.
func (e Exe) File() string {
	if e.Filename != "" {
		return e.Filename
	}
	return path.Base(e.URL)
}

// SelectExe returns the first installer matching the OS version and the
// requested version. Installers without a target or version match any. No
// match is only an error when exes is non-empty.
func SelectExe(name string, exes []Exe, osVersion, version string) (*Exe, error) {
	for i := range exes {
		if exes[i].Target != "" && exes[i].Target != osVersion {
			continue
		}
		if exes[i].Version != "" && exes[i].Version != version {
			continue
		}
		if exes[i].Arch != "" && exes[i].Arch != ArchFor(osVersion) {
			continue
		}
		return &exes[i], nil
	}
	if len(exes) == 0 {
		return nil, nil
	}
	return nil, Errorf(name, "no installer for version '%s' on '%s'", version, osVersion)
}

// ArchFor returns the installer architecture for an OS version name.
func ArchFor(osVersion string) string {
	if len(osVersion) > 3 && osVersion[len(osVersion)-3:] == "x64" {
		return "amd64"
	}
	return "x86"
}
