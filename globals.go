package cloak

import (
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
)

const (
	// ClientVersion is the version reported by the command line client.
	ClientVersion = "2026-10-18"

	// DefaultSettingsFileName is the name of the settings file looked up
	// in the cloak home directory when no path is given.
	DefaultSettingsFileName = "settings.yml"

	// HomeDirName is the per-user directory holding settings, installer
	// downloads and VM data.
	HomeDirName = ".cloak"

	// EnvPrefix prefixes every environment variable that overrides a setting.
	EnvPrefix = "CLOAK_"
)

// Image modes. Images that have been snapshotted are no longer "normal" and
// must be cloned before their installed software can change.
const (
	ImageModeNormal   = "normal"
	ImageModeSnapshot = "snapshot"
)

// Repository backends.
const (
	RepositoryMongo    = "mongo"
	RepositoryPostgres = "postgres"
)

// Platform names.
const (
	PlatformVirtualBox = "virtualbox"
	PlatformMock       = "mock"
)

const (
	// DefaultAgentPort is the port the in-guest agent listens on.
	DefaultAgentPort = 8000

	// DefaultAgentRequestTimeout bounds a single agent HTTP request other
	// than command execution.
	DefaultAgentRequestTimeout = time.Minute

	// DefaultPrepareTimeout is how long to wait for the agent of a freshly
	// started VM.
	DefaultPrepareTimeout = 20 * time.Minute

	// DefaultRebootTimeout is how long to wait for the agent to come back
	// after a reboot. Boots after Windows updates can take a long time.
	DefaultRebootTimeout = 20 * time.Minute

	// DefaultRebootGrace is the pause after issuing a reboot so that the
	// guest actually goes down before it is polled again.
	DefaultRebootGrace = 10 * time.Second

	// DefaultAgentPollInterval is the fixed interval between agent pings
	// while waiting for a guest to become reachable.
	DefaultAgentPollInterval = time.Second

	// DefaultShutdownTimeout bounds waiting for a VM to power off.
	DefaultShutdownTimeout = 5 * time.Minute
)

// DefaultHome returns the cloak home directory of the current user.
func DefaultHome() string {
	home, err := homedir.Dir()
	if err != nil || home == "" {
		home = os.TempDir()
	}
	return filepath.Join(home, HomeDirName)
}
