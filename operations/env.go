package operations

import (
	"context"
	"os"

	"github.com/evergreen-ci/cloak"
	"github.com/evergreen-ci/cloak/deps"
	"github.com/evergreen-ci/cloak/guest"
	"github.com/evergreen-ci/cloak/install"
	"github.com/evergreen-ci/cloak/model/dependency"
	"github.com/evergreen-ci/cloak/model/image"
	"github.com/evergreen-ci/cloak/platform"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// loadSettings reads the settings file at path, or returns the defaults
// if there is none.
func loadSettings(path string) (*cloak.Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		grip.Debug(message.Fields{
			"message": "no settings file, using defaults",
			"path":    path,
		})
		return cloak.DefaultSettings(), nil
	}
	return cloak.NewSettings(path)
}

// newRegistry returns the built-in catalogue plus the custom dependencies
// declared in the settings.
func newRegistry(settings *cloak.Settings) (*dependency.Registry, error) {
	reg := deps.Catalogue()
	if err := deps.RegisterCustom(reg, settings.CustomDependencies); err != nil {
		return nil, errors.Wrap(err, "registering custom dependencies")
	}
	return reg, nil
}

// environment is what the commands share.
type environment struct {
	settings *cloak.Settings
	registry *dependency.Registry
	repo     image.Repository
	platform platform.Manager
	fetcher  dependency.Fetcher
	timing   install.Timing
	newAgent func(img *image.Image) guest.Communicator
}

func setupEnvironment(ctx context.Context, path string) (*environment, error) {
	settings, err := loadSettings(path)
	if err != nil {
		return nil, errors.Wrap(err, "loading settings")
	}

	reg, err := newRegistry(settings)
	if err != nil {
		return nil, err
	}

	manager, err := platform.GetManager(settings.Platform)
	if err != nil {
		return nil, errors.Wrap(err, "getting platform manager")
	}

	repo, err := image.NewRepository(ctx, settings.Repository)
	if err != nil {
		return nil, errors.Wrap(err, "opening image repository")
	}

	timeout := settings.Agent.RequestTimeout()
	return &environment{
		settings: settings,
		registry: reg,
		repo:     repo,
		platform: manager,
		fetcher:  deps.NewFetcher(settings.Paths.DepsCache),
		timing:   install.TimingFromConfig(settings.Install),
		newAgent: func(img *image.Image) guest.Communicator {
			return guest.NewCommunicator(img.IPAddr, img.Port, timeout)
		},
	}, nil
}

func (e *environment) close(ctx context.Context) {
	grip.Warning(message.WrapError(e.repo.Close(ctx), message.Fields{
		"message": "problem closing image repository",
		"backend": e.settings.Repository.Backend,
	}))
}
