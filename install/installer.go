package install

import (
	"context"
	"fmt"
	"time"

	"github.com/evergreen-ci/cloak"
	"github.com/evergreen-ci/cloak/guest"
	"github.com/evergreen-ci/cloak/model/dependency"
	"github.com/evergreen-ci/cloak/model/image"
	"github.com/evergreen-ci/cloak/platform"
	"github.com/google/uuid"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/mongodb/grip/recovery"
	"github.com/pkg/errors"
)

// Timing holds the waits of a run.
type Timing struct {
	RebootGrace   time.Duration
	RebootTimeout time.Duration
	PollInterval  time.Duration
}

// TimingFromConfig returns the timing of the install section of the
// settings.
func TimingFromConfig(conf cloak.InstallConfig) Timing {
	return Timing{
		RebootGrace:   conf.RebootGrace(),
		RebootTimeout: conf.RebootTimeout(),
		PollInterval:  conf.PollInterval(),
	}
}

// Options configures an Installer.
type Options struct {
	Image *image.Image
	// Tokens are the raw dependency and settings arguments.
	Tokens []string
	// Recommended prepends the recommended dependencies of the image OS.
	Recommended bool
	Recipes     map[string][]string

	Registry   *dependency.Registry
	Repository image.Repository
	Agent      guest.Communicator
	Platform   platform.Manager
	Fetcher    dependency.Fetcher
	Attributes platform.Attributes
	Timing     Timing
}

func (o *Options) validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(o.Image == nil, "image must be specified")
	catcher.NewWhen(o.Registry == nil, "dependency registry must be specified")
	catcher.NewWhen(o.Repository == nil, "image repository must be specified")
	catcher.NewWhen(o.Agent == nil, "guest agent must be specified")
	catcher.NewWhen(o.Platform == nil, "platform must be specified")
	if catcher.HasErrors() {
		return catcher.Resolve()
	}

	if o.Timing.PollInterval <= 0 {
		o.Timing.PollInterval = cloak.DefaultAgentPollInterval
	}
	if o.Timing.RebootTimeout <= 0 {
		o.Timing.RebootTimeout = cloak.DefaultRebootTimeout
	}
	if o.Timing.RebootGrace < 0 {
		o.Timing.RebootGrace = 0
	}
	return nil
}

// Installer installs the dependencies of one request into the running
// guest of one image. An Installer is used by a single goroutine.
type Installer struct {
	id       string
	image    *image.Image
	request  *Request
	graph    *Graph
	registry *dependency.Registry
	tracker  *Tracker
	agent    guest.Communicator
	platform platform.Manager
	fetcher  dependency.Fetcher
	attrs    platform.Attributes
	timing   Timing

	sleep     func(context.Context, time.Duration) error
	prepared  bool
	startedVM bool
	reboots   int
}

// NewInstaller parses and validates the request. Nothing is done to the
// guest or the repository if it fails.
func NewInstaller(opts Options) (*Installer, error) {
	if err := opts.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid installer options")
	}
	if err := opts.Image.Validate(); err != nil {
		return nil, newInstallError("", errors.Wrapf(err, "invalid image '%s'", opts.Image.Name))
	}
	if err := opts.Image.Installable(); err != nil {
		return nil, newInstallError("", err)
	}

	req, err := ParseRequest(opts.Tokens)
	if err != nil {
		return nil, err
	}
	if opts.Recommended {
		recommended, err := RecommendedItems(opts.Registry, opts.Recipes, opts.Image.OSVersion)
		if err != nil {
			return nil, err
		}
		req.Items = append(recommended, req.Items...)
	}
	if len(req.Items) == 0 {
		return nil, installErrorf("", "no dependencies to install")
	}
	if err = req.Validate(opts.Registry); err != nil {
		return nil, err
	}

	return &Installer{
		id:       uuid.New().String(),
		image:    opts.Image,
		request:  req,
		registry: opts.Registry,
		tracker:  NewTracker(opts.Repository, opts.Image.Name),
		agent:    opts.Agent,
		platform: opts.Platform,
		fetcher:  opts.Fetcher,
		attrs:    opts.Attributes,
		timing:   opts.Timing,
		sleep:    sleepContext,
	}, nil
}

// ID identifies the run in logs.
func (i *Installer) ID() string { return i.id }

// Request returns the parsed request.
func (i *Installer) Request() *Request { return i.request }

// Graph returns the resolved dependencies; it is nil before Prepare.
func (i *Installer) Graph() *Graph { return i.graph }

// Installed returns what this run installed.
func (i *Installer) Installed() []image.InstalledDependency { return i.tracker.Installed() }

// Reboots returns the number of reboots issued so far.
func (i *Installer) Reboots() int { return i.reboots }

// Prepare resolves the request, starts the VM of the image unless
// noMachineStart is set, and waits up to timeout for its agent.
func (i *Installer) Prepare(ctx context.Context, timeout time.Duration, noMachineStart bool) error {
	graph, err := Resolve(i.registry, i.image.OSVersion, i.request.Items)
	if err != nil {
		return err
	}
	i.graph = graph

	grip.Info(message.Fields{
		"message":          "prepared install queue",
		"image":            i.image.Name,
		"run_id":           i.id,
		"queue":            graph.Queue,
		"no_machine_start": noMachineStart,
	})

	if !noMachineStart {
		if err = i.platform.StartVM(ctx, i.image, i.attrs); err != nil {
			return errors.Wrapf(err, "starting VM '%s'", i.image.Name)
		}
		i.startedVM = true
	}

	if err = i.waitForAgent(ctx, timeout); err != nil {
		return err
	}
	i.prepared = true
	return nil
}

// InstallAll installs every queue item in order. A failed item is logged
// and does not stop the items after it. The result is true if every item
// succeeded. An error is only returned when the guest agent became
// unreachable, which ends the run.
func (i *Installer) InstallAll(ctx context.Context, skipInstalled bool) (bool, error) {
	if !i.prepared {
		return false, errors.New("installer has not been prepared")
	}

	hasFailures := false
	for pos, item := range i.graph.Queue {
		installed, err := i.doInstall(ctx, item.Name, item.Version, skipInstalled)
		if err != nil {
			if IsAgentUnreachable(err) {
				return false, err
			}
			grip.Error(message.WrapError(err, message.Fields{
				"message":    "failed to install dependency",
				"dependency": item.Name,
				"version":    item.Version,
				"image":      i.image.Name,
				"run_id":     i.id,
			}))
			hasFailures = true
			continue
		}

		d, _ := i.registry.Get(item.Name)
		if installed && d.MustReboot && pos != len(i.graph.Queue)-1 {
			if err = i.doReboot(ctx); err != nil {
				return false, err
			}
		}
	}

	grip.Info(message.Fields{
		"message":   "no more dependencies to install",
		"image":     i.image.Name,
		"run_id":    i.id,
		"installed": i.tracker.Installed(),
		"failures":  hasFailures,
	})
	return !hasFailures, nil
}

// doInstall installs name after its sub-dependencies. It reports whether
// anything was installed; false with a nil error means it was already
// installed.
func (i *Installer) doInstall(ctx context.Context, name, version string, skipInstalled bool) (bool, error) {
	if skipInstalled {
		installed, err := i.tracker.IsInstalled(ctx, name, version)
		if err != nil {
			return false, newInstallError(name, err)
		}
		if installed {
			grip.Debug(message.Fields{
				"message":    "dependency already installed",
				"dependency": name,
				"version":    version,
				"run_id":     i.id,
			})
			return false, nil
		}
	}

	installedSubs := false
	for _, sub := range i.graph.DependingDeps[name] {
		installed, err := i.doInstall(ctx, sub.Name, sub.Version, true)
		if err != nil {
			if IsAgentUnreachable(err) {
				return false, err
			}
			return false, newInstallError(name, errors.Wrapf(err, "sub-dependency '%s' did not succeed", sub))
		}
		installedSubs = installedSubs || installed
	}

	if installedSubs {
		grip.Info(message.Fields{
			"message":    "rebooting for sub-dependencies to take effect",
			"dependency": name,
			"run_id":     i.id,
		})
		if err := i.doReboot(ctx); err != nil {
			return false, err
		}
	}

	d, ok := i.registry.Get(name)
	if !ok {
		return false, installErrorf(name, "dependency is not registered")
	}
	if version == "" {
		version = d.DefaultVersion
	}

	grip.Info(message.Fields{
		"message":    "installing dependency",
		"dependency": name,
		"version":    version,
		"image":      i.image.Name,
		"run_id":     i.id,
	})
	if err := i.runInstallable(ctx, d, version); err != nil {
		return false, err
	}

	i.tracker.Record(name, version)
	return true, nil
}

// runInstallable runs the logic of d. Every failure of the logic,
// including a panic, is returned as an InstallError naming d.
func (i *Installer) runInstallable(ctx context.Context, d *dependency.Descriptor, version string) (err error) {
	defer func() {
		if panicErr := recovery.HandlePanicWithError(recover(), nil, "installing "+d.Name); panicErr != nil {
			err = newInstallError(d.Name, panicErr)
		}
	}()

	settings := dependency.SettingsFor(d.Name, i.request.Settings)
	rc := &dependency.RunContext{
		Name:         d.Name,
		Version:      version,
		OSVersion:    i.image.OSVersion,
		Settings:     settings,
		Agent:        i.agent,
		Machinery:    i.platform,
		Image:        i.image,
		Fetcher:      i.fetcher,
		PollInterval: i.timing.PollInterval,
	}

	err = i.execute(ctx, d, rc)
	if err == nil {
		return nil
	}

	fields := message.Fields{
		"message":    "dependency failed",
		"dependency": d.Name,
		"version":    version,
		"os":         i.image.OSVersion,
		"run_id":     i.id,
	}
	if !dependency.IsDependencyError(err) {
		fields["message"] = "unexpected failure during install"
		fields["detail"] = fmt.Sprintf("%+v", err)
	}
	grip.Error(message.WrapError(err, fields))

	return newInstallError(d.Name, err)
}

func (i *Installer) execute(ctx context.Context, d *dependency.Descriptor, rc *dependency.RunContext) error {
	logic := d.New()
	if err := logic.Init(rc.Version, rc.Settings); err != nil {
		return errors.Wrap(err, "initializing")
	}

	exe, err := dependency.SelectExe(d.Name, d.Exes, rc.OSVersion, rc.Version)
	if err != nil {
		return err
	}
	if exe != nil {
		if i.fetcher == nil {
			return dependency.Errorf(d.Name, "no fetcher is configured to download '%s'", exe.File())
		}
		rc.Exe = exe
		if rc.Installer, err = i.fetcher.Fetch(ctx, *exe); err != nil {
			return dependency.WrapError(err, d.Name, "fetching installer")
		}
	}

	if err = logic.Check(rc); err != nil {
		return err
	}
	return logic.Run(ctx, rc)
}

// Finish saves what this run installed and, if doShutdown is set and the
// VM was started by Prepare, shuts the guest down and removes its runtime
// data. Shutdown problems are logged only.
func (i *Installer) Finish(ctx context.Context, doShutdown bool) error {
	catcher := grip.NewBasicCatcher()
	if !i.tracker.Empty() {
		catcher.Wrap(i.tracker.Persist(ctx), "persisting installed dependencies")
	}

	if !doShutdown || !i.startedVM {
		return catcher.Resolve()
	}

	grip.Debug(message.Fields{
		"message": "shutting down guest",
		"image":   i.image.Name,
		"run_id":  i.id,
	})
	grip.Error(message.WrapError(i.agent.Shutdown(ctx), message.Fields{
		"message": "could not send shutdown command to agent",
		"image":   i.image.Name,
		"run_id":  i.id,
	}))
	grip.Error(message.WrapError(i.platform.WaitForShutdown(ctx, i.image.Name), message.Fields{
		"message": "error while waiting for VM to shut down",
		"image":   i.image.Name,
		"run_id":  i.id,
	}))
	catcher.Wrapf(i.platform.RemoveVMData(ctx, i.image.Name), "removing data of VM '%s'", i.image.Name)

	return catcher.Resolve()
}
