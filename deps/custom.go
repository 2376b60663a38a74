package deps

import (
	"context"
	"strings"

	"github.com/evergreen-ci/cloak"
	"github.com/evergreen-ci/cloak/model/dependency"
	"github.com/google/shlex"
	"github.com/pkg/errors"
)

// customDependency runs a dependency declared in the settings file: the
// optional installer with its arguments, then every command in order.
// Commands are passed to the guest verbatim; they are only lexed to reject
// unbalanced quoting before anything runs.
type customDependency struct {
	base
	conf     cloak.CustomDependencyConfig
	commands []string
}

func (c *customDependency) Init(version string, settings map[string]string) error {
	if err := c.base.Init(version, settings); err != nil {
		return err
	}

	if _, err := shlex.Split(c.conf.Arguments); err != nil {
		return dependency.WrapError(err, c.conf.Name, "parsing installer arguments")
	}

	c.commands = make([]string, 0, len(c.conf.Commands))
	for _, command := range c.conf.Commands {
		argv, err := shlex.Split(command)
		if err != nil {
			return dependency.WrapError(err, c.conf.Name, "parsing command '"+command+"'")
		}
		if len(argv) == 0 {
			continue
		}
		c.commands = append(c.commands, strings.TrimSpace(command))
	}
	return nil
}

func (c *customDependency) Run(ctx context.Context, rc *dependency.RunContext) error {
	if rc.Exe != nil {
		guestPath := `C:\` + rc.Exe.File()
		if err := runInstaller(ctx, rc, guestPath, strings.TrimSpace(c.conf.Arguments), exitRebootRequired, exitAlreadyDone); err != nil {
			return err
		}
	}

	for _, command := range c.commands {
		if err := rc.ExecOK(ctx, command); err != nil {
			return err
		}
	}
	return nil
}

// CustomDescriptor builds the descriptor of a dependency declared in the
// settings file.
func CustomDescriptor(conf cloak.CustomDependencyConfig) dependency.Descriptor {
	d := dependency.Descriptor{
		Name:           conf.Name,
		Description:    conf.Description,
		DefaultVersion: conf.DefaultVersion,
		DependsOn:      conf.DependsOn,
		MustReboot:     conf.MustReboot,
		MultiVersion:   conf.MultiVersion,
		Recommended:    conf.Recommended,
		Tags:           append([]string{"custom"}, conf.Tags...),
		New: func() dependency.Logic {
			return &customDependency{conf: conf}
		},
	}
	if d.Description == "" {
		d.Description = "Custom dependency " + conf.Name
	}
	if conf.URL != "" {
		d.Exes = []dependency.Exe{{URL: conf.URL, SHA1: conf.SHA1, Filename: conf.Filename}}
	}
	return d
}

// RegisterCustom adds the custom dependencies from the settings file to
// reg. A custom dependency may not shadow a built-in one.
func RegisterCustom(reg *dependency.Registry, confs []cloak.CustomDependencyConfig) error {
	for _, conf := range confs {
		if err := reg.Register(CustomDescriptor(conf)); err != nil {
			return errors.Wrapf(err, "registering custom dependency '%s'", conf.Name)
		}
	}
	return nil
}
