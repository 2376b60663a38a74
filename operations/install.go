package operations

import (
	"context"

	"github.com/evergreen-ci/cloak/deps"
	"github.com/evergreen-ci/cloak/install"
	"github.com/evergreen-ci/cloak/platform"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

type installArgs struct {
	image          string
	tokens         []string
	recommended    bool
	force          bool
	noMachineStart bool
	attrs          platform.Attributes
}

func Install() cli.Command {
	return cli.Command{
		Name:      "install",
		Usage:     "install dependencies into a guest image",
		ArgsUsage: "IMAGE [DEPENDENCY[:VERSION] | DEPENDENCY.KEY=VALUE]...",
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  recommendedFlagName,
				Usage: "also install the recommended dependencies of the image OS",
			},
			cli.BoolFlag{
				Name:  forceFlagName,
				Usage: "install requested dependencies even if they are already installed",
			},
			cli.BoolFlag{
				Name:  noMachineStartFlagName,
				Usage: "use the already running guest instead of starting its VM",
			},
			cli.BoolFlag{
				Name:  vmVisibleFlagName,
				Usage: "start the VM with a visible display",
			},
			cli.BoolFlag{
				Name:  debugFlagName,
				Usage: "log at debug level",
			},
			cli.IntFlag{
				Name:  cpusFlagName,
				Usage: "number of CPUs to give the VM while installing",
			},
			cli.IntFlag{
				Name:  memoryFlagName,
				Usage: "memory in MB to give the VM while installing",
			},
		},
		Before: mergeBeforeFuncs(
			requireArgs(1, "the image name"),
			setDebugLevel,
		),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			env, err := setupEnvironment(ctx, confPath(c))
			if err != nil {
				return err
			}
			defer env.close(ctx)

			return runInstall(ctx, env, installArgs{
				image:          c.Args().First(),
				tokens:         c.Args().Tail(),
				recommended:    c.Bool(recommendedFlagName),
				force:          c.Bool(forceFlagName),
				noMachineStart: c.Bool(noMachineStartFlagName),
				attrs: platform.Attributes{
					Visible:  c.Bool(vmVisibleFlagName) || env.settings.Platform.Visible,
					CPUs:     c.Int(cpusFlagName),
					MemoryMB: c.Int(memoryFlagName),
				},
			})
		},
	}
}

func runInstall(ctx context.Context, env *environment, args installArgs) error {
	img, err := env.repo.FindImage(ctx, args.image)
	if err != nil {
		return err
	}
	if err = img.Installable(); err != nil {
		return errors.Wrap(err, "clone the image and install into the clone instead")
	}

	installer, err := install.NewInstaller(install.Options{
		Image:       img,
		Tokens:      args.tokens,
		Recommended: args.recommended,
		Recipes:     deps.Recipes(),
		Registry:    env.registry,
		Repository:  env.repo,
		Agent:       env.newAgent(img),
		Platform:    env.platform,
		Fetcher:     env.fetcher,
		Attributes:  args.attrs,
		Timing:      env.timing,
	})
	if err != nil {
		return err
	}

	grip.Info(message.Fields{
		"message": "starting install",
		"image":   img.Name,
		"os":      img.OSVersion,
		"run_id":  installer.ID(),
		"request": installer.Request().Items,
	})

	if err = installer.Prepare(ctx, env.settings.Install.PrepareTimeout(), args.noMachineStart); err != nil {
		catcher := grip.NewBasicCatcher()
		catcher.Wrap(err, "preparing guest")
		catcher.Add(installer.Finish(ctx, true))
		return catcher.Resolve()
	}

	ok, installErr := installer.InstallAll(ctx, !args.force)

	catcher := grip.NewBasicCatcher()
	catcher.Add(installErr)
	catcher.Wrap(installer.Finish(ctx, true), "finishing install")
	catcher.NewWhen(!ok && installErr == nil, "one or more dependencies failed to install")

	grip.Info(message.Fields{
		"message":   "install finished",
		"image":     img.Name,
		"run_id":    installer.ID(),
		"installed": installer.Installed(),
		"success":   !catcher.HasErrors(),
	})

	return catcher.Resolve()
}
