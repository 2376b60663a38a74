package operations

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/evergreen-ci/cloak"
	"github.com/evergreen-ci/cloak/model/image"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

func Image() cli.Command {
	return cli.Command{
		Name:  "image",
		Usage: "manage the images dependencies are installed into",
		Subcommands: []cli.Command{
			imageAdd(),
			imageShow(),
			imageList(),
		},
	}
}

func imageAdd() cli.Command {
	return cli.Command{
		Name:      "add",
		Usage:     "register an image, or update an existing one",
		ArgsUsage: "NAME",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  osFlagName,
				Usage: "OS version of the guest, e.g. win7x64",
			},
			cli.StringFlag{
				Name:  ipFlagName,
				Usage: "IP address of the guest agent",
			},
			cli.IntFlag{
				Name:  portFlagName,
				Usage: "port of the guest agent",
				Value: cloak.DefaultAgentPort,
			},
			cli.StringFlag{
				Name:  platformFlagName,
				Usage: "hypervisor platform of the image",
				Value: cloak.PlatformVirtualBox,
			},
		},
		Before: mergeBeforeFuncs(
			requireArgs(1, "the image name"),
			requireStringFlag(osFlagName),
			requireStringFlag(ipFlagName),
		),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			env, err := setupEnvironment(ctx, confPath(c))
			if err != nil {
				return err
			}
			defer env.close(ctx)

			return addImage(ctx, env.repo, &image.Image{
				Name:      c.Args().First(),
				OSVersion: strings.TrimSpace(c.String(osFlagName)),
				IPAddr:    strings.TrimSpace(c.String(ipFlagName)),
				Port:      c.Int(portFlagName),
				Platform:  c.String(platformFlagName),
			})
		},
	}
}

func imageShow() cli.Command {
	return cli.Command{
		Name:      "show",
		Usage:     "show an image and the dependencies installed on it",
		ArgsUsage: "NAME",
		Flags:     addJSONFlag(),
		Before:    requireArgs(1, "the image name"),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			env, err := setupEnvironment(ctx, confPath(c))
			if err != nil {
				return err
			}
			defer env.close(ctx)

			return showImage(ctx, os.Stdout, env.repo, c.Args().First(), c.Bool(jsonFlagName))
		},
	}
}

func imageList() cli.Command {
	return cli.Command{
		Name:  "list",
		Usage: "list all registered images",
		Flags: addJSONFlag(),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			env, err := setupEnvironment(ctx, confPath(c))
			if err != nil {
				return err
			}
			defer env.close(ctx)

			return listImages(ctx, os.Stdout, env.repo, c.Bool(jsonFlagName))
		},
	}
}

// addImage saves img. Re-adding an existing image keeps its mode.
func addImage(ctx context.Context, repo image.Repository, img *image.Image) error {
	existing, err := repo.FindImage(ctx, img.Name)
	switch {
	case err == nil:
		img.Mode = existing.Mode
	case errors.Cause(err) != image.ErrImageNotFound:
		return err
	}

	if err = img.Validate(); err != nil {
		return errors.Wrap(err, "invalid image")
	}
	return errors.Wrapf(repo.SaveImage(ctx, img), "saving image '%s'", img.Name)
}

func showImage(ctx context.Context, w io.Writer, repo image.Repository, name string, asJSON bool) error {
	img, err := repo.FindImage(ctx, name)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(w, img)
	}

	t := newTable(w)
	t.AddHeader("Dependency", "Version")
	for _, dep := range img.Installed {
		t.AddLine(dep.Name, dep.Version)
	}
	t.Print()
	return nil
}

func listImages(ctx context.Context, w io.Writer, repo image.Repository, asJSON bool) error {
	images, err := repo.ListImages(ctx)
	if err != nil {
		return errors.Wrap(err, "listing images")
	}
	if asJSON {
		return printJSON(w, images)
	}

	t := newTable(w)
	t.AddHeader("Name", "OS", "Platform", "Address", "Mode", "Installed")
	for _, img := range images {
		t.AddLine(img.Name, img.OSVersion, img.Platform, img.IPAddr, img.Mode, len(img.Installed))
	}
	t.Print()
	return nil
}
