package operations

import (
	"strings"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

func mergeBeforeFuncs(ops ...cli.BeforeFunc) cli.BeforeFunc {
	return func(c *cli.Context) error {
		catcher := grip.NewBasicCatcher()

		for _, op := range ops {
			catcher.Add(op(c))
		}

		return catcher.Resolve()
	}
}

func requireArgs(min int, usage string) cli.BeforeFunc {
	return func(c *cli.Context) error {
		if c.NArg() < min {
			return errors.Errorf("expected at least %d argument(s): %s", min, usage)
		}
		return nil
	}
}

func requireStringFlag(name string) cli.BeforeFunc {
	return func(c *cli.Context) error {
		if strings.TrimSpace(c.String(name)) == "" {
			return errors.Errorf("flag '--%s' is required", name)
		}
		return nil
	}
}

// setDebugLevel lowers the log threshold when --debug is given.
func setDebugLevel(c *cli.Context) error {
	if !c.Bool(debugFlagName) {
		return nil
	}
	sender := grip.GetSender()
	info := sender.Level()
	info.Threshold = level.Debug
	return errors.Wrap(sender.SetLevel(info), "setting debug log level")
}
