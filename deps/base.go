package deps

import (
	"context"
	"fmt"

	"github.com/evergreen-ci/cloak/model/dependency"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
)

// base provides the Init and Check every recipe shares.
type base struct {
	version  string
	settings map[string]string
}

func (b *base) Init(version string, settings map[string]string) error {
	b.version = version
	b.settings = settings
	return nil
}

func (b *base) Check(*dependency.RunContext) error { return nil }

// Windows installer exit codes that mean success.
const (
	exitOK             = 0
	exitRebootRequired = 3010
	exitAlreadyDone    = 1638
	exitWusaInstalled  = 2359302
)

// runInstaller uploads the fetched installer to guestPath, runs it with
// args and removes it again. Exit codes other than the accepted ones fail
// the install.
func runInstaller(ctx context.Context, rc *dependency.RunContext, guestPath, args string, accepted ...int) error {
	if err := rc.UploadInstaller(ctx, guestPath); err != nil {
		return err
	}
	defer rc.Remove(ctx, guestPath)

	command := guestPath
	if args != "" {
		command = fmt.Sprintf("%s %s", guestPath, args)
	}
	res, err := rc.Exec(ctx, command)
	if err != nil {
		return err
	}
	return checkExit(rc, command, res.ExitCode, accepted...)
}

func checkExit(rc *dependency.RunContext, command string, code int, accepted ...int) error {
	if code == exitOK {
		return nil
	}
	for _, ok := range accepted {
		if code == ok {
			grip.Info(message.Fields{
				"message":    "installer finished with a non-zero success code",
				"dependency": rc.Name,
				"version":    rc.Version,
				"exit_code":  code,
			})
			return nil
		}
	}
	return dependency.Errorf(rc.Name, "'%s' exited with code %d", command, code)
}
