package operations

import (
	"fmt"
	"runtime"

	"github.com/evergreen-ci/cloak"
	"github.com/urfave/cli"
)

func Version() cli.Command {
	return cli.Command{
		Name:  "version",
		Usage: "prints the version of the client",
		Action: func(c *cli.Context) error {
			fmt.Printf("cloak %s (%s %s/%s)\n", cloak.ClientVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}
