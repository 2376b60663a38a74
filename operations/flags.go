package operations

import (
	"path/filepath"

	"github.com/evergreen-ci/cloak"
	"github.com/urfave/cli"
)

const (
	confFlagName           = "conf"
	recommendedFlagName    = "recommended"
	forceFlagName          = "force"
	noMachineStartFlagName = "no-machine-start"
	vmVisibleFlagName      = "vm-visible"
	debugFlagName          = "debug"
	cpusFlagName           = "cpus"
	memoryFlagName         = "ramsize"
	osFlagName             = "os"
	ipFlagName             = "ip"
	portFlagName           = "port"
	platformFlagName       = "platform"
	tagFlagName            = "tag"
	jsonFlagName           = "json"
)

func defaultConfPath() string {
	return filepath.Join(cloak.DefaultHome(), cloak.DefaultSettingsFileName)
}

// confPath returns the settings path given to the app.
func confPath(c *cli.Context) string {
	if path := c.GlobalString(confFlagName); path != "" {
		return path
	}
	return defaultConfPath()
}

func addJSONFlag(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.BoolFlag{
		Name:  jsonFlagName,
		Usage: "print output as JSON",
	})
}
