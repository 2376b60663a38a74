package operations

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/cheynewallace/tabby"
	"github.com/evergreen-ci/cloak/deps"
	"github.com/evergreen-ci/cloak/model/dependency"
	"github.com/evergreen-ci/utility"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

func List() cli.Command {
	return cli.Command{
		Name:  "list",
		Usage: "displays the available dependencies or the recommended recipes",
		Subcommands: []cli.Command{
			{
				Name:  "dependencies",
				Usage: "list all dependencies that can be installed",
				Flags: addJSONFlag(cli.StringFlag{
					Name:  tagFlagName,
					Usage: "only list dependencies with this tag",
				}),
				Action: func(c *cli.Context) error {
					settings, err := loadSettings(confPath(c))
					if err != nil {
						return errors.Wrap(err, "loading settings")
					}
					reg, err := newRegistry(settings)
					if err != nil {
						return err
					}
					return listDependencies(os.Stdout, reg, c.String(tagFlagName), c.Bool(jsonFlagName))
				},
			},
			{
				Name:   "recipes",
				Usage:  "list the recommended dependencies of each OS",
				Flags:  addJSONFlag(),
				Action: func(c *cli.Context) error { return listRecipes(os.Stdout, deps.Recipes(), c.Bool(jsonFlagName)) },
			},
		},
	}
}

type dependencyInfo struct {
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	DefaultVersion string   `json:"default_version,omitempty"`
	Versions       []string `json:"versions,omitempty"`
	DependsOn      []string `json:"depends_on,omitempty"`
	MustReboot     bool     `json:"must_reboot"`
	MultiVersion   bool     `json:"multi_version"`
	Recommended    bool     `json:"recommended"`
	Tags           []string `json:"tags,omitempty"`
}

func newDependencyInfo(d *dependency.Descriptor) dependencyInfo {
	return dependencyInfo{
		Name:           d.Name,
		Description:    d.Description,
		DefaultVersion: d.DefaultVersion,
		Versions:       d.Versions(),
		DependsOn:      d.DependsOn,
		MustReboot:     d.MustReboot,
		MultiVersion:   d.MultiVersion,
		Recommended:    d.Recommended,
		Tags:           d.Tags,
	}
}

func (i dependencyInfo) flags() string {
	flags := []string{}
	if i.MustReboot {
		flags = append(flags, "reboot")
	}
	if i.MultiVersion {
		flags = append(flags, "multi")
	}
	if i.Recommended {
		flags = append(flags, "recommended")
	}
	return strings.Join(flags, ",")
}

func newTable(w io.Writer) *tabby.Tabby {
	return tabby.NewCustom(tabwriter.NewWriter(w, 0, 0, 2, ' ', 0))
}

func printJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshalling output")
	}
	_, err = fmt.Fprintln(w, string(out))
	return errors.WithStack(err)
}

func listDependencies(w io.Writer, reg *dependency.Registry, tag string, asJSON bool) error {
	infos := []dependencyInfo{}
	for _, d := range reg.Descriptors() {
		if tag != "" && !utility.StringSliceContains(d.Tags, tag) {
			continue
		}
		infos = append(infos, newDependencyInfo(d))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	if asJSON {
		return printJSON(w, infos)
	}

	t := newTable(w)
	t.AddHeader("Name", "Default", "Versions", "Flags", "Tags", "Description")
	for _, info := range infos {
		t.AddLine(info.Name, info.DefaultVersion, strings.Join(info.Versions, " "), info.flags(),
			strings.Join(info.Tags, ","), info.Description)
	}
	t.Print()
	return nil
}

func listRecipes(w io.Writer, recipes map[string][]string, asJSON bool) error {
	if asJSON {
		return printJSON(w, recipes)
	}

	targets := make([]string, 0, len(recipes))
	for target := range recipes {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	t := newTable(w)
	t.AddHeader("OS", "Dependencies")
	for _, target := range targets {
		t.AddLine(target, strings.Join(recipes[target], " "))
	}
	t.Print()
	return nil
}
