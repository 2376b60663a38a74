package deps

import (
	"context"
	"fmt"

	"github.com/evergreen-ci/cloak/model/dependency"
)

var pythonExes = []dependency.Exe{
	{Version: "2.7.6", Arch: "amd64", SHA1: "405290650b85042f389a8fbf06549c35458afd05",
		URL: "https://www.python.org/ftp/python/2.7.6/python-2.7.6.amd64.msi"},
	{Version: "2.7.6", Arch: "x86", SHA1: "c5d71f339f7edd70ecd54b50e97356191347d355",
		URL: "https://www.python.org/ftp/python/2.7.6/python-2.7.6.msi"},
	{Version: "2.7.13", Arch: "amd64", SHA1: "d9113142bae8829365c595735e1ad1f9f5e2894c",
		URL: "https://www.python.org/ftp/python/2.7.13/python-2.7.13.amd64.msi"},
	{Version: "2.7.13", Arch: "x86", SHA1: "7e3b54236dbdbea8fe2458db501176578a4d59c0",
		URL: "https://www.python.org/ftp/python/2.7.13/python-2.7.13.msi"},
}

type pythonOptions struct {
	InstallPath string `settings:"install_path"`
}

type python struct {
	base
	opts pythonOptions
}

func newPython() dependency.Logic { return &python{} }

func (p *python) Init(version string, settings map[string]string) error {
	if err := p.base.Init(version, settings); err != nil {
		return err
	}
	p.opts.InstallPath = `C:\Python27`
	return dependency.DecodeSettings(settings, &p.opts)
}

func (p *python) Run(ctx context.Context, rc *dependency.RunContext) error {
	const msi = `C:\python.msi`
	if err := rc.UploadInstaller(ctx, msi); err != nil {
		return err
	}
	defer rc.Remove(ctx, msi)

	command := fmt.Sprintf(`msiexec /i %s /qn ALLUSERS=1 TARGETDIR=%s`, msi, p.opts.InstallPath)
	res, err := rc.Exec(ctx, command)
	if err != nil {
		return err
	}
	return checkExit(rc, command, res.ExitCode, exitRebootRequired, exitAlreadyDone)
}
