package deps

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/evergreen-ci/cloak/model/dependency"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
)

const officeConfigTemplate = `<Configuration Product="ProPlus">
    <Display Level="none" CompletionNotice="no" SuppressModal="yes" AcceptEula="yes" />
    <PIDKEY Value="%s" />
</Configuration>
`

type officeOptions struct {
	ISOPath   string `settings:"isopath"`
	SerialKey string `settings:"serialkey"`
}

// office2007 installs Office from a local ISO image attached to the VM's
// optical drive.
type office2007 struct {
	base
	opts officeOptions
}

func newOffice2007() dependency.Logic { return &office2007{} }

func (o *office2007) Init(version string, settings map[string]string) error {
	if err := o.base.Init(version, settings); err != nil {
		return err
	}
	return dependency.DecodeSettings(settings, &o.opts)
}

func (o *office2007) Check(rc *dependency.RunContext) error {
	if o.opts.SerialKey == "" {
		return dependency.Errorf(rc.Name, "a serial key is required (office2007.serialkey)")
	}
	if o.opts.ISOPath == "" {
		return dependency.Errorf(rc.Name, "an installer ISO is required (office2007.isopath)")
	}
	if info, err := os.Stat(o.opts.ISOPath); err != nil || info.IsDir() {
		return dependency.Errorf(rc.Name, "installer ISO '%s' is not a file", o.opts.ISOPath)
	}
	return nil
}

func (o *office2007) Run(ctx context.Context, rc *dependency.RunContext) error {
	const config = `C:\config.xml`

	if err := rc.Machinery.AttachISO(ctx, rc.Image.Name, o.opts.ISOPath); err != nil {
		return dependency.WrapError(err, rc.Name, "attaching installer ISO")
	}
	defer func() {
		grip.Warning(message.WrapError(rc.Machinery.DetachISO(ctx, rc.Image.Name), message.Fields{
			"message": "could not detach installer ISO",
			"image":   rc.Image.Name,
		}))
	}()

	if err := rc.Upload(ctx, config, strings.NewReader(fmt.Sprintf(officeConfigTemplate, o.opts.SerialKey))); err != nil {
		return err
	}
	defer rc.Remove(ctx, config)

	if _, err := rc.Exec(ctx, `D:\setup.exe /config `+config); err != nil {
		return err
	}
	return rc.WaitProcessExit(ctx, "setup.exe")
}
