package dependency

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/evergreen-ci/cloak/guest"
	"github.com/evergreen-ci/cloak/model/image"
	"github.com/evergreen-ci/cloak/platform"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// Fetcher makes installers available on the local machine.
type Fetcher interface {
	// Fetch returns the local path of the installer, downloading it and
	// verifying its checksum if needed.
	Fetch(ctx context.Context, exe Exe) (string, error)
	// Download returns the contents at url without caching them.
	Download(ctx context.Context, url string) ([]byte, error)
}

const (
	guestScriptPath     = `C:\cloak.ps1`
	defaultPollInterval = time.Second
)

// RunContext is everything dependency logic may use while installing into
// a guest.
type RunContext struct {
	Name      string
	Version   string
	OSVersion string
	Settings  map[string]string

	Agent     guest.Communicator
	Machinery platform.Manager
	Image     *image.Image
	Fetcher   Fetcher

	// Exe and Installer are the selected installer and its local path, if
	// the dependency has installers.
	Exe       *Exe
	Installer string

	PollInterval time.Duration
}

// Exec runs a command on the guest and waits for it. Only transport
// failures are errors; the exit code is left to the caller.
func (rc *RunContext) Exec(ctx context.Context, command string) (*guest.ExecResult, error) {
	res, err := rc.Agent.Execute(ctx, command, false)
	if err != nil {
		return nil, WrapError(err, rc.Name, "running guest command")
	}
	return res, nil
}

// ExecOK runs a command on the guest and fails on a non-zero exit code.
func (rc *RunContext) ExecOK(ctx context.Context, command string) error {
	res, err := rc.Exec(ctx, command)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return Errorf(rc.Name, "command '%s' exited with code %d: stdout=%q stderr=%q",
			command, res.ExitCode, res.Stdout, res.Stderr)
	}
	return nil
}

// ExecAsync starts a command on the guest without waiting for it.
func (rc *RunContext) ExecAsync(ctx context.Context, command string) error {
	_, err := rc.Agent.Execute(ctx, command, true)
	return WrapError(err, rc.Name, "starting guest command")
}

// Upload stores contents at guestPath.
func (rc *RunContext) Upload(ctx context.Context, guestPath string, contents io.Reader) error {
	return WrapError(rc.Agent.Upload(ctx, guestPath, contents), rc.Name, "uploading "+guestPath)
}

// UploadFile copies a local file to guestPath.
func (rc *RunContext) UploadFile(ctx context.Context, localPath, guestPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return WrapError(err, rc.Name, "opening "+localPath)
	}
	defer f.Close()

	return rc.Upload(ctx, guestPath, f)
}

// UploadInstaller copies the fetched installer to guestPath.
func (rc *RunContext) UploadInstaller(ctx context.Context, guestPath string) error {
	if rc.Installer == "" {
		return Errorf(rc.Name, "no installer was fetched")
	}
	return rc.UploadFile(ctx, rc.Installer, guestPath)
}

// Remove deletes guestPath. Failures are logged only, since leftovers do
// not affect the install.
func (rc *RunContext) Remove(ctx context.Context, guestPath string) {
	grip.Warning(message.WrapError(rc.Agent.Remove(ctx, guestPath), message.Fields{
		"message":    "could not remove file from guest",
		"dependency": rc.Name,
		"path":       guestPath,
	}))
}

// RunPowerShell uploads script to the guest, runs it and removes it.
func (rc *RunContext) RunPowerShell(ctx context.Context, script string) (*guest.ExecResult, error) {
	if err := rc.Upload(ctx, guestScriptPath, strings.NewReader(script)); err != nil {
		return nil, err
	}
	defer rc.Remove(ctx, guestScriptPath)

	return rc.Exec(ctx, "powershell.exe -NoProfile -NonInteractive -ExecutionPolicy Bypass -File "+guestScriptPath)
}

// WaitProcessExit polls the guest process list until no process named
// process is running.
func (rc *RunContext) WaitProcessExit(ctx context.Context, process string) error {
	interval := rc.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return WrapError(ctx.Err(), rc.Name, "waiting for "+process+" to exit")
		case <-timer.C:
			res, err := rc.Exec(ctx, "tasklist")
			if err != nil {
				return err
			}
			if !processListed(res.Stdout, process) {
				return nil
			}
			grip.Info(message.Fields{
				"message":    "waiting for guest process to finish",
				"dependency": rc.Name,
				"process":    process,
			})
			timer.Reset(interval)
		}
	}
}

func processListed(tasklist, process string) bool {
	for _, line := range strings.Split(tasklist, "\n") {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), strings.ToLower(process)) {
			return true
		}
	}
	return false
}

// SettingsInto decodes the settings of the running dependency into out.
func (rc *RunContext) SettingsInto(out interface{}) error {
	return errors.Wrap(DecodeSettings(rc.Settings, out), rc.Name)
}
