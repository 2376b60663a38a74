package platform

import (
	"bufio"
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/evergreen-ci/cloak"
	"github.com/evergreen-ci/cloak/model/image"
	"github.com/evergreen-ci/cloak/util"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/mongodb/jasper"
	"github.com/pkg/errors"
)

const (
	vboxOutputLimit        = 1024 * 1024
	vboxStatePollInterval  = time.Second
	vboxStatePoweroff      = "poweroff"
	vboxStateAborted       = "aborted"
	vboxStateSaved         = "saved"
	vboxStateRunning       = "running"
	vboxDVDPort            = "1"
	vboxDVDDevice          = "0"
	vboxEmptyDrive         = "emptydrive"
	vboxStartTypeHeadless  = "headless"
	vboxStartTypeGUI       = "gui"
	vboxMachineReadableKey = "VMState"
)

// vboxManager drives VirtualBox through the VBoxManage command line tool.
type vboxManager struct {
	conf         cloak.PlatformConfig
	pollInterval time.Duration

	// run executes VBoxManage with the given arguments and returns its
	// combined output.
	run func(ctx context.Context, args ...string) (string, error)
}

func NewVirtualBoxManager(conf cloak.PlatformConfig) Manager {
	m := &vboxManager{conf: conf, pollInterval: vboxStatePollInterval}
	m.run = m.runVBoxManage
	return m
}

func (m *vboxManager) runVBoxManage(ctx context.Context, args ...string) (string, error) {
	buf := util.NewCappedWriter(vboxOutputLimit)
	cmd := jasper.NewCommand().AppendArgs(append([]string{m.conf.VBoxManage}, args...)...).SetCombinedWriter(buf)
	if err := cmd.Run(ctx); err != nil {
		return buf.String(), errors.Wrapf(err, "running VBoxManage %s: %s", strings.Join(args, " "), strings.TrimSpace(buf.String()))
	}
	return buf.String(), nil
}

func (m *vboxManager) StartVM(ctx context.Context, img *image.Image, attrs Attributes) error {
	if attrs.CPUs > 0 || attrs.MemoryMB > 0 {
		args := []string{"modifyvm", img.Name}
		if attrs.CPUs > 0 {
			args = append(args, "--cpus", strconv.Itoa(attrs.CPUs))
		}
		if attrs.MemoryMB > 0 {
			args = append(args, "--memory", strconv.Itoa(attrs.MemoryMB))
		}
		if _, err := m.run(ctx, args...); err != nil {
			return errors.Wrapf(err, "configuring VM '%s'", img.Name)
		}
	}

	startType := vboxStartTypeHeadless
	if attrs.Visible || m.conf.Visible {
		startType = vboxStartTypeGUI
	}

	grip.Info(message.Fields{
		"message":  "starting VM",
		"vm":       img.Name,
		"type":     startType,
		"platform": cloak.PlatformVirtualBox,
	})

	_, err := m.run(ctx, "startvm", img.Name, "--type", startType)
	return errors.Wrapf(err, "starting VM '%s'", img.Name)
}

func (m *vboxManager) vmState(ctx context.Context, name string) (string, error) {
	out, err := m.run(ctx, "showvminfo", name, "--machinereadable")
	if err != nil {
		return "", errors.Wrapf(err, "reading state of VM '%s'", name)
	}
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if ok && key == vboxMachineReadableKey {
			return strings.Trim(value, `"`), nil
		}
	}
	return "", errors.Errorf("no VM state in the information of VM '%s'", name)
}

func (m *vboxManager) WaitForShutdown(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, m.conf.ShutdownTimeout())
	defer cancel()

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		state, err := m.vmState(ctx, name)
		if err != nil {
			return err
		}
		switch state {
		case vboxStatePoweroff, vboxStateAborted, vboxStateSaved:
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "waiting for VM '%s' to shut down (state '%s')", name, state)
		case <-ticker.C:
		}
	}
}

func (m *vboxManager) RemoveVMData(ctx context.Context, name string) error {
	state, err := m.vmState(ctx, name)
	if err != nil {
		return err
	}
	if state == vboxStateRunning {
		grip.Warning(message.Fields{
			"message": "VM still running while removing its data, powering off",
			"vm":      name,
		})
		if _, err = m.run(ctx, "controlvm", name, "poweroff"); err != nil {
			return errors.Wrapf(err, "powering off VM '%s'", name)
		}
	}

	_, err = m.run(ctx, "unregistervm", name)
	return errors.Wrapf(err, "unregistering VM '%s'", name)
}

func (m *vboxManager) storageAttach(ctx context.Context, name, medium string) error {
	_, err := m.run(ctx, "storageattach", name,
		"--storagectl", m.conf.StorageBus,
		"--type", "dvddrive",
		"--port", vboxDVDPort,
		"--device", vboxDVDDevice,
		"--medium", medium,
	)
	return err
}

func (m *vboxManager) AttachISO(ctx context.Context, name, isoPath string) error {
	return errors.Wrapf(m.storageAttach(ctx, name, isoPath), "attaching '%s' to VM '%s'", isoPath, name)
}

func (m *vboxManager) DetachISO(ctx context.Context, name string) error {
	return errors.Wrapf(m.storageAttach(ctx, name, vboxEmptyDrive), "detaching ISO from VM '%s'", name)
}
