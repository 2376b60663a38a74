package platform

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/evergreen-ci/cloak"
	"github.com/evergreen-ci/cloak/model/image"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVBoxManage records invocations and answers showvminfo with the next
// queued state.
type fakeVBoxManage struct {
	calls  [][]string
	states []string
	fail   map[string]bool
}

func (f *fakeVBoxManage) run(_ context.Context, args ...string) (string, error) {
	f.calls = append(f.calls, args)
	if f.fail[args[0]] {
		return "", errors.Errorf("VBoxManage %s failed", args[0])
	}
	if args[0] == "showvminfo" {
		state := "poweroff"
		if len(f.states) > 0 {
			state = f.states[0]
			f.states = f.states[1:]
		}
		return "name=\"" + args[1] + "\"\nVMState=\"" + state + "\"\nVMStateChangeTime=\"2026-10-18T10:00:00\"\n", nil
	}
	return "", nil
}

func newTestVBox(t *testing.T, fake *fakeVBoxManage) *vboxManager {
	conf := cloak.PlatformConfig{}
	require.NoError(t, conf.ValidateAndDefault())
	m := NewVirtualBoxManager(conf).(*vboxManager)
	m.run = fake.run
	m.pollInterval = time.Millisecond
	return m
}

func TestVirtualBoxStartVM(t *testing.T) {
	ctx := context.Background()
	fake := &fakeVBoxManage{}
	m := newTestVBox(t, fake)
	img := &image.Image{Name: "win10"}

	require.NoError(t, m.StartVM(ctx, img, Attributes{}))
	assert.Equal(t, []string{"startvm", "win10", "--type", "headless"}, fake.calls[0])

	require.NoError(t, m.StartVM(ctx, img, Attributes{Visible: true, CPUs: 2, MemoryMB: 4096}))
	assert.Equal(t, []string{"modifyvm", "win10", "--cpus", "2", "--memory", "4096"}, fake.calls[1])
	assert.Equal(t, []string{"startvm", "win10", "--type", "gui"}, fake.calls[2])

	fake.fail = map[string]bool{"startvm": true}
	assert.Error(t, m.StartVM(ctx, img, Attributes{}))
}

func TestVirtualBoxWaitForShutdown(t *testing.T) {
	fake := &fakeVBoxManage{states: []string{"running", "stopping", "poweroff"}}
	m := newTestVBox(t, fake)

	require.NoError(t, m.WaitForShutdown(context.Background(), "win7"))
	assert.Len(t, fake.calls, 3)
}

func TestVirtualBoxWaitForShutdownTimesOut(t *testing.T) {
	states := make([]string, 10000)
	for i := range states {
		states[i] = "running"
	}
	fake := &fakeVBoxManage{states: states}
	m := newTestVBox(t, fake)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := m.WaitForShutdown(ctx, "win7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "running")
}

func TestVirtualBoxRemoveVMData(t *testing.T) {
	ctx := context.Background()

	fake := &fakeVBoxManage{states: []string{"running"}}
	m := newTestVBox(t, fake)
	require.NoError(t, m.RemoveVMData(ctx, "win7"))
	require.Len(t, fake.calls, 3)
	assert.Equal(t, []string{"controlvm", "win7", "poweroff"}, fake.calls[1])
	assert.Equal(t, []string{"unregistervm", "win7"}, fake.calls[2])

	fake = &fakeVBoxManage{}
	m = newTestVBox(t, fake)
	require.NoError(t, m.RemoveVMData(ctx, "win7"))
	require.Len(t, fake.calls, 2)
	assert.Equal(t, "unregistervm", fake.calls[1][0])
}

func TestVirtualBoxISO(t *testing.T) {
	ctx := context.Background()
	fake := &fakeVBoxManage{}
	m := newTestVBox(t, fake)

	require.NoError(t, m.AttachISO(ctx, "win7", "/srv/iso/office.iso"))
	require.NoError(t, m.DetachISO(ctx, "win7"))

	assert.Equal(t, "storageattach win7 --storagectl IDE --type dvddrive --port 1 --device 0 --medium /srv/iso/office.iso",
		strings.Join(fake.calls[0], " "))
	assert.Equal(t, "emptydrive", fake.calls[1][len(fake.calls[1])-1])
}

func TestGetManager(t *testing.T) {
	mgr, err := GetManager(cloak.PlatformConfig{Name: cloak.PlatformMock})
	require.NoError(t, err)
	assert.IsType(t, &MockManager{}, mgr)

	mgr, err = GetManager(cloak.PlatformConfig{Name: cloak.PlatformVirtualBox})
	require.NoError(t, err)
	assert.IsType(t, &vboxManager{}, mgr)

	_, err = GetManager(cloak.PlatformConfig{Name: "qemu"})
	assert.Error(t, err)
}
