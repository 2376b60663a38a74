package platform

import (
	"context"
	"sync"

	"github.com/evergreen-ci/cloak/model/image"
	"github.com/pkg/errors"
)

// MockVM is the state the mock manager keeps per VM.
type MockVM struct {
	Running    bool
	Attributes Attributes
	ISO        string
	Removed    bool
}

// MockManager implements Manager in memory.
type MockManager struct {
	VMs   map[string]*MockVM
	Calls []string

	ShouldFailStart    bool
	ShouldFailWait     bool
	ShouldFailRemove   bool
	StopOnWaitShutdown bool

	mutex sync.RWMutex
}

func NewMockManager() *MockManager {
	return &MockManager{VMs: map[string]*MockVM{}, StopOnWaitShutdown: true}
}

func (m *MockManager) vm(name string) *MockVM {
	vm, ok := m.VMs[name]
	if !ok {
		vm = &MockVM{}
		m.VMs[name] = vm
	}
	return vm
}

func (m *MockManager) StartVM(_ context.Context, img *image.Image, attrs Attributes) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.Calls = append(m.Calls, "start:"+img.Name)
	if m.ShouldFailStart {
		return errors.Errorf("failed to start VM '%s'", img.Name)
	}
	vm := m.vm(img.Name)
	vm.Running = true
	vm.Attributes = attrs
	return nil
}

func (m *MockManager) WaitForShutdown(_ context.Context, name string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.Calls = append(m.Calls, "wait:"+name)
	if m.ShouldFailWait {
		return errors.Errorf("timed out waiting for VM '%s'", name)
	}
	if m.StopOnWaitShutdown {
		m.vm(name).Running = false
	}
	return nil
}

func (m *MockManager) RemoveVMData(_ context.Context, name string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.Calls = append(m.Calls, "remove:"+name)
	if m.ShouldFailRemove {
		return errors.Errorf("failed to remove VM '%s'", name)
	}
	vm := m.vm(name)
	vm.Running = false
	vm.Removed = true
	return nil
}

func (m *MockManager) AttachISO(_ context.Context, name, isoPath string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.Calls = append(m.Calls, "attach:"+name)
	m.vm(name).ISO = isoPath
	return nil
}

func (m *MockManager) DetachISO(_ context.Context, name string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.Calls = append(m.Calls, "detach:"+name)
	m.vm(name).ISO = ""
	return nil
}

// CallsMade returns a copy of the recorded calls.
func (m *MockManager) CallsMade() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return append([]string{}, m.Calls...)
}
