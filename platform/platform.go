package platform

import (
	"context"

	"github.com/evergreen-ci/cloak"
	"github.com/evergreen-ci/cloak/model/image"
	"github.com/pkg/errors"
)

// Attributes tune how a VM is started.
type Attributes struct {
	// Visible starts the VM with a GUI window instead of headless.
	Visible  bool
	CPUs     int
	MemoryMB int
}

// Manager controls the lifecycle of the VMs that images are installed in.
// VMs are named after their image.
type Manager interface {
	// StartVM boots the VM of the image.
	StartVM(ctx context.Context, img *image.Image, attrs Attributes) error

	// WaitForShutdown blocks until the VM has powered off.
	WaitForShutdown(ctx context.Context, name string) error

	// RemoveVMData unregisters the VM, keeping the image disk.
	RemoveVMData(ctx context.Context, name string) error

	// AttachISO inserts an ISO file into the VM's DVD drive.
	AttachISO(ctx context.Context, name, isoPath string) error

	// DetachISO empties the VM's DVD drive.
	DetachISO(ctx context.Context, name string) error
}

// GetManager returns the Manager for the configured platform.
func GetManager(conf cloak.PlatformConfig) (Manager, error) {
	switch conf.Name {
	case cloak.PlatformVirtualBox:
		return NewVirtualBoxManager(conf), nil
	case cloak.PlatformMock:
		return NewMockManager(), nil
	default:
		return nil, errors.Errorf("unrecognized platform '%s'", conf.Name)
	}
}
