package guest

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// MockCommunicator records every call made to it and can be told to fail.
type MockCommunicator struct {
	// Calls holds one "kind:argument" entry per call, in order.
	Calls   []string
	Uploads map[string][]byte

	// Results maps a command to the result Execute returns for it;
	// unlisted commands exit with 0.
	Results map[string]*ExecResult
	Env     map[string]string

	// PingFailures is the number of pings that fail before the agent
	// becomes reachable. Unreachable makes every ping fail.
	PingFailures      int
	Unreachable       bool
	ShouldFailExecute bool
	FailCommands      map[string]bool
	ShouldFailReboot  bool
	ShouldFailRemove  bool

	sync.RWMutex
}

func NewMockCommunicator() *MockCommunicator {
	return &MockCommunicator{
		Uploads:      map[string][]byte{},
		Results:      map[string]*ExecResult{},
		Env:          map[string]string{},
		FailCommands: map[string]bool{},
	}
}

func (mc *MockCommunicator) record(kind, arg string) {
	mc.Calls = append(mc.Calls, kind+":"+arg)
}

func (mc *MockCommunicator) Ping(ctx context.Context) error {
	mc.Lock()
	defer mc.Unlock()

	mc.record("ping", "")
	if mc.Unreachable {
		return errors.New("connection refused")
	}
	if mc.PingFailures > 0 {
		mc.PingFailures--
		return errors.New("connection refused")
	}
	return nil
}

func (mc *MockCommunicator) Execute(ctx context.Context, command string, async bool) (*ExecResult, error) {
	mc.Lock()
	defer mc.Unlock()

	mc.record("execute", command)
	if mc.ShouldFailExecute || mc.FailCommands[command] {
		return nil, errors.Errorf("failed to execute '%s'", command)
	}
	if res, ok := mc.Results[command]; ok {
		return res, nil
	}
	return &ExecResult{}, nil
}

func (mc *MockCommunicator) Upload(ctx context.Context, path string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.WithStack(err)
	}

	mc.Lock()
	defer mc.Unlock()

	mc.record("upload", path)
	mc.Uploads[path] = data
	return nil
}

func (mc *MockCommunicator) Remove(ctx context.Context, path string) error {
	mc.Lock()
	defer mc.Unlock()

	mc.record("remove", path)
	if mc.ShouldFailRemove {
		return errors.Errorf("failed to remove '%s'", path)
	}
	delete(mc.Uploads, path)
	return nil
}

func (mc *MockCommunicator) Environ(ctx context.Context, name string) (string, error) {
	mc.RLock()
	defer mc.RUnlock()

	value, ok := mc.Env[name]
	if !ok {
		return "", errors.Errorf("environment variable '%s' is not set on the guest", name)
	}
	return value, nil
}

func (mc *MockCommunicator) Reboot(ctx context.Context) error {
	mc.Lock()
	defer mc.Unlock()

	mc.record("reboot", "")
	if mc.ShouldFailReboot {
		return errors.New("connection reset by peer")
	}
	return nil
}

func (mc *MockCommunicator) Shutdown(ctx context.Context) error {
	mc.Lock()
	defer mc.Unlock()

	mc.record("shutdown", "")
	return nil
}

// Count returns the number of recorded calls of the given kind.
func (mc *MockCommunicator) Count(kind string) int {
	mc.RLock()
	defer mc.RUnlock()

	n := 0
	for _, call := range mc.Calls {
		if strings.HasPrefix(call, kind+":") {
			n++
		}
	}
	return n
}

// Actions returns the recorded calls other than pings.
func (mc *MockCommunicator) Actions() []string {
	mc.RLock()
	defer mc.RUnlock()

	out := []string{}
	for _, call := range mc.Calls {
		if !strings.HasPrefix(call, "ping:") {
			out = append(out, call)
		}
	}
	return out
}

// Executed returns the commands passed to Execute, in order.
func (mc *MockCommunicator) Executed() []string {
	mc.RLock()
	defer mc.RUnlock()

	out := []string{}
	for _, call := range mc.Calls {
		if cmd, ok := strings.CutPrefix(call, "execute:"); ok {
			out = append(out, cmd)
		}
	}
	return out
}
