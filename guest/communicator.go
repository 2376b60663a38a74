package guest

import (
	"context"
	"io"
)

// ExecResult is the outcome of a command run by the guest agent. Async
// executions only report that the command was started.
type ExecResult struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// Communicator talks to the agent running inside a guest.
type Communicator interface {
	// Ping returns nil once the agent answers.
	Ping(ctx context.Context) error

	// Execute runs a command on the guest. When async is true the agent
	// returns as soon as the command has been started.
	Execute(ctx context.Context, command string, async bool) (*ExecResult, error)

	// Upload stores the contents of r at path on the guest.
	Upload(ctx context.Context, path string, r io.Reader) error

	// Remove deletes path on the guest.
	Remove(ctx context.Context, path string) error

	// Environ returns the value of an environment variable of the agent.
	Environ(ctx context.Context, name string) (string, error)

	// Reboot and Shutdown ask the guest operating system to restart or
	// power off. The agent connection is expected to drop while these run.
	Reboot(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

const (
	rebootCommand   = "shutdown /r /t 0"
	shutdownCommand = "shutdown /s /t 0"
)
