package install

import (
	"context"
	"time"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// doReboot reboots the guest and waits for its agent to come back. The
// agent usually drops the connection while handling the reboot, so errors
// issuing it are only logged.
func (i *Installer) doReboot(ctx context.Context) error {
	grip.Info(message.Fields{
		"message": "rebooting guest",
		"image":   i.image.Name,
		"run_id":  i.id,
	})

	grip.Debug(message.WrapError(i.agent.Reboot(ctx), message.Fields{
		"message": "reboot request did not complete",
		"image":   i.image.Name,
		"run_id":  i.id,
	}))
	i.reboots++

	if err := i.sleep(ctx, i.timing.RebootGrace); err != nil {
		return errors.Wrap(err, "waiting for the guest to go down")
	}

	return i.waitForAgent(ctx, i.timing.RebootTimeout)
}

// waitForAgent pings the agent at a fixed interval until it answers. It
// returns ErrAgentUnreachable once timeout has passed.
func (i *Installer) waitForAgent(ctx context.Context, timeout time.Duration) error {
	start := time.Now()
	deadline := start.Add(timeout)
	attempts := 0

	for {
		attempts++
		err := i.agent.Ping(ctx)
		if err == nil {
			grip.Info(message.Fields{
				"message":  "guest agent is reachable",
				"image":    i.image.Name,
				"run_id":   i.id,
				"attempts": attempts,
				"waited":   time.Since(start).String(),
			})
			return nil
		}

		if !time.Now().Add(i.timing.PollInterval).Before(deadline) {
			return errors.Wrapf(ErrAgentUnreachable, "no answer from '%s' after %s (%d attempts): %s",
				i.image.Name, timeout, attempts, err)
		}
		if err = i.sleep(ctx, i.timing.PollInterval); err != nil {
			return errors.Wrapf(ErrAgentUnreachable, "waiting for '%s': %s", i.image.Name, err)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
