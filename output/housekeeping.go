package output

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/richinsley/asiobridge/mailbox"
)

// runHousekeeping drains the mailbox at a low-frequency (~5 Hz) cadence
// until its context is canceled.
func (c *Controller) runHousekeeping(ctx context.Context) {
	defer close(c.hkDone)

	interval := time.Duration(c.opts.housekeepingInterval()) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.drainOnce()
		case <-ctx.Done():
			return
		}
	}
}

// drainOnce processes every pending mailbox event in FIFO order. Multiple
// ResetNeeded events in one cycle collapse to a single Reset.
func (c *Controller) drainOnce() {
	resetPending := false
	c.mailbox.Drain(func(e mailbox.Event) {
		switch e {
		case mailbox.StopPlayback:
			// An already-stopped controller (a control-domain Stop raced the
			// queued event) is not an error worth logging.
			if err := c.stopFromHousekeeping(); err != nil && !errors.Is(err, ErrStateViolation) {
				log.Printf("output: housekeeping: Stop: %v", err)
			}
		case mailbox.ResetNeeded:
			resetPending = true
		case mailbox.Overload:
			log.Println("output: driver reported overload")
		}
	})
	if resetPending {
		if err := c.resetFromHousekeeping(); err != nil {
			log.Printf("output: housekeeping: Reset: %v", err)
		}
	}
}
