package ride

import (
	"fmt"
	"time"

	"github.com/sharecycle-console/pkg/sharecycle/models"
)

// setReservationLocked installs (or clears) the reservation and manages
// its countdown ticker. Caller holds c.mu.
func (c *Controller) setReservationLocked(reservation *models.Reservation) {
	if c.countdownStop != nil {
		close(c.countdownStop)
		c.countdownStop = nil
	}
	c.reservation = reservation
	c.countdown = ""
	if reservation == nil {
		return
	}

	c.updateCountdownLocked()
	if c.countdown == CountdownExpired {
		return
	}

	stop := make(chan struct{})
	c.countdownStop = stop
	go c.runCountdown(stop)
}

// runCountdown re-derives the display every second until the hold
// expires or the reservation is replaced. It is display only: expiry
// enforcement is server-side and no cancellation request is ever sent.
func (c *Controller) runCountdown(stop chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.updateCountdownLocked()
			expired := c.countdown == CountdownExpired
			if expired && c.countdownStop != nil {
				close(c.countdownStop)
				c.countdownStop = nil
			}
			c.mu.Unlock()
			c.notify()
			if expired {
				return
			}
		}
	}
}

// updateCountdownLocked recomputes the countdown display from the stored
// expiry. Caller holds c.mu.
func (c *Controller) updateCountdownLocked() {
	if c.reservation == nil {
		c.countdown = ""
		return
	}
	c.countdown = FormatCountdown(c.reservation.ExpiresAt.Sub(c.now()))
}

// FormatCountdown renders a remaining hold as "mm:ss", or the expired
// sentinel at and below zero. It never renders a negative value.
func FormatCountdown(remaining time.Duration) string {
	if remaining <= 0 {
		return CountdownExpired
	}
	totalSec := int(remaining / time.Second)
	return fmt.Sprintf("%02d:%02d", totalSec/60, totalSec%60)
}
