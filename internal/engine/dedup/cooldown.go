package dedup

import "time"

// DefaultCooldown is the window within which an identical utterance is dropped.
const DefaultCooldown = 3 * time.Second

// Cooldown remembers the last accepted utterance. It is not safe for
// concurrent use; the engine serializes access.
type Cooldown struct {
	window   time.Duration
	lastText string
	lastAt   time.Time
	armed    bool
}

// NewCooldown creates a guard with the given window. A non-positive window
// selects DefaultCooldown.
func NewCooldown(window time.Duration) *Cooldown {
	if window <= 0 {
		window = DefaultCooldown
	}
	return &Cooldown{window: window}
}

// Window returns the cooldown window.
func (c *Cooldown) Window() time.Duration { return c.window }

// Allow reports whether text may be accepted at now. It is false only when
// text equals the last accepted text and less than the window has elapsed.
func (c *Cooldown) Allow(text string, now time.Time) bool {
	if !c.armed || text != c.lastText {
		return true
	}
	return now.Sub(c.lastAt) >= c.window
}

// Remaining returns how long text stays blocked at now, or 0.
func (c *Cooldown) Remaining(text string, now time.Time) time.Duration {
	if c.Allow(text, now) {
		return 0
	}
	return c.window - now.Sub(c.lastAt)
}

// Accept records text as accepted at now.
func (c *Cooldown) Accept(text string, now time.Time) {
	c.lastText = text
	c.lastAt = now
	c.armed = true
}

// Reset forgets the last accepted text.
func (c *Cooldown) Reset() {
	*c = Cooldown{window: c.window}
}
