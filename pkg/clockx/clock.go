package clockx

// Verdict is what a sweep visitor decides about the slot under the hand.
type Verdict uint8

const (
	// Advance moves the hand to the next slot (second chance or skip).
	Advance Verdict = iota
	// Claim stops the sweep. The hand stays on the claimed slot.
	Claim
)

// Clock is the circular hand of a CLOCK (second-chance) sweep over a fixed
// number of slots [0..capacity). Slot state lives with the caller; the
// clock only owns the hand position, which persists across sweeps.
type Clock struct {
	hand int
	n    int
}

func New(capacity int) *Clock {
	if capacity <= 0 {
		capacity = 1
	}
	return &Clock{n: capacity}
}

func (c *Clock) Capacity() int { return c.n }

// Hand returns the slot the next sweep starts at.
func (c *Clock) Hand() int { return c.hand }

// Reset moves the hand back to slot 0.
func (c *Clock) Reset() { c.hand = 0 }

// Sweep visits slots starting at the hand until visit returns Claim.
//
// Up to 2 full revolutions are made: the first one gives every slot its
// second chance, so a second revolution without a claim means no slot can
// ever be claimed. In that case ok is false and the hand is back where it
// started.
func (c *Clock) Sweep(visit func(id int) Verdict) (id int, ok bool) {
	for range 2 * c.n {
		if visit(c.hand) == Claim {
			return c.hand, true
		}
		c.hand = (c.hand + 1) % c.n
	}
	return -1, false
}
