package entities

import "time"

// Sign converts a task's created flag into the direction of its delta.
func Sign(created bool) int {
	if created {
		return 1
	}
	return -1
}

// Visible is what readers see for a stored counter. Counters are stored as
// exact signed sums so deltas commute in any delivery order; a decrement
// applied ahead of its increment leaves the sum briefly negative.
func Visible(stored int) int {
	if stored < 0 {
		return 0
	}
	return stored
}

// ApplyPosition moves the ballot count at one rank position, initializing
// an absent position to zero first. Positions that fall to zero are kept.
func ApplyPosition(positions map[int]int, position int, delta int) map[int]int {
	if positions == nil {
		positions = map[int]int{}
	}
	positions[position] += delta
	return positions
}

// Task identifies one delivery for deduplication.
type Task struct {
	EventID     string
	EventType   string
	PayloadHash string
}

// Reservation is the dedup record committed with a task's deltas.
type Reservation struct {
	EventID     string
	PayloadHash string
	ProcessedAt time.Time
	ExpiresAt   time.Time
}

// Outcome summarizes one applied task.
type Outcome struct {
	Duplicate      bool
	Applied        int
	MissingTargets []string
}

// Record counts one counter update, or remembers its target as missing.
func (o *Outcome) Record(found bool, target string) {
	if found {
		o.Applied++
		return
	}
	o.MissingTargets = append(o.MissingTargets, target)
}
