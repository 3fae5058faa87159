package troupe

import "time"

// Clock abstracts wall-clock access so cooldown and decay arithmetic can be
// driven deterministically in tests. All sub-engines receive time through
// this interface; nothing in the engine calls time.Now directly except the
// default implementation.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
