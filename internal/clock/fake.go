package clock

import "time"

// Fake is a manually advanced Clock for tests. After channels fire
// immediately so polling loops run without real delays.
type Fake struct {
	Current time.Time
}

func NewFake(at time.Time) *Fake {
	return &Fake{Current: at}
}

func (f *Fake) Now() time.Time {
	return f.Current
}

func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.Current = f.Current.Add(d)

	ch := make(chan time.Time, 1)
	ch <- f.Current

	return ch
}

// Advance moves the fake clock forward.
func (f *Fake) Advance(d time.Duration) {
	f.Current = f.Current.Add(d)
}
