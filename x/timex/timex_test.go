package timex

import (
	"testing"
	"time"
)

func TestPeriodFromHz(t *testing.T) {
	cases := map[uint32]time.Duration{
		0:    time.Second,
		1:    time.Second,
		10:   100 * time.Millisecond,
		119:  8403361 * time.Nanosecond,
		1000: time.Millisecond,
	}
	for hz, want := range cases {
		if got := PeriodFromHz(hz); got != want {
			t.Errorf("PeriodFromHz(%d) = %v, want %v", hz, got, want)
		}
	}
}
