package clock

import (
	"context"
	"time"
)

// WaitOptions tunes Until
type WaitOptions struct {
	// Poll is the longest single sleep, default 100ms
	Poll time.Duration

	// LongWait is the remaining wait above which OnLongWait fires, default 5s
	LongWait time.Duration

	// OnLongWait runs at most once per call, before the first sleep of a wait longer than LongWait
	OnLongWait func(remaining time.Duration)
}

func (o WaitOptions) withDefaults() WaitOptions {
	if o.Poll <= 0 {
		o.Poll = 100 * time.Millisecond
	}
	if o.LongWait <= 0 {
		o.LongWait = 5 * time.Second
	}
	return o
}

// Until blocks until clk reaches deadline, sleeping in increments of at most opt.Poll.
// ctx is checked before every increment. It returns the remaining wait when it stopped
// (zero or negative once the deadline is reached) and ctx.Err() if canceled.
func Until(ctx context.Context, clk Clock, sl Sleeper, deadline time.Time, opt WaitOptions) (time.Duration, error) {
	opt = opt.withDefaults()
	flushed := false
	for {
		remaining := deadline.Sub(clk.Now())
		if remaining <= 0 {
			return remaining, nil
		}
		if err := ctx.Err(); err != nil {
			return remaining, err
		}
		if !flushed && remaining > opt.LongWait && opt.OnLongWait != nil {
			flushed = true
			opt.OnLongWait(remaining)
		}
		step := opt.Poll
		if remaining < step {
			step = remaining
		}
		if err := sl.Sleep(ctx, step); err != nil {
			return deadline.Sub(clk.Now()), err
		}
	}
}
