// Copyright (C) 2021 ImmunIT. All rights reserved.
// Use of this source code is governed by an Apache 2.0 license that can be
// found in the LICENSE file.

package baudrate

import "time"

// Reset drives an optional GPIO wired to the target's reset input. The line
// idles at the inactive level between pulses so the target keeps running.
type Reset struct {
	Line     Line
	Polarity Polarity
	Hold     time.Duration
	Delay    time.Duration
}

func (r *Reset) active() int {
	if r.Polarity == ActiveHigh {
		return 1
	}
	return 0
}

func (r *Reset) inactive() int {
	return 1 - r.active()
}

// Init configures the line as an output and parks it at the inactive level.
func (r *Reset) Init() error {
	if err := r.Line.SetDirection(true); err != nil {
		return err
	}
	return r.Line.SetLevel(r.inactive())
}

// Pulse asserts the reset line for the hold time, releases it, then waits
// the settle delay so the target gets far enough into its boot to talk.
func (r *Reset) Pulse() error {
	if err := r.Line.SetLevel(r.active()); err != nil {
		return err
	}
	time.Sleep(r.Hold)
	if err := r.Line.SetLevel(r.inactive()); err != nil {
		return err
	}
	time.Sleep(r.Delay)
	return nil
}
