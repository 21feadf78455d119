// Copyright (C) 2021 ImmunIT. All rights reserved.
// Use of this source code is governed by an Apache 2.0 license that can be
// found in the LICENSE file.

// Package baudrate discovers the UART baudrate of an unknown target by
// sweeping candidate rates and checking whether the received bytes look like
// printable ASCII traffic.
package baudrate

import (
	"time"
)

const (
	// DefaultThreshold is the number of consecutive plausible bytes needed
	// to accept a candidate baudrate.
	DefaultThreshold = 20

	// DefaultTriggerBudget is how many times the trigger bytes are sent to
	// a silent target before giving up on a candidate.
	DefaultTriggerBudget = 3

	// DefaultWindow bounds how long the classifier waits for a byte.
	DefaultWindow = time.Second
)

// Transport is the adapter UART capability consumed by the classifier and
// the sweeper. Flush drains stale input at both the host transport and the
// adapter FIFO.
type Transport interface {
	Configure(baud int) error
	Transmit(p []byte) error
	Receive(n int) ([]byte, error)
	Available() (int, error)
	Flush() error
}

// Line is the GPIO capability used for the reset pulse.
type Line interface {
	SetDirection(output bool) error
	SetLevel(level int) error
}

// Result is the outcome of probing one candidate baudrate. Rejected and
// Timeout are expected negative outcomes, not errors.
type Result int

const (
	Rejected Result = iota
	Timeout
	Accepted
)

func (r Result) String() string {
	switch r {
	case Rejected:
		return "rejected"
	case Timeout:
		return "timeout"
	case Accepted:
		return "accepted"
	default:
		return "unknown"
	}
}

// asciiTable marks the byte values considered plausible text: the printable
// range 0x20-0x7E plus CR, LF, TAB and ESC.
var asciiTable = buildASCIITable()

func buildASCIITable() (t [256]bool) {
	for b := 0x20; b <= 0x7e; b++ {
		t[b] = true
	}
	t['\r'] = true
	t['\n'] = true
	t['\t'] = true
	t[0x1b] = true
	return t
}

// Plausible reports whether b belongs to the acceptance alphabet.
func Plausible(b byte) bool {
	return asciiTable[b]
}

// Classifier reads bytes one at a time from an already clocked UART and
// decides whether the current baudrate is plausible. The zero value uses the
// defaults; Trigger stays disabled unless trigger bytes are set.
type Classifier struct {
	Threshold     int
	Window        time.Duration
	Trigger       []byte
	TriggerBudget int
	TriggerSettle time.Duration

	// Trace, when set, is called for every classified byte.
	Trace func(b byte, plausible bool)

	// OnTrigger, when set, is called before each trigger emission.
	OnTrigger func()
}

// Probe runs the per-candidate state machine: wait for a byte within the
// polling window, classify it, and repeat until the threshold is met, an
// implausible byte rejects the candidate, or the target stays silent past
// the trigger budget. I/O failures are returned as errors, separate from the
// tri-state result.
func (c *Classifier) Probe(uart Transport) (Result, error) {
	threshold := c.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	window := c.Window
	if window <= 0 {
		window = DefaultWindow
	}
	budget := c.TriggerBudget
	if budget <= 0 {
		budget = DefaultTriggerBudget
	}

	count := 0
	triggers := 0
	for {
		ok, err := waitByte(uart, window)
		if err != nil {
			return 0, err
		}
		if !ok {
			if len(c.Trigger) > 0 && triggers < budget {
				triggers++
				if c.OnTrigger != nil {
					c.OnTrigger()
				}
				if err := uart.Transmit(c.Trigger); err != nil {
					return 0, err
				}
				time.Sleep(c.TriggerSettle)
				continue
			}
			return Timeout, nil
		}

		buf, err := uart.Receive(1)
		if err != nil {
			return 0, err
		}
		if len(buf) == 0 {
			continue
		}
		b := buf[0]
		member := asciiTable[b]
		if c.Trace != nil {
			c.Trace(b, member)
		}
		if !member {
			return Rejected, nil
		}
		count++
		if count >= threshold {
			return Accepted, nil
		}
	}
}

// waitByte polls the UART until input is available or the window elapses.
func waitByte(uart Transport, window time.Duration) (bool, error) {
	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		n, err := uart.Available()
		if err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}
