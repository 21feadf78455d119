// Copyright (C) 2021 ImmunIT. All rights reserved.
// Use of this source code is governed by an Apache 2.0 license that can be
// found in the LICENSE file.

package baudrate

import (
	"context"
)

// Decision is what the accept callback wants done after a candidate was
// accepted.
type Decision int

const (
	// Stop ends the sweep, reporting the accepted candidate.
	Stop Decision = iota
	// Continue discards the acceptance and resumes with the next candidate.
	Continue
)

// Sweeper drives the probe across an ordered sequence of candidate
// baudrates. The UART and reset line are owned exclusively by the sweeper
// for the duration of a run.
type Sweeper struct {
	UART       Transport
	Reset      *Reset
	Classifier *Classifier

	// OnCandidate is called before each candidate is clocked in.
	OnCandidate func(baud int)
	// OnResult is called with the probe outcome of each tested candidate.
	OnResult func(baud int, res Result)
	// OnError is called when a candidate fails with a transport error;
	// the sweep then moves on to the next candidate.
	OnError func(baud int, err error)
	// OnAccept decides what to do with an accepted candidate. When nil,
	// the sweep stops at the first acceptance.
	OnAccept func(baud int) (Decision, error)
}

// Run tests the candidates in order and returns the accepted baudrate, if
// any. Per-candidate transport failures are reported through OnError and do
// not end the sweep; the context is checked between candidates so an
// interrupt leaves the adapter idle.
func (s *Sweeper) Run(ctx context.Context, candidates []int) (int, bool, error) {
	for _, baud := range candidates {
		if err := ctx.Err(); err != nil {
			return 0, false, err
		}
		if s.OnCandidate != nil {
			s.OnCandidate(baud)
		}
		if err := s.retune(baud); err != nil {
			s.reportError(baud, err)
			continue
		}
		if s.Reset != nil {
			if err := s.Reset.Pulse(); err != nil {
				s.reportError(baud, err)
				continue
			}
		}
		res, err := s.Classifier.Probe(s.UART)
		if err != nil {
			s.reportError(baud, err)
			continue
		}
		if s.OnResult != nil {
			s.OnResult(baud, res)
		}
		if res != Accepted {
			continue
		}
		if s.OnAccept == nil {
			return baud, true, nil
		}
		decision, err := s.OnAccept(baud)
		if err != nil {
			return 0, false, err
		}
		if decision == Stop {
			return baud, true, nil
		}
	}
	return 0, false, nil
}

// retune switches the adapter clock, dropping stale input on both sides of
// the change so leftovers from the previous rate are never classified.
func (s *Sweeper) retune(baud int) error {
	if err := s.UART.Flush(); err != nil {
		return err
	}
	if err := s.UART.Configure(baud); err != nil {
		return err
	}
	return s.UART.Flush()
}

func (s *Sweeper) reportError(baud int, err error) {
	if s.OnError != nil {
		s.OnError(baud, err)
	}
}
