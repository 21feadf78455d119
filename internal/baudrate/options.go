// Copyright (C) 2021 ImmunIT. All rights reserved.
// Use of this source code is governed by an Apache 2.0 license that can be
// found in the LICENSE file.

package baudrate

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Mode selects how candidate baudrates are generated.
type Mode string

const (
	ModeIncremental Mode = "incremental"
	ModeList        Mode = "list"
)

// Polarity is the active level of the reset line.
type Polarity string

const (
	ActiveLow  Polarity = "low"
	ActiveHigh Polarity = "high"
)

// Options holds everything a detection run needs. All fields are validated
// before any hardware is touched.
type Options struct {
	Interface int
	Mode      Mode

	// Incremental mode bounds. Max is exclusive.
	Min  int
	Max  int
	Step int

	// List mode candidates, tested in the order given.
	List []int

	// ResetPin is the GPIO used to reset the target, -1 when unused.
	ResetPin      int
	ResetPolarity Polarity
	ResetHold     time.Duration
	ResetDelay    time.Duration

	// Trigger enables sending TriggerBytes when the target stays silent.
	Trigger      bool
	TriggerBytes []byte

	Threshold     int
	Window        time.Duration
	TriggerSettle time.Duration
	TriggerBudget int
}

// DefaultOptions mirrors the defaults of the original Octowire module.
func DefaultOptions() Options {
	return Options{
		Interface:     0,
		Mode:          ModeIncremental,
		Min:           300,
		Max:           115200,
		Step:          300,
		List:          []int{9600, 19200, 38400, 57600, 115200},
		ResetPin:      -1,
		ResetPolarity: ActiveLow,
		ResetHold:     100 * time.Millisecond,
		ResetDelay:    500 * time.Millisecond,
		TriggerBytes:  []byte{'\r', '\n'},
		Threshold:     DefaultThreshold,
		Window:        time.Second,
		TriggerSettle: 200 * time.Millisecond,
		TriggerBudget: DefaultTriggerBudget,
	}
}

// Validate checks the user supplied options. It reports the first problem
// found; nothing is sent to the adapter before it passes.
func (o *Options) Validate() error {
	if o.Interface != 0 && o.Interface != 1 {
		return fmt.Errorf("invalid UART interface %d, must be 0 or 1", o.Interface)
	}
	switch o.Mode {
	case ModeIncremental:
		if o.Step <= 0 {
			return fmt.Errorf("invalid baudrate increment %d, must be positive", o.Step)
		}
		if o.Min <= 0 {
			return fmt.Errorf("invalid minimum baudrate %d, must be positive", o.Min)
		}
		if o.Min >= o.Max {
			return fmt.Errorf("invalid baudrate bounds, minimum %d must be below maximum %d", o.Min, o.Max)
		}
	case ModeList:
		if len(o.List) == 0 {
			return fmt.Errorf("empty baudrate list")
		}
		for _, b := range o.List {
			if b <= 0 {
				return fmt.Errorf("invalid baudrate %d in list, must be positive", b)
			}
		}
	default:
		return fmt.Errorf("invalid mode '%s', use 'incremental' or 'list'", o.Mode)
	}
	if o.ResetPin != -1 {
		if o.ResetPin < 0 || o.ResetPin > 14 {
			return fmt.Errorf("invalid reset pin %d, must be between 0 and 14", o.ResetPin)
		}
		if o.ResetPolarity != ActiveLow && o.ResetPolarity != ActiveHigh {
			return fmt.Errorf("invalid reset polarity '%s', use 'low' or 'high'", o.ResetPolarity)
		}
	}
	if o.Trigger && len(o.TriggerBytes) == 0 {
		return fmt.Errorf("trigger enabled but no trigger bytes given")
	}
	return nil
}

// Candidates returns the ordered sequence of baudrates to test. In
// incremental mode that is the progression min, min+step, ... strictly below
// max; in list mode the user's list verbatim, duplicates included.
func (o *Options) Candidates() []int {
	if o.Mode == ModeList {
		res := make([]int, len(o.List))
		copy(res, o.List)
		return res
	}
	var res []int
	for b := o.Min; b < o.Max; b += o.Step {
		res = append(res, b)
	}
	return res
}

// ParseMode parses a user supplied mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "incremental":
		return ModeIncremental, nil
	case "list":
		return ModeList, nil
	default:
		return "", fmt.Errorf("invalid mode '%s', use 'incremental' or 'list'", s)
	}
}

// ParsePolarity parses a user supplied reset polarity, case-insensitively.
func ParsePolarity(s string) (Polarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return ActiveLow, nil
	case "high":
		return ActiveHigh, nil
	default:
		return "", fmt.Errorf("invalid reset polarity '%s', use 'low' or 'high'", s)
	}
}

// ParseList parses a comma separated baudrate list, preserving order and
// duplicates.
func ParseList(s string) ([]int, error) {
	var res []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid baudrate '%s' in list", part)
		}
		res = append(res, b)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("empty or invalid baudrate list '%s'", s)
	}
	return res, nil
}
