// Copyright (C) 2021 ImmunIT. All rights reserved.
// Use of this source code is governed by an Apache 2.0 license that can be
// found in the LICENSE file.

package baudrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordLine implements Line and records every call.
type recordLine struct {
	directions []bool
	levels     []int
}

func (l *recordLine) SetDirection(output bool) error {
	l.directions = append(l.directions, output)
	return nil
}

func (l *recordLine) SetLevel(level int) error {
	l.levels = append(l.levels, level)
	return nil
}

func Test_resetActiveLow(t *testing.T) {
	line := &recordLine{}
	r := &Reset{
		Line:     line,
		Polarity: ActiveLow,
		Hold:     20 * time.Millisecond,
		Delay:    30 * time.Millisecond,
	}

	require.NoError(t, r.Init())
	assert.Equal(t, []bool{true}, line.directions)
	assert.Equal(t, []int{1}, line.levels)

	start := time.Now()
	require.NoError(t, r.Pulse())
	elapsed := time.Since(start)

	assert.Equal(t, []int{1, 0, 1}, line.levels)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func Test_resetActiveHigh(t *testing.T) {
	line := &recordLine{}
	r := &Reset{
		Line:     line,
		Polarity: ActiveHigh,
		Hold:     time.Millisecond,
		Delay:    time.Millisecond,
	}

	require.NoError(t, r.Init())
	assert.Equal(t, []int{0}, line.levels)

	require.NoError(t, r.Pulse())
	assert.Equal(t, []int{0, 1, 0}, line.levels)
}
