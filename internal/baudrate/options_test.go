// Copyright (C) 2021 ImmunIT. All rights reserved.
// Use of this source code is governed by an Apache 2.0 license that can be
// found in the LICENSE file.

package baudrate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_candidatesIncremental(t *testing.T) {
	tests := []struct {
		min, max, step int
		expected       []int
	}{
		{300, 1200, 300, []int{300, 600, 900}},
		{300, 1201, 300, []int{300, 600, 900, 1200}},
		{9600, 9601, 300, []int{9600}},
		{100, 1000, 250, []int{100, 350, 600, 850}},
	}

	for _, test := range tests {
		t.Run(fmt.Sprintf("%d-%d-%d", test.min, test.max, test.step), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Mode = ModeIncremental
			opts.Min, opts.Max, opts.Step = test.min, test.max, test.step
			require.NoError(t, opts.Validate())

			got := opts.Candidates()
			assert.Equal(t, test.expected, got)

			// The sequence starts at min, increases strictly and stays
			// below max.
			require.NotEmpty(t, got)
			assert.Equal(t, test.min, got[0])
			for i := 1; i < len(got); i++ {
				assert.Greater(t, got[i], got[i-1])
			}
			assert.Less(t, got[len(got)-1], test.max)
		})
	}
}

func Test_candidatesListPreservesOrder(t *testing.T) {
	opts := DefaultOptions()
	opts.Mode = ModeList
	opts.List = []int{115200, 9600, 9600, 300}
	require.NoError(t, opts.Validate())

	assert.Equal(t, []int{115200, 9600, 9600, 300}, opts.Candidates())
}

func Test_validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		errmsg string
	}{
		{name: "defaults"},
		{
			name:   "bad interface",
			mutate: func(o *Options) { o.Interface = 2 },
			errmsg: "invalid UART interface",
		},
		{
			name:   "bad mode",
			mutate: func(o *Options) { o.Mode = "binary" },
			errmsg: "invalid mode",
		},
		{
			name:   "zero step",
			mutate: func(o *Options) { o.Step = 0 },
			errmsg: "increment",
		},
		{
			name:   "negative step",
			mutate: func(o *Options) { o.Step = -300 },
			errmsg: "increment",
		},
		{
			name:   "min above max",
			mutate: func(o *Options) { o.Min = 115200; o.Max = 300 },
			errmsg: "bounds",
		},
		{
			name:   "min equals max",
			mutate: func(o *Options) { o.Min = 9600; o.Max = 9600 },
			errmsg: "bounds",
		},
		{
			name:   "empty list",
			mutate: func(o *Options) { o.Mode = ModeList; o.List = nil },
			errmsg: "empty baudrate list",
		},
		{
			name:   "negative baudrate in list",
			mutate: func(o *Options) { o.Mode = ModeList; o.List = []int{9600, -1} },
			errmsg: "in list",
		},
		{
			name:   "reset pin out of range",
			mutate: func(o *Options) { o.ResetPin = 15 },
			errmsg: "reset pin",
		},
		{
			name:   "highest valid reset pin",
			mutate: func(o *Options) { o.ResetPin = 14 },
		},
		{
			name:   "bad reset polarity",
			mutate: func(o *Options) { o.ResetPin = 3; o.ResetPolarity = "both" },
			errmsg: "polarity",
		},
		{
			name:   "trigger without payload",
			mutate: func(o *Options) { o.Trigger = true; o.TriggerBytes = nil },
			errmsg: "trigger",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			opts := DefaultOptions()
			if test.mutate != nil {
				test.mutate(&opts)
			}
			err := opts.Validate()
			if test.errmsg == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), test.errmsg)
			}
		})
	}
}

func Test_parseList(t *testing.T) {
	tests := []struct {
		in       string
		expected []int
	}{
		{in: "9600,19200,38400,57600,115200", expected: []int{9600, 19200, 38400, 57600, 115200}},
		{in: " 9600 , 19200 ", expected: []int{9600, 19200}},
		{in: "9600,9600,300", expected: []int{9600, 9600, 300}},
		{in: "abc"},
		{in: ""},
		{in: " , "},
	}

	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			got, err := ParseList(test.in)
			if test.expected == nil {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, test.expected, got)
			}
		})
	}
}

func Test_parseMode(t *testing.T) {
	for _, in := range []string{"incremental", "INCREMENTAL", " Incremental "} {
		mode, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, ModeIncremental, mode)
	}
	mode, err := ParseMode("list")
	require.NoError(t, err)
	assert.Equal(t, ModeList, mode)

	_, err = ParseMode("sweep")
	assert.Error(t, err)
}

func Test_parsePolarity(t *testing.T) {
	pol, err := ParsePolarity("LOW")
	require.NoError(t, err)
	assert.Equal(t, ActiveLow, pol)

	pol, err = ParsePolarity("high")
	require.NoError(t, err)
	assert.Equal(t, ActiveHigh, pol)

	_, err = ParsePolarity("up")
	assert.Error(t, err)
}
