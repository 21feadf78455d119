// Copyright (C) 2021 ImmunIT. All rights reserved.
// Use of this source code is governed by an Apache 2.0 license that can be
// found in the LICENSE file.

package octowire

import "fmt"

// GPIO binds one of the adapter's GPIO pins to a session.
type GPIO struct {
	session *Session
	pin     byte
}

// NewGPIO returns the GPIO capability for a pin between 0 and 15.
func NewGPIO(s *Session, pin int) (*GPIO, error) {
	if pin < 0 || pin > 15 {
		return nil, fmt.Errorf("invalid GPIO pin %d, must be between 0 and 15", pin)
	}
	return &GPIO{session: s, pin: byte(pin)}, nil
}

// SetDirection configures the pin as an output (true) or input (false).
func (g *GPIO) SetDirection(output bool) error {
	dir := byte(0)
	if output {
		dir = 1
	}
	_, err := g.session.command(opGPIODirection, g.pin, []byte{dir})
	return err
}

// SetLevel drives the pin to 0 or 1. The pin must be an output.
func (g *GPIO) SetLevel(level int) error {
	if level != 0 && level != 1 {
		return fmt.Errorf("invalid GPIO level %d, must be 0 or 1", level)
	}
	_, err := g.session.command(opGPIOLevel, g.pin, []byte{byte(level)})
	return err
}
