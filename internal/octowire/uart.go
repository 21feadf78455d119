// Copyright (C) 2021 ImmunIT. All rights reserved.
// Use of this source code is governed by an Apache 2.0 license that can be
// found in the LICENSE file.

package octowire

import (
	"encoding/binary"
	"fmt"
)

// UART binds one of the adapter's two UART interfaces to a session.
type UART struct {
	session *Session
	iface   byte
}

// NewUART returns the UART capability for interface 0 or 1.
func NewUART(s *Session, iface int) (*UART, error) {
	if iface != 0 && iface != 1 {
		return nil, fmt.Errorf("invalid UART interface %d, must be 0 or 1", iface)
	}
	return &UART{session: s, iface: byte(iface)}, nil
}

// Configure sets the UART clock to the given baudrate.
func (u *UART) Configure(baud int) error {
	if baud <= 0 {
		return fmt.Errorf("invalid baudrate %d", baud)
	}
	var payload [4]byte
	binary.LittleEndian.PutUint32(payload[:], uint32(baud))
	_, err := u.session.command(opUARTConfigure, u.iface, payload[:])
	return err
}

// Transmit sends p on the UART TX line.
func (u *UART) Transmit(p []byte) error {
	_, err := u.session.command(opUARTTransmit, u.iface, p)
	return err
}

// Receive reads up to n bytes from the adapter's receive FIFO. It returns
// whatever the adapter had buffered, which may be fewer than n bytes.
func (u *UART) Receive(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	if n > 0xffff {
		n = 0xffff
	}
	var payload [2]byte
	binary.LittleEndian.PutUint16(payload[:], uint16(n))
	return u.session.command(opUARTReceive, u.iface, payload[:])
}

// Available returns the number of bytes buffered in the adapter's receive
// FIFO.
func (u *UART) Available() (int, error) {
	data, err := u.session.command(opUARTAvailable, u.iface, nil)
	if err != nil {
		return 0, err
	}
	if len(data) != 2 {
		return 0, fmt.Errorf("malformed available response, got %d bytes", len(data))
	}
	return int(binary.LittleEndian.Uint16(data)), nil
}

// Flush drops stale input at both layers: the host side of the USB link and
// the adapter's receive FIFO.
func (u *UART) Flush() error {
	if err := u.session.ResetInputBuffer(); err != nil {
		return err
	}
	for {
		n, err := u.Available()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if _, err := u.Receive(n); err != nil {
			return err
		}
	}
}

// Passthrough switches the adapter into transparent UART bridging: bytes on
// the USB link go straight to the target and back, until the user button on
// the adapter is pressed. The session must be closed after this call so the
// port can be reopened for the bridge.
func (u *UART) Passthrough() error {
	_, err := u.session.command(opUARTPassthrough, u.iface, nil)
	return err
}
