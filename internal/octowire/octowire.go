// Copyright (C) 2021 ImmunIT. All rights reserved.
// Use of this source code is governed by an Apache 2.0 license that can be
// found in the LICENSE file.

// Package octowire is a host-side driver for the Octowire USB adapter. It
// exposes the adapter's UART and GPIO capabilities over the binary command
// protocol the adapter speaks on its USB CDC port.
package octowire

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// USB identifiers of the Octowire CDC interface.
const (
	usbVID = "C0DE"
	usbPID = "B007"
)

// LinkBaudrate is the rate of the host USB CDC link. The adapter's own UART
// clock is configured separately, through commands.
const LinkBaudrate = 921600

// Command opcodes.
const (
	opUARTConfigure   byte = 0x01
	opUARTTransmit    byte = 0x02
	opUARTReceive     byte = 0x03
	opUARTAvailable   byte = 0x04
	opUARTPassthrough byte = 0x05
	opGPIODirection   byte = 0x10
	opGPIOLevel       byte = 0x11
)

const statusOK byte = 0x00

// wire is the transport under a session. serial.Port satisfies it; tests
// substitute an in-memory implementation.
type wire interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
}

// Detect enumerates the serial ports and returns the device path of the
// Octowire, matched by its USB VID/PID.
func Detect() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", err
	}
	var found []string
	for _, p := range ports {
		if p.IsUSB && strings.EqualFold(p.VID, usbVID) && strings.EqualFold(p.PID, usbPID) {
			found = append(found, p.Name)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("no Octowire detected, is the adapter plugged in?")
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("multiple Octowire adapters detected (%s), select one with --port", strings.Join(found, ", "))
	}
}

// Session owns the open port to the adapter. It is not safe for concurrent
// use; the run that opened it is its only user.
type Session struct {
	port wire
	path string
}

// Open connects to the adapter at the given device path.
func Open(path string) (*Session, error) {
	port, err := serial.Open(path, &serial.Mode{BaudRate: LinkBaudrate})
	if err != nil {
		return nil, fmt.Errorf("failed to open Octowire on '%s': %w", path, err)
	}
	return &Session{port: port, path: path}, nil
}

// Path returns the device path the session was opened on.
func (s *Session) Path() string {
	return s.path
}

// ResetInputBuffer drops any unread bytes on the host side of the link.
func (s *Session) ResetInputBuffer() error {
	return s.port.ResetInputBuffer()
}

// Close releases the underlying port. The session must not be used
// afterwards; passthrough handoff reopens the port directly.
func (s *Session) Close() error {
	return s.port.Close()
}

// command sends one framed request and reads its status-prefixed response.
// Request frame: opcode, interface/pin, little-endian u16 payload length,
// payload. Response frame: status, little-endian u16 data length, data.
func (s *Session) command(op, iface byte, payload []byte) ([]byte, error) {
	if len(payload) > 0xffff {
		return nil, fmt.Errorf("payload too large: %d bytes", len(payload))
	}
	frame := make([]byte, 4+len(payload))
	frame[0] = op
	frame[1] = iface
	binary.LittleEndian.PutUint16(frame[2:4], uint16(len(payload)))
	copy(frame[4:], payload)
	if _, err := s.port.Write(frame); err != nil {
		return nil, fmt.Errorf("command 0x%02x write failed: %w", op, err)
	}

	var header [3]byte
	if _, err := io.ReadFull(s.port, header[:]); err != nil {
		return nil, fmt.Errorf("command 0x%02x response failed: %w", op, err)
	}
	size := binary.LittleEndian.Uint16(header[1:3])
	data := make([]byte, size)
	if _, err := io.ReadFull(s.port, data); err != nil {
		return nil, fmt.Errorf("command 0x%02x response failed: %w", op, err)
	}
	if header[0] != statusOK {
		return nil, fmt.Errorf("command 0x%02x failed with adapter status 0x%02x", op, header[0])
	}
	return data, nil
}
