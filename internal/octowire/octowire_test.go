// Copyright (C) 2021 ImmunIT. All rights reserved.
// Use of this source code is governed by an Apache 2.0 license that can be
// found in the LICENSE file.

package octowire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWire is an in-memory stand-in for the adapter's CDC port. Responses
// queued in `in` are served to reads; every write lands in `out`.
type fakeWire struct {
	in     bytes.Buffer
	out    bytes.Buffer
	resets int
}

func (w *fakeWire) Read(p []byte) (int, error)  { return w.in.Read(p) }
func (w *fakeWire) Write(p []byte) (int, error) { return w.out.Write(p) }
func (w *fakeWire) Close() error                { return nil }
func (w *fakeWire) ResetInputBuffer() error {
	w.resets++
	return nil
}

func (w *fakeWire) queue(status byte, data []byte) {
	w.in.WriteByte(status)
	w.in.WriteByte(byte(len(data)))
	w.in.WriteByte(byte(len(data) >> 8))
	w.in.Write(data)
}

func testSession(w *fakeWire) *Session {
	return &Session{port: w, path: "/dev/ttyTEST"}
}

func Test_uartConfigureFrame(t *testing.T) {
	w := &fakeWire{}
	w.queue(statusOK, nil)
	uart, err := NewUART(testSession(w), 0)
	require.NoError(t, err)

	require.NoError(t, uart.Configure(115200))
	// opcode, interface, u16 length, u32 baudrate, all little-endian.
	assert.Equal(t, []byte{0x01, 0x00, 0x04, 0x00, 0x00, 0xc2, 0x01, 0x00}, w.out.Bytes())
}

func Test_uartTransmitFrame(t *testing.T) {
	w := &fakeWire{}
	w.queue(statusOK, nil)
	uart, err := NewUART(testSession(w), 1)
	require.NoError(t, err)

	require.NoError(t, uart.Transmit([]byte{0x0d, 0x0a}))
	assert.Equal(t, []byte{0x02, 0x01, 0x02, 0x00, 0x0d, 0x0a}, w.out.Bytes())
}

func Test_uartReceive(t *testing.T) {
	w := &fakeWire{}
	w.queue(statusOK, []byte("abc"))
	uart, err := NewUART(testSession(w), 0)
	require.NoError(t, err)

	data, err := uart.Receive(3)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)
	assert.Equal(t, []byte{0x03, 0x00, 0x02, 0x00, 0x03, 0x00}, w.out.Bytes())
}

func Test_uartAvailable(t *testing.T) {
	w := &fakeWire{}
	w.queue(statusOK, []byte{0x05, 0x00})
	uart, err := NewUART(testSession(w), 0)
	require.NoError(t, err)

	n, err := uart.Available()
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func Test_uartFlushDrainsBothLayers(t *testing.T) {
	w := &fakeWire{}
	w.queue(statusOK, []byte{0x02, 0x00}) // available: 2
	w.queue(statusOK, []byte("xy"))       // receive: 2 stale bytes
	w.queue(statusOK, []byte{0x00, 0x00}) // available: 0
	uart, err := NewUART(testSession(w), 0)
	require.NoError(t, err)

	require.NoError(t, uart.Flush())
	assert.Equal(t, 1, w.resets)
	assert.Zero(t, w.in.Len())
}

func Test_adapterStatusError(t *testing.T) {
	w := &fakeWire{}
	w.queue(0x42, nil)
	uart, err := NewUART(testSession(w), 0)
	require.NoError(t, err)

	err = uart.Configure(9600)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 0x42")
}

func Test_gpioFrames(t *testing.T) {
	w := &fakeWire{}
	w.queue(statusOK, nil)
	w.queue(statusOK, nil)
	gpio, err := NewGPIO(testSession(w), 2)
	require.NoError(t, err)

	require.NoError(t, gpio.SetDirection(true))
	require.NoError(t, gpio.SetLevel(0))
	assert.Equal(t, []byte{
		0x10, 0x02, 0x01, 0x00, 0x01,
		0x11, 0x02, 0x01, 0x00, 0x00,
	}, w.out.Bytes())
}

func Test_newUARTRejectsBadInterface(t *testing.T) {
	_, err := NewUART(testSession(&fakeWire{}), 2)
	assert.Error(t, err)
}

func Test_newGPIORejectsBadPin(t *testing.T) {
	_, err := NewGPIO(testSession(&fakeWire{}), 16)
	assert.Error(t, err)
	_, err = NewGPIO(testSession(&fakeWire{}), -1)
	assert.Error(t, err)
}

func Test_gpioRejectsBadLevel(t *testing.T) {
	gpio, err := NewGPIO(testSession(&fakeWire{}), 0)
	require.NoError(t, err)
	assert.Error(t, gpio.SetLevel(2))
}
