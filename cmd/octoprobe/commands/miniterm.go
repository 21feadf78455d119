// Copyright (C) 2021 ImmunIT. All rights reserved.
// Use of this source code is governed by an Apache 2.0 license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"
	"io"
	"os"

	"go.bug.st/serial"
	"golang.org/x/term"

	"github.com/immunIT/octoprobe/internal/octowire"
)

// ctrlRightBracket detaches the miniterm, like pyserial's miniterm does.
const ctrlRightBracket = 0x1d

// miniterm bridges the operator's terminal to the target through the
// adapter. The adapter must already be in UART passthrough mode and its
// session closed; the port is reopened raw here.
func miniterm(portPath string) error {
	dev, err := serialOpen(portPath, &serial.Mode{BaudRate: octowire.LinkBaudrate})
	if err != nil {
		return err
	}
	defer dev.Close()

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, oldState)

	fmt.Printf("--- Miniterm on %s ---\r\n", portPath)
	fmt.Printf("--- Quit: Ctrl+] ---\r\n")

	go io.Copy(os.Stdout, dev)

	buf := make([]byte, 1)
	for {
		if _, err := os.Stdin.Read(buf); err != nil {
			return err
		}
		if buf[0] == ctrlRightBracket {
			fmt.Printf("\r\n--- Miniterm closed ---\r\n")
			return nil
		}
		if _, err := dev.Write(buf); err != nil {
			return err
		}
	}
}
