// Copyright (C) 2021 ImmunIT. All rights reserved.
// Use of this source code is governed by an Apache 2.0 license that can be
// found in the LICENSE file.

package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/immunIT/octoprobe/internal/octowire"
)

func MonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "monitor",
		Short:        "Monitor the target's UART output at a fixed baudrate",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := cmd.Flags().GetString("port")
			if err != nil {
				return err
			}

			baud, err := cmd.Flags().GetUint("baud")
			if err != nil {
				return err
			}

			iface, err := cmd.Flags().GetInt("interface")
			if err != nil {
				return err
			}

			raw, err := cmd.Flags().GetBool("raw")
			if err != nil {
				return err
			}

			if port == "" {
				if port, err = octowire.Detect(); err != nil {
					return err
				}
			} else if port, err = CheckPort(port); err != nil {
				return err
			}

			fmt.Printf("Starting serial monitor of port '%s' at %d baud ...\n", port, baud)
			sess, err := octowire.Open(port)
			if err != nil {
				return err
			}

			uart, err := octowire.NewUART(sess, iface)
			if err != nil {
				sess.Close()
				return err
			}
			if err := uart.Configure(int(baud)); err != nil {
				sess.Close()
				return err
			}
			if err := uart.Passthrough(); err != nil {
				sess.Close()
				return err
			}
			if err := sess.Close(); err != nil {
				return err
			}

			if raw {
				return miniterm(port)
			}

			dev, err := serialOpen(port, &serial.Mode{BaudRate: octowire.LinkBaudrate})
			if err != nil {
				return err
			}
			defer dev.Close()

			scanner := bufio.NewScanner(dev)
			for scanner.Scan() {
				fmt.Println(scanner.Text())
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringP("port", "p", ConfiguredPort(), "serial port of the Octowire")
	cmd.Flags().Uint("baud", 115200, "the baudrate of the target's UART")
	cmd.Flags().IntP("interface", "i", 0, "UART interface (0=UART0 or 1=UART1)")
	cmd.Flags().Bool("raw", false, "open a bidirectional miniterm instead of a line monitor")
	return cmd
}

func serialOpen(port string, mode *serial.Mode) (*serialPort, error) {
	dev, err := serial.Open(port, mode)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("the port '%s' was not found", port)
	}
	if err != nil {
		return nil, err
	}

	return &serialPort{dev}, err
}

type serialPort struct {
	serial.Port
}

func (s serialPort) Read(buf []byte) (n int, err error) {
	n, err = s.Port.Read(buf)
	if err == nil && n == 0 {
		return 0, io.ErrUnexpectedEOF
	}
	return n, err
}
