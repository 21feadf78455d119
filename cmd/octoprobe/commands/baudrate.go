// Copyright (C) 2021 ImmunIT. All rights reserved.
// Use of this source code is governed by an Apache 2.0 license that can be
// found in the LICENSE file.

package commands

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/immunIT/octoprobe/internal/baudrate"
	"github.com/immunIT/octoprobe/internal/octowire"
)

func BaudrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baudrate",
		Short: "Detect the UART baudrate of the target",
		Long: "Detect the UART baudrate of the target for ASCII-based communication.\n\n" +
			"In 'incremental' mode, the baudrate starts at --baudrate-min and is\n" +
			"incremented by --baudrate-inc up to --baudrate-max. In 'list' mode, the\n" +
			"values given with --baudrate-list are tested in order. A baudrate is\n" +
			"accepted once 20 consecutive received bytes are printable ASCII.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := baudrateOptions(cmd)
			if err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			port, err := cmd.Flags().GetString("port")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}

			if port == "" {
				if port, err = octowire.Detect(); err != nil {
					return err
				}
			}
			fmt.Printf("Using Octowire on '%s'\n", port)
			sess, err := octowire.Open(port)
			if err != nil {
				return err
			}
			released := false
			defer func() {
				if !released {
					sess.Close()
				}
			}()

			uart, err := octowire.NewUART(sess, opts.Interface)
			if err != nil {
				return err
			}

			var reset *baudrate.Reset
			if opts.ResetPin >= 0 {
				line, err := octowire.NewGPIO(sess, opts.ResetPin)
				if err != nil {
					return err
				}
				reset = &baudrate.Reset{
					Line:     line,
					Polarity: opts.ResetPolarity,
					Hold:     opts.ResetHold,
					Delay:    opts.ResetDelay,
				}
				if err := reset.Init(); err != nil {
					return err
				}
			}

			classifier := &baudrate.Classifier{
				Threshold:     opts.Threshold,
				Window:        opts.Window,
				TriggerBudget: opts.TriggerBudget,
				TriggerSettle: opts.TriggerSettle,
			}
			if opts.Trigger {
				classifier.Trigger = opts.TriggerBytes
			}

			candidates := opts.Candidates()
			fmt.Println("Starting baudrate detection, turn on your target device now")
			fmt.Println("Press Ctrl+C to cancel")

			var bar *pb.ProgressBar
			if verbose {
				classifier.Trace = func(b byte, plausible bool) {
					if plausible && b != '\r' && b != '\n' && b != '\t' && b != 0x1b {
						fmt.Printf("%c", b)
					} else {
						fmt.Printf("<0x%02x>", b)
					}
				}
				classifier.OnTrigger = func() {
					fmt.Println("Triggering the device")
				}
			} else {
				bar = pb.StartNew(len(candidates))
			}
			finishBar := func() {
				if bar != nil {
					bar.Finish()
					bar = nil
				}
			}
			defer finishBar()

			sweeper := &baudrate.Sweeper{
				UART:       uart,
				Reset:      reset,
				Classifier: classifier,
				OnCandidate: func(baud int) {
					if verbose {
						fmt.Printf("Switching to baudrate %d...\n", baud)
					}
				},
				OnResult: func(baud int, res baudrate.Result) {
					if bar != nil {
						bar.Increment()
					}
					if !verbose {
						return
					}
					switch res {
					case baudrate.Rejected:
						fmt.Printf("\n%d does not appear to be a valid baudrate setting...\n", baud)
					case baudrate.Timeout:
						fmt.Printf("\nNo data received using the following baudrate value: %d...\n", baud)
					}
				},
				OnError: func(baud int, err error) {
					if bar != nil {
						bar.Increment()
					}
					fmt.Printf("\nBaudrate %d failed: %v\n", baud, err)
				},
				OnAccept: func(baud int) (baudrate.Decision, error) {
					finishBar()
					fmt.Printf("\nValid baudrate found: %d\n", baud)

					prompt := promptui.Select{
						Label: "What would you like to do with it",
						Items: []string{
							"Open a miniterm session",
							"Stop here and keep this result",
							"Continue testing other baudrate values",
						},
						Templates: &promptui.SelectTemplates{},
					}
					choice, _, err := prompt.Run()
					if err != nil {
						// Interrupted prompt: keep the result, end the sweep.
						return baudrate.Stop, nil
					}
					switch choice {
					case 0:
						if err := uart.Passthrough(); err != nil {
							return baudrate.Stop, err
						}
						released = true
						if err := sess.Close(); err != nil {
							return baudrate.Stop, err
						}
						ptPort, err := octowire.Detect()
						if err != nil {
							ptPort = port
						}
						if err := miniterm(ptPort); err != nil {
							return baudrate.Stop, err
						}
						fmt.Println("Please press the Octowire User button to exit the UART passthrough mode")
						return baudrate.Stop, nil
					case 1:
						return baudrate.Stop, nil
					default:
						return baudrate.Continue, nil
					}
				},
			}

			found, ok, err := sweeper.Run(cmd.Context(), candidates)
			finishBar()
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("No valid baudrate found")
				return nil
			}
			fmt.Printf("Detection finished, valid baudrate: %d\n", found)
			return nil
		},
	}

	defaults := baudrate.DefaultOptions()
	cmd.Flags().StringP("port", "p", ConfiguredPort(), "serial port of the Octowire")
	cmd.Flags().IntP("interface", "i", defaults.Interface, "UART interface (0=UART0 or 1=UART1)")
	cmd.Flags().StringP("mode", "m", string(defaults.Mode), "detection mode: 'incremental' or 'list'")
	cmd.Flags().Int("baudrate-min", defaults.Min, "minimum baudrate value (incremental mode only)")
	cmd.Flags().Int("baudrate-max", defaults.Max, "maximum baudrate value, exclusive (incremental mode only)")
	cmd.Flags().Int("baudrate-inc", defaults.Step, "baudrate increment value (incremental mode only)")
	cmd.Flags().String("baudrate-list", "9600,19200,38400,57600,115200", "comma separated baudrate values to test (list mode only)")
	cmd.Flags().Int("reset-pin", -1, "GPIO pulsed to reset the target before each candidate, -1 to disable")
	cmd.Flags().String("reset-polarity", string(defaults.ResetPolarity), "polarity of the reset line: 'low' (active-low) or 'high'")
	cmd.Flags().Duration("reset-hold", defaults.ResetHold, "hold time of the reset pulse")
	cmd.Flags().Duration("reset-delay", defaults.ResetDelay, "time to wait after a target reset")
	cmd.Flags().BoolP("trigger", "t", false, "send the trigger bytes if the target stays silent")
	cmd.Flags().String("trigger-bytes", "0D0A", "bytes to send when triggering, raw hex without leading 0x")
	cmd.Flags().BoolP("verbose", "v", false, "print every candidate and received byte instead of a progress bar")
	return cmd
}

// baudrateOptions turns the command flags into validated detection options.
func baudrateOptions(cmd *cobra.Command) (baudrate.Options, error) {
	opts := baudrate.DefaultOptions()

	iface, err := cmd.Flags().GetInt("interface")
	if err != nil {
		return opts, err
	}
	opts.Interface = iface

	modeStr, err := cmd.Flags().GetString("mode")
	if err != nil {
		return opts, err
	}
	mode, err := baudrate.ParseMode(modeStr)
	if err != nil {
		return opts, err
	}
	opts.Mode = mode

	if opts.Min, err = cmd.Flags().GetInt("baudrate-min"); err != nil {
		return opts, err
	}
	if opts.Max, err = cmd.Flags().GetInt("baudrate-max"); err != nil {
		return opts, err
	}
	if opts.Step, err = cmd.Flags().GetInt("baudrate-inc"); err != nil {
		return opts, err
	}

	if mode == baudrate.ModeList {
		listStr, err := cmd.Flags().GetString("baudrate-list")
		if err != nil {
			return opts, err
		}
		if opts.List, err = baudrate.ParseList(listStr); err != nil {
			return opts, err
		}
	}

	if opts.ResetPin, err = cmd.Flags().GetInt("reset-pin"); err != nil {
		return opts, err
	}
	polStr, err := cmd.Flags().GetString("reset-polarity")
	if err != nil {
		return opts, err
	}
	if opts.ResetPin >= 0 {
		if opts.ResetPolarity, err = baudrate.ParsePolarity(polStr); err != nil {
			return opts, err
		}
	}
	if opts.ResetHold, err = cmd.Flags().GetDuration("reset-hold"); err != nil {
		return opts, err
	}
	if opts.ResetDelay, err = cmd.Flags().GetDuration("reset-delay"); err != nil {
		return opts, err
	}

	if opts.Trigger, err = cmd.Flags().GetBool("trigger"); err != nil {
		return opts, err
	}
	if opts.Trigger {
		hexStr, err := cmd.Flags().GetString("trigger-bytes")
		if err != nil {
			return opts, err
		}
		if opts.TriggerBytes, err = parseTriggerBytes(hexStr); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// parseTriggerBytes decodes the raw hex payload of the --trigger-bytes flag.
func parseTriggerBytes(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	b, err := hex.DecodeString(s)
	if err != nil || len(b) == 0 {
		return nil, fmt.Errorf("invalid trigger bytes '%s', expected raw hex like 0D0A", s)
	}
	return b, nil
}
