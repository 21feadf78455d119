// Copyright (C) 2021 ImmunIT. All rights reserved.
// Use of this source code is governed by an Apache 2.0 license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/immunIT/octoprobe/internal/octowire"
)

func ScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan for an Octowire adapter",
		Long: "Scan the USB serial ports for an Octowire adapter, matched by its USB\n" +
			"vendor and product id, and store the port it was found on.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := GetConfig()
			if err != nil {
				return err
			}

			fmt.Println("Scanning ...")
			port, err := scanAndPickOctowire()
			if err != nil {
				return err
			}

			fmt.Printf("Found an Octowire on '%s'\n", port)
			cfg.Set("port", port)
			return writeConfig(cfg)
		},
	}
	return cmd
}

func scanAndPickOctowire() (string, error) {
	port, err := octowire.Detect()
	if err == nil {
		return port, nil
	}

	// Detection failed or was ambiguous; fall back to a manual pick over
	// every available port.
	ports, err := listPorts()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", fmt.Errorf("didn't find any serial ports")
	}

	prompt := promptui.Select{
		Label:     "Choose what serial port your Octowire is on",
		Items:     ports,
		Templates: &promptui.SelectTemplates{},
	}

	i, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("you didn't select anything")
	}
	return ports[i], nil
}
