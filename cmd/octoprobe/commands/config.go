// Copyright (C) 2021 ImmunIT. All rights reserved.
// Use of this source code is governed by an Apache 2.0 license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/immunIT/octoprobe/cmd/octoprobe/directory"
)

func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configure octoprobe",
		Long:  "Configure the octoprobe command line tool.",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the path of the user config file",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				path, err := directory.GetUserConfigPath()
				if err != nil {
					return err
				}
				fmt.Println(path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the stored configuration",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				cfg, err := GetConfig()
				if err != nil {
					return err
				}
				settings := cfg.AllSettings()
				if len(settings) == 0 {
					fmt.Println("No stored configuration.")
					return nil
				}
				out, err := yaml.Marshal(settings)
				if err != nil {
					return err
				}
				fmt.Print(string(out))
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear-port",
			Short: "Forget the stored Octowire port",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				cfg, err := GetConfig()
				if err != nil {
					return err
				}
				cfg.Set("port", "")
				return writeConfig(cfg)
			},
		},
	)
	return cmd
}
