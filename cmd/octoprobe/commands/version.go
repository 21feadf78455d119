// Copyright (C) 2021 ImmunIT. All rights reserved.
// Use of this source code is governed by an Apache 2.0 license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func VersionCmd(info Info) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "version",
		Short:        "Print the version of octoprobe",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("octoprobe version:\t%s\n", info.Version)
			fmt.Printf("Build date:\t\t%s\n", info.Date)
		},
	}
	return cmd
}
