// Copyright (C) 2021 ImmunIT. All rights reserved.
// Use of this source code is governed by an Apache 2.0 license that can be
// found in the LICENSE file.

package commands

import (
	"context"

	"github.com/spf13/cobra"
)

type ctxKey string

const (
	ctxKeyInfo ctxKey = "info"
)

type Info struct {
	Version string `mapstructure:"version" yaml:"version" json:"version"`
	Date    string `mapstructure:"date" yaml:"date" json:"date"`
}

func SetInfo(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, ctxKeyInfo, info)
}

func GetInfo(ctx context.Context) Info {
	return ctx.Value(ctxKeyInfo).(Info)
}

func OctoprobeCmd(info Info) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "octoprobe",
		Short: "Probe embedded targets through an Octowire adapter",
		Long: "Octoprobe talks to an unknown embedded target through the Octowire USB\n" +
			"adapter. Its main job is UART baudrate discovery: it sweeps candidate\n" +
			"baudrates, optionally resetting or triggering the target, until the\n" +
			"received bytes look like real ASCII traffic.",
	}

	cmd.AddCommand(
		BaudrateCmd(),
		ScanCmd(),
		SetPortCmd(),
		PortsCmd(),
		MonitorCmd(),
		ConfigCmd(),
		VersionCmd(info),
	)
	return cmd
}
