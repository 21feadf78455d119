// Copyright (C) 2021 ImmunIT. All rights reserved.
// Use of this source code is governed by an Apache 2.0 license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"os"

	"github.com/immunIT/octoprobe/cmd/octoprobe/commands"
)

var (
	version   = "v2.0.0"
	buildDate = "unknown"
)

func main() {
	info := commands.Info{
		Version: version,
		Date:    buildDate,
	}
	ctx := commands.SetInfo(context.Background(), info)
	cmd := commands.OctoprobeCmd(info)
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
