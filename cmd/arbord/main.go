// Command arbord runs an Arbor configuration server configured from
// ARBOR_* environment variables and command-line flags:
//
//	arbord --storage sqlite:///var/lib/arbor/config.db --snapshot-interval 1h --retention 720h
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/agilira/arbor"
	"github.com/agilira/arbor/cmd/cli"
)

func main() {
	base, err := arbor.LoadConfigFromEnv()
	if err != nil {
		fail(err)
	}

	config, err := arbor.ParseFlags(os.Args[1:], base)
	if err == arbor.ErrHelpRequested {
		fmt.Printf("Usage: arbord [--%s]...\n", joinFlags())
		return
	}
	if err != nil {
		fail(err)
	}

	storage, access, err := cli.NewRegistries()
	if err != nil {
		fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cli.NewManager(storage, access).Serve(ctx, config); err != nil {
		stop()
		fail(err)
	}
}

func joinFlags() string {
	return strings.Join(arbor.FlagNames(), "] [--")
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
