// Netboot emits a debug trace and then makes one outbound connection
// attempt.  Networking is a build-time capability:
//
//	go build -tags networking .
//
// A build without the tag fails to compile.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"netboot/cmd"
	"netboot/internal/capability"
	"netboot/internal/exitcode"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)

	caps := capability.Resolve()

	err := cmd.Execute(ctx, caps, os.Args[1:])
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "netboot: %v\n", err)
	}
	os.Exit(exitcode.FromError(err))
}
