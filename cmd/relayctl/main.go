package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"voicecare-backend/internal/shared/telemetry"
)

func main() {
	defer telemetry.Sync()
	cmd := newRootCommand(newCommandContext(nil))
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
