package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"voicecare-backend/internal/calls"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <userId> <callId>",
		Short: "Print a call record as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			record, err := app.CallsRepo.Get(cmd.Context(), args[0], args[1])
			if errors.Is(err, calls.ErrNotFound) {
				return fmt.Errorf("call %s not found for user %s", args[1], args[0])
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd, record)
		},
	}
}
