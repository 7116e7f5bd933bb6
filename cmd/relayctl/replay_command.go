package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"voicecare-backend/internal/queue"
)

func newReplayCommand(ctx *commandContext) *cobra.Command {
	var enqueue bool

	cmd := &cobra.Command{
		Use:   "replay <userId> <callId>",
		Short: "Run the analysis again for a stored recording",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			userID, callID := args[0], args[1]

			if enqueue {
				if app.Queue == nil {
					return errors.New("no queue configured; set RELAY_QUEUE_URL")
				}
				msg := queue.NewReplayMessage(userID, callID, uuid.NewString(), time.Now().UTC())
				if err := app.Queue.Send(cmd.Context(), msg); err != nil {
					return fmt.Errorf("enqueue replay: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s (request %s)\n", callID, msg.RequestID)
				return nil
			}

			outcome, err := app.Relay.Replay(cmd.Context(), userID, callID)
			if err != nil {
				return fmt.Errorf("replay %s: %w", callID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", callID, outcome)
			return nil
		},
	}

	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "Send the replay to the worker queue instead of running it here")
	return cmd
}
