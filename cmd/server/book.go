package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
)

func newBookCmd() *cobra.Command {
	var actorID string
	cmd := &cobra.Command{
		Use:   "book ID...",
		Short: "Mark refunded reports as booked",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, logger, err := openContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			// operators run with full rights
			actor := entity.Actor{ID: actorID, Grants: []entity.Grant{{Access: entity.ActionAdmin}}}
			res, err := c.WorkflowEngine().Book(cmd.Context(), actor, args)
			if res != nil {
				for _, item := range res.Items {
					if item.Error != "" {
						logger.Error("Booking failed", zap.String("report_id", item.ID), zap.String("error", item.Error))
					}
				}
				logger.Info("Booking finished", zap.Int("succeeded", res.Succeeded), zap.Int("failed", res.Failed))
			}
			if err != nil {
				return fmt.Errorf("book: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "cli", "Actor ID recorded for the booking")
	return cmd
}
