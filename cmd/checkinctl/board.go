package main

import (
	"github.com/spf13/cobra"

	"github.com/spec-kit/blood-drive-checkin/internal/api/dto"
	"github.com/spec-kit/blood-drive-checkin/internal/repository"
	"github.com/spec-kit/blood-drive-checkin/internal/service"
)

func boardCmd() *cobra.Command {
	var campaignID string
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Print a campaign's live queue board as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pg, err := app.postgres()
			if err != nil {
				return err
			}
			boards := service.NewBoardService(service.BoardDependencies{
				CampaignRepo:     repository.NewCampaignRepository(pg.PoolHandle()),
				RegistrationRepo: repository.NewRegistrationRepository(pg.PoolHandle()),
				PublicBaseURL:    app.cfg.App.PublicBaseURL,
				Size:             app.cfg.Kiosk.BoardSize,
			})
			snapshot, err := boards.Snapshot(app.ctx, campaignID)
			if err != nil {
				return err
			}
			payload, err := dto.EncodeBoard(snapshot)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(payload, '\n'))
			return err
		},
	}
	cmd.Flags().StringVar(&campaignID, "campaign", "", "Campaign id")
	_ = cmd.MarkFlagRequired("campaign")
	return cmd
}
