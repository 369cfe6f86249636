package cli

import (
	"TrafficParser/internal/model"
	"TrafficParser/internal/publish"
	"encoding/json"

	"github.com/spf13/cobra"
)

func (a *app) tailCommand() *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print records published by parse as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("subject") {
				a.cfg.NATS.Subject = subject
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			if a.cfg.NATS.URL == "" {
				return model.Configurationf("tail needs nats.url")
			}

			sub, err := publish.NewSubscriber(a.cfg.NATS.URL, a.cfg.NATS.Subject, a.log)
			if err != nil {
				return err
			}
			defer sub.Close()

			ctx := cmd.Context()
			records := make(chan model.TrafficRecord, 64)
			err = sub.Start(func(r model.TrafficRecord) {
				select {
				case records <- r:
				case <-ctx.Done():
				}
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(a.stdout)
			for {
				select {
				case <-ctx.Done():
					return nil
				case r := <-records:
					if err := enc.Encode(r); err != nil {
						return err
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "NATS subject (default from config)")
	return cmd
}
