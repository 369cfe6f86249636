package cli

import (
	"TrafficParser/internal/api"

	"github.com/spf13/cobra"
)

func (a *app) serveCommand() *cobra.Command {
	var listen, grpcListen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the stored traffic records over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("listen") {
				a.cfg.API.Listen = listen
			}
			if cmd.Flags().Changed("grpc-listen") {
				a.cfg.API.GRPCListen = grpcListen
			}

			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			return api.NewServer(s, a.log, a.metrics).Run(cmd.Context(), a.cfg.API.Listen, a.cfg.API.GRPCListen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (default from config)")
	cmd.Flags().StringVar(&grpcListen, "grpc-listen", "", "gRPC health listen address, empty to disable (default from config)")
	return cmd
}
