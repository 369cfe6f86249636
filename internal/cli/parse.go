package cli

import (
	"TrafficParser/internal/pipeline"
	"TrafficParser/internal/publish"

	"github.com/spf13/cobra"
)

func (a *app) parseCommand() *cobra.Command {
	var (
		filters   filterFlags
		out       exportFlags
		pcapDir   string
		batchSize int
		maxFrames int
		andExport bool
	)
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Ingest every capture file of a directory into the traffic store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			criteria, err := filters.criteria()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("pcap-dir") {
				a.cfg.Parse.PcapDir = pcapDir
			}
			if flags.Changed("batch-size") {
				a.cfg.Parse.BatchSize = batchSize
			}
			if flags.Changed("max-frames") {
				a.cfg.Parse.MaxFramesPerFile = maxFrames
			}
			a.applyExportFlags(cmd, &out)
			if err := a.checkUpload(out); err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			var pub pipeline.Publisher
			if a.cfg.NATS.URL != "" {
				p, err := publish.NewPublisher(a.cfg.NATS.URL, a.cfg.NATS.Subject, a.log)
				if err != nil {
					return err
				}
				defer p.Close()
				pub = p
			}

			parser := pipeline.NewParser(s, a.log, a.metrics, pub)
			report, err := parser.Run(ctx, pipeline.Options{
				Dir:       a.cfg.Parse.PcapDir,
				Criteria:  criteria,
				BatchSize: a.cfg.Parse.BatchSize,
				MaxFrames: a.cfg.Parse.MaxFramesPerFile,
			})
			if report != nil {
				report.Print(a.stdout)
			}
			if err != nil {
				return err
			}

			if !andExport {
				return nil
			}
			return a.runExport(ctx, s, criteria, out)
		},
	}
	filters.register(cmd)
	out.register(cmd)

	flags := cmd.Flags()
	flags.StringVar(&pcapDir, "pcap-dir", "", "directory holding .pcap/.pcapng files (default from config)")
	flags.IntVar(&batchSize, "batch-size", 0, "records committed per transaction (default from config)")
	flags.IntVar(&maxFrames, "max-frames", 0, "frames read per file, 0 for unlimited (default from config)")
	flags.BoolVar(&andExport, "export", false, "export the matching records after parsing")
	return cmd
}
