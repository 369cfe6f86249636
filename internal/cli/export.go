package cli

import (
	"TrafficParser/internal/export"
	"TrafficParser/internal/model"
	"TrafficParser/internal/objstore"
	"TrafficParser/internal/store"
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// exportFlags are shared by export and parse --export.
type exportFlags struct {
	output  string
	noStats bool
	upload  bool
}

func (f *exportFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.output, "output", "o", "", "export bundle path (default from config)")
	flags.BoolVar(&f.noStats, "no-stats", false, "skip the statistics block and file")
	flags.BoolVar(&f.upload, "upload", false, "upload the written files to the configured object storage")
}

func (a *app) exportCommand() *cobra.Command {
	var (
		filters filterFlags
		out     exportFlags
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored traffic records as a JSON bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			criteria, err := filters.criteria()
			if err != nil {
				return err
			}
			a.applyExportFlags(cmd, &out)
			if err := a.checkUpload(out); err != nil {
				return err
			}

			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			return a.runExport(cmd.Context(), s, criteria, out)
		},
	}
	filters.register(cmd)
	out.register(cmd)
	return cmd
}

func (a *app) applyExportFlags(cmd *cobra.Command, out *exportFlags) {
	if cmd.Flags().Changed("output") {
		a.cfg.Export.Output = out.output
	}
	if out.noStats {
		a.cfg.Export.Statistics = false
	}
}

// checkUpload rejects --upload before anything is written when object
// storage is not configured.
func (a *app) checkUpload(out exportFlags) error {
	if out.upload && !a.cfg.UploadEnabled() {
		return model.Configurationf("--upload needs object_storage.endpoint and object_storage.bucket")
	}
	return nil
}

func (a *app) runExport(ctx context.Context, s store.Store, criteria model.FilterCriteria, out exportFlags) error {
	if err := a.checkUpload(out); err != nil {
		return err
	}

	exporter := export.New(a.log, a.metrics)
	cursor, err := s.Query(ctx, criteria)
	if err != nil {
		return err
	}
	bundle, err := exporter.Build(cursor, criteria, a.cfg.Export.Statistics)
	if err != nil {
		return err
	}
	result, err := exporter.Write(bundle, a.cfg.Export.Output)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Exported %d records to %s\n", bundle.Metadata.TotalPackets, result.BundlePath)
	if result.StatisticsPath != "" {
		fmt.Fprintf(a.stdout, "Statistics written to %s\n", result.StatisticsPath)
	}

	if !out.upload {
		return nil
	}
	uploader, err := objstore.New(a.cfg.ObjectStorage, a.log)
	if err != nil {
		return err
	}
	keys, err := uploader.Upload(ctx, bundle.Metadata.ExportID, result.BundlePath, result.StatisticsPath)
	if err != nil {
		return err
	}
	for _, key := range keys {
		fmt.Fprintf(a.stdout, "Uploaded s3://%s/%s\n", a.cfg.ObjectStorage.Bucket, key)
	}
	return nil
}
