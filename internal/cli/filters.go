package cli

import (
	"TrafficParser/internal/filter"
	"TrafficParser/internal/model"

	"github.com/spf13/cobra"
)

// filterFlags binds the record filter flags shared by parse and export.
type filterFlags struct {
	opts filter.Options
}

func (f *filterFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.opts.Protocol, "protocol", "", "keep only this protocol (TCP, UDP, ICMP, IPv6, other)")
	flags.StringVar(&f.opts.IP, "ip", "", "keep records with this source or destination address")
	flags.StringSliceVar(&f.opts.Ports, "port", nil, "keep records using any of these ports on either side (repeatable)")
	flags.StringVar(&f.opts.MinSize, "min-size", "", "minimum packet size in bytes, inclusive")
	flags.StringVar(&f.opts.MaxSize, "max-size", "", "maximum packet size in bytes, inclusive")
	flags.StringVar(&f.opts.Since, "since", "", "earliest capture time, inclusive (RFC 3339, date or unix seconds)")
	flags.StringVar(&f.opts.Until, "until", "", "latest capture time, inclusive (RFC 3339, date or unix seconds)")
}

func (f *filterFlags) criteria() (model.FilterCriteria, error) {
	return f.opts.Criteria()
}
