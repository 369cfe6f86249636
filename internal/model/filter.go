package model

import "time"

// FilterCriteria is a conjunction of optional constraints over traffic records.
// A zero value matches every record.
type FilterCriteria struct {
	Protocol *Protocol `json:"protocol,omitempty"`
	// IP matches either the source or the destination address.
	IP string `json:"ip_address,omitempty"`
	// Ports matches when either side equals any listed port.
	Ports   []uint16   `json:"ports,omitempty"`
	MinSize *int64     `json:"min_size,omitempty"`
	MaxSize *int64     `json:"max_size,omitempty"`
	Since   *time.Time `json:"start_time,omitempty"`
	Until   *time.Time `json:"end_time,omitempty"`
}

// IsEmpty reports whether no constraint is configured.
func (c FilterCriteria) IsEmpty() bool {
	return c.Protocol == nil && c.IP == "" && len(c.Ports) == 0 &&
		c.MinSize == nil && c.MaxSize == nil && c.Since == nil && c.Until == nil
}
