package filter

import "TrafficParser/internal/model"

// Match reports whether record satisfies every constraint present in criteria.
func Match(record *model.TrafficRecord, criteria model.FilterCriteria) bool {
	if criteria.Protocol != nil && record.Protocol != *criteria.Protocol {
		return false
	}
	if criteria.IP != "" && !record.HasIP(criteria.IP) {
		return false
	}
	if len(criteria.Ports) > 0 {
		matched := false
		for _, p := range criteria.Ports {
			if record.HasPort(p) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if criteria.MinSize != nil && record.PacketSize < *criteria.MinSize {
		return false
	}
	if criteria.MaxSize != nil && record.PacketSize > *criteria.MaxSize {
		return false
	}
	if criteria.Since != nil && record.Timestamp.Before(*criteria.Since) {
		return false
	}
	if criteria.Until != nil && record.Timestamp.After(*criteria.Until) {
		return false
	}
	return true
}

// Apply returns the records that match criteria, keeping their order.
func Apply(records []model.TrafficRecord, criteria model.FilterCriteria) []model.TrafficRecord {
	out := make([]model.TrafficRecord, 0, len(records))
	for i := range records {
		if Match(&records[i], criteria) {
			out = append(out, records[i])
		}
	}
	return out
}
