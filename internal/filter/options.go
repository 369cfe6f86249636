package filter

import (
	"TrafficParser/internal/model"
	"net"
	"strconv"
	"strings"
	"time"
)

// Options is the raw, unvalidated filter input coming from flags or a query string.
type Options struct {
	Protocol string
	IP       string
	Ports    []string
	MinSize  string
	MaxSize  string
	Since    string
	Until    string
}

// Criteria validates the options and converts them into FilterCriteria.
// Every failure is a model.ErrConfiguration.
func (o Options) Criteria() (model.FilterCriteria, error) {
	var c model.FilterCriteria

	if s := strings.TrimSpace(o.Protocol); s != "" {
		p, ok := model.LookupProtocol(s)
		if !ok {
			return c, model.Configurationf("unknown protocol %q (want one of TCP, UDP, ICMP, IPv6, other)", s)
		}
		c.Protocol = &p
	}

	if s := strings.TrimSpace(o.IP); s != "" {
		ip := net.ParseIP(s)
		if ip == nil {
			return c, model.Configurationf("invalid IP address %q", s)
		}
		c.IP = ip.String()
	}

	for _, raw := range o.Ports {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			port, err := strconv.ParseUint(s, 10, 16)
			if err != nil {
				return c, model.Configurationf("invalid port %q: must be an integer in 0-65535", s)
			}
			c.Ports = append(c.Ports, uint16(port))
		}
	}

	var err error
	if c.MinSize, err = parseSize("min-size", o.MinSize); err != nil {
		return c, err
	}
	if c.MaxSize, err = parseSize("max-size", o.MaxSize); err != nil {
		return c, err
	}
	if c.MinSize != nil && c.MaxSize != nil && *c.MinSize > *c.MaxSize {
		return c, model.Configurationf("min-size %d is greater than max-size %d", *c.MinSize, *c.MaxSize)
	}

	if c.Since, err = parseTime("since", o.Since); err != nil {
		return c, err
	}
	if c.Until, err = parseTime("until", o.Until); err != nil {
		return c, err
	}
	if c.Since != nil && c.Until != nil && c.Since.After(*c.Until) {
		return c, model.Configurationf("since %s is after until %s", c.Since.Format(time.RFC3339), c.Until.Format(time.RFC3339))
	}

	return c, nil
}

func parseSize(name, s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return nil, model.Configurationf("invalid %s %q: must be a non-negative integer", name, s)
	}
	return &n, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime accepts RFC 3339, a zone-less date-time (taken as UTC) or a bare
// date, or Unix seconds.
func parseTime(name, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		t := time.Unix(secs, 0).UTC()
		return &t, nil
	}
	return nil, model.Configurationf("invalid %s time %q: use RFC 3339, YYYY-MM-DD or Unix seconds", name, s)
}
