package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timestamp accepts either UNIX seconds or an ISO 8601 string.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case uint64:
		t.Time = time.Unix(int64(v), 0).UTC()
	case int64:
		t.Time = time.Unix(v, 0).UTC()
	case int:
		t.Time = time.Unix(int64(v), 0).UTC()
	case float64:
		t.Time = time.Unix(int64(v), 0).UTC()
	case time.Time:
		t.Time = v
	case string:
		parsed, err := ParseTimestamp(v)
		if err != nil {
			return err
		}
		t.Time = parsed
	default:
		return fmt.Errorf("timestamp: unsupported value %v", raw)
	}
	return nil
}

// ParseTimestamp parses UNIX seconds or RFC 3339 / ISO 8601 text.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp: cannot parse %q", s)
}
