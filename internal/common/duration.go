// Package common holds the wire types and small helpers shared by every
// Satori service: triggers, events, HLS addressing, and the inbound/outbound
// message schemas exchanged between the event processor and the archiver.
package common

import (
	"fmt"
	"strconv"
	"time"
)

// Seconds is a time.Duration that marshals as a plain integer number of
// seconds rather than Go's "1h2m3s" syntax, matching the wire/config
// representation used throughout Satori's TOML files and JSON payloads.
type Seconds time.Duration

// Duration returns the underlying time.Duration.
func (s Seconds) Duration() time.Duration {
	return time.Duration(s)
}

func (s Seconds) MarshalText() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(time.Duration(s)/time.Second), 10)), nil
}

func (s *Seconds) UnmarshalText(text []byte) error {
	n, err := strconv.ParseInt(string(text), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid duration seconds %q: %w", text, err)
	}
	*s = Seconds(time.Duration(n) * time.Second)
	return nil
}

func (s Seconds) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(time.Duration(s)/time.Second), 10)), nil
}

func (s *Seconds) UnmarshalJSON(data []byte) error {
	return s.UnmarshalText(data)
}
