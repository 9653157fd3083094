package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/jrsteele09/go-bookstore-client/sessions"
)

// Timestamp accepts an ISO string, epoch seconds or milliseconds, or null and
// keeps the string form used by sessions.Session.Exp.
type Timestamp string

// Epoch values above this are read as milliseconds. In seconds it is the year 5138.
const maxEpochSeconds = 1e11

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Timestamp(s)
		return nil
	}
	secs, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return fmt.Errorf("timestamp: invalid epoch %s", data)
	}
	if math.Abs(secs) > maxEpochSeconds {
		secs /= 1000
	}
	if math.Abs(secs) > maxEpochSeconds {
		return fmt.Errorf("timestamp: epoch %s out of range", data)
	}
	whole, frac := math.Modf(secs)
	*t = Timestamp(sessions.FormatExp(time.Unix(int64(whole), int64(frac*float64(time.Second)))))
	return nil
}

// Number accepts a JSON number or a numeric string.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("number: %w", err)
	}
	*n = Number(f)
	return nil
}
