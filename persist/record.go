package persist

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/jrsteele09/go-bookstore-client/internal/errors"
)

const (
	// RecordVersion is the format version written into every record.
	RecordVersion = 1

	// PartitionAuth is the only partition the client keeps.
	PartitionAuth = "auth"

	keyPrefix = "persist:"
)

// Record is the stored document: one encrypted blob per persisted partition
// plus the format marker.
type Record struct {
	Auth string `json:"auth,omitempty"`
	Meta Meta   `json:"_persist"`
}

type Meta struct {
	Version    int  `json:"version"`
	Rehydrated bool `json:"rehydrated"`
}

// StorageKey returns the namespaced key a record is stored under.
func StorageKey(name string) string {
	return keyPrefix + name
}

func encodeRecord(r Record) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("[persist encodeRecord] %w", err)
	}
	return string(data), nil
}

func decodeRecord(raw string) (Record, error) {
	var r Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Record{}, apperrors.Wrapf(apperrors.ErrSessionCorrupt, "record: %v", err)
	}
	if r.Meta.Version != RecordVersion {
		return Record{}, apperrors.Wrapf(apperrors.ErrSessionVersion, "version %d", r.Meta.Version)
	}
	return r, nil
}
