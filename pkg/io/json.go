package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/backdrop/pkg/errors"
)

// WriteJSON encodes s as indented JSON and writes it to w.
func WriteJSON(s *Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes s to a JSON file at path.
func ExportJSON(s *Snapshot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(s, f)
}

// ReadJSON decodes a snapshot from r.
//
// It returns an INVALID_FORMAT error if the JSON is malformed, the version
// is not one this package writes, or a tier's data does not match its
// dimensions. ReadJSON does not close r.
func ReadJSON(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode snapshot")
	}
	if s.Version != Version {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported snapshot version %d", s.Version)
	}
	for _, t := range s.Tiers {
		if err := t.validate(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid snapshot")
		}
	}
	return &s, nil
}

// ImportJSON reads a snapshot file at path.
func ImportJSON(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "snapshot %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}
