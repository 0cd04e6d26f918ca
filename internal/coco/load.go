package coco

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/molmez/cocokit/internal/utils"
)

// Load reads and decodes a COCO annotation file. Reads get the standard
// bounded retry for transient filesystem errors.
func Load(path string) (*Dataset, error) {
	data, err := utils.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read annotations")
	}
	return Decode(data)
}

// Decode parses raw COCO JSON. Structural problems, including missing
// required tables, are reported as ErrMalformedInput.
func Decode(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, errors.Wrapf(ErrMalformedInput, "parse annotations: %v", err)
	}
	if ds.Images == nil {
		return nil, errors.Wrap(ErrMalformedInput, "missing images table")
	}
	if ds.Annotations == nil {
		return nil, errors.Wrap(ErrMalformedInput, "missing annotations table")
	}
	if ds.Categories == nil {
		return nil, errors.Wrap(ErrMalformedInput, "missing categories table")
	}
	return &ds, nil
}

// Encode serializes a dataset back to COCO JSON. Writing the bytes out is
// left to the caller, which owns the output layout and retry policy.
func Encode(ds *Dataset) ([]byte, error) {
	data, err := json.Marshal(ds)
	if err != nil {
		return nil, errors.Wrap(err, "encode annotations")
	}
	return data, nil
}
