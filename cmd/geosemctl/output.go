package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/cockroachdb/errors"

	"geosem/internal/model"
	"geosem/internal/storage"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeRecordFile(path string, record model.WeightRecord) error {
	data, err := storage.EncodeWeights(record)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

func readRecordFile(path string) (model.WeightRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.WeightRecord{}, errors.Wrapf(err, "read %s", path)
	}
	record, err := storage.DecodeWeights(data)
	if err != nil {
		return model.WeightRecord{}, errors.Wrapf(err, "decode %s", path)
	}
	return record, nil
}
