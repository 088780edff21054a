package storage

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"geosem/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var (
	ErrVersionMismatch = errors.New("record version mismatch")
	ErrInvalidRecord   = errors.New("invalid weight record")
)

// Stamp sets the current schema and codec versions on a record.
func Stamp(record model.WeightRecord) model.WeightRecord {
	record.SchemaVersion = CurrentSchemaVersion
	record.CodecVersion = CurrentCodecVersion
	return record
}

func EncodeWeights(record model.WeightRecord) ([]byte, error) {
	if err := validateRecord(record); err != nil {
		return nil, err
	}
	return json.Marshal(record)
}

func DecodeWeights(data []byte) (model.WeightRecord, error) {
	var record model.WeightRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.WeightRecord{}, errors.Wrap(err, "decode weight record")
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.WeightRecord{}, err
	}
	if err := validateRecord(record); err != nil {
		return model.WeightRecord{}, err
	}
	return record, nil
}

func validateRecord(record model.WeightRecord) error {
	if record.ID == "" {
		return errors.Wrap(ErrInvalidRecord, "id is required")
	}
	if record.Features.Name == "" {
		return errors.Wrapf(ErrInvalidRecord, "record %s has no feature function", record.ID)
	}
	if len(record.Weights) != record.Features.Dim {
		return errors.Wrapf(ErrInvalidRecord, "record %s has %d weights for dimension %d", record.ID, len(record.Weights), record.Features.Dim)
	}
	return nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return errors.Wrapf(ErrVersionMismatch, "schema %d codec %d", v.SchemaVersion, v.CodecVersion)
	}
	return nil
}

func copyRecord(record model.WeightRecord) model.WeightRecord {
	record.Weights = append([]float64(nil), record.Weights...)
	record.Impliable = append([]string(nil), record.Impliable...)
	if record.Localities != nil {
		localities := make(map[string]int, len(record.Localities))
		for tag, radius := range record.Localities {
			localities[tag] = radius
		}
		record.Localities = localities
	}
	if record.Fit != nil {
		fit := *record.Fit
		record.Fit = &fit
	}
	return record
}
