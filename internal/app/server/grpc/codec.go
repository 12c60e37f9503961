package grpc

import (
	"encoding/base64"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/atinyakov/dogify/internal/models"
	"github.com/atinyakov/dogify/internal/storage"
)

// Message field names.
const (
	FieldFileName    = "file_name"
	FieldContentType = "content_type"
	FieldData        = "data"
	FieldID          = "id"
	FieldImages      = "images"
)

func recordValue(r storage.ClassificationRecord) map[string]interface{} {
	return map[string]interface{}{
		"id":         r.ID,
		"user_id":    r.UserID,
		"image_url":  r.ImageURL,
		"breed":      r.Breed,
		"confidence": r.Confidence,
		"created_at": r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// RecordToStruct encodes a record with the same field names as its JSON form.
func RecordToStruct(r storage.ClassificationRecord) (*structpb.Struct, error) {
	return structpb.NewStruct(recordValue(r))
}

// RecordFromStruct decodes a record produced by RecordToStruct.
func RecordFromStruct(s *structpb.Struct) (storage.ClassificationRecord, error) {
	f := s.GetFields()

	r := storage.ClassificationRecord{
		ID:         f["id"].GetStringValue(),
		UserID:     f["user_id"].GetStringValue(),
		ImageURL:   f["image_url"].GetStringValue(),
		Breed:      f["breed"].GetStringValue(),
		Confidence: f["confidence"].GetNumberValue(),
	}

	if ts := f["created_at"].GetStringValue(); ts != "" {
		created, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return storage.ClassificationRecord{}, fmt.Errorf("created_at: %w", err)
		}
		r.CreatedAt = created
	}

	return r, nil
}

// RecordsToStruct wraps records as {"images": [...]}.
func RecordsToStruct(records []storage.ClassificationRecord) (*structpb.Struct, error) {
	list := make([]interface{}, 0, len(records))
	for _, r := range records {
		list = append(list, recordValue(r))
	}
	return structpb.NewStruct(map[string]interface{}{FieldImages: list})
}

// RecordsFromStruct decodes the output of RecordsToStruct.
func RecordsFromStruct(s *structpb.Struct) ([]storage.ClassificationRecord, error) {
	values := s.GetFields()[FieldImages].GetListValue().GetValues()

	records := make([]storage.ClassificationRecord, 0, len(values))
	for _, v := range values {
		r, err := RecordFromStruct(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// ImageToStruct encodes an upload; data travels base64 encoded.
func ImageToStruct(file models.ImageFile) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		FieldFileName:    file.Name,
		FieldContentType: file.ContentType,
		FieldData:        base64.StdEncoding.EncodeToString(file.Data),
	})
}

// ImageFromStruct decodes an upload request.
func ImageFromStruct(s *structpb.Struct) (models.ImageFile, error) {
	f := s.GetFields()

	data, err := base64.StdEncoding.DecodeString(f[FieldData].GetStringValue())
	if err != nil {
		return models.ImageFile{}, fmt.Errorf("data: %w", err)
	}

	return models.ImageFile{
		Name:        f[FieldFileName].GetStringValue(),
		ContentType: f[FieldContentType].GetStringValue(),
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}

// StatsToStruct encodes ledger totals.
func StatsToStruct(stats *models.Stats) (*structpb.Struct, error) {
	breeds := make(map[string]interface{}, len(stats.Breeds))
	for k, v := range stats.Breeds {
		breeds[k] = v
	}

	return structpb.NewStruct(map[string]interface{}{
		"records": stats.Records,
		"owners":  stats.Owners,
		"breeds":  breeds,
	})
}

// StatsFromStruct decodes the output of StatsToStruct.
func StatsFromStruct(s *structpb.Struct) *models.Stats {
	f := s.GetFields()

	stats := &models.Stats{
		Records: int(f["records"].GetNumberValue()),
		Owners:  int(f["owners"].GetNumberValue()),
		Breeds:  map[string]int{},
	}
	for k, v := range f["breeds"].GetStructValue().GetFields() {
		stats.Breeds[k] = int(v.GetNumberValue())
	}
	return stats
}
