package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ImagesSlot is the slot holding every user's classification records.
const ImagesSlot = "dogify_images"

// ReadRecords loads the record array stored in a slot. A slot that was never
// written reads as an empty set.
func ReadRecords(ctx context.Context, s Slots, name string) ([]ClassificationRecord, error) {
	b, err := s.Get(ctx, name)
	if errors.Is(err, ErrSlotNotFound) {
		return []ClassificationRecord{}, nil
	}
	if err != nil {
		return nil, err
	}

	records := []ClassificationRecord{}
	if len(b) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("failed to parse slot %q: %w", name, err)
	}
	if records == nil {
		records = []ClassificationRecord{}
	}

	return records, nil
}

// WriteRecords replaces the slot with the given records.
func WriteRecords(ctx context.Context, s Slots, name string, records []ClassificationRecord) error {
	if records == nil {
		records = []ClassificationRecord{}
	}

	b, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode slot %q: %w", name, err)
	}

	return s.Set(ctx, name, b)
}
