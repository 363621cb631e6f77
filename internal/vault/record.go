package vault

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Record is a single stored credential. ID is assigned by the vault and
// never changes; the other fields are editable.
type Record struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// newID returns a time-ordered UUID, falling back to a random one.
func newID() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return v7.String()
}

// encodeRecords serializes the whole collection as a JSON array.
func encodeRecords(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal records: %w", err)
	}
	return data, nil
}

// decodeRecords parses a collection and checks that IDs are present and
// unique.
func decodeRecords(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal records: %w", err)
	}

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.ID == "" {
			return nil, fmt.Errorf("record %q has no id", r.Label)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("duplicate record id %s", r.ID)
		}
		seen[r.ID] = struct{}{}
	}

	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// cloneRecords returns a copy that does not share the backing array.
func cloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	return out
}

func indexOf(records []Record, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}
