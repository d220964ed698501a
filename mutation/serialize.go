package mutation

import (
	"encoding/json"
	"fmt"
)

// MarshalWire serialises wire records to JSON.
func MarshalWire(records []Wire) ([]byte, error) {
	return json.Marshal(records)
}

// UnmarshalWire deserialises the observer binding payload.
func UnmarshalWire(data []byte) ([]Wire, error) {
	var records []Wire
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("mutation: unmarshal wire: %w", err)
	}
	return records, nil
}
