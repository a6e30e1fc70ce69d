package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/citesync/internal/canon"
)

// normalizeItemData validates CSL-JSON and returns it with its content hash.
// The stored text is the canonical form so identical data always compares
// equal in SQL.
func normalizeItemData(data json.RawMessage) (string, string, error) {
	v, err := canon.Decode(data)
	if err != nil {
		return "", "", fmt.Errorf("item data: %w", err)
	}
	if _, ok := v.(map[string]any); !ok {
		return "", "", fmt.Errorf("item data: must be a JSON object")
	}
	text, err := canon.Marshal(v)
	if err != nil {
		return "", "", fmt.Errorf("item data: %w", err)
	}
	hash, err := canon.Hash(canon.DomainItem, v)
	if err != nil {
		return "", "", fmt.Errorf("item data: %w", err)
	}
	return string(text), hash, nil
}

// marshalIndices encodes a list of field positions as a JSON array.
func marshalIndices(indices []int) (string, error) {
	if indices == nil {
		indices = []int{}
	}
	data, err := json.Marshal(indices)
	if err != nil {
		return "", fmt.Errorf("marshal indices: %w", err)
	}
	return string(data), nil
}

// unmarshalIndices parses a JSON array of field positions.
func unmarshalIndices(data string) ([]int, error) {
	if data == "" {
		return []int{}, nil
	}
	var out []int
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal indices: %w", err)
	}
	if out == nil {
		out = []int{}
	}
	return out, nil
}
