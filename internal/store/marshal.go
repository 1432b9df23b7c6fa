package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/waterfall/internal/domain"
)

// timeLayout is fixed width so TEXT comparison in SQL orders like time.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// marshalLoad converts a load to canonical JSON TEXT for storage.
// Canonical form keeps the stored bytes stable across rewrites of the row.
func marshalLoad(load domain.Load) (string, error) {
	data, err := domain.MarshalCanonical(map[string]any{
		"id":              load.ID,
		"origin_zip":      load.OriginZip,
		"destination_zip": load.DestinationZip,
		"equipment_type":  load.EquipmentType,
	})
	if err != nil {
		return "", fmt.Errorf("marshal load: %w", err)
	}
	return string(data), nil
}

func unmarshalLoad(data string) (domain.Load, error) {
	var load domain.Load
	if data == "" || data == "{}" {
		return load, nil
	}
	if err := json.Unmarshal([]byte(data), &load); err != nil {
		return domain.Load{}, fmt.Errorf("unmarshal load: %w", err)
	}
	return load, nil
}

// textOf returns the storage name of an enum implementing encoding.TextMarshaler.
func textOf(v interface{ MarshalText() ([]byte, error) }) (string, error) {
	b, err := v.MarshalText()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
