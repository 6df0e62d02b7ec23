package mcpserver

import (
	"fmt"
	"strconv"
	"strings"

	"seatplan/internal/domain"
)

func boolPtr(v bool) *bool { return &v }

func getFloat(args map[string]any, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return fallback
}

// getInt64 reads a JSON number argument as an id.
func getInt64(args map[string]any, key string) (int64, bool) {
	v, ok := args[key].(float64)
	if !ok || v != float64(int64(v)) {
		return 0, false
	}
	return int64(v), true
}

func requireInt64(args map[string]any, key string) (int64, error) {
	v, ok := getInt64(args, key)
	if !ok {
		return 0, fmt.Errorf("%s is required and must be an integer", key)
	}
	return v, nil
}

func getStringPtr(args map[string]any, key string) *string {
	if v, ok := args[key].(string); ok {
		return &v
	}
	return nil
}

// parseKey reads a furniture key as printed by furnitureView: a positive
// integer is a server id, anything else is the local key of an item the
// server has not stored yet.
func parseKey(s string) (domain.FurnitureKey, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return domain.FurnitureKey{}, fmt.Errorf("%w: empty furniture key", domain.ErrInvalidInput)
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil && id > 0 {
		return domain.Synced(id), nil
	}
	return domain.Unsynced(strings.TrimPrefix(s, "local:")), nil
}

func keyString(k domain.FurnitureKey) string {
	if k.IsSynced() {
		return strconv.FormatInt(k.ServerID(), 10)
	}
	return k.LocalKey()
}

// furnitureView adds the printable key that tools accept back.
type furnitureView struct {
	Key string `json:"key"`
	domain.Furniture
}

func viewFurniture(f domain.Furniture) furnitureView {
	return furnitureView{Key: keyString(f.Key), Furniture: f}
}

func viewFurnitureList(items []domain.Furniture) []furnitureView {
	out := make([]furnitureView, len(items))
	for i, f := range items {
		out[i] = viewFurniture(f)
	}
	return out
}

// refsFromArgs collects the studentIds and furnitureKeys arrays.
func refsFromArgs(args map[string]any) ([]domain.EntityRef, error) {
	var refs []domain.EntityRef
	ids, _ := args["studentIds"].([]any)
	for _, v := range ids {
		id, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("%w: student id %v", domain.ErrInvalidInput, v)
		}
		refs = append(refs, domain.StudentRef(int64(id)))
	}
	keys, _ := args["furnitureKeys"].([]any)
	for _, v := range keys {
		str, _ := v.(string)
		key, err := parseKey(str)
		if err != nil {
			return nil, err
		}
		refs = append(refs, domain.FurnitureRef(key))
	}
	return refs, nil
}
