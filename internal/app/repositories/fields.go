package repositories

import "time"

// Field access helpers. Documents round-trip through JSON in the Postgres
// store, so numbers may come back as float64; the memory store keeps native
// types. Both shapes are accepted here.

func stringField(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func boolField(fields map[string]interface{}, key string) bool {
	if v, ok := fields[key].(bool); ok {
		return v
	}
	return false
}

func intField(fields map[string]interface{}, key string) int {
	switch v := fields[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func timeField(fields map[string]interface{}, key string) *time.Time {
	switch v := fields[key].(type) {
	case time.Time:
		return &v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil
		}
		return &t
	}
	return nil
}

func mapField(fields map[string]interface{}, key string) map[string]interface{} {
	if v, ok := fields[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func encodeTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}
