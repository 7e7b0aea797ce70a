package repository

import (
	"fmt"
	"time"
)

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(s)
	}
}

func boolValue(v any) bool {
	b, _ := v.(bool)
	return b
}

func timeValue(v any) time.Time {
	t, _ := v.(time.Time)
	return t
}

func timePtr(v any) *time.Time {
	t, ok := v.(time.Time)
	if !ok || t.IsZero() {
		return nil
	}
	return &t
}
