package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

func storeNotFound(resource, id string) *schema.Error {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := schema.AsError(err); ok {
		return err
	}
	return schema.NewErrorf(schema.ErrCodeStore, "%s: %s", op, err.Error()).WithCause(err)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt64(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}

// marshalMap encodes m as a JSON object; nil encodes as "{}".
func marshalMap(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// marshalNullableMap encodes m as JSON, or nil for a nil map.
func marshalNullableMap(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func marshalTrace(t []schema.TraceEntry) (string, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalMap(raw []byte) (map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func unmarshalTrace(raw []byte) ([]schema.TraceEntry, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []schema.TraceEntry{}, nil
	}
	var t []schema.TraceEntry
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	return t, nil
}

// finalizeFailed reports a finalize error with the execution id attached.
func finalizeFailed(id string, err error) error {
	return storeErr(fmt.Sprintf("finalize execution %s", id), err)
}
