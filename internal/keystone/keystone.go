package keystone

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Record is a projection of a single list item. Which keys are present
// depends on the field selection used for the query.
type Record map[string]any

// ErrDuplicate is returned by CreateOne when a unique field constraint is
// violated, e.g. two records claiming the same external identity.
var ErrDuplicate = errors.New("keystone: duplicate value for unique field")

// ListAPI is the data-access capability the auth core operates through.
// The CMS owns the records; the core only ever reads or creates them.
// FindOne returns nil (not an error) when no record matches.
type ListAPI interface {
	FindOne(ctx context.Context, where map[string]any, query string) (Record, error)
	FindMany(ctx context.Context, where map[string]any, query string) ([]Record, error)
	CreateOne(ctx context.Context, data map[string]any) (Record, error)
}

// SelectionFields parses a field-selection string ("id name email") into
// field names. An empty selection means the identifier alone.
func SelectionFields(query string) []string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return []string{"id"}
	}
	return fields
}

func project(r Record, query string) Record {
	out := Record{}
	for _, f := range SelectionFields(query) {
		if v, ok := r[f]; ok {
			out[f] = v
		}
	}
	return out
}

// TableName derives the backing table name for a list key, e.g. "User"
// becomes "users".
func TableName(listKey string) string {
	return strings.ToLower(listKey) + "s"
}

// StringID coerces a record id to its canonical string form so downstream
// comparisons are stable across string, integer and JSON-decoded ids.
func StringID(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
