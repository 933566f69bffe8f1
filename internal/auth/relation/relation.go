package relation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// LinkStage tracks how far an external identity has progressed toward a
// confirmed link with the internal record.
type LinkStage string

const (
	StageUnlinked LinkStage = "UNLINKED"
	StageApproved LinkStage = "APPROVED"
	StageLinked   LinkStage = "LINKED"
)

// RelatedIdentity is one entry in a record's linked-identities field.
// The whole list is serialized as a JSON array into a single string field
// of the record. Array order is display order only.
type RelatedIdentity struct {
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	SubjectID          string    `json:"subjectId"`
	ID                 string    `json:"id"`
	AuthProvider       string    `json:"authProvider"`
	ProviderConnection string    `json:"providerConnection"`
	LinkStage          LinkStage `json:"linkStage"`
}

// ErrNotFound is returned when an edit addresses an id no entry carries.
var ErrNotFound = errors.New("relation: no entry with that id")

// Parse decodes the stored field value. Empty input is an empty list.
func Parse(raw string) ([]RelatedIdentity, error) {
	if raw == "" {
		return []RelatedIdentity{}, nil
	}
	var list []RelatedIdentity
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("relation: parse field value: %w", err)
	}
	if list == nil {
		list = []RelatedIdentity{}
	}
	return list, nil
}

// Encode serializes the list for storage. A nil list encodes as [].
func Encode(list []RelatedIdentity) (string, error) {
	if list == nil {
		list = []RelatedIdentity{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("relation: encode field value: %w", err)
	}
	return string(raw), nil
}

// Add appends an entry, assigning a fresh id when the entry has none.
// Ids must be unique within the list; edits address entries by id, not by
// list position, so a collision would make them unsafe.
func Add(list []RelatedIdentity, entry RelatedIdentity) ([]RelatedIdentity, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if indexOf(list, entry.ID) >= 0 {
		return nil, fmt.Errorf("relation: duplicate entry id %q", entry.ID)
	}
	out := append([]RelatedIdentity{}, list...)
	return append(out, entry), nil
}

// Update replaces the entry carrying the same id, keeping its position.
func Update(list []RelatedIdentity, entry RelatedIdentity) ([]RelatedIdentity, error) {
	i := indexOf(list, entry.ID)
	if i < 0 {
		return nil, ErrNotFound
	}
	out := append([]RelatedIdentity{}, list...)
	out[i] = entry
	return out, nil
}

// Remove deletes the entry with the given id.
func Remove(list []RelatedIdentity, id string) ([]RelatedIdentity, error) {
	i := indexOf(list, id)
	if i < 0 {
		return nil, ErrNotFound
	}
	out := append([]RelatedIdentity{}, list[:i]...)
	return append(out, list[i+1:]...), nil
}

func indexOf(list []RelatedIdentity, id string) int {
	for i, entry := range list {
		if entry.ID == id {
			return i
		}
	}
	return -1
}
