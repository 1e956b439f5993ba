package dictionary

import (
	"fmt"

	"github.com/ginjaninja78/naaccr-flat-xml/internal/naaccrxml"
)

// =============================================================================
// RUNTIME DICTIONARY RESOLUTION
// =============================================================================

// Resolve builds the runtime dictionary of a conversion job: the base
// dictionary selected by (version, recordType) with the user dictionaries
// merged on top, in the order given.
//
// RETURNS:
//   - The merged dictionary.
//   - UnsupportedVersion / UnsupportedRecordType if the pair is not supported.
//   - ColumnKeyCollision if a user field would share a flat column key with a
//     different field.
func Resolve(version, recordType string, users ...*UserDictionary) (*Dictionary, error) {
	base, err := LoadBase(version, recordType)
	if err != nil {
		return nil, err
	}
	return Merge(base, users...)
}

// Merge applies user dictionaries on top of base and returns a new
// dictionary; base is not modified.
//
// MERGE RULES:
//   - A row whose id already exists overrides the attributes it provides
//     (non-blank cells) and keeps its declaration position. When several
//     user dictionaries touch the same field the LAST one applied wins.
//   - A row with a new id is appended after every existing field. It must
//     provide a positive length and a parent element.
//   - A new id whose truncated column key is already owned by a different
//     field is rejected with ColumnKeyCollision.
func Merge(base *Dictionary, users ...*UserDictionary) (*Dictionary, error) {
	merged := base.clone()

	for _, user := range users {
		if user == nil {
			continue
		}
		for _, row := range user.Rows {
			if i, exists := merged.byID[row.ID]; exists {
				field, err := override(merged.fields[i], row)
				if err != nil {
					return nil, fmt.Errorf("%s row %d: %w", describe(user), row.Line, err)
				}
				merged.fields[i] = field
				continue
			}

			key := TruncateID(row.ID)
			if other, taken := merged.FieldByTruncatedID(key); taken {
				return nil, naaccrxml.NewError(naaccrxml.KindColumnKeyCollision,
					"field %q from %s collides with field %q on column key %q",
					row.ID, describe(user), other.ID, key)
			}
			if row.Length <= 0 {
				return nil, fmt.Errorf("%s row %d: new field %s requires a positive length", describe(user), row.Line, row.ID)
			}
			parent, err := ParseParentLevel(row.Parent)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: new field %s: %w", describe(user), row.Line, row.ID, err)
			}
			merged.add(FieldDescriptor{
				ID:          row.ID,
				TruncatedID: key,
				Number:      row.Number,
				Length:      row.Length,
				Parent:      parent,
			})
		}
		if user.URI != "" {
			merged.UserURIs = append(merged.UserURIs, user.URI)
		}
	}

	return merged, nil
}

func override(field FieldDescriptor, row Row) (FieldDescriptor, error) {
	if row.Number > 0 {
		field.Number = row.Number
	}
	if row.Length > 0 {
		field.Length = row.Length
	}
	if row.Parent != "" {
		parent, err := ParseParentLevel(row.Parent)
		if err != nil {
			return field, err
		}
		field.Parent = parent
	}
	return field, nil
}

func describe(user *UserDictionary) string {
	switch {
	case user.URI != "":
		return "user dictionary " + user.URI
	case user.Source != "":
		return "user dictionary " + user.Source
	default:
		return "user dictionary"
	}
}

func (d *Dictionary) clone() *Dictionary {
	out := newDictionary()
	out.BaseURI = d.BaseURI
	out.Version = d.Version
	out.RecordType = d.RecordType
	out.UserURIs = append([]string(nil), d.UserURIs...)
	for _, f := range d.fields {
		out.add(f)
	}
	return out
}
