// Package typeoption implements the field type-option registry and the
// TypeOptionCellReader/TypeOptionCellWriter converters of spec.md §4.3.2:
// per-field-type rules for turning an opaque cell blob into a typed Go
// value and back, used by import/export and by the row entity's typed
// cell accessors.
package typeoption

import (
	"strconv"
	"strings"
	"time"
)

// Tag is a field's field_type discriminant, the stringified i64 key
// used both on Field.FieldType and as the key into Field.TypeOptions.
type Tag int64

const (
	RichText     Tag = 0
	Number       Tag = 1
	Select       Tag = 2 // covers both SingleSelect and MultiSelect
	DateTime     Tag = 3
	Checkbox     Tag = 4
	URL          Tag = 5
	Checklist    Tag = 6
	Timestamp    Tag = 7 // LastEditedTime / CreatedTime
	Media        Tag = 8
	Rollup       Tag = 16
	Relation     Tag = 17
)

// String names tag for logging/error messages.
func (t Tag) String() string {
	switch t {
	case RichText:
		return "RichText"
	case Number:
		return "Number"
	case Select:
		return "Select"
	case DateTime:
		return "DateTime"
	case Checkbox:
		return "Checkbox"
	case URL:
		return "URL"
	case Checklist:
		return "Checklist"
	case Timestamp:
		return "Timestamp"
	case Media:
		return "Media"
	case Rollup:
		return "Rollup"
	case Relation:
		return "Relation"
	default:
		return "Unknown"
	}
}

// SelectOption is one entry in a Select field's type_options.options.
type SelectOption struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// RollupCalculation names type_options.calculation_type for a Rollup
// field.
type RollupCalculation int64

// RollupShowAs names type_options.show_as for a Rollup field.
type RollupShowAs int64

const (
	Calculated  RollupShowAs = 0
	OriginalList RollupShowAs = 1
	UniqueList   RollupShowAs = 2
)

// ChecklistItem is one entry of a Checklist cell.
type ChecklistItem struct {
	Name    string `json:"name"`
	Checked bool   `json:"checked"`
}

// Reader converts a raw cell value (as decoded from JSON, so
// string/float64/bool/[]any/map[string]any/nil) into the typed Go value
// the field's type represents. It never returns an error: per spec.md
// §7, an unparsable input deterministically defaults (false, 0.0, or
// "") rather than failing the read.
type Reader func(options map[string]any, raw any) any

// Writer converts a typed Go value back into the raw cell shape stored
// in a row's cells map, for export/import round-tripping.
type Writer func(options map[string]any, value any) any

// CellReader returns the Reader for tag.
func CellReader(tag Tag) Reader {
	if r, ok := readers[tag]; ok {
		return r
	}
	return readRichText
}

// CellWriter returns the Writer for tag.
func CellWriter(tag Tag) Writer {
	if w, ok := writers[tag]; ok {
		return w
	}
	return writeRichText
}

var readers = map[Tag]Reader{
	RichText:  readRichText,
	Number:    readNumber,
	Select:    readSelect,
	DateTime:  readDateTime,
	Checkbox:  readCheckbox,
	URL:       readRichText,
	Checklist: readChecklist,
	Timestamp: readDateTime,
	Media:     readSelect,
	Rollup:    readRollup,
	Relation:  readSelect,
}

var writers = map[Tag]Writer{
	RichText:  writeRichText,
	Number:    writeNumber,
	Select:    writeSelect,
	DateTime:  writeDateTime,
	Checkbox:  writeCheckbox,
	URL:       writeRichText,
	Checklist: writeChecklist,
	Timestamp: writeDateTime,
	Media:     writeSelect,
	Rollup:    writeRichText,
	Relation:  writeSelect,
}

func readRichText(_ map[string]any, raw any) any {
	s, _ := raw.(string)
	return s
}

func writeRichText(_ map[string]any, value any) any {
	s, _ := value.(string)
	return s
}

func readNumber(_ map[string]any, raw any) any {
	switch v := raw.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0.0
		}
		return f
	default:
		return 0.0
	}
}

func writeNumber(_ map[string]any, value any) any {
	switch v := value.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return 0.0
	}
}

// readSelect normalizes a cell's selected option ids to a []string. A
// single string is treated as one selected id (SingleSelect); a []any
// is treated as multiple (MultiSelect); anything else defaults empty.
func readSelect(_ map[string]any, raw any) any {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return []string{}
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	default:
		return []string{}
	}
}

func writeSelect(_ map[string]any, value any) any {
	ids, _ := value.([]string)
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// readDateTime accepts a unix-seconds number or a string in one of
// dateLayouts, returning unix seconds. Unparsable input defaults to 0.
func readDateTime(_ map[string]any, raw any) any {
	switch v := raw.(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return int64(0)
		}
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return n
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, trimmed); err == nil {
				return t.Unix()
			}
		}
		return int64(0)
	default:
		return int64(0)
	}
}

func writeDateTime(options map[string]any, value any) any {
	var unix int64
	switch v := value.(type) {
	case int64:
		unix = v
	case float64:
		unix = int64(v)
	default:
		return ""
	}
	layout := time.RFC3339
	if format, ok := options["date_format"].(string); ok && format != "" {
		layout = format
	}
	return time.Unix(unix, 0).UTC().Format(layout)
}

// trueStrings are the case-insensitive string forms spec.md §4.3.2
// requires a Checkbox reader to accept, in addition to a literal bool.
var trueStrings = map[string]bool{"true": true, "yes": true, "1": true}

func readCheckbox(_ map[string]any, raw any) any {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		return trueStrings[strings.ToLower(strings.TrimSpace(v))]
	case float64:
		return v == 1
	default:
		return false
	}
}

func writeCheckbox(_ map[string]any, value any) any {
	b, _ := value.(bool)
	return b
}

func readChecklist(_ map[string]any, raw any) any {
	items, ok := raw.([]any)
	if !ok {
		return []ChecklistItem{}
	}
	out := make([]ChecklistItem, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		checked, _ := m["checked"].(bool)
		out = append(out, ChecklistItem{Name: name, Checked: checked})
	}
	return out
}

func writeChecklist(_ map[string]any, value any) any {
	items, _ := value.([]ChecklistItem)
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = map[string]any{"name": item.Name, "checked": item.Checked}
	}
	return out
}

// readRollup passes the raw aggregated value through: calculation over
// the target relation's cells is performed by the caller (the row/
// database layer, which has access to the related rows), not by the
// type-option converter itself — condition_value and calculation_type
// only tell the caller how to aggregate, they carry no convertible cell
// shape of their own.
func readRollup(_ map[string]any, raw any) any { return raw }
