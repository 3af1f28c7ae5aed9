// Package typed holds the shared reader/builder/updater helpers every
// typed entity projection (document, field, view, row, reminder) is
// built from: thin wrappers over a crdt.CRDTMap/crdt.WriteTxn pair that
// give each entity's generated-looking accessors (impl_str_update,
// impl_bool_update, impl_i64_update) a single implementation instead of
// one copy per entity.
package typed

import "github.com/foldkeep/collabd/internal/crdt"

// Str reads key from m as a string, defaulting to "" if absent or of a
// different kind.
func Str(m *crdt.CRDTMap, key string) string {
	v, ok := m.Get(key)
	if !ok || v.Kind != crdt.KindString {
		return ""
	}
	return v.Str
}

// StrOk reads key from m as a string and reports whether it was present.
func StrOk(m *crdt.CRDTMap, key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok || v.Kind != crdt.KindString {
		return "", false
	}
	return v.Str, true
}

// Bool reads key from m as a bool, defaulting to false.
func Bool(m *crdt.CRDTMap, key string) bool {
	v, ok := m.Get(key)
	if !ok || v.Kind != crdt.KindBool {
		return false
	}
	return v.Bool
}

// I64 reads key from m as an int64, defaulting to 0.
func I64(m *crdt.CRDTMap, key string) int64 {
	v, ok := m.Get(key)
	if !ok || v.Kind != crdt.KindInt64 {
		return 0
	}
	return v.Int
}

// Any reads key from m as the permissive "any" JSON value, defaulting to
// nil.
func Any(m *crdt.CRDTMap, key string) any {
	v, ok := m.Get(key)
	if !ok {
		return nil
	}
	return v.Interface()
}

// SetStr implements impl_str_update's unconditional setter: write value
// unconditionally at key in the named map root.
func SetStr(tx *crdt.WriteTxn, root, key, value string) error {
	return tx.SetMapKey(root, key, crdt.StringValue(value))
}

// SetStrIfNotEmpty implements impl_str_update's set_X_if_not_none: only
// write when value is non-empty, matching the original's Option<String>
// "if not none" contract for callers that model "unset" as "".
func SetStrIfNotEmpty(tx *crdt.WriteTxn, root, key, value string) error {
	if value == "" {
		return nil
	}
	return SetStr(tx, root, key, value)
}

// SetBool implements impl_bool_update's unconditional setter.
func SetBool(tx *crdt.WriteTxn, root, key string, value bool) error {
	return tx.SetMapKey(root, key, crdt.BoolValue(value))
}

// SetI64 implements impl_i64_update's unconditional setter.
func SetI64(tx *crdt.WriteTxn, root, key string, value int64) error {
	return tx.SetMapKey(root, key, crdt.IntValue(value))
}

// SetI64IfNotNone only writes when ok is true, matching set_X_if_not_none
// for a caller holding an (int64, bool) pair rather than a pointer.
func SetI64IfNotNone(tx *crdt.WriteTxn, root, key string, value int64, ok bool) error {
	if !ok {
		return nil
	}
	return SetI64(tx, root, key, value)
}

// SetAny implements impl_array_update's JSON-blob setter for fields that
// are round-trip-preserving byte bags (filters, sorts, type option
// payloads) rather than CRDT-native structures.
func SetAny(tx *crdt.WriteTxn, root, key string, value any) error {
	return tx.SetMapKey(root, key, crdt.AnyValue(value))
}

// Delete tombstones key in the named map root.
func Delete(tx *crdt.WriteTxn, root, key string) error {
	return tx.DeleteMapKey(root, key)
}
