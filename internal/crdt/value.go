package crdt

import "fmt"

// ValueKind tags the concrete type held by a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindString
	KindInt64
	KindBool
	KindFloat64
	KindMap
	KindArray
	KindAny
)

// Value is the tagged union stored in a single map register or array slot.
// Map and Array hold nested CRDT sub-structures (accessed through the
// owning Doc); Any carries an arbitrary JSON-marshalable payload for
// callers that need structured data with no CRDT merge semantics of its
// own, matching the original's permissive "any" cell value.
type Value struct {
	Kind ValueKind

	Str   string
	Int   int64
	Bool  bool
	Float float64
	Map   *CRDTMap
	Array *CRDTArray
	Any   any
}

func NullValue() Value             { return Value{Kind: KindNull} }
func StringValue(s string) Value   { return Value{Kind: KindString, Str: s} }
func IntValue(v int64) Value       { return Value{Kind: KindInt64, Int: v} }
func BoolValue(v bool) Value       { return Value{Kind: KindBool, Bool: v} }
func FloatValue(v float64) Value   { return Value{Kind: KindFloat64, Float: v} }
func MapValue(m *CRDTMap) Value    { return Value{Kind: KindMap, Map: m} }
func ArrayValue(a *CRDTArray) Value { return Value{Kind: KindArray, Array: a} }
func AnyValue(v any) Value         { return Value{Kind: KindAny, Any: v} }

// IsNull reports whether the value is the null/unset sentinel.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Interface unwraps v into a plain Go value suitable for JSON encoding or
// for handing to a type-option reader.
func (v Value) Interface() any {
	switch v.Kind {
	case KindNull:
		return nil
	case KindString:
		return v.Str
	case KindInt64:
		return v.Int
	case KindBool:
		return v.Bool
	case KindFloat64:
		return v.Float
	case KindMap:
		return v.Map
	case KindArray:
		return v.Array
	case KindAny:
		return v.Any
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "<null>"
	case KindString:
		return v.Str
	case KindInt64:
		return fmt.Sprintf("%d", v.Int)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindFloat64:
		return fmt.Sprintf("%g", v.Float)
	case KindMap:
		return "<map>"
	case KindArray:
		return "<array>"
	default:
		return "<any>"
	}
}
