package kinds

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// Value is a boxed constant: a literal carried together with its static kind.
// Integer payloads are normalized to 64 bits at the declared width; arrays
// carry their element kind and boxed elements.
type Value struct {
	Kind Kind

	BoolValue  bool
	IntValue   int64
	UintValue  uint64
	FloatValue float64

	// Array payload.
	Elem  Kind
	Elems []Value
}

// Box converts a Go literal into a Value of the requested kind.
// The literal's runtime type must be compatible with the declared kind;
// out-of-range integers are rejected rather than truncated.
func Box(kind Kind, literal any) (Value, error) {
	switch kind {
	case KindBool:
		b, ok := literal.(bool)
		if !ok {
			return Value{}, fmt.Errorf("kinds: cannot box %T as %s", literal, kind)
		}
		return Value{Kind: kind, BoolValue: b}, nil

	case KindInt8, KindInt16, KindInt32, KindInt64:
		n, err := literalToInt64(literal)
		if err != nil {
			return Value{}, fmt.Errorf("kinds: cannot box %T as %s: %w", literal, kind, err)
		}
		if err := checkSignedWidth(n, kind); err != nil {
			return Value{}, err
		}
		return Value{Kind: kind, IntValue: n}, nil

	case KindUint8, KindUint16, KindUint32, KindUint64, KindWord:
		u, err := literalToUint64(literal)
		if err != nil {
			return Value{}, fmt.Errorf("kinds: cannot box %T as %s: %w", literal, kind, err)
		}
		if err := checkUnsignedWidth(u, kind); err != nil {
			return Value{}, err
		}
		return Value{Kind: kind, UintValue: u}, nil

	case KindFloat64:
		switch v := literal.(type) {
		case float64:
			return Value{Kind: kind, FloatValue: v}, nil
		case float32:
			return Value{Kind: kind, FloatValue: float64(v)}, nil
		}
		return Value{}, fmt.Errorf("kinds: cannot box %T as %s", literal, kind)

	case KindArray:
		return Value{}, fmt.Errorf("kinds: array values must be boxed with BoxArray")
	}
	return Value{}, fmt.Errorf("kinds: cannot box literal as %s", kind)
}

// BoxArray boxes a slice of literals into an array value with the given
// element kind. The element count becomes part of the value's shape.
func BoxArray(elem Kind, literals []any) (Value, error) {
	out := Value{Kind: KindArray, Elem: elem, Elems: make([]Value, len(literals))}
	for i, lit := range literals {
		v, err := Box(elem, lit)
		if err != nil {
			return Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		out.Elems[i] = v
	}
	return out, nil
}

// AsInt64 returns the integer payload widened to int64.
// Unsigned payloads that do not fit are reported as an error.
func (v Value) AsInt64() (int64, error) {
	switch {
	case v.Kind.IsSigned():
		return v.IntValue, nil
	case v.Kind.IsInteger():
		return safecast.Conv[int64](v.UintValue)
	}
	return 0, fmt.Errorf("kinds: %s value has no integer payload", v.Kind)
}

// Equal reports deep equality of two values including kind and array shape.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.BoolValue == o.BoolValue
	case KindFloat64:
		return v.FloatValue == o.FloatValue
	case KindArray:
		if v.Elem != o.Elem || len(v.Elems) != len(o.Elems) {
			return false
		}
		for i := range v.Elems {
			if !v.Elems[i].Equal(o.Elems[i]) {
				return false
			}
		}
		return true
	default:
		if v.Kind.IsSigned() {
			return v.IntValue == o.IntValue
		}
		return v.UintValue == o.UintValue
	}
}

// String renders the value for dumps and cache keys. The form is stable:
// equal values always render identically.
func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.BoolValue) + ":" + v.Kind.String()
	case KindFloat64:
		return strconv.FormatFloat(v.FloatValue, 'g', -1, 64) + ":" + v.Kind.String()
	case KindArray:
		var b strings.Builder
		b.WriteByte('[')
		for i := range v.Elems {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(v.Elems[i].String())
		}
		b.WriteByte(']')
		return b.String()
	case KindVoid, KindNone:
		return v.Kind.String()
	default:
		if v.Kind.IsSigned() {
			return strconv.FormatInt(v.IntValue, 10) + ":" + v.Kind.String()
		}
		return strconv.FormatUint(v.UintValue, 10) + ":" + v.Kind.String()
	}
}

func literalToInt64(literal any) (int64, error) {
	switch v := literal.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint64:
		return safecast.Conv[int64](v)
	case uint:
		return safecast.Conv[int64](v)
	}
	return 0, fmt.Errorf("not an integer literal")
}

func literalToUint64(literal any) (uint64, error) {
	switch v := literal.(type) {
	case uint:
		return uint64(v), nil
	case uint8:
		return uint64(v), nil
	case uint16:
		return uint64(v), nil
	case uint32:
		return uint64(v), nil
	case uint64:
		return v, nil
	case int:
		return safecast.Conv[uint64](v)
	case int64:
		return safecast.Conv[uint64](v)
	}
	return 0, fmt.Errorf("not an unsigned integer literal")
}

func checkSignedWidth(n int64, kind Kind) error {
	bits := kind.Bits()
	if bits == 64 {
		return nil
	}
	limit := int64(1) << (bits - 1)
	if n < -limit || n >= limit {
		return fmt.Errorf("kinds: value %d out of range for %s", n, kind)
	}
	return nil
}

func checkUnsignedWidth(u uint64, kind Kind) error {
	bits := kind.Bits()
	if bits == 64 {
		return nil
	}
	if u >= uint64(1)<<bits {
		return fmt.Errorf("kinds: value %d out of range for %s", u, kind)
	}
	return nil
}
