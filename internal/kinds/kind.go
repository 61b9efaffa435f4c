package kinds

// Kind identifies the static kind of a snippet value.
type Kind uint8

const (
	// KindNone marks an absent or unresolved kind.
	KindNone Kind = iota
	// KindBool represents a boolean value.
	KindBool
	// KindInt8 represents a signed 8-bit integer.
	KindInt8
	// KindInt16 represents a signed 16-bit integer.
	KindInt16
	// KindInt32 represents a signed 32-bit integer.
	KindInt32
	// KindInt64 represents a signed 64-bit integer.
	KindInt64
	// KindUint8 represents an unsigned 8-bit integer.
	KindUint8
	// KindUint16 represents an unsigned 16-bit integer.
	KindUint16
	// KindUint32 represents an unsigned 32-bit integer.
	KindUint32
	// KindUint64 represents an unsigned 64-bit integer.
	KindUint64
	// KindFloat64 represents a 64-bit float.
	KindFloat64
	// KindWord represents a machine-word sized raw value.
	KindWord
	// KindArray represents an array of element values.
	KindArray
	// KindVoid represents the absence of a produced value.
	KindVoid
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	case KindUint32:
		return "uint32"
	case KindUint64:
		return "uint64"
	case KindFloat64:
		return "float64"
	case KindWord:
		return "word"
	case KindArray:
		return "array"
	case KindVoid:
		return "void"
	}
	return "unknown"
}

// IsInteger reports whether the kind is a fixed-width integer (signed or not).
func (k Kind) IsInteger() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64,
		KindUint8, KindUint16, KindUint32, KindUint64, KindWord:
		return true
	}
	return false
}

// IsSigned reports whether the kind is a signed integer.
func (k Kind) IsSigned() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return true
	}
	return false
}

// Bits returns the width of an integer kind in bits, or 0 for non-integers.
func (k Kind) Bits() int {
	switch k {
	case KindInt8, KindUint8:
		return 8
	case KindInt16, KindUint16:
		return 16
	case KindInt32, KindUint32:
		return 32
	case KindInt64, KindUint64, KindWord:
		return 64
	}
	return 0
}
