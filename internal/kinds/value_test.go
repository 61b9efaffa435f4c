package kinds

import (
	"strings"
	"testing"
)

func TestBoxWidths(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		literal any
		wantErr bool
	}{
		{name: "int8 in range", kind: KindInt8, literal: 127},
		{name: "int8 above range", kind: KindInt8, literal: 128, wantErr: true},
		{name: "int8 below range", kind: KindInt8, literal: -129, wantErr: true},
		{name: "int64 from int", kind: KindInt64, literal: 42},
		{name: "uint8 in range", kind: KindUint8, literal: uint(255)},
		{name: "uint8 above range", kind: KindUint8, literal: uint(256), wantErr: true},
		{name: "word from uint64", kind: KindWord, literal: ^uint64(0)},
		{name: "bool", kind: KindBool, literal: true},
		{name: "bool from int", kind: KindBool, literal: 1, wantErr: true},
		{name: "float64", kind: KindFloat64, literal: 1.5},
		{name: "string rejected", kind: KindInt64, literal: "42", wantErr: true},
		{name: "negative as unsigned", kind: KindUint64, literal: -1, wantErr: true},
		{name: "array needs BoxArray", kind: KindArray, literal: 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Box(tt.kind, tt.literal)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Box(%s, %v) accepted, want error", tt.kind, tt.literal)
				}
				return
			}
			if err != nil {
				t.Fatalf("Box(%s, %v): %v", tt.kind, tt.literal, err)
			}
			if v.Kind != tt.kind {
				t.Fatalf("boxed kind = %s, want %s", v.Kind, tt.kind)
			}
		})
	}
}

func TestBoxArrayShape(t *testing.T) {
	v, err := BoxArray(KindInt64, []any{1, 2, 3})
	if err != nil {
		t.Fatalf("BoxArray: %v", err)
	}
	if v.Kind != KindArray || v.Elem != KindInt64 || len(v.Elems) != 3 {
		t.Fatalf("shape = %s/%s/%d, want array/int64/3", v.Kind, v.Elem, len(v.Elems))
	}
	if v.Elems[1].IntValue != 2 {
		t.Fatalf("element 1 = %d, want 2", v.Elems[1].IntValue)
	}

	if _, err := BoxArray(KindInt8, []any{1, 1000}); err == nil {
		t.Fatalf("out-of-range element accepted")
	} else if !strings.Contains(err.Error(), "element 1") {
		t.Fatalf("error does not name the bad element: %v", err)
	}
	if _, err := BoxArray(KindInt64, []any{nil}); err == nil {
		t.Fatalf("nil element accepted")
	}
}

func TestValueEqual(t *testing.T) {
	box := func(kind Kind, lit any) Value {
		v, err := Box(kind, lit)
		if err != nil {
			t.Fatalf("Box: %v", err)
		}
		return v
	}
	arr := func(elems ...any) Value {
		v, err := BoxArray(KindInt64, elems)
		if err != nil {
			t.Fatalf("BoxArray: %v", err)
		}
		return v
	}

	if !box(KindInt64, 7).Equal(box(KindInt64, 7)) {
		t.Fatalf("equal ints reported unequal")
	}
	if box(KindInt64, 7).Equal(box(KindInt32, 7)) {
		t.Fatalf("kind ignored in equality")
	}
	if box(KindInt64, 7).Equal(box(KindInt64, 8)) {
		t.Fatalf("payload ignored in equality")
	}
	if !arr(1, 2).Equal(arr(1, 2)) {
		t.Fatalf("equal arrays reported unequal")
	}
	if arr(1, 2).Equal(arr(1, 2, 3)) {
		t.Fatalf("array length ignored in equality")
	}
	if arr(1, 2).Equal(arr(1, 3)) {
		t.Fatalf("array elements ignored in equality")
	}
}

func TestValueStringIsCanonical(t *testing.T) {
	tests := []struct {
		kind    Kind
		literal any
		want    string
	}{
		{KindInt64, 42, "42:int64"},
		{KindInt64, -1, "-1:int64"},
		{KindUint32, uint(9), "9:uint32"},
		{KindBool, true, "true:bool"},
		{KindFloat64, 1.5, "1.5:float64"},
	}
	for _, tt := range tests {
		v, err := Box(tt.kind, tt.literal)
		if err != nil {
			t.Fatalf("Box(%s, %v): %v", tt.kind, tt.literal, err)
		}
		if got := v.String(); got != tt.want {
			t.Fatalf("String() = %q, want %q", got, tt.want)
		}
	}

	arr, err := BoxArray(KindInt64, []any{1, 2})
	if err != nil {
		t.Fatalf("BoxArray: %v", err)
	}
	if got, want := arr.String(), "[1:int64,2:int64]"; got != want {
		t.Fatalf("array String() = %q, want %q", got, want)
	}
}

func TestAsInt64(t *testing.T) {
	v, err := Box(KindInt32, -5)
	if err != nil {
		t.Fatalf("Box: %v", err)
	}
	n, err := v.AsInt64()
	if err != nil || n != -5 {
		t.Fatalf("AsInt64 = %d, %v; want -5", n, err)
	}

	big, err := Box(KindUint64, ^uint64(0))
	if err != nil {
		t.Fatalf("Box: %v", err)
	}
	if _, err := big.AsInt64(); err == nil {
		t.Fatalf("uint64 overflow widened silently")
	}

	b, err := Box(KindBool, true)
	if err != nil {
		t.Fatalf("Box: %v", err)
	}
	if _, err := b.AsInt64(); err == nil {
		t.Fatalf("bool produced an integer payload")
	}
}
