// Package machine implements the runtime: the Value model, the
// Environment, and the bytecode interpreter (VM) that executes programs
// produced by lang/compiler.
package machine

import (
	"fmt"
	"math"
	"reflect"
)

// clipAddr and nativeAddr extract a stable pointer-identity value for
// hashing, matching Equals' use of reference identity for these two kinds.
func clipAddr(c *Clip) uint64 { return uint64(reflect.ValueOf(c).Pointer()) }

func nativeAddr(n RustClip) uint64 {
	if n == nil {
		return 0
	}
	rv := reflect.ValueOf(n)
	if rv.Kind() == reflect.Ptr {
		return uint64(rv.Pointer())
	}
	return 0
}

// Kind identifies which variant a Value holds. Values are a closed tagged
// union, not an interface hierarchy: dynamic dispatch only happens at the
// RustClip native boundary (see rustclip.go).
type Kind uint8

const (
	KindNil Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindTuple
	KindClip
	KindRustClip
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindTuple:
		return "tuple"
	case KindClip:
		return "clip"
	case KindRustClip:
		return "native"
	}
	return "unknown"
}

// Value is every runtime value in the language: a tagged union rather than
// an interface, per the data model's mandate that dynamic dispatch is
// reserved for the RustClip native boundary. Only the field matching Kind
// is meaningful.
type Value struct {
	Kind Kind

	Int    int64
	Float  float64
	Bool   bool
	Str    string
	Tuple  []Value
	Clip   *Clip
	Native RustClip
}

var Nil = Value{Kind: KindNil}

func Int(i int64) Value        { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value    { return Value{Kind: KindFloat, Float: f} }
func Bool(b bool) Value        { return Value{Kind: KindBool, Bool: b} }
func String(s string) Value    { return Value{Kind: KindString, Str: s} }
func Tuple(items []Value) Value { return Value{Kind: KindTuple, Tuple: items} }
func FromClip(c *Clip) Value    { return Value{Kind: KindClip, Clip: c} }
func FromNative(n RustClip) Value { return Value{Kind: KindRustClip, Native: n} }

// Truthy reports whether v counts as true for `if`/`while`/`!`. Only Bool
// itself participates in truthiness; every other kind is a type error at
// the call site (enforced by the VM, not here).
func (v Value) Truthy() bool { return v.Kind == KindBool && v.Bool }

func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return formatFloat(v.Float)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindString:
		return v.Str
	case KindTuple:
		s := "("
		for i, it := range v.Tuple {
			if i > 0 {
				s += ", "
			}
			s += it.String()
		}
		return s + ")"
	case KindClip:
		return fmt.Sprintf("clip(%p)", v.Clip)
	case KindRustClip:
		return fmt.Sprintf("native(%p)", v.Native)
	}
	return "?"
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return "nan"
	}
	return fmt.Sprintf("%g", f)
}

// canonicalFloatBits canonicalizes NaN to a single bit pattern before
// reinterpreting as an integer, so that every NaN compares and hashes equal
// to every other NaN (the original's FloatWrap behavior, ported from
// mem::transmute::<f64,u64> to math.Float64bits).
func canonicalFloatBits(f float64) uint64 {
	if math.IsNaN(f) {
		return math.Float64bits(math.NaN())
	}
	return math.Float64bits(f)
}

// Equals implements the data model's equality rules: structural equality
// for scalars/tuples/strings, NaN-canonicalized bit equality for floats,
// and reference (pointer) identity for Clip and RustClip.
func (v Value) Equals(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNil:
		return true
	case KindInt:
		return v.Int == o.Int
	case KindFloat:
		return canonicalFloatBits(v.Float) == canonicalFloatBits(o.Float)
	case KindBool:
		return v.Bool == o.Bool
	case KindString:
		return v.Str == o.Str
	case KindTuple:
		if len(v.Tuple) != len(o.Tuple) {
			return false
		}
		for i := range v.Tuple {
			if !v.Tuple[i].Equals(o.Tuple[i]) {
				return false
			}
		}
		return true
	case KindClip:
		return v.Clip == o.Clip
	case KindRustClip:
		return v.Native == o.Native
	}
	return false
}

// Hash returns a hash code consistent with Equals: values considered equal
// always hash equal. Used as the key function for clip.defs (see
// defmap.go), which cannot use Value directly as a Go map key because
// Tuple's slice field makes Value non-comparable.
func (v Value) Hash() uint64 {
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)
	h := uint64(offset)
	mix := func(x uint64) {
		h ^= x
		h *= prime
	}
	mix(uint64(v.Kind))
	switch v.Kind {
	case KindNil:
	case KindInt:
		mix(uint64(v.Int))
	case KindFloat:
		mix(canonicalFloatBits(v.Float))
	case KindBool:
		if v.Bool {
			mix(1)
		}
	case KindString:
		for i := 0; i < len(v.Str); i++ {
			mix(uint64(v.Str[i]))
		}
	case KindTuple:
		for _, it := range v.Tuple {
			mix(it.Hash())
		}
	case KindClip:
		mix(clipAddr(v.Clip))
	case KindRustClip:
		mix(nativeAddr(v.Native))
	}
	return h
}
