// Package typeid provides opaque, comparable identifiers for Go types.
//
// An ID is the key the container and the event multicaster use to index
// beans and listeners by type. IDs are never built by hand; they come from
// the Go type system through Of or OfValue:
//
//	id := typeid.Of[*UserRepository]()
//	id == typeid.OfValue(&UserRepository{}) // true
package typeid

import (
	"cmp"
	"reflect"
)

// ID identifies one concrete (or interface) type within a process.
// Two IDs are equal iff they denote the same type. The zero ID denotes no type.
type ID struct {
	t reflect.Type
}

// Of returns the ID of T. Interface types are supported:
//
//	typeid.Of[io.Reader]()
func Of[T any]() ID {
	return ID{t: reflect.TypeFor[T]()}
}

// OfValue returns the dynamic type of v, or the zero ID for a nil interface.
func OfValue(v any) ID {
	if v == nil {
		return ID{}
	}
	return ID{t: reflect.TypeOf(v)}
}

// FromType wraps a reflect.Type.
func FromType(t reflect.Type) ID {
	return ID{t: t}
}

// Type returns the underlying reflect.Type (nil for the zero ID).
func (id ID) Type() reflect.Type { return id.t }

// IsZero reports whether id denotes no type.
func (id ID) IsZero() bool { return id.t == nil }

// String returns the package-qualified type name, e.g. "*app.GreetingService".
func (id ID) String() string {
	if id.t == nil {
		return "<nil>"
	}
	return id.t.String()
}

// key is the ordering key: the package path disambiguates equal short names
// declared in different packages.
func (id ID) key() (string, string) {
	if id.t == nil {
		return "", ""
	}
	t := id.t
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	return t.PkgPath(), id.t.String()
}

// Compare orders IDs by package path, then type string. Distinct types that
// print identically (e.g. two anonymous structs) are ordered arbitrarily but
// never reported equal.
func (id ID) Compare(other ID) int {
	ap, as := id.key()
	bp, bs := other.key()
	if c := cmp.Compare(ap, bp); c != 0 {
		return c
	}
	if c := cmp.Compare(as, bs); c != 0 {
		return c
	}
	if id == other {
		return 0
	}
	// Same printed name, different types. Fall back to a stable order
	// within the run so Compare stays total.
	return cmp.Compare(reflect.ValueOf(id.t).Pointer(), reflect.ValueOf(other.t).Pointer())
}

// AssignableFrom reports whether v can be stored in a variable of type id.
// A nil value is never assignable.
func (id ID) AssignableFrom(v any) bool {
	if id.t == nil || v == nil {
		return false
	}
	return reflect.TypeOf(v).AssignableTo(id.t)
}
