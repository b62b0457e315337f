// Package value implements a type-erased, cheaply shareable value cell.
//
// A [Value] may be empty, or hold a payload of any type together with a
// runtime type tag. Values are compared by the identity of their underlying
// storage, not by structural equality: two Values constructed from equal
// payloads are distinct unless one was copied from the other.
package value

import (
	"errors"
	"fmt"
	"reflect"
)

// TypeMismatch is returned by ExtractAs when the requested type does not
// match the Value's stored type tag.
type TypeMismatch struct {
	Want reflect.Type
	Got  reflect.Type
}

func (e *TypeMismatch) Error() string {
	want := typeName(e.Want)
	got := typeName(e.Got)
	return fmt.Sprintf("value: type mismatch: want %s, got %s", want, got)
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<empty>"
	}
	return t.String()
}

// cell is the shared, immutable storage backing a Value. Its address is the
// Value's identity: copying a Value copies the pointer, never the payload.
type cell struct {
	payload any
}

// Value is a type-erased carrier for any user value. The zero Value is
// empty, a valid first-class state distinct from holding any payload.
//
// Values are safe to share across goroutines once constructed: the payload
// is never mutated after Of returns.
type Value struct {
	typ reflect.Type
	c   *cell
}

// Empty returns the empty Value. It is equivalent to the zero Value.
func Empty() Value {
	return Value{}
}

// Of wraps v in a new Value, tagged with v's runtime type.
func Of[T any](v T) Value {
	return Value{
		typ: reflect.TypeOf(v),
		c:   &cell{payload: v},
	}
}

// IsEmpty reports whether v holds no payload.
func (v Value) IsEmpty() bool {
	return v.c == nil
}

// Type returns the stored type tag, or nil if v is empty.
func (v Value) Type() reflect.Type {
	return v.typ
}

// HasSameType reports whether v's type tag equals tag. An empty Value
// matches only the nil tag.
func (v Value) HasSameType(tag reflect.Type) bool {
	return v.typ == tag
}

// Equal reports whether v and other share the same underlying storage.
// This is identity equality, not structural equality: two Values wrapping
// equal payloads independently are not Equal.
func (v Value) Equal(other Value) bool {
	return v.c == other.c
}

// Clone produces a new Value whose storage does not alias v's. If the
// payload implements Cloner, the duplicate is produced by calling Clone on
// it; otherwise the payload is copied by assignment, matching Go's normal
// shallow-copy semantics for the underlying type (e.g. a cloned slice header
// still aliases the original backing array).
func (v Value) Clone() Value {
	if v.c == nil {
		return Value{}
	}
	payload := v.c.payload
	if cl, ok := payload.(Cloner); ok {
		payload = cl.Clone()
	}
	return Value{typ: v.typ, c: &cell{payload: payload}}
}

// Cloner may be implemented by payload types that need custom duplication
// semantics under Value.Clone.
type Cloner interface {
	Clone() any
}

// ErrEmptyValue is returned by ExtractAs when called on an empty Value.
var ErrEmptyValue = errors.New("value: empty value")

// ExtractAs returns v's payload as T, failing with a *TypeMismatch error if
// v's stored type tag does not match T, or ErrEmptyValue if v is empty.
//
// Go methods cannot carry their own type parameters, so this is a
// package-level function rather than a method on Value.
func ExtractAs[T any](v Value) (T, error) {
	var zero T
	if v.c == nil {
		return zero, ErrEmptyValue
	}
	want := reflect.TypeOf(zero)
	if v.typ != want {
		return zero, &TypeMismatch{Want: want, Got: v.typ}
	}
	return v.c.payload.(T), nil
}
