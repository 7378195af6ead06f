package marker

import (
	"fmt"
	"path"
	"reflect"
	"strconv"
)

// Element identifies a program element that can carry markers. Elements
// are comparable and may be used as map keys. Pointer owners are
// normalised to their element type, so MethodOf[*T] and MethodOf[T] name
// the same method.
type Element struct {
	owner  reflect.Type
	kind   Kind
	name   string
	index  int
	marker *Marker
}

// TypeOf returns the element for type T.
func TypeOf[T any]() Element {
	return Type(reflect.TypeFor[T]())
}

// MethodOf returns the element for the named method of T.
func MethodOf[T any](name string) Element {
	return Method(reflect.TypeFor[T](), name)
}

// FieldOf returns the element for the named field of struct type T.
func FieldOf[T any](name string) Element {
	return Field(reflect.TypeFor[T](), name)
}

// ParameterOf returns the element for the index'th parameter (receiver
// excluded) of the named method of T.
func ParameterOf[T any](method string, index int) Element {
	return Parameter(reflect.TypeFor[T](), method, index)
}

// Type returns the element for t.
func Type(t reflect.Type) Element {
	return Element{owner: base(t), kind: KindType}
}

// Method returns the element for the named method of t.
func Method(t reflect.Type, name string) Element {
	return Element{owner: base(t), kind: KindMethod, name: name}
}

// Field returns the element for the named field of t.
func Field(t reflect.Type, name string) Element {
	return Element{owner: base(t), kind: KindField, name: name}
}

// Parameter returns the element for a method parameter of t.
func Parameter(t reflect.Type, method string, index int) Element {
	return Element{owner: base(t), kind: KindParameter, name: method, index: index}
}

// MarkerElement returns the element for m's own declaration. Meta-markers
// are attached to it.
func MarkerElement(m *Marker) Element {
	return Element{kind: KindMarker, marker: m}
}

func base(t reflect.Type) reflect.Type {
	if t != nil && t.Kind() == reflect.Pointer && t.Name() == "" {
		return t.Elem()
	}
	return t
}

// Kind returns the element's kind.
func (e Element) Kind() Kind { return e.kind }

// Owner returns the type that declares the element. For type elements it
// is the type itself; for marker elements it is nil.
func (e Element) Owner() reflect.Type { return e.owner }

// Name returns the member name: the method or field name, or the method
// name for a parameter. It is empty for type and marker elements.
func (e Element) Name() string { return e.name }

// Index returns the parameter index for parameter elements.
func (e Element) Index() int { return e.index }

// Marker returns the declaration a marker element refers to.
func (e Element) Marker() *Marker { return e.marker }

// OwnerType returns the type element of e's owner. ok is false for type
// and marker elements.
func (e Element) OwnerType() (Element, bool) {
	switch e.kind {
	case KindMethod, KindField, KindParameter:
		return Element{owner: e.owner, kind: KindType}, true
	default:
		return Element{}, false
	}
}

// ID returns a stable, human-readable identifier such as
// "exchange.Nodes.UpdateResource" or "exchange.Nodes.UpdateResource#1".
func (e Element) ID() string {
	switch e.kind {
	case KindType:
		return typeID(e.owner)
	case KindMethod, KindField:
		return typeID(e.owner) + "." + e.name
	case KindParameter:
		return typeID(e.owner) + "." + e.name + "#" + strconv.Itoa(e.index)
	case KindMarker:
		if e.marker == nil {
			return "@?"
		}
		return e.marker.String()
	default:
		return "<invalid>"
	}
}

func (e Element) String() string {
	return e.kind.String() + " " + e.ID()
}

func typeID(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return path.Base(t.PkgPath()) + "." + t.Name()
}

// resolve checks that the element exists on its owner.
func (e Element) resolve() error {
	switch e.kind {
	case KindType:
		if e.owner == nil {
			return ErrUnknownElement
		}
		return nil
	case KindMethod:
		if _, ok := methodOf(e.owner, e.name); !ok {
			return fmt.Errorf("%w: no method %s", ErrUnknownElement, e.name)
		}
		return nil
	case KindField:
		if e.owner == nil || e.owner.Kind() != reflect.Struct {
			return fmt.Errorf("%w: %s is not a struct", ErrUnknownElement, typeID(e.owner))
		}
		if _, ok := e.owner.FieldByName(e.name); !ok {
			return fmt.Errorf("%w: no field %s", ErrUnknownElement, e.name)
		}
		return nil
	case KindParameter:
		m, ok := methodOf(e.owner, e.name)
		if !ok {
			return fmt.Errorf("%w: no method %s", ErrUnknownElement, e.name)
		}
		n := m.Type.NumIn()
		if e.owner.Kind() != reflect.Interface {
			n-- // receiver
		}
		if e.index < 0 || e.index >= n {
			return fmt.Errorf("%w: %s has %d parameters, index %d", ErrUnknownElement, e.name, n, e.index)
		}
		return nil
	case KindMarker:
		if e.marker == nil {
			return ErrUnknownElement
		}
		return nil
	default:
		return ErrUnknownElement
	}
}

// methodOf looks the method up in the pointer method set, which includes
// value-receiver methods.
func methodOf(t reflect.Type, name string) (reflect.Method, bool) {
	if t == nil {
		return reflect.Method{}, false
	}
	if t.Kind() == reflect.Interface {
		return t.MethodByName(name)
	}
	return reflect.PointerTo(t).MethodByName(name)
}
