package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"time"
)

// Sentinel errors for request binding.
var (
	ErrBindPath   = errors.New("bind path")
	ErrBindQuery  = errors.New("bind query")
	ErrBindHeader = errors.New("bind header")
	ErrBindBody   = errors.New("bind body")
)

// paramTags are the struct tags used for binding request parameters.
var paramTags = []string{"path", "query", "header"}

// decodeRequest populates target, a pointer to a struct, from r.
func decodeRequest(r *http.Request, target reflect.Value) error {
	v := target.Elem()
	t := v.Type()
	if t == reflect.TypeFor[Void]() {
		return nil
	}

	if err := bindParams(v, r); err != nil {
		return err
	}

	switch {
	case hasBodyField(t):
		if err := decodeBody(r, v.FieldByName("Body").Addr().Interface()); err != nil {
			return fmt.Errorf("%w: %w", ErrBindBody, err)
		}
	case !hasParamTags(t):
		if err := decodeBody(r, target.Interface()); err != nil {
			return fmt.Errorf("%w: %w", ErrBindBody, err)
		}
	}
	return nil
}

// bindParams binds path, query, and header values to struct fields.
func bindParams(v reflect.Value, r *http.Request) error {
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || f.Name == "Body" {
			continue
		}

		field := v.Field(i)

		if name := f.Tag.Get("path"); name != "" {
			if val := r.PathValue(name); val != "" {
				if err := setFieldValue(field, val); err != nil {
					return fmt.Errorf("%w: %s: %w", ErrBindPath, name, err)
				}
			}
		}

		if name := f.Tag.Get("query"); name != "" {
			val := r.URL.Query().Get(name)
			if val == "" {
				val = f.Tag.Get("default")
			}
			if val != "" {
				if err := setFieldValue(field, val); err != nil {
					return fmt.Errorf("%w: %s: %w", ErrBindQuery, name, err)
				}
			}
		}

		if name := f.Tag.Get("header"); name != "" {
			if val := r.Header.Get(name); val != "" {
				if err := setFieldValue(field, val); err != nil {
					return fmt.Errorf("%w: %s: %w", ErrBindHeader, name, err)
				}
			}
		}
	}
	return nil
}

// hasParamTags reports whether t has any exported field with a parameter
// binding tag.
func hasParamTags(t reflect.Type) bool {
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		for _, tag := range paramTags {
			if f.Tag.Get(tag) != "" {
				return true
			}
		}
	}
	return false
}

// hasBodyField reports whether t has an exported "Body" field.
func hasBodyField(t reflect.Type) bool {
	f, ok := t.FieldByName("Body")
	return ok && f.IsExported()
}

// setFieldValue sets a reflect.Value from a string, supporting common types.
func setFieldValue(field reflect.Value, value string) error {
	if field.Type() == reflect.TypeFor[time.Duration]() {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(d))
		return nil
	}

	//exhaustive:ignore
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported type: %s", field.Type())
	}
	return nil
}

// decodeBody decodes the request body as JSON into target.
func decodeBody(r *http.Request, target any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(target)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
