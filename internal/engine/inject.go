package engine

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/roach88/stepwise/internal/step"
)

// InvalidFieldError describes a struct field that cannot receive a proxy.
type InvalidFieldError struct {
	Struct string
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("cannot inject %s.%s: %s", e.Struct, e.Field, e.Reason)
}

// IsInvalidFieldError returns true if the error is an InvalidFieldError.
// Uses errors.As to handle wrapped errors.
func IsInvalidFieldError(err error) bool {
	var fe *InvalidFieldError
	return errors.As(err, &fe)
}

// Inject assigns engine-bound proxies into tagged fields of target.
//
// target must be a non-nil pointer to a struct. Every field of type *Proxy
// carrying a `steps:"<owner>"` tag receives a proxy bound to the library
// registered under that owner. Fields without the tag are left untouched.
//
// A tagged field that is unexported, not of type *Proxy, or tagged with an
// owner no provided library matches is an InvalidFieldError: wiring
// mistakes surface at setup, not mid-scenario.
func (e *Engine) Inject(target any, libraries ...*step.Library) error {
	byOwner := make(map[string]*step.Library, len(libraries))
	for _, lib := range libraries {
		byOwner[lib.Owner()] = lib
	}

	v := reflect.ValueOf(target)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("inject target must be a non-nil struct pointer, got %T", target)
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("inject target must be a non-nil struct pointer, got %T", target)
	}
	t := v.Type()

	proxyType := reflect.TypeOf((*Proxy)(nil))

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		owner, tagged := field.Tag.Lookup("steps")
		if !tagged {
			continue
		}
		if field.Type != proxyType {
			return &InvalidFieldError{
				Struct: t.Name(),
				Field:  field.Name,
				Reason: fmt.Sprintf("field type is %s, want *engine.Proxy", field.Type),
			}
		}
		if !v.Field(i).CanSet() {
			return &InvalidFieldError{
				Struct: t.Name(),
				Field:  field.Name,
				Reason: "field is unexported",
			}
		}
		lib, ok := byOwner[owner]
		if !ok {
			return &InvalidFieldError{
				Struct: t.Name(),
				Field:  field.Name,
				Reason: fmt.Sprintf("no library provided for owner %q", owner),
			}
		}
		v.Field(i).Set(reflect.ValueOf(e.Bind(lib)))
	}

	return nil
}
