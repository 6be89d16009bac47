// Package keys derives cache keys from a template and a call's named arguments.
//
// A template is either a literal, used verbatim, or an expression (it contains
// '#' or '\'') evaluated against the arguments:
//
//	"users"                           -> users
//	"#name"                           -> alice
//	"'user:' + #u.ID"                 -> user:7   (when ID is a string)
//	"#table.getId().toString()"       -> 42
//
// With useArgsHash the key gets "_" plus a hash of the argument values
// appended, so calls with equal arguments share a key.
package keys

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

var (
	ErrMissingKeyConfiguration = errors.New("keys: missing key configuration")
	ErrArgumentMismatch        = errors.New("keys: argument names and values differ in length")
	ErrSyntax                  = errors.New("keys: invalid key template")
	ErrUnknownArgument         = errors.New("keys: unknown argument")
	ErrEval                    = errors.New("keys: cannot evaluate key template")
	ErrNonStringKey            = errors.New("keys: key template did not produce a string")
	ErrEmptyKey                = errors.New("keys: key template produced an empty key")
	ErrUnhashable              = errors.New("keys: arguments cannot be hashed")
)

// IsExpression reports whether template is evaluated rather than used verbatim.
func IsExpression(template string) bool {
	return strings.ContainsAny(template, "#'")
}

// Resolver memoizes compiled templates. The zero value is ready to use and
// safe for concurrent use.
type Resolver struct {
	compiled sync.Map // template string -> *Template
}

func NewResolver() *Resolver { return &Resolver{} }

var defaultResolver = NewResolver()

// Resolve uses a process-wide Resolver.
func Resolve(template string, names []string, values []any, useArgsHash bool) (string, error) {
	return defaultResolver.Resolve(template, names, values, useArgsHash)
}

func (r *Resolver) Resolve(template string, names []string, values []any, useArgsHash bool) (string, error) {
	if strings.TrimSpace(template) == "" {
		return "", ErrMissingKeyConfiguration
	}
	if len(names) != len(values) {
		return "", fmt.Errorf("%w: %d names, %d values", ErrArgumentMismatch, len(names), len(values))
	}

	key := template
	if IsExpression(template) {
		t, err := r.compile(template)
		if err != nil {
			return "", err
		}
		env := make(map[string]any, len(names))
		for i, n := range names {
			env[n] = values[i]
		}
		v, err := t.Eval(env)
		if err != nil {
			return "", err
		}
		s, ok := asString(v)
		if !ok {
			return "", fmt.Errorf("%w: %q yields %T", ErrNonStringKey, template, v)
		}
		if s == "" {
			return "", fmt.Errorf("%w: %q", ErrEmptyKey, template)
		}
		key = s
	}

	if useArgsHash {
		h, err := HashArgs(values)
		if err != nil {
			return "", err
		}
		key += "_" + h
	}
	return key, nil
}

func (r *Resolver) compile(template string) (*Template, error) {
	if t, ok := r.compiled.Load(template); ok {
		return t.(*Template), nil
	}
	t, err := Compile(template)
	if err != nil {
		return nil, err
	}
	actual, _ := r.compiled.LoadOrStore(template, t)
	return actual.(*Template), nil
}

func asString(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.IsValid() && rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}
