package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is the set of scalar types a remote parameter may hold.
type Value interface {
	~float64 | ~int | ~string
}

// Parameter is a named scalar with a compiled-in default that a remote source
// may override. An update either replaces the current value entirely or leaves
// it untouched.
type Parameter[T Value] struct {
	Name    string
	Default T

	current T
	parse   func(string) (T, error)
}

func newParameter[T Value](name string, def T, parse func(string) (T, error)) *Parameter[T] {
	return &Parameter[T]{Name: name, Default: def, current: def, parse: parse}
}

// Get returns the last known-good value.
func (p *Parameter[T]) Get() T { return p.current }

func (p *Parameter[T]) set(v T) { p.current = v }

func (p *Parameter[T]) key() string { return p.Name }

func (p *Parameter[T]) apply(raw string) error {
	v, err := p.parse(raw)
	if err != nil {
		return fmt.Errorf("parse %q: %w", raw, err)
	}
	p.current = v
	return nil
}

func (p *Parameter[T]) view() ParamView {
	return ParamView{Name: p.Name, Default: p.Default, Current: p.current}
}

// ParamView is a read-only copy of a parameter for reporting.
type ParamView struct {
	Name    string `json:"name"`
	Default any    `json:"default"`
	Current any    `json:"current"`
}

// param is the type-erased view the Store iterates over.
type param interface {
	key() string
	apply(raw string) error
	view() ParamView
}

// Remote values arrive as text; numbers may carry JSON-style quoting or
// whitespace depending on the source.
func clean(raw string) string {
	return strings.Trim(strings.TrimSpace(raw), `"`)
}

// parseFloat rejects NaN and infinities: every comparison against them is
// false, which would silently disable the thresholds.
func parseFloat(raw string) (float64, error) {
	f, err := strconv.ParseFloat(clean(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", raw)
	}
	return f, nil
}

// parseInt accepts integral floats ("5000.0") since some sources store every
// number as a double.
func parseInt(raw string) (int, error) {
	s := clean(raw)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := parseFloat(s)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return int(f), nil
}

func parseString(raw string) (string, error) {
	s := clean(raw)
	if s == "" {
		return "", fmt.Errorf("empty value")
	}
	return s, nil
}
