// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package serialize

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
)

var (
	// ErrUnsupportedType is returned for values the Encoder has no rule for
	ErrUnsupportedType = errors.New("serialize: unsupported type")

	// ErrMissingField is returned when a whitelisted field can not be read from a value
	ErrMissingField = errors.New("serialize: missing field")
)

// Attributer is implemented by values that expose named attributes
type Attributer interface {
	Attribute(name string) (value interface{}, ok bool)
}

// Iterable is implemented by collections that are not sequences, such as sets
type Iterable interface {
	ToSlice() []interface{}
}

// Encoder converts values into trees of JSON-safe values
// (nil, bool, numbers, string, []interface{} and map[string]interface{}).
type Encoder struct {
	mu           sync.RWMutex
	fields       map[reflect.Type][]string
	placeholders map[reflect.Type]string
}

// New returns a new Encoder without registrations
func New() *Encoder {
	return &Encoder{
		fields:       make(map[reflect.Type][]string),
		placeholders: make(map[reflect.Type]string),
	}
}

func baseType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// Register makes the Encoder encode values of the type of sample (or pointers to it)
// as objects that contain only the given fields
func (e *Encoder) Register(sample interface{}, fields ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fields[baseType(reflect.TypeOf(sample))] = append([]string(nil), fields...)
}

// RegisterPlaceholder makes the Encoder encode values of the type of sample as the given text
func (e *Encoder) RegisterPlaceholder(sample interface{}, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.placeholders[baseType(reflect.TypeOf(sample))] = text
}

func (e *Encoder) lookup(t reflect.Type) (fields []string, registered bool, placeholder string, isPlaceholder bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fields, registered = e.fields[t]
	placeholder, isPlaceholder = e.placeholders[t]
	return
}

// Marshal encodes v and returns its JSON representation
func (e *Encoder) Marshal(v interface{}) ([]byte, error) {
	encoded, err := e.Encode(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(encoded)
}

// Encode converts v into a tree of JSON-safe values
func (e *Encoder) Encode(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface) && rv.IsNil() {
		return nil, nil
	}

	fields, registered, placeholder, isPlaceholder := e.lookup(baseType(rv.Type()))
	if isPlaceholder {
		return placeholder, nil
	}

	switch v := v.(type) {
	case json.Number:
		return v, nil
	case encoding.TextMarshaler:
		text, err := v.MarshalText()
		if err != nil {
			return nil, err
		}
		return string(text), nil
	case fmt.Stringer:
		if isInteger(rv.Kind()) {
			return v.String(), nil
		}
	}

	if registered {
		return e.project(v, fields)
	}

	if iterable, ok := v.(Iterable); ok {
		return e.encodeIterable(iterable)
	}

	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Ptr, reflect.Interface:
		return e.Encode(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return nil, nil
		}
		return e.encodeSequence(rv)
	case reflect.Array:
		return e.encodeSequence(rv)
	case reflect.Map:
		if rv.IsNil() {
			return nil, nil
		}
		return e.encodeMap(rv)
	}

	return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
}

func isInteger(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func (e *Encoder) project(v interface{}, fields []string) (interface{}, error) {
	out := make(map[string]interface{}, len(fields))
	for _, field := range fields {
		value, ok := readField(v, field)
		if !ok {
			return nil, fmt.Errorf("%w: %T has no field %q", ErrMissingField, v, field)
		}
		encoded, err := e.Encode(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		out[field] = encoded
	}
	return out, nil
}

// readField reads a named field from a mapping, an Attributer or a struct with json tags
func readField(v interface{}, name string) (interface{}, bool) {
	if attributer, ok := v.(Attributer); ok {
		return attributer.Attribute(name)
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		value := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !value.IsValid() {
			return nil, false
		}
		return value.Interface(), true
	case reflect.Struct:
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if field.PkgPath != "" {
				continue
			}
			tag := strings.Split(field.Tag.Get("json"), ",")[0]
			if tag == name || (tag == "" && field.Name == name) {
				return rv.Field(i).Interface(), true
			}
		}
	}
	return nil, false
}

func (e *Encoder) encodeSequence(rv reflect.Value) (interface{}, error) {
	out := make([]interface{}, rv.Len())
	for i := range out {
		encoded, err := e.Encode(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out[i] = encoded
	}
	return out, nil
}

func (e *Encoder) encodeIterable(iterable Iterable) (interface{}, error) {
	items := iterable.ToSlice()
	out := make([]interface{}, len(items))
	for i, item := range items {
		encoded, err := e.Encode(item)
		if err != nil {
			return nil, err
		}
		out[i] = encoded
	}
	sortElements(out)
	return out, nil
}

// sortElements gives elements of unordered collections a stable order when they
// are all numbers or all strings
func sortElements(elements []interface{}) {
	numbers := make([]float64, len(elements))
	allNumbers, allStrings := true, true
	for i, element := range elements {
		switch element := element.(type) {
		case int64:
			numbers[i] = float64(element)
			allStrings = false
		case uint64:
			numbers[i] = float64(element)
			allStrings = false
		case float64:
			numbers[i] = element
			allStrings = false
		case string:
			allNumbers = false
		default:
			return
		}
	}
	switch {
	case allNumbers:
		sort.Sort(byNumber{elements, numbers})
	case allStrings:
		sort.Slice(elements, func(i, j int) bool { return elements[i].(string) < elements[j].(string) })
	}
}

type byNumber struct {
	elements []interface{}
	numbers  []float64
}

func (s byNumber) Len() int           { return len(s.elements) }
func (s byNumber) Less(i, j int) bool { return s.numbers[i] < s.numbers[j] }
func (s byNumber) Swap(i, j int) {
	s.elements[i], s.elements[j] = s.elements[j], s.elements[i]
	s.numbers[i], s.numbers[j] = s.numbers[j], s.numbers[i]
}

func (e *Encoder) encodeMap(rv reflect.Value) (interface{}, error) {
	out := make(map[string]interface{}, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key, err := mapKey(iter.Key())
		if err != nil {
			return nil, err
		}
		encoded, err := e.Encode(iter.Value().Interface())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[key] = encoded
	}
	return out, nil
}

func mapKey(key reflect.Value) (string, error) {
	if marshaler, ok := key.Interface().(encoding.TextMarshaler); ok {
		text, err := marshaler.MarshalText()
		return string(text), err
	}
	switch key.Kind() {
	case reflect.String:
		return key.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(key.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(key.Uint(), 10), nil
	}
	return "", fmt.Errorf("%w: map key %s", ErrUnsupportedType, key.Type())
}
