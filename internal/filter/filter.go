// Package filter parses JSON:API style query parameters.
package filter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/joeshaw/bods-gtfs/internal/store"
)

// Options holds the filter, include and sparse fieldset parameters of a request
type Options struct {
	Filters  map[string]string
	Includes []string
	Fields   map[string][]string
}

// NewOptions parses query parameters and creates filter options
func NewOptions(query url.Values) *Options {
	options := &Options{
		Filters:  make(map[string]string),
		Includes: []string{},
		Fields:   make(map[string][]string),
	}

	for key, values := range query {
		if len(values) == 0 {
			continue
		}
		switch {
		case strings.HasPrefix(key, "filter[") && strings.HasSuffix(key, "]"):
			options.Filters[key[7:len(key)-1]] = strings.TrimSpace(values[0])
		case strings.HasPrefix(key, "fields[") && strings.HasSuffix(key, "]"):
			options.Fields[key[7:len(key)-1]] = splitList(values[0])
		case key == "include":
			options.Includes = splitList(values[0])
		}
	}

	return options
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// HasFilter checks if a specific filter exists
func (o *Options) HasFilter(name string) bool {
	_, exists := o.Filters[name]
	return exists
}

// GetFilter returns the raw value of a filter
func (o *Options) GetFilter(name string) string {
	return o.Filters[name]
}

// GetFilterList returns a comma separated filter as a list
func (o *Options) GetFilterList(name string) []string {
	return splitList(o.Filters[name])
}

// HasInclude checks if a specific include is requested
func (o *Options) HasInclude(name string) bool {
	for _, include := range o.Includes {
		if include == name {
			return true
		}
	}
	return false
}

// ShouldIncludeField checks if a field should be included
func (o *Options) ShouldIncludeField(resourceType, field string) bool {
	fields, ok := o.Fields[resourceType]
	if !ok {
		return true
	}
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}

// BoundingBox parses filter[bbox]=minLat,maxLat,minLng,maxLng. ok is false
// when the filter is absent.
func (o *Options) BoundingBox() (box store.BoundingBox, ok bool, err error) {
	raw, ok := o.Filters["bbox"]
	if !ok {
		return store.BoundingBox{}, false, nil
	}

	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return store.BoundingBox{}, true, fmt.Errorf("bbox needs 4 values (minLat,maxLat,minLng,maxLng), got %d", len(parts))
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return store.BoundingBox{}, true, fmt.Errorf("bbox value %q is not a number", p)
		}
		v[i] = f
	}

	box, err = store.NewBoundingBox(v[0], v[1], v[2], v[3])
	return box, true, err
}

// FilterFunc is a generic filter function type
type FilterFunc[T any] func(item T) bool

// Filter applies a filter function to a slice of items
func Filter[T any](items []T, fn FilterFunc[T]) []T {
	filtered := make([]T, 0, len(items))
	for _, item := range items {
		if fn(item) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
