package info

import (
	"strconv"
	"strings"
	"time"
)

// Properties is a flat string map as found in descriptor property blocks.
type Properties map[string]string

// Options is a layered property lookup: a bean's properties fall back to the
// module, then the application, then system-wide options.
type Options struct {
	props  Properties
	parent *Options
}

// NewOptions layers props over parent. Either may be nil.
func NewOptions(props Properties, parent *Options) *Options {
	return &Options{props: props, parent: parent}
}

// Lookup returns the nearest value for key. Keys compare case-insensitively.
func (o *Options) Lookup(key string) (string, bool) {
	for cur := o; cur != nil; cur = cur.parent {
		if v, ok := cur.props[key]; ok {
			return v, true
		}
		for k, v := range cur.props {
			if strings.EqualFold(k, key) {
				return v, true
			}
		}
	}
	return "", false
}

// Get returns the value for key, or def when unset.
func (o *Options) Get(key, def string) string {
	if v, ok := o.Lookup(key); ok {
		return v
	}
	return def
}

// GetBool parses the value for key; unparsable values yield def.
func (o *Options) GetBool(key string, def bool) bool {
	v, ok := o.Lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// GetInt parses the value for key; unparsable values yield def.
func (o *Options) GetInt(key string, def int) int {
	v, ok := o.Lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// GetDuration parses a Go duration; unparsable values yield def.
func (o *Options) GetDuration(key string, def time.Duration) time.Duration {
	v, ok := o.Lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return d
}

// Duration converts a TimeoutInfo into a time.Duration. A nil timeout or an
// unknown unit yields ok=false.
func (t *TimeoutInfo) Duration() (time.Duration, bool) {
	if t == nil {
		return 0, false
	}
	var unit time.Duration
	switch strings.ToUpper(t.Unit) {
	case "NANOSECONDS":
		unit = time.Nanosecond
	case "MICROSECONDS":
		unit = time.Microsecond
	case "", "MILLISECONDS":
		unit = time.Millisecond
	case "SECONDS":
		unit = time.Second
	case "MINUTES":
		unit = time.Minute
	case "HOURS":
		unit = time.Hour
	case "DAYS":
		unit = 24 * time.Hour
	default:
		return 0, false
	}
	if t.Time < 0 {
		return -1, true
	}
	return time.Duration(t.Time) * unit, true
}

// All flattens the layers, nearer layers overriding farther ones.
func (o *Options) All() Properties {
	var layers []Properties
	for cur := o; cur != nil; cur = cur.parent {
		layers = append(layers, cur.props)
	}
	out := Properties{}
	for i := len(layers) - 1; i >= 0; i-- {
		for k, v := range layers[i] {
			out[k] = v
		}
	}
	return out
}
