package bearer

import (
	"net/http"
	"net/textproto"
	"strings"
)

// HeaderSource looks up a raw header value by name. Lookups are case-insensitive on the name.
type HeaderSource interface {
	Lookup(name string) (any, bool)
}

// HTTPHeader adapts http.Header. Values come back as []string so repeated headers keep their order.
type HTTPHeader http.Header

// Lookup implements HeaderSource.
func (h HTTPHeader) Lookup(name string) (any, bool) {
	if vals, ok := h[textproto.CanonicalMIMEHeaderKey(name)]; ok {
		return vals, true
	}
	for k, vals := range h {
		if strings.EqualFold(k, name) {
			return vals, true
		}
	}
	return nil, false
}

// Map adapts a decoded header bag (for example a JSON object forwarded by an edge function),
// whose values may be strings, arrays or wrapped objects.
type Map map[string]any

// Lookup implements HeaderSource.
func (m Map) Lookup(name string) (any, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// Pairs adapts a raw repeated-name header list laid out as name, value, name, value...
// All values for a name are returned in order.
type Pairs []string

// Lookup implements HeaderSource.
func (p Pairs) Lookup(name string) (any, bool) {
	var vals []string
	for i := 0; i+1 < len(p); i += 2 {
		if strings.EqualFold(strings.TrimSpace(p[i]), name) {
			vals = append(vals, p[i+1])
		}
	}
	if len(vals) == 0 {
		return nil, false
	}
	return vals, true
}
