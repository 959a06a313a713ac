// Package bearer extracts bearer credentials from inbound request headers.
//
// Every entry point uses the same precedence list (DefaultHeaderNames). A header value may
// arrive as a string, an array, or an object-wrapped value; it is classified once (see Classify)
// and then split into comma-separated segments. A segment of the form "Bearer <token>" yields
// the token; a bare segment without whitespace is taken as a token without a scheme.
package bearer

import "strings"

// Header names consulted by default, highest priority first.
const (
	HeaderSupabaseAuthorization = "x-supabase-authorization"
	HeaderSupabaseAuth          = "x-supabase-auth"
	HeaderAuthorization         = "authorization"
)

// DefaultHeaderNames is the canonical precedence list.
var DefaultHeaderNames = []string{
	HeaderSupabaseAuthorization,
	HeaderSupabaseAuth,
	HeaderAuthorization,
}

const schemeBearer = "bearer"

// Resolve returns the first well-formed token found in src. Header names are evaluated in the
// given order (DefaultHeaderNames when none are given); within one header the first matching
// segment wins. The boolean is false when no token is present.
func Resolve(src HeaderSource, names ...string) (string, bool) {
	if src == nil {
		return "", false
	}
	for _, name := range headerNames(names) {
		raw, ok := src.Lookup(name)
		if !ok {
			continue
		}
		if toks := tokensFromValue(Normalize(raw)); len(toks) > 0 {
			return toks[0], true
		}
	}
	return "", false
}

// ResolveAll returns every distinct token found in src, in precedence order.
// Each header is normalized before splitting, so a repeated header contributes only its first
// non-empty entry; later entries are never candidates. Comma-separated segments within that
// entry are all returned.
func ResolveAll(src HeaderSource, names ...string) []string {
	if src == nil {
		return nil
	}
	var out []string
	seen := make(map[string]struct{})
	for _, name := range headerNames(names) {
		raw, ok := src.Lookup(name)
		if !ok {
			continue
		}
		for _, tok := range tokensFromValue(Normalize(raw)) {
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			out = append(out, tok)
		}
	}
	return out
}

// ParseSegment extracts a token from one header segment. "Bearer abc" (any case) gives "abc";
// a bare "abc" gives "abc"; anything else (other schemes, empty, "Bearer" alone) gives false.
func ParseSegment(seg string) (string, bool) {
	fields := strings.Fields(seg)
	switch len(fields) {
	case 1:
		if strings.EqualFold(fields[0], schemeBearer) {
			return "", false
		}
		return fields[0], true
	case 2:
		if strings.EqualFold(fields[0], schemeBearer) {
			return fields[1], true
		}
	}
	return "", false
}

func tokensFromValue(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, seg := range strings.Split(v, ",") {
		if tok, ok := ParseSegment(seg); ok {
			out = append(out, tok)
		}
	}
	return out
}

func headerNames(names []string) []string {
	if len(names) == 0 {
		return DefaultHeaderNames
	}
	return names
}
