package bearer

import (
	"net"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ResolveSupabaseAccessToken resolves all candidate tokens and prefers the one whose JWT issuer
// or audience hostname equals expectedHost. Signatures are not checked here; the identity service
// does that. Falls back to the first token when nothing matches or expectedHost is empty.
// expectedHost may be a bare host or a URL.
func ResolveSupabaseAccessToken(src HeaderSource, expectedHost string, names ...string) (string, bool) {
	tokens := ResolveAll(src, names...)
	if len(tokens) == 0 {
		return "", false
	}
	want := Hostname(expectedHost)
	if want == "" {
		return tokens[0], true
	}
	for _, tok := range tokens {
		iss, aud, ok := ClaimHosts(tok)
		if !ok {
			continue
		}
		if iss == want {
			return tok, true
		}
		for _, a := range aud {
			if a == want {
				return tok, true
			}
		}
	}
	return tokens[0], true
}

// ClaimHosts decodes tok as an unverified JWT and returns the hostnames of its iss and aud claims.
// ok is false when tok is not a decodable JWT.
func ClaimHosts(tok string) (iss string, aud []string, ok bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return "", nil, false
	}
	if s, err := claims.GetIssuer(); err == nil {
		iss = Hostname(s)
	}
	if list, err := claims.GetAudience(); err == nil {
		for _, a := range list {
			if h := Hostname(a); h != "" {
				aud = append(aud, h)
			}
		}
	}
	return iss, aud, true
}

// Hostname lower-cases the host part of a URL or host[:port] string. Returns "" when none.
func Hostname(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return ""
		}
		return strings.ToLower(u.Hostname())
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if h, _, err := net.SplitHostPort(s); err == nil {
		s = h
	}
	return strings.ToLower(s)
}
