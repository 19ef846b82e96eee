package collect

import (
	"net/url"
	"strings"
)

// Tracking query parameters stripped during normalization by default.
var defaultStrippedParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
}

// Normalizer canonicalizes candidate URLs so that variants differing only
// in case of scheme/host, fragment, tracking parameters, or a trailing
// slash collapse to one identity in the collected set.
type Normalizer struct {
	// StripParams lists query parameters removed during normalization.
	// Nil means the default tracking-parameter set; an explicit empty
	// slice disables stripping.
	StripParams []string
}

// Normalize returns the canonical form of rawURL. Unparseable URLs are
// returned unchanged: identity for them degrades to exact string match.
func (n *Normalizer) Normalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	strip := n.StripParams
	if strip == nil {
		strip = defaultStrippedParams
	}
	if len(strip) > 0 && u.RawQuery != "" {
		u.RawQuery = stripQuery(u.RawQuery, strip)
	}

	// Fixed trailing-slash policy for the run: strip, but never reduce
	// the path to nothing.
	if len(u.Path) > 1 {
		u.Path = strings.TrimRight(u.Path, "/")
	}

	return u.String()
}

// stripQuery removes the named parameters from a raw query string. The
// surviving pairs keep their original order and encoding; re-encoding
// through url.Values would sort them alphabetically and change the URL's
// identity.
func stripQuery(rawQuery string, strip []string) string {
	drop := make(map[string]struct{}, len(strip))
	for _, key := range strip {
		drop[key] = struct{}{}
	}

	var kept []string
	for _, pair := range strings.Split(rawQuery, "&") {
		key := pair
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key = pair[:i]
		}
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if _, ok := drop[key]; ok {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}
