package probe

import (
	"mime"
	"sort"
	"strconv"
	"strings"
)

// shortTypes resolves the short names Express accepts in place of a full
// media type. Anything else falls back to the mime package's extension table.
var shortTypes = map[string]string{
	"json": "application/json",
	"html": "text/html",
	"text": "text/plain",
	"txt":  "text/plain",
	"xml":  "application/xml",
	"form": "application/x-www-form-urlencoded",
}

// normalizeType turns "json", ".html" or "Text/Plain; charset=utf-8" into a
// bare lower-case media type. Unknown short names are returned unchanged.
func normalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	if strings.Contains(t, "/") {
		return t
	}
	name := strings.TrimPrefix(t, ".")
	if full, ok := shortTypes[name]; ok {
		return full
	}
	if full := mime.TypeByExtension("." + name); full != "" {
		return normalizeType(full)
	}
	return t
}

type mediaRange struct {
	typ, sub string
	q        float64
	index    int
}

func (m mediaRange) specificity() int {
	switch {
	case m.typ == "*":
		return 0
	case m.sub == "*":
		return 1
	default:
		return 2
	}
}

// matches reports whether the bare media type t falls in the range.
func (m mediaRange) matches(t string) bool {
	typ, sub, ok := strings.Cut(t, "/")
	if !ok {
		return false
	}
	if m.typ != "*" && m.typ != typ {
		return false
	}
	if m.sub == "*" || m.sub == sub {
		return true
	}
	// "application/problem+json" satisfies "application/json".
	return strings.HasSuffix(sub, "+"+m.sub)
}

// parseAccept parses an Accept header into ranges ordered by preference:
// quality, then specificity, then position. Ranges with q=0 are dropped.
// An empty header accepts everything.
func parseAccept(header string) []mediaRange {
	if strings.TrimSpace(header) == "" {
		return []mediaRange{{typ: "*", sub: "*", q: 1}}
	}

	var ranges []mediaRange
	for i, part := range strings.Split(header, ",") {
		fields := strings.Split(part, ";")
		t := normalizeType(fields[0])
		typ, sub, ok := strings.Cut(t, "/")
		if !ok {
			continue
		}
		q := 1.0
		for _, param := range fields[1:] {
			k, v, found := strings.Cut(strings.TrimSpace(param), "=")
			if found && strings.EqualFold(strings.TrimSpace(k), "q") {
				if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
					q = parsed
				}
			}
		}
		if q <= 0 {
			continue
		}
		ranges = append(ranges, mediaRange{typ: typ, sub: sub, q: q, index: i})
	}

	sort.SliceStable(ranges, func(i, j int) bool {
		if ranges[i].q != ranges[j].q {
			return ranges[i].q > ranges[j].q
		}
		if ranges[i].specificity() != ranges[j].specificity() {
			return ranges[i].specificity() > ranges[j].specificity()
		}
		return ranges[i].index < ranges[j].index
	})
	return ranges
}

// negotiate returns the index of the offer that best satisfies the Accept
// header, or -1 when nothing is acceptable.
func negotiate(accept string, offers []string) int {
	ranges := parseAccept(accept)
	normalized := make([]string, len(offers))
	for i, o := range offers {
		normalized[i] = normalizeType(o)
	}
	for _, r := range ranges {
		for i, o := range normalized {
			if r.matches(o) {
				return i
			}
		}
	}
	return -1
}

type tokenRange struct {
	value string
	q     float64
	index int
}

// parseTokens parses Accept-Charset, Accept-Encoding or Accept-Language into
// lower-case tokens ordered by quality, then position. Tokens with q=0 are
// dropped.
func parseTokens(header string) []tokenRange {
	var tokens []tokenRange
	for i, part := range strings.Split(header, ",") {
		fields := strings.Split(part, ";")
		value := strings.ToLower(strings.TrimSpace(fields[0]))
		if value == "" {
			continue
		}
		q := 1.0
		for _, param := range fields[1:] {
			k, v, found := strings.Cut(strings.TrimSpace(param), "=")
			if found && strings.EqualFold(strings.TrimSpace(k), "q") {
				if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
					q = parsed
				}
			}
		}
		if q <= 0 {
			continue
		}
		tokens = append(tokens, tokenRange{value: value, q: q, index: i})
	}
	sort.SliceStable(tokens, func(i, j int) bool {
		if tokens[i].q != tokens[j].q {
			return tokens[i].q > tokens[j].q
		}
		return tokens[i].index < tokens[j].index
	})
	return tokens
}

// negotiateToken returns the offer the header prefers, "" when none is
// acceptable, or the first offer when the header is absent. match decides
// whether a header token covers an offer; "*" covers everything.
func negotiateToken(header string, offers []string, match func(token, offer string) bool) string {
	if len(offers) == 0 {
		return header
	}
	if strings.TrimSpace(header) == "" {
		return offers[0]
	}
	for _, token := range parseTokens(header) {
		for _, offer := range offers {
			if token.value == "*" || match(token.value, strings.ToLower(offer)) {
				return offer
			}
		}
	}
	return ""
}

func tokenEqual(token, offer string) bool {
	return token == offer
}

// languageMatch lets "en" cover "en-US" and "en-US" cover "en".
func languageMatch(token, offer string) bool {
	if token == offer {
		return true
	}
	tokenPrimary, _, _ := strings.Cut(token, "-")
	offerPrimary, _, _ := strings.Cut(offer, "-")
	return tokenPrimary == offerPrimary && (tokenPrimary == token || offerPrimary == offer)
}
