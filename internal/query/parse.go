package query

import (
	"net/url"
	"strconv"
	"strings"
	"unicode"
)

const (
	DefaultPage  = 1
	DefaultLimit = 25
	// DefaultSortField is the creation timestamp every resource carries.
	DefaultSortField = "createdAt"
)

// reservedKeys are control keys that never become data filters.
var reservedKeys = map[string]bool{
	"select": true,
	"sort":   true,
	"page":   true,
	"limit":  true,
}

// IsReserved reports whether key (or its bracket base, e.g. "page[gt]") is reserved.
func IsReserved(key string) bool {
	base, _ := splitBrackets(key)
	return reservedKeys[base]
}

// ParseFilter turns raw query parameters into a Filter.
//
//	price=100            -> price eq 100
//	price[gte]=100       -> price gte 100
//	careers[in]=A,B      -> careers in [A B]
//	careers=A&careers=B  -> careers in [A B]
//	location[city]=Bonn  -> location.city eq Bonn
//
// Operator tokens are matched as a whole bracket segment, so price[gtx] or a
// value that merely contains "gte" stays an equality.
func ParseFilter(params url.Values) Filter {
	filter := Filter{}
	for key, vals := range params {
		if len(vals) == 0 {
			continue
		}
		base, segs := splitBrackets(key)
		if base == "" || reservedKeys[base] {
			continue
		}

		op := OpEq
		if n := len(segs); n > 0 {
			if tok, ok := comparisonOps[segs[n-1]]; ok {
				op = tok
				segs = segs[:n-1]
			}
		}
		field := base
		if len(segs) > 0 {
			field = base + "." + strings.Join(segs, ".")
		}

		switch {
		case op == OpIn:
			filter[field] = append(filter[field], Condition{Op: OpIn, Values: splitList(vals)})
		case op == OpEq && len(vals) > 1:
			filter[field] = append(filter[field], Condition{Op: OpIn, Values: append([]string(nil), vals...)})
		default:
			filter[field] = append(filter[field], Condition{Op: op, Value: vals[len(vals)-1]})
		}
	}
	return filter
}

// ParseDirectives reads select, sort, page and limit. Malformed or
// non-positive page and limit values fall back to the defaults.
func ParseDirectives(params url.Values) Directives {
	d := Directives{
		Select: splitFields(params.Get("select")),
		Page:   parsePositive(params.Get("page"), DefaultPage),
		Limit:  parsePositive(params.Get("limit"), DefaultLimit),
	}
	for _, f := range splitFields(params.Get("sort")) {
		if strings.HasPrefix(f, "-") {
			if f = strings.TrimPrefix(f, "-"); f != "" {
				d.Sort = append(d.Sort, SortKey{Field: f, Desc: true})
			}
			continue
		}
		d.Sort = append(d.Sort, SortKey{Field: strings.TrimPrefix(f, "+")})
	}
	if len(d.Sort) == 0 {
		d.Sort = []SortKey{{Field: DefaultSortField, Desc: true}}
	}
	return d
}

// splitBrackets splits "a[b][c]" into "a" and ["b" "c"].
func splitBrackets(key string) (string, []string) {
	i := strings.IndexByte(key, '[')
	if i < 0 || !strings.HasSuffix(key, "]") {
		return key, nil
	}
	base := key[:i]
	inner := strings.TrimSuffix(key[i+1:], "]")
	var segs []string
	for _, s := range strings.Split(inner, "][") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return base, segs
}

func splitFields(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(parts) == 0 {
		return nil
	}
	return parts
}

func splitList(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// parsePositive reads the leading integer of raw ("3", " 3", "3abc").
func parsePositive(raw string, fallback int) int {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return fallback
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
