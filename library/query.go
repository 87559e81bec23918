package library

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// readThreshold is the reading progress (percent) at which an item counts as read.
const readThreshold = 98

// Query is a parsed library search string.
type Query struct {
	Terms     []string
	In        string // inbox, archive, following, all; empty means unset
	Read      string // read, unread; empty means unset
	Labels    []string
	Types     []string
	SavedFrom *time.Time
	SavedTo   *time.Time // exclusive
	SortField string
	SortDesc  bool
}

var sortFields = map[string]string{
	"saved":   "saved_at",
	"updated": "updated_at",
	"title":   "title",
}

// ParseQuery parses a search string such as
//
//	in:inbox label:"Tech News" saved:7d sort:saved-desc golang
//
// relative to now. Unknown keys are kept as free-text terms.
func ParseQuery(raw string, now time.Time) (Query, error) {
	q := Query{SortField: "saved_at", SortDesc: true}

	for _, tok := range tokenize(raw) {
		key, value, ok := strings.Cut(tok, ":")
		if !ok || value == "" {
			q.Terms = append(q.Terms, unquote(tok))
			continue
		}
		value = unquote(value)

		switch strings.ToLower(key) {
		case "in":
			switch v := strings.ToLower(value); v {
			case "inbox", "archive", "following", "all":
				q.In = v
			case "library":
				q.In = "all"
			default:
				return Query{}, fmt.Errorf("unknown in: value %q", value)
			}
		case "is":
			switch v := strings.ToLower(value); v {
			case "read", "unread":
				q.Read = v
			default:
				return Query{}, fmt.Errorf("unknown is: value %q", value)
			}
		case "label":
			q.Labels = append(q.Labels, value)
		case "type":
			q.Types = append(q.Types, strings.ToUpper(value))
		case "saved":
			from, to, err := parseSavedRange(value, now)
			if err != nil {
				return Query{}, err
			}
			q.SavedFrom, q.SavedTo = from, to
		case "sort":
			field, dir, _ := strings.Cut(strings.ToLower(value), "-")
			col, ok := sortFields[field]
			if !ok {
				return Query{}, fmt.Errorf("unknown sort field %q", field)
			}
			q.SortField = col
			q.SortDesc = dir != "asc"
		default:
			q.Terms = append(q.Terms, unquote(tok))
		}
	}

	return q, nil
}

// parseSavedRange accepts "Nd" (last N days) or "FROM..TO" where each side
// is a YYYY-MM-DD date or "*". TO is inclusive of the whole day.
func parseSavedRange(value string, now time.Time) (*time.Time, *time.Time, error) {
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err == nil && n > 0 {
			from := now.Add(-time.Duration(n) * 24 * time.Hour)
			return &from, nil, nil
		}
	}

	fromRaw, toRaw, ok := strings.Cut(value, "..")
	if !ok {
		fromRaw, toRaw = value, value
	}

	var from, to *time.Time
	if fromRaw != "*" && fromRaw != "" {
		t, err := time.Parse(time.DateOnly, fromRaw)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid saved: start %q: %w", fromRaw, err)
		}
		from = &t
	}
	if toRaw != "*" && toRaw != "" {
		t, err := time.Parse(time.DateOnly, toRaw)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid saved: end %q: %w", toRaw, err)
		}
		t = t.Add(24 * time.Hour)
		to = &t
	}
	return from, to, nil
}

// tokenize splits on whitespace outside double quotes.
func tokenize(raw string) []string {
	var (
		tokens  []string
		current strings.Builder
		quoted  bool
	)
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	for _, r := range raw {
		switch {
		case r == '"':
			quoted = !quoted
			current.WriteRune(r)
		case unicode.IsSpace(r) && !quoted:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func unquote(s string) string {
	return strings.Trim(s, `"`)
}
