// Package prompt renders prompt templates with {name} placeholders.
//
// "{{" and "}}" are literal braces. A lone "}" is also kept literally, so
// JSON examples inside a template only need their opening braces doubled.
package prompt

import (
	"fmt"
	"strings"
)

// Render substitutes every {name} in tmpl with vars[name].
func Render(tmpl string, vars map[string]string) (string, error) {
	var b strings.Builder
	err := walk(tmpl, func(literal string) {
		b.WriteString(literal)
	}, func(name string) error {
		v, ok := vars[name]
		if !ok {
			return fmt.Errorf("missing prompt variable %q", name)
		}
		b.WriteString(v)
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// Variables returns the distinct placeholder names used by tmpl, in order of
// first use.
func Variables(tmpl string) ([]string, error) {
	var names []string
	seen := map[string]bool{}
	err := walk(tmpl, func(string) {}, func(name string) error {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func walk(tmpl string, literal func(string), placeholder func(string) error) error {
	for i := 0; i < len(tmpl); {
		switch {
		case strings.HasPrefix(tmpl[i:], "{{"):
			literal("{")
			i += 2
		case strings.HasPrefix(tmpl[i:], "}}"):
			literal("}")
			i += 2
		case tmpl[i] == '{':
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return fmt.Errorf("unclosed placeholder at offset %d", i)
			}
			name := strings.TrimSpace(tmpl[i+1 : i+1+end])
			if !validName(name) {
				return fmt.Errorf("invalid placeholder %q at offset %d", tmpl[i:i+2+end], i)
			}
			if err := placeholder(name); err != nil {
				return err
			}
			i += end + 2
		default:
			next := strings.IndexAny(tmpl[i+1:], "{}")
			if next < 0 {
				literal(tmpl[i:])
				return nil
			}
			literal(tmpl[i : i+1+next])
			i += next + 1
		}
	}
	return nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
