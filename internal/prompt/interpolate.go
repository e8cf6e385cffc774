package prompt

import (
	"fmt"
	"strings"
)

// Render interpolates a template body against a variable map. Supported
// syntax, innermost-last:
//
//	{{var}}                     value substitution
//	{{#if var}}...{{/if}}       kept when var is truthy
//	{{#each list}}...{{/each}}  body repeated per element, {{this}} bound
//
// Unknown {{var}} references render as empty strings.
func Render(body string, vars map[string]any) string {
	return substituteVars(renderBlocks(body, vars), vars)
}

func renderBlocks(body string, vars map[string]any) string {
	for {
		ifStart := strings.Index(body, "{{#if ")
		eachStart := strings.Index(body, "{{#each ")

		start, tag := ifStart, "if"
		if start == -1 || (eachStart != -1 && eachStart < start) {
			start, tag = eachStart, "each"
		}
		if start == -1 {
			return body
		}

		open := "{{#" + tag + " "
		nameEnd := strings.Index(body[start:], "}}")
		if nameEnd == -1 {
			return body
		}
		name := strings.TrimSpace(body[start+len(open) : start+nameEnd])
		bodyStart := start + nameEnd + 2

		end := findBlockEnd(body, bodyStart, tag)
		if end == -1 {
			return body
		}
		inner := body[bodyStart:end]
		closeLen := len("{{/" + tag + "}}")

		var rendered string
		switch tag {
		case "if":
			if truthy(vars[name]) {
				rendered = renderBlocks(inner, vars)
			}
		case "each":
			for _, item := range toList(vars[name]) {
				itemVars := make(map[string]any, len(vars)+1)
				for k, v := range vars {
					itemVars[k] = v
				}
				itemVars["this"] = item
				rendered += substituteVars(renderBlocks(inner, itemVars), itemVars)
			}
		}

		body = body[:start] + rendered + body[end+closeLen:]
	}
}

// findBlockEnd locates the closing tag matching the block opened before
// pos, counting nested blocks of the same tag.
func findBlockEnd(body string, pos int, tag string) int {
	open := "{{#" + tag + " "
	closing := "{{/" + tag + "}}"
	depth := 1
	for pos < len(body) {
		nextOpen := strings.Index(body[pos:], open)
		nextClose := strings.Index(body[pos:], closing)
		if nextClose == -1 {
			return -1
		}
		if nextOpen != -1 && nextOpen < nextClose {
			depth++
			pos += nextOpen + len(open)
			continue
		}
		depth--
		if depth == 0 {
			return pos + nextClose
		}
		pos += nextClose + len(closing)
	}
	return -1
}

func substituteVars(body string, vars map[string]any) string {
	var b strings.Builder
	for {
		start := strings.Index(body, "{{")
		if start == -1 {
			b.WriteString(body)
			return b.String()
		}
		end := strings.Index(body[start:], "}}")
		if end == -1 {
			b.WriteString(body)
			return b.String()
		}
		name := strings.TrimSpace(body[start+2 : start+end])
		b.WriteString(body[:start])
		if !strings.HasPrefix(name, "#") && !strings.HasPrefix(name, "/") {
			if v, ok := vars[name]; ok {
				b.WriteString(stringify(v))
			}
		}
		body = body[start+end+2:]
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

func toList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case nil:
		return nil
	}
	return []any{v}
}
