// Package schema reduces arbitrary client-supplied JSON Schema (as used in
// OpenAI tool/function parameter declarations) to the restricted subset the
// upstream generative-AI backend accepts.
package schema

import "fmt"

const maxDepth = 20

var droppedKeys = map[string]bool{
	"$schema":              true,
	"$defs":                true,
	"definitions":          true,
	"additionalProperties": true,
	"patternProperties":    true,
	"examples":             true,
	"deprecated":           true,
	"readOnly":             true,
	"writeOnly":            true,
	"title":                true,
}

var allowedTypes = map[string]bool{
	"string": true, "number": true, "integer": true,
	"boolean": true, "object": true, "array": true,
}

// combinatorAliases maps the client's snake_case spellings to the upstream's
// camelCase keywords.
var combinatorAliases = map[string]string{
	"any_of": "anyOf",
	"one_of": "oneOf",
	"all_of": "allOf",
}

// Sanitize reduces an arbitrary decoded-JSON schema value to the
// upstream-accepted subset. It never returns an error: every rule is
// best-effort, and a node that cannot be sanitized collapses to an empty
// object rather than aborting the whole schema.
func Sanitize(v any) any {
	return sanitizeNode(v, nil, make(map[any]bool), 0)
}

// sanitizeNode is the recursive workhorse. defs holds the nearest enclosing
// $defs/definitions map for $ref resolution; seen is an identity-set used
// for cycle detection (map keyed by the same pointer/map value Go passes
// around when the source JSON contained a DAG via $ref aliasing).
func sanitizeNode(v any, defs map[string]any, seen map[any]bool, depth int) any {
	if depth > maxDepth {
		return map[string]any{}
	}
	m, ok := v.(map[string]any)
	if !ok {
		// Arrays and scalars pass through unsanitized; the schema keywords
		// we act on only ever appear inside objects.
		return v
	}

	if seen[anyKey(m)] {
		return map[string]any{}
	}
	seen[anyKey(m)] = true
	defer delete(seen, anyKey(m))

	localDefs := defs
	if d, ok := asObject(m["$defs"]); ok {
		localDefs = mergeDefs(defs, d)
	}
	if d, ok := asObject(m["definitions"]); ok {
		localDefs = mergeDefs(localDefs, d)
	}

	if ref, ok := m["$ref"].(string); ok {
		target, ok := resolveRef(ref, localDefs)
		if !ok {
			return map[string]any{}
		}
		return sanitizeNode(target, localDefs, seen, depth+1)
	}

	out := map[string]any{}
	for k, val := range m {
		key := k
		if alias, ok := combinatorAliases[k]; ok {
			key = alias
		}
		if droppedKeys[key] {
			continue
		}
		if key == "$defs" || key == "definitions" {
			continue
		}
		switch key {
		case "anyOf", "oneOf", "allOf":
			collapsed := sanitizeCombinator(val, localDefs, seen, depth)
			// Combinator collapse replaces the *entire* enclosing node,
			// so we return immediately rather than merging collapsed's
			// keys with the rest of out.
			return collapsed
		case "const":
			out["enum"] = []any{val}
		case "enum":
			out["enum"] = val
		case "type":
			if t := sanitizeType(val); t != nil {
				out["type"] = t
			}
		case "properties":
			if props, ok := asObject(val); ok {
				sp := map[string]any{}
				for pk, pv := range props {
					sp[pk] = sanitizeNode(pv, localDefs, seen, depth+1)
				}
				out["properties"] = sp
			}
		case "items":
			out["items"] = sanitizeNode(val, localDefs, seen, depth+1)
		default:
			out[key] = val
		}
	}

	if _, hasAP := m["additionalProperties"]; hasAP {
		out["additionalProperties"] = sanitizeAdditionalProperties(m["additionalProperties"], localDefs, seen, depth)
	}

	if _, hasType := out["type"]; !hasType {
		if t, ok := inferType(m); ok {
			out["type"] = t
		}
	}

	if _, hasEnum := out["enum"]; hasEnum {
		// Only an explicit non-string type on the original node disqualifies
		// an enum; a const-derived enum with no declared type or an inferred
		// type must not be stripped.
		if explicitType, hasExplicitType := m["type"]; hasExplicitType {
			if t, _ := sanitizeType(explicitType).(string); t != "string" {
				delete(out, "enum")
			}
		}
	}

	sanitizeNumericConstraints(out, m)

	return out
}

func anyKey(m map[string]any) any {
	// Go maps are not directly usable as map keys; fmt.Sprintf("%p", ...)
	// on the map value gives a stable per-instance address-derived key,
	// which is what cycle detection needs (identity, not structural
	// equality).
	return fmt.Sprintf("%p", m)
}

func asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func mergeDefs(base, extra map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func resolveRef(ref string, defs map[string]any) (any, bool) {
	name, ok := localRefName(ref)
	if !ok || defs == nil {
		return nil, false
	}
	target, ok := defs[name]
	return target, ok
}

// localRefName extracts NAME from "#/$defs/NAME" or "#/definitions/NAME";
// any other shape (remote, JSON-pointer-into-a-schema, etc.) is rejected.
func localRefName(ref string) (string, bool) {
	const defsPrefix = "#/$defs/"
	const definitionsPrefix = "#/definitions/"
	if len(ref) > len(defsPrefix) && ref[:len(defsPrefix)] == defsPrefix {
		return ref[len(defsPrefix):], true
	}
	if len(ref) > len(definitionsPrefix) && ref[:len(definitionsPrefix)] == definitionsPrefix {
		return ref[len(definitionsPrefix):], true
	}
	return "", false
}

func sanitizeCombinator(val any, defs map[string]any, seen map[any]bool, depth int) any {
	arr, ok := val.([]any)
	if !ok || len(arr) == 0 {
		return map[string]any{"type": "object"}
	}
	var branches []any
	for _, b := range arr {
		if isNullBranch(b) {
			continue
		}
		if bm, ok := asObject(b); ok && len(bm) == 0 {
			branches = append(branches, map[string]any{"type": "object"})
			continue
		}
		branches = append(branches, sanitizeNode(b, defs, seen, depth+1))
	}
	if len(branches) == 0 {
		return map[string]any{"type": "object"}
	}
	for _, b := range branches {
		if bm, ok := asObject(b); ok {
			if t, _ := bm["type"].(string); t == "object" {
				return bm
			}
		}
	}
	return branches[0]
}

func isNullBranch(v any) bool {
	m, ok := asObject(v)
	if !ok {
		return false
	}
	if t, ok := m["type"].(string); ok && t == "null" {
		return true
	}
	if e, ok := m["enum"].([]any); ok && len(e) == 1 && e[0] == nil {
		return true
	}
	return false
}

// sanitizeType restricts a type keyword to the allowed scalar set. An
// array of types is treated as an anyOf of single-type branches and
// collapsed by the same preference rule as any other combinator (object
// first, else the first supported entry), keeping the output inside the
// upstream's combinator-free subset and sanitization idempotent. A single
// unsupported type returns nil so the caller drops the keyword.
func sanitizeType(val any) any {
	switch t := val.(type) {
	case string:
		if allowedTypes[t] {
			return t
		}
		return nil
	case []any:
		var kept []string
		for _, raw := range t {
			s, ok := raw.(string)
			if !ok || !allowedTypes[s] {
				continue
			}
			if s == "object" {
				return s
			}
			kept = append(kept, s)
		}
		if len(kept) == 0 {
			return nil
		}
		return kept[0]
	default:
		return nil
	}
}

func inferType(m map[string]any) (string, bool) {
	if _, ok := m["properties"]; ok {
		return "object", true
	}
	if _, ok := m["required"]; ok {
		return "object", true
	}
	if _, ok := m["items"]; ok {
		return "array", true
	}
	if _, ok := m["prefixItems"]; ok {
		return "array", true
	}
	return "", false
}

func sanitizeAdditionalProperties(val any, defs map[string]any, seen map[any]bool, depth int) any {
	switch t := val.(type) {
	case bool:
		return t
	case map[string]any:
		return sanitizeNode(t, defs, seen, depth+1)
	default:
		return false
	}
}

var numericKeys = []string{"minimum", "maximum", "multipleOf", "minLength", "maxLength", "minItems", "maxItems"}

func sanitizeNumericConstraints(out, original map[string]any) {
	for _, k := range numericKeys {
		v, ok := original[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			out[k] = n
		case int:
			out[k] = float64(n)
		default:
			delete(out, k)
		}
	}
	delete(out, "exclusiveMinimum")
	delete(out, "exclusiveMaximum")
}
