package schema

import (
	"encoding/json"
	"reflect"
	"testing"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("decode %q: %v", s, err)
	}
	return v
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		`{"$schema":"x","anyOf":[{"type":"null"},{"properties":{"x":{"const":3}}}]}`,
		`{"type":["string","null"],"enum":["a","b"]}`,
		`{"properties":{"a":{"type":"integer","exclusiveMinimum":0}},"additionalProperties":false}`,
		`{"const":42}`,
	}
	for _, in := range inputs {
		v := decode(t, in)
		once := Sanitize(v)
		twice := Sanitize(once)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("not idempotent for %s:\n once=%#v\n twice=%#v", in, once, twice)
		}
	}
}

func TestSanitizeCombinatorCollapseAndConstEnum(t *testing.T) {
	v := decode(t, `{"$schema":"https://json-schema.org/draft/2020-12/schema","anyOf":[{"type":"null"},{"properties":{"x":{"const":3}}}]}`)
	got := Sanitize(v).(map[string]any)
	if got["type"] != "object" {
		t.Fatalf("expected type object, got %#v", got)
	}
	props, ok := got["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected properties map, got %#v", got)
	}
	x, ok := props["x"].(map[string]any)
	if !ok {
		t.Fatalf("expected x property, got %#v", props)
	}
	enum, ok := x["enum"].([]any)
	if !ok || len(enum) != 1 || enum[0] != float64(3) {
		t.Fatalf("expected enum [3], got %#v", x)
	}
}

func TestSanitizeDropsBannedKeys(t *testing.T) {
	v := decode(t, `{"$schema":"s","title":"t","deprecated":true,"readOnly":true,"writeOnly":true,"examples":[1],"patternProperties":{"^x":{}},"type":"object"}`)
	got := Sanitize(v).(map[string]any)
	for _, banned := range []string{"$schema", "title", "deprecated", "readOnly", "writeOnly", "examples", "patternProperties"} {
		if _, present := got[banned]; present {
			t.Errorf("expected %q to be dropped, got %#v", banned, got)
		}
	}
}

func TestSanitizeEnumGuardedByType(t *testing.T) {
	v := decode(t, `{"type":"integer","enum":[1,2,3]}`)
	got := Sanitize(v).(map[string]any)
	if _, present := got["enum"]; present {
		t.Errorf("expected enum stripped for non-string type, got %#v", got)
	}

	v2 := decode(t, `{"type":"string","enum":["a","b"]}`)
	got2 := Sanitize(v2).(map[string]any)
	if _, present := got2["enum"]; !present {
		t.Errorf("expected enum kept for string type, got %#v", got2)
	}
}

func TestSanitizeTypeInference(t *testing.T) {
	v := decode(t, `{"properties":{"a":{"type":"string"}}}`)
	got := Sanitize(v).(map[string]any)
	if got["type"] != "object" {
		t.Errorf("expected inferred object type, got %#v", got)
	}

	v2 := decode(t, `{"items":{"type":"string"}}`)
	got2 := Sanitize(v2).(map[string]any)
	if got2["type"] != "array" {
		t.Errorf("expected inferred array type, got %#v", got2)
	}
}

func TestSanitizeTypeArrayCollapses(t *testing.T) {
	v := decode(t, `{"type":["null","integer","object"]}`)
	got := Sanitize(v).(map[string]any)
	if got["type"] != "object" {
		t.Errorf("expected object preferred, got %#v", got)
	}

	v2 := decode(t, `{"type":["frob","integer"]}`)
	got2 := Sanitize(v2).(map[string]any)
	if got2["type"] != "integer" {
		t.Errorf("expected first supported type, got %#v", got2)
	}

	v3 := decode(t, `{"type":"frob"}`)
	got3 := Sanitize(v3).(map[string]any)
	if _, present := got3["type"]; present {
		t.Errorf("expected unsupported type dropped, got %#v", got3)
	}
}

func TestSanitizeCyclicRef(t *testing.T) {
	v := decode(t, `{"$defs":{"Node":{"type":"object","properties":{"next":{"$ref":"#/$defs/Node"}}}},"$ref":"#/$defs/Node"}`)
	got := Sanitize(v)
	if _, ok := got.(map[string]any); !ok {
		t.Fatalf("expected a map result, got %#v", got)
	}
}

func TestSanitizeNameDedup(t *testing.T) {
	got := DedupeNames([]string{"search", "search", "search", "fetch"})
	want := []string{"search", "search_2", "search_3", "fetch"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestSanitizeToolName(t *testing.T) {
	cases := map[string]string{
		"get weather!!":  "getweather",
		"123start":       "start",
		"valid_name-1.2": "valid_name-1.2",
	}
	for in, want := range cases {
		if got := SanitizeToolName(in); got != want {
			t.Errorf("SanitizeToolName(%q) = %q, want %q", in, got, want)
		}
	}
}
