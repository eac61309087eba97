package rendergraph

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/livecompositor/core/internal/cerrors"
)

// This file's WGSL structural validation is built on the standard library
// rather than a third-party dependency: none
// of the retrieval pack's example repos parse or introspect shader source
// (WGSL, GLSL or otherwise), so there is no library choice to ground this
// on. A hand-rolled regexp scan over the declared header shape is the
// narrowest thing that can enforce the contract below.

var (
	vertexInputRe  = regexp.MustCompile(`struct\s+VertexInput\s*\{([^}]*)\}`)
	fieldRe        = regexp.MustCompile(`(\w+)\s*:\s*([\w<>,\s]+?)\s*,?\s*@location\((\d+)\)`)
	fieldReAlt     = regexp.MustCompile(`@location\((\d+)\)\s*(\w+)\s*:\s*([\w<>]+)`)
	uniformBindRe  = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var<uniform>\s*(\w+)\s*:\s*(\w+)`)
	vertexEntryRe  = regexp.MustCompile(`@vertex\s*\n?\s*fn\s+\w+\s*\(([^)]*)\)`)
)

// ValidateVertexContract checks that source declares a @vertex entrypoint
// taking a VertexInput with position: vec3<f32> @location(0) and
// tex_coords: vec2<f32> @location(1), plus a uniform binding at group 1,
// binding 0 for user parameters.
func ValidateVertexContract(source string) error {
	if !vertexEntryRe.MatchString(source) {
		return cerrors.New(cerrors.KindInvalidScene, "shader: no @vertex entrypoint found")
	}

	structMatch := vertexInputRe.FindStringSubmatch(source)
	if structMatch == nil {
		return cerrors.New(cerrors.KindInvalidScene, "shader: no VertexInput struct declared")
	}
	fields := parseFields(structMatch[1])

	if err := requireField(fields, "position", "vec3<f32>", 0); err != nil {
		return err
	}
	if err := requireField(fields, "tex_coords", "vec2<f32>", 1); err != nil {
		return err
	}

	binding := uniformBindRe.FindStringSubmatch(source)
	if binding == nil {
		return cerrors.New(cerrors.KindInvalidScene, "shader: no uniform binding declared")
	}
	if binding[1] != "1" || binding[2] != "0" {
		return cerrors.New(cerrors.KindInvalidScene, "shader: user parameter uniform must bind at group 1, binding 0, got group %s binding %s", binding[1], binding[2])
	}
	return nil
}

type shaderField struct {
	name, typ string
	location  int
}

func parseFields(body string) []shaderField {
	var out []shaderField
	// Attribute-first fields (`@location(n) name: type`) go first so that
	// requireField sees them before any cross-line match of fieldRe.
	for _, m := range fieldReAlt.FindAllStringSubmatch(body, -1) {
		out = append(out, shaderField{name: m[2], typ: strings.TrimSpace(m[3]), location: atoi(m[1])})
	}
	for _, m := range fieldRe.FindAllStringSubmatch(body, -1) {
		out = append(out, shaderField{name: m[1], typ: strings.TrimSpace(m[2]), location: atoi(m[3])})
	}
	return out
}

func requireField(fields []shaderField, name, typ string, location int) error {
	for _, f := range fields {
		if f.name == name {
			if f.typ != typ || f.location != location {
				return cerrors.New(cerrors.KindInvalidScene,
					"shader: VertexInput.%s must be %s @location(%d), got %s @location(%d)",
					name, typ, location, f.typ, f.location)
			}
			return nil
		}
	}
	return cerrors.New(cerrors.KindInvalidScene, "shader: VertexInput missing required field %q", name)
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// ParamField describes one field of a shader's declared parameter struct,
// used to validate registration-time parameter values structurally.
type ParamField struct {
	Name     string
	Kind     string // "f32", "i32", "u32", "array"
	ArrayLen int
	ElemKind string
}

// ValidateParams checks a caller-supplied parameter value map against the
// shader's declared parameter struct: field count, field presence, array
// length, and scalar kind (of each element, for array fields). Only one level
// is checked: array elements must be scalars, and nested arrays or structs
// are not supported.
func ValidateParams(fields []ParamField, values map[string]interface{}) error {
	if len(values) != len(fields) {
		return cerrors.New(cerrors.KindInvalidScene, "shader: expected %d parameter fields, got %d", len(fields), len(values))
	}
	for _, f := range fields {
		v, ok := values[f.Name]
		if !ok {
			return cerrors.New(cerrors.KindInvalidScene, "shader: missing parameter %q", f.Name)
		}
		if err := validateScalarOrArray(f, v); err != nil {
			return err
		}
	}
	return nil
}

func validateScalarOrArray(f ParamField, v interface{}) error {
	if f.Kind == "array" {
		arr, ok := v.([]interface{})
		if !ok {
			return cerrors.New(cerrors.KindInvalidScene, "shader: parameter %q must be an array", f.Name)
		}
		if len(arr) != f.ArrayLen {
			return cerrors.New(cerrors.KindInvalidScene, "shader: parameter %q must have %d elements, got %d", f.Name, f.ArrayLen, len(arr))
		}
		for i, elem := range arr {
			if err := validateScalarKind(f.ElemKind, elem); err != nil {
				return fmt.Errorf("parameter %q[%d]: %w", f.Name, i, err)
			}
		}
		return nil
	}
	return validateScalarKind(f.Kind, v)
}

func validateScalarKind(kind string, v interface{}) error {
	switch kind {
	case "f32":
		if _, ok := v.(float64); !ok {
			return cerrors.New(cerrors.KindInvalidScene, "expected f32, got %T", v)
		}
	case "i32", "u32":
		switch n := v.(type) {
		case float64:
			if n != float64(int64(n)) {
				return cerrors.New(cerrors.KindInvalidScene, "expected integer %s, got fractional value %v", kind, n)
			}
		default:
			return cerrors.New(cerrors.KindInvalidScene, "expected %s, got %T", kind, v)
		}
	default:
		return cerrors.New(cerrors.KindInvalidScene, "unknown scalar kind %q", kind)
	}
	return nil
}
