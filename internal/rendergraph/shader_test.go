package rendergraph

import "testing"

const validShader = `
struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) tex_coords: vec2<f32>,
};

@group(1) @binding(0)
var<uniform> params: Params;

@vertex
fn vs_main(input: VertexInput) -> VertexOutput {
    return VertexOutput();
}
`

func TestValidateVertexContractAccepts(t *testing.T) {
	if err := ValidateVertexContract(validShader); err != nil {
		t.Fatalf("expected a valid shader to pass, got %v", err)
	}
}

func TestValidateVertexContractRejectsMissingEntrypoint(t *testing.T) {
	err := ValidateVertexContract(`struct VertexInput { @location(0) position: vec3<f32>, @location(1) tex_coords: vec2<f32>, };`)
	if err == nil {
		t.Fatal("expected missing @vertex entrypoint to fail validation")
	}
}

func TestValidateVertexContractRejectsWrongBindingGroup(t *testing.T) {
	bad := `
struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) tex_coords: vec2<f32>,
};
@group(0) @binding(0)
var<uniform> params: Params;
@vertex
fn vs_main(input: VertexInput) -> VertexOutput { return VertexOutput(); }
`
	if err := ValidateVertexContract(bad); err == nil {
		t.Fatal("expected a uniform bound outside group 1/binding 0 to fail validation")
	}
}

func TestValidateParamsChecksArrayLength(t *testing.T) {
	fields := []ParamField{{Name: "weights", Kind: "array", ArrayLen: 3, ElemKind: "f32"}}
	values := map[string]interface{}{"weights": []interface{}{1.0, 2.0}}
	if err := ValidateParams(fields, values); err == nil {
		t.Fatal("expected mismatched array length to fail validation")
	}
}

func TestValidateParamsAcceptsMatchingShape(t *testing.T) {
	fields := []ParamField{
		{Name: "intensity", Kind: "f32"},
		{Name: "weights", Kind: "array", ArrayLen: 2, ElemKind: "f32"},
	}
	values := map[string]interface{}{
		"intensity": 0.5,
		"weights":   []interface{}{1.0, 2.0},
	}
	if err := ValidateParams(fields, values); err != nil {
		t.Fatalf("expected matching parameter shape to pass, got %v", err)
	}
}
