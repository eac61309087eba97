package rendergraph

import (
	"testing"

	"github.com/livecompositor/core/internal/scene"
	"github.com/livecompositor/core/internal/types"
)

func TestFallbackPropagatesToRoot(t *testing.T) {
	tree := scene.Component{
		Kind:     scene.KindRescaler,
		Fallback: scene.FallbackIfAllInputsMissing,
		Children: []scene.Component{
			{
				Kind:     scene.KindShader,
				Fallback: scene.FallbackIfAnyInputMissing,
				Children: []scene.Component{
					{Kind: scene.KindInputStream, InputID: "a"},
					{Kind: scene.KindInputStream, InputID: "b"},
				},
			},
		},
	}
	layout := scene.ComputeLayout(tree, scene.Resolution{Width: 100, Height: 100})

	solid := NewRGBAImage(10, 10)
	fillRGBA(solid, 255, 0, 0, 255)

	inputs := func(id types.InputID) (RGBAImage, bool) {
		if id == "a" {
			return RGBAImage{}, false
		}
		return solid, true
	}
	images := func(id types.RendererID) (RGBAImage, bool) { return RGBAImage{}, false }

	out, missing := Evaluate(layout, inputs, images)
	if !missing {
		t.Fatal("expected fallback to propagate all the way to the root")
	}
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			r, g, b, a := out.at(x, y)
			if r != 0 || g != 0 || b != 0 || a != 0 {
				t.Fatalf("expected a cleared (transparent black) output, got (%d,%d,%d,%d) at (%d,%d)", r, g, b, a, x, y)
			}
		}
	}
}

func TestNeverFallbackKeepsRenderingWithMissingInput(t *testing.T) {
	tree := scene.Component{
		Kind:     scene.KindView,
		Fallback: scene.NeverFallback,
		Children: []scene.Component{
			{Kind: scene.KindInputStream, InputID: "missing", Position: scene.Position{Width: intPtrRG(50), Height: intPtrRG(50)}},
		},
	}
	layout := scene.ComputeLayout(tree, scene.Resolution{Width: 100, Height: 100})

	inputs := func(id types.InputID) (RGBAImage, bool) { return RGBAImage{}, false }
	images := func(id types.RendererID) (RGBAImage, bool) { return RGBAImage{}, false }

	_, missing := Evaluate(layout, inputs, images)
	if missing {
		t.Fatal("expected NeverFallback root to still render despite a missing child")
	}
}

func intPtrRG(v int) *int { return &v }
