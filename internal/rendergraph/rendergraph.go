package rendergraph

import (
	"github.com/livecompositor/core/internal/scene"
	"github.com/livecompositor/core/internal/types"
)

// InputSource resolves an InputStream component to its current RGBA
// texture. false means the input has no usable frame this tick (already
// decided upstream by FrameQueue's fallback-timeout check) — the render
// graph treats that exactly like a missing GPU texture.
type InputSource func(id types.InputID) (RGBAImage, bool)

// ImageSource resolves a registered static Image asset to its RGBA texture.
type ImageSource func(id types.RendererID) (RGBAImage, bool)

// Evaluate walks a resolved NestedLayout depth-first, post-order, producing
// one RGBA texture per node — mirroring render()'s per-node-texture model,
// minus an actual GPU backend. It returns the
// node's texture and whether the node counts as "missing" to its parent.
func Evaluate(node scene.NestedLayout, inputs InputSource, images ImageSource) (RGBAImage, bool) {
	if node.Content == scene.ContentNode && node.Component != nil {
		switch node.Component.Kind {
		case scene.KindInputStream:
			img, ok := inputs(node.Component.InputID)
			if !ok {
				return clearedLike(node), true
			}
			return img, false
		case scene.KindImage:
			img, ok := images(node.Component.ImageID)
			if !ok {
				return clearedLike(node), true
			}
			return img, false
		case scene.KindText, scene.KindWebView:
			// No text shaping / embedded browser backend in this core: a
			// leaf texture always "renders" (never missing), just blank.
			return clearedLike(node), false
		case scene.KindShader:
			return evaluateComposite(node, inputs, images)
		}
	}
	return evaluateComposite(node, inputs, images)
}

func evaluateComposite(node scene.NestedLayout, inputs InputSource, images ImageSource) (RGBAImage, bool) {
	out := clearedLike(node)
	if node.Content == scene.ContentColor {
		fill(out, node.Color)
	}

	anyMissing := false
	allMissing := len(node.Children) > 0

	for i := range node.Children {
		child := node.Children[i]
		img, missing := Evaluate(child, inputs, images)
		if missing {
			anyMissing = true
		} else {
			allMissing = false
			compositeOnto(out, img, child, node)
		}
	}

	if finalMissing(node.Fallback, anyMissing, allMissing, len(node.Children)) {
		return clearedLike(node), true
	}
	return out, false
}

func finalMissing(policy scene.FallbackPolicy, anyMissing, allMissing bool, childCount int) bool {
	switch policy {
	case scene.FallbackIfAllInputsMissing:
		return childCount > 0 && allMissing
	case scene.FallbackIfAnyInputMissing:
		return anyMissing
	default: // NeverFallback
		return false
	}
}

func clearedLike(node scene.NestedLayout) RGBAImage {
	w, h := int(node.Width), int(node.Height)
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return NewRGBAImage(w, h)
}

func fill(img RGBAImage, c scene.Color) {
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			img.set(x, y, c.R, c.G, c.B, c.A)
		}
	}
}

// compositeOnto draws src (child's own texture, in its local size) onto dst
// at the position/scale the layout assigned it, alpha-blending over
// whatever dst already holds.
func compositeOnto(dst, src RGBAImage, child, parent scene.NestedLayout) {
	destW := int(child.Width * child.ScaleX)
	destH := int(child.Height * child.ScaleY)
	if destW <= 0 || destH <= 0 || src.Width == 0 || src.Height == 0 {
		return
	}
	offX := int(child.Left - parent.Left)
	offY := int(child.Top - parent.Top)

	for dy := 0; dy < destH; dy++ {
		py := offY + dy
		if py < 0 || py >= dst.Height {
			continue
		}
		sy := dy * src.Height / destH
		for dx := 0; dx < destW; dx++ {
			px := offX + dx
			if px < 0 || px >= dst.Width {
				continue
			}
			sx := dx * src.Width / destW
			r, g, b, a := src.at(sx, sy)
			blendOnto(dst, px, py, r, g, b, a)
		}
	}
}

func blendOnto(dst RGBAImage, x, y int, r, g, b, a byte) {
	if a == 255 {
		dst.set(x, y, r, g, b, a)
		return
	}
	if a == 0 {
		return
	}
	dr, dg, db, da := dst.at(x, y)
	af := float64(a) / 255
	blend := func(s, d byte) byte { return byte(float64(s)*af + float64(d)*(1-af)) }
	dst.set(x, y, blend(r, dr), blend(g, dg), blend(b, db), maxByte(a, da))
}

func maxByte(a, b byte) byte {
	if a > b {
		return a
	}
	return b
}
