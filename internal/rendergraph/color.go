// Package rendergraph evaluates a resolved scene layout into output pixel
// data: YUV<->RGBA color conversion, per-node fallback propagation, and
// compositing child textures into their parent's rectangle. There is no
// real GPU backend here: this implementation works entirely on CPU-side
// pixel buffers instead.
package rendergraph

import "github.com/livecompositor/core/internal/types"

// RGBAImage is a CPU-side RGBA8 pixel buffer, the stand-in for a GPU
// node-texture.
type RGBAImage struct {
	Width, Height int
	Pix           []byte // 4 bytes/pixel, row-major
}

// NewRGBAImage allocates a transparent-black image of the given size.
func NewRGBAImage(w, h int) RGBAImage {
	return RGBAImage{Width: w, Height: h, Pix: make([]byte, w*h*4)}
}

func (img RGBAImage) at(x, y int) (r, g, b, a byte) {
	i := (y*img.Width + x) * 4
	return img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]
}

func (img RGBAImage) set(x, y int, r, g, b, a byte) {
	i := (y*img.Width + x) * 4
	img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r, g, b, a
}

// studio601 and full601 are the BT.601 YCbCr<->RGB coefficient sets for
// studio-range (YUV420) and full-range/JPEG (YUVJ420) frames respectively.
type coefficients struct {
	yOff, cOff     float64
	yScale, cScale float64
}

var (
	studio601 = coefficients{yOff: 16, cOff: 128, yScale: 255.0 / 219.0, cScale: 255.0 / 224.0}
	full601   = coefficients{yOff: 0, cOff: 128, yScale: 1.0, cScale: 1.0}
)

func coeffsFor(r types.ColorRange) coefficients {
	if r == types.ColorRangeFull {
		return full601
	}
	return studio601
}

// YUVToRGBA uploads the three 8-bit planes of a PlanarYUV420 frame and
// converts to RGBA8, mirroring the single-draw-pass conversion a real GPU
// backend would perform with a fragment shader sampling three textures.
func YUVToRGBA(frame types.PlanarYUV420, width, height int) RGBAImage {
	out := NewRGBAImage(width, height)
	c := coeffsFor(frame.Range)
	chromaW := (width + 1) / 2

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			yi := y*width + x
			ci := (y/2)*chromaW + x/2
			if yi >= len(frame.Y) || ci >= len(frame.U) || ci >= len(frame.V) {
				continue
			}
			Y := (float64(frame.Y[yi]) - c.yOff) * c.yScale
			Cb := (float64(frame.U[ci]) - c.cOff) * c.cScale
			Cr := (float64(frame.V[ci]) - c.cOff) * c.cScale

			r := Y + 1.402*Cr
			g := Y - 0.344136*Cb - 0.714136*Cr
			b := Y + 1.772*Cb

			out.set(x, y, clampByte(r), clampByte(g), clampByte(b), 255)
		}
	}
	return out
}

// RGBAToYUV converts an RGBA8 image back to planar YUV420 using the
// matching coefficient set. Chroma planes are subsampled 2x2 by averaging.
func RGBAToYUV(img RGBAImage, r types.ColorRange) types.PlanarYUV420 {
	w, h := img.Width, img.Height
	chromaW := (w + 1) / 2
	chromaH := (h + 1) / 2

	yPlane := make([]byte, w*h)
	uAccum := make([]float64, chromaW*chromaH)
	vAccum := make([]float64, chromaW*chromaH)
	uCount := make([]int, chromaW*chromaH)

	c := coeffsFor(r)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			red, green, blue, _ := img.at(x, y)
			R, G, B := float64(red), float64(green), float64(blue)

			Y := 0.299*R + 0.587*G + 0.114*B
			Cb := -0.168736*R - 0.331264*G + 0.5*B
			Cr := 0.5*R - 0.418688*G - 0.081312*B

			yPlane[y*w+x] = clampByte(Y/c.yScale + c.yOff)

			ci := (y/2)*chromaW + x/2
			uAccum[ci] += Cb/c.cScale + c.cOff
			vAccum[ci] += Cr/c.cScale + c.cOff
			uCount[ci]++
		}
	}

	uPlane := make([]byte, chromaW*chromaH)
	vPlane := make([]byte, chromaW*chromaH)
	for i := range uPlane {
		if uCount[i] == 0 {
			uPlane[i], vPlane[i] = 128, 128
			continue
		}
		uPlane[i] = clampByte(uAccum[i] / float64(uCount[i]))
		vPlane[i] = clampByte(vAccum[i] / float64(uCount[i]))
	}

	return types.PlanarYUV420{Y: yPlane, U: uPlane, V: vPlane, Range: r}
}

func clampByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v + 0.5)
}
