package types

import "time"

// Resolution is a pixel width/height pair.
type Resolution struct {
	Width  int
	Height int
}

// ColorRange selects the YUV<->RGBA coefficient set used by color conversion.
type ColorRange int

const (
	// ColorRangeStudio uses BT.601 studio-range coefficients (YUV420).
	ColorRangeStudio ColorRange = iota
	// ColorRangeFull uses full-range (JPEG) coefficients (YUVJ420).
	ColorRangeFull
)

// PlanarYUV420 holds the three 8-bit planes of a YUV 4:2:0 frame.
// U and V planes are half resolution in both dimensions.
type PlanarYUV420 struct {
	Y, U, V []byte
	Range   ColorRange
}

// TextureHandle is an opaque reference to a GPU RGBA8 texture. The concrete
// GPU backend (wgpu, Vulkan, ...) is outside this package's scope; render
// nodes only need to pass handles around and know whether one is empty.
type TextureHandle struct {
	id    uint64
	valid bool
}

// EmptyTexture returns the handle used to mark a fallback/cleared texture.
func EmptyTexture() TextureHandle { return TextureHandle{} }

// NewTextureHandle wraps a backend-assigned texture id.
func NewTextureHandle(id uint64) TextureHandle { return TextureHandle{id: id, valid: true} }

// Valid reports whether this handle refers to real GPU-backed content.
func (t TextureHandle) Valid() bool { return t.valid }

// ID returns the backend texture id. Only meaningful when Valid().
func (t TextureHandle) ID() uint64 { return t.id }

// FrameDataKind discriminates the FrameData tagged variant.
type FrameDataKind int

const (
	FrameDataPlanarYUV420 FrameDataKind = iota
	FrameDataRGBATexture
)

// FrameData is the tagged variant over a decoded planar YUV420 frame and an
// already GPU-uploaded RGBA texture.
type FrameData struct {
	Kind    FrameDataKind
	YUV     PlanarYUV420
	Texture TextureHandle
}

// NewYUVFrameData builds a FrameData carrying planar YUV420 planes.
func NewYUVFrameData(y, u, v []byte, r ColorRange) FrameData {
	return FrameData{Kind: FrameDataPlanarYUV420, YUV: PlanarYUV420{Y: y, U: u, V: v, Range: r}}
}

// NewTextureFrameData builds a FrameData carrying an already-uploaded RGBA texture.
func NewTextureFrameData(h TextureHandle) FrameData {
	return FrameData{Kind: FrameDataRGBATexture, Texture: h}
}

// Frame is an immutable decoded video frame. Ownership passes from decoder to
// queue to renderer to drop — callers must not mutate Data after Enqueue.
type Frame struct {
	Data       FrameData
	Resolution Resolution
	PTS        time.Duration
}
