package scheduler

import (
	"github.com/livecompositor/core/internal/framequeue"
	"github.com/livecompositor/core/internal/registry"
	"github.com/livecompositor/core/internal/rendergraph"
	"github.com/livecompositor/core/internal/types"
)

// inputSourceFromBatch adapts one tick's synchronized frame batch to the
// render graph's InputSource contract. Only planar YUV420 frames can be
// CPU-composited here (see internal/rendergraph/color.go); an already
// GPU-uploaded texture frame has no CPU-side backing to read, so it is
// reported missing rather than silently skipped.
func inputSourceFromBatch(batch framequeue.Batch) rendergraph.InputSource {
	return func(id types.InputID) (rendergraph.RGBAImage, bool) {
		frame, ok := batch.Frames[id]
		if !ok {
			return rendergraph.RGBAImage{}, false
		}
		if frame.Data.Kind != types.FrameDataPlanarYUV420 {
			return rendergraph.RGBAImage{}, false
		}
		return rendergraph.YUVToRGBA(frame.Data.YUV, frame.Resolution.Width, frame.Resolution.Height), true
	}
}

// imageSourceFromRegistry adapts the registered static-image set to the
// render graph's ImageSource contract. Registered images are stored as raw
// RGBA8 bytes; anything else (e.g. a compressed format needing a decoder
// this core doesn't carry) is reported missing.
func imageSourceFromRegistry(reg *registry.Registry) rendergraph.ImageSource {
	return func(id types.RendererID) (rendergraph.RGBAImage, bool) {
		img, ok := reg.Image(id)
		if !ok {
			return rendergraph.RGBAImage{}, false
		}
		if len(img.Data) != img.Width*img.Height*4 {
			return rendergraph.RGBAImage{}, false
		}
		return rendergraph.RGBAImage{Width: img.Width, Height: img.Height, Pix: img.Data}, true
	}
}
