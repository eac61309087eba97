// Package registry holds the named maps of renderers and endpoints a
// pipeline exposes to its control plane: shaders, images, web-renderer
// instances, fonts, inputs, and outputs. Registration is single-writer
// serialized; render loops read through a shared lock so registration never
// blocks a tick for longer than a map access.
package registry

import (
	"sync"

	"github.com/livecompositor/core/internal/cerrors"
	"github.com/livecompositor/core/internal/types"
)

// Shader is a registered, structurally-validated WGSL shader.
type Shader struct {
	ID     types.RendererID
	Source string
	// ParamFields names the uniform parameter struct's fields in order, for
	// validating registration-time parameter values.
	ParamFields []ShaderParamField
}

// ShaderParamField describes one field of a shader's parameter struct.
type ShaderParamField struct {
	Name     string
	Kind     string // "f32", "i32", "u32", or "array"
	ArrayLen int    // meaningful when Kind == "array"
	ElemKind string // element kind when Kind == "array"
}

// Image is a registered static image asset.
type Image struct {
	ID      types.RendererID
	Data    []byte
	Format  string
	Width   int
	Height  int
}

// WebRenderer is a registered embedded-web-page renderer instance.
type WebRenderer struct {
	ID  types.RendererID
	URL string
}

// Font is a registered font file usable by Text components.
type Font struct {
	ID   types.RendererID
	Data []byte
}

// Registry is the pipeline's single source of truth for named resources.
// All maps share one lock: writers are registration calls (rare, off the
// render hot path); readers are render/layout lookups (frequent, brief).
type Registry struct {
	mu sync.RWMutex

	shaders      map[types.RendererID]*Shader
	images       map[types.RendererID]*Image
	webRenderers map[types.RendererID]*WebRenderer
	fonts        map[types.RendererID]*Font
	inputs       map[types.InputID]struct{}
	outputs      map[types.OutputID]struct{}

	// inUse tracks renderer ids referenced by at least one live scene, keyed
	// by renderer id regardless of kind (ids are unique per spec §3).
	inUse map[types.RendererID]int
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		shaders:      make(map[types.RendererID]*Shader),
		images:       make(map[types.RendererID]*Image),
		webRenderers: make(map[types.RendererID]*WebRenderer),
		fonts:        make(map[types.RendererID]*Font),
		inputs:       make(map[types.InputID]struct{}),
		outputs:      make(map[types.OutputID]struct{}),
		inUse:        make(map[types.RendererID]int),
	}
}

func (r *Registry) RegisterShader(s *Shader) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.shaders[s.ID]; exists {
		return cerrors.New(cerrors.KindDuplicateID, "shader %q already registered", s.ID)
	}
	r.shaders[s.ID] = s
	return nil
}

func (r *Registry) UnregisterShader(id types.RendererID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inUse[id] > 0 {
		return cerrors.New(cerrors.KindInUse, "shader %q is referenced by a live scene", id)
	}
	if _, exists := r.shaders[id]; !exists {
		return cerrors.New(cerrors.KindUnknownRef, "shader %q not registered", id)
	}
	delete(r.shaders, id)
	return nil
}

func (r *Registry) Shader(id types.RendererID) (*Shader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shaders[id]
	return s, ok
}

func (r *Registry) RegisterImage(img *Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.images[img.ID]; exists {
		return cerrors.New(cerrors.KindDuplicateID, "image %q already registered", img.ID)
	}
	r.images[img.ID] = img
	return nil
}

func (r *Registry) UnregisterImage(id types.RendererID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inUse[id] > 0 {
		return cerrors.New(cerrors.KindInUse, "image %q is referenced by a live scene", id)
	}
	if _, exists := r.images[id]; !exists {
		return cerrors.New(cerrors.KindUnknownRef, "image %q not registered", id)
	}
	delete(r.images, id)
	return nil
}

func (r *Registry) Image(id types.RendererID) (*Image, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	img, ok := r.images[id]
	return img, ok
}

func (r *Registry) RegisterWebRenderer(w *WebRenderer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.webRenderers[w.ID]; exists {
		return cerrors.New(cerrors.KindDuplicateID, "web renderer %q already registered", w.ID)
	}
	r.webRenderers[w.ID] = w
	return nil
}

func (r *Registry) UnregisterWebRenderer(id types.RendererID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inUse[id] > 0 {
		return cerrors.New(cerrors.KindInUse, "web renderer %q is referenced by a live scene", id)
	}
	if _, exists := r.webRenderers[id]; !exists {
		return cerrors.New(cerrors.KindUnknownRef, "web renderer %q not registered", id)
	}
	delete(r.webRenderers, id)
	return nil
}

func (r *Registry) RegisterFont(f *Font) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.fonts[f.ID]; exists {
		return cerrors.New(cerrors.KindDuplicateID, "font %q already registered", f.ID)
	}
	r.fonts[f.ID] = f
	return nil
}

func (r *Registry) UnregisterFont(id types.RendererID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inUse[id] > 0 {
		return cerrors.New(cerrors.KindInUse, "font %q is referenced by a live scene", id)
	}
	if _, exists := r.fonts[id]; !exists {
		return cerrors.New(cerrors.KindUnknownRef, "font %q not registered", id)
	}
	delete(r.fonts, id)
	return nil
}

func (r *Registry) RegisterInputID(id types.InputID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.inputs[id]; exists {
		return cerrors.New(cerrors.KindDuplicateID, "input %q already registered", id)
	}
	r.inputs[id] = struct{}{}
	return nil
}

func (r *Registry) UnregisterInputID(id types.InputID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.inputs[id]; !exists {
		return cerrors.New(cerrors.KindUnknownRef, "input %q not registered", id)
	}
	delete(r.inputs, id)
	return nil
}

func (r *Registry) RegisterOutputID(id types.OutputID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.outputs[id]; exists {
		return cerrors.New(cerrors.KindDuplicateID, "output %q already registered", id)
	}
	r.outputs[id] = struct{}{}
	return nil
}

func (r *Registry) UnregisterOutputID(id types.OutputID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.outputs[id]; !exists {
		return cerrors.New(cerrors.KindUnknownRef, "output %q not registered", id)
	}
	delete(r.outputs, id)
	return nil
}

// SetSceneReferences replaces the set of renderer ids referenced by a
// scene's previous and new component trees, adjusting the in-use refcounts
// that UnregisterX checks. Scene updates (SceneState.UpdateScene and the
// scheduled updates) do not call it, so the refcounts change only through
// explicit calls to this method.
func (r *Registry) SetSceneReferences(previouslyReferenced, nowReferenced []types.RendererID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range previouslyReferenced {
		if r.inUse[id] > 0 {
			r.inUse[id]--
		}
	}
	for _, id := range nowReferenced {
		r.inUse[id]++
	}
}

// OutputIDs returns the currently registered output ids, for /status.
func (r *Registry) OutputIDs() []types.OutputID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]types.OutputID, 0, len(r.outputs))
	for id := range r.outputs {
		ids = append(ids, id)
	}
	return ids
}

// InputIDs returns the currently registered input ids, for /status.
func (r *Registry) InputIDs() []types.InputID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]types.InputID, 0, len(r.inputs))
	for id := range r.inputs {
		ids = append(ids, id)
	}
	return ids
}
