package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/livecompositor/core/internal/audiomixer"
	"github.com/livecompositor/core/internal/cerrors"
	"github.com/livecompositor/core/internal/eventbus"
	"github.com/livecompositor/core/internal/pipeline"
	"github.com/livecompositor/core/internal/registry"
	"github.com/livecompositor/core/internal/rendergraph"
	"github.com/livecompositor/core/internal/scene"
	"github.com/livecompositor/core/internal/scheduler"
	"github.com/livecompositor/core/internal/types"
)

// requestIDMiddleware stamps every request with a UUID (echoed back as
// X-Request-Id) rather than chi's default counter-based id, so control
// plane logs correlate against external ingest/WHIP logs that already key
// on UUIDs.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

// Server holds everything the control plane needs to route and answer
// requests: the pipeline it manages plus an assigned-port counter for RTP
// inputs (spec §6 "Returns assigned port for RTP").
type Server struct {
	pipeline *pipeline.Pipeline
	log      *logrus.Entry

	nextRTPPort atomic.Int64
}

// NewServer builds a Server around p. basePort seeds the RTP port allocator.
func NewServer(p *pipeline.Pipeline, log *logrus.Entry, basePort int) *Server {
	s := &Server{pipeline: p, log: log}
	s.nextRTPPort.Store(int64(basePort))
	return s
}

// Router builds the chi router exposing spec §6's endpoints, plus
// Prometheus /metrics and the teacher's PanicRecoveryMiddleware-equivalent
// (here: chi's Recoverer, which turns a panic in a handler into a bare 500
// response; it does not go through writeError, so no {error:...} envelope
// is written).
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Post("/input/{id}/register", s.handleInputRegister)
	r.Post("/input/{id}/unregister", s.handleInputUnregister)

	r.Post("/output/{id}/register", s.handleOutputRegister)
	r.Post("/output/{id}/update", s.handleOutputUpdate)
	r.Post("/output/{id}/unregister", s.handleOutputUnregister)

	r.Post("/shader/{id}/register", s.handleShaderRegister)
	r.Post("/shader/{id}/unregister", s.handleShaderUnregister)
	r.Post("/image/{id}/register", s.handleImageRegister)
	r.Post("/image/{id}/unregister", s.handleImageUnregister)
	r.Post("/font/register", s.handleFontRegister)
	r.Post("/font/{id}/unregister", s.handleFontUnregister)

	r.Post("/start", s.handleStart)
	r.Get("/status", s.handleStatus)
	r.Get("/ws", s.handleWS)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders the {error:{kind,message}} envelope spec §7 describes,
// choosing the HTTP status from the error's Kind when it's one of ours.
func writeError(w http.ResponseWriter, err error) {
	if cerr, ok := err.(*cerrors.Error); ok {
		writeJSON(w, cerr.Kind.HTTPStatus(), map[string]interface{}{
			"error": map[string]string{"kind": string(cerr.Kind), "message": cerr.Message},
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]string{"kind": "Internal", "message": err.Error()},
	})
}

// --- /input -----------------------------------------------------------

type inputRegisterRequest struct {
	Type            string `json:"type"` // rtp_stream | mp4 | whip | decklink
	OffsetMS        *int64 `json:"offset_ms,omitempty"`
	Required        bool   `json:"required,omitempty"`
	RequiredTimeoutMS int64  `json:"required_timeout_ms,omitempty"`
	AudioSampleRate int    `json:"audio_sample_rate,omitempty"`
	Stereo          bool   `json:"stereo,omitempty"`
}

type inputRegisterResponse struct {
	Port  int    `json:"port,omitempty"`
	Token string `json:"bearer_token,omitempty"`
}

func (s *Server) handleInputRegister(w http.ResponseWriter, r *http.Request) {
	id := types.InputID(chi.URLParam(r, "id"))

	var body inputRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, cerrors.New(cerrors.KindInvalidScene, "invalid JSON body: %v", err))
		return
	}

	var offset *time.Duration
	if body.OffsetMS != nil {
		d := time.Duration(*body.OffsetMS) * time.Millisecond
		offset = &d
	}
	timeout := time.Duration(body.RequiredTimeoutMS) * time.Millisecond

	if err := s.pipeline.RegisterVideoInput(id, pipeline.VideoInputOptions{
		Offset:          offset,
		Required:        body.Required,
		RequiredTimeout: timeout,
	}); err != nil {
		writeError(w, err)
		return
	}

	if body.AudioSampleRate > 0 {
		_ = s.pipeline.RegisterAudioInput(id, offset, body.Stereo, uint32(body.AudioSampleRate))
	}

	resp := inputRegisterResponse{}
	switch body.Type {
	case "rtp_stream":
		resp.Port = int(s.nextRTPPort.Add(1))
	case "whip":
		secret := whipSecret()
		if len(secret) == 0 {
			writeError(w, errors.New("WHIP registration unavailable: LIVE_COMPOSITOR_WHIP_JWT_SECRET is not set"))
			return
		}
		token, err := IssueWHIPToken(string(id), secret)
		if err != nil {
			writeError(w, fmt.Errorf("failed to issue WHIP token: %w", err))
			return
		}
		resp.Token = token
	}

	writeJSON(w, http.StatusOK, resp)
}

type unregisterRequest struct {
	ScheduleTimeMS *int64 `json:"schedule_time_ms,omitempty"`
}

func (u unregisterRequest) at() *time.Duration {
	if u.ScheduleTimeMS == nil {
		return nil
	}
	d := time.Duration(*u.ScheduleTimeMS) * time.Millisecond
	return &d
}

func (s *Server) handleInputUnregister(w http.ResponseWriter, r *http.Request) {
	id := types.InputID(chi.URLParam(r, "id"))
	var body unregisterRequest
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.pipeline.UnregisterInput(id, body.at())
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- /output ------------------------------------------------------------

type outputRegisterRequest struct {
	Video *struct {
		Resolution struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"resolution"`
		Initial  json.RawMessage `json:"initial"`
		Required bool            `json:"required,omitempty"`
	} `json:"video,omitempty"`
	Audio *struct {
		Initial          mixSpecJSON `json:"initial"`
		MixingStrategy   string      `json:"mixing_strategy,omitempty"`
		Required         bool        `json:"required,omitempty"`
	} `json:"audio,omitempty"`
	SendEOSWhen *eosConditionJSON `json:"send_eos_when,omitempty"`
}

type mixSpecJSON struct {
	Inputs []struct {
		ID     string  `json:"input_id"`
		Volume float64 `json:"volume"`
	} `json:"inputs"`
	Stereo bool `json:"stereo,omitempty"`
}

type eosConditionJSON struct {
	Kind   string   `json:"kind"` // any_of | all_of | any_input | all_inputs
	Inputs []string `json:"inputs,omitempty"`
}

func buildMixSpec(m mixSpecJSON, strategy string) audiomixer.MixSpec {
	spec := audiomixer.MixSpec{Stereo: m.Stereo}
	if strategy == "sum_scale" {
		spec.Strategy = audiomixer.SumScale
	}
	for _, in := range m.Inputs {
		spec.Inputs = append(spec.Inputs, audiomixer.InputMix{ID: types.InputID(in.ID), Volume: in.Volume})
	}
	return spec
}

func buildEOSCondition(e *eosConditionJSON) scheduler.EOSCondition {
	if e == nil {
		return scheduler.NeverEOS()
	}
	ids := make([]types.InputID, len(e.Inputs))
	for i, id := range e.Inputs {
		ids[i] = types.InputID(id)
	}
	switch e.Kind {
	case "all_of", "all_inputs":
		return scheduler.AllInputsEOS(ids...)
	case "any_of", "any_input":
		return scheduler.AnyInputEOS(ids...)
	default:
		return scheduler.NeverEOS()
	}
}

func (s *Server) handleOutputRegister(w http.ResponseWriter, r *http.Request) {
	id := types.OutputID(chi.URLParam(r, "id"))
	var body outputRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, cerrors.New(cerrors.KindInvalidScene, "invalid JSON body: %v", err))
		return
	}

	eosWhen := buildEOSCondition(body.SendEOSWhen)

	if body.Video != nil {
		root, err := ParseScene(body.Video.Initial)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := validateSceneShaderParams(s.pipeline.Registry, root); err != nil {
			writeError(w, err)
			return
		}
		sink := scheduler.NewOutputSink(4)
		resolution := scene.Resolution{Width: body.Video.Resolution.Width, Height: body.Video.Resolution.Height}
		if err := s.pipeline.RegisterVideoOutput(id, scheduler.VideoOutputOptions{
			Resolution:  resolution,
			Required:    body.Video.Required,
			Sink:        sink,
			SendEOSWhen: eosWhen,
		}); err != nil {
			writeError(w, err)
			return
		}
		s.pipeline.UpdateScene(id, root, nil)
	}

	if body.Audio != nil {
		sink := scheduler.NewAudioSink(4)
		spec := buildMixSpec(body.Audio.Initial, body.Audio.MixingStrategy)
		if err := s.pipeline.RegisterAudioOutput(id, scheduler.AudioOutputOptions{
			MixSpec:    spec,
			OutputRate: 48000,
			Required:   body.Audio.Required,
			Sink:       sink,
		}); err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type outputUpdateRequest struct {
	Video          json.RawMessage `json:"video,omitempty"`
	Audio          *mixSpecJSON    `json:"audio,omitempty"`
	MixingStrategy string          `json:"mixing_strategy,omitempty"`
	ScheduleTimeMS *int64          `json:"schedule_time_ms,omitempty"`
}

func (s *Server) handleOutputUpdate(w http.ResponseWriter, r *http.Request) {
	id := types.OutputID(chi.URLParam(r, "id"))
	var body outputUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, cerrors.New(cerrors.KindInvalidScene, "invalid JSON body: %v", err))
		return
	}

	var scheduleAt *time.Duration
	if body.ScheduleTimeMS != nil {
		d := time.Duration(*body.ScheduleTimeMS) * time.Millisecond
		scheduleAt = &d
	}

	if len(body.Video) > 0 {
		root, err := ParseScene(body.Video)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := validateSceneShaderParams(s.pipeline.Registry, root); err != nil {
			writeError(w, err)
			return
		}
		s.pipeline.UpdateScene(id, root, scheduleAt)
	}

	if body.Audio != nil {
		s.pipeline.UpdateMix(id, buildMixSpec(*body.Audio, body.MixingStrategy))
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOutputUnregister(w http.ResponseWriter, r *http.Request) {
	id := types.OutputID(chi.URLParam(r, "id"))
	var body unregisterRequest
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.pipeline.UnregisterOutput(id, body.at())
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- /shader, /image, /font ----------------------------------------------

type shaderRegisterRequest struct {
	Source string                   `json:"source"`
	Params []registry.ShaderParamField `json:"params,omitempty"`
}

func (s *Server) handleShaderRegister(w http.ResponseWriter, r *http.Request) {
	id := types.RendererID(chi.URLParam(r, "id"))
	var body shaderRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, cerrors.New(cerrors.KindInvalidScene, "invalid JSON body: %v", err))
		return
	}
	if err := rendergraph.ValidateVertexContract(body.Source); err != nil {
		writeError(w, err)
		return
	}
	if err := s.pipeline.Registry.RegisterShader(&registry.Shader{ID: id, Source: body.Source, ParamFields: body.Params}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleShaderUnregister(w http.ResponseWriter, r *http.Request) {
	id := types.RendererID(chi.URLParam(r, "id"))
	if err := s.pipeline.Registry.UnregisterShader(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type imageRegisterRequest struct {
	Data   []byte `json:"data"` // base64 via encoding/json []byte
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (s *Server) handleImageRegister(w http.ResponseWriter, r *http.Request) {
	id := types.RendererID(chi.URLParam(r, "id"))
	var body imageRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, cerrors.New(cerrors.KindInvalidScene, "invalid JSON body: %v", err))
		return
	}
	if err := s.pipeline.Registry.RegisterImage(&registry.Image{
		ID: id, Data: body.Data, Format: body.Format, Width: body.Width, Height: body.Height,
	}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleImageUnregister(w http.ResponseWriter, r *http.Request) {
	id := types.RendererID(chi.URLParam(r, "id"))
	if err := s.pipeline.Registry.UnregisterImage(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFontRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, cerrors.New(cerrors.KindInvalidScene, "invalid multipart body: %v", err))
		return
	}
	id := r.FormValue("id")
	if id == "" {
		writeError(w, cerrors.New(cerrors.KindInvalidScene, "font registration requires an id field"))
		return
	}
	file, _, err := r.FormFile("font")
	if err != nil {
		writeError(w, cerrors.New(cerrors.KindInvalidScene, "font registration requires a font file: %v", err))
		return
	}
	defer file.Close()

	buf := make([]byte, 0, 64*1024)
	chunk := make([]byte, 64*1024)
	for {
		n, readErr := file.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if readErr != nil {
			break
		}
	}

	if err := s.pipeline.Registry.RegisterFont(&registry.Font{ID: types.RendererID(id), Data: buf}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFontUnregister(w http.ResponseWriter, r *http.Request) {
	id := types.RendererID(chi.URLParam(r, "id"))
	if err := s.pipeline.Registry.UnregisterFont(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- /start, /status ------------------------------------------------------

// handleStart is idempotent per spec §6: repeated calls are a no-op after
// the first, since Clock.Start already is.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.pipeline.Start()
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

type statusResponse struct {
	Started bool     `json:"started"`
	Inputs  []string `json:"inputs"`
	Outputs []string `json:"outputs"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.pipeline.StatusSnapshot()
	resp := statusResponse{Started: snap.Started}
	for _, id := range snap.Inputs {
		resp.Inputs = append(resp.Inputs, string(id))
	}
	for _, id := range snap.Outputs {
		resp.Outputs = append(resp.Outputs, string(id))
	}
	writeJSON(w, http.StatusOK, resp)
}

// wsEvent is the newline-delimited JSON wire shape for GET /ws (spec §6).
type wsEvent struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func toWSEvent(ev eventbus.Event) wsEvent {
	return wsEvent{Type: string(ev.Kind), ID: ev.ID}
}

// validateSceneShaderParams walks a freshly-parsed scene tree and checks
// every Shader node's declared params against its registered shader's
// parameter struct (spec §4.5 "Parameter values supplied at registration
// are validated against the shader's parameter struct recursively"), and
// that every referenced shader id actually exists: a missing shader is a
// registration-time UnknownReference error. Image and input references are
// not checked here.
func validateSceneShaderParams(reg *registry.Registry, c scene.Component) error {
	if c.Kind == scene.KindShader {
		shader, ok := reg.Shader(c.ShaderID)
		if !ok {
			return cerrors.New(cerrors.KindUnknownRef, "shader %q is not registered", c.ShaderID)
		}
		fields := make([]rendergraph.ParamField, len(shader.ParamFields))
		for i, f := range shader.ParamFields {
			fields[i] = rendergraph.ParamField{Name: f.Name, Kind: f.Kind, ArrayLen: f.ArrayLen, ElemKind: f.ElemKind}
		}
		if err := rendergraph.ValidateParams(fields, c.ShaderParams); err != nil {
			return err
		}
	}
	for _, child := range c.Children {
		if err := validateSceneShaderParams(reg, child); err != nil {
			return err
		}
	}
	return nil
}
