// Package api implements the control-plane REST/WS surface described by
// spec §6: registration endpoints for inputs/outputs/renderers, the scene
// JSON wire format, and the newline-JSON event stream. It is the thin glue
// layer spec §1 calls out-of-scope for wire-format detail but in-scope as
// the HTTP/WS transport around the core pipeline — see SPEC_FULL.md §10.
package api

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/livecompositor/core/internal/cerrors"
	"github.com/livecompositor/core/internal/scene"
	"github.com/livecompositor/core/internal/types"
)

// sceneNode is the wire shape of one scene component (spec §6 "Scene
// JSON"): discriminated by "type", every field optional except those its
// type requires.
type sceneNode struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`

	Children   []sceneNode     `json:"children,omitempty"`
	Direction  string          `json:"direction,omitempty"`
	Position   *positionJSON   `json:"position,omitempty"`
	Overflow   bool            `json:"overflow,omitempty"`
	Background string          `json:"background,omitempty"`

	BorderWidth    float64 `json:"border_width,omitempty"`
	BorderColor    string  `json:"border_color,omitempty"`
	BoxShadowBlur  float64 `json:"box_shadow_blur,omitempty"`
	BoxShadowColor string  `json:"box_shadow_color,omitempty"`

	Transition *transitionJSON `json:"transition,omitempty"`

	Mode   string `json:"mode,omitempty"`   // Rescaler
	HAlign string `json:"h_align,omitempty"`
	VAlign string `json:"v_align,omitempty"`

	AspectRatio string             `json:"aspect_ratio,omitempty"` // Tiles, "16:9"
	Margin      int                `json:"margin,omitempty"`
	Padding     int                `json:"padding,omitempty"`
	InputsCount *inputsCountJSON   `json:"inputs_count,omitempty"`

	Text       string  `json:"text,omitempty"`
	FontSize   float64 `json:"font_size,omitempty"`
	Weight     string  `json:"weight,omitempty"`
	Style      string  `json:"style,omitempty"`
	Wrap       bool    `json:"wrap,omitempty"`
	Width      *int    `json:"width,omitempty"`
	Height     *int    `json:"height,omitempty"`

	ImageID string `json:"image_id,omitempty"`
	InputID string `json:"input_id,omitempty"`

	ShaderID string                 `json:"shader_id,omitempty"`
	Params   map[string]interface{} `json:"shader_params,omitempty"`

	InstanceID string `json:"instance_id,omitempty"`
}

type positionJSON struct {
	Width  *int `json:"width,omitempty"`
	Height *int `json:"height,omitempty"`

	Top    *int `json:"top,omitempty"`
	Bottom *int `json:"bottom,omitempty"`
	Left   *int `json:"left,omitempty"`
	Right  *int `json:"right,omitempty"`

	RotationDegrees float64 `json:"rotation_degrees,omitempty"`
}

type easingJSON struct {
	FunctionName string     `json:"function_name"`
	Points       *[4]float64 `json:"points,omitempty"`
}

type transitionJSON struct {
	DurationMS     int64       `json:"duration_ms"`
	EasingFunction *easingJSON `json:"easing_function,omitempty"`
}

// inputsCountJSON is Tiles' child-count constraint: either "exactly", or a
// "lower"/"upper" range (upper omitted or 0 means unbounded).
type inputsCountJSON struct {
	Exactly *int `json:"exactly,omitempty"`
	Lower   int  `json:"lower,omitempty"`
	Upper   int  `json:"upper,omitempty"`
}

func (j *inputsCountJSON) toConstraint() scene.InputsCountConstraint {
	if j.Exactly != nil {
		return scene.Exactly(*j.Exactly)
	}
	return scene.InputsCountConstraint{Lower: j.Lower, Upper: j.Upper}
}

// ParseColor decodes a "#RRGGBB" or "#RRGGBBAA" string (case-insensitive,
// leading '#' required) per spec §6.
func ParseColor(s string) (scene.Color, error) {
	if s == "" {
		return scene.Color{}, nil
	}
	if !strings.HasPrefix(s, "#") {
		return scene.Color{}, cerrors.New(cerrors.KindInvalidScene, "color %q: missing leading '#'", s)
	}
	hex := s[1:]
	if len(hex) != 6 && len(hex) != 8 {
		return scene.Color{}, cerrors.New(cerrors.KindInvalidScene, "color %q: expected 6 or 8 hex digits", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return scene.Color{}, cerrors.New(cerrors.KindInvalidScene, "color %q: invalid hex: %v", s, err)
	}
	c := scene.Color{A: 0xFF}
	if len(hex) == 6 {
		c.R = uint8(v >> 16)
		c.G = uint8(v >> 8)
		c.B = uint8(v)
	} else {
		c.R = uint8(v >> 24)
		c.G = uint8(v >> 16)
		c.B = uint8(v >> 8)
		c.A = uint8(v)
	}
	return c, nil
}

func parseEasing(e *easingJSON) (scene.EasingFunction, [4]float64, error) {
	if e == nil {
		return scene.EasingLinear, [4]float64{}, nil
	}
	var pts [4]float64
	if e.Points != nil {
		pts = *e.Points
	}
	switch e.FunctionName {
	case "", "linear":
		return scene.EasingLinear, pts, nil
	case "ease":
		return scene.EasingEase, pts, nil
	case "ease_in":
		return scene.EasingEaseIn, pts, nil
	case "ease_out":
		return scene.EasingEaseOut, pts, nil
	case "ease_in_out":
		return scene.EasingEaseInOut, pts, nil
	case "bounce":
		return scene.EasingBounce, pts, nil
	case "cubic_bezier":
		if e.Points == nil {
			return 0, pts, cerrors.New(cerrors.KindInvalidScene, "cubic_bezier easing requires points")
		}
		return scene.EasingCubicBezier, pts, nil
	default:
		return 0, pts, cerrors.New(cerrors.KindInvalidScene, "unknown easing function %q", e.FunctionName)
	}
}

func parsePosition(p *positionJSON) scene.Position {
	if p == nil {
		return scene.Position{}
	}
	if p.Top != nil || p.Bottom != nil || p.Left != nil || p.Right != nil {
		return scene.Position{
			Absolute:        true,
			Top:             p.Top,
			Bottom:          p.Bottom,
			Left:            p.Left,
			Right:           p.Right,
			AbsWidth:        p.Width,
			AbsHeight:       p.Height,
			RotationDegrees: p.RotationDegrees,
		}
	}
	return scene.Position{Width: p.Width, Height: p.Height}
}

// ParseScene decodes raw scene JSON (spec §6) into the internal Component
// tree, validating structural invariants from spec §3 as it goes: unique
// ids within the tree, exactly-one fixed-position edge pairs, and shaped
// transitions.
func ParseScene(raw json.RawMessage) (scene.Component, error) {
	var node sceneNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return scene.Component{}, cerrors.New(cerrors.KindInvalidScene, "invalid scene JSON: %v", err)
	}
	seen := make(map[types.ComponentID]bool)
	return buildComponent(node, seen)
}

func buildComponent(n sceneNode, seen map[types.ComponentID]bool) (scene.Component, error) {
	id := types.ComponentID(n.ID)
	if id != "" {
		if seen[id] {
			return scene.Component{}, cerrors.New(cerrors.KindInvalidScene, "duplicate component id %q", id)
		}
		seen[id] = true
	}

	c := scene.Component{ID: id, Position: parsePosition(n.Position)}

	if n.Position != nil && n.Position.Absolute() {
		hasTB := (n.Position.Top != nil) != (n.Position.Bottom != nil)
		hasLR := (n.Position.Left != nil) != (n.Position.Right != nil)
		if !hasTB || !hasLR {
			return scene.Component{}, cerrors.New(cerrors.KindInvalidScene, "component %q: absolute position requires exactly one of top|bottom and exactly one of left|right", id)
		}
	}

	if n.Transition != nil {
		easing, pts, err := parseEasing(n.Transition.EasingFunction)
		if err != nil {
			return scene.Component{}, err
		}
		if id == "" {
			// Spec §3: "A component with a transition must carry a stable id;
			// transitions without matching prior id degrade to an instant
			// change" — so we keep the spec but drop the transition rather
			// than reject the scene.
		} else {
			c.Transition = &scene.TransitionSpec{
				DurationMS:   n.Transition.DurationMS,
				Easing:       easing,
				BezierPoints: pts,
			}
		}
	}

	bg, err := ParseColor(n.Background)
	if err != nil {
		return scene.Component{}, err
	}
	c.Background = bg
	if c.BorderColor, err = ParseColor(n.BorderColor); err != nil {
		return scene.Component{}, err
	}
	if c.BoxShadowColor, err = ParseColor(n.BoxShadowColor); err != nil {
		return scene.Component{}, err
	}
	c.BorderWidth = n.BorderWidth
	c.BoxShadowBlur = n.BoxShadowBlur
	c.Overflow = n.Overflow

	switch n.Type {
	case "view":
		c.Kind = scene.KindView
		if n.Direction == "column" {
			c.Direction = scene.DirectionColumn
		}
		if err := buildChildren(&c, n.Children, seen); err != nil {
			return scene.Component{}, err
		}
	case "rescaler":
		c.Kind = scene.KindRescaler
		if n.Mode == "fill" {
			c.RescaleMode = scene.RescaleFill
		}
		c.HAlign = parseHAlign(n.HAlign)
		c.VAlign = parseVAlign(n.VAlign)
		if err := buildChildren(&c, n.Children, seen); err != nil {
			return scene.Component{}, err
		}
		if len(n.Children) != 1 {
			return scene.Component{}, cerrors.New(cerrors.KindInvalidScene, "rescaler %q requires exactly one child", id)
		}
	case "tiles":
		c.Kind = scene.KindTiles
		w, h, err := parseAspectRatio(n.AspectRatio)
		if err != nil {
			return scene.Component{}, err
		}
		c.AspectRatioW, c.AspectRatioH = w, h
		c.Margin, c.Padding = n.Margin, n.Padding
		if n.InputsCount != nil {
			constraint := n.InputsCount.toConstraint()
			c.InputsCount = &constraint
		}
		if err := buildChildren(&c, n.Children, seen); err != nil {
			return scene.Component{}, err
		}
		if c.InputsCount != nil {
			if err := c.InputsCount.Check(len(c.Children)); err != nil {
				return scene.Component{}, err
			}
		}
	case "text":
		c.Kind = scene.KindText
		c.TextContent = n.Text
		c.FontSize = n.FontSize
		c.FontWeight = n.Weight
		c.FontStyle = n.Style
		c.TextWrap = n.Wrap
		c.TextWidth = n.Width
		c.TextHeight = n.Height
	case "image":
		c.Kind = scene.KindImage
		c.ImageID = types.RendererID(n.ImageID)
	case "input_stream":
		c.Kind = scene.KindInputStream
		c.InputID = types.InputID(n.InputID)
	case "shader":
		c.Kind = scene.KindShader
		c.ShaderID = types.RendererID(n.ShaderID)
		c.ShaderParams = n.Params
		if n.Width != nil {
			c.ShaderSize.Width = *n.Width
		}
		if n.Height != nil {
			c.ShaderSize.Height = *n.Height
		}
		if err := buildChildren(&c, n.Children, seen); err != nil {
			return scene.Component{}, err
		}
	case "web_view":
		c.Kind = scene.KindWebView
		c.WebInstanceID = n.InstanceID
		if err := buildChildren(&c, n.Children, seen); err != nil {
			return scene.Component{}, err
		}
	default:
		return scene.Component{}, cerrors.New(cerrors.KindInvalidScene, "unknown component type %q", n.Type)
	}

	return c, nil
}

func buildChildren(c *scene.Component, children []sceneNode, seen map[types.ComponentID]bool) error {
	for _, child := range children {
		built, err := buildComponent(child, seen)
		if err != nil {
			return err
		}
		c.Children = append(c.Children, built)
	}
	return nil
}

func parseHAlign(s string) scene.HorizontalAlign {
	switch s {
	case "left":
		return scene.HAlignLeft
	case "right":
		return scene.HAlignRight
	default:
		return scene.HAlignCenter
	}
}

func parseVAlign(s string) scene.VerticalAlign {
	switch s {
	case "top":
		return scene.VAlignTop
	case "bottom":
		return scene.VAlignBottom
	default:
		return scene.VAlignCenter
	}
}

func parseAspectRatio(s string) (w, h int, err error) {
	if s == "" {
		return 16, 9, nil
	}
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, cerrors.New(cerrors.KindInvalidScene, "aspect_ratio %q: expected W:H", s)
	}
	w, errW := strconv.Atoi(parts[0])
	h, errH := strconv.Atoi(parts[1])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, cerrors.New(cerrors.KindInvalidScene, "aspect_ratio %q: expected positive W:H", s)
	}
	return w, h, nil
}

// Absolute reports whether this wire position describes an Absolute
// placement (any edge field set) vs a Static one.
func (p *positionJSON) Absolute() bool {
	return p.Top != nil || p.Bottom != nil || p.Left != nil || p.Right != nil
}
