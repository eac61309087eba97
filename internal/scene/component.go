// Package scene models the declarative component tree clients submit for an
// output, the stateful tree the pipeline evolves from it, and the pure
// layout function that turns a stateful tree into render-node geometry.
package scene

import "github.com/livecompositor/core/internal/types"

// ComponentKind discriminates the Component tagged variant.
type ComponentKind int

const (
	KindView ComponentKind = iota
	KindRescaler
	KindTiles
	KindText
	KindImage
	KindInputStream
	KindShader
	KindWebView
)

// Direction controls how a View lays out its children along the main axis.
type Direction int

const (
	DirectionRow Direction = iota
	DirectionColumn
)

// RescaleMode controls how a Rescaler fits its child into its container.
type RescaleMode int

const (
	RescaleFit RescaleMode = iota
	RescaleFill
)

// HorizontalAlign and VerticalAlign position a Rescaler's child within any
// leftover space after scaling.
type HorizontalAlign int

const (
	HAlignCenter HorizontalAlign = iota
	HAlignLeft
	HAlignRight
)

type VerticalAlign int

const (
	VAlignCenter VerticalAlign = iota
	VAlignTop
	VAlignBottom
)

// Position is the tagged variant over Static and Absolute placement.
type Position struct {
	Absolute bool

	// Static fields — zero value means "intrinsic"/"not set".
	Width  *int
	Height *int

	// Absolute fields.
	Top              *int
	Bottom           *int
	Left             *int
	Right            *int
	AbsWidth         *int
	AbsHeight        *int
	RotationDegrees  float64
}

// Color is a parsed #RRGGBB / #RRGGBBAA value.
type Color struct {
	R, G, B, A uint8
}

// FallbackPolicy controls when a composite node clears its own output
// texture because one or more of its render-node inputs is missing.
type FallbackPolicy int

const (
	NeverFallback FallbackPolicy = iota
	FallbackIfAllInputsMissing
	FallbackIfAnyInputMissing
)

// Component is the declarative scene-tree node a client submits. Exactly one
// of the Kind-specific field groups is populated, selected by Kind.
type Component struct {
	ID   types.ComponentID
	Kind ComponentKind

	// Fallback applies to View/Rescaler/Tiles/Shader/WebView nodes: the
	// policy by which this node clears its texture when render-node
	// descendants are missing.
	Fallback FallbackPolicy

	// View
	Children        []Component
	Direction       Direction
	Position        Position
	Overflow        bool
	Background      Color
	BorderWidth     float64
	BorderColor     Color
	BoxShadowBlur   float64
	BoxShadowColor  Color
	Transition      *TransitionSpec

	// Rescaler (Children[0] is the single child; Position/Transition shared above)
	RescaleMode RescaleMode
	HAlign      HorizontalAlign
	VAlign      VerticalAlign

	// Tiles (Children, Position/Transition shared above)
	AspectRatioW   int
	AspectRatioH   int
	Margin         int
	Padding        int
	InputsCount    *InputsCountConstraint

	// Text
	TextContent string
	FontSize    float64
	FontWeight  string
	FontStyle   string
	TextWrap    bool
	TextWidth   *int
	TextHeight  *int

	// Image
	ImageID types.RendererID

	// InputStream
	InputID types.InputID

	// Shader
	ShaderID     types.RendererID
	ShaderParams map[string]interface{}
	ShaderSize   Resolution

	// WebView
	WebInstanceID string
}

// Resolution is a pixel width/height pair for declared scene sizes.
type Resolution struct {
	Width, Height int
}

// Easing names the interpolation curve a TransitionSpec uses.
type EasingFunction int

const (
	EasingLinear EasingFunction = iota
	EasingEase
	EasingEaseIn
	EasingEaseOut
	EasingEaseInOut
	EasingBounce
	EasingCubicBezier
)

// TransitionSpec is the declared (not yet snapshotted) transition a client
// attaches to a component.
type TransitionSpec struct {
	DurationMS int64
	Easing     EasingFunction
	// BezierPoints holds (x1,y1,x2,y2) when Easing == EasingCubicBezier.
	BezierPoints [4]float64
}

func (t ComponentKind) String() string {
	switch t {
	case KindView:
		return "view"
	case KindRescaler:
		return "rescaler"
	case KindTiles:
		return "tiles"
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindInputStream:
		return "input_stream"
	case KindShader:
		return "shader"
	case KindWebView:
		return "web_view"
	default:
		return "unknown"
	}
}
