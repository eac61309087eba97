package scene

import "math"

// ContentKind discriminates what a NestedLayout leaf actually draws.
type ContentKind int

const (
	ContentNone ContentKind = iota
	ContentColor
	ContentNode
)

// Rect is a normalized crop rectangle in source-texture space, [0,1] each.
type Rect struct {
	Top, Left, Width, Height float64
}

// NestedLayout is the pure geometric description layout produces: where
// every render node draws, independent of what the GPU later does with it.
type NestedLayout struct {
	Top, Left, Width, Height float64
	Rotation                 float64
	ScaleX, ScaleY           float64
	Crop                     *Rect

	Content   ContentKind
	Color     Color
	Component *Component // set when Content == ContentNode; the leaf render node

	Fallback FallbackPolicy

	Children        []NestedLayout
	ChildNodesCount int
}

// ComputeLayout is the pure function (tree, size) -> NestedLayout. Callers
// resolve transitions to a concrete Component tree (scene.SceneState.TreeAt)
// before calling this; layout itself has no notion of PTS.
func ComputeLayout(root Component, size Resolution) NestedLayout {
	return layoutComponent(root, 0, 0, float64(size.Width), float64(size.Height))
}

func layoutComponent(c Component, top, left, width, height float64) NestedLayout {
	switch c.Kind {
	case KindView:
		return layoutView(c, top, left, width, height)
	case KindRescaler:
		return layoutRescaler(c, top, left, width, height)
	case KindTiles:
		return layoutTiles(c, top, left, width, height)
	default:
		return leafLayout(c, top, left, width, height)
	}
}

func leafLayout(c Component, top, left, width, height float64) NestedLayout {
	n := NestedLayout{Top: top, Left: left, Width: width, Height: height, ScaleX: 1, ScaleY: 1, Fallback: c.Fallback}
	switch c.Kind {
	case KindShader:
		// Shader nodes recurse into their children as render-node inputs
		// (sampled as textures by the shader) but occupy the full space
		// their parent allotted to the shader node itself.
		for i := range c.Children {
			child := layoutComponent(c.Children[i], top, left, width, height)
			n.Children = append(n.Children, child)
		}
		cc := c
		n.Content = ContentNode
		n.Component = &cc
		n.ChildNodesCount = 1
		return n
	default:
		cc := c
		n.Content = ContentNode
		n.Component = &cc
		n.ChildNodesCount = 1
		return n
	}
}

// layoutView distributes children along the main axis: Static children with
// an explicit main-axis size take it; the remainder is split evenly among
// Static children that left it unset. Absolute children are positioned
// independently and consume no space.
func layoutView(c Component, top, left, width, height float64) NestedLayout {
	n := NestedLayout{Top: top, Left: left, Width: width, Height: height, ScaleX: 1, ScaleY: 1, Fallback: c.Fallback}
	if c.Background != (Color{}) {
		n.Content = ContentColor
		n.Color = c.Background
	}

	row := c.Direction == DirectionRow

	var staticChildren []int
	var absoluteChildren []int
	for i, ch := range c.Children {
		if ch.Position.Absolute {
			absoluteChildren = append(absoluteChildren, i)
		} else {
			staticChildren = append(staticChildren, i)
		}
	}

	mainAxisTotal := width
	if !row {
		mainAxisTotal = height
	}

	var explicitTotal float64
	var autoCount int
	for _, i := range staticChildren {
		ch := c.Children[i]
		sz := mainAxisSize(ch, row)
		if sz != nil {
			explicitTotal += *sz
		} else {
			autoCount++
		}
	}
	remaining := mainAxisTotal - explicitTotal
	var autoSize float64
	if autoCount > 0 && remaining > 0 {
		autoSize = remaining / float64(autoCount)
	}

	cursor := 0.0
	for _, i := range staticChildren {
		ch := c.Children[i]
		sz := mainAxisSize(ch, row)
		var size float64
		if sz != nil {
			size = *sz
		} else {
			size = autoSize
		}
		var childLayout NestedLayout
		if row {
			childLayout = layoutComponent(ch, top, left+cursor, size, height)
		} else {
			childLayout = layoutComponent(ch, top+cursor, left, width, size)
		}
		n.Children = append(n.Children, childLayout)
		n.ChildNodesCount += childLayout.ChildNodesCount
		cursor += size
	}

	for _, i := range absoluteChildren {
		ch := c.Children[i]
		childLayout := layoutAbsolute(ch, left, top, width, height)
		n.Children = append(n.Children, childLayout)
		n.ChildNodesCount += childLayout.ChildNodesCount
	}

	return n
}

func mainAxisSize(c Component, row bool) *float64 {
	var px *int
	if row {
		px = c.Position.Width
	} else {
		px = c.Position.Height
	}
	if px == nil {
		return nil
	}
	v := float64(*px)
	return &v
}

func layoutAbsolute(c Component, containerLeft, containerTop, containerWidth, containerHeight float64) NestedLayout {
	p := c.Position

	width := containerWidth
	if p.AbsWidth != nil {
		width = float64(*p.AbsWidth)
	}
	height := containerHeight
	if p.AbsHeight != nil {
		height = float64(*p.AbsHeight)
	}

	var left float64
	switch {
	case p.Left != nil:
		left = containerLeft + float64(*p.Left)
	case p.Right != nil:
		left = containerLeft + containerWidth - float64(*p.Right) - width
	}

	var top float64
	switch {
	case p.Top != nil:
		top = containerTop + float64(*p.Top)
	case p.Bottom != nil:
		top = containerTop + containerHeight - float64(*p.Bottom) - height
	}

	inner := layoutComponent(c, top, left, width, height)
	inner.Rotation = p.RotationDegrees
	return inner
}

// layoutRescaler scales its single child to fit (min) or fill (max) the
// container, then centers/aligns it within any leftover space.
func layoutRescaler(c Component, top, left, width, height float64) NestedLayout {
	n := NestedLayout{Top: top, Left: left, Width: width, Height: height, ScaleX: 1, ScaleY: 1, Fallback: c.Fallback}
	if len(c.Children) == 0 {
		return n
	}
	child := c.Children[0]
	cw, ch := intrinsicSize(child, width, height)
	if cw <= 0 || ch <= 0 {
		return n
	}

	scaleW := width / cw
	scaleH := height / ch
	var scale float64
	if c.RescaleMode == RescaleFill {
		scale = math.Max(scaleW, scaleH)
	} else {
		scale = math.Min(scaleW, scaleH)
	}

	scaledW := cw * scale
	scaledH := ch * scale

	childLeft := left + alignOffset(c.HAlign, width, scaledW)
	childTop := top + alignOffset2(c.VAlign, height, scaledH)

	childLayout := layoutComponent(child, 0, 0, cw, ch)
	childLayout.Top = childTop
	childLayout.Left = childLeft
	childLayout.ScaleX = scale
	childLayout.ScaleY = scale

	n.Children = []NestedLayout{childLayout}
	n.ChildNodesCount = childLayout.ChildNodesCount
	return n
}

func alignOffset(a HorizontalAlign, container, content float64) float64 {
	switch a {
	case HAlignLeft:
		return 0
	case HAlignRight:
		return container - content
	default:
		return (container - content) / 2
	}
}

func alignOffset2(a VerticalAlign, container, content float64) float64 {
	switch a {
	case VAlignTop:
		return 0
	case VAlignBottom:
		return container - content
	default:
		return (container - content) / 2
	}
}

func intrinsicSize(c Component, fallbackW, fallbackH float64) (float64, float64) {
	w, h := fallbackW, fallbackH
	if c.Position.Width != nil {
		w = float64(*c.Position.Width)
	}
	if c.Position.Height != nil {
		h = float64(*c.Position.Height)
	}
	if c.Kind == KindShader && c.ShaderSize.Width > 0 {
		w, h = float64(c.ShaderSize.Width), float64(c.ShaderSize.Height)
	}
	return w, h
}

// layoutTiles picks (rows, cols) maximizing tile width subject to the
// declared aspect ratio, trying every rows in [1,n].
func layoutTiles(c Component, top, left, width, height float64) NestedLayout {
	n := NestedLayout{Top: top, Left: left, Width: width, Height: height, ScaleX: 1, ScaleY: 1, Fallback: c.Fallback}
	count := len(c.Children)
	if count == 0 {
		return n
	}

	rows, cols, tileW, tileH := bestTileGrid(count, width, height, c.AspectRatioW, c.AspectRatioH, c.Margin, c.Padding)

	idx := 0
	for r := 0; r < rows && idx < count; r++ {
		rowCount := cols
		remaining := count - idx
		if remaining < cols {
			rowCount = remaining
		}
		rowWidth := float64(rowCount) * (tileW + 2*float64(c.Padding))
		rowLeft := left + (width-rowWidth)/2
		cursorX := rowLeft
		rowTop := top + float64(c.Margin) + float64(r)*(tileH+2*float64(c.Padding)+float64(c.Margin))
		for col := 0; col < rowCount; col++ {
			child := c.Children[idx]
			childLayout := layoutComponent(child, rowTop+float64(c.Padding), cursorX+float64(c.Padding), tileW, tileH)
			n.Children = append(n.Children, childLayout)
			n.ChildNodesCount += childLayout.ChildNodesCount
			cursorX += tileW + 2*float64(c.Padding)
			idx++
		}
	}
	return n
}

func bestTileGrid(n int, width, height float64, aspectW, aspectH, margin, padding int) (rows, cols int, tileW, tileH float64) {
	if aspectW <= 0 {
		aspectW = 16
	}
	if aspectH <= 0 {
		aspectH = 9
	}
	aspect := float64(aspectW) / float64(aspectH)

	bestTileW := -1.0
	for r := 1; r <= n; r++ {
		c := (n + r - 1) / r // ceil(n/r)

		availW := width - float64(2*padding*c) - float64(margin*(c+1))
		availH := height - float64(2*padding*r) - float64(margin*(r+1))
		if availW <= 0 || availH <= 0 {
			continue
		}
		w := availW / float64(c)
		h := availH / float64(r)
		if w/aspect < h {
			h = w / aspect
		} else {
			w = h * aspect
		}
		if w > bestTileW {
			bestTileW = w
			rows, cols, tileW, tileH = r, c, w, h
		}
	}
	if bestTileW < 0 {
		rows, cols = 1, n
		tileW, tileH = width/float64(n), height
	}
	return
}
