package scene

import (
	"testing"

	"github.com/livecompositor/core/internal/types"
)

func inputStream(id string) Component {
	return Component{Kind: KindInputStream, InputID: types.InputID("in-" + id)}
}

func TestTilesReflowFourChildren(t *testing.T) {
	tiles := Component{
		Kind:         KindTiles,
		AspectRatioW: 16,
		AspectRatioH: 9,
		Children:     []Component{inputStream("a"), inputStream("b"), inputStream("c"), inputStream("d")},
	}
	layout := ComputeLayout(tiles, Resolution{Width: 1280, Height: 720})
	if len(layout.Children) != 4 {
		t.Fatalf("expected 4 tile leaves, got %d", len(layout.Children))
	}

	rows, cols, _, _ := bestTileGrid(4, 1280, 720, 16, 9, 0, 0)
	if rows != 2 || cols != 2 {
		t.Fatalf("expected a 2x2 grid for 4 children, got rows=%d cols=%d", rows, cols)
	}
}

func TestTilesReflowFiveChildren(t *testing.T) {
	rows, cols, _, _ := bestTileGrid(5, 1280, 720, 16, 9, 0, 0)
	if rows != 2 || cols != 3 {
		t.Fatalf("expected a 2x3 grid (3 on first row, 2 on second) for 5 children, got rows=%d cols=%d", rows, cols)
	}
}

func TestViewRowDistributesRemainingSpaceEvenly(t *testing.T) {
	view := Component{
		Kind:      KindView,
		Direction: DirectionRow,
		Children: []Component{
			{Kind: KindInputStream, Position: Position{Width: intPtr(200)}},
			inputStream("auto1"),
			inputStream("auto2"),
		},
	}
	layout := ComputeLayout(view, Resolution{Width: 1000, Height: 100})
	if len(layout.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(layout.Children))
	}
	if layout.Children[0].Width != 200 {
		t.Fatalf("expected explicit-width child to keep 200, got %v", layout.Children[0].Width)
	}
	// Remaining 800px split evenly across the two auto children: 400 each.
	if layout.Children[1].Width != 400 || layout.Children[2].Width != 400 {
		t.Fatalf("expected auto children to split remaining space evenly, got %v / %v",
			layout.Children[1].Width, layout.Children[2].Width)
	}
	if layout.Children[1].Left != 200 || layout.Children[2].Left != 600 {
		t.Fatalf("expected children positioned sequentially along the row, got left=%v / %v",
			layout.Children[1].Left, layout.Children[2].Left)
	}
}

func TestRescalerFitScalesToSmallerAxis(t *testing.T) {
	rescaler := Component{
		Kind:        KindRescaler,
		RescaleMode: RescaleFit,
		Children:    []Component{{Kind: KindInputStream, Position: Position{Width: intPtr(100), Height: intPtr(50)}}},
	}
	layout := ComputeLayout(rescaler, Resolution{Width: 400, Height: 100})
	if len(layout.Children) != 1 {
		t.Fatalf("expected 1 child")
	}
	child := layout.Children[0]
	// scaleW = 400/100 = 4, scaleH = 100/50 = 2; Fit takes the min -> 2.
	if child.ScaleX != 2 || child.ScaleY != 2 {
		t.Fatalf("expected Fit to scale by min(scaleW,scaleH)=2, got %v/%v", child.ScaleX, child.ScaleY)
	}
}

func TestRescalerFillScalesToLargerAxis(t *testing.T) {
	rescaler := Component{
		Kind:        KindRescaler,
		RescaleMode: RescaleFill,
		Children:    []Component{{Kind: KindInputStream, Position: Position{Width: intPtr(100), Height: intPtr(50)}}},
	}
	layout := ComputeLayout(rescaler, Resolution{Width: 400, Height: 100})
	child := layout.Children[0]
	if child.ScaleX != 4 || child.ScaleY != 4 {
		t.Fatalf("expected Fill to scale by max(scaleW,scaleH)=4, got %v/%v", child.ScaleX, child.ScaleY)
	}
}

func TestChildNodesCountMatchesLeafCount(t *testing.T) {
	tree := Component{
		Kind:      KindView,
		Direction: DirectionRow,
		Children: []Component{
			inputStream("a"),
			{Kind: KindRescaler, Children: []Component{inputStream("b")}},
			{Kind: KindTiles, Children: []Component{inputStream("c"), inputStream("d")}},
		},
	}
	layout := ComputeLayout(tree, Resolution{Width: 1000, Height: 1000})
	if layout.ChildNodesCount != 4 {
		t.Fatalf("expected child_nodes_count to equal the 4 leaf render nodes, got %d", layout.ChildNodesCount)
	}
}
