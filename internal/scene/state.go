package scene

import (
	"sync"
	"time"

	"github.com/livecompositor/core/internal/types"
)

// StatefulComponent parallels a declared Component, additionally carrying —
// for components with a stable id — the animation state needed to snapshot
// an in-flight transition at any PTS without mutating the declared tree.
type StatefulComponent struct {
	Declared   Component
	Children   []*StatefulComponent
	transition *activeTransition
}

// CurrentAt returns the declared component with its animatable fields
// overridden by the transition snapshot at pts, if one is active.
func (s *StatefulComponent) CurrentAt(pts time.Duration) Component {
	if s.transition == nil {
		return s.Declared
	}
	return applySnapshot(s.Declared, s.transition.snapshotAt(pts))
}

// StatefulTree is the per-output root of the stateful component tree.
type StatefulTree struct {
	Root *StatefulComponent
}

// SceneState holds one StatefulTree per output behind a mutex; updates swap
// the tree atomically so render reads never observe a partial rewrite.
type SceneState struct {
	mu    sync.RWMutex
	trees map[types.OutputID]*StatefulTree
}

// NewSceneState creates an empty SceneState.
func NewSceneState() *SceneState {
	return &SceneState{trees: make(map[types.OutputID]*StatefulTree)}
}

// UpdateScene builds a new stateful tree for outputID from newRoot, carrying
// forward in-progress transitions snapshotted at atPTS, then atomically
// replaces the output's tree.
func (s *SceneState) UpdateScene(outputID types.OutputID, newRoot Component, atPTS time.Duration) {
	s.mu.Lock()
	prev := s.trees[outputID]
	s.mu.Unlock()

	var prevByID map[types.ComponentID]*StatefulComponent
	if prev != nil {
		prevByID = make(map[types.ComponentID]*StatefulComponent)
		indexByID(prev.Root, prevByID)
	}

	built := buildStateful(newRoot, prevByID, atPTS)

	s.mu.Lock()
	s.trees[outputID] = &StatefulTree{Root: built}
	s.mu.Unlock()
}

// TreeAt returns the component tree for outputID with every in-flight
// transition resolved to its value at pts. Returns false if the output has
// no tree yet.
func (s *SceneState) TreeAt(outputID types.OutputID, pts time.Duration) (Component, bool) {
	s.mu.RLock()
	tree := s.trees[outputID]
	s.mu.RUnlock()
	if tree == nil || tree.Root == nil {
		return Component{}, false
	}
	return resolveAt(tree.Root, pts), true
}

// RemoveOutput drops outputID's tree (output unregistered).
func (s *SceneState) RemoveOutput(outputID types.OutputID) {
	s.mu.Lock()
	delete(s.trees, outputID)
	s.mu.Unlock()
}

func indexByID(n *StatefulComponent, into map[types.ComponentID]*StatefulComponent) {
	if n == nil {
		return
	}
	if n.Declared.ID != "" {
		into[n.Declared.ID] = n
	}
	for _, c := range n.Children {
		indexByID(c, into)
	}
}

func buildStateful(decl Component, prevByID map[types.ComponentID]*StatefulComponent, atPTS time.Duration) *StatefulComponent {
	node := &StatefulComponent{Declared: decl}

	for i := range decl.Children {
		node.Children = append(node.Children, buildStateful(decl.Children[i], prevByID, atPTS))
	}

	prev, hasPrev := prevByID[decl.ID]
	if decl.ID == "" || !hasPrev {
		// No stable prior state to animate from: instant change.
		return node
	}

	startSnapshot := prevSnapshotAt(prev, atPTS)
	endSnapshot := snapshotOf(decl)

	switch {
	case decl.Transition != nil:
		node.transition = &activeTransition{
			Start:    startSnapshot,
			End:      endSnapshot,
			StartPTS: atPTS,
			Duration: time.Duration(decl.Transition.DurationMS) * time.Millisecond,
			Easing:   decl.Transition.Easing,
			Bezier:   decl.Transition.BezierPoints,
		}
	case prev.transition != nil && !prev.transition.done(atPTS):
		remaining := prev.transition.StartPTS + prev.transition.Duration - atPTS
		node.transition = &activeTransition{
			Start:    startSnapshot,
			End:      endSnapshot,
			StartPTS: atPTS,
			Duration: remaining,
			Easing:   prev.transition.Easing,
			Bezier:   prev.transition.Bezier,
		}
	default:
		// No transition requested and nothing in flight: apply instantly.
	}

	return node
}

func prevSnapshotAt(prev *StatefulComponent, atPTS time.Duration) Snapshot {
	if prev.transition == nil {
		return snapshotOf(prev.Declared)
	}
	return prev.transition.snapshotAt(atPTS)
}

func resolveAt(n *StatefulComponent, pts time.Duration) Component {
	c := n.CurrentAt(pts)
	if len(n.Children) == 0 {
		return c
	}
	c.Children = make([]Component, len(n.Children))
	for i, child := range n.Children {
		c.Children[i] = resolveAt(child, pts)
	}
	return c
}
