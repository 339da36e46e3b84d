package model

import "github.com/Faultbox/hungryfish/pkg/scenegraph"

// Walk visits every mesh reachable from scene.Root in depth-first pre-order:
// a node's meshes in list order, then its children in list order. visit
// receives the scene mesh and its index. Mesh indices outside scene.Meshes
// are reported through skip, which may be nil.
//
// The traversal uses an explicit stack, so hierarchy depth is bounded only
// by memory.
func Walk(scene *scenegraph.Scene, visit func(*scenegraph.Mesh, int), skip func(node *scenegraph.Node, index int)) {
	if scene == nil || scene.Root == nil {
		return
	}

	stack := []*scenegraph.Node{scene.Root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil {
			continue
		}

		for _, idx := range n.Meshes {
			if idx < 0 || idx >= len(scene.Meshes) || scene.Meshes[idx] == nil {
				if skip != nil {
					skip(n, idx)
				}
				continue
			}
			visit(scene.Meshes[idx], idx)
		}

		// Reverse push so the first child is popped first.
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}
