package tree

// Movement is computed from the parent/child links on demand rather
// than from a flattened row list, so a snapshot swap between keypresses
// cannot leave the cursor pointing at a stale index.

// Next returns the visible row after id, wrapping past the last row
// back to the root. Directories contribute children only while
// expanded, so collapsed and unloaded subtrees are stepped over
// structurally.
func Next(s *Snapshot, expanded map[string]bool, id NodeID) NodeID {
	node, ok := s.Node(id)
	if !ok {
		return id
	}
	if showsChildren(s, expanded, node) {
		return node.ChildIDs[0]
	}

	cur := node
	for {
		if cur.ParentID == InvalidID {
			return rootID
		}
		if sib := nextSibling(s, cur.ParentID, cur.ID); sib != InvalidID {
			return sib
		}
		parent, ok := s.Node(cur.ParentID)
		if !ok {
			return rootID
		}
		cur = parent
	}
}

// Prev returns the visible row before id. From the root it wraps to the
// deepest visible row of the tree.
func Prev(s *Snapshot, expanded map[string]bool, id NodeID) NodeID {
	node, ok := s.Node(id)
	if !ok {
		return id
	}
	if id == rootID {
		return deepestVisible(s, expanded, rootID)
	}
	if node.ParentID == InvalidID {
		return rootID
	}
	if sib := prevSibling(s, node.ParentID, id); sib != InvalidID {
		return deepestVisible(s, expanded, sib)
	}
	return node.ParentID
}

// VisibleIDs flattens the snapshot in display order: each row followed
// by its children while its directory is expanded. Next and Prev agree
// with walking this list.
func VisibleIDs(s *Snapshot, expanded map[string]bool) []NodeID {
	out := make([]NodeID, 0, s.Len())
	var walk func(NodeID)
	walk = func(id NodeID) {
		out = append(out, id)
		node, ok := s.Node(id)
		if !ok || !showsChildren(s, expanded, node) {
			return
		}
		for _, c := range node.ChildIDs {
			walk(c)
		}
	}
	walk(rootID)
	return out
}

// showsChildren reports whether the node's children are visible rows.
// Only expanded entry directories contribute children; synthetic rows
// never do. An unloaded directory has no children yet, so expansion
// alone cannot walk into it.
func showsChildren(s *Snapshot, expanded map[string]bool, n Node) bool {
	if len(n.ChildIDs) == 0 {
		return false
	}
	if n.Kind != KindEntry || !n.IsDir {
		return false
	}
	return expanded[n.Path]
}

func deepestVisible(s *Snapshot, expanded map[string]bool, id NodeID) NodeID {
	for {
		node, ok := s.Node(id)
		if !ok || !showsChildren(s, expanded, node) {
			return id
		}
		id = node.ChildIDs[len(node.ChildIDs)-1]
	}
}

func nextSibling(s *Snapshot, parentID, id NodeID) NodeID {
	parent, ok := s.Node(parentID)
	if !ok {
		return InvalidID
	}
	for i, c := range parent.ChildIDs {
		if c == id && i+1 < len(parent.ChildIDs) {
			return parent.ChildIDs[i+1]
		}
	}
	return InvalidID
}

func prevSibling(s *Snapshot, parentID, id NodeID) NodeID {
	parent, ok := s.Node(parentID)
	if !ok {
		return InvalidID
	}
	for i, c := range parent.ChildIDs {
		if c == id && i > 0 {
			return parent.ChildIDs[i-1]
		}
	}
	return InvalidID
}
