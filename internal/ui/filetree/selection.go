package filetree

import "github.com/zjrosen/fern/internal/tree"

// Selection tracks the two cursors the sidebar renders: the keyboard
// cursor and the entry the preview pane is currently showing. Both are
// node IDs into the snapshot, so inserts never invalidate them.
type Selection struct {
	SelectedID tree.NodeID
	ActiveID   tree.NodeID
}

// NewSelection starts with the cursor on the root and nothing active.
func NewSelection(root tree.NodeID) Selection {
	return Selection{SelectedID: root, ActiveID: tree.InvalidID}
}

// moveNext advances the cursor one visible row, wrapping at the end.
func moveNext(s *tree.Snapshot, expanded map[string]bool, sel Selection) Selection {
	sel.SelectedID = tree.Next(s, expanded, sel.SelectedID)
	return sel
}

// movePrev moves the cursor one visible row back, wrapping at the top.
func movePrev(s *tree.Snapshot, expanded map[string]bool, sel Selection) Selection {
	sel.SelectedID = tree.Prev(s, expanded, sel.SelectedID)
	return sel
}

// movePage shifts the cursor delta visible rows without wrapping,
// clamping at either end of the tree.
func movePage(s *tree.Snapshot, expanded map[string]bool, sel Selection, delta int) Selection {
	ids := tree.VisibleIDs(s, expanded)
	if len(ids) == 0 {
		return sel
	}
	at := 0
	for i, id := range ids {
		if id == sel.SelectedID {
			at = i
			break
		}
	}
	at = min(max(at+delta, 0), len(ids)-1)
	sel.SelectedID = ids[at]
	return sel
}

// moveToParent lifts the cursor onto the parent row. The root, having
// no parent, stays put.
func moveToParent(s *tree.Snapshot, sel Selection) Selection {
	n, ok := s.Node(sel.SelectedID)
	if !ok || n.ParentID == tree.InvalidID {
		return sel
	}
	sel.SelectedID = n.ParentID
	return sel
}

// snapTo points both cursors at id. Used when the shown entry changes
// from outside the sidebar and the tree has to follow it.
func snapTo(sel Selection, id tree.NodeID) Selection {
	sel.SelectedID = id
	sel.ActiveID = id
	return sel
}
