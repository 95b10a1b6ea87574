// Package tree holds the flat node table behind the file tree sidebar.
// Nodes are append-only with stable small integer ids, so selection and
// expansion state survive incremental loads without reindexing.
package tree

import "github.com/zjrosen/fern/internal/source"

// NodeID is a node's position in the snapshot's node table. Ids are
// stable for the life of a tree: loads only append.
type NodeID int

// InvalidID marks the absence of a node, such as an orphan's parent.
const InvalidID NodeID = -1

// NodeKind discriminates the three row flavors the tree renders.
type NodeKind int

const (
	// KindEntry is a regular file or directory from a listing.
	KindEntry NodeKind = iota

	// KindPlaceholder is the synthetic row shown when a directory's
	// listing was cut off at the truncation limit.
	KindPlaceholder

	// KindDotDot is the synthetic ".." row that navigates to the parent
	// of the tree's root.
	KindDotDot
)

// Node is one row of the table.
//
// ParentID is a weak reference: entries can arrive before their parent
// directory, in which case ParentID stays InvalidID until the parent is
// inserted and adopts them.
type Node struct {
	ID          NodeID
	Name        string
	Path        string
	IsDir       bool
	Kind        NodeKind
	ParentID    NodeID
	ChildIDs    []NodeID
	URL         string
	Submodule   *source.SubmoduleInfo
	SingleChild bool

	// LoadErr records the most recent failed load of this directory's
	// children. Cleared when a later load succeeds.
	LoadErr error
}
