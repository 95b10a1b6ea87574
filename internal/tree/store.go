package tree

import (
	"path"

	"github.com/zjrosen/fern/internal/source"
)

const rootID NodeID = 0

// Snapshot is an immutable view of the node table. Transformations
// return a fresh snapshot; the old one stays valid for whoever holds it,
// which keeps in-flight renders and stale load results harmless.
type Snapshot struct {
	nodes    []Node
	pathID   map[string]NodeID
	loaded   map[NodeID]bool
	rootPath string
}

// NewSnapshot builds the bootstrap tree: the root row at id 0, plus a
// ".." row when the tree is rooted below the top of the repository.
func NewSnapshot(rootPath string, dotdot bool) *Snapshot {
	s := &Snapshot{
		pathID:   make(map[string]NodeID),
		loaded:   make(map[NodeID]bool),
		rootPath: rootPath,
	}

	name := ""
	if rootPath != "" {
		name = path.Base(rootPath)
	}
	s.nodes = append(s.nodes, Node{
		ID:       rootID,
		Name:     name,
		Path:     rootPath,
		IsDir:    true,
		Kind:     KindEntry,
		ParentID: InvalidID,
	})

	if dotdot {
		s.nodes = append(s.nodes, Node{
			ID:       NodeID(1),
			Name:     "..",
			Path:     source.ParentPath(rootPath),
			Kind:     KindDotDot,
			ParentID: rootID,
		})
		s.nodes[rootID].ChildIDs = []NodeID{1}
	}

	return s
}

func (s *Snapshot) clone() *Snapshot {
	next := &Snapshot{
		nodes:    make([]Node, len(s.nodes)),
		pathID:   make(map[string]NodeID, len(s.pathID)),
		loaded:   make(map[NodeID]bool, len(s.loaded)),
		rootPath: s.rootPath,
	}
	copy(next.nodes, s.nodes)
	for i := range next.nodes {
		next.nodes[i].ChildIDs = append([]NodeID(nil), next.nodes[i].ChildIDs...)
	}
	for k, v := range s.pathID {
		next.pathID[k] = v
	}
	for k, v := range s.loaded {
		next.loaded[k] = v
	}
	return next
}

// Insert appends new entry nodes and returns the grown snapshot.
// Entries must keep rows sharing a parent directory contiguous, which is
// how sources arrange listings. Paths already present are skipped, so
// replaying a listing is a no-op. Once a directory holds limit entries,
// one placeholder row is appended and the rest of that group is dropped.
// limit <= 0 means no cap.
func (s *Snapshot) Insert(entries []source.Entry, limit int) *Snapshot {
	next := s.clone()

	// A parent value no real group can have, so the first entry always
	// starts a group.
	prevParent := "\x00"
	var count int
	var truncated bool

	for _, e := range entries {
		parent := source.ParentPath(e.Path)
		if parent != prevParent {
			prevParent = parent
			count = next.countEntries(parent)
			truncated = next.hasPlaceholder(parent)
		}
		if _, ok := next.pathID[e.Path]; ok {
			continue
		}
		if truncated {
			continue
		}
		if limit > 0 && count >= limit {
			next.appendPlaceholder(parent)
			truncated = true
			continue
		}
		next.appendEntry(e, parent)
		count++
	}

	return next
}

// MarkLoaded flags a directory's children as fetched and clears any
// recorded load failure, so collapsing and re-expanding after an error
// retries cleanly. Paths that do not resolve to a directory no-op.
func (s *Snapshot) MarkLoaded(p string) *Snapshot {
	next := s.clone()
	id := next.idForPath(p)
	if id == InvalidID || !next.nodes[id].IsDir {
		return next
	}
	next.loaded[id] = true
	next.nodes[id].LoadErr = nil
	return next
}

// SetLoadError records a failed child load on the directory itself, as
// data rather than a modal state. Paths that do not resolve to a
// directory no-op.
func (s *Snapshot) SetLoadError(p string, err error) *Snapshot {
	next := s.clone()
	id := next.idForPath(p)
	if id == InvalidID || !next.nodes[id].IsDir {
		return next
	}
	next.nodes[id].LoadErr = err
	return next
}

// SetRootURL stamps the root row's link. The root is synthetic, so its
// URL arrives with the first listing rather than as an entry.
func (s *Snapshot) SetRootURL(url string) *Snapshot {
	next := s.clone()
	next.nodes[rootID].URL = url
	return next
}

// Len returns the number of nodes, synthetic rows included.
func (s *Snapshot) Len() int {
	return len(s.nodes)
}

// Node returns the node at id. The returned value shares its ChildIDs
// slice with the snapshot; treat it as read-only.
func (s *Snapshot) Node(id NodeID) (Node, bool) {
	if id < 0 || int(id) >= len(s.nodes) {
		return Node{}, false
	}
	return s.nodes[id], true
}

// IDForPath resolves a repository-relative path to its node, the root
// path included. Synthetic rows are not indexed.
func (s *Snapshot) IDForPath(p string) (NodeID, bool) {
	id := s.idForPath(p)
	return id, id != InvalidID
}

// IsLoaded reports whether the directory's children have been fetched.
func (s *Snapshot) IsLoaded(id NodeID) bool {
	return s.loaded[id]
}

// RootPath returns the repository-relative path the tree is rooted at,
// "" for the repository root.
func (s *Snapshot) RootPath() string {
	return s.rootPath
}

// Root returns the root node.
func (s *Snapshot) Root() Node {
	return s.nodes[rootID]
}

func (s *Snapshot) idForPath(p string) NodeID {
	if p == s.rootPath {
		return rootID
	}
	if id, ok := s.pathID[p]; ok {
		return id
	}
	return InvalidID
}

// countEntries counts real entries already parented under dir. The
// placeholder does not count against the limit.
func (s *Snapshot) countEntries(dir string) int {
	n := 0
	for i := range s.nodes {
		nd := &s.nodes[i]
		if nd.ID != rootID && nd.Kind == KindEntry && source.ParentPath(nd.Path) == dir {
			n++
		}
	}
	return n
}

func (s *Snapshot) hasPlaceholder(dir string) bool {
	for i := range s.nodes {
		nd := &s.nodes[i]
		if nd.Kind == KindPlaceholder && nd.Path == dir {
			return true
		}
	}
	return false
}

func (s *Snapshot) appendEntry(e source.Entry, parent string) {
	id := NodeID(len(s.nodes))
	s.nodes = append(s.nodes, Node{
		ID:          id,
		Name:        e.Name,
		Path:        e.Path,
		IsDir:       e.IsDir,
		Kind:        KindEntry,
		ParentID:    s.idForPath(parent),
		URL:         e.URL,
		Submodule:   e.Submodule,
		SingleChild: e.SingleChild,
	})
	s.pathID[e.Path] = id

	if parentID := s.nodes[id].ParentID; parentID != InvalidID {
		s.nodes[parentID].ChildIDs = append(s.nodes[parentID].ChildIDs, id)
	}
	if e.IsDir {
		s.adoptOrphans(id)
	}
}

// appendPlaceholder adds the truncation row for dir. Placeholders carry
// the directory's own path and are never indexed.
func (s *Snapshot) appendPlaceholder(dir string) {
	id := NodeID(len(s.nodes))
	s.nodes = append(s.nodes, Node{
		ID:       id,
		Name:     "...",
		Path:     dir,
		Kind:     KindPlaceholder,
		ParentID: s.idForPath(dir),
	})
	if parentID := s.nodes[id].ParentID; parentID != InvalidID {
		s.nodes[parentID].ChildIDs = append(s.nodes[parentID].ChildIDs, id)
	}
}

// adoptOrphans links nodes that arrived before this directory existed.
// Ascending id order keeps adopted siblings in their original listing
// order.
func (s *Snapshot) adoptOrphans(dirID NodeID) {
	dirPath := s.nodes[dirID].Path
	for i := range s.nodes {
		n := &s.nodes[i]
		if n.ID == rootID || n.ID == dirID || n.ParentID != InvalidID {
			continue
		}
		switch n.Kind {
		case KindEntry:
			if source.ParentPath(n.Path) != dirPath {
				continue
			}
		case KindPlaceholder:
			if n.Path != dirPath {
				continue
			}
		default:
			continue
		}
		n.ParentID = dirID
		s.nodes[dirID].ChildIDs = append(s.nodes[dirID].ChildIDs, n.ID)
	}
}
