// Package thread assembles a flat batch of parent-referencing comments
// into a nested, depth-annotated tree for rendering.
package thread

import "inkpress/api/internal/store"

// rootKey groups comments that have no parent.
const rootKey = "root"

// unknownAuthor stands in for a parent whose comment is not in the batch,
// which happens when the parent was hard-deleted between writes.
const unknownAuthor = "Unknown"

// Node is one comment in the assembled tree. Depth is 0 for top-level
// comments and parent depth + 1 below. ParentAuthorName is resolved from
// the same batch so the UI can render "replying to X" without a second
// lookup.
type Node struct {
	store.Comment
	ParentAuthorName string  `json:"parentAuthorName,omitempty"`
	Depth            int     `json:"depth"`
	Replies          []*Node `json:"replies"`
}

// Build turns a flat batch of comments into a forest of threads. Siblings
// keep the order they arrive in, so a batch sorted by creation time yields
// chronological threads. Comments whose parent is missing from the batch
// are dropped.
func Build(comments []store.Comment) []*Node {
	byParent := make(map[string][]store.Comment, len(comments))
	byID := make(map[string]store.Comment, len(comments))
	for _, c := range comments {
		key := rootKey
		if c.ParentID != nil && *c.ParentID != "" {
			key = *c.ParentID
		}
		byParent[key] = append(byParent[key], c)
		byID[c.ID] = c
	}
	return build(byParent, byID, rootKey, 0)
}

func build(byParent map[string][]store.Comment, byID map[string]store.Comment, parentKey string, depth int) []*Node {
	children := byParent[parentKey]
	if len(children) == 0 {
		return []*Node{}
	}
	nodes := make([]*Node, 0, len(children))
	for _, c := range children {
		node := &Node{Comment: c, Depth: depth}
		if c.ParentID != nil && *c.ParentID != "" {
			if parent, ok := byID[*c.ParentID]; ok {
				node.ParentAuthorName = parent.AuthorName
			} else {
				node.ParentAuthorName = unknownAuthor
			}
		}
		node.Replies = build(byParent, byID, c.ID, depth+1)
		nodes = append(nodes, node)
	}
	return nodes
}

// Count reports how many comments are reachable in the assembled forest.
func Count(nodes []*Node) int {
	total := 0
	for _, n := range nodes {
		total += 1 + Count(n.Replies)
	}
	return total
}
