package thread

import (
	"testing"
	"time"

	"inkpress/api/internal/store"
)

func comment(id, author string, parentID *string) store.Comment {
	return store.Comment{
		ID:         id,
		PostID:     "post_1",
		AuthorID:   "user_" + author,
		AuthorName: author,
		Body:       "body of " + id,
		ParentID:   parentID,
		CreatedAt:  time.Now(),
	}
}

func ptr(s string) *string { return &s }

func TestBuildEmptyBatch(t *testing.T) {
	nodes := Build(nil)
	if nodes == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(nodes) != 0 {
		t.Fatalf("expected 0 nodes, got %d", len(nodes))
	}
}

func TestBuildSingleRoot(t *testing.T) {
	nodes := Build([]store.Comment{comment("c1", "ada", nil)})
	if len(nodes) != 1 {
		t.Fatalf("expected 1 root, got %d", len(nodes))
	}
	if nodes[0].Depth != 0 {
		t.Fatalf("root depth = %d, want 0", nodes[0].Depth)
	}
	if nodes[0].ParentAuthorName != "" {
		t.Fatalf("root has parent author %q", nodes[0].ParentAuthorName)
	}
	if len(nodes[0].Replies) != 0 {
		t.Fatalf("leaf has %d replies", len(nodes[0].Replies))
	}
}

func TestBuildNestedReplies(t *testing.T) {
	batch := []store.Comment{
		comment("c1", "ada", nil),
		comment("c2", "bob", ptr("c1")),
		comment("c3", "cyd", ptr("c2")),
	}
	nodes := Build(batch)
	if len(nodes) != 1 {
		t.Fatalf("expected 1 root, got %d", len(nodes))
	}
	root := nodes[0]
	if root.ID != "c1" || root.Depth != 0 {
		t.Fatalf("root = %s depth %d", root.ID, root.Depth)
	}
	if len(root.Replies) != 1 {
		t.Fatalf("root has %d replies, want 1", len(root.Replies))
	}
	reply := root.Replies[0]
	if reply.ID != "c2" || reply.Depth != 1 {
		t.Fatalf("reply = %s depth %d", reply.ID, reply.Depth)
	}
	if reply.ParentAuthorName != "ada" {
		t.Fatalf("reply parent author = %q, want ada", reply.ParentAuthorName)
	}
	nested := reply.Replies[0]
	if nested.ID != "c3" || nested.Depth != 2 {
		t.Fatalf("nested = %s depth %d", nested.ID, nested.Depth)
	}
	if nested.ParentAuthorName != "bob" {
		t.Fatalf("nested parent author = %q, want bob", nested.ParentAuthorName)
	}
}

func TestBuildSiblingsKeepArrivalOrder(t *testing.T) {
	batch := []store.Comment{
		comment("c1", "ada", nil),
		comment("c2", "bob", nil),
		comment("c3", "cyd", ptr("c1")),
		comment("c4", "dee", ptr("c1")),
	}
	nodes := Build(batch)
	if len(nodes) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(nodes))
	}
	if nodes[0].ID != "c1" || nodes[1].ID != "c2" {
		t.Fatalf("root order = %s, %s", nodes[0].ID, nodes[1].ID)
	}
	replies := nodes[0].Replies
	if len(replies) != 2 || replies[0].ID != "c3" || replies[1].ID != "c4" {
		t.Fatalf("unexpected reply order: %+v", replies)
	}
}

func TestBuildDropsOrphans(t *testing.T) {
	batch := []store.Comment{
		comment("c1", "ada", nil),
		comment("c2", "bob", ptr("gone")),
		comment("c3", "cyd", ptr("c2")),
	}
	nodes := Build(batch)
	if len(nodes) != 1 {
		t.Fatalf("expected 1 root, got %d", len(nodes))
	}
	if got := Count(nodes); got != 1 {
		t.Fatalf("reachable count = %d, want 1", got)
	}
}

func TestBuildLongChainDepths(t *testing.T) {
	const n = 12
	batch := make([]store.Comment, 0, n)
	var parent *string
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		batch = append(batch, comment(id, "ada", parent))
		parent = ptr(id)
	}
	nodes := Build(batch)
	depth := 0
	for cur := nodes; len(cur) > 0; cur = cur[0].Replies {
		if cur[0].Depth != depth {
			t.Fatalf("depth at level %d = %d", depth, cur[0].Depth)
		}
		depth++
	}
	if depth != n {
		t.Fatalf("chain length = %d, want %d", depth, n)
	}
}

func TestCountConservation(t *testing.T) {
	batch := []store.Comment{
		comment("c1", "ada", nil),
		comment("c2", "bob", ptr("c1")),
		comment("c3", "cyd", nil),
		comment("c4", "dee", ptr("c3")),
		comment("c5", "eli", ptr("c4")),
	}
	if got := Count(Build(batch)); got != len(batch) {
		t.Fatalf("count = %d, want %d", got, len(batch))
	}
}

func TestBuildEmptyStringParentIsRoot(t *testing.T) {
	nodes := Build([]store.Comment{comment("c1", "ada", ptr(""))})
	if len(nodes) != 1 {
		t.Fatalf("expected 1 root, got %d", len(nodes))
	}
	if nodes[0].Depth != 0 || nodes[0].ParentAuthorName != "" {
		t.Fatalf("empty parent id should be a root: %+v", nodes[0])
	}
}
