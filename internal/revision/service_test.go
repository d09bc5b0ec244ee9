package revision

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestPostRepoLifecycle(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	initial := Content{
		Title: "First Post",
		Slug:  "first-post",
		Body:  "Hello world.",
	}

	if err := svc.EnsurePostRepo("pst-1", initial, "Avery"); err != nil {
		t.Fatalf("EnsurePostRepo() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "pst-1")); err != nil {
		t.Fatalf("repo directory missing: %v", err)
	}

	// Second call is a no-op.
	if err := svc.EnsurePostRepo("pst-1", initial, "Avery"); err != nil {
		t.Fatalf("EnsurePostRepo() repeat error = %v", err)
	}

	updated := initial
	updated.Body = "Hello again."
	commit, err := svc.CommitContent("pst-1", updated, "Avery", "Edit post")
	if err != nil {
		t.Fatalf("CommitContent() error = %v", err)
	}
	if commit.Hash == "" {
		t.Fatal("expected commit hash")
	}

	history, err := svc.History("pst-1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[0].Hash != commit.Hash {
		t.Fatalf("newest commit = %s, want %s", history[0].Hash, commit.Hash)
	}

	changed, err := svc.GetContentByHash("pst-1", commit.Hash)
	if err != nil {
		t.Fatalf("GetContentByHash() error = %v", err)
	}
	if changed.Body != "Hello again." {
		t.Fatalf("unexpected content: %+v", changed)
	}
}

func TestHistoryLimit(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	initial := Content{Title: "Post", Slug: "post", Body: "v0"}
	if err := svc.EnsurePostRepo("pst-1", initial, "Avery"); err != nil {
		t.Fatalf("EnsurePostRepo() error = %v", err)
	}
	for i := 1; i <= 5; i++ {
		next := initial
		next.Body = fmt.Sprintf("v%d", i)
		if _, err := svc.CommitContent("pst-1", next, "Avery", fmt.Sprintf("Edit %d", i)); err != nil {
			t.Fatalf("CommitContent() error = %v", err)
		}
	}

	history, err := svc.History("pst-1", 3)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 entries with limit, got %d", len(history))
	}
}

func TestConcurrentCommits(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	initial := Content{Title: "Post", Slug: "post", Body: "start"}
	if err := svc.EnsurePostRepo("pst-1", initial, "Avery"); err != nil {
		t.Fatalf("EnsurePostRepo() error = %v", err)
	}

	const writers = 12
	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			next := initial
			next.Body = fmt.Sprintf("body-%02d", idx)
			if _, err := svc.CommitContent("pst-1", next, "Avery", fmt.Sprintf("Commit %02d", idx)); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			t.Fatalf("CommitContent() concurrent error = %v", err)
		}
	}

	history, err := svc.History("pst-1", 100)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) < writers+1 {
		t.Fatalf("expected at least %d commits, got %d", writers+1, len(history))
	}

	head, err := svc.GetContentByHash("pst-1", history[0].Hash)
	if err != nil {
		t.Fatalf("GetContentByHash() error = %v", err)
	}
	if !strings.HasPrefix(head.Body, "body-") {
		t.Fatalf("unexpected head content after concurrent commits: %+v", head)
	}
}

func TestHasChanges(t *testing.T) {
	a := Content{Title: "T", Slug: "t", Body: "b"}
	b := a
	if HasChanges(a, b) {
		t.Fatal("identical content should report no changes")
	}
	b.Body = "different"
	if !HasChanges(a, b) {
		t.Fatal("modified content should report changes")
	}
}
