package util

import (
	"strings"
	"testing"
)

func TestNewIDPrefixed(t *testing.T) {
	id := NewID("usr")
	if !strings.HasPrefix(id, "usr_") {
		t.Fatalf("expected usr_ prefix, got %s", id)
	}
	if len(id) != len("usr_")+32 {
		t.Fatalf("unexpected id length: %s", id)
	}
	if id == NewID("usr") {
		t.Fatal("two ids should not collide")
	}
}

func TestNewIDBare(t *testing.T) {
	id := NewID("")
	if len(id) != 32 || strings.Contains(id, "_") {
		t.Fatalf("unexpected bare id: %s", id)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Hello World", "hello-world"},
		{"  Spaced   Out\tTitle ", "spaced-out-title"},
		{"MiXeD Case", "mixed-case"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := Slugify(tc.title); got != tc.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}
