package export

import (
	"html/template"
	"strings"
	"testing"
	"time"

	"inkpress/api/internal/store"
	"inkpress/api/internal/thread"
)

func TestRenderPostHTML(t *testing.T) {
	data := TemplateData{
		Title:       "A Quiet Morning",
		ContentHTML: template.HTML("<p>Some <strong>rich</strong> body.</p>"),
		Author:      "Ada",
		Tags:        []string{"life", "coffee"},
		PublishedAt: time.Date(2025, 3, 9, 8, 0, 0, 0, time.UTC),
		Comments: []TemplateComment{
			{Author: "Bob", Body: "Lovely.", Depth: 0, CreatedAt: time.Now()},
			{Author: "Ada", Body: "Thanks!", Depth: 1, CreatedAt: time.Now()},
		},
	}

	html, err := RenderPostHTML(data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		"A Quiet Morning",
		"<strong>rich</strong>",
		"Mar 9, 2025",
		"life",
		"coffee",
		"Lovely.",
		"margin-left: 24px",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered HTML missing %q", want)
		}
	}
}

func TestRenderPostHTMLEscapesCommentBody(t *testing.T) {
	data := TemplateData{
		Title:       "Post",
		PublishedAt: time.Now(),
		Comments: []TemplateComment{
			{Author: "Mallory", Body: "<script>alert(1)</script>", CreatedAt: time.Now()},
		},
	}
	html, err := RenderPostHTML(data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Fatal("comment body was not escaped")
	}
}

func TestFlattenComments(t *testing.T) {
	parent := "c1"
	nodes := thread.Build([]store.Comment{
		{ID: "c1", AuthorName: "Ada", Body: "root"},
		{ID: "c2", AuthorName: "Bob", Body: "reply", ParentID: &parent},
		{ID: "c3", AuthorName: "Cyd", Body: "second root"},
	})

	flat := flattenComments(nodes)
	if len(flat) != 3 {
		t.Fatalf("flattened %d comments, want 3", len(flat))
	}
	if flat[0].Body != "root" || flat[0].Depth != 0 {
		t.Fatalf("first row wrong: %+v", flat[0])
	}
	if flat[1].Body != "reply" || flat[1].Depth != 1 {
		t.Fatalf("reply should follow its parent: %+v", flat[1])
	}
	if flat[2].Body != "second root" || flat[2].Depth != 0 {
		t.Fatalf("third row wrong: %+v", flat[2])
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"A Quiet Morning":       "A-Quiet-Morning",
		"hello/../../etc":       "helloetc",
		"":                      "post",
		"!!!":                   "post",
		strings.Repeat("a", 80): strings.Repeat("a", 50),
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	got := percentEncodeForDataURL("a b+c")
	if got != "a%20b%2Bc" {
		t.Fatalf("got %q", got)
	}
	if strings.Contains(percentEncodeForDataURL("hello world"), "+") {
		t.Fatal("spaces must not be encoded as +")
	}
}
