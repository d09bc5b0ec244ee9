package export

import (
	"context"
	"fmt"
	"html/template"

	"inkpress/api/internal/store"
	"inkpress/api/internal/thread"
)

// DataStore defines the data access the exporter needs.
type DataStore interface {
	GetPostBySlug(ctx context.Context, slug string) (store.Post, error)
	ListCommentsByPost(ctx context.Context, postID string) ([]store.Comment, error)
}

// Service renders posts to PDF.
type Service struct {
	store DataStore
}

func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// Export generates a PDF for one post, with its threaded comments appended
// when requested.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	post, err := s.store.GetPostBySlug(ctx, req.Slug)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentUnavailable, err)
	}

	tags := make([]string, 0, len(post.Tags))
	for _, t := range post.Tags {
		tags = append(tags, t.Name)
	}

	data := TemplateData{
		Title:       post.Title,
		ContentHTML: template.HTML(post.Body),
		Author:      post.AuthorName,
		Tags:        tags,
		PublishedAt: post.CreatedAt,
		Comments:    []TemplateComment{},
	}

	if req.IncludeComments {
		comments, err := s.store.ListCommentsByPost(ctx, post.ID)
		if err != nil {
			return nil, fmt.Errorf("list comments: %w", err)
		}
		data.Comments = flattenComments(thread.Build(comments))
	}

	html, err := RenderPostHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	return exportPDF(html, post.Title)
}

// flattenComments walks the comment forest depth-first so the printed page
// shows replies under their parents, indented by depth.
func flattenComments(nodes []*thread.Node) []TemplateComment {
	out := make([]TemplateComment, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, TemplateComment{
			Author:    n.AuthorName,
			Body:      n.Body,
			Depth:     n.Depth,
			CreatedAt: n.CreatedAt,
		})
		out = append(out, flattenComments(n.Replies)...)
	}
	return out
}
