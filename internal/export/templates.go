package export

import (
	"bytes"
	"html/template"
	"strings"
	"time"
)

// SafeHTML marks a string as pre-rendered HTML for the template.
func SafeHTML(s interface{}) template.HTML {
	switch v := s.(type) {
	case string:
		return template.HTML(v)
	case template.HTML:
		return v
	default:
		return template.HTML("")
	}
}

var postTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
		"safeHTML": SafeHTML,
		"indent": func(depth int) int {
			return depth * 24
		},
	}
	postTemplate = template.Must(template.New("post").Funcs(funcMap).Parse(postTemplateSource))
}

// TemplateData holds data for post template rendering.
type TemplateData struct {
	Title       string
	ContentHTML template.HTML
	Author      string
	Tags        []string
	PublishedAt time.Time
	Comments    []TemplateComment
}

// TemplateComment is one flattened comment row; Depth drives indentation.
type TemplateComment struct {
	Author    string
	Body      string
	Depth     int
	CreatedAt time.Time
}

// RenderPostHTML renders the post template with provided data.
func RenderPostHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := postTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const postTemplateSource = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Georgia, serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; color: #1a1a1a; }
    h1 { border-bottom: 2px solid #14532d; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .tag { background: #eef2ee; border-radius: 3px; padding: 2px 8px; margin-right: 4px; font-size: 0.85em; }
    .comment { background: #f5f5f5; padding: 0.75rem 1rem; margin: 0.75rem 0; border-left: 3px solid #14532d; }
    .comment .author { font-weight: bold; }
    .comment .when { color: #888; font-size: 0.8em; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">
    {{.Author}} | {{.PublishedAt.Format "Jan 2, 2006"}}
    {{range .Tags}}<span class="tag">{{.}}</span>{{end}}
  </div>
  <div>{{.ContentHTML | safeHTML}}</div>
  {{if .Comments}}
  <h2>Comments</h2>
  {{range .Comments}}
  <div class="comment" style="margin-left: {{indent .Depth}}px">
    <span class="author">{{.Author}}</span>
    <span class="when">{{.CreatedAt.Format "Jan 2, 2006 15:04"}}</span>
    <p>{{.Body}}</p>
  </div>
  {{end}}
  {{end}}
</body>
</html>`
