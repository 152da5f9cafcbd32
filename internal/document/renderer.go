package document

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

const errorRenderMarkdownFmt = "render markdown: %w"

// RenderOptions controls HTML output.
type RenderOptions struct {
	HardWraps  bool
	UnsafeHTML bool
}

// Renderer converts markdown documents into HTML for the rendered view.
// A Renderer holds no mutable state and may be shared.
type Renderer struct {
	engine goldmark.Markdown
}

// NewRenderer builds a Renderer with GitHub flavored markdown enabled.
func NewRenderer(options RenderOptions) *Renderer {
	rendererOptions := []renderer.Option{}
	if options.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}
	if options.UnsafeHTML {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}
	engine := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(rendererOptions...),
	)
	return &Renderer{engine: engine}
}

// Render returns the HTML for content. Front matter is not rendered.
func (documentRenderer *Renderer) Render(content string) (string, error) {
	parsed := Parse(content)
	var buffer bytes.Buffer
	if convertError := documentRenderer.engine.Convert([]byte(parsed.Body), &buffer); convertError != nil {
		return "", fmt.Errorf(errorRenderMarkdownFmt, convertError)
	}
	return buffer.String(), nil
}
