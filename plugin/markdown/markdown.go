// Package markdown renders knowledge item content for API clients.
package markdown

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Service renders markdown and extracts plain text from it.
type Service interface {
	RenderHTML(content string) (string, error)
	PlainText(content string, maxRunes int) string
}

type service struct {
	md goldmark.Markdown
}

// NewService creates a renderer with GitHub flavored extensions. Raw HTML in
// content is escaped.
func NewService() Service {
	return &service{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

func (s *service) RenderHTML(content string) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(content), &buf); err != nil {
		return "", errors.Wrap(err, "failed to render markdown")
	}
	return buf.String(), nil
}

// PlainText returns the text nodes of content joined by single spaces,
// truncated to maxRunes when maxRunes > 0. Used for feed summaries.
func (s *service) PlainText(content string, maxRunes int) string {
	source := []byte(content)
	doc := s.md.Parser().Parse(text.NewReader(source))

	var parts []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			parts = append(parts, string(node.Segment.Value(source)))
		case *ast.CodeSpan:
			parts = append(parts, string(node.Text(source)))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	plain := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	if maxRunes > 0 {
		runes := []rune(plain)
		if len(runes) > maxRunes {
			return string(runes[:maxRunes]) + "..."
		}
	}
	return plain
}
