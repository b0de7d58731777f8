package snippet

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type mdHeading struct {
	level     int
	text      string
	lineStart int // byte offset of the heading's first line
}

type mdFence struct {
	language  string
	code      string
	startByte int // first byte of the code body
	endByte   int // one past the last byte of the code body
}

// ParseMarkdown extracts every fenced code block from a markdown document,
// attaching the nearest preceding heading as section title, the
// heading-to-next-heading slice as section content, and ContextLines raw
// lines on each side as context.
func (p *Parser) ParseMarkdown(content string) []Candidate {
	source := []byte(content)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))
	offsets := lineOffsets(source)

	var headings []mdHeading
	var fences []mdFence

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			lines := node.Lines()
			if lines.Len() == 0 {
				return ast.WalkContinue, nil
			}
			// Segments point at the heading text; snap back to the start
			// of the marker line so section slices stay clean.
			headings = append(headings, mdHeading{
				level:     node.Level,
				text:      strings.TrimSpace(nodeText(node, source)),
				lineStart: offsets[lineAt(offsets, lines.At(0).Start)-1],
			})
		case *ast.FencedCodeBlock:
			lines := node.Lines()
			if lines.Len() == 0 {
				return ast.WalkContinue, nil
			}
			var code strings.Builder
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				code.Write(seg.Value(source))
			}
			fences = append(fences, mdFence{
				language:  string(node.Language(source)),
				code:      code.String(),
				startByte: lines.At(0).Start,
				endByte:   lines.At(lines.Len() - 1).Stop,
			})
		}
		return ast.WalkContinue, nil
	})

	if len(fences) == 0 {
		return nil
	}

	rawLines := strings.Split(content, "\n")

	out := make([]Candidate, 0, len(fences))
	for _, f := range fences {
		if !p.keep(f.code) {
			continue
		}

		lineStart := lineAt(offsets, f.startByte)
		lineEnd := lineAt(offsets, f.endByte-1)
		ls, le := lineStart, lineEnd

		cand := Candidate{
			Language:  f.language,
			Code:      f.code,
			LineStart: &ls,
			LineEnd:   &le,
		}

		// The opening fence sits on the line above the code body and the
		// closing fence below it; context skips past both.
		if p.ContextLines > 0 {
			fenceOpen := lineStart - 1 // 1-based line of the ``` marker
			cand.ContextBefore = contextSlice(rawLines, fenceOpen-1-p.ContextLines, fenceOpen-1)
			fenceClose := lineEnd + 1
			cand.ContextAfter = contextSlice(rawLines, fenceClose, fenceClose+p.ContextLines)
		}

		if h := nearestHeading(headings, f.startByte); h >= 0 {
			cand.SectionTitle = headings[h].text
			cand.SectionContent = sectionContent(content, headings, h)
		}

		out = append(out, cand)
	}
	return out
}

// nearestHeading returns the index of the last heading starting before pos,
// or -1.
func nearestHeading(headings []mdHeading, pos int) int {
	idx := -1
	for i, h := range headings {
		if h.lineStart < pos {
			idx = i
		} else {
			break
		}
	}
	return idx
}

// sectionContent slices the source from heading h to the next heading of
// any level (or the end of the document).
func sectionContent(content string, headings []mdHeading, h int) string {
	start := headings[h].lineStart
	end := len(content)
	if h+1 < len(headings) {
		end = headings[h+1].lineStart
	}
	return strings.TrimSpace(content[start:end])
}

// nodeText collects the raw text of an inline subtree.
func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
		case *ast.String:
			b.Write(t.Value)
		default:
			b.WriteString(nodeText(c, source))
		}
	}
	return b.String()
}
