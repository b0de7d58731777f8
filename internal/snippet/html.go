package snippet

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// htmlItem is one element of the flattened document-order walk used to
// attach section context to <pre> blocks.
type htmlItem struct {
	kind string // "heading", "pre", "text"
	text string
	lang string
}

// ParseHTML extracts every <pre><code> (or bare <pre>) block from an HTML
// document. The language comes from a language-*/lang-* class when present;
// section context derives from the nearest preceding heading tag. Entities
// are decoded by the HTML parser; line numbers are not available.
func (p *Parser) ParseHTML(content string) []Candidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}

	var items []htmlItem
	doc.Find("h1, h2, h3, h4, h5, h6, pre, p").Each(func(_ int, sel *goquery.Selection) {
		node := goquery.NodeName(sel)
		switch node {
		case "pre":
			code := sel.Find("code").First()
			var body, class string
			if code.Length() > 0 {
				body = code.Text()
				class, _ = code.Attr("class")
				if class == "" {
					class, _ = sel.Attr("class")
				}
			} else {
				body = sel.Text()
				class, _ = sel.Attr("class")
			}
			items = append(items, htmlItem{kind: "pre", text: body, lang: languageFromClass(class)})
		case "p":
			// Skip paragraphs that wrap a pre we will see separately.
			if sel.Find("pre").Length() > 0 {
				return
			}
			items = append(items, htmlItem{kind: "text", text: strings.TrimSpace(sel.Text())})
		default:
			items = append(items, htmlItem{kind: "heading", text: strings.TrimSpace(sel.Text())})
		}
	})

	var out []Candidate
	for i, it := range items {
		if it.kind != "pre" || !p.keep(it.text) {
			continue
		}

		cand := Candidate{
			Language: it.lang,
			Code:     it.text,
		}

		// Walk back to the nearest heading, collecting the paragraph just
		// before the block as context.
		headingIdx := -1
		for j := i - 1; j >= 0; j-- {
			if items[j].kind == "heading" {
				headingIdx = j
				break
			}
			if items[j].kind == "text" && cand.ContextBefore == "" {
				cand.ContextBefore = items[j].text
			}
		}
		for j := i + 1; j < len(items); j++ {
			if items[j].kind == "heading" {
				break
			}
			if items[j].kind == "text" {
				cand.ContextAfter = items[j].text
				break
			}
		}

		if headingIdx >= 0 {
			cand.SectionTitle = items[headingIdx].text
			cand.SectionContent = htmlSectionContent(items, headingIdx)
		}

		out = append(out, cand)
	}
	return out
}

// htmlSectionContent joins the heading and the prose between it and the
// next heading.
func htmlSectionContent(items []htmlItem, headingIdx int) string {
	parts := []string{items[headingIdx].text}
	for _, it := range items[headingIdx+1:] {
		if it.kind == "heading" {
			break
		}
		if it.kind == "text" && it.text != "" {
			parts = append(parts, it.text)
		}
	}
	return strings.Join(parts, "\n")
}

// languageFromClass pulls a language hint out of a class attribute, e.g.
// "language-go", "lang-python", or "highlight-source-rust".
func languageFromClass(class string) string {
	for _, token := range strings.Fields(class) {
		lower := strings.ToLower(token)
		switch {
		case strings.HasPrefix(lower, "language-"):
			return strings.TrimPrefix(lower, "language-")
		case strings.HasPrefix(lower, "lang-"):
			return strings.TrimPrefix(lower, "lang-")
		case strings.HasPrefix(lower, "highlight-source-"):
			return strings.TrimPrefix(lower, "highlight-source-")
		}
	}
	return ""
}
