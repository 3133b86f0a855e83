package notion

import (
	"strings"

	"github.com/jomei/notionapi"

	"github.com/custodia-labs/sema-cli/internal/core/domain"
)

// pageMeta extracts note metadata from a Notion page.
func pageMeta(page notionapi.Page) domain.NoteMeta {
	return domain.NoteMeta{
		Title:      pageTitle(page),
		CreatedAt:  page.CreatedTime,
		ModifiedAt: page.LastEditedTime,
	}
}

// pageTitle finds the title property of a page. Untitled pages get
// the page ID so they remain addressable.
func pageTitle(page notionapi.Page) string {
	for _, prop := range page.Properties {
		title, ok := prop.(*notionapi.TitleProperty)
		if !ok {
			continue
		}
		text := richText(title.Title)
		if text != "" {
			return text
		}
	}
	return string(page.ID)
}

// renderBlocks flattens a page's blocks into plain text, one block
// per line. Unsupported block types are skipped.
func renderBlocks(blocks []notionapi.Block) string {
	var lines []string
	for _, block := range blocks {
		text := blockText(block)
		if text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n")
}

// blockText extracts the plain text of one block.
func blockText(block notionapi.Block) string {
	switch b := block.(type) {
	case *notionapi.ParagraphBlock:
		return richText(b.Paragraph.RichText)
	case *notionapi.Heading1Block:
		return richText(b.Heading1.RichText)
	case *notionapi.Heading2Block:
		return richText(b.Heading2.RichText)
	case *notionapi.Heading3Block:
		return richText(b.Heading3.RichText)
	case *notionapi.BulletedListItemBlock:
		return richText(b.BulletedListItem.RichText)
	case *notionapi.NumberedListItemBlock:
		return richText(b.NumberedListItem.RichText)
	case *notionapi.ToDoBlock:
		return richText(b.ToDo.RichText)
	case *notionapi.QuoteBlock:
		return richText(b.Quote.RichText)
	case *notionapi.CalloutBlock:
		return richText(b.Callout.RichText)
	case *notionapi.CodeBlock:
		return richText(b.Code.RichText)
	default:
		return ""
	}
}

// richText joins the plain-text fragments of a rich text run.
func richText(rts []notionapi.RichText) string {
	var sb strings.Builder
	for _, rt := range rts {
		sb.WriteString(rt.PlainText)
	}
	return strings.TrimSpace(sb.String())
}
