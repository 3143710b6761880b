package notion

import (
	"strings"
	"time"
)

// Page is a Notion page as returned by the pages endpoints.
type Page struct {
	ID       string `json:"id"`
	Archived bool   `json:"archived"`
	URL      string `json:"url,omitempty"`
}

// Block is a Notion block. Only the block types kaasync reads or writes are
// modeled; unknown types round-trip through Type with nil content.
type Block struct {
	ID               string         `json:"id,omitempty"`
	Type             string         `json:"type"`
	Archived         bool           `json:"archived,omitempty"`
	Heading2         *RichTextBlock `json:"heading_2,omitempty"`
	Paragraph        *RichTextBlock `json:"paragraph,omitempty"`
	ToDo             *ToDoBlock     `json:"to_do,omitempty"`
	BulletedListItem *RichTextBlock `json:"bulleted_list_item,omitempty"`
}

// RichTextBlock is the shared content shape of heading, paragraph, and
// list item blocks.
type RichTextBlock struct {
	RichText []RichText `json:"rich_text"`
}

// ToDoBlock is a to_do block; kaasync uses these for milestones.
type ToDoBlock struct {
	RichText []RichText `json:"rich_text"`
	Checked  bool       `json:"checked"`
}

// RichText is a single rich text fragment.
type RichText struct {
	Type      string       `json:"type,omitempty"`
	Text      *TextContent `json:"text,omitempty"`
	PlainText string       `json:"plain_text,omitempty"`
}

// TextContent is the literal content of a text fragment.
type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

// Link is an inline URL attached to a text fragment.
type Link struct {
	URL string `json:"url"`
}

// Properties is a page property map keyed by property name.
type Properties map[string]interface{}

// Text builds a single-fragment rich text array.
func Text(content string) []RichText {
	return []RichText{{
		Type: "text",
		Text: &TextContent{Content: content},
	}}
}

// TitleProperty builds a title property value.
func TitleProperty(content string) interface{} {
	return map[string]interface{}{"title": Text(content)}
}

// RichTextProperty builds a rich_text property value.
func RichTextProperty(content string) interface{} {
	return map[string]interface{}{"rich_text": Text(content)}
}

// SelectProperty builds a select property value.
func SelectProperty(name string) interface{} {
	return map[string]interface{}{
		"select": map[string]interface{}{"name": name},
	}
}

// NumberProperty builds a number property value.
func NumberProperty(n float64) interface{} {
	return map[string]interface{}{"number": n}
}

// EmailProperty builds an email property value.
func EmailProperty(email string) interface{} {
	return map[string]interface{}{"email": email}
}

// PhoneNumberProperty builds a phone_number property value.
func PhoneNumberProperty(phone string) interface{} {
	return map[string]interface{}{"phone_number": phone}
}

// DateProperty builds a date property value from the start date.
func DateProperty(start time.Time) interface{} {
	return map[string]interface{}{
		"date": map[string]interface{}{"start": start.Format("2006-01-02")},
	}
}

// NewHeading2 builds a heading_2 block.
func NewHeading2(text string) Block {
	return Block{
		Type:     "heading_2",
		Heading2: &RichTextBlock{RichText: Text(text)},
	}
}

// NewToDo builds a to_do block.
func NewToDo(text string, checked bool) Block {
	return Block{
		Type: "to_do",
		ToDo: &ToDoBlock{RichText: Text(text), Checked: checked},
	}
}

// NewBulletedItem builds a bulleted_list_item block.
func NewBulletedItem(text string) Block {
	return Block{
		Type:             "bulleted_list_item",
		BulletedListItem: &RichTextBlock{RichText: Text(text)},
	}
}

// PlainText returns the concatenated plain text of a block's content,
// regardless of block type. API responses carry plain_text; locally built
// blocks carry only text content, so both are consulted.
func (b Block) PlainText() string {
	var fragments []RichText
	switch {
	case b.Heading2 != nil:
		fragments = b.Heading2.RichText
	case b.Paragraph != nil:
		fragments = b.Paragraph.RichText
	case b.ToDo != nil:
		fragments = b.ToDo.RichText
	case b.BulletedListItem != nil:
		fragments = b.BulletedListItem.RichText
	}

	var sb strings.Builder
	for _, fragment := range fragments {
		if fragment.PlainText != "" {
			sb.WriteString(fragment.PlainText)
		} else if fragment.Text != nil {
			sb.WriteString(fragment.Text.Content)
		}
	}
	return sb.String()
}

// IsHeading reports whether the block is any heading level. Headings
// delimit the labeled sections kaasync appends child items into.
func (b Block) IsHeading() bool {
	return strings.HasPrefix(b.Type, "heading_")
}
