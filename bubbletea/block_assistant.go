package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/campus"
	"github.com/fwojciec/campus/goldmark"
)

var _ MessageBlock = (*AssistantTextBlock)(nil)

// AssistantTextBlock renders an answer with markdown formatting. Answers
// are immutable once stored, so the rendering is cached per width.
type AssistantTextBlock struct {
	text    string
	theme   campus.Theme
	byWidth map[int]string
}

// NewAssistantTextBlock creates a block for a stored answer.
func NewAssistantTextBlock(text string, theme campus.Theme) *AssistantTextBlock {
	return &AssistantTextBlock{
		text:    text,
		theme:   theme,
		byWidth: make(map[int]string),
	}
}

func (b *AssistantTextBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *AssistantTextBlock) View(width int) string {
	if b.text == "" || width <= 0 {
		return ""
	}
	if cached, ok := b.byWidth[width]; ok {
		return cached
	}
	rendered := goldmark.Render(b.text, width, b.theme)
	b.byWidth[width] = rendered
	return rendered
}
