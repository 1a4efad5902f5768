package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/campus"
	"github.com/fwojciec/campus/goldmark"
)

var _ MessageBlock = (*UserMessageBlock)(nil)

// UserMessageBlock renders a message the user sent, with a left rule in the
// user color. URLs in the text are rendered as hyperlinks.
type UserMessageBlock struct {
	text   string
	theme  campus.Theme
	styles Styles
}

// NewUserMessageBlock creates a UserMessageBlock.
func NewUserMessageBlock(text string, theme campus.Theme, styles Styles) *UserMessageBlock {
	return &UserMessageBlock{text: text, theme: theme, styles: styles}
}

func (b *UserMessageBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *UserMessageBlock) View(width int) string {
	// The rule and padding take two columns. Style width excludes the border.
	content := goldmark.RenderText(b.text, max(width-2, 1), b.theme)
	return b.styles.UserBg.Width(max(width-1, 2)).Render(content)
}
