package bubbletea

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var _ MessageBlock = (*ThinkingBlock)(nil)

// ThinkingBlock is the indicator shown while an answer is pending.
type ThinkingBlock struct {
	spinner spinner.Model
	styles  Styles
}

// NewThinkingBlock creates a ThinkingBlock.
func NewThinkingBlock(styles Styles) *ThinkingBlock {
	s := spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(styles.Assistant))
	return &ThinkingBlock{spinner: s, styles: styles}
}

// Tick starts the spinner animation.
func (b *ThinkingBlock) Tick() tea.Cmd {
	return b.spinner.Tick
}

func (b *ThinkingBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	if _, ok := msg.(spinner.TickMsg); !ok {
		return b, nil
	}
	var cmd tea.Cmd
	b.spinner, cmd = b.spinner.Update(msg)
	return b, cmd
}

func (b *ThinkingBlock) View(width int) string {
	content := b.spinner.View() + " " + b.styles.Muted.Render("Thinking...")
	return lipgloss.NewStyle().Width(width).Render(content)
}
