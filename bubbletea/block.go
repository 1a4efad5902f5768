package bubbletea

import tea "github.com/charmbracelet/bubbletea"

// MessageBlock is a renderable element in the conversation.
// Unlike tea.Model, View takes a width parameter so the root model
// controls layout and blocks are testable in isolation.
type MessageBlock interface {
	Update(tea.Msg) (MessageBlock, tea.Cmd)
	View(width int) string
}

// blockSeparator returns the gap placed between two adjacent blocks. A send
// error hugs the message it belongs to.
func blockSeparator(prev, curr MessageBlock) string {
	if prev == nil {
		return ""
	}
	if _, ok := curr.(*ErrorBlock); ok {
		return "\n"
	}
	return "\n\n"
}
