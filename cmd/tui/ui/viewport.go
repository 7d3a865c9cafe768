package ui

import "github.com/charmbracelet/bubbles/viewport"

// ensureViewportSize resizes the preview viewport keeping the scroll offset
// and content.
func (m *TuiModel) ensureViewportSize(width, height int) {
	if m.vp.Width == width && m.vp.Height == height {
		return
	}
	off := m.vp.YOffset
	m.vp = viewport.New(width, height)
	m.vp.SetContent(m.vpContent)
	m.vp.SetYOffset(off)
}

// setViewport replaces the preview pane content.
func (m *TuiModel) setViewport(s string) {
	m.vpContent = s
	m.vp.SetContent(s)
}
