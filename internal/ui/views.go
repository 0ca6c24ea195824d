package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xpmourad/ori-AI-Background-Remover/internal/media"
	"github.com/xpmourad/ori-AI-Background-Remover/internal/session"
)

// View implements tea.Model.
func (m Model) View() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(m.renderHeader(styles))
	b.WriteString("\n\n")

	switch m.snap.State {
	case session.StateLoading:
		b.WriteString(m.renderLoading(styles))
	case session.StateResult:
		b.WriteString(m.renderResult(styles))
	case session.StateError:
		b.WriteString(m.renderError(styles))
	default:
		b.WriteString(m.renderInitial(styles))
	}
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(m.renderNotice(styles))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderHeader(styles Styles) string {
	state := m.snap.State.String()
	parts := []string{
		styles.Logo.Render("bgremover"),
		styles.StateStyle(state).Render(state),
		styles.MutedText.Render(m.theme.Name),
	}
	return styles.Header.Render(strings.Join(parts, "  "))
}

func (m Model) contentWidth() int {
	if m.width <= 0 {
		return 72
	}
	return max(m.width-4, 20)
}

func (m Model) renderInitial(styles Styles) string {
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Choose an image, or paste or drop its path below"))
	b.WriteString("\n")

	pickerPanel, pathPanel := styles.Focus, styles.Panel
	if m.focus == focusPath {
		pickerPanel, pathPanel = styles.Panel, styles.Focus
	}

	dir := styles.MutedText.Render(truncateMiddle(m.picker.CurrentDirectory, m.contentWidth()-4))
	b.WriteString(pickerPanel.Width(m.contentWidth()).Render(dir + "\n" + m.picker.View()))
	b.WriteString("\n")
	b.WriteString(pathPanel.Width(m.contentWidth()).Render(m.path.View()))
	return b.String()
}

func (m Model) renderLoading(styles Styles) string {
	name := truncateMiddle(m.snap.Source.Name, m.contentWidth()-30)
	line := fmt.Sprintf("%s Removing the background from %s", m.spinner.View(), styles.AccentText.Render(name))
	size := styles.MutedText.Render(fmt.Sprintf("%s, %s", m.snap.Source.MIMEType, formatBytes(m.snap.Source.Size())))
	out := line + "\n" + size
	if m.sourcePreview != "" {
		out += "\n" + previewPanel(styles, "Original", m.sourcePreview)
	}
	return out
}

func previewPanel(styles Styles, title, body string) string {
	return styles.Panel.Render(styles.MutedText.Render(title) + "\n" + body)
}

func (m Model) renderResult(styles Styles) string {
	var b strings.Builder
	b.WriteString(styles.SuccessText.Render("Background removed"))
	b.WriteString("\n")

	target := filepath.Join(m.outputDir, media.OutputName(m.snap.Source.Name, m.format))
	rows := []struct{ label, value string }{
		{"Source", m.snap.Source.Name},
		{"Output", target},
	}
	for _, row := range rows {
		b.WriteString(styles.MutedText.Width(8).Render(row.label))
		b.WriteString(styles.Text.Render(truncateMiddle(row.value, m.contentWidth()-10)))
		b.WriteString("\n")
	}

	switch {
	case m.preview != "" && m.sourcePreview != "":
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			previewPanel(styles, "Original", m.sourcePreview),
			"  ",
			previewPanel(styles, "Without background", m.preview),
		))
	case m.preview != "":
		b.WriteString(previewPanel(styles, "Without background", m.preview))
	default:
		b.WriteString(styles.FaintText.Render("(preview unavailable)"))
	}
	return b.String()
}

func (m Model) renderError(styles Styles) string {
	var b strings.Builder
	b.WriteString(styles.DangerText.Render("Could not remove the background"))
	b.WriteString("\n")
	b.WriteString(styles.Text.Width(m.contentWidth()).Render(m.snap.Err))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("Press r to try another image."))
	return b.String()
}

func (m Model) renderNotice(styles Styles) string {
	switch m.noticeKind {
	case noticeSuccess:
		return styles.SuccessText.Render(m.notice)
	case noticeWarning:
		return styles.WarningText.Render(m.notice)
	case noticeError:
		return styles.DangerText.Render(m.notice)
	default:
		return styles.MutedText.Render(m.notice)
	}
}
