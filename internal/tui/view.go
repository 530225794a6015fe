package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/datachat/console/internal/models"
	"github.com/datachat/console/internal/notify"
	"github.com/datachat/console/internal/shell"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("7"))
	activeTabStyle = tabStyle.Copy().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("12"))
	faintStyle     = lipgloss.NewStyle().Faint(true)
	headingStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	modalStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("12")).Padding(1, 2)

	noticeStyles = map[notify.Kind]lipgloss.Style{
		notify.KindInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		notify.KindSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		notify.KindError:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
)

func (m Model) View() string {
	v := m.app.View()

	var b strings.Builder
	b.WriteString(m.renderHeader(v))
	b.WriteString("\n")

	for _, n := range v.Notices {
		b.WriteString(noticeStyles[n.Kind].Render("● " + n.Message))
		b.WriteString("\n")
	}

	if v.Modal.Open {
		b.WriteString(modalStyle.Render(titleStyle.Render(v.Modal.Title) + "\n\n" + v.Modal.Message + "\n\n" + faintStyle.Render("y: yes   n: cancel")))
		b.WriteString("\n")
		return b.String()
	}

	if m.ready {
		b.WriteString(m.viewport.View())
	} else {
		b.WriteString(m.renderBody(v))
	}
	b.WriteString("\n")

	if v.Section == shell.SectionChat || m.input.Focused() {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	b.WriteString(faintStyle.Render(helpFor(v.Section, m.input.Focused())))
	return b.String()
}

func (m Model) renderHeader(v shell.View) string {
	tabs := make([]string, 0, len(v.Nav))
	for i, item := range v.Nav {
		label := fmt.Sprintf("%d %s", i+1, item.Title)
		if item.Active {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}

	header := titleStyle.Render("Structured Data Chat") + "  " + lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if v.Loading {
		header += "  " + m.spin.View() + "Loading..."
	}
	return header
}

func (m Model) renderBody(v shell.View) string {
	switch v.Section {
	case shell.SectionUpload:
		return renderUpload(v)
	case shell.SectionDocuments:
		return m.renderDocuments(v)
	case shell.SectionChat:
		return m.renderChat(v)
	case shell.SectionHistory:
		return renderHistory(v)
	case shell.SectionFAQ:
		return renderFAQ(v)
	}
	return ""
}

func renderUpload(v shell.View) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Upload structured data") + "\n\n")

	u := v.Upload
	if u.File != nil {
		fmt.Fprintf(&b, "%s  %s\n", u.File.Name, faintStyle.Render(u.File.Size))
	} else {
		b.WriteString(faintStyle.Render(u.Empty) + "\n")
	}

	label := "[ " + u.SubmitLabel + " ]"
	if !u.SubmitEnabled {
		label = faintStyle.Render(label)
	}
	b.WriteString("\n" + label + "\n")

	if p := u.Preview; p != nil {
		fmt.Fprintf(&b, "\n%s\n", headingStyle.Render("Preview of "+p.Filename))
		b.WriteString(strings.Join(p.Columns, " | ") + "\n")
		for _, row := range p.Rows {
			b.WriteString(strings.Join(row, " | ") + "\n")
		}
	}
	return b.String()
}

func (m Model) renderDocuments(v shell.View) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Structured data documents") + "\n\n")

	if len(v.Documents.Cards) == 0 {
		b.WriteString(faintStyle.Render(v.Documents.Empty) + "\n")
		return b.String()
	}
	for i, card := range v.Documents.Cards {
		marker := "  "
		if i == m.cursor {
			marker = cursorStyle.Render("> ")
		}
		name := card.Filename
		if card.Active {
			name += " (active)"
		}
		fmt.Fprintf(&b, "%s%s\n    %s\n", marker, name,
			faintStyle.Render(fmt.Sprintf("Uploaded %s · Rows: %s", card.Uploaded, card.Rows)))
	}
	return b.String()
}

func (m Model) renderChat(v shell.View) string {
	c := v.Chat

	var side strings.Builder
	side.WriteString(headingStyle.Render("Documents") + "\n")
	if len(c.Sidebar) == 0 {
		side.WriteString(faintStyle.Render(c.SidebarEmpty) + "\n")
	}
	for i, item := range c.Sidebar {
		marker := "  "
		if i == m.cursor {
			marker = cursorStyle.Render("> ")
		}
		name := item.Filename
		if item.Selected {
			name = cursorStyle.Render(name)
		}
		side.WriteString(marker + name + "\n")
	}

	var body strings.Builder
	if c.ActiveFilename != "" {
		body.WriteString(headingStyle.Render("Chatting with "+c.ActiveFilename) + "\n\n")
	}
	if len(c.Messages) == 0 {
		for _, line := range c.Welcome {
			body.WriteString(faintStyle.Render(line) + "\n")
		}
	}
	for _, msg := range c.Messages {
		if msg.Sender == models.SenderUser {
			fmt.Fprintf(&body, "%s %s\n%s\n\n", userStyle.Render("You"), faintStyle.Render(msg.When), msg.Content)
			continue
		}
		fmt.Fprintf(&body, "%s %s\n%s\n", assistantStyle.Render("Assistant"), faintStyle.Render(msg.When), m.markdown(msg.Content))
	}
	if len(c.Suggestions) > 0 {
		body.WriteString(headingStyle.Render("Suggestions") + "\n")
		for i, s := range c.Suggestions {
			fmt.Fprintf(&body, "  %d. %s\n", i+1, s)
		}
	}

	sideWidth := 28
	if m.width > 0 && m.width < 80 {
		sideWidth = m.width / 3
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(sideWidth).MarginRight(2).Render(side.String()),
		body.String(),
	)
}

// markdown renders assistant text, falling back to the raw text.
func (m Model) markdown(s string) string {
	if m.renderer == nil {
		return s + "\n"
	}
	out, err := m.renderer.Render(s)
	if err != nil {
		return s + "\n"
	}
	return out
}

func renderHistory(v shell.View) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Chat history") + "\n\n")

	if len(v.History.Items) == 0 {
		b.WriteString(faintStyle.Render(v.History.Empty) + "\n")
		return b.String()
	}
	for _, item := range v.History.Items {
		fmt.Fprintf(&b, "%s %s\n", userStyle.Render("Q:"), item.Question)
		fmt.Fprintf(&b, "%s %s\n", assistantStyle.Render("A:"), item.Answer)
		b.WriteString(faintStyle.Render(item.Context+" · "+item.When) + "\n\n")
	}
	return b.String()
}

func renderFAQ(v shell.View) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Frequently asked questions") + "\n\n")
	for _, e := range v.FAQ {
		b.WriteString(titleStyle.Render(e.Question) + "\n" + e.Answer + "\n\n")
	}
	return b.String()
}

func helpFor(section shell.Section, typing bool) string {
	switch {
	case section == shell.SectionChat:
		return "enter: send (empty input picks document) · up/down: documents · ctrl+s: suggestions · :ask N · tab: next section · ctrl+x: clear all · ctrl+c: quit"
	case typing:
		return "enter: run command · esc: cancel"
	case section == shell.SectionUpload:
		return ":upload <path> · :remove · enter: upload · 1-5/tab: sections · ctrl+x: clear all · q: quit"
	case section == shell.SectionDocuments:
		return "up/down: move · enter: chat with document · 1-5/tab: sections · ctrl+x: clear all · q: quit"
	}
	return "1-5/tab: sections · :command · ctrl+x: clear all · q: quit"
}
