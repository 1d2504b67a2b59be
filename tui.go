package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"transcribe/app"
	"transcribe/settings"
)

type tab int

const (
	tabSTT tab = iota
	tabTTS
)

const (
	rowLanguage = iota
	rowVoice
	rowRate
	rowPitch
	rowCount
)

type tickMsg time.Time

type tuiModel struct {
	ctx context.Context
	app *app.App

	tab           tab
	showSettings  bool
	settingsRow   int
	importing     bool
	frame         int
	width, height int

	stt        textarea.Model
	tts        textarea.Model
	importPath textinput.Model

	// component text last loaded into each textarea
	sttSource string
	ttsSource string
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	activeTabStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("62")).Padding(0, 1)
	tabStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	recStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	speakingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldHelpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).Padding(0, 1)
	selectedRow = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
)

func newTUIModel(ctx context.Context, a *app.App) tuiModel {
	stt := textarea.New()
	stt.Placeholder = "Your transcription will appear here..."
	stt.ShowLineNumbers = false
	stt.CharLimit = 0
	stt.MaxHeight = 0
	stt.Focus()

	tts := textarea.New()
	tts.Placeholder = "Type or import text to speak..."
	tts.ShowLineNumbers = false
	tts.CharLimit = 0
	tts.MaxHeight = 0

	ti := textinput.New()
	ti.Placeholder = "path/to/file.txt"
	ti.Prompt = "Import file: "
	ti.CharLimit = 0

	return tuiModel{ctx: ctx, app: a, stt: stt, tts: tts, importPath: ti}
}

func runTUI(ctx context.Context, a *app.App) error {
	p := tea.NewProgram(newTUIModel(ctx, a), tea.WithAltScreen(), tea.WithContext(ctx))
	a.Mount(func(m app.Msg) { p.Send(m) })
	defer a.Unmount()
	_, err := p.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func tuiTick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, tuiTick())
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case app.Msg:
		m.app.Handle(msg)
		m.syncFromApp()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateEditors(msg)
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.app.Unmount()
		return m, tea.Quit
	}

	if m.importing {
		switch key {
		case "enter":
			m.importing = false
			_ = m.app.ImportSpeakText(strings.TrimSpace(m.importPath.Value()))
			m.importPath.Blur()
			m.importPath.SetValue("")
			m.syncFromApp()
			return m, nil
		case "esc":
			m.importing = false
			m.importPath.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.importPath, cmd = m.importPath.Update(msg)
		return m, cmd
	}

	switch key {
	case "tab":
		if m.tab == tabSTT {
			m.tab = tabTTS
		} else {
			m.tab = tabSTT
		}
		m.focusEditor()
		return m, nil
	case "ctrl+s":
		m.showSettings = !m.showSettings
		m.focusEditor()
		return m, nil
	case "ctrl+r":
		if m.tab == tabSTT {
			_ = m.app.ToggleRecording(m.ctx)
			m.syncFromApp()
		}
		return m, nil
	case "ctrl+p":
		if m.tab == tabTTS {
			_ = m.app.Speak(m.ctx)
		}
		return m, nil
	case "ctrl+y":
		if m.tab == tabSTT {
			_ = m.app.CopyTranscript()
		}
		return m, nil
	case "ctrl+e":
		if m.tab == tabSTT {
			_, _ = m.app.ExportTranscript("")
		}
		return m, nil
	case "ctrl+o":
		if m.tab == tabTTS {
			m.importing = true
			m.importPath.Focus()
			return m, textinput.Blink
		}
		return m, nil
	case "ctrl+l":
		if m.tab == tabSTT {
			m.app.ClearTranscript()
		} else {
			m.app.ClearSpeakText()
		}
		m.syncFromApp()
		return m, nil
	}

	if m.showSettings {
		switch key {
		case "up":
			m.settingsRow = (m.settingsRow + rowCount - 1) % rowCount
			return m, nil
		case "down":
			m.settingsRow = (m.settingsRow + 1) % rowCount
			return m, nil
		case "left":
			m.adjustSetting(-1)
			return m, nil
		case "right":
			m.adjustSetting(1)
			return m, nil
		}
	}

	return m.updateEditors(msg)
}

func (m *tuiModel) adjustSetting(dir int) {
	switch m.settingsRow {
	case rowLanguage:
		m.app.CycleLanguage(dir)
	case rowVoice:
		m.app.CycleVoice(dir)
	case rowRate:
		m.app.StepRate(dir)
	case rowPitch:
		m.app.StepPitch(dir)
	}
}

// updateEditors forwards input to the focused textarea. Only a change the
// input made to the textarea is pushed back into the component; the
// textarea's own rendering of the text (tabs, CR) never is.
func (m tuiModel) updateEditors(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.tab == tabSTT {
		before := m.stt.Value()
		m.stt, cmd = m.stt.Update(msg)
		if v := m.stt.Value(); v != before {
			m.app.EditTranscript(v)
			m.sttSource = v
		}
	} else {
		before := m.tts.Value()
		m.tts, cmd = m.tts.Update(msg)
		if v := m.tts.Value(); v != before {
			m.app.EditSpeakText(v)
			m.ttsSource = v
		}
	}
	return m, cmd
}

// syncFromApp loads component text into the textareas when it changed
// since the last load.
func (m *tuiModel) syncFromApp() {
	if v := m.app.Transcript(); v != m.sttSource {
		m.stt.SetValue(v)
		m.sttSource = v
	}
	if v := m.app.SpeakText(); v != m.ttsSource {
		m.tts.SetValue(v)
		m.ttsSource = v
	}
}

func (m *tuiModel) focusEditor() {
	m.stt.Blur()
	m.tts.Blur()
	if m.showSettings {
		return
	}
	if m.tab == tabSTT {
		m.stt.Focus()
	} else {
		m.tts.Focus()
	}
}

func (m *tuiModel) resize() {
	w := max(m.width-4, 20)
	h := max(m.height-14, 3)
	m.stt.SetWidth(w)
	m.stt.SetHeight(h)
	m.tts.SetWidth(w)
	m.tts.SetHeight(h)
	m.importPath.Width = max(w-len(m.importPath.Prompt), 10)
}

func (m tuiModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Transcribe") + "\n\n")
	b.WriteString(m.renderTabs() + "\n\n")

	if m.showSettings {
		b.WriteString(m.renderSettings() + "\n")
	}

	if m.tab == tabSTT {
		b.WriteString(m.sttStatus() + "\n")
		b.WriteString(m.stt.View() + "\n")
	} else {
		b.WriteString(m.ttsStatus() + "\n")
		b.WriteString(m.tts.View() + "\n")
		if m.importing {
			b.WriteString(m.importPath.View() + "\n")
		}
	}

	if st := m.app.Status(); st != "" {
		b.WriteString(statusStyle.Render(st) + "\n")
	} else {
		b.WriteString("\n")
	}
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m tuiModel) renderTabs() string {
	labels := []string{"Speech to Text", "Text to Speech"}
	parts := make([]string, len(labels))
	for i, l := range labels {
		if tab(i) == m.tab {
			parts[i] = activeTabStyle.Render(l)
		} else {
			parts[i] = tabStyle.Render(l)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m tuiModel) sttStatus() string {
	if !m.app.CanRecord() {
		return dimStyle.Render("Speech recognition is not available")
	}
	if m.app.Recording() {
		dot := "●"
		if m.frame%2 == 1 {
			dot = " "
		}
		return recStyle.Render(dot+" REC") + " Recording... Speak now"
	}
	return dimStyle.Render("Click ctrl+r to start recording")
}

func (m tuiModel) ttsStatus() string {
	if !m.app.CanSpeak() {
		return dimStyle.Render("Speech synthesis is not available")
	}
	if m.app.Speaking() {
		return speakingStyle.Render("Speaking...")
	}
	return dimStyle.Render("Press ctrl+p to hear the text")
}

func (m tuiModel) renderSettings() string {
	s := m.app.Settings()
	voice := voiceLabel(m.app, s.Voice)
	rows := []string{
		fmt.Sprintf("Language  %s", settings.LanguageLabel(s.Language)),
		fmt.Sprintf("Voice     %s", voice),
		fmt.Sprintf("Rate      %s", formatMultiplier(s.Rate)),
		fmt.Sprintf("Pitch     %s", formatMultiplier(s.Pitch)),
	}
	for i, r := range rows {
		if i == m.settingsRow {
			rows[i] = selectedRow.Render("▶ " + r)
		} else {
			rows[i] = "  " + r
		}
	}
	return panelStyle.Render(strings.Join(rows, "\n"))
}

func voiceLabel(a *app.App, id string) string {
	if id == "" {
		return "system default"
	}
	for _, v := range a.Voices() {
		if v.ID == id {
			if v.Lang != "" && v.Lang != v.Name {
				return v.Name + " (" + v.Lang + ")"
			}
			return v.Name
		}
	}
	return id
}

func formatMultiplier(v float64) string {
	return fmt.Sprintf("%.1fx", v)
}

func (m tuiModel) renderHelp() string {
	type binding struct{ key, desc string }
	common := []binding{{"tab", "switch"}, {"ctrl+s", "settings"}}
	var tabKeys []binding
	if m.tab == tabSTT {
		tabKeys = []binding{{"ctrl+r", "record"}, {"ctrl+y", "copy"}, {"ctrl+e", "export"}, {"ctrl+l", "clear"}}
	} else {
		tabKeys = []binding{{"ctrl+p", "play/stop"}, {"ctrl+o", "import"}, {"ctrl+l", "clear"}}
	}
	if m.showSettings {
		tabKeys = append(tabKeys, binding{"↑/↓ ←/→", "adjust"})
	}
	tabKeys = append(tabKeys, binding{"ctrl+c", "quit"})

	var parts []string
	for _, k := range append(common, tabKeys...) {
		parts = append(parts, boldHelpStyle.Render(k.key)+helpStyle.Render(" "+k.desc))
	}
	return strings.Join(parts, helpStyle.Render(" · ")) + "\n" + helpStyle.Render("transcribe "+version)
}
