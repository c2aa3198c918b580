// Package console is an interactive terminal front end for a ttlens server.
// Each line typed is parsed into a protocol request, sent, and the reply is
// shown in a history table.
package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/iMithrellas/ttlens/internal/client"
	"github.com/iMithrellas/ttlens/internal/wire"
)

// Doer sends one raw request frame and returns the raw reply.
type Doer interface {
	Do(frame []byte) ([]byte, error)
}

// replyMsg carries the result of one request.
type replyMsg struct {
	input  string
	result string
	err    error
	took   time.Duration
}

type appState int

const (
	stateInput appState = iota
	stateWaiting
)

var (
	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			PaddingBottom(1)

	inputStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingBottom(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")).
			PaddingBottom(1)

	tableContainerStyle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("240")).
				Padding(0, 1).
				MarginBottom(1)

	footerStyle = lipgloss.NewStyle().
			PaddingTop(1).
			Foreground(lipgloss.Color("240"))
)

type model struct {
	state    appState
	endpoint string
	doer     Doer
	input    textinput.Model
	table    table.Model
	history  *History
	last     string
	errorMsg string
	width    int
	height   int
}

func newModel(endpoint string, doer Doer, history *History) model {
	ti := textinput.New()
	ti.Placeholder = "read32 0 1 1 0x100"
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 60

	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	m := model{
		state:    stateInput,
		endpoint: endpoint,
		doer:     doer,
		input:    ti,
		history:  history,
		width:    100,
		height:   30,
	}
	m.table = rebuildTable(m)
	return m
}

func helpText() string {
	usages := make([]string, len(CommandNames))
	for i, name := range CommandNames {
		usages[i] = Usage(name)
	}
	return strings.Join(usages, "\n")
}

// execute runs one console line. "help" is answered locally.
func execute(doer Doer, line string) tea.Cmd {
	return func() tea.Msg {
		cmd := ParseCommand(line)
		if cmd.Name == "help" {
			return replyMsg{input: line, result: helpText()}
		}
		req, err := BuildRequest(cmd)
		if err != nil {
			return replyMsg{input: line, err: err}
		}
		start := time.Now()
		reply, err := doer.Do(wire.Encode(req))
		took := time.Since(start)
		if err != nil {
			return replyMsg{input: line, err: err, took: took}
		}
		return replyMsg{input: line, result: FormatReply(req, reply), took: took}
	}
}

// firstLine shortens multi-line results for the table.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func buildRows(entries []Entry) []table.Row {
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		result := firstLine(e.Result)
		if e.Err != nil {
			result = "error: " + e.Err.Error()
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", e.Seq),
			e.Input,
			result,
			e.Took.Round(time.Microsecond).String(),
		})
	}
	return rows
}

// rebuildTable rebuilds the table using the current terminal width
func rebuildTable(m model) table.Model {
	totalWidth := max(m.width-10, 40)
	widthRatios := []float64{0.06, 0.34, 0.45, 0.15}

	columns := []table.Column{
		{Title: "#", Width: int(float64(totalWidth) * widthRatios[0])},
		{Title: "Command", Width: int(float64(totalWidth) * widthRatios[1])},
		{Title: "Result", Width: int(float64(totalWidth) * widthRatios[2])},
		{Title: "Took", Width: int(float64(totalWidth) * widthRatios[3])},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(buildRows(m.history.Entries())),
		table.WithHeight(max(m.height-16, 3)),
		table.WithWidth(totalWidth),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true).
		Foreground(lipgloss.Color("205"))
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(true)
	t.SetStyles(styles)
	return t
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table = rebuildTable(m)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+q", "esc":
			return m, tea.Quit
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" || m.state == stateWaiting {
				return m, nil
			}
			if line == "quit" || line == "exit" {
				return m, tea.Quit
			}
			m.input.SetValue("")
			m.errorMsg = ""
			m.state = stateWaiting
			return m, execute(m.doer, line)
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case replyMsg:
		m.state = stateInput
		e := m.history.Add(msg.input, msg.result, msg.err, msg.took)
		if msg.err != nil {
			m.errorMsg = msg.err.Error()
			m.last = ""
		} else {
			m.last = e.Result
		}
		m.table = rebuildTable(m)
		return m, nil
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("ttlens console · " + m.endpoint))
	b.WriteString("\n")
	b.WriteString(inputStyle.Render(m.input.View()))
	b.WriteString("\n")

	if m.errorMsg != "" {
		b.WriteString(errorStyle.Render("Error: " + m.errorMsg))
		b.WriteString("\n\n")
	}
	if m.state == stateWaiting {
		b.WriteString(resultStyle.Render("Waiting for reply..."))
		b.WriteString("\n")
	} else if m.last != "" {
		b.WriteString(resultStyle.Render(m.last))
		b.WriteString("\n")
	}
	if m.history.Len() > 0 {
		b.WriteString(tableContainerStyle.Render(m.table.View()))
	}

	b.WriteString(footerStyle.Render("Type 'help' for commands. Press 'ctrl+c' or 'esc' to quit"))
	return containerStyle.Render(b.String())
}

// Run dials endpoint and runs the console until the user quits.
func Run(endpoint string, maxHistory int) error {
	c, err := client.Dial(endpoint)
	if err != nil {
		return err
	}
	defer c.Close()

	p := tea.NewProgram(
		newModel(endpoint, c, NewHistory(maxHistory)),
		tea.WithAltScreen(),
	)
	_, err = p.Run()
	return err
}
