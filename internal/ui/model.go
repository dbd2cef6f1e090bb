package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fexcel/internal/batch"
	"fexcel/internal/parser"
	"fexcel/internal/sheet"
	"fexcel/internal/types"
	"fexcel/internal/writer"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type state int

const (
	stateModeSelect state = iota
	stateFilePicker
	stateProcessing
	stateComplete
	stateCancelled
	stateError
)

// mode describes one selectable conversion path.
type mode struct {
	format      parser.Format
	name        string
	description string
	inputTypes  []string
	outputExt   string
}

var modes = []mode{
	{
		format:      parser.IDValue,
		name:        "ID-value converter",
		description: "id=value text into a two-column workbook",
		inputTypes:  []string{".txt", ".csv"},
		outputExt:   ".xlsx",
	},
	{
		format:      parser.TranslationTriple,
		name:        "Translation converter",
		description: "id / source / target columns into id=target lines",
		inputTypes:  []string{".txt", ".csv", ".xlsx"},
		outputExt:   ".txt",
	},
}

type Model struct {
	state        state
	cursor       int
	mode         mode
	filepicker   filepicker.Model
	selectedFile string
	converter    *batch.Converter
	result       *types.ConversionResult
	err          error
	width        int
	height       int
	progress     progress.Model
	status       string
	progressChan chan progressUpdate
	resultChan   chan conversionResultMsg
}

type progressUpdate struct {
	percent float64
	message string
}

type conversionResultMsg struct {
	result *types.ConversionResult
	err    error
}

type progressMsg progressUpdate

func InitialModel() Model {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()

	fp.Styles.Cursor = lipgloss.NewStyle().Foreground(lipgloss.Color("#4FC1FF"))
	fp.Styles.Directory = lipgloss.NewStyle().Foreground(lipgloss.Color("#3AD29F"))
	fp.Styles.File = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	fp.Styles.Permission = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	fp.Styles.Selected = lipgloss.NewStyle().Foreground(lipgloss.Color("#4FC1FF")).Bold(true)
	fp.Styles.FileSize = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	prog := progress.New(progress.WithGradient("#4FC1FF", "#3AD29F"))

	return Model{
		state:      stateModeSelect,
		filepicker: fp,
		progress:   prog,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		height := msg.Height - 12
		if height < 5 {
			height = 5
		}
		m.filepicker.SetHeight(height)

		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateModeSelect:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "up", "k":
				if m.cursor > 0 {
					m.cursor--
				}
			case "down", "j":
				if m.cursor < len(modes)-1 {
					m.cursor++
				}
			case "enter":
				m.mode = modes[m.cursor]
				m.filepicker.AllowedTypes = m.mode.inputTypes
				m.state = stateFilePicker
				return m, m.filepicker.Init()
			}

		case stateFilePicker:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "esc":
				m.state = stateModeSelect
				return m, nil
			}

		case stateProcessing:
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "c", "esc":
				// Cooperative cancel: the worker stops at the next chunk
				// boundary and fires no completion callback.
				if m.converter != nil {
					m.converter.Cancel()
				}
				m.state = stateCancelled
				return m, nil
			}

		case stateComplete, stateCancelled, stateError:
			switch msg.String() {
			case "ctrl+c", "q", "enter", "esc":
				return m, tea.Quit
			}
		}

	case conversionResultMsg:
		if m.state != stateProcessing {
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.result = msg.result
		m.state = stateComplete
		return m, nil

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case progressMsg:
		if m.state == stateProcessing {
			m.status = msg.message
			cmd := m.progress.SetPercent(msg.percent / 100)
			return m, tea.Batch(cmd, waitForActivity(m.progressChan, m.resultChan))
		}
		return m, nil
	}

	if m.state == stateFilePicker {
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)

		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			return m.startConversion(path)
		}

		return m, cmd
	}

	return m, nil
}

func (m Model) startConversion(path string) (Model, tea.Cmd) {
	m.state = stateProcessing
	m.status = "starting..."
	m.progressChan = make(chan progressUpdate, 100)
	m.resultChan = make(chan conversionResultMsg, 1)
	m.converter = batch.New(parser.New(m.mode.format), batch.DefaultConfig())

	// Capture for the pipeline goroutine.
	conv := m.converter
	md := m.mode
	progressChan := m.progressChan
	resultChan := m.resultChan

	cmd := tea.Batch(
		func() tea.Msg {
			runPipeline(path, md, conv, progressChan, resultChan)
			return nil
		},
		waitForActivity(m.progressChan, m.resultChan),
		m.progress.Init(),
	)

	return m, cmd
}

// runPipeline feeds the source through the conversion core: spreadsheet
// normalization when the input is a workbook, then the chunked converter,
// then the format's export path. Progress and the terminal outcome are
// forwarded over the model's channels.
func runPipeline(path string, md mode, conv *batch.Converter, progressChan chan<- progressUpdate, resultChan chan<- conversionResultMsg) {
	push := func(percent float64, message string) {
		select {
		case progressChan <- progressUpdate{percent: percent, message: message}:
		default:
		}
	}
	fail := func(err error) {
		select {
		case resultChan <- conversionResultMsg{err: err}:
		default:
		}
	}

	var text string
	var truncated bool

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		st, err := sheet.NewReader(sheet.DefaultConfig()).Load(path, push)
		if err != nil {
			fail(err)
			return
		}
		text = st.Text
		truncated = st.Truncated
	} else {
		raw, err := os.ReadFile(path)
		if err != nil {
			fail(fmt.Errorf("reading input: %w", err))
			return
		}
		text = string(raw)
	}

	outFile := outputPath(path, md.outputExt)

	err := conv.RunAsync(text, push,
		func(records []types.Record) {
			if err := export(outFile, md, records, push); err != nil {
				fail(err)
				return
			}
			resultChan <- conversionResultMsg{result: &types.ConversionResult{
				InputFile:  path,
				OutputFile: outFile,
				Records:    len(records),
				Truncated:  truncated,
			}}
		},
		fail,
	)
	if err != nil {
		fail(err)
	}
}

func export(outFile string, md mode, records []types.Record, push types.ProgressFunc) error {
	if md.format == parser.IDValue {
		return sheet.WriteIDValueWorkbook(outFile, records, push)
	}
	_, err := writer.New(writer.DefaultConfig()).Write(outFile, records, push)
	return err
}

func outputPath(input, outputExt string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_converted" + outputExt
}

func waitForActivity(progressChan chan progressUpdate, resultChan chan conversionResultMsg) tea.Cmd {
	return func() tea.Msg {
		select {
		case p := <-progressChan:
			return progressMsg(p)
		case res := <-resultChan:
			return res
		}
	}
}

func (m Model) View() string {
	switch m.state {
	case stateModeSelect:
		return m.viewModeSelect()
	case stateFilePicker:
		return m.viewFilePicker()
	case stateProcessing:
		return m.viewProcessing()
	case stateComplete:
		return m.viewComplete()
	case stateCancelled:
		return m.viewCancelled()
	case stateError:
		return m.viewError()
	}
	return ""
}

func (m Model) viewModeSelect() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("fexcel — data conversion toolkit"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("Choose a conversion"))
	s.WriteString("\n\n")

	for i, md := range modes {
		cursor := " "
		if m.cursor == i {
			cursor = ">"
		}
		line := fmt.Sprintf("%s %s — %s", cursor, md.name, md.description)
		if m.cursor == i {
			line = SelectedStyle.Render(line)
		} else {
			line = UnselectedStyle.Render(line)
		}
		s.WriteString(line)
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render(m.mode.name))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("Select an input file (%s)", strings.Join(m.mode.inputTypes, ", "))))
	s.WriteString("\n\n")
	s.WriteString(m.filepicker.View())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("esc: back • q: quit"))

	return s.String()
}

func (m Model) viewProcessing() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("Processing..."))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("File: %s", filepath.Base(m.selectedFile)))
	s.WriteString("\n\n")
	s.WriteString(m.progress.View())
	s.WriteString("\n\n")
	s.WriteString(SubtitleStyle.Render(m.status))
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("c: cancel"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewComplete() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("✓ Conversion Complete"))
	s.WriteString("\n\n")

	maxPathLen := m.width - 20
	if maxPathLen < 30 {
		maxPathLen = 30
	}

	inPath := truncatePath(m.result.InputFile, maxPathLen)
	outPath := truncatePath(m.result.OutputFile, maxPathLen)

	s.WriteString(fmt.Sprintf("Input:  %s\n", inPath))
	s.WriteString(SuccessStyle.Render(fmt.Sprintf("Output: %s\n", outPath)))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("Records converted: %d\n", m.result.Records))
	if m.result.Truncated {
		s.WriteString("\n")
		s.WriteString(WarningStyle.Render("Source exceeded the row cap; only the last rows were kept."))
		s.WriteString("\n")
	}
	s.WriteString(HelpStyle.Render("Press any key to exit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewCancelled() string {
	var s strings.Builder

	s.WriteString(WarningStyle.Render("Conversion cancelled"))
	s.WriteString("\n\n")
	s.WriteString("Any partially written output is incomplete.")
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Press any key to exit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewError() string {
	var s strings.Builder

	s.WriteString(ErrorStyle.Render("✗ Error"))
	s.WriteString("\n\n")
	s.WriteString(m.err.Error())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Press any key to exit"))

	return BoxStyle.Render(s.String())
}

func truncatePath(p string, max int) string {
	if len(p) <= max {
		return p
	}
	return "..." + p[len(p)-max+3:]
}
