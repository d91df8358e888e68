package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rxtech-lab/floorsheet-signals/internal/config"
	"github.com/rxtech-lab/floorsheet-signals/internal/logger"
	"github.com/rxtech-lab/floorsheet-signals/internal/pipeline"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
)

// Application states.
const (
	StateHorizonSelect = iota
	StateSymbolInput
	StatePredictions
	StateHistory
)

// SignalSource loads what the browser displays.
type SignalSource interface {
	Predictions(ctx context.Context, horizon types.Horizon, symbols []string) ([]types.Prediction, error)
	History(horizon types.Horizon) ([]types.EvaluationHistoryRow, error)
}

// Model is the main Bubble Tea model for the signal browser.
type Model struct {
	ctx          context.Context
	source       SignalSource
	state        int
	horizonList  list.Model
	symbolInput  textinput.Model
	signalTable  table.Model
	historyTable table.Model
	predictions  []types.Prediction
	history      []types.EvaluationHistoryRow
	horizon      types.Horizon
	symbols      []string
	loading      bool
	err          error
	width        int
	height       int
}

// NewModel creates a new Model with initial state.
func NewModel(ctx context.Context, source SignalSource) Model {
	return Model{
		ctx:          ctx,
		source:       source,
		state:        StateHorizonSelect,
		horizonList:  NewHorizonList(),
		symbolInput:  NewSymbolInput(),
		signalTable:  NewPredictionTable(),
		historyTable: NewHistoryTable(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			// Only quit on 'q' if not in text input mode
			if m.state != StateSymbolInput {
				return m, tea.Quit
			}
		case "esc":
			return m.handleEsc()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.horizonList.SetSize(msg.Width, msg.Height-4)
		m.signalTable.SetWidth(msg.Width)
		m.signalTable.SetHeight(msg.Height - 6)
		m.historyTable.SetWidth(msg.Width)
		m.historyTable.SetHeight(msg.Height - 6)

		return m, nil

	case PredictionsMsg:
		m.loading = false
		m.err = nil
		m.predictions = msg.Predictions
		m.signalTable = UpdatePredictionRows(m.signalTable, m.predictions)

		return m, nil

	case HistoryMsg:
		m.loading = false
		m.err = nil
		m.history = msg.Rows
		m.historyTable = UpdateHistoryRows(m.historyTable, m.history)

		return m, nil

	case FetchErrorMsg:
		m.loading = false
		m.err = msg.Err

		return m, nil
	}

	// Delegate to state-specific update
	switch m.state {
	case StateHorizonSelect:
		return m.updateHorizonSelect(msg)
	case StateSymbolInput:
		return m.updateSymbolInput(msg)
	case StatePredictions:
		return m.updatePredictions(msg)
	case StateHistory:
		return m.updateHistory(msg)
	}

	return m, nil
}

func (m Model) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case StateSymbolInput:
		m.symbolInput.Blur()
		m.state = StateHorizonSelect
	case StatePredictions:
		m.predictions = nil
		m.symbols = nil
		m.err = nil
		m.signalTable.SetRows(nil)
		m.symbolInput.Reset()
		m.symbolInput.Focus()
		m.state = StateSymbolInput

		return m, textinput.Blink
	case StateHistory:
		m.err = nil
		m.state = StatePredictions
	}

	return m, nil
}

func (m Model) updateHorizonSelect(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "enter" {
		if item, ok := m.horizonList.SelectedItem().(listItem); ok {
			m.horizon = types.Horizon(item.name)
			m.state = StateSymbolInput
			m.symbolInput.Focus()

			return m, textinput.Blink
		}
	}

	var cmd tea.Cmd
	m.horizonList, cmd = m.horizonList.Update(msg)

	return m, cmd
}

func (m Model) updateSymbolInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "enter" {
		symbols := ParseSymbols(m.symbolInput.Value())
		if len(symbols) > 0 {
			m.symbols = symbols
			m.state = StatePredictions
			m.loading = true
			m.symbolInput.Blur()

			return m, m.fetchPredictions()
		}
	}

	var cmd tea.Cmd
	m.symbolInput, cmd = m.symbolInput.Update(msg)

	return m, cmd
}

func (m Model) updatePredictions(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "r":
			m.loading = true

			return m, m.fetchPredictions()
		case "h":
			m.state = StateHistory
			m.loading = true

			return m, m.fetchHistory()
		}
	}

	var cmd tea.Cmd
	m.signalTable, cmd = m.signalTable.Update(msg)

	return m, cmd
}

func (m Model) updateHistory(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.historyTable, cmd = m.historyTable.Update(msg)

	return m, cmd
}

// fetchPredictions returns a command that predicts the watched symbols.
func (m Model) fetchPredictions() tea.Cmd {
	ctx, source, horizon, symbols := m.ctx, m.source, m.horizon, m.symbols

	return func() tea.Msg {
		predictions, err := source.Predictions(ctx, horizon, symbols)
		if err != nil {
			return FetchErrorMsg{Err: err}
		}

		return PredictionsMsg{Predictions: predictions}
	}
}

// fetchHistory returns a command that reads the evaluation history.
func (m Model) fetchHistory() tea.Cmd {
	source, horizon := m.source, m.horizon

	return func() tea.Msg {
		rows, err := source.History(horizon)
		if err != nil {
			return FetchErrorMsg{Err: err}
		}

		return HistoryMsg{Rows: filterHistory(rows, string(horizon), 0)}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var s strings.Builder

	switch m.state {
	case StateHorizonSelect:
		s.WriteString(TitleStyle.Render("Floorsheet Signals"))
		s.WriteString("\n\n")
		s.WriteString(m.horizonList.View())
		s.WriteString("\n")
		s.WriteString(HelpStyle.Render("Press Enter to select, q to quit"))

	case StateSymbolInput:
		s.WriteString(TitleStyle.Render("Enter Symbols"))
		s.WriteString("\n\n")
		s.WriteString("Enter comma-separated symbols (e.g., NABIL,NICA):\n\n")
		s.WriteString(m.symbolInput.View())
		s.WriteString("\n\n")
		s.WriteString(HelpStyle.Render("Press Enter to confirm, Esc to go back"))

	case StatePredictions:
		s.WriteString(TitleStyle.Render(fmt.Sprintf("Signals (%s)", m.horizon)))
		s.WriteString("\n\n")
		m.writeStatus(&s)

		if len(m.predictions) > 0 {
			s.WriteString(m.signalTable.View())
		}

		s.WriteString("\n")
		s.WriteString(HelpStyle.Render(fmt.Sprintf("q: quit | Esc: back | r: refresh | h: history | Watching: %s", strings.Join(m.symbols, ", "))))

	case StateHistory:
		s.WriteString(TitleStyle.Render(fmt.Sprintf("Evaluation History (%s)", m.horizon)))
		s.WriteString("\n\n")
		m.writeStatus(&s)

		if len(m.history) == 0 && !m.loading && m.err == nil {
			s.WriteString("No evaluations recorded yet\n")
		} else if len(m.history) > 0 {
			s.WriteString(m.historyTable.View())
		}

		s.WriteString("\n")
		s.WriteString(HelpStyle.Render("q: quit | Esc: back"))
	}

	return s.String()
}

func (m Model) writeStatus(s *strings.Builder) {
	if m.err != nil {
		s.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		s.WriteString("\n\n")
	}

	if m.loading {
		s.WriteString("Loading...\n")
	}
}

// pipelineSource opens a pipeline for the requested horizon on every fetch so the
// store is not held open between refreshes.
type pipelineSource struct {
	cfg *config.Config
	log *logger.Logger
}

func newPipelineSource(cfg *config.Config, log *logger.Logger) SignalSource {
	return &pipelineSource{cfg: cfg, log: log}
}

func (s *pipelineSource) open(horizon types.Horizon) (*pipeline.Pipeline, error) {
	cfg := *s.cfg
	cfg.Training.Horizon = horizon

	return pipeline.New(&cfg, s.log.Named(string(horizon)))
}

func (s *pipelineSource) Predictions(ctx context.Context, horizon types.Horizon, symbols []string) ([]types.Prediction, error) {
	p, err := s.open(horizon)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	return p.Predictor().PredictBatch(ctx, symbols)
}

func (s *pipelineSource) History(horizon types.Horizon) ([]types.EvaluationHistoryRow, error) {
	p, err := s.open(horizon)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	return p.Evaluator().ReadHistory()
}

// runBrowser starts the interactive signal browser.
func runBrowser(ctx context.Context, source SignalSource) error {
	program := tea.NewProgram(NewModel(ctx, source), tea.WithAltScreen(), tea.WithContext(ctx))

	_, err := program.Run()

	return err
}
