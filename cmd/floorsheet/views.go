package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
)

// listItem implements list.Item interface for the horizon list.
type listItem struct {
	name        string
	description string
}

func (i listItem) Title() string       { return i.name }
func (i listItem) Description() string { return i.description }
func (i listItem) FilterValue() string { return i.name }

// NewHorizonList creates a new list for horizon selection.
func NewHorizonList() list.Model {
	items := []list.Item{
		listItem{name: string(types.HorizonNextDay), description: "Signal for the next trading day"},
		listItem{name: string(types.HorizonThreeDay), description: "Signal three trading days ahead"},
		listItem{name: string(types.HorizonWeekly), description: "Signal five trading days ahead"},
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true

	l := list.New(items, delegate, 0, 0)
	l.Title = "Select Horizon"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return l
}

// NewSymbolInput creates a new text input for symbol entry.
func NewSymbolInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "NABIL,NICA,UPPER"
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 50
	ti.Prompt = "> "

	return ti
}

// ParseSymbols parses comma-separated symbols into a slice.
func ParseSymbols(input string) []string {
	parts := strings.Split(input, ",")
	symbols := make([]string, 0, len(parts))

	for _, p := range parts {
		s := strings.TrimSpace(strings.ToUpper(p))
		if s != "" {
			symbols = append(symbols, s)
		}
	}

	return symbols
}

func newStyledTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)

	t.SetStyles(s)

	return t
}

// NewPredictionTable creates a new table for displaying signals.
func NewPredictionTable() table.Model {
	return newStyledTable([]table.Column{
		{Title: "Symbol", Width: 10},
		{Title: "Signal", Width: 14},
		{Title: "Confidence", Width: 11},
		{Title: "Buy", Width: 7},
		{Title: "Hold", Width: 7},
		{Title: "Sell", Width: 7},
		{Title: "Features", Width: 11},
	})
}

// NewHistoryTable creates a new table for displaying evaluation runs.
func NewHistoryTable() table.Model {
	return newStyledTable([]table.Column{
		{Title: "Date", Width: 11},
		{Title: "Mode", Width: 10},
		{Title: "Accuracy", Width: 9},
		{Title: "F1", Width: 7},
		{Title: "Trees", Width: 6},
		{Title: "Train", Width: 7},
		{Title: "Test", Width: 6},
	})
}

// UpdatePredictionRows fills the table in the order the symbols were entered.
func UpdatePredictionRows(t table.Model, predictions []types.Prediction) table.Model {
	rows := make([]table.Row, 0, len(predictions))

	for _, p := range predictions {
		if p.Signal == types.SignalUnavailable {
			rows = append(rows, table.Row{p.Symbol, string(p.Signal), "-", "-", "-", "-", "-"})

			continue
		}

		rows = append(rows, table.Row{
			p.Symbol,
			string(p.Signal),
			fmt.Sprintf("%.1f%%", p.Confidence*100),
			fmt.Sprintf("%.3f", p.Probabilities[types.SignalBuy]),
			fmt.Sprintf("%.3f", p.Probabilities[types.SignalHold]),
			fmt.Sprintf("%.3f", p.Probabilities[types.SignalSell]),
			p.FeatureDate,
		})
	}

	t.SetRows(rows)

	return t
}

// UpdateHistoryRows fills the table with the newest run first.
func UpdateHistoryRows(t table.Model, history []types.EvaluationHistoryRow) table.Model {
	rows := make([]table.Row, 0, len(history))

	for i := len(history) - 1; i >= 0; i-- {
		r := history[i]
		rows = append(rows, table.Row{
			r.Date,
			r.BrokerMode,
			fmt.Sprintf("%.3f", r.Accuracy),
			fmt.Sprintf("%.3f", r.F1),
			fmt.Sprintf("%d", r.Estimators),
			fmt.Sprintf("%d", r.TrainRows),
			fmt.Sprintf("%d", r.TestRows),
		})
	}

	t.SetRows(rows)

	return t
}
