package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"semqa/internal/domain"
)

const (
	fieldQuestion = iota
	fieldCountries
	fieldStates
	fieldCities
	fieldYearFrom
	fieldYearTo
	fieldModel
	fieldMultiQuery
	fieldLLM
	fieldCount
)

// searchForm collects the question and its filters.
type searchForm struct {
	inputs     [4]textinput.Model
	yearFrom   int
	yearTo     int
	model      int
	multiQuery bool
	llm        bool
	focus      int
}

// FormDefaults seeds the search form.
type FormDefaults struct {
	Filters              domain.SearchFilters
	UseMultiQuery        bool
	UseLLMInterpretation bool
}

func newSearchForm(def FormDefaults) searchForm {
	mk := func(prompt, placeholder string, values []string) textinput.Model {
		ti := textinput.New()
		ti.Prompt = prompt
		ti.Placeholder = placeholder
		ti.CharLimit = 0
		ti.SetValue(strings.Join(values, ", "))
		return ti
	}
	f := searchForm{
		inputs: [4]textinput.Model{
			mk("> ", "Ask a research question and press Enter", nil),
			mk("countries: ", "any", def.Filters.Countries),
			mk("states: ", "any", def.Filters.States),
			mk("cities: ", "any", def.Filters.Cities),
		},
		yearFrom:   def.Filters.YearFrom,
		yearTo:     def.Filters.YearTo,
		multiQuery: def.UseMultiQuery,
		llm:        def.UseLLMInterpretation,
	}
	if f.yearFrom == 0 {
		f.yearFrom = domain.DefaultYearLow
	}
	if f.yearTo == 0 {
		f.yearTo = domain.DefaultYearTop
	}
	for i, m := range domain.EmbeddingModels {
		if m == def.Filters.EmbeddingModel {
			f.model = i
		}
	}
	f.inputs[fieldQuestion].Focus()
	return f
}

func (f *searchForm) setFocus(i int) {
	f.focus = (i%fieldCount + fieldCount) % fieldCount
	for j := range f.inputs {
		if j == f.focus {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
}

func (f *searchForm) blur() {
	for j := range f.inputs {
		f.inputs[j].Blur()
	}
}

// update handles a key for the focused field. Enter is handled by the caller.
func (f searchForm) update(msg tea.Msg) (searchForm, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab":
			f.setFocus(f.focus + 1)
			return f, nil
		case "shift+tab":
			f.setFocus(f.focus - 1)
			return f, nil
		}
		switch f.focus {
		case fieldYearFrom, fieldYearTo:
			f.adjustYear(key.String())
			return f, nil
		case fieldModel:
			switch key.String() {
			case "left", "h":
				f.model = (f.model - 1 + len(domain.EmbeddingModels)) % len(domain.EmbeddingModels)
			case "right", "l", " ":
				f.model = (f.model + 1) % len(domain.EmbeddingModels)
			}
			return f, nil
		case fieldMultiQuery:
			if key.String() == " " {
				f.multiQuery = !f.multiQuery
			}
			return f, nil
		case fieldLLM:
			if key.String() == " " {
				f.llm = !f.llm
			}
			return f, nil
		}
	}
	if f.focus < len(f.inputs) {
		var cmd tea.Cmd
		f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
		return f, cmd
	}
	return f, nil
}

func (f *searchForm) adjustYear(key string) {
	delta := 0
	switch key {
	case "left", "down", "h", "-":
		delta = -1
	case "right", "up", "l", "+":
		delta = 1
	}
	if f.focus == fieldYearFrom {
		f.yearFrom = clampInt(f.yearFrom+delta, domain.MinFilterYear, f.yearTo)
	} else {
		f.yearTo = clampInt(f.yearTo+delta, f.yearFrom, domain.MaxFilterYear)
	}
}

// params builds the request. Filters are passed through unvalidated.
func (f searchForm) params() domain.SearchParams {
	return domain.SearchParams{
		Question: strings.TrimSpace(f.inputs[fieldQuestion].Value()),
		Filters: domain.SearchFilters{
			Countries:      splitList(f.inputs[fieldCountries].Value()),
			States:         splitList(f.inputs[fieldStates].Value()),
			Cities:         splitList(f.inputs[fieldCities].Value()),
			YearFrom:       f.yearFrom,
			YearTo:         f.yearTo,
			EmbeddingModel: domain.EmbeddingModels[f.model],
		},
		UseMultiQuery:        f.multiQuery,
		UseLLMInterpretation: f.llm,
	}
}

func (f searchForm) view(width int) string {
	field := func(i int, s string) string {
		if i == f.focus {
			return focusedFieldStyle.Render(s)
		}
		return s
	}
	check := func(b bool) string {
		if b {
			return "[x]"
		}
		return "[ ]"
	}
	question := f.inputs[fieldQuestion]
	question.Width = max(10, width-4)
	filters := []string{
		field(fieldCountries, f.inputs[fieldCountries].View()),
		field(fieldStates, f.inputs[fieldStates].View()),
		field(fieldCities, f.inputs[fieldCities].View()),
	}
	options := []string{
		field(fieldYearFrom, fmt.Sprintf("from %d", f.yearFrom)),
		field(fieldYearTo, fmt.Sprintf("to %d", f.yearTo)),
		field(fieldModel, "model "+domain.EmbeddingModels[f.model]),
		field(fieldMultiQuery, check(f.multiQuery)+" multi-query"),
		field(fieldLLM, check(f.llm)+" interpretation"),
	}
	sep := dimStyle.Render("  ·  ")
	return lipgloss.JoinVertical(lipgloss.Left,
		question.View(),
		strings.Join(filters, sep),
		strings.Join(options, sep),
	)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
