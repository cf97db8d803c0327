package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gitsu-io/gitsu/pkg/endpoint"
	"github.com/gitsu-io/gitsu/pkg/errors"
)

// conflictPrompt asks the user to pick among conflicting candidates. It
// satisfies core.PromptFunc: the returned index is zero-based and the
// bool reports whether the choice should be persisted as a resolution.
func conflictPrompt(ctx context.Context, name string, picks []*endpoint.Endpoint) (int, bool, error) {
	model := newPickerModel(name, picks)
	out, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if err != nil {
		return 0, false, err
	}
	final, ok := out.(pickerModel)
	if !ok || final.cancelled {
		return 0, false, errors.New(errors.ECONFLICT, "no version picked for %s", name)
	}
	return final.choice, final.persist, nil
}

// pickerModel is the interactive candidate list. Candidates can be chosen
// with the cursor or by typing their number; "2!" or "!2" also persists
// the choice, as does toggling persist with "!" before enter.
type pickerModel struct {
	name  string
	items []string

	cursor  int
	typed   string
	persist bool

	choice    int
	cancelled bool
}

func newPickerModel(name string, picks []*endpoint.Endpoint) pickerModel {
	items := make([]string, len(picks))
	for i, pick := range picks {
		label := pick.Target
		if v := pick.Version(); v != "" {
			label = v
		}
		suffix := ""
		if n := len(pick.Dependants); n == 1 {
			suffix = fmt.Sprintf(" (%d dependant)", n)
		} else if n > 1 {
			suffix = fmt.Sprintf(" (%d dependants)", n)
		}
		items[i] = label + suffix
	}
	return pickerModel{name: name, items: items}
}

// Init implements tea.Model.
func (m pickerModel) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q", "esc":
		m.cancelled = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case "!":
		if m.typed != "" {
			m.typed += "!"
		} else {
			m.persist = !m.persist
		}

	case "backspace":
		if m.typed != "" {
			m.typed = m.typed[:len(m.typed)-1]
		}

	case "enter":
		if m.typed != "" {
			choice, persist, err := parseChoice(m.typed, len(m.items))
			if err != nil {
				m.typed = ""
				return m, nil
			}
			m.choice = choice
			m.persist = m.persist || persist
			return m, tea.Quit
		}
		m.choice = m.cursor
		return m, tea.Quit

	default:
		if len(key.String()) == 1 && key.String() >= "0" && key.String() <= "9" {
			m.typed += key.String()
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m pickerModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Unable to find a suitable version for "+m.name) + "\n\n")

	for i, item := range m.items {
		cursor := "  "
		style := StyleValue
		if i == m.cursor {
			cursor = StyleHighlight.Render(iconInfo) + " "
			style = StyleHighlight
		}
		b.WriteString(fmt.Sprintf("%s%s %s\n",
			cursor,
			StyleNumber.Render(strconv.Itoa(i+1)+")"),
			style.Render(m.name+"#"+item)))
	}

	b.WriteString("\n")
	if m.typed != "" {
		b.WriteString(StyleValue.Render("choice: "+m.typed) + "\n")
	}
	hint := "enter pick · 1-9 by number · ! persist · q cancel"
	if m.persist {
		hint = "enter pick (persisted) · ! undo persist · q cancel"
	}
	b.WriteString(StyleDim.Render(hint) + "\n")

	return b.String()
}

// parseChoice parses a typed candidate choice. A prefix or suffix "!"
// marks the choice for persistence ("!2" and "2!" are equivalent).
// Choices are 1-based on the wire and 0-based in the result.
func parseChoice(s string, n int) (int, bool, error) {
	s = strings.TrimSpace(s)
	persist := false
	if strings.HasPrefix(s, "!") {
		persist = true
		s = s[1:]
	}
	if strings.HasSuffix(s, "!") {
		persist = true
		s = s[:len(s)-1]
	}
	num, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, errors.New(errors.ECONFLICT, "invalid choice %q", s)
	}
	if num < 1 || num > n {
		return 0, false, errors.New(errors.ECONFLICT, "choice %d out of range 1-%d", num, n)
	}
	return num - 1, persist, nil
}
