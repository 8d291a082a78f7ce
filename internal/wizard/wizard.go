// Package wizard is the interactive model builder: a phase-driven
// bubbletea program that gathers parameters and generation options,
// runs the optimization engine while a spinner ticks, then prints the
// suite and a summary once the terminal UI has exited.
//
// The wizard is a front-end only — every engine call goes through the same
// driver as the generate command, so validation, verification, and
// selection behave identically.
package wizard

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"pairwise/internal/driver"
	"pairwise/internal/model"
	"pairwise/internal/output"
)

// Engine runs one generation; the CLI wires in the real generator.
type Engine func(ctx context.Context, m *model.Model, opts driver.Options) (*driver.Result, error)

// displayCap guards the terminal against enormous suites.
const displayCap = 100000

// phase enumerates the wizard's interaction states.
type phase int

const (
	phaseParamName phase = iota
	phaseParamValues
	phaseValueOne
	phaseMenu
	phaseEditIndex
	phaseEditValues
	phaseEditName
	phaseDeleteIndex
	phaseOrdering
	phaseTries
	phaseVerify
	phaseGenerating
	phaseSave
	phaseDone
)

// paramDraft is a parameter as entered, before model validation.
type paramDraft struct {
	name   string
	values []string
}

// wizardModel is the bubbletea model for the whole flow.
type wizardModel struct {
	phase   phase
	input   textinput.Model
	spin    spinner.Model
	params  []paramDraft
	pending paramDraft // parameter currently being entered one value at a time
	editIdx int
	status  string // one-line feedback shown above the prompt

	ordering driver.OrderingMode
	tries    int
	verify   bool

	engine Engine
	ctx    context.Context

	result *driver.Result
	runErr error
	save   bool
	quit   bool // user chose to leave without generating
}

// genDoneMsg delivers the engine outcome back into the update loop.
type genDoneMsg struct {
	result *driver.Result
	err    error
}

func newWizardModel(ctx context.Context, engine Engine) wizardModel {
	ti := textinput.New()
	ti.CharLimit = 512
	ti.Focus()
	return wizardModel{
		phase:    phaseParamName,
		input:    ti,
		spin:     spinner.New(),
		ordering: driver.OrderingAuto,
		tries:    50,
		verify:   true,
		engine:   engine,
		ctx:      ctx,
	}
}

func (m wizardModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quit = true
			return m, tea.Quit
		case tea.KeyEnter:
			if m.phase != phaseGenerating {
				return m.handleEnter()
			}
			return m, nil
		}
	case genDoneMsg:
		m.result = msg.result
		m.runErr = msg.err
		if m.runErr != nil {
			m.phase = phaseDone
			return m, tea.Quit
		}
		m.phase = phaseSave
		m.resetInput("")
		return m, nil
	case spinner.TickMsg:
		if m.phase == phaseGenerating {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleEnter advances the state machine with the submitted line.
func (m wizardModel) handleEnter() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	m.status = ""

	switch m.phase {
	case phaseParamName:
		if line == "" {
			if len(m.params) < 2 {
				m.status = "need at least 2 parameters"
				return m, nil
			}
			m.phase = phaseMenu
			m.resetInput("")
			return m, nil
		}
		m.pending = paramDraft{name: line}
		m.phase = phaseParamValues
		m.resetInput("")
		return m, nil

	case phaseParamValues:
		if line == "" {
			m.phase = phaseValueOne
			m.resetInput("")
			return m, nil
		}
		m.pending.values = splitValues(line)
		return m.commitPending()

	case phaseValueOne:
		if line == "" {
			return m.commitPending()
		}
		for _, v := range m.pending.values {
			if v == line {
				m.status = "value already exists"
				return m, nil
			}
		}
		m.pending.values = append(m.pending.values, line)
		m.resetInput("")
		return m, nil

	case phaseMenu:
		switch line {
		case "1":
			m.phase = phaseOrdering
		case "2":
			m.phase = phaseEditIndex
		case "3":
			m.phase = phaseDeleteIndex
		case "4":
			m.params = nil
			m.phase = phaseParamName
		case "5":
			m.quit = true
			return m, tea.Quit
		default:
			m.status = "invalid choice"
		}
		m.resetInput("")
		return m, nil

	case phaseEditIndex:
		idx, ok := m.paramIndex(line)
		if !ok {
			m.phase = phaseMenu
			return m, nil
		}
		m.editIdx = idx
		m.phase = phaseEditValues
		m.resetInput("")
		return m, nil

	case phaseEditValues:
		if line != "" {
			vals := splitValues(line)
			if len(vals) < 2 {
				m.status = "need at least 2 values"
				return m, nil
			}
			m.params[m.editIdx].values = vals
		}
		m.phase = phaseEditName
		m.resetInput("")
		return m, nil

	case phaseEditName:
		if line != "" {
			m.params[m.editIdx].name = line
		}
		m.phase = phaseMenu
		m.resetInput("")
		return m, nil

	case phaseDeleteIndex:
		if idx, ok := m.paramIndex(line); ok {
			m.params = append(m.params[:idx], m.params[idx+1:]...)
		}
		m.phase = phaseMenu
		m.resetInput("")
		return m, nil

	case phaseOrdering:
		if line == "1" {
			m.ordering = driver.OrderingKeep
		} else {
			m.ordering = driver.OrderingAuto
		}
		m.phase = phaseTries
		m.resetInput("")
		return m, nil

	case phaseTries:
		if line != "" {
			n, err := strconv.Atoi(line)
			if err != nil || n < 1 {
				m.status = "invalid number, using 50"
			} else {
				m.tries = n
			}
		}
		m.phase = phaseVerify
		m.resetInput("")
		return m, nil

	case phaseVerify:
		m.verify = !strings.EqualFold(line, "n")
		m.phase = phaseGenerating
		return m, tea.Batch(m.spin.Tick, m.generateCmd())

	case phaseSave:
		m.save = strings.EqualFold(line, "y")
		m.phase = phaseDone
		return m, tea.Quit
	}
	return m, nil
}

// commitPending validates the drafted parameter against a rebuilt model.
func (m wizardModel) commitPending() (tea.Model, tea.Cmd) {
	drafts := append(append([]paramDraft{}, m.params...), m.pending)
	if _, err := buildDrafts(drafts); err != nil {
		m.status = err.Error()
		m.pending = paramDraft{}
		m.phase = phaseParamName
		m.resetInput("")
		return m, nil
	}
	m.params = drafts
	m.status = fmt.Sprintf("added parameter %q with %d values", m.pending.name, len(m.pending.values))
	m.pending = paramDraft{}
	m.phase = phaseParamName
	m.resetInput("")
	return m, nil
}

// generateCmd runs the engine off the update loop.
func (m wizardModel) generateCmd() tea.Cmd {
	drafts := append([]paramDraft{}, m.params...)
	ordering, tries, verifyOn := m.ordering, m.tries, m.verify
	engine, ctx := m.engine, m.ctx
	return func() tea.Msg {
		built, err := buildModel(drafts)
		if err != nil {
			return genDoneMsg{err: err}
		}
		opts := driver.DefaultOptions()
		opts.Ordering = ordering
		opts.Tries = tries
		opts.Verify = verifyOn
		opts.RequireVerified = verifyOn
		res, err := engine(ctx, built, opts)
		return genDoneMsg{result: res, err: err}
	}
}

// paramIndex parses a 1-based parameter number.
func (m wizardModel) paramIndex(line string) (int, bool) {
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(m.params) {
		return 0, false
	}
	return n - 1, true
}

func (m *wizardModel) resetInput(placeholder string) {
	m.input.SetValue("")
	m.input.Placeholder = placeholder
}

func (m wizardModel) View() string {
	var b strings.Builder

	switch m.phase {
	case phaseGenerating:
		fmt.Fprintf(&b, "%s generating (%d tries)...\n", m.spin.View(), m.tries)
		return b.String()
	case phaseDone:
		return ""
	}

	if len(m.params) > 0 {
		b.WriteString("Model so far:\n")
		for i, p := range m.params {
			fmt.Fprintf(&b, " %d. %s (%d values): %s\n", i+1, p.name, len(p.values), strings.Join(p.values, ", "))
		}
		b.WriteByte('\n')
	}
	if m.status != "" {
		fmt.Fprintf(&b, "%s\n\n", m.status)
	}

	switch m.phase {
	case phaseParamName:
		b.WriteString("Parameter name (blank to finish): ")
	case phaseParamValues:
		fmt.Fprintf(&b, "Values for %q, comma-separated (blank for one-by-one): ", m.pending.name)
	case phaseValueOne:
		fmt.Fprintf(&b, "Value %d for %q (blank to finish): ", len(m.pending.values)+1, m.pending.name)
	case phaseMenu:
		b.WriteString("Options:\n 1) Generate pairwise test suite\n 2) Edit a parameter\n 3) Delete a parameter\n 4) Restart wizard\n 5) Quit\nChoice (1-5): ")
	case phaseEditIndex:
		b.WriteString("Parameter number to edit: ")
	case phaseEditValues:
		b.WriteString("New comma-separated values (blank keeps current): ")
	case phaseEditName:
		b.WriteString("New name (blank keeps current): ")
	case phaseDeleteIndex:
		b.WriteString("Parameter number to delete: ")
	case phaseOrdering:
		b.WriteString("Parameter ordering:\n 1) Keep my order\n 2) Auto-reorder by value count [recommended]\nChoice (1-2) [default 2]: ")
	case phaseTries:
		b.WriteString("Number of tries to find the smallest suite [default 50]: ")
	case phaseVerify:
		b.WriteString("Verify pairwise coverage mathematically? (Y/n): ")
	case phaseSave:
		b.WriteString("Save model and cases to the current directory? (y/N): ")
	}
	return b.String() + m.input.View()
}

// splitValues splits a comma-separated entry, dropping empties and
// duplicates while preserving order.
func splitValues(line string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range strings.Split(line, ",") {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// buildDrafts turns drafts into a model, checking per-parameter rules and
// structural limits but not the whole-model invariants (a model under
// construction legitimately has one parameter).
func buildDrafts(drafts []paramDraft) (*model.Model, error) {
	m := model.New()
	for _, d := range drafts {
		if err := m.AddParameter(d.name, d.values); err != nil {
			return nil, err
		}
	}
	if err := m.CheckLimits(model.DefaultLimits()); err != nil {
		return nil, err
	}
	return m, nil
}

// buildModel turns drafts into a fully validated model.
func buildModel(drafts []paramDraft) (*model.Model, error) {
	m, err := buildDrafts(drafts)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Run drives the wizard to completion: interactive phase, then report and
// optional save once the terminal UI has exited.
func Run(ctx context.Context, stdout, stderr io.Writer, engine Engine) error {
	final, err := tea.NewProgram(newWizardModel(ctx, engine)).Run()
	if err != nil {
		return fmt.Errorf("wizard: %w", err)
	}
	w, ok := final.(wizardModel)
	if !ok || w.quit {
		return nil
	}
	if w.runErr != nil {
		return w.runErr
	}
	if w.result == nil {
		return nil
	}

	built, err := buildModel(w.params)
	if err != nil {
		return err
	}
	printReport(stdout, built, w.result)

	if w.save {
		if err := saveArtifacts(stdout, built, w.result); err != nil {
			fmt.Fprintf(stderr, "save failed: %v\n", err)
			return err
		}
	}
	return nil
}

// printReport renders the suite and the run summary.
func printReport(w io.Writer, m *model.Model, res *driver.Result) {
	headers := m.DisplayNames()
	rule := strings.Repeat("-", 60)

	if res.Best.N <= displayCap {
		fmt.Fprintln(w, rule)
		fmt.Fprint(w, output.Table(headers, res.Best.Rows))
		fmt.Fprintln(w, rule)
	} else {
		fmt.Fprintf(w, "suite has %d rows; skipping console display\n", res.Best.N)
	}

	counts := make([]string, len(m.Parameters))
	for i, c := range m.Counts() {
		counts[i] = strconv.Itoa(c)
	}
	fmt.Fprintf(w, "Parameter Counts   : %s\n", strings.Join(counts, ", "))
	fmt.Fprintf(w, "Ordering Mode      : %s\n", res.Ordering)
	if res.Ordering == driver.OrderingAuto {
		names := make([]string, 0, len(m.Parameters))
		for _, p := range m.Reordered() {
			names = append(names, p.DisplayName)
		}
		fmt.Fprintf(w, "Internal Reorder   : %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(w, "Attempts Tried     : %d\n", len(res.Attempts))
	fmt.Fprintf(w, "Best Seed Used     : %d\n", res.Best.Seed)
	if res.LB != nil {
		fmt.Fprintf(w, "Lower Bound (LB)   : %d\n", *res.LB)
	} else {
		fmt.Fprintln(w, "Lower Bound (LB)   : N/A")
	}
	fmt.Fprintf(w, "Generated Size (N) : %d\n", res.Best.N)

	switch {
	case res.ProvablyMinimum():
		fmt.Fprintln(w, "Result: PROVABLY MINIMUM")
	case res.Verified():
		fmt.Fprintln(w, "Result: COVERAGE VERIFIED (NOT MINIMUM)")
	default:
		fmt.Fprintln(w, "Result: COVERAGE NOT VERIFIED")
	}
	fmt.Fprintln(w, rule)
}

// saveArtifacts writes the declared model, the internal generator model
// (when reordered), and the suite as CSV into the working directory.
func saveArtifacts(w io.Writer, m *model.Model, res *driver.Result) error {
	var declared strings.Builder
	for _, p := range m.Parameters {
		fmt.Fprintf(&declared, "%s: %s\n", p.DisplayName, strings.Join(p.Values, ", "))
	}
	if err := os.WriteFile("pairwise_model.pict", []byte(declared.String()), 0o644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	saved := []string{"pairwise_model.pict"}

	if res.Ordering == driver.OrderingAuto {
		if err := os.WriteFile("pairwise_model.reordered.pict", []byte(res.ModelText), 0o644); err != nil {
			return fmt.Errorf("write reordered model: %w", err)
		}
		saved = append(saved, "pairwise_model.reordered.pict")
	}

	body, err := output.CSV(m.DisplayNames(), res.Best.Rows)
	if err != nil {
		return fmt.Errorf("render cases: %w", err)
	}
	if err := os.WriteFile("pairwise_cases.csv", []byte(body), 0o644); err != nil {
		return fmt.Errorf("write cases: %w", err)
	}
	saved = append(saved, "pairwise_cases.csv")

	fmt.Fprintf(w, "Saved: %s\n", strings.Join(saved, ", "))
	return nil
}
