// Package menu implements the interactive two-level sample picker: the user
// chooses a category, then a sample within it, and the sample handler runs.
package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Separator is printed around the list of choices.
var Separator = strings.Repeat("-", 84)

// ErrDuplicateSample is returned when a sample name is registered twice in
// the same category.
var ErrDuplicateSample = errors.New("duplicate sample")

// Handler runs a sample, writing its output to out.
type Handler func(ctx context.Context, out io.Writer) error

type category struct {
	name    string
	samples []string
	handler map[string]Handler
}

// Menu is a name-keyed dispatch table over a line-oriented prompt.
// Categories and samples are listed in registration order.
type Menu struct {
	in         *bufio.Scanner
	out        io.Writer
	categories []*category
	index      map[string]*category
}

// New returns a new Menu reading answers from in and printing to out.
func New(in io.Reader, out io.Writer) *Menu {
	return &Menu{
		in:    bufio.NewScanner(in),
		out:   out,
		index: make(map[string]*category),
	}
}

// AddSample registers a sample handler under a category.
func (m *Menu) AddSample(categoryName, name string, handler Handler) error {
	if categoryName == "" || name == "" || handler == nil {
		return errors.New("menu: category, name and handler are required")
	}
	c, ok := m.index[categoryName]
	if !ok {
		c = &category{name: categoryName, handler: make(map[string]Handler)}
		m.index[categoryName] = c
		m.categories = append(m.categories, c)
	}
	if _, ok := c.handler[name]; ok {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateSample, categoryName, name)
	}
	c.samples = append(c.samples, name)
	c.handler[name] = handler
	return nil
}

// Categories returns the registered category names.
func (m *Menu) Categories() []string {
	names := make([]string, len(m.categories))
	for i, c := range m.categories {
		names[i] = c.name
	}
	return names
}

// Samples returns the sample names of a category.
func (m *Menu) Samples(categoryName string) []string {
	if c, ok := m.index[categoryName]; ok {
		return append([]string(nil), c.samples...)
	}
	return nil
}

// Run asks for a category and a sample, re-prompting on unknown answers,
// then runs the chosen sample and returns its error. Reaching the end of
// input ends the menu with a nil error.
func (m *Menu) Run(ctx context.Context) error {
	c, ok := m.askCategory()
	if !ok {
		return m.in.Err()
	}
	name, ok := m.askSample(c)
	if !ok {
		return m.in.Err()
	}
	fmt.Fprintf(m.out, "Ok, running samples for %s\n", name)
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.handler[name](ctx, m.out)
}

func (m *Menu) askCategory() (*category, bool) {
	for {
		m.prompt("Hi! Which class of Cognitive Services would you like to sample?",
			m.Categories())
		answer, ok := m.readLine()
		if !ok {
			return nil, false
		}
		if c, found := m.index[answer]; found {
			fmt.Fprintf(m.out, "You picked: %s\n", answer)
			return c, true
		}
		fmt.Fprintf(m.out, "Sorry, %q doesn't seem to be a valid category.\n", answer)
	}
}

func (m *Menu) askSample(c *category) (string, bool) {
	for {
		m.prompt(fmt.Sprintf("Hi! Which %s API would you like to sample?", c.name),
			c.samples)
		answer, ok := m.readLine()
		if !ok {
			return "", false
		}
		if _, found := c.handler[answer]; found {
			return answer, true
		}
		fmt.Fprintf(m.out, "Sorry, %q doesn't seem to be a valid sample.\n", answer)
	}
}

func (m *Menu) prompt(question string, choices []string) {
	fmt.Fprintf(m.out, "%s Pick one of the following: (CTRL+C to exit)\n", question)
	fmt.Fprintln(m.out, Separator)
	fmt.Fprintln(m.out, strings.Join(choices, ", "))
	fmt.Fprintln(m.out, Separator)
}

func (m *Menu) readLine() (string, bool) {
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}
