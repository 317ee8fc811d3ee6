// Package assistant implements the command driven front end of the address book: one handler
// per command, a dispatcher that turns their results into one-line replies, and the read loop.
package assistant

import (
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"gitlab.com/dirk.krummacker/contacts-assistant/internal/birthday"
	"gitlab.com/dirk.krummacker/contacts-assistant/internal/logger"
	"gitlab.com/dirk.krummacker/contacts-assistant/internal/model"
)

// Assistant executes commands against one address book. It is not safe for concurrent use;
// commands are processed one after the other.
type Assistant struct {
	book   *model.Directory
	window int
	now    func() time.Time
	save   func(*model.Directory) error
	log    *logger.Logger
	styles styles
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithWindow sets the number of days the birthdays command looks ahead.
func WithWindow(days int) Option {
	return func(a *Assistant) { a.window = days }
}

// WithClock replaces time.Now as the source of today's date.
func WithClock(now func() time.Time) Option {
	return func(a *Assistant) { a.now = now }
}

// WithSaver sets the function the save command uses to persist the address book.
func WithSaver(save func(*model.Directory) error) Option {
	return func(a *Assistant) { a.save = save }
}

// WithLogger sets the diagnostics logger.
func WithLogger(log *logger.Logger) Option {
	return func(a *Assistant) { a.log = log }
}

// New returns an Assistant working on book.
func New(book *model.Directory, opts ...Option) *Assistant {
	a := &Assistant{
		book:   book,
		window: birthday.DefaultWindow,
		now:    time.Now,
		log:    logger.NewNop(),
		styles: newStyles(lipgloss.NewRenderer(io.Discard)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Book returns the address book the assistant works on.
func (a *Assistant) Book() *model.Directory {
	return a.book
}

// styles holds the lipgloss styles of the console output.
type styles struct {
	heading lipgloss.Style
	empty   lipgloss.Style
}

// newStyles creates the styles for the renderer of the output. On anything but a terminal they
// render plain text.
func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		heading: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		empty:   r.NewStyle().Foreground(lipgloss.Color("245")),
	}
}
