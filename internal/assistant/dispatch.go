package assistant

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/dirk.krummacker/contacts-assistant/internal/model"
)

// ErrArguments is matched by errors about a wrong number of command arguments.
var ErrArguments = errors.New("invalid number of arguments")

// ArgumentError is returned when a command is called with a wrong number of arguments. The
// handler of the command is not called in this case.
type ArgumentError struct {
	Command string
	Got     int
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid number of arguments for '%s' command: got %d", e.Command, e.Got)
}

func (e *ArgumentError) Is(target error) bool {
	return target == ErrArguments
}

// fatalError wraps failures that must end the session, such as a failed save.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Reply is what the user gets to see for one command line.
type Reply struct {
	Message string
	Quit    bool
}

// Dispatch executes one command line. Input errors are turned into a one-line message and the
// session goes on. The returned error is only set for failures that must end the session.
//
// Blank lines produce an empty reply.
func (a *Assistant) Dispatch(line string) (Reply, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Reply{}, nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]
	message, err := a.execute(name, args)
	switch {
	case err == nil:
		return Reply{Message: message}, nil
	case errors.Is(err, errQuit):
		return Reply{Message: message, Quit: true}, nil
	}

	var fatal *fatalError
	if errors.As(err, &fatal) {
		a.log.Error("command failed", "command", name, "error", fatal.err)
		return Reply{}, fmt.Errorf("assistant: %s: %w", name, fatal.err)
	}
	a.log.Debug("command rejected", "command", name, "error", err)
	return Reply{Message: describe(err)}, nil
}

// execute checks the arguments and calls the handler of the named command.
func (a *Assistant) execute(name string, args []string) (string, error) {
	cmd, ok := lookup(name)
	if !ok {
		return "Invalid command. Type again!", nil
	}
	if !cmd.accepts(len(args)) {
		return "", &ArgumentError{Command: cmd.name, Got: len(args)}
	}
	return cmd.run(a, args)
}

// describe turns a command error into the message for the user.
func describe(err error) string {
	var argErr *ArgumentError
	switch {
	case errors.As(err, &argErr):
		return fmt.Sprintf("Invalid number of arguments for '%s' command.", argErr.Command)
	case errors.Is(err, model.ErrInvalidFormat), errors.Is(err, model.ErrNotFound):
		return "Input error: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}
