package assistant

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/dirk.krummacker/contacts-assistant/internal/birthday"
	"gitlab.com/dirk.krummacker/contacts-assistant/internal/model"
)

// unlimited marks a command without an upper bound on its arguments.
const unlimited = -1

// command describes one command: its name, usage, how many arguments it takes and the handler
// that executes it. Handlers are only called with a valid number of arguments.
type command struct {
	name    string
	usage   string
	minArgs int
	maxArgs int
	run     func(a *Assistant, args []string) (string, error)
}

// commands lists all commands in the order in which help shows them. It is filled in init
// because the help handler reads it.
var commands []command

func init() {
	commands = []command{
		{"hello", "hello", 0, unlimited, (*Assistant).hello},
		{"add", "add <name> <phone...>", 2, unlimited, (*Assistant).addContact},
		{"add-phone", "add-phone <name> <phone>", 2, 2, (*Assistant).addPhone},
		{"change", "change <name> <old phone> <new phone>", 3, 3, (*Assistant).changeContact},
		{"remove-phone", "remove-phone <name> <phone>", 2, 2, (*Assistant).removePhone},
		{"delete", "delete <name>", 1, 1, (*Assistant).deleteContact},
		{"phone", "phone <name>", 1, 1, (*Assistant).showPhone},
		{"all", "all", 0, unlimited, (*Assistant).showAll},
		{"add-birthday", "add-birthday <name> <DD.MM.YYYY>", 2, 2, (*Assistant).addBirthday},
		{"show-birthday", "show-birthday <name>", 1, 1, (*Assistant).showBirthday},
		{"birthdays", "birthdays", 0, unlimited, (*Assistant).birthdays},
		{"save", "save", 0, 0, (*Assistant).saveBook},
		{"help", "help", 0, 0, (*Assistant).help},
		{"close", "close", 0, 0, (*Assistant).goodbye},
		{"exit", "exit", 0, 0, (*Assistant).goodbye},
	}
}

// lookup finds a command by its name.
func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// accepts reports whether n arguments are valid for the command.
func (c command) accepts(n int) bool {
	return n >= c.minArgs && (c.maxArgs == unlimited || n <= c.maxArgs)
}

// errQuit is returned by the close and exit handlers to end the session.
var errQuit = errors.New("quit")

func (a *Assistant) hello([]string) (string, error) {
	return "How can I help you?", nil
}

// addContact creates the contact with the given phones, replacing a contact of the same name.
func (a *Assistant) addContact(args []string) (string, error) {
	name, phones := args[0], args[1:]
	record, err := model.NewRecord(name, phones...)
	if err != nil {
		return "", err
	}
	a.book.AddRecord(record)
	return fmt.Sprintf("Contact '%s' with number(s) '%s' added successfully.", name, strings.Join(phones, ", ")), nil
}

// addPhone adds a phone to a contact, creating the contact if it does not exist yet.
func (a *Assistant) addPhone(args []string) (string, error) {
	if err := a.book.AddPhone(args[0], args[1]); err != nil {
		return "", err
	}
	return fmt.Sprintf("Phone '%s' added for contact '%s'.", args[1], args[0]), nil
}

func (a *Assistant) changeContact(args []string) (string, error) {
	name, oldPhone, newPhone := args[0], args[1], args[2]
	if err := a.book.ChangePhone(name, oldPhone, newPhone); err != nil {
		return "", err
	}
	return fmt.Sprintf("Number for contact '%s' changed from '%s' to '%s'.", name, oldPhone, newPhone), nil
}

func (a *Assistant) removePhone(args []string) (string, error) {
	if err := a.book.DeletePhone(args[0], args[1]); err != nil {
		return "", err
	}
	return fmt.Sprintf("Phone '%s' removed from contact '%s'.", args[1], args[0]), nil
}

func (a *Assistant) deleteContact(args []string) (string, error) {
	if err := a.book.DeleteRecord(args[0]); err != nil {
		return "", err
	}
	return fmt.Sprintf("Contact '%s' deleted.", args[0]), nil
}

func (a *Assistant) showPhone(args []string) (string, error) {
	name := args[0]
	record, ok := a.book.FindRecord(name)
	if !ok {
		return fmt.Sprintf("No phone number found for contact '%s'.", name), nil
	}
	return fmt.Sprintf("The phone number(s) for '%s' is/are %s.", name, joinPhones(record)), nil
}

// showAll lists every contact with its phones and, if known, the birthday.
func (a *Assistant) showAll([]string) (string, error) {
	if a.book.Len() == 0 {
		return a.styles.empty.Render("The address book is empty."), nil
	}
	lines := []string{a.styles.heading.Render("All contacts in the address book:")}
	for name, record := range a.book.All() {
		lines = append(lines, fmt.Sprintf("%s: %s", name, joinPhones(record)))
		if b, ok := record.Birthday(); ok {
			lines = append(lines, fmt.Sprintf("Birthday: %s", b))
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (a *Assistant) addBirthday(args []string) (string, error) {
	name, date := args[0], args[1]
	if err := a.book.AddBirthday(name, date); err != nil {
		return "", err
	}
	return fmt.Sprintf("Birthday '%s' added for contact '%s'.", date, name), nil
}

func (a *Assistant) showBirthday(args []string) (string, error) {
	name := args[0]
	if record, ok := a.book.FindRecord(name); ok {
		if b, ok := record.Birthday(); ok {
			return fmt.Sprintf("The birthday for '%s' is %s.", name, b), nil
		}
	}
	return fmt.Sprintf("No birthday found for contact '%s'.", name), nil
}

// birthdays reports whom to congratulate within the configured window.
func (a *Assistant) birthdays([]string) (string, error) {
	upcoming := birthday.Upcoming(a.book, a.window, a.now())
	if len(upcoming) == 0 {
		return a.styles.empty.Render(fmt.Sprintf("No upcoming birthdays in the next %d days.", a.window)), nil
	}
	lines := []string{a.styles.heading.Render(fmt.Sprintf("Upcoming birthdays in the next %d days:", a.window))}
	for _, c := range upcoming {
		lines = append(lines, fmt.Sprintf("%s has a birthday on %s", c.Name, c.FormattedDate()))
	}
	return strings.Join(lines, "\n"), nil
}

// saveBook persists the address book. A failure here is not an input error and ends the session.
func (a *Assistant) saveBook([]string) (string, error) {
	if a.save == nil {
		return "Saving is not configured.", nil
	}
	if err := a.save(a.book); err != nil {
		return "", &fatalError{err: err}
	}
	return "Address book saved.", nil
}

func (a *Assistant) help([]string) (string, error) {
	lines := []string{a.styles.heading.Render("Available commands:")}
	for _, c := range commands {
		lines = append(lines, "  "+c.usage)
	}
	return strings.Join(lines, "\n"), nil
}

func (a *Assistant) goodbye([]string) (string, error) {
	return "Good bye!", errQuit
}

// joinPhones lists the phones of the record separated by commas.
func joinPhones(record *model.Record) string {
	phones := record.Phones()
	numbers := make([]string, 0, len(phones))
	for _, p := range phones {
		numbers = append(numbers, p.String())
	}
	return strings.Join(numbers, ", ")
}
