// Package prompt reads interactive input for the CLI.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/atinyakov/crowdfund/internal/models"
)

// Prompter asks questions on out and reads answers from in. Passwords are
// read without echo when in is a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	tty bool
}

// New creates a Prompter over arbitrary streams. Password input is echoed.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, fd: -1}
}

// Stdio creates a Prompter over the process's standard streams.
func Stdio() *Prompter {
	fd := int(os.Stdin.Fd())
	return &Prompter{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
		fd:  fd,
		tty: term.IsTerminal(fd),
	}
}

// Line asks for one line of text. EOF after a partial line returns the text.
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	s, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// Required repeats the question until a non-empty answer is given.
func (p *Prompter) Required(label string) (string, error) {
	for {
		s, err := p.Line(label)
		if err != nil {
			return "", err
		}
		if s != "" {
			return s, nil
		}
		fmt.Fprintln(p.out, "value is required")
	}
}

// Password asks for a secret.
func (p *Prompter) Password(label string) (string, error) {
	if !p.tty {
		return p.Line(label)
	}
	fmt.Fprint(p.out, label)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Float asks for a number, repeating on malformed input.
func (p *Prompter) Float(label string) (float64, error) {
	for {
		s, err := p.Line(label)
		if err != nil {
			return 0, err
		}
		v, perr := strconv.ParseFloat(s, 64)
		if perr == nil {
			return v, nil
		}
		fmt.Fprintf(p.out, "%q is not a number\n", s)
	}
}

// Int asks for an integer, repeating on malformed input.
func (p *Prompter) Int(label string) (int, error) {
	for {
		s, err := p.Line(label)
		if err != nil {
			return 0, err
		}
		v, perr := strconv.Atoi(s)
		if perr == nil {
			return v, nil
		}
		fmt.Fprintf(p.out, "%q is not an integer\n", s)
	}
}

// Date asks for a YYYY-MM-DD date, repeating on malformed input.
func (p *Prompter) Date(label string) (models.Date, error) {
	for {
		s, err := p.Line(label)
		if err != nil {
			return models.Date{}, err
		}
		d, perr := models.ParseDate(s)
		if perr == nil {
			return d, nil
		}
		fmt.Fprintf(p.out, "%q is not a date (YYYY-MM-DD)\n", s)
	}
}

// Confirm asks a yes/no question. Anything but y/yes is no.
func (p *Prompter) Confirm(label string) (bool, error) {
	s, err := p.Line(label + " [y/N]: ")
	if err != nil {
		return false, err
	}
	s = strings.ToLower(s)
	return s == "y" || s == "yes", nil
}

// ProjectInput asks for every editable project field.
func (p *Prompter) ProjectInput() (models.ProjectInput, error) {
	var in models.ProjectInput
	var err error
	if in.Title, err = p.Required("Title: "); err != nil {
		return in, err
	}
	if in.Description, err = p.Line("Description: "); err != nil {
		return in, err
	}
	if in.GoalAmount, err = p.Float("Goal amount: "); err != nil {
		return in, err
	}
	if in.ProjectType, err = p.Line("Project type: "); err != nil {
		return in, err
	}
	if in.StartDate, err = p.Date("Start date (YYYY-MM-DD): "); err != nil {
		return in, err
	}
	if in.EndDate, err = p.Date("End date (YYYY-MM-DD): "); err != nil {
		return in, err
	}
	return in, nil
}

// RewardInput asks for every editable reward field.
func (p *Prompter) RewardInput() (models.RewardInput, error) {
	var in models.RewardInput
	var err error
	if in.Title, err = p.Required("Title: "); err != nil {
		return in, err
	}
	if in.Description, err = p.Line("Description: "); err != nil {
		return in, err
	}
	if in.Price, err = p.Float("Price: "); err != nil {
		return in, err
	}
	if in.Quantity, err = p.Int("Quantity: "); err != nil {
		return in, err
	}
	return in, nil
}

// ProfileFields asks for the self-editable profile fields.
func (p *Prompter) ProfileFields() (models.ProfileFields, error) {
	var f models.ProfileFields
	var err error
	if f.Name, err = p.Required("Name: "); err != nil {
		return f, err
	}
	if f.Surname, err = p.Required("Surname: "); err != nil {
		return f, err
	}
	if f.Patronymic, err = p.Line("Patronymic (optional): "); err != nil {
		return f, err
	}
	if f.BankNumber, err = p.Required("Bank account number: "); err != nil {
		return f, err
	}
	phone, err := p.Line("Phone number (optional): ")
	if err != nil {
		return f, err
	}
	if phone != "" {
		f.PhoneNumber = &phone
	}
	return f, nil
}
