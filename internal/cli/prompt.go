package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// prompter reads operator answers. Secrets are read without echo when stdin is a
// terminal and as plain lines otherwise (pipes, tests).
type prompter struct {
	in      *bufio.Reader
	out     io.Writer
	fd      int
	tty     bool
	invalid string
}

func newPrompter(in io.Reader, out io.Writer, invalid string) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out, fd: -1, invalid: invalid}
	if f, ok := in.(*os.File); ok {
		p.fd = int(f.Fd())
		p.tty = term.IsTerminal(p.fd)
	}
	return p
}

func (p *prompter) Line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	s, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

func (p *prompter) Secret(prompt string) (string, error) {
	if !p.tty {
		return p.Line(prompt)
	}
	fmt.Fprint(p.out, prompt)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// YesNo asks until the answer is y/yes or n/no.
func (p *prompter) YesNo(prompt string) (bool, error) {
	for {
		s, err := p.Line(prompt)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(s) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, p.invalid)
	}
}

// Int asks until a whole number >= min is entered.
func (p *prompter) Int(prompt string, min int) (int, error) {
	for {
		s, err := p.Line(prompt)
		if err != nil {
			return 0, err
		}
		if n, err := strconv.Atoi(s); err == nil && n >= min {
			return n, nil
		}
		fmt.Fprintln(p.out, p.invalid)
	}
}

// Port asks until a valid TCP port is entered. An empty answer returns def.
func (p *prompter) Port(prompt string, def int) (int, error) {
	for {
		s, err := p.Line(prompt)
		if err != nil {
			return 0, err
		}
		if s == "" {
			return def, nil
		}
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 65535 {
			return n, nil
		}
		fmt.Fprintln(p.out, p.invalid)
	}
}

// Float asks until a positive number is entered.
func (p *prompter) Float(prompt string) (float64, error) {
	for {
		s, err := p.Line(prompt)
		if err != nil {
			return 0, err
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
			return f, nil
		}
		fmt.Fprintln(p.out, p.invalid)
	}
}

// Choice prints a numbered list and returns the zero-based index picked.
func (p *prompter) Choice(title, prompt string, options []string) (int, error) {
	if title != "" {
		fmt.Fprintf(p.out, "\n%s\n", title)
	}
	for i, o := range options {
		fmt.Fprintf(p.out, "\n%d) %s", i+1, o)
	}
	fmt.Fprintln(p.out)
	for {
		s, err := p.Line("\n" + prompt)
		if err != nil {
			return 0, err
		}
		if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintln(p.out, p.invalid)
	}
}
