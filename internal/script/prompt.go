package script

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// ErrNoInput is returned when a value is needed but there is nothing to read.
var ErrNoInput = errors.New("script: input ended before every answer was given")

type prompter struct {
	in  *bufio.Reader
	out io.Writer
	ask *color.Color
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{out: out, ask: color.New(color.FgMagenta, color.Bold)}
	if in != nil {
		p.in = bufio.NewReader(in)
	}
	return p
}

// line asks label until a non-blank line is read.
func (p *prompter) line(label string) (string, error) {
	if p.in == nil {
		return "", ErrNoInput
	}
	for {
		p.ask.Fprintf(p.out, "%s ", label)
		s, err := p.in.ReadString('\n')
		s = strings.TrimSpace(s)
		if s != "" {
			return s, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", ErrNoInput
			}
			return "", fmt.Errorf("script: read input: %w", err)
		}
	}
}

// choose lists options and accepts either a number or free text.
func (p *prompter) choose(label string, options []string) (string, error) {
	if p.in == nil {
		return "", ErrNoInput
	}
	fmt.Fprintln(p.out, label)
	for i, o := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, o)
	}
	s, err := p.line(">")
	if err != nil {
		return "", err
	}
	if n, convErr := strconv.Atoi(s); convErr == nil && n >= 1 && n <= len(options) {
		return options[n-1], nil
	}
	for _, o := range options {
		if strings.EqualFold(o, s) {
			return o, nil
		}
	}
	return s, nil
}

// confirm asks a yes/no question. A blank line means yes; end of input
// means no.
func (p *prompter) confirm(label string) bool {
	if p.in == nil {
		return false
	}
	p.ask.Fprintf(p.out, "%s [Y/n] ", label)
	s, err := p.in.ReadString('\n')
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" && err != nil {
		return false
	}
	return s != "n" && s != "no"
}
