// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// prompter reads secrets from the terminal without echo, or line by line
// when stdin is a pipe.
type prompter struct {
	deps *Deps
	in   *bufio.Reader
	out  io.Writer
}

func newPrompter(cmd *cobra.Command, deps *Deps) *prompter {
	return &prompter{
		deps: deps,
		in:   bufio.NewReader(cmd.InOrStdin()),
		out:  cmd.ErrOrStderr(),
	}
}

// secret prompts with label and returns the entered value.
func (p *prompter) secret(label string) (string, error) {
	if p.deps.IsTerminal(p.deps.StdinFd) {
		if _, err := fmt.Fprint(p.out, label+": "); err != nil {
			return "", oops.Wrap(err)
		}
		pw, err := p.deps.ReadPassword(p.deps.StdinFd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", oops.Code("INPUT_FAILED").With("prompt", label).Wrap(err)
		}
		return string(pw), nil
	}

	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return "", oops.Code("INPUT_FAILED").With("prompt", label).Wrap(err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirmedSecret prompts twice and requires both entries to match.
// Piped input is read once.
func (p *prompter) confirmedSecret(label string) (string, error) {
	first, err := p.secret(label)
	if err != nil {
		return "", err
	}
	if !p.deps.IsTerminal(p.deps.StdinFd) {
		return first, nil
	}
	second, err := p.secret("Retype " + strings.ToLower(label))
	if err != nil {
		return "", err
	}
	if first != second {
		return "", oops.Code("INPUT_MISMATCH").Errorf("entries do not match")
	}
	return first, nil
}
