// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/usermgmt/pkg/errutil"
)

func terminalPrompter(answers ...string) (*prompter, *bytes.Buffer) {
	out := &bytes.Buffer{}
	deps := &Deps{
		IsTerminal: func(int) bool { return true },
		ReadPassword: func(int) ([]byte, error) {
			if len(answers) == 0 {
				return nil, errors.New("no more input")
			}
			next := answers[0]
			answers = answers[1:]
			return []byte(next), nil
		},
	}
	return &prompter{deps: deps, in: bufio.NewReader(strings.NewReader("")), out: out}, out
}

func pipedPrompter(stdin string) *prompter {
	deps := &Deps{IsTerminal: func(int) bool { return false }}
	return &prompter{deps: deps, in: bufio.NewReader(strings.NewReader(stdin)), out: &bytes.Buffer{}}
}

func TestPrompter_TerminalSecret(t *testing.T) {
	p, out := terminalPrompter("s3cret")

	got, err := p.secret("Password")

	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)
	assert.Equal(t, "Password: \n", out.String())
}

func TestPrompter_TerminalReadError(t *testing.T) {
	p, _ := terminalPrompter()

	_, err := p.secret("Password")

	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "INPUT_FAILED")
	errutil.AssertErrorContext(t, err, "prompt", "Password")
}

func TestPrompter_ConfirmedSecret(t *testing.T) {
	t.Run("matching entries", func(t *testing.T) {
		p, out := terminalPrompter("abc", "abc")
		got, err := p.confirmedSecret("New password")
		require.NoError(t, err)
		assert.Equal(t, "abc", got)
		assert.Contains(t, out.String(), "Retype new password: ")
	})

	t.Run("mismatch", func(t *testing.T) {
		p, _ := terminalPrompter("abc", "abd")
		_, err := p.confirmedSecret("New password")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "INPUT_MISMATCH")
	})

	t.Run("piped input is read once", func(t *testing.T) {
		p := pipedPrompter("first\nsecond\n")
		got, err := p.confirmedSecret("Password")
		require.NoError(t, err)
		assert.Equal(t, "first", got)
	})
}

func TestPrompter_PipedSecret(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		want  string
	}{
		{name: "newline terminated", stdin: "pw\n", want: "pw"},
		{name: "crlf", stdin: "pw\r\n", want: "pw"},
		{name: "no trailing newline", stdin: "pw", want: "pw"},
		{name: "keeps inner spaces", stdin: " a b \n", want: " a b "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pipedPrompter(tt.stdin).secret("Password")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrompter_PipedEOF(t *testing.T) {
	_, err := pipedPrompter("").secret("Password")

	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "INPUT_FAILED")
}
