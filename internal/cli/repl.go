// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl.go - Line-oriented chat session for "parley chat".
//
// Interactive terminals get liner line editing with input history (arrow
// keys, Ctrl+R) and tab completion of slash commands. Piped input is read
// line by line.

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/parley/internal/chat"
	"github.com/jeranaias/parley/internal/commands"
	"github.com/jeranaias/parley/internal/config"
)

// InputHistoryFile stores REPL input lines between sessions.
const InputHistoryFile = "input_history"

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads one line of user input.
type lineReader interface {
	ReadLine(prompt string) (string, error)
	Close()
}

// linerInput provides input history and line editing.
type linerInput struct {
	line        *liner.State
	historyFile string
}

// newLinerInput creates a liner-backed reader with completion.
func newLinerInput(completer *commands.Completer) *linerInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completer.Complete)

	historyFile := filepath.Join(os.TempDir(), "parley_"+InputHistoryFile)
	if dir, err := config.ConfigDir(); err == nil {
		historyFile = filepath.Join(dir, InputHistoryFile)
	}

	in := &linerInput{line: line, historyFile: historyFile}
	if f, err := os.Open(historyFile); err == nil {
		in.line.ReadHistory(f)
		f.Close()
	}
	return in
}

// ReadLine reads a line and records non-empty input in the history.
func (in *linerInput) ReadLine(prompt string) (string, error) {
	input, err := in.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		in.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the input history with 0600 permissions and restores the
// terminal.
func (in *linerInput) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			in.line.WriteHistory(f)
			f.Close()
		}
	}
	in.line.Close()
}

// scannerInput reads lines from a non-terminal reader. No prompt is shown.
type scannerInput struct {
	scanner *bufio.Scanner
}

func newScannerInput(r io.Reader) *scannerInput {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &scannerInput{scanner: s}
}

func (in *scannerInput) ReadLine(string) (string, error) {
	if in.scanner.Scan() {
		return in.scanner.Text(), nil
	}
	if err := in.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (in *scannerInput) Close() {}

// =============================================================================
// SESSION
// =============================================================================

// replSession drives the controller from a line reader.
type replSession struct {
	ctrl     *chat.Controller
	cmdCtx   *commands.Context
	out      io.Writer
	errOut   io.Writer
	renderer *messageRenderer
	quiet    bool
}

func newREPLSession(ctrl *chat.Controller, out, errOut io.Writer, markdown bool) *replSession {
	tr := ctrl.Translator()
	return &replSession{
		ctrl:     ctrl,
		cmdCtx:   &commands.Context{Controller: ctrl, Registry: commands.NewRegistry()},
		out:      out,
		errOut:   errOut,
		renderer: newMessageRenderer(tr.AuthorLabel, tr.Labels().Sources, markdown, GetTerminalWidth()-4),
	}
}

// completer returns tab completion bound to the controller's catalog.
func (s *replSession) completer() *commands.Completer {
	c := commands.NewCompleter(s.cmdCtx.Registry)
	c.ModelsFn = func() []string { return s.ctrl.Catalog().Models }
	c.RolesFn = func() []string { return s.ctrl.Catalog().Roles }
	return c
}

// run reads input until /quit, EOF or Ctrl+C.
func (s *replSession) run(ctx context.Context, in lineReader) error {
	if !s.quiet {
		s.printWelcome()
		s.printTranscript()
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		input, err := in.ReadLine(RenderConditional(PromptStyle, "parley> "))
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if res, ok := commands.Execute(s.cmdCtx, input); ok {
			s.printResult(res)
			if res.Quit {
				return nil
			}
			continue
		}

		s.submit(ctx, input)
	}
}

// submit runs one turn and prints the settled reply.
func (s *replSession) submit(ctx context.Context, text string) {
	if !s.quiet {
		fmt.Fprintln(s.out, RenderConditional(DimStyle, s.ctrl.Translator().TypingNotice()))
	}

	if err := s.ctrl.Submit(ctx, text); err != nil {
		DisplayError(s.errOut, err)
		return
	}

	transcript := s.ctrl.Transcript()
	if len(transcript) == 0 {
		return
	}
	fmt.Fprintln(s.out, s.renderer.Render(transcript[len(transcript)-1]))
	fmt.Fprintln(s.out)
}

func (s *replSession) printResult(res commands.Result) {
	if res.Err != nil {
		DisplayError(s.errOut, res.Err)
		return
	}
	if res.Output != "" {
		fmt.Fprintln(s.out, res.Output)
	}
}

func (s *replSession) printWelcome() {
	settings := s.ctrl.Settings()
	fmt.Fprintln(s.out, RenderConditional(TitleStyle, "parley"))
	fmt.Fprintln(s.out, RenderField("Model", settings.Model))
	fmt.Fprintln(s.out, RenderField("Role", settings.Role))
	fmt.Fprintln(s.out, RenderConditional(DimStyle, "Type /help for commands, /quit to exit."))
	fmt.Fprintln(s.out, RenderSeparator())
}

// printTranscript replays the restored conversation.
func (s *replSession) printTranscript() {
	for _, msg := range s.ctrl.Transcript() {
		fmt.Fprintln(s.out, s.renderer.Render(msg))
		fmt.Fprintln(s.out)
	}
}
