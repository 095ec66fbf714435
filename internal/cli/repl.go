package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"
	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
)

const (
	replPrompt       = "fdio> "
	historyLimit     = 1000
	historyLockWait  = 2 * time.Second
	historyLockRetry = 20 * time.Millisecond
)

// lineEditor is the part of [liner.State] the REPL uses.
type lineEditor interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	ReadHistory(r io.Reader) (int, error)
	WriteHistory(w io.Writer) (int, error)
	Close() error
}

// ReplCmd returns the repl command.
func ReplCmd(s *session) *Command {
	flags := flag.NewFlagSet("repl", flag.ContinueOnError)
	noHistory := flags.Bool("no-history", false, "Do not load or save the history file")

	return &Command{
		Flags: flags,
		Usage: "[flags]",
		Short: "Start an interactive prompt",
		Long: `Start an interactive prompt. Every statement is evaluated as it is
entered and its result printed. Type exit or press Ctrl-D to leave.

History is kept in history_file (default $XDG_STATE_HOME/fdio/history).`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			history := s.cfg.HistoryFileAbs
			if *noHistory {
				history = ""
			}

			return execRepl(ctx, o, s, newLineEditor(o.in), history)
		},
	}
}

// newLineEditor uses liner on an interactive stdin and a plain line
// reader for everything else.
func newLineEditor(in io.Reader) lineEditor {
	if f, ok := in.(*os.File); ok && f == os.Stdin && liner.TerminalSupported() {
		state := liner.NewLiner()
		state.SetCtrlCAborts(true)

		return state
	}

	if in == nil {
		in = strings.NewReader("")
	}

	return &plainEditor{sc: bufio.NewScanner(in)}
}

func execRepl(ctx context.Context, o *IO, s *session, ed lineEditor, history string) error {
	defer ed.Close()

	if history != "" {
		if err := loadHistory(ed, history); err != nil {
			o.Warn("history not loaded", err)
		}
	}

	in := s.interp()
	defer in.Close()

	for ctx.Err() == nil {
		line, err := ed.Prompt(replPrompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		stmt := strings.TrimSpace(line)
		if stmt == "" {
			continue
		}

		ed.AppendHistory(stmt)

		if stmt == "exit" || stmt == "quit" {
			break
		}

		v, ok, err := in.Eval(stmt)
		if err != nil {
			o.ErrPrintln("error:", err)

			continue
		}

		if ok {
			printResult(o.out, v)
		}
	}

	if history != "" {
		if err := saveHistory(ed, history); err != nil {
			o.Warn("history not saved", err)
		}
	}

	return nil
}

func loadHistory(ed lineEditor, path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return err
	}
	defer f.Close()

	_, err = ed.ReadHistory(f)

	return err
}

// saveHistory replaces the history file atomically while holding
// "<path>.lock", so concurrent sessions never interleave their writes.
func saveHistory(ed lineEditor, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	lock := flock.New(path + ".lock")

	ctx, cancel := context.WithTimeout(context.Background(), historyLockWait)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, historyLockRetry)
	if err != nil {
		return fmt.Errorf("lock %s: %w", lock.Path(), err)
	}

	if !locked {
		return fmt.Errorf("lock %s: held by another session", lock.Path())
	}

	defer func() { _ = lock.Unlock() }()

	var buf bytes.Buffer
	if _, err := ed.WriteHistory(&buf); err != nil {
		return err
	}

	return atomic.WriteFile(path, &buf)
}

// plainEditor reads statements line by line without a terminal. It keeps
// history the way liner does so piped sessions persist it too.
type plainEditor struct {
	sc      *bufio.Scanner
	history []string
}

func (p *plainEditor) Prompt(string) (string, error) {
	if p.sc.Scan() {
		return p.sc.Text(), nil
	}

	if err := p.sc.Err(); err != nil {
		return "", err
	}

	return "", io.EOF
}

func (p *plainEditor) AppendHistory(item string) {
	p.history = append(p.history, item)
	if len(p.history) > historyLimit {
		p.history = p.history[len(p.history)-historyLimit:]
	}
}

func (p *plainEditor) ReadHistory(r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	n := 0

	for sc.Scan() {
		p.AppendHistory(sc.Text())
		n++
	}

	return n, sc.Err()
}

func (p *plainEditor) WriteHistory(w io.Writer) (int, error) {
	n := 0

	for _, item := range p.history {
		if _, err := fmt.Fprintln(w, item); err != nil {
			return n, err
		}

		n++
	}

	return n, nil
}

func (p *plainEditor) Close() error {
	return nil
}
