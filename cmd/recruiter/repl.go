package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/ahmednasr/recruiter-bot/internal/github"
	"github.com/ahmednasr/recruiter-bot/internal/handler"
	"github.com/ahmednasr/recruiter-bot/internal/service"
)

// lineReader yields one user message per call and io.EOF at the end.
type lineReader interface {
	ReadLine() (string, error)
	Writer() io.Writer
	Close() error
}

// newLineReader uses line editing when in is an interactive terminal and a
// plain scanner otherwise (pipes, files, tests).
func newLineReader(in *os.File, out io.Writer) (lineReader, error) {
	fd := in.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return &scanReader{sc: bufio.NewScanner(in), out: out}, nil
	}

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{in, out}, "> ")
	if w, h, err := term.GetSize(int(fd)); err == nil {
		_ = t.SetSize(w, h)
	}
	return &termReader{t: t, fd: int(fd), makeRaw: term.MakeRaw, restore: term.Restore}, nil
}

// termReader keeps the terminal raw only while a line is being edited, so
// Ctrl+C reaches the process as SIGINT while a turn runs.
type termReader struct {
	t       *term.Terminal
	fd      int
	makeRaw func(fd int) (*term.State, error)
	restore func(fd int, state *term.State) error
}

func (r *termReader) ReadLine() (string, error) {
	state, err := r.makeRaw(r.fd)
	if err != nil {
		return "", errors.Wrap(err, "enable line editing")
	}
	defer func() { _ = r.restore(r.fd, state) }()
	return r.t.ReadLine()
}

func (r *termReader) Writer() io.Writer { return r.t }
func (r *termReader) Close() error      { return nil }

type scanReader struct {
	sc  *bufio.Scanner
	out io.Writer
}

func (r *scanReader) ReadLine() (string, error) {
	if r.sc.Scan() {
		return r.sc.Text(), nil
	}
	if err := r.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (r *scanReader) Writer() io.Writer { return r.out }
func (r *scanReader) Close() error      { return nil }

// repl is the terminal chat transport.
type repl struct {
	chat         service.ChatService
	in           lineReader
	out          io.Writer
	conversation string
	plain        bool
	timeout      time.Duration
}

const replHelp = `Ask anything about a GitHub user, e.g. "analyze octocat".
Commands: /reset starts over, /history shows the conversation, /quit exits.`

func (r *repl) run(ctx context.Context) error {
	fmt.Fprintln(r.out, replHelp)
	for {
		line, err := r.in.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(r.out, replHelp)
			continue
		case "/reset", "/start":
			if err := r.chat.Reset(ctx, r.conversation); err != nil {
				fmt.Fprintf(r.out, "error: %v\n", err)
				continue
			}
			fmt.Fprintln(r.out, "Conversation reset.")
			continue
		case "/history":
			r.history(ctx)
			continue
		}

		r.ask(ctx, line)
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (r *repl) ask(ctx context.Context, line string) {
	if h, ok := github.FindHandle(line); ok {
		fmt.Fprintf(r.out, "Investigating github.com/%s ...\n", h)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	ans, err := r.chat.Ask(ctx, r.conversation, "", line)
	if err != nil && ans.Text == "" {
		fmt.Fprintf(r.out, "error: %v\n", err)
		return
	}
	text := ans.Text
	if r.plain {
		text = handler.PlainText(text)
	}
	fmt.Fprintf(r.out, "\n%s\n\n", text)
}

func (r *repl) history(ctx context.Context) {
	entries, err := r.chat.History(ctx, r.conversation)
	if err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
		return
	}
	if len(entries) == 0 {
		fmt.Fprintln(r.out, "(empty)")
	}
	for _, e := range entries {
		fmt.Fprintf(r.out, "[%s] %s\n", e.Role, e.Content)
	}
}
