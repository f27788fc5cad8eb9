package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Alia5/padbridge/device/switchpad"
	"github.com/Alia5/padbridge/internal/log"
	"golang.org/x/term"
)

const consoleHelp = `commands:
  press <inputs...>         press and release, e.g. press A DPAD_R
  hold <duration> <inputs>  press for a duration, e.g. hold 1s ZL
  set <inputs...>           press and keep holding until neutral
  stick <l|r> <x> <y>       move a stick (0-255, 128 is centered)
  neutral                   release everything
  text <words...>           show text on the display
  help                      show this help
  quit                      leave the console
`

// ConsoleCmd opens a session and reads commands from the terminal.
type ConsoleCmd struct {
	Link   Link   `embed:""`
	Prompt string `help:"Prompt shown on interactive terminals" default:"pad> "`
}

func (c *ConsoleCmd) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := c.Link.connect(ctx, logger, rawLogger)
	if err != nil {
		return err
	}
	defer closeSession(s, logger)
	defer func() {
		if err := s.Send(switchpad.Neutral()); err != nil {
			logger.Warn("Failed to release inputs", "error", err)
		}
	}()

	con := &console{pad: s, hold: s.Config().PressDuration}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		con.out = os.Stdout
		return con.run(newScannerLines(os.Stdin))
	}

	old, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to switch terminal to raw mode: %w", err)
	}
	defer func() { _ = term.Restore(fd, old) }()

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, c.Prompt)
	con.out = t
	_, _ = fmt.Fprintln(t, "Bridge ready. Type help for commands.")
	return con.run(t)
}

// pad is the part of a bridge session the console drives.
type pad interface {
	Send(state switchpad.InputState) error
	Hold(state switchpad.InputState, d time.Duration) error
	WriteDisplay(text string) error
}

type lineReader interface {
	ReadLine() (string, error)
}

type scannerLines struct {
	sc *bufio.Scanner
}

func newScannerLines(r io.Reader) *scannerLines {
	return &scannerLines{sc: bufio.NewScanner(r)}
}

func (s *scannerLines) ReadLine() (string, error) {
	if s.sc.Scan() {
		return s.sc.Text(), nil
	}
	if err := s.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

type console struct {
	pad  pad
	out  io.Writer
	hold time.Duration
}

// run executes lines until quit or end of input. Command errors are printed
// and do not end the console.
func (c *console) run(r lineReader) error {
	for {
		line, err := r.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		quit, err := c.exec(line)
		if err != nil {
			_, _ = fmt.Fprintf(c.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func (c *console) exec(line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	name, rest, _ := strings.Cut(line, " ")
	args := strings.Fields(rest)

	switch strings.ToLower(name) {
	case "":
		return false, nil
	case "quit", "exit":
		return true, nil
	case "help", "?":
		_, _ = fmt.Fprint(c.out, consoleHelp)
		return false, nil
	case "neutral", "release":
		return false, c.pad.Send(switchpad.Neutral())
	case "press":
		state, err := parseState(args)
		if err != nil {
			return false, err
		}
		_, _ = fmt.Fprintln(c.out, state.String())
		return false, c.pad.Hold(state, c.hold)
	case "hold":
		if len(args) < 2 {
			return false, errors.New("usage: hold <duration> <inputs...>")
		}
		d, err := time.ParseDuration(args[0])
		if err != nil {
			return false, err
		}
		state, err := parseState(args[1:])
		if err != nil {
			return false, err
		}
		_, _ = fmt.Fprintln(c.out, state.String())
		return false, c.pad.Hold(state, d)
	case "set":
		state, err := parseState(args)
		if err != nil {
			return false, err
		}
		return false, c.pad.Send(state)
	case "stick":
		state, err := parseStick(args)
		if err != nil {
			return false, err
		}
		return false, c.pad.Send(state)
	case "text":
		return false, c.pad.WriteDisplay(strings.TrimLeft(rest, " "))
	default:
		return false, fmt.Errorf("unknown command %q, try help", name)
	}
}

func parseState(names []string) (switchpad.InputState, error) {
	if len(names) == 0 {
		return switchpad.InputState{}, errors.New("no inputs given")
	}
	inputs, err := switchpad.ParseInputs(names...)
	if err != nil {
		return switchpad.InputState{}, err
	}
	return switchpad.NewInputState(inputs...), nil
}

func parseStick(args []string) (switchpad.InputState, error) {
	if len(args) != 3 {
		return switchpad.InputState{}, errors.New("usage: stick <l|r> <x> <y>")
	}
	x, err := strconv.ParseUint(args[1], 10, 8)
	if err != nil {
		return switchpad.InputState{}, fmt.Errorf("stick x: %w", err)
	}
	y, err := strconv.ParseUint(args[2], 10, 8)
	if err != nil {
		return switchpad.InputState{}, fmt.Errorf("stick y: %w", err)
	}
	s := switchpad.Neutral()
	switch strings.ToLower(args[0]) {
	case "l":
		s.LX, s.LY = uint8(x), uint8(y)
	case "r":
		s.RX, s.RY = uint8(x), uint8(y)
	default:
		return switchpad.InputState{}, fmt.Errorf("unknown stick %q", args[0])
	}
	return s, nil
}
