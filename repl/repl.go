// Package repl implements the interactive sigplot shell.
package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/zephyrtronium/signals"
	"github.com/zephyrtronium/signals/plot"
)

// Help is the banner printed by the help command.
const Help = `Signal plotter

Statements:
  name(t) = expression      define a function of t
      x(t) = t + 2
  expression                plot over the current time range
      x(t)
      sin(t)
  range tmin tmax [n]       set the time range and number of samples
      range -10 10
  funcs                     list built-in and defined functions
  help                      show this message
  exit, quit                leave

Functions:
  rect(x), u(x), sin(x), cos(x), tan(x), exp(x), log(x), ln(x), sqrt(x), abs(x)
  constants pi and e

Derivatives:
  d(expression)/d(t)
      d(sin(t))/d(t)

Examples:
  x(t) = (t+2)*rect(t+3/2)-t*rect(t+1/2)+t*rect(t-1/2)+u(t-1)
  x(t)
  d(sin(t))/d(t)
  x(-t)
  1/2*(x(t)+x(-t))
  x(2*t+1)
`

// Session is an interactive plotting session. It defines functions in its
// evaluator's registry and plots every other expression it is given.
type Session struct {
	ev   *signals.Evaluator
	plot plot.Plotter
	out  io.Writer

	// TMin, TMax, and Points describe the time axis of plots.
	TMin   float64
	TMax   float64
	Points int
	// Prompt is shown before each line when reading from a terminal.
	Prompt string
	// Log, if not nil, is redirected through the line editor while Run
	// reads from a terminal.
	Log *logrus.Logger
}

// New creates a session that plots through p and writes messages to out.
func New(ev *signals.Evaluator, p plot.Plotter, out io.Writer) *Session {
	return &Session{
		ev:     ev,
		plot:   p,
		out:    out,
		TMin:   -5,
		TMax:   5,
		Points: 1000,
		Prompt: "> ",
	}
}

// DefineFunction defines the function name with the body expr, replacing
// any earlier definition.
func (s *Session) DefineFunction(name, expr string) {
	s.ev.Registry().Define(name, expr)
}

// ParseAndPlot evaluates expr at n samples from tmin to tmax and plots the
// result. If evaluation fails, the evaluator reports the error and nothing
// is plotted. The error is non-nil only if the time axis is invalid or the
// plotter fails.
func (s *Session) ParseAndPlot(expr string, tmin, tmax float64, n int) error {
	if m := definition.FindStringSubmatch(expr); m != nil {
		return s.define(m)
	}
	t, err := plot.Linspace(tmin, tmax, n)
	if err != nil {
		return err
	}
	v := s.ev.Evaluate(expr, t)
	if v == nil {
		return nil
	}
	return s.plot.Plot(t, v, "Plot of "+expr)
}

// definition matches name(var) = body.
var definition = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*\(\s*([A-Za-z])\s*\)\s*=(.*)$`)

func (s *Session) define(m []string) error {
	name, v, body := m[1], m[2], strings.TrimSpace(m[3])
	if body == "" {
		return fmt.Errorf("no expression defines %s", name)
	}
	if v != "t" {
		fmt.Fprintf(s.out, "note: %s is defined in terms of t, not %s\n", name, v)
	}
	for _, b := range s.ev.Funcs() {
		if b == name {
			fmt.Fprintf(s.out, "note: built-in %s takes precedence over this definition\n", name)
			break
		}
	}
	s.DefineFunction(name, body)
	return nil
}

// ErrQuit is returned by Exec for exit and quit.
var ErrQuit = errors.New("quit")

// Exec runs one statement.
func (s *Session) Exec(line string) error {
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "exit", "quit", "exit()", "quit()":
		if len(fields) == 1 {
			return ErrQuit
		}
	case "help", "help()":
		if len(fields) == 1 {
			_, err := io.WriteString(s.out, Help)
			return err
		}
	case "funcs":
		if len(fields) == 1 {
			return s.funcs()
		}
	case "range":
		return s.setRange(fields[1:])
	}
	return s.ParseAndPlot(line, s.TMin, s.TMax, s.Points)
}

func (s *Session) funcs() error {
	w := bufio.NewWriter(s.out)
	fmt.Fprintf(w, "built-in: %s\n", strings.Join(s.ev.Funcs(), " "))
	reg := s.ev.Registry()
	for _, name := range reg.Names() {
		body, err := reg.Lookup(name)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%s(t) = %s\n", name, body)
	}
	return w.Flush()
}

func (s *Session) setRange(args []string) error {
	if len(args) == 0 {
		_, err := fmt.Fprintf(s.out, "range %g %g %d\n", s.TMin, s.TMax, s.Points)
		return err
	}
	if len(args) < 2 || len(args) > 3 {
		return errors.New("usage: range tmin tmax [n]")
	}
	lo, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("bad tmin: %w", err)
	}
	hi, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("bad tmax: %w", err)
	}
	n := s.Points
	if len(args) == 3 {
		n, err = strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("bad sample count: %w", err)
		}
	}
	if _, err := plot.Linspace(lo, hi, n); err != nil {
		return err
	}
	s.TMin, s.TMax, s.Points = lo, hi, n
	return nil
}

var commands = []string{"exit", "funcs", "help", "quit", "range"}

// Complete completes the identifier ending at pos in line with the name of a
// command, built-in function, or defined function. If several names match,
// it completes their common prefix.
func (s *Session) Complete(line string, pos int) (string, int, bool) {
	start := pos
	for start > 0 && isIdentByte(line[start-1]) {
		start--
	}
	prefix := line[start:pos]
	if prefix == "" {
		return "", 0, false
	}
	var match string
	found := false
	names := append(append(append([]string(nil), commands...), s.ev.Funcs()...), s.ev.Registry().Names()...)
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if !found {
			match, found = name, true
			continue
		}
		match = commonPrefix(match, name)
	}
	if !found || match == prefix {
		return "", 0, false
	}
	return line[:start] + match + line[pos:], start + len(match), true
}

func isIdentByte(c byte) bool {
	return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}

func commonPrefix(a, b string) string {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}

// Run reads and executes statements from in until EOF or a quit statement.
// When in is a terminal, lines are edited with history and tab completion.
// Errors from statements are printed and do not stop the session.
func (s *Session) Run(in io.Reader) error {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return s.runTerminal(f)
	}
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if s.exec(sc.Text()) {
			return nil
		}
	}
	return sc.Err()
}

// exec runs one line and reports whether the session should end.
func (s *Session) exec(line string) bool {
	err := s.Exec(line)
	if errors.Is(err, ErrQuit) {
		return true
	}
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
	return false
}

type outputter interface {
	SetOutput(io.Writer) io.Writer
}

func (s *Session) runTerminal(f *os.File) error {
	fd := int(f.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, state)
	screen := struct {
		io.Reader
		io.Writer
	}{f, s.out}
	t := term.NewTerminal(screen, s.Prompt)
	t.AutoCompleteCallback = func(line string, pos int, key rune) (string, int, bool) {
		if key != '\t' {
			return "", 0, false
		}
		return s.Complete(line, pos)
	}
	// Raw mode needs the terminal to translate newlines, so everything that
	// prints goes through it while reading.
	out := s.out
	s.out = t
	defer func() { s.out = out }()
	if o, ok := s.plot.(outputter); ok {
		prev := o.SetOutput(t)
		defer o.SetOutput(prev)
	}
	if s.Log != nil {
		prev := s.Log.Out
		s.Log.SetOutput(t)
		defer s.Log.SetOutput(prev)
	}
	for {
		line, err := t.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if s.exec(line) {
			return nil
		}
	}
}
