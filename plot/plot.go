// Package plot draws sampled signals.
package plot

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/guptarohit/asciigraph"
	"golang.org/x/term"
	"gonum.org/v1/gonum/floats"
)

// Plotter displays a signal. t and v have equal length.
type Plotter interface {
	Plot(t, v []float64, title string) error
}

// Linspace returns n evenly spaced samples from lo to hi inclusive.
func Linspace(lo, hi float64, n int) ([]float64, error) {
	if n < 2 {
		return nil, fmt.Errorf("need at least 2 samples, not %d", n)
	}
	if !(lo < hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil, fmt.Errorf("invalid time range [%g, %g]", lo, hi)
	}
	return floats.Span(make([]float64, n), lo, hi), nil
}

// DefaultWidth is the plot width used when the output is not a terminal.
const DefaultWidth = 80

// labelWidth is the width reserved for the amplitude labels left of the plot.
const labelWidth = 10

// ErrMismatch is returned when time and value samples differ in length.
var ErrMismatch = errors.New("plot: time and value lengths differ")

// Text plots signals as line charts drawn with box characters.
type Text struct {
	w io.Writer
	// fd is the terminal that sizes the chart, or -1.
	fd int
	// Width and Height are the size of the chart in characters. Width
	// includes room for the amplitude labels. A zero Width uses the terminal
	// width.
	Width  int
	Height int
}

// NewText creates a text plotter writing to w. If w is a terminal, its width
// is used for charts when width is zero.
func NewText(w io.Writer, width, height int) *Text {
	fd := -1
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &Text{w: w, fd: fd, Width: width, Height: height}
}

// SetOutput changes the writer that receives charts and returns the previous
// one. The terminal used for sizing is unchanged, so a line editor wrapping
// the terminal can take over output.
func (p *Text) SetOutput(w io.Writer) io.Writer {
	old := p.w
	p.w = w
	return old
}

// width returns the chart width in characters.
func (p *Text) width() int {
	if p.Width > 0 {
		return p.Width
	}
	if p.fd >= 0 {
		if w, _, err := term.GetSize(p.fd); err == nil && w > labelWidth+2 {
			return w
		}
	}
	return DefaultWidth
}

// Plot draws v against t with reference lines at zero amplitude and zero
// time. Non-finite samples are skipped.
func (p *Text) Plot(t, v []float64, title string) error {
	if len(t) != len(v) {
		return ErrMismatch
	}
	var b strings.Builder
	b.WriteString(title)
	b.WriteByte('\n')
	var ft, fv []float64
	for i, x := range v {
		if !math.IsNaN(x) && !math.IsInf(x, 0) && !math.IsNaN(t[i]) && !math.IsInf(t[i], 0) {
			ft = append(ft, t[i])
			fv = append(fv, x)
		}
	}
	if len(fv) == 0 {
		b.WriteString("(no finite samples)\n")
		_, err := io.WriteString(p.w, b.String())
		return err
	}

	cols := max(p.width()-labelWidth-2, 10)
	rows := max(p.Height, 3)
	tlo, thi := floats.Min(ft), floats.Max(ft)
	vlo, vhi := floats.Min(fv), floats.Max(fv)
	if vlo == vhi {
		vlo, vhi = vlo-1, vhi+1
	}
	// The signal is drawn last so that it covers the zero line.
	series := [][]float64{fv}
	if vlo <= 0 && 0 <= vhi {
		series = [][]float64{make([]float64, len(fv)), fv}
	}
	chart := asciigraph.PlotMany(series,
		asciigraph.Height(rows-1),
		asciigraph.Width(cols),
		asciigraph.LowerBound(vlo),
		asciigraph.UpperBound(vhi),
		asciigraph.Precision(3),
	)
	lines := strings.Split(strings.TrimRight(chart, "\n"), "\n")
	axis := 0
	for _, line := range lines {
		if k := axisColumn(line); k >= 0 {
			axis = k
			break
		}
	}
	if tlo < 0 && 0 < thi {
		c := axis + 1 + int(math.Round(-tlo/(thi-tlo)*float64(cols-1)))
		for i, line := range lines {
			lines[i] = markColumn(line, c)
		}
	}

	pad := strings.Repeat(" ", axis)
	fmt.Fprintf(&b, "%samplitude\n", pad)
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%s└%s\n", pad, strings.Repeat("─", cols))
	lo, hi := fmt.Sprintf("%.4g", tlo), fmt.Sprintf("%.4g", thi)
	gap := max(cols-len(lo)-len(hi), 3)
	fmt.Fprintf(&b, "%s %s%*s%s%*s%s\n", pad, lo, (gap-1)/2, "", "t", gap-1-(gap-1)/2, "", hi)
	_, err := io.WriteString(p.w, b.String())
	return err
}

// zeroTime marks the zero-time reference line.
const zeroTime = '┊'

// axisColumn returns the rune index of the amplitude axis in a chart line,
// or -1 if the line has none.
func axisColumn(line string) int {
	for i, r := range []rune(line) {
		if r == '┤' || r == '┼' {
			return i
		}
	}
	return -1
}

// markColumn draws the zero-time reference in rune column c of line wherever
// the chart left it blank.
func markColumn(line string, c int) string {
	if axisColumn(line) < 0 {
		return line
	}
	r := []rune(line)
	for len(r) <= c {
		r = append(r, ' ')
	}
	if r[c] == ' ' {
		r[c] = zeroTime
	}
	return string(r)
}
