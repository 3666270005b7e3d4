package signals

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// rect((t±a)/b)
	scaledRect = regexp.MustCompile(`\brect\(\s*\(\s*t\s*([+-])\s*(\d+(?:\.\d+)?)\s*\)\s*/\s*(\d+(?:\.\d+)?)\s*\)`)
	// rect(t±a)
	shiftedRect = regexp.MustCompile(`\brect\(\s*t\s*([+-])\s*(\d+(?:\.\d+)?)\s*\)`)
)

// Normalize rewrites the shifted and scaled forms of the rectangular pulse,
// rect((t±a)/b) and rect(t±a), into the canonical rect((t-center)/width).
// The center is a for t-a and -a for t+a; the width of the unscaled form is 1.
// Each form is rewritten in a single pass, so the result is not normalized
// again. Canonical input is returned unchanged.
func Normalize(expr string) string {
	expr = rewriteRect(expr, scaledRect)
	return rewriteRect(expr, shiftedRect)
}

func rewriteRect(expr string, re *regexp.Regexp) string {
	matches := re.FindAllStringSubmatchIndex(expr, -1)
	if len(matches) == 0 {
		return expr
	}
	// Rewrite from the right so that earlier offsets stay valid.
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		sign, a := expr[m[2]:m[3]], expr[m[4]:m[5]]
		width := "1"
		if len(m) > 6 {
			width = expr[m[6]:m[7]]
		}
		center, err := strconv.ParseFloat(a, 64)
		if err != nil {
			// Only an out of range literal gets here. Leave it for the
			// evaluator to report.
			continue
		}
		if sign == "+" {
			center = -center
		}
		w, err := strconv.ParseFloat(width, 64)
		if err != nil {
			continue
		}
		expr = expr[:m[0]] + canonicalRect(center, w) + expr[m[1]:]
	}
	return expr
}

func canonicalRect(center, width float64) string {
	if center == 0 {
		// Fold -0.
		center = 0
	}
	var b strings.Builder
	b.WriteString("rect((t-")
	b.WriteString(strconv.FormatFloat(center, 'g', -1, 64))
	b.WriteString(")/")
	b.WriteString(strconv.FormatFloat(width, 'g', -1, 64))
	b.WriteString(")")
	return b.String()
}
