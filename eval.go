package signals

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// DefaultPrec is the precision of float64. At this precision or below, all
// functions use float64 math.
const DefaultPrec = 53

// DefaultMaxDepth is the default limit on nested user function calls and
// derivatives.
const DefaultMaxDepth = 64

// Evaluator evaluates expressions over sampled time axes, resolving calls to
// user functions through a Registry. An Evaluator is safe for concurrent use
// as long as its Registry is.
type Evaluator struct {
	reg      *Registry
	funcs    map[string]Func
	log      logrus.FieldLogger
	prec     uint
	maxDepth int
}

// Option is an option used when creating an Evaluator.
type Option interface {
	evalOption()
}

type (
	precopt  uint
	depthopt int
	logopt   struct{ log logrus.FieldLogger }
	funcopt  struct {
		name string
		fn   Func
	}
)

func (precopt) evalOption()  {}
func (depthopt) evalOption() {}
func (logopt) evalOption()   {}
func (funcopt) evalOption()  {}

// Prec sets the precision in bits of exp, log, ln, and ^. Precisions above
// DefaultPrec compute those with arbitrary-precision floats before rounding
// each sample to float64.
func Prec(prec uint) Option {
	return precopt(prec)
}

// MaxDepth sets the limit on nested user function calls and derivatives.
// Exceeding it fails the evaluation with a *RecursionLimitError.
func MaxDepth(depth int) Option {
	return depthopt(depth)
}

// Logger sets the logger used to report evaluation errors and trace
// evaluation. The default is the standard logrus logger.
func Logger(log logrus.FieldLogger) Option {
	return logopt{log}
}

// WithFunc adds a built-in function. To disable a default function, pass nil
// for fn; its name then refers to a user function.
func WithFunc(name string, fn Func) Option {
	return funcopt{name, fn}
}

// NewEvaluator creates an evaluator that resolves user functions through reg.
// If reg is nil, the evaluator gets a registry of its own.
func NewEvaluator(reg *Registry, opts ...Option) *Evaluator {
	ev := Evaluator{
		reg:      reg,
		funcs:    globalfuncs,
		log:      logrus.StandardLogger(),
		prec:     DefaultPrec,
		maxDepth: DefaultMaxDepth,
	}
	copied := false
	for _, opt := range opts {
		switch opt := opt.(type) {
		case nil:
			continue
		case precopt:
			ev.prec = uint(opt)
		case depthopt:
			ev.maxDepth = int(opt)
		case logopt:
			ev.log = opt.log
		case funcopt:
			if !copied {
				m := make(map[string]Func, len(ev.funcs)+1)
				for k, v := range ev.funcs {
					m[k] = v
				}
				ev.funcs = m
				copied = true
			}
			if opt.fn == nil {
				delete(ev.funcs, opt.name)
			} else {
				ev.funcs[opt.name] = opt.fn
			}
		default:
			panic("signals: unknown option type")
		}
	}
	if ev.reg == nil {
		ev.reg = NewRegistry(ev.log)
	}
	return &ev
}

// Registry returns the registry through which ev resolves user functions.
func (ev *Evaluator) Registry() *Registry {
	return ev.reg
}

// Funcs returns the names of ev's built-in functions and constants.
func (ev *Evaluator) Funcs() []string {
	return setnames(boolset(ev.funcs))
}

// Eval evaluates expr at each sample of the time axis t and returns one value
// per sample. Derivatives d(expr)/d(t) are computed numerically over t, and
// calls to user functions evaluate the function body over the transformed
// axis given as the call's argument.
func (ev *Evaluator) Eval(expr string, t []float64) ([]float64, error) {
	if len(t) == 0 {
		return nil, &MalformedAxisError{}
	}
	ctx := Context{
		ev:   ev,
		vars: make(map[string][]float64),
		seq:  new(int),
	}
	return ctx.eval(expr, t)
}

// Evaluate is like Eval, but it reports any error through the evaluator's
// logger and returns nil instead. Callers that plot the result should draw
// nothing for a nil result.
func (ev *Evaluator) Evaluate(expr string, t []float64) []float64 {
	v, err := ev.Eval(expr, t)
	if err != nil {
		ev.log.WithField("expr", expr).Errorf("Error evaluating expression: %v", err)
		return nil
	}
	return v
}

// Context is the state of a single evaluation. It holds the derivative
// placeholders created while evaluating and is passed to every Func. Each
// call to Eval creates its own Context.
type Context struct {
	ev *Evaluator
	// vars holds active derivative placeholders, shared by every nested
	// evaluation of the same Eval call.
	vars map[string][]float64
	// seq numbers placeholders uniquely within the Eval call.
	seq   *int
	depth int
}

// Prec returns the precision in bits to which functions should compute.
func (ctx *Context) Prec() uint {
	return ctx.ev.prec
}

// Depth returns the nesting depth of user function calls and derivatives at
// which the context is evaluating.
func (ctx *Context) Depth() int {
	return ctx.depth
}

func (ctx *Context) child() *Context {
	c := *ctx
	c.depth++
	return &c
}

// placeholder creates a new identifier for a derivative result.
func (ctx *Context) placeholder() string {
	k := *ctx.seq
	*ctx.seq++
	return "__deriv" + strconv.Itoa(k)
}

func (ctx *Context) eval(expr string, t []float64) (v []float64, err error) {
	defer func() {
		// Parser and Func invariants panic. Keep them from escaping Evaluate.
		if r := recover(); r != nil {
			v, err = nil, &EvaluationError{Expr: expr, Err: fmt.Errorf("internal error: %v", r)}
		}
	}()
	if ctx.depth > ctx.ev.maxDepth {
		return nil, &RecursionLimitError{Expr: expr, Depth: ctx.ev.maxDepth}
	}
	text, made, err := ctx.resolveDerivatives(expr, t)
	defer func() {
		for _, k := range made {
			delete(ctx.vars, k)
		}
	}()
	if err != nil {
		return nil, err
	}
	text = Normalize(text)
	e, err := parse(text, ctx.ev.funcs)
	if err != nil {
		return nil, &EvaluationError{Expr: text, Err: err}
	}
	v, err = e.n.eval(ctx, t)
	if err != nil {
		if _, ok := err.(*NameError); ok {
			return nil, &EvaluationError{Expr: text, Err: err}
		}
		return nil, err
	}
	return v, nil
}

// resolveDerivatives replaces each d(inner)/d(t) in expr with a placeholder
// bound to the numerical derivative of inner over t. The returned names are
// the placeholders created, which the caller must release even on error.
func (ctx *Context) resolveDerivatives(expr string, t []float64) (string, []string, error) {
	var (
		b    strings.Builder
		made []string
		last int
	)
	for {
		d, ok := findDerivative(expr, last)
		if !ok {
			break
		}
		inner := expr[d.inner:d.close]
		v, err := ctx.child().eval(inner, t)
		if err != nil {
			return "", made, err
		}
		dv, err := Gradient(v, t)
		if err != nil {
			return "", made, err
		}
		k := ctx.placeholder()
		ctx.vars[k] = dv
		made = append(made, k)
		ctx.ev.log.WithFields(logrus.Fields{"inner": inner, "placeholder": k}).Debug("resolved derivative")
		b.WriteString(expr[last:d.start])
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte(' ')
		last = d.end
	}
	if made == nil {
		return expr, nil, nil
	}
	b.WriteString(expr[last:])
	return b.String(), made, nil
}

// call evaluates the user function name over t transformed by arg.
func (ctx *Context) call(name, arg string, t []float64) ([]float64, error) {
	body, err := ctx.ev.reg.Lookup(name)
	if err != nil {
		return nil, err
	}
	tt, err := TransformTime(arg, t)
	if err != nil {
		return nil, err
	}
	ctx.ev.log.WithFields(logrus.Fields{"function": name, "arg": arg, "depth": ctx.depth + 1}).Debug("calling user function")
	return ctx.child().eval(body, tt)
}

// derivSuffix matches the /d(t) that closes derivative notation.
var derivSuffix = regexp.MustCompile(`^\s*/\s*d\s*\(\s*t\s*\)`)

// derivative locates d(inner)/d(t) in an expression. Fields are byte offsets:
// start of the d, start of inner, the close bracket ending inner, and the end
// of the whole notation.
type derivative struct {
	start, inner, close, end int
}

// findDerivative finds the first derivative notation at or after from. The d
// must begin an identifier, and inner extends to the bracket that balances
// the one after d.
func findDerivative(s string, from int) (derivative, bool) {
	for i := from; i < len(s); i++ {
		k := strings.Index(s[i:], "d(")
		if k < 0 {
			break
		}
		i += k
		if i > 0 {
			if r, _ := utf8.DecodeLastRuneInString(s[:i]); isIdentRune(r) {
				continue
			}
		}
		end := matchParen(s, i+1)
		if end < 0 {
			continue
		}
		loc := derivSuffix.FindStringIndex(s[end+1:])
		if loc == nil {
			continue
		}
		return derivative{start: i, inner: i + 2, close: end, end: end + 1 + loc[1]}, true
	}
	return derivative{}, false
}

// matchParen returns the index of the ) balancing the ( at s[open], or -1.
func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// eval computes the node's value at each sample of t. The result is always a
// new slice of len(t) that the caller may modify.
func (n *node) eval(ctx *Context, t []float64) ([]float64, error) {
	switch n.kind {
	case nodeNum:
		x := num(n.name)
		r := make([]float64, len(t))
		for i := range r {
			r[i] = x
		}
		return r, nil
	case nodeName:
		if n.name == "t" {
			return append([]float64(nil), t...), nil
		}
		if v, ok := ctx.vars[n.name]; ok {
			return append([]float64(nil), v...), nil
		}
		return nil, &NameError{Name: n.name}
	case nodeCall:
		var invoc [][]float64
		for l := n.right; l != nil; l = l.right {
			v, err := l.left.eval(ctx, t)
			if err != nil {
				return nil, err
			}
			invoc = append(invoc, v)
		}
		r := make([]float64, len(t))
		if err := n.fn.Call(ctx, invoc, r); err != nil {
			return nil, err
		}
		return r, nil
	case nodeUser:
		return ctx.call(n.name, n.text, t)
	case nodeArg:
		panic("signals: eval on nodeArg")
	case nodeNeg:
		v, err := n.left.eval(ctx, t)
		if err != nil {
			return nil, err
		}
		floats.Scale(-1, v)
		return v, nil
	case nodeAdd, nodeSub, nodeMul, nodeDiv, nodePow:
		l, err := n.left.eval(ctx, t)
		if err != nil {
			return nil, err
		}
		r, err := n.right.eval(ctx, t)
		if err != nil {
			return nil, err
		}
		switch n.kind {
		case nodeAdd:
			floats.Add(l, r)
		case nodeSub:
			floats.Sub(l, r)
		case nodeMul:
			floats.Mul(l, r)
		case nodeDiv:
			floats.Div(l, r)
		case nodePow:
			pow(ctx, l, r, l)
		}
		return l, nil
	case nodeNop:
		return n.left.eval(ctx, t)
	default:
		panic("signals: invalid AST node " + n.kind.String())
	}
}

// num parses a number token. Literals too large for float64 are infinite.
func num(s string) float64 {
	x, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		panic("signals: invalid number: " + s + " (" + err.Error() + ")")
	}
	return x
}

// NameError is an error from a lookup for a variable that is neither t nor a
// derivative being resolved.
type NameError struct {
	// Name is the name that was missing.
	Name string
}

func (err *NameError) Error() string {
	return "undefined variable: " + strconv.Quote(err.Name)
}
