package signals

import (
	"fmt"
	"reflect"
	"regexp"
	"testing"
)

// diff finds the first in-order node of n that differs from m, or nil, nil if
// the two ASTs are equal. If any node is nodeNone, it is returned.
func (n *node) diff(m *node) (*node, *node) {
	if n == nil {
		if m != nil {
			return n, m
		}
		return nil, nil
	}
	if m == nil {
		return n, m
	}
	if n.kind == nodeNone || m.kind == nodeNone {
		return n, m
	}
	if n.kind != m.kind {
		return n, m
	}
	switch n.kind {
	case nodeNum, nodeName:
		if n.name != m.name {
			return n, m
		}
	case nodeCall:
		if n.name != m.name {
			return n, m
		}
		if d, e := n.right.diff(m.right); d != nil || e != nil {
			return d, e
		}
	case nodeUser:
		if n.name != m.name || n.text != m.text {
			return n, m
		}
	case nodeArg, nodeNeg, nodeAdd, nodeSub, nodeMul, nodeDiv, nodePow:
		if d, e := n.left.diff(m.left); d != nil || e != nil {
			return d, e
		}
		if d, e := n.right.diff(m.right); d != nil || e != nil {
			return d, e
		}
	case nodeNop:
		if d, e := n.left.diff(m.left); d != nil || e != nil {
			return d, e
		}
	default:
		panic(fmt.Errorf("invalid node kind: n=%+v m=%+v", n, m))
	}
	return nil, nil
}

// find returns the first node of the given kind in a pre-order walk.
func (n *node) find(k nodeKind) *node {
	if n == nil {
		return nil
	}
	if n.kind == k {
		return n
	}
	if l := n.left.find(k); l != nil {
		return l
	}
	return n.right.find(k)
}

type mockfn struct {
	can []int
}

func mockFunc(n ...int) Func {
	return mockfn{can: n}
}

func (f mockfn) Call(ctx *Context, invoc [][]float64, r []float64) error {
	return nil
}

func (f mockfn) CanCall(n int) bool {
	for _, v := range f.can {
		if v == n {
			return true
		}
	}
	return false
}

var testfns = map[string]Func{
	"zero":    mockFunc(0),
	"one":     mockFunc(1),
	"zeroone": mockFunc(0, 1),
	"five":    mockFunc(5),
}

func TestOpPrecsExist(t *testing.T) {
	for _, r := range Operators {
		b := binop(string(r))
		u := unop(string(r))
		if b.op == nodeNone && u.op == nodeNone {
			t.Errorf("no operator for %c", r)
		}
	}
}

func TestTermPrecMatchesMultiplication(t *testing.T) {
	if p := binop("*").prec; p != termprec.prec {
		t.Errorf("terms have prec %d but * has prec %d", termprec.prec, p)
	}
}

func TestParseTrees(t *testing.T) {
	cases := []struct {
		name string
		a, b string
	}{
		{"paren", "(x)", "x"},
		{"multi", "((((x))))", "x"},

		{"plus", "+x", "(+(x))"},
		{"neg", "-x", "(-(x))"},
		{"negnum", "-1", "(-(1))"},
		{"add", "x+y", "((x)+(y))"},
		{"sub", "x-y", "((x)-(y))"},
		{"mul", "x*y", "((x)*(y))"},
		{"div", "x/y", "((x)/(y))"},
		{"pow", "x^y", "((x)^(y))"},
		{"terms", "x y", "x*y"},
		{"tparen", "t(y)", "t*y"},
		{"numparen", "2(y)", "2*y"},
		{"numname", "2t", "2*t"},
		{"numcall", "2one(x)", "2*one(x)"},
		{"numgroup", "2(t+1)", "2*(t+1)"},
		{"tgroup", "t(t+1)", "t*(t+1)"},
		{"groupgroup", "(t+1)(t-1)", "(t+1)*(t-1)"},
		{"groupgroups", "(w+x)(y-z)(a*b)", "(w+x)*((y-z)*(a*b))"},
		{"grouppow", "2(t+1)^2", "2*((t+1)^2)"},
		{"callgroup", "one(x)(y+z)", "one(x)*(y+z)"},
		{"groupadd", "2(t+1)+3", "(2*(t+1))+3"},

		{"call0", "zero()", "zero"},
		{"call0-terms", "zero x", "zero()*x"},
		{"call0-paren", "zero(x)", "zero()*x"},
		{"call0-up", "zero^t(y)", "((zero())^t)*y"},
		{"call0-callup", "zero^zero(x)^y", "(zero^zero)*(x^y)"},
		{"call0-callup-add", "zero^zero(x)+y", "((zero^zero)*x)+y"},
		{"call0-neg", "-zero(x)", "(-zero)*x"},
		{"call0-paren-pow", "zero(x)^2", "zero*(x^2)"},
		{"call0-paren-sum", "zero(x+y)", "zero*(x+y)"},
		{"call1-bare", "one x", "one(x)"},
		{"call1-terms", "one a b c * d", "one(a b c) * d"},
		{"call1-plus", "one + x", "one(+x)"},
		{"call1-add", "one x + y", "one(x) + y"},
		{"call1-exp", "one x^y", "one(x^y)"},
		{"call1-up", "one ^ x ^ y z", "(one(z))^(x^y)"},
		{"call1-call0up", "one^zero(x)", "(one(x))^zero"},
		{"call1-call0up-more", "one^zero(x)^y", "((one(x))^zero)^y"},
		{"call5", "five(a, b, c, d, e)", "five(a, b, c, d, e)"},

		{"add4", "w+x+y+z", "((w+x)+y)+z"},
		{"sub4", "w-x-y-z", "((w-x)-y)-z"},
		{"mul4", "w*x*y*z", "((w*x)*y)*z"},
		{"div4", "w/x/y/z", "((w/x)/y)/z"},
		{"pow4", "w^x^y^z", "w^(x^(y^z))"},
		{"terms4", "w x y z", "w*(x*(y*z))"},

		{"negpow", "-1^n", "-(1^n)"},
		{"desc", "w^x*y+z", "((w^x)*y)+z"},
		{"asc", "w+x*y^z", "w+(x*(y^z))"},
		{"descasc", "w^x*y+z+a*b^c", "(((w^x)*y)+z)+a*(b^c)"},
		{"ascdesc", "w+x*y^z^a*b+c", "w+((x*(y^(z^a)))*b)+c"},
		{"negneg", "--x", "-(-x)"},
		{"negsub", "-x-x", "(-x)-x"},
		{"powparen", "x^t(z)", "(x^t)*z"},
		{"powneg", "x^-1", "x^(-1)"},
		{"powterms", "x y^z", "x*(y^z)"},
		{"pownegpow", "x^-y^-z", "x^(-(y^(-z)))"},
		{"pownegneg", "x^--y", "x^(-(-y))"},
		{"callpowneg", "one^-t(y)", "(one(y))^(-t)"},

		{"call0-mul", "zero(x)*y", "(zero*x)*y"},
		{"call0-add", "zero(x)+y", "zero*x+y"},
		{"call0-powcall0", "zero(y^zero(x))", "zero*((y^zero)*x)"},

		{"user-spaces", "x( 2*t+1 )", "x(2*t+1)"},
		{"user-mul", "2 x(t)", "2*x(t)"},
		{"user-pow", "x(t)^2", "(x(t))^2"},
		{"user-nested", "x(y(t))+1", "(x(y(t)))+1"},
		{"user-group", "x(t)(t-1)", "x(t)*(t-1)"},
		{"user-powarg", "x^y(z)", "x^(y(z))"},
		{"user-call1", "one x(t)", "one(x(t))"},
		{"user-sub", "x(t)-x(-t)", "(x(t))-(x(-t))"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a, err := parse(c.a, testfns)
			if err != nil {
				t.Fatalf("failed to parse %q: %v", c.a, err)
			}
			b, err := parse(c.b, testfns)
			if err != nil {
				t.Fatalf("failed to parse %q: %v", c.b, err)
			}
			d, e := a.n.diff(b.n)
			if d != nil || e != nil {
				t.Errorf("mismatched AST:\n\t%q parses %v has %v\n\t%q parses %v has %v", c.a, a.n, d, c.b, b.n, e)
			}
		})
	}
}

func TestParseUserCalls(t *testing.T) {
	cases := []struct {
		name string
		src  string
		fn   string
		text string
	}{
		{"plain", "x(t)", "x", "t"},
		{"reflect", "x(-t)", "x", "-t"},
		{"affine", "x(2*t+1)", "x", "2*t+1"},
		{"spaces", "x(  2 * t + 1  )", "x", "2 * t + 1"},
		{"parens", "x((t+1)/2)", "x", "(t+1)/2"},
		{"nested", "x(y(t))", "x", "y(t)"},
		{"scaled", "3 sig(t-1)", "sig", "t-1"},
		{"builtin-arg", "x(sin(t))", "x", "sin(t)"},
		{"after-builtin", "sin(t) * x(t/2)", "x", "t/2"},
		{"unicode", "π(t)*2", "π", "t"},
		{"long", "signal_2(t-0.5)", "signal_2", "t-0.5"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e, err := Parse(c.src)
			if err != nil {
				t.Fatalf("failed to parse %q: %v", c.src, err)
			}
			n := e.n.find(nodeUser)
			if n == nil {
				t.Fatalf("%q has no user call in %v", c.src, e.n)
			}
			if n.name != c.fn || n.text != c.text {
				t.Errorf("%q: want call %s with %q, got %s with %q", c.src, c.fn, c.text, n.name, n.text)
			}
		})
	}
}

func TestParseBuiltins(t *testing.T) {
	cases := []struct {
		name string
		a, b string
	}{
		{"bare", "sin t", "sin(t)"},
		{"power", "cos^2 t", "(cos(t))^2"},
		{"const", "pi t", "pi*t"},
		{"const-paren", "pi(t)", "pi*t"},
		{"rect", "rect((t-2)/1)", "rect ((t-2)/1)"},
		{"step", "u(t-1)", "u (t-1)"},
		{"step-group", "u(t)(t-1)", "(u(t))*(t-1)"},
		{"scaled", "2sin(t)", "2*sin(t)"},
		{"const-e", "2e", "2*e"},
		{"const-paren-pow", "pi(t)^2", "pi*(t^2)"},
		{"power-const", "cos^pi(t)", "(cos(t))^pi"},
		{"const-power-const", "pi^pi(t)^2", "(pi^pi)*(t^2)"},
		{"nested", "exp(ln(abs(t)))", "exp ln abs t"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a, err := Parse(c.a)
			if err != nil {
				t.Fatalf("failed to parse %q: %v", c.a, err)
			}
			b, err := Parse(c.b)
			if err != nil {
				t.Fatalf("failed to parse %q: %v", c.b, err)
			}
			if a.n.haskind(nodeUser) {
				t.Errorf("%q parsed a user call: %v", c.a, a.n)
			}
			d, e := a.n.diff(b.n)
			if d != nil || e != nil {
				t.Errorf("mismatched AST:\n\t%q parses %v has %v\n\t%q parses %v has %v", c.a, a.n, d, c.b, b.n, e)
			}
		})
	}
}

// haskind checks whether a parse tree contains a node of the given type.
func (n *node) haskind(k nodeKind) bool {
	return n.find(k) != nil
}

func TestExprString(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"paren", "(x)"},
		{"multi", "((((x))))"},

		{"plus", "+x"},
		{"neg", "-x"},
		{"negnum", "-1"},
		{"add", "x+y"},
		{"sub", "x-y"},
		{"mul", "x*y"},
		{"div", "x/y"},
		{"pow", "x^y"},
		{"terms", "x y"},
		{"tparen", "t(y)"},

		{"call0", "zero()"},
		{"call0-terms", "zero x"},
		{"call1-bare", "one x"},
		{"call1-terms", "one a b c * d"},
		{"call1-plus", "one + x"},
		{"call1-add", "one x + y"},
		{"call1-exp", "one x^y"},
		{"call5", "five(a, b, c, d, e)"},

		{"add4", "w+x+y+z"},
		{"pow4", "w^x^y^z"},
		{"terms4", "w x y z"},
		{"descasc", "w^x*y+z+a*b^c"},
		{"ascdesc", "w+x*y^z^a*b+c"},
		{"pownegpow", "x^-y^-z"},

		{"user", "x(2*t + 1)"},
		{"user-nested", "x(y(t)) - y(-t)"},
		{"user-arg", "one x(t/2)"},

		{"tparenplus", "t(y+z)"},
		{"groups", "2(t+1)(t-1)"},
		{"call0-neg", "-zero(x)"},
		{"doubleexp", "zero^zero(0)^0"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a, err := parse(c.src, testfns)
			if err != nil {
				t.Fatalf("%q failed to parse: %v", c.src, err)
			}
			s := a.String()
			b, err := parse(s, testfns)
			if err != nil {
				t.Fatalf("%q -> %q failed to parse: %v", c.src, s, err)
			}
			d, e := a.n.diff(b.n)
			if d != nil || e != nil {
				t.Errorf("mismatched AST:\n\t%q parses %v has %v\n\t%q parses %v has %v", c.src, a.n, d, s, b.n, e)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		err  InputError
		res  []string
		excl []string
	}{
		{"empty", "", new(EmptyExpressionError), []string{`(?i)\b(no|empty)\b.*\bexpression\b`}, []string{`(?i)\bend\b`}},
		{"emptyparen", "()", new(EmptyExpressionError), []string{`(?i)\b(no|empty)\b.*\bexpression\b`, `\)`}, nil},
		{"emptyoperand", "x*", new(EmptyExpressionError), []string{`(?i)\b(no|empty)\b.*\bexpression\b`, `(?i)\bend\b`}, nil},
		{"emptyunary", "x*-", new(EmptyExpressionError), []string{`(?i)\b(no|empty)\b.*\bexpression\b`, `(?i)\bend\b`}, nil},
		{"left", "(x", new(BracketError), []string{`(?i)\bbracket\b`, `\(`}, nil},
		{"right", "x)", new(BracketError), []string{`(?i)\bbracket\b`, `\)`}, nil},
		{"square", "[x]", new(LexError), []string{`\[`}, nil},
		{"group-eof", "2(t+1", new(BracketError), []string{`(?i)\bbracket\b`, `\(`}, nil},
		{"group-empty", "2(t*", new(EmptyExpressionError), []string{`(?i)\b(no|empty)\b.*\bexpression\b`, `(?i)\bend\b`}, nil},
		{"group-close", "2(t))", new(BracketError), []string{`(?i)\bbracket\b`, `\)`}, nil},
		{"nonunary", "*x", new(OperatorError), []string{`(?i)\bunary\b`, `(?i)\bop`, `\*`}, nil},
		{"sep", "x, y", new(SeparatorError), []string{`","`}, nil},
		{"sepbrackets", "(x, y)", new(SeparatorError), []string{`","`}, nil},
		{"call1-0", "one()", new(CallError), []string{`(?i)\bcall\b`, `\bone\b`, `\b((?i)0|zero)\b`}, nil},
		{"call1-eof", "one", new(CallError), []string{`(?i)\bcall\b`, `\bone\b`, `\b((?i)0|zero)\b`}, nil},
		{"call1-pareneof", "one(", new(BracketError), []string{`(?i)\bbracket\b`, `\(`}, nil},
		{"call1-2", "one(x, y)", new(CallError), []string{`(?i)\bcall\b`, `\bone\b`, `\b2\b`}, nil},
		{"call1-empty", "one(, x)", new(SeparatorError), []string{`","`}, nil},
		{"call1-empty2", "one(x,)", new(EmptyExpressionError), []string{`(?i)\b(no|empty)\b.*\bexpression\b`, `\)`}, nil},
		{"call5-4", "five(a, b, c, d)", new(CallError), []string{`(?i)\bcall\b`, `\bfive\b`, `\b4\b`}, nil},
		{"call5-bare", "five x", new(CallError), []string{`(?i)\bcall\b`, `\bfive\b`, `\b((?i)1|one)\b`}, nil},
		{"call5-empty", "five(a,,,,b)", new(SeparatorError), []string{`","`}, nil},
		{"call5-call0up", "five^zero(x)", new(CallError), []string{`(?i)\bcall\b`, `\bfive\b`}, nil},
		{"lexer", "2^one(-$)", new(LexError), []string{`\$`}, nil},
		{"lexer-number", "1.2.3", new(LexError), []string{`(?i)\bnumber\b`}, nil},

		{"user-0", "x()", new(CallError), []string{`(?i)\bcall\b`, `\bx\b`, `\b0\b`}, nil},
		{"user-2", "x(t, 1)", new(CallError), []string{`(?i)\bcall\b`, `\bx\b`, `\b2\b`}, nil},
		{"user-eof", "x(t", new(BracketError), []string{`(?i)\bbracket\b`, `\(`}, nil},

		{"op-paren", "(b*)", new(EmptyExpressionError), []string{`\)`}, nil},
		{"haskell", "(+)", new(EmptyExpressionError), []string{`\)`}, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a, err := parse(c.src, testfns)
			if a != nil {
				t.Errorf("%q parsed non-nil to %v", c.src, a.n)
			}
			if reflect.TypeOf(err) != reflect.TypeOf(c.err) {
				t.Errorf("wrong error type from %q: want %T, got %T", c.src, c.err, err)
			}
			if err == nil {
				return
			}
			msg := err.Error()
			for _, re := range c.res {
				if !regexp.MustCompile(re).MatchString(msg) {
					t.Errorf("error message %q does not match %s", msg, re)
				}
			}
			for _, re := range c.excl {
				if regexp.MustCompile(re).MatchString(msg) {
					t.Errorf("error message %q matches %s", msg, re)
				}
			}
		})
	}
}

func TestExprNames(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		vars  []string
		calls []string
	}{
		{"none", "1+2", nil, nil},
		{"time", "sin(t)*t", []string{"t"}, nil},
		{"placeholder", "__deriv0 * t", []string{"__deriv0", "t"}, nil},
		{"calls", "y(2*t) + x(t) + x(-t)", []string{"t"}, []string{"x", "y"}},
		{"nested", "x(y(t))", []string{"t"}, []string{"x", "y"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e, err := Parse(c.src)
			if err != nil {
				t.Fatalf("failed to parse %q: %v", c.src, err)
			}
			if got := e.Vars(); !reflect.DeepEqual(got, c.vars) {
				t.Errorf("wrong vars: want %q, got %q", c.vars, got)
			}
			if got := e.Calls(); !reflect.DeepEqual(got, c.calls) {
				t.Errorf("wrong calls: want %q, got %q", c.calls, got)
			}
		})
	}
}

func BenchmarkParse(b *testing.B) {
	cases := []struct {
		name string
		src  string
	}{
		{"descasc", "w^x*y+z+a*b^c"},
		{"descasc-parens", "(((w^x)*y)+z)+a*(b^c)"},
		{"descasc-nums", "1^1.1*1.1e1+1.1e-1+.1*inf^∞"},
		{"call0", "zero()"},
		{"call1-bare", "one x"},
		{"call5", "five(a, b, c, d, e)"},
		{"user", "x(2*t+1) - x(-t)"},
	}
	for _, c := range cases {
		b.Run(c.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				parse(c.src, testfns)
			}
		})
	}
}
