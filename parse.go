package signals

import (
	"strings"
)

// Expr = num | name | Call | User | Neg | Plus | Add | Sub | Mul | Div | Pow | '(' Expr ')'
// Call = funcname | funcname Expr | funcname ArgList
// User = name '(' Expr ')'
// ArgList = '(' Expr { ',' Expr } ')'
// Neg = '-' Expr
// Plus = '+' Expr
// Add = Expr '+' Expr
// Sub = Expr '-' Expr
// Mul = Expr '*' Expr | Expr Expr
// Div = Expr '/' Expr
// Pow = Expr '^' Expr

// Expr is a parsed expression that can be evaluated over a time axis.
type Expr struct {
	// n is the root node of the expression.
	n *node
	// names is the list of variable names used in the expression.
	names []string
	// calls is the list of user function names called by the expression.
	calls []string
}

// parsectx holds general data for parsing.
type parsectx struct {
	// src is the complete source text, used to recover user call arguments.
	src string
	// names is the set of variable names that have been seen this parse.
	names map[string]bool
	// calls is the set of user function names that have been seen this parse.
	calls map[string]bool
	// funcs is the set of function names that trigger special parsing for ids.
	funcs map[string]Func
	// resv is a reserved parsed node. parsearglist sets this when it parses a
	// single parenthesized term so that the parser can back it out to an
	// implicit multiplication if the function is niladic. It stays set until
	// a term at multiplication precedence or looser takes it.
	resv *node
}

// Parse parses an expression using the built-in functions. Any identifier
// that is not a built-in function and is followed by a bracketed argument is
// parsed as a call to a user function, except t, which is always the time
// variable.
func Parse(src string) (*Expr, error) {
	return parse(src, globalfuncs)
}

func parse(src string, funcs map[string]Func) (*Expr, error) {
	scan := lex(src)
	p := parsectx{
		src:   src,
		names: make(map[string]bool),
		calls: make(map[string]bool),
		funcs: funcs,
	}
	n, err := parseterm(scan, &p, exprprec)
	if err != nil {
		return nil, err
	}
	if tok := scan.must(); tok.kind != tokenEOF {
		return nil, itShouldNotHaveEndedThisWay(tok, false)
	}
	if n == nil {
		// Only a stray close bracket gets here, and that is reported above.
		return nil, &EmptyExpressionError{Col: 1}
	}
	return &Expr{n: n, names: setnames(p.names), calls: setnames(p.calls)}, nil
}

func setnames(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	v := make([]string, 0, len(set))
	for k := range set {
		v = append(v, k)
	}
	sortstrs(v)
	return v
}

// sortstrs sorts a string slice without using package sort because that has
// reflection and allocation problems.
func sortstrs(names []string) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
}

// parseterm parses a single term. If there is no error, then parseterm pushes
// the last token it scans, including EOF. If the input is an empty
// subexpression, the result is nil with no error; callers must create an error
// in contexts where empty subexpressions are illegal.
func parseterm(scan *lexer, p *parsectx, until operator) (*node, error) {
	n, err := parselhs(scan, p, until)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, nil
	}
	return parserest(scan, p, until, n)
}

// parserest parses the operators and terms that follow n while they bind
// more tightly than until.
func parserest(scan *lexer, p *parsectx, until operator, n *node) (*node, error) {
	for {
		if p.resv != nil {
			// A niladic function was followed by a parenthesized term. So, the
			// parsing here is as if we encountered an open bracket, except
			// that the contents are already parsed and valid: pi(t)^2 is
			// pi*(t^2).
			if !termprec.moreBinding(until) {
				return n, nil
			}
			r := p.resv
			p.resv = nil
			rhs, err := parserest(scan, p, termprec, r)
			if err != nil {
				return nil, err
			}
			n = &node{kind: nodeMul, left: n, right: rhs}
			continue
		}
		tok, err := scan.next()
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case tokenNum, tokenIdent, tokenOpen:
			// (parsed) x -> (parsed) * (x)
			// (parsed) x^(expr) -> (parsed) * (x^(expr))
			// a^(parsed) x -> (a^(parsed)) * (x)
			// (parsed) (expr) -> (parsed) * (expr)
			scan.push(tok)
			if !termprec.moreBinding(until) {
				return n, nil
			}
			rhs, err := parseterm(scan, p, termprec)
			if err != nil {
				return nil, err
			}
			n = &node{kind: nodeMul, left: n, right: rhs}
		case tokenOp:
			// Binary operator.
			prec := binop(tok.text)
			if prec.op == nodeNone {
				return nil, &OperatorError{Col: tok.pos, Operator: tok.text, Unary: false}
			}
			if !prec.moreBinding(until) {
				scan.push(tok)
				return n, nil
			}
			rhs, err := parseterm(scan, p, prec)
			if err != nil {
				return nil, err
			}
			if rhs == nil {
				end := scan.must()
				return nil, &EmptyExpressionError{Col: end.pos, End: end.text}
			}
			n = &node{kind: prec.op, left: n, right: rhs}
		case tokenClose, tokenSep, tokenEOF:
			// End of expression.
			scan.push(tok)
			return n, nil
		default:
			panic("signals: unknown token: " + tok.String())
		}
	}
}

// parselhs parses the first component of a term. I.e., operators are unary
// and any encountered token must be valid as the start of a subexpression.
func parselhs(scan *lexer, p *parsectx, until operator) (*node, error) {
	tok, err := scan.next()
	if err != nil {
		return nil, err
	}
	var n *node
	switch tok.kind {
	case tokenNum:
		n = &node{kind: nodeNum, name: tok.text}
	case tokenIdent:
		fn := p.funcs[tok.text]
		if fn == nil {
			return parseuser(scan, p, tok)
		}
		rhs, exp, err := parsecall(scan, p, until, fn, tok.text)
		if err != nil {
			return nil, err
		}
		// If fn is niladic and the call is like fn(a), then the result
		// from parsecall is nil, nil, and p.resv is non-nil.
		n = &node{kind: nodeCall, name: tok.text, fn: fn, right: rhs}
		if exp != nil {
			exp.left = n
			n = exp
		}
	case tokenOp:
		// unary operator
		prec := unop(tok.text)
		if prec.op == nodeNone {
			return nil, &OperatorError{Col: tok.pos, Operator: tok.text, Unary: true}
		}
		if !prec.moreBinding(until) {
			// x^-y -> x^(-y)
			// Just use the new operator's precedence to simplify.
			prec.prec, prec.right = until.prec, until.right
		}
		rhs, err := parseterm(scan, p, prec)
		if err != nil {
			return nil, err
		}
		if rhs == nil {
			end := scan.must()
			return nil, &EmptyExpressionError{Col: end.pos, End: end.text}
		}
		n = &node{kind: prec.op, left: rhs}
	case tokenOpen:
		rhs, err := parseterm(scan, p, exprprec)
		if err != nil {
			return nil, err
		}
		end := scan.must()
		if end.kind != tokenClose {
			return nil, itShouldNotHaveEndedThisWay(end, true)
		}
		if rhs == nil {
			return nil, &EmptyExpressionError{Col: end.pos, End: end.text}
		}
		n = rhs
	case tokenClose:
		// This might be part of niladic func(), so just let the caller decide
		// what to do.
		scan.push(tok)
		return nil, nil
	case tokenSep:
		return nil, &SeparatorError{Col: tok.pos, Sep: tok.text}
	case tokenEOF:
		return nil, &EmptyExpressionError{Col: tok.pos, End: ""}
	default:
		panic("signals: unknown token: " + tok.String())
	}
	return n, nil
}

// parseuser parses an identifier that is not a built-in function. Followed by
// a bracket, it is a call to a user function whose single argument is kept as
// source text for the time-axis transformation. Otherwise, it is a variable.
func parseuser(scan *lexer, p *parsectx, name lexToken) (*node, error) {
	open, err := scan.next()
	if err != nil {
		return nil, err
	}
	if open.kind != tokenOpen || name.text == "t" {
		// t(...) is an implicit multiplication, handled by parseterm.
		scan.push(open)
		p.names[name.text] = true
		return &node{kind: nodeName, name: name.text}, nil
	}
	args, k, err := parsearglist(scan, p)
	// A user call is never niladic, so there is nothing to back out.
	p.resv = nil
	if err != nil {
		return nil, err
	}
	end := scan.must()
	if k != 1 {
		return nil, &CallError{Col: open.pos, Func: name.text, Len: k}
	}
	p.calls[name.text] = true
	n := &node{
		kind:  nodeUser,
		name:  name.text,
		text:  strings.TrimSpace(p.src[open.off+len(open.text) : end.off]),
		right: args,
	}
	return n, nil
}

// parsecall parses the arguments to a call of a given Func. The second result,
// if non-nil, is a node that the function call is lhs to.
func parsecall(scan *lexer, p *parsectx, until operator, fn Func, name string) (*node, *node, error) {
	tok, err := scan.next()
	if err != nil {
		return nil, nil, err
	}
	switch tok.kind {
	case tokenOp:
		// Check for e.g. ^2 in cos^2 x. Must be an exponentiation or higher.
		// Note that the fact that exponentiation is important here:
		// func^x^y(z) parses as (func(z))^(x^y).
		if prec := binop(tok.text); prec.moreBinding(powprec) {
			up, err := parseterm(scan, p, powprec)
			if err != nil {
				return nil, nil, err
			}
			if up == nil {
				end := scan.must()
				return nil, nil, &EmptyExpressionError{Col: end.pos, End: end.text}
			}
			// The caller fills in up.left.
			exp := &node{kind: nodePow, right: up}
			if p.resv != nil {
				// The exponent ended in a niladic function applied to a
				// bracketed term, as in sin^pi(t). The term is the argument
				// of this call if it takes one; otherwise the caller
				// multiplies by it.
				switch {
				case fn.CanCall(1):
					args := &node{kind: nodeArg, left: p.resv}
					p.resv = nil
					return args, exp, nil
				case fn.CanCall(0):
					return nil, exp, nil
				}
				p.resv = nil
				return nil, nil, &CallError{Col: tok.pos, Func: name, Len: 1}
			}
			args, ee, err := parsecall(scan, p, until, fn, name)
			if err != nil {
				return nil, nil, err
			}
			if ee != nil {
				// The exponent is right-associative and binds tighter than
				// anything else, so a second one means the input is not a
				// single call.
				return nil, nil, &OperatorError{Col: tok.pos, Operator: tok.text}
			}
			return args, exp, nil
		}
		// Other than exponentiations, finding an operator is the same as
		// finding a number or identifier.
		fallthrough
	case tokenNum, tokenIdent:
		switch {
		case fn.CanCall(1):
			// Single argument. exp t -> exp(t)
			scan.push(tok)
			if termprec.moreBinding(until) {
				until = termprec
			}
			rhs, err := parseterm(scan, p, until)
			if err != nil {
				return nil, nil, err
			}
			if rhs == nil {
				end := scan.must()
				return nil, nil, &EmptyExpressionError{Col: end.pos, End: end.text}
			}
			return &node{kind: nodeArg, left: rhs}, nil, nil
		case fn.CanCall(0):
			// No argument. pi t -> (pi) * (t)
			scan.push(tok)
		default:
			// Any other number of arguments requires brackets.
			return nil, nil, &CallError{Col: tok.pos, Func: name, Len: 1}
		}
	case tokenOpen:
		n, len, err := parsearglist(scan, p)
		if err != nil {
			return nil, nil, err
		}
		if end := scan.must(); end.kind != tokenClose {
			panic("signals: parsearglist ended on " + end.String() + " instead of close bracket")
		}
		if !fn.CanCall(len) {
			if p.resv != nil && fn.CanCall(0) {
				// If fn is niladic, convert from fn(a) to fn()*a.
				return nil, nil, nil
			}
			p.resv = nil
			return nil, nil, &CallError{Col: tok.pos, Func: name, Len: len}
		}
		p.resv = nil
		return n, nil, nil
	case tokenClose, tokenSep, tokenEOF:
		if !fn.CanCall(0) {
			return nil, nil, &CallError{Col: tok.pos, Func: name}
		}
		scan.push(tok)
	default:
		panic("signals: unknown token: " + tok.String())
	}
	return nil, nil, nil
}

// parsearglist parses a bracketed list of zero or more args. The open bracket
// has already been scanned.
func parsearglist(scan *lexer, p *parsectx) (*node, int, error) {
	var n node
	l := &n
	len := 0
	pb := ""
	for {
		rhs, err := parseterm(scan, p, exprprec)
		if err != nil {
			// As a special case, reporting an unclosed bracket is more helpful
			// than empty expression, if that's what we'd do here.
			if ee, _ := err.(*EmptyExpressionError); ee != nil && ee.End == "" {
				err = &BracketError{Col: ee.Col, Left: "("}
			}
			return nil, 0, err
		}
		end := scan.must()
		switch end.kind {
		case tokenClose:
			scan.push(end)
			if rhs == nil {
				// No expression parsed.
				// func() is allowed, but func(a,) isn't.
				if len != 0 {
					return nil, 0, &EmptyExpressionError{Col: end.pos, End: end.text}
				}
				return nil, 0, nil
			}
			l.right = &node{kind: nodeArg, name: pb, left: rhs}
			if len == 0 {
				// func(a). If func is niladic, then this is an implicit
				// multiplication. Reserve the rhs so that the parser can
				// convert from a function call.
				p.resv = rhs
			}
			return n.right, len + 1, nil
		case tokenSep:
			len++
			l.right = &node{kind: nodeArg, name: pb, left: rhs}
			l = l.right
			pb = end.text
		case tokenEOF:
			return nil, 0, &BracketError{Col: end.pos, Left: "(", Right: ""}
		default:
			panic("signals: parseterm ended on non-end token " + end.String())
		}
	}
}

// itShouldNotHaveEndedThisWay returns an error appropriate for an unexpected
// token at the end of a subexpression. open is whether the expression is
// inside brackets.
func itShouldNotHaveEndedThisWay(tok lexToken, open bool) error {
	left := ""
	if open {
		left = "("
	}
	switch tok.kind {
	case tokenEOF:
		// Unexpected EOF implies an open bracket that was not closed.
		return &BracketError{Col: tok.pos, Left: left, Right: ""}
	case tokenClose:
		// A close bracket here has no open bracket to match.
		return &BracketError{Col: tok.pos, Right: tok.text}
	case tokenSep:
		// Separator outside a function call.
		return &SeparatorError{Col: tok.pos, Sep: tok.text}
	case tokenOp:
		return &OperatorError{Col: tok.pos, Operator: tok.text}
	default:
		panic("signals: it really should not have ended this way: " + tok.String())
	}
}

// Vars returns the variable names used when evaluating the expression.
func (e *Expr) Vars() []string {
	return append(([]string)(nil), e.names...)
}

// Calls returns the names of the user functions the expression calls.
func (e *Expr) Calls() []string {
	return append(([]string)(nil), e.calls...)
}

// String creates a string representation of the parsed expression, with
// brackets grouping each term. The result parses to the same expression.
func (e *Expr) String() string {
	return e.n.String()
}

type operator struct {
	// prec is the precedence value. Lower is more binding.
	prec int8
	// right indicates right-associativity.
	right bool
	// op is the node kind to use when this operator is selected.
	op nodeKind
}

func (p operator) moreBinding(than operator) bool {
	if p.prec != than.prec {
		return p.prec > than.prec
	}
	return p.right
}

// binop gets a binary operator for a token string. If there is no such binary
// operator, then the result has an op of nodeNone.
func binop(text string) operator {
	switch text {
	case "+":
		return operator{1, false, nodeAdd}
	case "-":
		return operator{1, false, nodeSub}
	case "*":
		return operator{5, false, nodeMul}
	case "/":
		return operator{5, false, nodeDiv}
	case "^":
		return operator{15, true, nodePow}
	default:
		return operator{}
	}
}

// unop gets a unary operator for a token string. If there is no such unary
// operator, then the result has an op of nodeNone.
func unop(text string) operator {
	switch text {
	case "+":
		return operator{10, true, nodeNop}
	case "-":
		return operator{10, true, nodeNeg}
	default:
		return operator{}
	}
}

var (
	// termprec is the default precedence for parsing terms. Its prec
	// should match that of multiplication.
	termprec = operator{5, true, nodeMul}
	// powprec is the precedence of exponentiation.
	powprec = binop("^")
	// exprprec is the precedence required to parse an entire subexpression.
	exprprec = operator{-128, true, nodeNone}
)
