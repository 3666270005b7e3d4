package signals

import (
	"fmt"

	"github.com/Knetic/govaluate"
)

// TransformTime evaluates the time-argument expression arg, such as "2*t+1"
// or "-t", at each sample of t. Only t, numbers, parentheses, and the
// operators + - * / are allowed; anything else is a
// *MalformedTimeExpressionError.
func TransformTime(arg string, t []float64) ([]float64, error) {
	ge, err := govaluate.NewEvaluableExpression(arg)
	if err != nil {
		return nil, &MalformedTimeExpressionError{Text: arg, Err: err}
	}
	if err := checkTimeTokens(arg, ge.Tokens()); err != nil {
		return nil, err
	}
	r := make([]float64, len(t))
	params := govaluate.MapParameters{"t": 0.0}
	for i, x := range t {
		params["t"] = x
		v, err := ge.Eval(params)
		if err != nil {
			return nil, &MalformedTimeExpressionError{Text: arg, Err: err}
		}
		f, ok := v.(float64)
		if !ok {
			return nil, &MalformedTimeExpressionError{Text: arg, Reason: fmt.Sprintf("result %v is not a number", v)}
		}
		r[i] = f
	}
	return r, nil
}

func checkTimeTokens(arg string, toks []govaluate.ExpressionToken) error {
	for _, tok := range toks {
		switch tok.Kind {
		case govaluate.NUMERIC, govaluate.CLAUSE, govaluate.CLAUSE_CLOSE:
			continue
		case govaluate.VARIABLE:
			if tok.Value == "t" {
				continue
			}
			return &MalformedTimeExpressionError{Text: arg, Reason: fmt.Sprintf("unknown name %v", tok.Value)}
		case govaluate.MODIFIER:
			switch tok.Value {
			case "+", "-", "*", "/":
				continue
			}
		case govaluate.PREFIX:
			if tok.Value == "-" {
				continue
			}
		}
		return &MalformedTimeExpressionError{Text: arg, Reason: fmt.Sprintf("unsupported %s %v", tok.Kind, tok.Value)}
	}
	return nil
}
