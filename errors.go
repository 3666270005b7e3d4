package signals

import (
	"strconv"
)

// OperatorError is an error indicating an operator token that is not
// understood by the parser. It implements InputError.
type OperatorError struct {
	// Col is the position of the operator.
	Col int
	// Operator is the token that was not understood.
	Operator string
	// Unary is whether the parser expected a unary operator at the time.
	Unary bool
}

func (err *OperatorError) Error() string {
	s := "binary"
	if err.Unary {
		s = "unary"
	}
	return errpos(err.Col, "unknown "+s+" operator "+strconv.Quote(err.Operator))
}

func (err *OperatorError) Pos() int {
	return err.Col
}

// BracketError is an error indicating unbalanced brackets in the
// input. It implements InputError.
type BracketError struct {
	// Col is the position of the offending bracket or end of input.
	Col int
	// Left is the unclosed opening bracket, if any.
	Left string
	// Right is the unopened closing bracket, if any.
	Right string
}

func (err *BracketError) Error() string {
	if err.Left == "" {
		return errpos(err.Col, "close bracket "+err.Right+" with no open bracket")
	}
	return errpos(err.Col, "open bracket "+err.Left+" with no close bracket")
}

func (err *BracketError) Pos() int {
	return err.Col
}

// SeparatorError is an error indicating a comma outside of a function
// argument list. It implements InputError.
type SeparatorError struct {
	// Col is the position of the separator.
	Col int
	// Sep is the separator.
	Sep string
}

func (err *SeparatorError) Error() string {
	return errpos(err.Col, "invalid occurrence of separator "+strconv.Quote(err.Sep))
}

func (err *SeparatorError) Pos() int {
	return err.Col
}

// CallError is an error indicating a function call with the wrong number of
// arguments. It implements InputError.
type CallError struct {
	// Col is the position of the end of the call expression.
	Col int
	// Func is the function name that was called.
	Func string
	// Len is the number of arguments the function call tried to imply.
	Len int
}

func (err *CallError) Error() string {
	return errpos(err.Col, "cannot call "+err.Func+" with "+strconv.Itoa(err.Len)+" arguments")
}

func (err *CallError) Pos() int {
	return err.Col
}

// EmptyExpressionError is an error indicating an empty subexpression.
type EmptyExpressionError struct {
	// Col is the position of the token that ended the subexpression.
	Col int
	// End is the token that ended the subexpression.
	End string
}

func (err *EmptyExpressionError) Error() string {
	if err.End == "" {
		if err.Col <= 1 {
			return errpos(err.Col, "no expression")
		}
		return errpos(err.Col, "no expression at end")
	}
	return errpos(err.Col, "no expression up to "+strconv.Quote(err.End))
}

func (err *EmptyExpressionError) Pos() int {
	return err.Col
}

// errpos is a shortcut to create an error message with a position.
func errpos(pos int, msg string) string {
	return strconv.Itoa(pos) + ": " + msg
}

// InputError is an error with position information. Every error resulting from
// invalid input implements InputError.
type InputError interface {
	error
	// Pos returns the position of the error as the number of runes up to and
	// including the start of the token that caused the error.
	Pos() int
}

var (
	_ InputError = (*OperatorError)(nil)
	_ InputError = (*BracketError)(nil)
	_ InputError = (*SeparatorError)(nil)
	_ InputError = (*CallError)(nil)
	_ InputError = (*EmptyExpressionError)(nil)
	_ InputError = (*LexError)(nil)
)

// NameNotFoundError is returned when an expression calls a function that was
// never defined in the registry.
type NameNotFoundError struct {
	// Name is the function that was called.
	Name string
}

func (err *NameNotFoundError) Error() string {
	return "function " + strconv.Quote(err.Name) + " is not defined"
}

// MalformedTimeExpressionError is returned when the argument of a user
// function call is not a time-axis transformation built from t, numbers,
// parentheses, and the operators + - * /.
type MalformedTimeExpressionError struct {
	// Text is the argument as written.
	Text string
	// Reason describes the disallowed syntax.
	Reason string
	// Err is the underlying parse or evaluation error, if any.
	Err error
}

func (err *MalformedTimeExpressionError) Error() string {
	s := "malformed time expression " + strconv.Quote(err.Text)
	if err.Reason != "" {
		s += ": " + err.Reason
	}
	if err.Err != nil {
		s += ": " + err.Err.Error()
	}
	return s
}

func (err *MalformedTimeExpressionError) Unwrap() error {
	return err.Err
}

// EvaluationError is returned for failures of the final numeric evaluation of
// an expression: syntax errors and undefined identifiers.
type EvaluationError struct {
	// Expr is the expression text that was being evaluated, after derivative
	// and rect rewriting.
	Expr string
	// Err is the cause.
	Err error
}

func (err *EvaluationError) Error() string {
	return "evaluating " + strconv.Quote(err.Expr) + ": " + err.Err.Error()
}

func (err *EvaluationError) Unwrap() error {
	return err.Err
}

// MalformedAxisError is returned when a derivative is requested on a time
// axis that has no usable step.
type MalformedAxisError struct {
	// Len is the number of time samples.
	Len int
	// Values is the number of value samples.
	Values int
	// Step is the spacing of the first interval, if there is one.
	Step float64
}

func (err *MalformedAxisError) Error() string {
	switch {
	case err.Len != err.Values:
		return "malformed time axis: " + strconv.Itoa(err.Values) + " values for " + strconv.Itoa(err.Len) + " samples"
	case err.Len < 2:
		return "malformed time axis: need at least 2 samples, have " + strconv.Itoa(err.Len)
	default:
		return "malformed time axis: unusable step " + strconv.FormatFloat(err.Step, 'g', -1, 64)
	}
}

// RecursionLimitError is returned when user function calls and derivatives
// nest more deeply than the evaluator allows, as happens with a function
// defined in terms of itself.
type RecursionLimitError struct {
	// Expr is the expression at which the limit was reached.
	Expr string
	// Depth is the limit.
	Depth int
}

func (err *RecursionLimitError) Error() string {
	return "recursion limit of " + strconv.Itoa(err.Depth) + " exceeded evaluating " + strconv.Quote(err.Expr)
}
