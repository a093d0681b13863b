// Package errors defines the diagnostic types shared by the lexer, parser
// and compiler.
package errors

import (
	"fmt"
	"strings"
)

// Position locates a diagnostic in source text.
type Position struct {
	Line   int
	Column int
	Offset int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Type classifies where in the pipeline a diagnostic originated.
type Type int

const (
	SyntaxError Type = iota
	ResolutionError
	RuntimeError
)

func (t Type) String() string {
	switch t {
	case SyntaxError:
		return "Syntax Error"
	case ResolutionError:
		return "Resolution Error"
	case RuntimeError:
		return "Runtime Error"
	default:
		return "Error"
	}
}

// Error is a single compile-time or load-time diagnostic.
type Error struct {
	Type     Type
	Message  string
	Position Position
	Source   string
}

func NewSyntaxError(message string, pos Position) *Error {
	return &Error{Type: SyntaxError, Message: message, Position: pos}
}

func NewResolutionError(message string, pos Position) *Error {
	return &Error{Type: ResolutionError, Message: message, Position: pos}
}

func NewRuntimeError(message string, pos Position) *Error {
	return &Error{Type: RuntimeError, Message: message, Position: pos}
}

func (e *Error) WithSource(source string) *Error {
	e.Source = source
	return e
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at %s: %s", e.Type, e.Position, e.Message)
}

// Annotated renders the error with the offending source line underlined,
// the way a compiler driver reports a diagnostic to a terminal.
func (e *Error) Annotated() string {
	if e.Source == "" {
		return e.Error()
	}
	lines := strings.Split(e.Source, "\n")
	if e.Position.Line <= 0 || e.Position.Line > len(lines) {
		return e.Error()
	}
	var b strings.Builder
	b.WriteString(e.Error())
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %d | %s\n", e.Position.Line, lines[e.Position.Line-1])
	b.WriteString("      | ")
	for i := 0; i < e.Position.Column; i++ {
		b.WriteString(" ")
	}
	b.WriteString("^\n")
	return b.String()
}

// List aggregates diagnostics raised while compiling a single module; the
// compiler keeps compiling after a diagnostic and returns no module if any
// were recorded.
type List []*Error

func (l *List) Add(err *Error) {
	*l = append(*l, err)
}

func (l List) HasErrors() bool {
	return len(l) > 0
}

func (l List) Error() string {
	parts := make([]string, len(l))
	for i, e := range l {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "\n")
}
