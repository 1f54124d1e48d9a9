package tessera

import (
	"errors"
	"fmt"
	"strings"
)

// TemplateNotFoundError reports a template name the loader could not resolve.
// Suggestions holds close matches from the loader's known names, when any.
type TemplateNotFoundError struct {
	Name        string
	Suggestions []string
}

func (e *TemplateNotFoundError) Error() string {
	if len(e.Suggestions) > 0 {
		return fmt.Sprintf("template %q not found (did you mean %s?)", e.Name, strings.Join(e.Suggestions, ", "))
	}
	return fmt.Sprintf("template %q not found", e.Name)
}

// NewTemplateNotFoundError creates a not-found error with optional suggestions.
func NewTemplateNotFoundError(name string, suggestions []string) error {
	return &TemplateNotFoundError{Name: name, Suggestions: suggestions}
}

// ParseError represents malformed template source.
type ParseError struct {
	Template string
	Line     int
	Message  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s:%d: %s", e.Template, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Template, e.Message)
}

// NewParseError creates a parse error with position information.
func NewParseError(template string, line int, message string) error {
	return &ParseError{Template: template, Line: line, Message: message}
}

// CyclicInheritanceError reports a cycle in a template's parent chain.
// Chain lists the templates in walk order, ending at the repeated name.
type CyclicInheritanceError struct {
	Chain []string
}

func (e *CyclicInheritanceError) Error() string {
	return fmt.Sprintf("cyclic template inheritance: %s", strings.Join(e.Chain, " -> "))
}

// NewCyclicInheritanceError creates a cyclic inheritance error.
func NewCyclicInheritanceError(chain []string) error {
	return &CyclicInheritanceError{Chain: chain}
}

// UnresolvedBlockError reports a block declared in an extending template
// whose name matches no block anywhere in its ancestor chain.
type UnresolvedBlockError struct {
	Template string
	Block    string
	Line     int
}

func (e *UnresolvedBlockError) Error() string {
	return fmt.Sprintf("template %s:%d: block %q does not exist in any parent template", e.Template, e.Line, e.Block)
}

// NewUnresolvedBlockError creates an unresolved-block error.
func NewUnresolvedBlockError(template, block string, line int) error {
	return &UnresolvedBlockError{Template: template, Block: block, Line: line}
}

// UndefinedVariableError reports an unguarded access to a context path
// that does not exist. Existence tests and conditional positions never
// produce this error.
type UndefinedVariableError struct {
	Template string
	Path     string
	Line     int
}

func (e *UndefinedVariableError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("template %s:%d: undefined variable %q", e.Template, e.Line, e.Path)
	}
	return fmt.Sprintf("template %s: undefined variable %q", e.Template, e.Path)
}

// NewUndefinedVariableError creates an undefined-variable error.
func NewUndefinedVariableError(template, path string, line int) error {
	return &UndefinedVariableError{Template: template, Path: path, Line: line}
}

// FilterError represents a filter invoked with bad arguments or a value
// it cannot operate on.
type FilterError struct {
	Filter  string
	Message string
	Cause   error
}

func (e *FilterError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("filter %q: %s: %v", e.Filter, e.Message, e.Cause)
	}
	return fmt.Sprintf("filter %q: %s", e.Filter, e.Message)
}

func (e *FilterError) Unwrap() error {
	return e.Cause
}

// NewFilterError creates a filter error.
func NewFilterError(filter, message string) error {
	return &FilterError{Filter: filter, Message: message}
}

// MultiError collects independent errors, typically one per failed page
// in a batch render.
type MultiError struct {
	errors []error
}

// NewMultiError creates a new multi-error collector.
func NewMultiError() *MultiError {
	return &MultiError{errors: make([]error, 0)}
}

// Add adds an error to the collection (ignores nil errors).
func (m *MultiError) Add(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

// Len returns the number of collected errors.
func (m *MultiError) Len() int {
	return len(m.errors)
}

// Errors returns the collected errors in insertion order.
func (m *MultiError) Errors() []error {
	return m.errors
}

// Err returns the multi-error, or nil if empty. A single collected error
// is returned unwrapped.
func (m *MultiError) Err() error {
	if len(m.errors) == 0 {
		return nil
	}
	if len(m.errors) == 1 {
		return m.errors[0]
	}
	return m
}

func (m *MultiError) Error() string {
	if len(m.errors) == 0 {
		return "no errors"
	}
	if len(m.errors) == 1 {
		return m.errors[0].Error()
	}
	var parts []string
	parts = append(parts, fmt.Sprintf("%d errors occurred:", len(m.errors)))
	for i, err := range m.errors {
		parts = append(parts, fmt.Sprintf("  [%d] %v", i+1, err))
	}
	return strings.Join(parts, "\n")
}

// IsTemplateNotFound checks if an error is a template-not-found error.
func IsTemplateNotFound(err error) bool {
	var e *TemplateNotFoundError
	return errors.As(err, &e)
}

// IsParseError checks if an error is a parse error.
func IsParseError(err error) bool {
	var e *ParseError
	return errors.As(err, &e)
}

// IsCyclicInheritance checks if an error is a cyclic inheritance error.
func IsCyclicInheritance(err error) bool {
	var e *CyclicInheritanceError
	return errors.As(err, &e)
}

// IsUnresolvedBlock checks if an error is an unresolved-block error.
func IsUnresolvedBlock(err error) bool {
	var e *UnresolvedBlockError
	return errors.As(err, &e)
}

// IsUndefinedVariable checks if an error is an undefined-variable error.
func IsUndefinedVariable(err error) bool {
	var e *UndefinedVariableError
	return errors.As(err, &e)
}

// IsFilterError checks if an error is a filter error.
func IsFilterError(err error) bool {
	var e *FilterError
	return errors.As(err, &e)
}
