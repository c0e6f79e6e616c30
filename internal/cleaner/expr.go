// Custom drop rules from boolean expressions, evaluated with the expr
// library against each record.
package cleaner

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/tripwash/runtime/internal/errhandling"
	"github.com/tripwash/runtime/internal/logger"
	"github.com/tripwash/runtime/pkg/trip"
)

// Error codes for custom rule construction and evaluation.
const (
	ErrCodeInvalidExpression = "INVALID_EXPRESSION"
	ErrCodeEvaluationFailed  = "EVALUATION_FAILED"
	ErrCodeUnsupportedLang   = "UNSUPPORTED_LANG"
)

// Supported rule languages.
const (
	LangExpr = "expr"
	LangJS   = "js"
)

// Error handling modes for custom rule evaluation failures.
const (
	OnErrorFail = "fail" // abort the run
	OnErrorSkip = "skip" // drop the row
	OnErrorLog  = "log"  // keep the row, log the failure
)

// Common errors for custom rules.
var (
	// ErrEmptyExpression is returned when an expr rule has no expression.
	ErrEmptyExpression = errors.New("expression cannot be empty")
	// ErrInvalidExpression is returned when the expression syntax is invalid.
	ErrInvalidExpression = errors.New("invalid expression syntax")
	// ErrUnsupportedLang is returned when the rule language is not supported.
	ErrUnsupportedLang = errors.New("unsupported rule language")
	// ErrUnnamedRule is returned when a custom rule has no name.
	ErrUnnamedRule = errors.New("rule name is required")
)

// RuleError carries structured context for custom rule failures.
type RuleError struct {
	Code       string
	Message    string
	RuleName   string
	Expression string
}

func (e *RuleError) Error() string {
	return e.Message
}

// NewCustomRule builds a Rule from a job-config rule declaration.
// The default language is expr; js rules are built by NewScriptRule.
func NewCustomRule(cfg trip.RuleConfig) (Rule, error) {
	if cfg.Name == "" {
		return Rule{}, ErrUnnamedRule
	}

	lang := cfg.Lang
	if lang == "" {
		lang = LangExpr
	}

	switch lang {
	case LangExpr:
		return newExprRule(cfg)
	case LangJS:
		return NewScriptRule(cfg)
	default:
		return Rule{}, fmt.Errorf("%w: %s", ErrUnsupportedLang, lang)
	}
}

// newExprRule compiles an expr rule once and wraps evaluation with the
// configured onError behavior.
func newExprRule(cfg trip.RuleConfig) (Rule, error) {
	if cfg.Expression == "" {
		return Rule{}, fmt.Errorf("rule %q: %w", cfg.Name, ErrEmptyExpression)
	}

	onError := normalizeOnError(cfg.Name, cfg.OnError)

	// AllowUndefinedVariables() handles rows lacking optional fields
	// (e.g. distance_miles is absent in first stage) gracefully.
	program, err := expr.Compile(cfg.Expression, expr.AllowUndefinedVariables())
	if err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w: %v", cfg.Name, ErrInvalidExpression, err)
	}

	logger.Debug("custom rule compiled",
		slog.String("rule", cfg.Name),
		slog.String("lang", LangExpr),
		slog.String("on_error", onError),
	)

	name := cfg.Name
	expression := cfg.Expression
	return Rule{
		Name: name,
		Drop: func(record trip.Record) (bool, error) {
			output, err := expr.Run(program, map[string]interface{}(record))
			if err != nil {
				// AllowUndefinedVariables only relaxes compilation; at run
				// time an absent field evaluates as nil and comparisons
				// against it error. An expression over a field the record
				// does not carry is a non-match, not a failure.
				if isNilOperandError(err) {
					return false, nil
				}
				return handleRuleError(name, expression, onError, err)
			}
			return truthy(output), nil
		},
	}, nil
}

// isNilOperandError reports whether an evaluation failure stems from a nil
// operand, i.e. the expression referenced a field the record does not have.
func isNilOperandError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "invalid operation") && strings.Contains(msg, "<nil>")
}

// handleRuleError applies the rule's onError mode to an evaluation failure.
func handleRuleError(name, expression, onError string, err error) (bool, error) {
	switch onError {
	case OnErrorSkip:
		logger.Warn("dropping record due to rule evaluation error",
			slog.String("rule", name),
			slog.String("error", err.Error()),
		)
		return true, nil
	case OnErrorLog:
		logger.Error("rule evaluation error (keeping record)",
			slog.String("rule", name),
			slog.String("error", err.Error()),
		)
		return false, nil
	default:
		return false, &errhandling.ClassifiedError{
			Category: errhandling.CategoryRule,
			Fatal:    true,
			Code:     errhandling.CodeRuleEvalFailed,
			Message:  fmt.Sprintf("rule %q evaluation failed: %v", name, err),
			OriginalErr: &RuleError{
				Code:       ErrCodeEvaluationFailed,
				Message:    err.Error(),
				RuleName:   name,
				Expression: expression,
			},
		}
	}
}

// normalizeOnError validates the onError mode, defaulting to fail.
func normalizeOnError(ruleName, onError string) string {
	switch onError {
	case "":
		return OnErrorFail
	case OnErrorFail, OnErrorSkip, OnErrorLog:
		return onError
	default:
		logger.Warn("invalid onError value for rule; defaulting to fail",
			slog.String("rule", ruleName),
			slog.String("on_error", onError),
		)
		return OnErrorFail
	}
}

// truthy converts an expression result to a drop decision.
func truthy(value interface{}) bool {
	if value == nil {
		return false
	}
	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}
