// JavaScript drop rules executed with the Goja engine.
package cleaner

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dop251/goja"

	"github.com/tripwash/runtime/internal/logger"
	"github.com/tripwash/runtime/pkg/trip"
)

// Error codes for js rules.
const (
	ErrCodeScriptEmpty       = "SCRIPT_EMPTY"
	ErrCodeScriptTooLong     = "SCRIPT_TOO_LONG"
	ErrCodeCompilationFailed = "COMPILATION_FAILED"
	ErrCodeMissingDropFunc   = "MISSING_DROP_FUNC"
	ErrCodeNotFunction       = "NOT_FUNCTION"
)

// MaxScriptLength is the maximum allowed script length in bytes (100KB).
const MaxScriptLength = 100 * 1024

// Common errors for js rules.
var (
	// ErrScriptEmpty is returned when the script is empty or whitespace-only.
	ErrScriptEmpty = fmt.Errorf("script cannot be empty")
	// ErrScriptTooLong is returned when the script exceeds MaxScriptLength.
	ErrScriptTooLong = fmt.Errorf("script exceeds maximum length")
	// ErrMissingDropFunc is returned when the script doesn't define drop().
	ErrMissingDropFunc = fmt.Errorf("drop function not found in script")
	// ErrDropNotFunction is returned when drop is defined but not callable.
	ErrDropNotFunction = fmt.Errorf("drop is not a function")
)

// NewScriptRule builds a Rule whose predicate is a user-supplied
// JavaScript drop(record) function.
//
// Goja provides sandboxed execution (no file system or network access) and
// the script length is capped to keep pathological inputs out. A Goja
// runtime is not goroutine-safe; each rule owns its runtime, so a Cleaner
// carrying js rules must not be shared across goroutines.
func NewScriptRule(cfg trip.RuleConfig) (Rule, error) {
	source := cfg.Script
	if strings.TrimSpace(source) == "" {
		return Rule{}, fmt.Errorf("rule %q: %w", cfg.Name, ErrScriptEmpty)
	}
	if len(source) > MaxScriptLength {
		return Rule{}, fmt.Errorf("rule %q: %w (%d bytes, max %d)",
			cfg.Name, ErrScriptTooLong, len(source), MaxScriptLength)
	}

	onError := normalizeOnError(cfg.Name, cfg.OnError)

	runtime := goja.New()
	if _, err := runtime.RunString(source); err != nil {
		return Rule{}, fmt.Errorf("rule %q: script compilation failed: %w", cfg.Name, err)
	}

	dropValue := runtime.Get("drop")
	if dropValue == nil || goja.IsUndefined(dropValue) || goja.IsNull(dropValue) {
		return Rule{}, fmt.Errorf("rule %q: %w", cfg.Name, ErrMissingDropFunc)
	}
	dropFn, ok := goja.AssertFunction(dropValue)
	if !ok {
		return Rule{}, fmt.Errorf("rule %q: %w", cfg.Name, ErrDropNotFunction)
	}

	logger.Debug("custom rule compiled",
		slog.String("rule", cfg.Name),
		slog.String("lang", LangJS),
		slog.String("on_error", onError),
	)

	name := cfg.Name
	return Rule{
		Name: name,
		Drop: func(record trip.Record) (bool, error) {
			result, err := dropFn(goja.Undefined(), runtime.ToValue(map[string]interface{}(record)))
			if err != nil {
				return handleRuleError(name, "", onError, err)
			}
			return result.ToBoolean(), nil
		},
	}, nil
}
