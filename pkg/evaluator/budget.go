package evaluator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thomasrohde/minijs/pkg/diagnostics"
)

// Budget holds the resource limits for a program execution.
// A nil field means unlimited.
type Budget struct {
	TimeMs        *int64
	MaxIterations *int64
}

// Limit returns a pointer to v, for filling Budget fields.
func Limit(v int64) *int64 {
	return &v
}

// Usage tracks resource consumption during execution.
type Usage struct {
	Statements   int64 `json:"statements"`
	Iterations   int64 `json:"iterations"`
	Prints       int64 `json:"prints"`
	BytesWritten int64 `json:"bytesWritten"`
	ElapsedMs    int64 `json:"elapsedMs"`
}

func (ev *evaluator) checkTimeBudget() error {
	if err := ev.ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ev.budget.TimeMs != nil {
			return ev.budgetExceeded(fmt.Sprintf("time budget exceeded (%dms)", *ev.budget.TimeMs))
		}
		return fmt.Errorf("execution cancelled: %w", err)
	}
	if ev.budget.TimeMs != nil {
		// time.Since reads the monotonic clock
		if time.Since(ev.start).Milliseconds() >= *ev.budget.TimeMs {
			return ev.budgetExceeded(fmt.Sprintf("time budget exceeded (%dms)", *ev.budget.TimeMs))
		}
	}
	return nil
}

// countIteration records one loop iteration and enforces MaxIterations.
func (ev *evaluator) countIteration() error {
	if ev.budget.MaxIterations != nil && ev.usage.Iterations >= *ev.budget.MaxIterations {
		return ev.budgetExceeded(fmt.Sprintf("iteration budget exceeded (max %d)", *ev.budget.MaxIterations))
	}
	ev.usage.Iterations++
	return nil
}

func (ev *evaluator) budgetExceeded(msg string) error {
	ev.emitWithData(TraceBudgetExceeded, nil, map[string]any{"message": msg})
	ev.log.Debug("budget exceeded", "message", msg)
	return &RuntimeError{Code: diagnostics.EBudget, Message: msg}
}
