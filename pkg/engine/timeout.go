package engine

import (
	"fmt"
	"time"
)

// DefaultTimeout is used when the document configuration sets none.
const DefaultTimeout = 5 * time.Second

type evalResult struct {
	result *Result
	errors []EvalError
	err    error
}

// waitWithTimeout waits for a result from ch, but returns a timeout error
// if the evaluation exceeds timeout. On timeout cancel is called; it
// reports false when the evaluation finished just as time ran out, in
// which case its result is delivered instead.
func waitWithTimeout(ch <-chan evalResult, timeout time.Duration, cancel func() bool) (*Result, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.result, res.errors, res.err
	case <-timer.C:
		if !cancel() {
			res := <-ch
			return res.result, res.errors, res.err
		}
		return nil, nil, fmt.Errorf("evaluation timed out after %s", timeout)
	}
}
