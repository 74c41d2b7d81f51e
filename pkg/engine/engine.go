// Package engine runs drawing scripts. It wraps zygomys in a sandboxed
// environment whose builtins create and edit entities in a Document.
package engine

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/zcad/pkg/doc"
	"github.com/chazu/zcad/pkg/entity"
	"github.com/chazu/zcad/pkg/logging"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a failed drawing command.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Result is the output of a successful evaluation.
type Result struct {
	// Value is the printed value of the last expression.
	Value string
	// Created lists the entities the script added, in creation order.
	Created []entity.EntityID
}

// ErrBusy is returned when an evaluation is requested while another one
// on the same engine is still running.
var ErrBusy = errors.New("engine: previous evaluation still running")

// Engine evaluates scripts against one document. Each script runs as a
// single undo step: if it fails part way or times out, every change it made
// is rolled back. Each call to Evaluate creates a fresh sandboxed
// environment.
type Engine struct {
	doc     *doc.Document
	timeout time.Duration

	mu     sync.Mutex
	active *session
}

// NewEngine returns an engine bound to d. The evaluation time limit comes
// from the document's configuration.
func NewEngine(d *doc.Document) *Engine {
	t := d.Config().EvalTimeout.Duration
	if t <= 0 {
		t = DefaultTimeout
	}
	return &Engine{doc: d, timeout: t}
}

// SetTimeout overrides the evaluation time limit.
func (e *Engine) SetTimeout(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timeout = d
}

// Evaluate runs source against the document.
//
// Return semantics:
//   - On success: returns result + nil errors + nil error
//   - On parse/eval failure: returns nil result + eval errors + nil error;
//     the document is unchanged
//   - On fatal failure (timeout, panic, busy): returns nil + nil + error
//
// When the time limit passes, the script's changes are rolled back and
// the document and engine are free for use before Evaluate returns. The
// script itself stops at its next function call.
func (e *Engine) Evaluate(source string) (*Result, []EvalError, error) {
	e.mu.Lock()
	if e.active != nil {
		e.mu.Unlock()
		return nil, nil, ErrBusy
	}
	s := newSession(e.doc)
	e.active = s
	timeout := e.timeout
	e.mu.Unlock()

	ch := make(chan evalResult, 1)
	go func() {
		defer e.release(s)
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		res, evalErrs, err := e.evaluate(s, source)
		ch <- evalResult{result: res, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, timeout, func() bool {
		if !s.cancel() {
			return false
		}
		e.release(s)
		return true
	})
}

func (e *Engine) release(s *session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == s {
		e.active = nil
	}
}

// evaluate performs the zygomys evaluation inside a document transaction.
func (e *Engine) evaluate(s *session, source string) (*Result, []EvalError, error) {
	// Empty source is a valid program that changes nothing.
	if strings.TrimSpace(source) == "" {
		return &Result{}, nil, nil
	}

	s.mu.Lock()
	if s.cancelled.Load() {
		s.mu.Unlock()
		return nil, nil, errCancelled
	}
	txn, err := e.doc.Begin("script")
	if err != nil {
		s.mu.Unlock()
		return nil, nil, err
	}
	s.txn = txn
	s.mu.Unlock()
	defer txn.Rollback()

	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, s)

	var (
		value    zygo.Sexp
		evalErrs []EvalError
	)
	if err := env.LoadString(preprocessSource(source)); err != nil {
		evalErrs = parseZygomysError(err)
	} else if value, err = env.Run(); err != nil {
		evalErrs = parseZygomysError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled.Load() {
		return nil, nil, errCancelled
	}
	s.finished = true
	if evalErrs != nil {
		txn.Rollback()
		logging.Logger().Debug("engine: script rolled back", "errors", len(evalErrs), "created", len(s.created))
		return nil, evalErrs, nil
	}
	if err := txn.Commit(); err != nil {
		return nil, nil, err
	}

	res := &Result{Created: s.created}
	if value != nil {
		res.Value = value.SexpString(nil)
	}
	logging.Logger().Debug("engine: script done", "created", len(res.Created))
	return res, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values,
// extracting the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
