package ppmi500

import (
	"sort"
	"strings"
	"sync"

	"github.com/agentstation/ppmi500/pkg/errors"
	"github.com/agentstation/ppmi500/pkg/provenance"
)

// Hook function types for pipeline events
type (
	// ValueFilledHook is called for every backfilled or normalized value
	ValueFilledHook func(subjectID string, p provenance.Provenance)

	// UnrecognizedCodeHook is called for every reviewer cell that was not a known code
	UnrecognizedCodeHook func(d *errors.UnrecognizedCodeError)

	// KeyMismatchHook is called when the output visit keys differ from the identity list
	KeyMismatchHook func(err *errors.KeyMismatchError)
)

// Compile-time interface check to ensure proper implementation.
var _ Hooks = (*pipeline)(nil)

// Hooks provides event callback registration.
type Hooks interface {
	// OnValueFilled registers a callback for filled values
	OnValueFilled(ValueFilledHook)

	// OnUnrecognizedCode registers a callback for QC diagnostics
	OnUnrecognizedCode(UnrecognizedCodeHook)

	// OnKeyMismatch registers a callback for visit key mismatches
	OnKeyMismatch(KeyMismatchHook)
}

// hooks manages event callbacks for pipeline runs
type hooks struct {
	mu                 sync.RWMutex
	onValueFilled      []ValueFilledHook
	onUnrecognizedCode []UnrecognizedCodeHook
	onKeyMismatch      []KeyMismatchHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnValueFilled registers a callback for filled values.
func (p *pipeline) OnValueFilled(fn ValueFilledHook) {
	p.hooks.mu.Lock()
	defer p.hooks.mu.Unlock()
	p.hooks.onValueFilled = append(p.hooks.onValueFilled, fn)
}

// OnUnrecognizedCode registers a callback for QC diagnostics.
func (p *pipeline) OnUnrecognizedCode(fn UnrecognizedCodeHook) {
	p.hooks.mu.Lock()
	defer p.hooks.mu.Unlock()
	p.hooks.onUnrecognizedCode = append(p.hooks.onUnrecognizedCode, fn)
}

// OnKeyMismatch registers a callback for visit key mismatches.
func (p *pipeline) OnKeyMismatch(fn KeyMismatchHook) {
	p.hooks.mu.Lock()
	defer p.hooks.mu.Unlock()
	p.hooks.onKeyMismatch = append(p.hooks.onKeyMismatch, fn)
}

// triggerFilled calls the value hooks in subject then field order.
func (h *hooks) triggerFilled(m provenance.Map) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.onValueFilled) == 0 {
		return
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		subjectID, _, _ := strings.Cut(k, ":")
		for _, p := range m[k] {
			for _, hook := range h.onValueFilled {
				hook(subjectID, p)
			}
		}
	}
}

// triggerDiagnostics calls the QC code hooks in diagnostic order.
func (h *hooks) triggerDiagnostics(diags []*errors.UnrecognizedCodeError) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, d := range diags {
		for _, hook := range h.onUnrecognizedCode {
			hook(d)
		}
	}
}

// triggerKeyMismatch calls the key mismatch hooks.
func (h *hooks) triggerKeyMismatch(err *errors.KeyMismatchError) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onKeyMismatch {
		hook(err)
	}
}
