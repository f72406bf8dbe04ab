package service

import (
	"time"

	"go.uber.org/zap"

	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/metrics"
)

type TxState string

const (
	StateStarted      TxState = "STARTED"
	StateValidating   TxState = "VALIDATING"
	StateDecrementing TxState = "DECREMENTING"
	StateRestoring    TxState = "RESTORING"
	StatePersisting   TxState = "PERSISTING"
	StateCommitted    TxState = "COMMITTED"
	StateRolledBack   TxState = "ROLLED_BACK"
)

var transitions = map[TxState][]TxState{
	StateStarted:      {StateValidating},
	StateValidating:   {StateDecrementing, StateRestoring, StatePersisting},
	StateDecrementing: {StatePersisting},
	StateRestoring:    {StatePersisting},
	StatePersisting:   {StateCommitted},
}

func (s TxState) Terminal() bool {
	return s == StateCommitted || s == StateRolledBack
}

// CanTransition reports whether next may follow s. Any non-terminal state
// may roll back.
func (s TxState) CanTransition(next TxState) bool {
	if s.Terminal() {
		return false
	}
	if next == StateRolledBack {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// txRun tracks one coordinator invocation through its states.
type txRun struct {
	operation string
	state     TxState
	started   time.Time
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func newTxRun(operation string, logger *zap.Logger, m *metrics.Metrics, fields ...zap.Field) *txRun {
	return &txRun{
		operation: operation,
		state:     StateStarted,
		started:   time.Now(),
		logger:    logger.With(append(fields, zap.String("operation", operation))...),
		metrics:   m,
	}
}

func (r *txRun) advance(next TxState) {
	if !r.state.CanTransition(next) {
		r.logger.DPanic("illegal transaction state transition",
			zap.String("from", string(r.state)), zap.String("to", string(next)))
		return
	}
	r.logger.Debug("transaction state", zap.String("from", string(r.state)), zap.String("to", string(next)))
	r.state = next
}

func (r *txRun) with(fields ...zap.Field) {
	r.logger = r.logger.With(fields...)
}

// finish moves a run that did not commit to ROLLED_BACK and records the outcome.
func (r *txRun) finish(err error) {
	kind := ""
	if err == nil && r.state != StateCommitted {
		// Nothing to write: the deferred rollback released the locks.
		r.advance(StateRolledBack)
		r.logger.Info("transaction closed without changes")
	} else if err != nil {
		if !r.state.Terminal() {
			r.advance(StateRolledBack)
		}
		kind = string(domain.KindOf(err))
		if domain.KindOf(err) == domain.KindUnexpected {
			r.logger.Error("transaction rolled back", zap.String("state", string(r.state)), zap.Error(err))
		} else {
			r.logger.Warn("transaction rolled back",
				zap.String("state", string(r.state)), zap.String("error_kind", kind), zap.Error(err))
		}
	} else {
		r.logger.Info("transaction committed", zap.Duration("elapsed", time.Since(r.started)))
	}

	if r.metrics != nil {
		r.metrics.ObserveTx(r.operation, string(r.state), kind, r.started)
	}
}
