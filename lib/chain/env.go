// Package chain provides the execution environment the pool and the manager
// run in: transactions are serialized and either apply fully or not at all.
package chain

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	// ErrReverted wraps a panic raised while a transaction was executing.
	ErrReverted = errors.New("execution reverted")
	// ErrBusy is returned when another transaction is open and the caller's
	// context cannot be cancelled, so waiting for it could never end.
	ErrBusy = errors.New("transaction in progress")
)

// Journaled is state that can be rolled back. Checkpoint captures the
// current state and returns the function that restores it.
type Journaled interface {
	Checkpoint() (restore func())
}

type Env struct {
	// sem holds a token while a top level transaction is open.
	sem          chan struct{}
	participants []Journaled
	logger       *zap.Logger
}

func NewEnv(logger *zap.Logger) *Env {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Env{sem: make(chan struct{}, 1), logger: logger}
}

// Register adds state that every transaction checkpoints.
func (e *Env) Register(js ...Journaled) {
	e.sem <- struct{}{}
	defer e.release()
	e.participants = append(e.participants, js...)
}

// Atomic runs fn as a transaction. Top level transactions are serialized.
// A transaction started from within another one on the same Env acts as a
// savepoint: its failure only rolls back its own changes.
//
// A top level transaction waits for the open one until ctx is done. With a
// context that is never done it fails with ErrBusy instead of waiting.
func (e *Env) Atomic(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if !inTx(ctx, e) {
		if err := e.acquire(ctx); err != nil {
			return err
		}
		defer e.release()
		ctx = context.WithValue(ctx, txKey{}, e)
	}

	restores := make([]func(), len(e.participants))
	for i, p := range e.participants {
		restores[i] = p.Checkpoint()
	}

	defer func() {
		if r := recover(); r != nil {
			if perr, ok := r.(error); ok {
				err = fmt.Errorf("%w: %w", ErrReverted, perr)
			} else {
				err = fmt.Errorf("%w: %v", ErrReverted, r)
			}
		}
		if err == nil {
			return
		}
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		e.logger.Debug("transaction rolled back", zap.Error(err))
	}()

	return fn(ctx)
}

func (e *Env) acquire(ctx context.Context) error {
	select {
	case e.sem <- struct{}{}:
		return nil
	default:
	}
	if ctx.Done() == nil {
		return ErrBusy
	}
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Env) release() {
	<-e.sem
}
