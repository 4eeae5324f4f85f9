package cluster

import (
	"errors"
	"fmt"

	"github.com/inference-sim/aika/sim"
)

var (
	// ErrRollbackFailure is matched by every RollbackError.
	ErrRollbackFailure = errors.New("rollback failure")
	// ErrSyncDiverged is returned when the barrier fixpoint does not settle.
	ErrSyncDiverged = errors.New("synchronization did not converge")
	// ErrGVTRegression is returned if GVT would move backwards.
	ErrGVTRegression = errors.New("GVT moved backwards")
	// ErrZeroLookahead is returned for a cross-planet message without delay.
	ErrZeroLookahead = errors.New("cross-planet messages need a delay of at least one tick")
)

// RollbackError reports that no checkpoint covers the required time.
type RollbackError struct {
	Planet int
	Target sim.Time
	Oldest sim.Time // earliest checkpoint held, if any
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("planet %d: no checkpoint at or before t=%d (oldest t=%d)", e.Planet, e.Target, e.Oldest)
}

func (e *RollbackError) Is(target error) bool { return target == ErrRollbackFailure }

// IsRollbackFailure returns true if err is or wraps a RollbackError.
func IsRollbackFailure(err error) bool {
	return errors.Is(err, ErrRollbackFailure)
}

// PlanetError attributes a failure to a planet.
type PlanetError struct {
	Planet int
	Err    error
}

func (e *PlanetError) Error() string {
	return fmt.Sprintf("planet %d: %v", e.Planet, e.Err)
}

func (e *PlanetError) Unwrap() error { return e.Err }
