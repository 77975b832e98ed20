package cadence

import (
	"fmt"

	"github.com/northstarhq/api/pkg/domain/shared"
)

var (
	// ErrHasTimeframes is returned when deleting a cadence that still
	// has timeframes attached.
	ErrHasTimeframes = fmt.Errorf("%w: cadence has timeframes", shared.ErrConflict)

	// ErrTimeframeInUse is returned when deleting a timeframe that
	// still has objectives attached.
	ErrTimeframeInUse = fmt.Errorf("%w: timeframe has objectives", shared.ErrConflict)
)
