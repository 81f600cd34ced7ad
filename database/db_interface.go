package database

import (
	"time"

	"github.com/chainpoint/stacking-api/types"
)

// StackingDatabase : local state kept by the api. Lookups of absent keys return level.ErrNotFound.
type StackingDatabase interface {
	SaveSubmission(sub types.Submission) error
	GetSubmission(idOrTxID string) (types.Submission, error)
	GetBlockTimes() (types.NetworkBlockTimes, error)
	SetBlockTimes(times types.NetworkBlockTimes, ttl time.Duration) error
	Close() error
}
