package level

import (
	"strings"
	"time"

	"github.com/chainpoint/stacking-api/types"
)

const (
	submissionPrefix = "submission:"
	txIndexPrefix    = "txid:"
	blockTimesKey    = "network_block_times"
	txIDLength       = 66
)

// SaveSubmission stores a broadcast record under its id and indexes it by txid
func (cache *Cache) SaveSubmission(sub types.Submission) error {
	if err := cache.SetJSON(submissionPrefix+sub.ID, sub, 0); err != nil {
		return err
	}
	return cache.SetJSON(txIndexPrefix+strings.ToLower(sub.TxID), sub.ID, 0)
}

// GetSubmission looks a record up by submission id or by txid
func (cache *Cache) GetSubmission(idOrTxID string) (types.Submission, error) {
	var sub types.Submission
	id := idOrTxID
	if len(idOrTxID) == txIDLength && strings.HasPrefix(strings.ToLower(idOrTxID), "0x") {
		if err := cache.GetJSON(txIndexPrefix+strings.ToLower(idOrTxID), &id); err != nil {
			return sub, err
		}
	}
	err := cache.GetJSON(submissionPrefix+id, &sub)
	return sub, err
}

// GetBlockTimes returns cached network block times
func (cache *Cache) GetBlockTimes() (types.NetworkBlockTimes, error) {
	var times types.NetworkBlockTimes
	err := cache.GetJSON(blockTimesKey, &times)
	return times, err
}

// SetBlockTimes caches network block times until ttl elapses
func (cache *Cache) SetBlockTimes(times types.NetworkBlockTimes, ttl time.Duration) error {
	return cache.SetJSON(blockTimesKey, times, ttl)
}
