package threadsafe_ulid

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ThreadSafeUlid hands out monotonic ULIDs for submission records
type ThreadSafeUlid struct {
	now  func() time.Time
	safe *safeMonotonicReader
}

func NewThreadSafeUlid() *ThreadSafeUlid {
	return NewThreadSafeUlidWithClock(time.Now)
}

// NewThreadSafeUlidWithClock uses now for the ULID timestamp component
func NewThreadSafeUlidWithClock(now func() time.Time) *ThreadSafeUlid {
	seed := time.Now().UnixNano()
	return &ThreadSafeUlid{
		now:  now,
		safe: &safeMonotonicReader{MonotonicReader: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)},
	}
}

func (u *ThreadSafeUlid) NewUlid() (ulid.ULID, error) {
	return ulid.New(ulid.Timestamp(u.now()), u.safe)
}

// IsUlid reports whether id parses as a ULID
func IsUlid(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}

type safeMonotonicReader struct {
	mtx sync.Mutex
	ulid.MonotonicReader
}

func (r *safeMonotonicReader) MonotonicRead(ms uint64, p []byte) (err error) {
	r.mtx.Lock()
	err = r.MonotonicReader.MonotonicRead(ms, p)
	r.mtx.Unlock()
	return err
}
