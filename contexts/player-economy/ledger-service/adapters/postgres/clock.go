package postgresadapter

import "time"

// SystemClock is the runtime clock for the ledger.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
