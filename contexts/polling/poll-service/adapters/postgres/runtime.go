package postgresadapter

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SystemClock and UUIDGenerator back the poll use cases in production.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
