package testutil

import (
	"context"

	"github.com/billsync/billsync/internal/types"
)

func SetupContext() context.Context {
	return types.SetRequestID(context.Background(), types.GenerateUUIDWithPrefix("req"))
}
