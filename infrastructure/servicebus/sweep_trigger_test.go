package servicebus_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-scheduler/infrastructure/servicebus"
)

func TestNewSweepTrigger(t *testing.T) {
	trigger := servicebus.NewSweepTrigger(nil)
	assert.NotNil(t, trigger)
}

func TestSweepTriggerNilClient(t *testing.T) {
	trigger := servicebus.NewSweepTrigger(nil)

	err := trigger.SendTrigger(context.Background(), "manual")
	require.NoError(t, err)
}

// With a nil client the listener must block until cancellation instead of
// spinning.
func TestSweepTriggerListenNilClient(t *testing.T) {
	trigger := servicebus.NewSweepTrigger(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := trigger.Listen(ctx, func(ctx context.Context) {
		t.Fatal("onTrigger should never fire without a client")
	})
	require.NoError(t, err)
}
