package pubsub_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-scheduler/infrastructure/pubsub"
)

func TestNewInvalidationBus(t *testing.T) {
	bus := pubsub.NewInvalidationBus(nil)
	assert.NotNil(t, bus)
}

// A nil client degrades to a no-op so dispatch never blocks on Pub/Sub.
func TestInvalidationBusNilClient(t *testing.T) {
	bus := pubsub.NewInvalidationBus(nil)

	id, err := bus.PublishInvalidation(context.Background(), "scheduler:posts:*")
	require.NoError(t, err)
	require.Empty(t, id)
}
