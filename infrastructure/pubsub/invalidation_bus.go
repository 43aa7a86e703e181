package pubsub

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"cloud.google.com/go/pubsub"

	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/logger"
)

const invalidationTopic = "scheduler-cache-invalidation"

// InvalidationMessage is the payload broadcast to other instances so they can
// drop their local list caches.
type InvalidationMessage struct {
	Pattern     string    `json:"pattern"`
	PublishedAt time.Time `json:"published_at"`
}

type InvalidationBus struct {
	PubSubClient *pubsub.Client
}

func NewInvalidationBus(pubSubClient *pubsub.Client) repository.IInvalidationBus {
	return &InvalidationBus{
		PubSubClient: pubSubClient,
	}
}

func (bus *InvalidationBus) PublishInvalidation(ctx context.Context, pattern string) (string, error) {
	if bus.PubSubClient == nil {
		logger.GetLogger().Debug("PubSub client is nil - skipping invalidation broadcast")
		return "", nil
	}

	payload, err := json.Marshal(InvalidationMessage{
		Pattern:     pattern,
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}
	msg := &pubsub.Message{
		Data: payload,
	}

	topic := bus.PubSubClient.Topic(invalidationTopic)

	// Create the topic if it doesn't exist.
	exists, err := topic.Exists(ctx)
	if err != nil {
		return "", err
	}
	if !exists {
		log.Printf("Topic %v doesn't exist - creating it", invalidationTopic)
		if _, err = bus.PubSubClient.CreateTopic(ctx, invalidationTopic); err != nil {
			return "", err
		}
	}

	serverId, err := topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", err
	}

	logger.GetLogger().WithField("server ID", serverId).Info("Invalidation published")
	return serverId, nil
}

// GetSubscription returns the subscription other instances listen on for
// invalidation messages.
func (bus *InvalidationBus) GetSubscription(subID string) (*pubsub.Subscription, error) {
	logger.GetLogger().WithField("subID", subID).Info("PubSub starting...")

	return bus.PubSubClient.Subscription(subID), nil
}
