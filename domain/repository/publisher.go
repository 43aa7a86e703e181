package repository

import (
	"context"

	"social-scheduler/domain/model"
)

// IPublisher posts content to one external platform. Implementations must
// return a PublishResult rather than panic; an error return is treated by the
// dispatcher as a retryable failure of class "other".
type IPublisher interface {
	Platform() string
	Publish(ctx context.Context, post *model.ScheduledPost) (*model.PublishResult, error)
}

// IPublisherRegistry resolves the publisher for a post's platform.
type IPublisherRegistry interface {
	Resolve(platform string) (IPublisher, bool)
	Platforms() []string
}
