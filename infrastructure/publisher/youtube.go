package publisher

import (
	"context"
	"fmt"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/clients/youtube"
)

// YouTubePublisher flips a pre-uploaded private video to public through the
// Data API. The payload must carry the video id.
type YouTubePublisher struct {
	client *youtube.Client
}

func NewYouTubePublisher(client *youtube.Client) repository.IPublisher {
	return &YouTubePublisher{client: client}
}

func (p *YouTubePublisher) Platform() string { return model.PlatformYouTube }

func (p *YouTubePublisher) Publish(ctx context.Context, post *model.ScheduledPost) (*model.PublishResult, error) {
	if p.client == nil {
		return nonRetryable("youtube: client not configured"), nil
	}
	payload, err := ParsePayload(post.Payload)
	if err != nil {
		return nonRetryable(fmt.Sprintf("youtube: invalid payload: %v", err)), nil
	}
	if payload.VideoID == "" {
		return nonRetryable("youtube: payload has no video_id"), nil
	}

	title := payload.Title
	if title == "" {
		title = payload.Text
	}
	videoID, err := p.client.PublishVideo(ctx, payload.VideoID, title, payload.Description, payload.Tags)
	if err != nil {
		switch code := youtube.StatusCode(err); {
		case code == 403:
			// YouTube reports daily limit exhaustion as 403 quotaExceeded
			retryable := true
			return &model.PublishResult{
				Success:   false,
				Error:     fmt.Sprintf("youtube quota exceeded: %v", err),
				Retryable: &retryable,
			}, nil
		case code == 429 || code >= 500:
			return failureFromStatus(model.PlatformYouTube, code, []byte(err.Error())), nil
		case code > 0:
			return nonRetryable(fmt.Sprintf("youtube rejected post (%d): %v", code, err)), nil
		default:
			return networkFailure(model.PlatformYouTube, err), nil
		}
	}
	return &model.PublishResult{Success: true, PlatformPostID: videoID}, nil
}
