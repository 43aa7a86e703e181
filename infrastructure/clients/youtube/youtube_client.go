package youtube

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"social-scheduler/infrastructure/configuration"
)

// Client wraps the YouTube Data API for scheduled publishing. Videos are
// uploaded ahead of time as private; publishing flips them public at the
// scheduled moment.
type Client struct {
	service   *youtube.Service
	channelID string
}

// NewYouTubeClient creates a YouTube API client in OAuth2 mode. An API key
// alone is not enough: publishing mutates video status.
func NewYouTubeClient(ctx context.Context, config *configuration.YouTubeConfig) (*Client, error) {
	if config.AccessToken == "" && config.RefreshToken == "" {
		return nil, fmt.Errorf("youtube oauth tokens not configured")
	}

	oauth2Config := &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURL:  config.RedirectURL,
		Scopes: []string{
			youtube.YoutubeScope,
			youtube.YoutubeForceSslScope,
		},
		Endpoint: google.Endpoint,
	}

	token := &oauth2.Token{
		AccessToken:  config.AccessToken,
		RefreshToken: config.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(-1 * time.Minute), // Force refresh on first use
	}

	httpClient := oauth2Config.Client(ctx, token)
	service, err := youtube.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return &Client{
		service:   service,
		channelID: config.ChannelID,
	}, nil
}

// PublishVideo updates the video's metadata and flips its privacy status to
// public. Returns the video ID on success.
func (c *Client) PublishVideo(ctx context.Context, videoID, title, description string, tags []string) (string, error) {
	video := &youtube.Video{
		Id: videoID,
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: description,
			Tags:        tags,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "public",
		},
	}
	call := c.service.Videos.Update([]string{"snippet", "status"}, video).Context(ctx)
	updated, err := call.Do()
	if err != nil {
		return "", err
	}
	return updated.Id, nil
}

// StatusCode extracts the HTTP status from a YouTube API error, 0 when the
// error is not a googleapi error.
func StatusCode(err error) int {
	if apiErr, ok := err.(*googleapi.Error); ok {
		return apiErr.Code
	}
	return 0
}
