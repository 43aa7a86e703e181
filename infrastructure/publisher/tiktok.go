package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
)

// TikTokPublisher posts through the Content Posting API using a video already
// hosted at the payload's media URL.
type TikTokPublisher struct {
	tokens  repository.IOAuthToken
	client  *http.Client
	baseURL string
}

func NewTikTokPublisher(tokens repository.IOAuthToken) repository.IPublisher {
	return &TikTokPublisher{
		tokens:  tokens,
		client:  http.DefaultClient,
		baseURL: "https://open.tiktokapis.com",
	}
}

func (p *TikTokPublisher) Platform() string { return model.PlatformTikTok }

func (p *TikTokPublisher) Publish(ctx context.Context, post *model.ScheduledPost) (*model.PublishResult, error) {
	payload, err := ParsePayload(post.Payload)
	if err != nil {
		return nonRetryable(fmt.Sprintf("tiktok: invalid payload: %v", err)), nil
	}
	if payload.MediaURL == "" {
		return nonRetryable("tiktok: payload has no media_url"), nil
	}
	tok, failure, err := lookupToken(ctx, p.tokens, post.OwnerID, model.PlatformTikTok)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return failure, nil
	}

	reqBody := map[string]interface{}{
		"post_info": map[string]interface{}{
			"title":           payload.Message(),
			"privacy_level":   "PUBLIC_TO_EVERYONE",
			"disable_comment": false,
		},
		"source_info": map[string]interface{}{
			"source":    "PULL_FROM_URL",
			"video_url": payload.MediaURL,
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v2/post/publish/video/init/", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return networkFailure(model.PlatformTikTok, err), nil
	}
	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return failureFromStatus(model.PlatformTikTok, resp.StatusCode, respBody), nil
	}

	var ttResp struct {
		Data struct {
			PublishID string `json:"publish_id"`
		} `json:"data"`
	}
	_ = json.Unmarshal(respBody, &ttResp)
	return &model.PublishResult{Success: true, PlatformPostID: ttResp.Data.PublishID}, nil
}
