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

// TwitterPublisher creates tweets through the v2 API with the owner's OAuth2
// user token.
type TwitterPublisher struct {
	tokens  repository.IOAuthToken
	client  *http.Client
	baseURL string
}

func NewTwitterPublisher(tokens repository.IOAuthToken) repository.IPublisher {
	return &TwitterPublisher{
		tokens:  tokens,
		client:  http.DefaultClient,
		baseURL: "https://api.twitter.com",
	}
}

func (p *TwitterPublisher) Platform() string { return model.PlatformTwitter }

func (p *TwitterPublisher) Publish(ctx context.Context, post *model.ScheduledPost) (*model.PublishResult, error) {
	payload, err := ParsePayload(post.Payload)
	if err != nil {
		return nonRetryable(fmt.Sprintf("twitter: invalid payload: %v", err)), nil
	}
	tok, failure, err := lookupToken(ctx, p.tokens, post.OwnerID, model.PlatformTwitter)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return failure, nil
	}

	text := payload.Message()
	if text == "" {
		return nonRetryable("twitter: empty post text"), nil
	}
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return networkFailure(model.PlatformTwitter, err), nil
	}
	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return failureFromStatus(model.PlatformTwitter, resp.StatusCode, respBody), nil
	}

	var twResp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	_ = json.Unmarshal(respBody, &twResp)
	return &model.PublishResult{Success: true, PlatformPostID: twResp.Data.ID}, nil
}
