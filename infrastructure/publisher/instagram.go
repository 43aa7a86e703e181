package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
)

// InstagramPublisher publishes through the Graph API content publishing flow:
// create a media container, then publish it. Requires a business account id
// stored as the token's page id and an image URL in the payload.
type InstagramPublisher struct {
	tokens  repository.IOAuthToken
	client  *http.Client
	baseURL string
}

func NewInstagramPublisher(tokens repository.IOAuthToken) repository.IPublisher {
	return &InstagramPublisher{
		tokens:  tokens,
		client:  http.DefaultClient,
		baseURL: "https://graph.facebook.com/v19.0",
	}
}

func (p *InstagramPublisher) Platform() string { return model.PlatformInstagram }

func (p *InstagramPublisher) Publish(ctx context.Context, post *model.ScheduledPost) (*model.PublishResult, error) {
	payload, err := ParsePayload(post.Payload)
	if err != nil {
		return nonRetryable(fmt.Sprintf("instagram: invalid payload: %v", err)), nil
	}
	if payload.MediaURL == "" {
		return nonRetryable("instagram: payload has no media_url"), nil
	}
	tok, failure, err := lookupToken(ctx, p.tokens, post.OwnerID, model.PlatformInstagram)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return failure, nil
	}
	if tok.PageID == nil {
		return nonRetryable("instagram: no business account linked to token"), nil
	}
	account := url.PathEscape(*tok.PageID)

	containerID, failureRes, err := p.graphPost(ctx, fmt.Sprintf("%s/%s/media", p.baseURL, account), url.Values{
		"image_url":    {payload.MediaURL},
		"caption":      {payload.Message()},
		"access_token": {tok.AccessToken},
	})
	if err != nil || failureRes != nil {
		return failureRes, err
	}

	mediaID, failureRes, err := p.graphPost(ctx, fmt.Sprintf("%s/%s/media_publish", p.baseURL, account), url.Values{
		"creation_id":  {containerID},
		"access_token": {tok.AccessToken},
	})
	if err != nil || failureRes != nil {
		return failureRes, err
	}
	return &model.PublishResult{Success: true, PlatformPostID: mediaID}, nil
}

func (p *InstagramPublisher) graphPost(ctx context.Context, endpoint string, form url.Values) (string, *model.PublishResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", networkFailure(model.PlatformInstagram, err), nil
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", failureFromStatus(model.PlatformInstagram, resp.StatusCode, body), nil
	}

	var igResp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &igResp)
	if igResp.ID == "" {
		return "", nonRetryable("instagram: response missing media id"), nil
	}
	return igResp.ID, nil, nil
}
