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

// FacebookPublisher posts to a page feed through the Graph API. The owner's
// stored token must carry a page id.
type FacebookPublisher struct {
	tokens  repository.IOAuthToken
	client  *http.Client
	baseURL string
}

func NewFacebookPublisher(tokens repository.IOAuthToken) repository.IPublisher {
	return &FacebookPublisher{
		tokens:  tokens,
		client:  http.DefaultClient,
		baseURL: "https://graph.facebook.com/v19.0",
	}
}

func (p *FacebookPublisher) Platform() string { return model.PlatformFacebook }

func (p *FacebookPublisher) Publish(ctx context.Context, post *model.ScheduledPost) (*model.PublishResult, error) {
	payload, err := ParsePayload(post.Payload)
	if err != nil {
		return nonRetryable(fmt.Sprintf("facebook: invalid payload: %v", err)), nil
	}
	tok, failure, err := lookupToken(ctx, p.tokens, post.OwnerID, model.PlatformFacebook)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return failure, nil
	}
	if tok.PageID == nil {
		return nonRetryable("facebook: no page linked to token"), nil
	}

	form := url.Values{}
	form.Set("message", payload.Message())
	if payload.Link != "" {
		form.Set("link", payload.Link)
	}
	form.Set("access_token", tok.AccessToken)
	postURL := fmt.Sprintf("%s/%s/feed", p.baseURL, url.PathEscape(*tok.PageID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return networkFailure(model.PlatformFacebook, err), nil
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return failureFromStatus(model.PlatformFacebook, resp.StatusCode, body), nil
	}

	var fbResp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &fbResp)
	return &model.PublishResult{Success: true, PlatformPostID: fbResp.ID}, nil
}
