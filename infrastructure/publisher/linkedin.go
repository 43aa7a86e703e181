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

// LinkedInPublisher creates UGC posts. The author URN member id is stored as
// the token's page id.
type LinkedInPublisher struct {
	tokens  repository.IOAuthToken
	client  *http.Client
	baseURL string
}

func NewLinkedInPublisher(tokens repository.IOAuthToken) repository.IPublisher {
	return &LinkedInPublisher{
		tokens:  tokens,
		client:  http.DefaultClient,
		baseURL: "https://api.linkedin.com",
	}
}

func (p *LinkedInPublisher) Platform() string { return model.PlatformLinkedIn }

func (p *LinkedInPublisher) Publish(ctx context.Context, post *model.ScheduledPost) (*model.PublishResult, error) {
	payload, err := ParsePayload(post.Payload)
	if err != nil {
		return nonRetryable(fmt.Sprintf("linkedin: invalid payload: %v", err)), nil
	}
	tok, failure, err := lookupToken(ctx, p.tokens, post.OwnerID, model.PlatformLinkedIn)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return failure, nil
	}
	if tok.PageID == nil {
		return nonRetryable("linkedin: no member id linked to token"), nil
	}

	ugcPost := map[string]interface{}{
		"author":         fmt.Sprintf("urn:li:person:%s", *tok.PageID),
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": map[string]interface{}{
				"shareCommentary": map[string]string{
					"text": payload.Message(),
				},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}
	body, err := json.Marshal(ugcPost)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v2/ugcPosts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return networkFailure(model.PlatformLinkedIn, err), nil
	}
	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return failureFromStatus(model.PlatformLinkedIn, resp.StatusCode, respBody), nil
	}

	postID := resp.Header.Get("X-RestLi-Id")
	if postID == "" {
		var liResp struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(respBody, &liResp)
		postID = liResp.ID
	}
	return &model.PublishResult{Success: true, PlatformPostID: postID}, nil
}
