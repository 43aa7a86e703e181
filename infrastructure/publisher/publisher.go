package publisher

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
)

// PostPayload is the common shape of a scheduled post payload. Platforms use
// the subset of fields they understand.
type PostPayload struct {
	Text        string   `json:"text"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Link        string   `json:"link,omitempty"`
	MediaURL    string   `json:"media_url,omitempty"`
	VideoID     string   `json:"video_id,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

func ParsePayload(raw json.RawMessage) (*PostPayload, error) {
	var p PostPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Message renders the text body the way posts are composed: text, optional
// description, tags, then link.
func (p *PostPayload) Message() string {
	parts := []string{}
	if p.Text != "" {
		parts = append(parts, p.Text)
	} else if p.Title != "" {
		parts = append(parts, p.Title)
	}
	if p.Description != "" {
		desc := p.Description
		if len(desc) > 500 {
			desc = desc[:497] + "..."
		}
		parts = append(parts, desc)
	}
	if len(p.Tags) > 0 {
		tags := make([]string, 0, len(p.Tags))
		for _, tag := range p.Tags {
			if !strings.HasPrefix(tag, "#") {
				tag = "#" + tag
			}
			tags = append(tags, tag)
		}
		parts = append(parts, strings.Join(tags, " "))
	}
	if p.Link != "" {
		parts = append(parts, p.Link)
	}
	return strings.Join(parts, "\n\n")
}

func nonRetryable(msg string) *model.PublishResult {
	retryable := false
	return &model.PublishResult{Success: false, Error: msg, Retryable: &retryable}
}

// failureFromStatus maps a platform HTTP error response to a publish result.
// The error text deliberately carries the words the backoff classifier keys
// on ("rate limit", "quota").
func failureFromStatus(platform string, status int, body []byte) *model.PublishResult {
	retryable := status == 429 || status >= 500
	var msg string
	switch {
	case status == 429:
		msg = fmt.Sprintf("%s rate limit exceeded (429): %s", platform, truncate(body, 200))
	case status >= 500:
		msg = fmt.Sprintf("%s server error (%d): %s", platform, status, truncate(body, 200))
	default:
		msg = fmt.Sprintf("%s rejected post (%d): %s", platform, status, truncate(body, 200))
	}
	return &model.PublishResult{Success: false, Error: msg, Retryable: &retryable}
}

func networkFailure(platform string, err error) *model.PublishResult {
	retryable := true
	return &model.PublishResult{
		Success:   false,
		Error:     fmt.Sprintf("%s network error: %v", platform, err),
		Retryable: &retryable,
	}
}

func truncate(body []byte, n int) string {
	s := string(body)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

// lookupToken fetches the owner's stored credential for a platform. A missing
// token is a permanent failure; a store error propagates so the dispatcher
// schedules a retry.
func lookupToken(ctx context.Context, tokens repository.IOAuthToken, ownerID, platform string) (*model.OAuthToken, *model.PublishResult, error) {
	if tokens == nil {
		return nil, nonRetryable(platform + ": credential store not configured"), nil
	}
	tok, err := tokens.GetToken(ctx, ownerID, platform)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nonRetryable("missing " + platform + " token"), nil
		}
		return nil, nil, err
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, nonRetryable("missing " + platform + " token"), nil
	}
	return tok, nil, nil
}

// Registry maps platform names to their publisher adapters.
type Registry struct {
	pubs map[string]repository.IPublisher
}

func NewRegistry(pubs ...repository.IPublisher) repository.IPublisherRegistry {
	m := make(map[string]repository.IPublisher, len(pubs))
	for _, p := range pubs {
		if p == nil {
			continue
		}
		m[strings.ToLower(p.Platform())] = p
	}
	return &Registry{pubs: m}
}

func (r *Registry) Resolve(platform string) (repository.IPublisher, bool) {
	p, ok := r.pubs[strings.ToLower(platform)]
	return p, ok
}

func (r *Registry) Platforms() []string {
	names := make([]string, 0, len(r.pubs))
	for name := range r.pubs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
