package repository

import (
	"context"

	"social-scheduler/domain/model"
)

// IOAuthToken is the credential provider consumed by publisher adapters.
type IOAuthToken interface {
	GetToken(ctx context.Context, userID, platform string) (*model.OAuthToken, error)
	UpsertToken(ctx context.Context, token *model.OAuthToken) error
}
