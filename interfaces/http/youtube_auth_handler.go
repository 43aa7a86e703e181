package http

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/configuration"
	"social-scheduler/infrastructure/logger"
)

type IYouTubeAuthHandler interface {
	GetAuthURL(ctx *gin.Context)
	HandleCallback(ctx *gin.Context)
	Status(ctx *gin.Context)
}

type youTubeAuthHandler struct {
	oauth2Config *oauth2.Config
	tokenRepo    repository.IOAuthToken
}

func NewYouTubeAuthHandler(tokenRepo repository.IOAuthToken) (IYouTubeAuthHandler, error) {
	config, err := configuration.GetYouTubeConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get YouTube config: %w", err)
	}

	oauth2Config := &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURL:  config.RedirectURL,
		Scopes: []string{
			youtube.YoutubeScope,
			youtube.YoutubeUploadScope,
			youtube.YoutubeForceSslScope,
		},
		Endpoint: google.Endpoint,
	}

	return &youTubeAuthHandler{oauth2Config: oauth2Config, tokenRepo: tokenRepo}, nil
}

// GetAuthURL handles GET /auth/youtube
func (h *youTubeAuthHandler) GetAuthURL(ctx *gin.Context) {
	state := generateRandomState()
	ctx.SetCookie("oauth_state", state, 600, "/", "", false, true)

	authURL := h.oauth2Config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	ctx.JSON(http.StatusOK, gin.H{"auth_url": authURL})
}

// HandleCallback handles GET /auth/youtube/callback: exchanges the code and
// stores the token so scheduled YouTube posts can publish with it.
func (h *youTubeAuthHandler) HandleCallback(ctx *gin.Context) {
	if errorParam := ctx.Query("error"); errorParam != "" {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":       fmt.Sprintf("OAuth error: %s", errorParam),
			"description": ctx.Query("error_description"),
		})
		return
	}

	state := ctx.Query("state")
	cookieState, err := ctx.Cookie("oauth_state")
	if state == "" || err != nil || state != cookieState {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":  "invalid state parameter",
			"action": "Visit /auth/youtube to start over",
		})
		return
	}

	code := ctx.Query("code")
	if code == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "authorization code not found"})
		return
	}

	token, err := h.oauth2Config.Exchange(ctx.Request.Context(), code)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to exchange code for token",
			"message": err.Error(),
		})
		return
	}

	ctx.SetCookie("oauth_state", "", -1, "/", "", false, true)

	userID := ctx.GetString("user_id")
	if userID == "" { // fallback for dev
		userID = "demo-user"
	}
	expiry := token.Expiry.UTC()
	tok := &model.OAuthToken{
		UserID:       userID,
		Platform:     "youtube",
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    &expiry,
		Scopes:       youtube.YoutubeScope,
	}
	if err := h.tokenRepo.UpsertToken(ctx.Request.Context(), tok); err != nil {
		logger.GetLogger().WithField("error", err).Error("failed to upsert youtube token")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "store_token_failed"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"connected":  true,
		"token_type": token.TokenType,
		"expiry":     token.Expiry,
	})
}

// Status reports whether a youtube token is stored for the caller.
func (h *youTubeAuthHandler) Status(ctx *gin.Context) {
	userID := ctx.GetString("user_id")
	if userID == "" {
		userID = "demo-user"
	}
	tok, err := h.tokenRepo.GetToken(ctx.Request.Context(), userID, "youtube")
	if err != nil || tok == nil || tok.AccessToken == "" {
		ctx.JSON(http.StatusOK, gin.H{"connected": false})
		return
	}
	resp := gin.H{"connected": true}
	if tok.ExpiresAt != nil {
		resp["expires_at"] = tok.ExpiresAt.Format(time.RFC3339)
	}
	ctx.JSON(http.StatusOK, resp)
}

func generateRandomState() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.StdEncoding.EncodeToString(b)
}
