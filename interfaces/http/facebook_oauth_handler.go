package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/configuration"
	"social-scheduler/infrastructure/logger"
)

const facebookScopes = "pages_show_list,pages_read_engagement,pages_manage_posts,public_profile"

type IFacebookOAuthHandler interface {
	GetAuthURL(ctx *gin.Context)
	Callback(ctx *gin.Context)
	Status(ctx *gin.Context)
}

type facebookOAuthHandler struct {
	tokenRepo repository.IOAuthToken
	stateMu   sync.Mutex
	states    map[string]time.Time // state -> expiry
}

func NewFacebookOAuthHandler(tokenRepo repository.IOAuthToken) IFacebookOAuthHandler {
	return &facebookOAuthHandler{tokenRepo: tokenRepo, states: map[string]time.Time{}}
}

func randomState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// GetAuthURL builds the Facebook OAuth dialog URL; the user approves in a
// browser and lands on Callback.
func (h *facebookOAuthHandler) GetAuthURL(c *gin.Context) {
	conf := configuration.C.OAuth.Facebook
	if conf.ClientID == "" || conf.RedirectURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "facebook oauth not configured"})
		return
	}
	state := randomState()
	h.stateMu.Lock()
	h.states[state] = time.Now().Add(10 * time.Minute)
	h.stateMu.Unlock()

	u := url.URL{Scheme: "https", Host: "www.facebook.com", Path: "/v19.0/dialog/oauth"}
	q := u.Query()
	q.Set("client_id", conf.ClientID)
	q.Set("redirect_uri", conf.RedirectURI)
	q.Set("state", state)
	q.Set("scope", facebookScopes)
	u.RawQuery = q.Encode()
	c.JSON(http.StatusOK, gin.H{"auth_url": u.String(), "state": state})
}

// Callback exchanges the code for a long-lived page token and stores it. The
// stored page token is what the facebook and instagram publishers post with.
func (h *facebookOAuthHandler) Callback(c *gin.Context) {
	lg := logger.GetLogger()
	conf := configuration.C.OAuth.Facebook
	code := c.Query("code")
	state := c.Query("state")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	h.stateMu.Lock()
	exp, ok := h.states[state]
	if ok && time.Now().After(exp) {
		ok = false
	}
	if ok {
		delete(h.states, state)
	}
	h.stateMu.Unlock()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_state"})
		return
	}

	userID := c.GetString("user_id")
	if userID == "" { // fallback for dev
		userID = "demo-user"
	}

	// short-lived user token
	tokenURL := fmt.Sprintf("https://graph.facebook.com/v19.0/oauth/access_token?client_id=%s&redirect_uri=%s&client_secret=%s&code=%s",
		url.QueryEscape(conf.ClientID), url.QueryEscape(conf.RedirectURI), url.QueryEscape(conf.ClientSecret), url.QueryEscape(code))
	shortData, err := fetchToken(tokenURL)
	if err != nil {
		lg.WithField("error", err).Error("facebook token exchange failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "token_exchange_failed"})
		return
	}

	// exchange for a long-lived token
	llURL := fmt.Sprintf("https://graph.facebook.com/v19.0/oauth/access_token?grant_type=fb_exchange_token&client_id=%s&client_secret=%s&fb_exchange_token=%s",
		url.QueryEscape(conf.ClientID), url.QueryEscape(conf.ClientSecret), url.QueryEscape(shortData.AccessToken))
	llData, err := fetchToken(llURL)
	if err != nil {
		lg.WithField("error", err).Error("facebook long-lived token exchange failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "long_lived_token_failed"})
		return
	}
	expiresAt := time.Now().Add(time.Duration(llData.ExpiresIn) * time.Second).UTC()

	// list the pages this user manages
	pagesURL := fmt.Sprintf("https://graph.facebook.com/v19.0/me/accounts?access_token=%s", url.QueryEscape(llData.AccessToken))
	pagesResp, err := http.Get(pagesURL)
	if err != nil {
		lg.WithField("error", err).Error("facebook pages request failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "pages_request_failed"})
		return
	}
	pagesBody, _ := io.ReadAll(pagesResp.Body)
	pagesResp.Body.Close()
	if pagesResp.StatusCode != http.StatusOK {
		lg.WithField("body", string(pagesBody)).Error("facebook pages fetch failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "pages_fetch_failed"})
		return
	}
	var pages struct {
		Data []struct {
			Name        string `json:"name"`
			ID          string `json:"id"`
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(pagesBody, &pages); err != nil {
		lg.WithField("error", err).Error("facebook pages parse failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "parse_pages_failed"})
		return
	}
	if len(pages.Data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no_pages_available"})
		return
	}

	// auto-select the first page; page selection UI comes later
	selected := pages.Data[0]
	tokenType := "page"
	tok := &model.OAuthToken{
		UserID:      userID,
		Platform:    "facebook",
		AccessToken: selected.AccessToken,
		ExpiresAt:   &expiresAt,
		Scopes:      facebookScopes,
		PageID:      &selected.ID,
		PageName:    &selected.Name,
		TokenType:   &tokenType,
	}
	if err := h.tokenRepo.UpsertToken(c.Request.Context(), tok); err != nil {
		lg.WithField("error", err).Error("failed to upsert facebook token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_token_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "page_id": selected.ID, "page_name": selected.Name})
}

// Status reports whether a facebook page token is stored for the caller.
func (h *facebookOAuthHandler) Status(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		userID = "demo-user"
	}
	tok, err := h.tokenRepo.GetToken(c.Request.Context(), userID, "facebook")
	if err != nil || tok == nil || tok.AccessToken == "" {
		c.JSON(http.StatusOK, gin.H{"connected": false})
		return
	}
	resp := gin.H{"connected": true}
	if tok.PageID != nil {
		resp["page_id"] = *tok.PageID
	}
	if tok.PageName != nil {
		resp["page_name"] = *tok.PageName
	}
	c.JSON(http.StatusOK, resp)
}

type fbTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func fetchToken(u string) (*fbTokenResponse, error) {
	resp, err := http.Get(u)
	if err != nil {
		return nil, err
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}
	var data fbTokenResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
