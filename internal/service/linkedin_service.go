package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	config "github.com/postforge/autoposter/configs"
	"github.com/postforge/autoposter/internal/models"
	"github.com/postforge/autoposter/internal/repository"
	"github.com/postforge/autoposter/internal/transfer"
	"github.com/postforge/autoposter/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
)

const linkedinVersion = "202411"

type LinkedinService interface {
	GetAuthURL(state string) string
	LinkedinCallback(ctx context.Context, code string, userID int64) error
	Disconnect(ctx context.Context, userID int64) error
	EnsureAccessToken(ctx context.Context, profile *models.AutoposterProfile) (string, error)
	UploadImage(ctx context.Context, accessToken, ownerURN string, data []byte) (string, error)
	UploadVideo(ctx context.Context, accessToken, ownerURN string, data []byte) (string, error)
	CreatePost(ctx context.Context, accessToken, authorURN, text string, assetURNs []string) (string, error)
}

type linkedinService struct {
	cfg        config.Config
	pf         repository.ProfileRepository
	client     *http.Client
	apiBaseURL string
	endpoint   oauth2.Endpoint
}

func NewLinkedinService(cfg config.Config, pf repository.ProfileRepository) LinkedinService {
	return &linkedinService{
		cfg: cfg,
		pf:  pf,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiBaseURL: "https://api.linkedin.com",
		endpoint:   linkedin.Endpoint,
	}
}

func (s *linkedinService) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.LinkedinClientID,
		ClientSecret: s.cfg.LinkedinClientSecret,
		RedirectURL:  s.cfg.LinkedinRedirectURI,
		Scopes:       []string{"openid", "profile", "email", "w_member_social"},
		Endpoint:     s.endpoint,
	}
}

func (s *linkedinService) GetAuthURL(state string) string {
	params := url.Values{}
	params.Add("client_id", s.cfg.LinkedinClientID)
	params.Add("redirect_uri", s.cfg.LinkedinRedirectURI)
	params.Add("response_type", "code")
	params.Add("scope", "openid profile email w_member_social")
	params.Add("state", state)

	return fmt.Sprintf("%s?%s", s.endpoint.AuthURL, params.Encode())
}

func (s *linkedinService) LinkedinCallback(ctx context.Context, code string, userID int64) (err error) {
	if code == "" {
		err = errors.New("code or state is empty")
		slog.Info(err.Error())
		return err
	}

	if userID == 0 {
		err = errors.New("User not found")
		slog.Info(err.Error())
		return err
	}

	conf := s.oauthConfig()
	if conf.ClientID == "" || conf.ClientSecret == "" || conf.RedirectURL == "" {
		err = errors.New("OAuth2 configuration is incomplete")
		slog.Info(err.Error())
		return err
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	userInfo, err := s.getUserInfo(ctx, token.AccessToken)
	if err != nil {
		return err
	}

	key := utils.DeriveKey(s.cfg.SecretKey)

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), key)
	if err != nil {
		return err
	}

	encryptedRefreshToken := ""
	if token.RefreshToken != "" {
		encryptedRefreshToken, err = utils.Encrypt([]byte(token.RefreshToken), key)
		if err != nil {
			return err
		}
	}

	memberURN := "urn:li:person:" + userInfo.Sub
	return s.pf.ConnectLinkedin(ctx, userID, memberURN, encryptedAccessToken, encryptedRefreshToken, token.Expiry)
}

func (s *linkedinService) Disconnect(ctx context.Context, userID int64) error {
	if userID == 0 {
		err := errors.New("User is not valid")
		slog.Info(err.Error())
		return err
	}
	return s.pf.DisconnectLinkedin(ctx, userID)
}

// EnsureAccessToken returns a usable plaintext access token for the
// profile, refreshing and persisting it first when the stored one has
// expired. Losing the persistence race to a concurrent refresh is not
// fatal: the token issued here is still valid for this batch item.
func (s *linkedinService) EnsureAccessToken(ctx context.Context, profile *models.AutoposterProfile) (string, error) {
	key := utils.DeriveKey(s.cfg.SecretKey)

	if !profile.TokenExpired(time.Now()) {
		accessToken, err := utils.Decrypt(profile.LinkedinAccessToken, key)
		if err != nil {
			slog.Info(err.Error())
			return "", errors.New("stored access token could not be read")
		}
		return accessToken, nil
	}

	if profile.LinkedinRefreshToken == "" {
		return "", errors.New("access token expired and no refresh token is stored")
	}

	refreshToken, err := utils.Decrypt(profile.LinkedinRefreshToken, key)
	if err != nil {
		slog.Info(err.Error())
		return "", errors.New("stored refresh token could not be read")
	}

	conf := s.oauthConfig()
	tokenSource := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	token, err := tokenSource.Token()
	if err != nil {
		slog.Info(err.Error())
		tokenRefreshes.WithLabelValues("failure").Inc()
		return "", fmt.Errorf("token refresh failed: %w", err)
	}
	tokenRefreshes.WithLabelValues("success").Inc()

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), key)
	if err != nil {
		return "", err
	}

	encryptedRefreshToken := ""
	if token.RefreshToken != "" && token.RefreshToken != refreshToken {
		encryptedRefreshToken, err = utils.Encrypt([]byte(token.RefreshToken), key)
		if err != nil {
			return "", err
		}
	}

	err = s.pf.UpdateLinkedinToken(ctx, profile.UserID, profile.LinkedinAccessToken,
		encryptedAccessToken, encryptedRefreshToken, token.Expiry)
	if err != nil {
		slog.Info("token was refreshed concurrently, using the freshly issued one")
	}

	return token.AccessToken, nil
}

func (s *linkedinService) UploadImage(ctx context.Context, accessToken, ownerURN string, data []byte) (string, error) {
	var initReq transfer.LinkedinImageInitRequest
	initReq.InitializeUploadRequest.Owner = ownerURN

	var initResp transfer.LinkedinImageInitResponse
	initURL := s.apiBaseURL + "/rest/images?action=initializeUpload"
	if err := s.postJSON(ctx, accessToken, initURL, initReq, &initResp); err != nil {
		return "", fmt.Errorf("image upload initialization failed: %w", err)
	}
	if initResp.Value.UploadURL == "" || initResp.Value.Image == "" {
		return "", errors.New("image upload initialization returned no upload destination")
	}

	if _, err := s.putBytes(ctx, accessToken, initResp.Value.UploadURL, data); err != nil {
		return "", fmt.Errorf("image upload failed: %w", err)
	}

	return initResp.Value.Image, nil
}

func (s *linkedinService) UploadVideo(ctx context.Context, accessToken, ownerURN string, data []byte) (string, error) {
	var initReq transfer.LinkedinVideoInitRequest
	initReq.InitializeUploadRequest.Owner = ownerURN
	initReq.InitializeUploadRequest.FileSizeBytes = int64(len(data))

	var initResp transfer.LinkedinVideoInitResponse
	initURL := s.apiBaseURL + "/rest/videos?action=initializeUpload"
	if err := s.postJSON(ctx, accessToken, initURL, initReq, &initResp); err != nil {
		return "", fmt.Errorf("video upload initialization failed: %w", err)
	}
	if len(initResp.Value.UploadInstructions) == 0 || initResp.Value.Video == "" {
		return "", errors.New("video upload initialization returned no upload instructions")
	}

	partIDs := make([]string, 0, len(initResp.Value.UploadInstructions))
	for _, instr := range initResp.Value.UploadInstructions {
		first, last := instr.FirstByte, instr.LastByte
		if first < 0 || first >= int64(len(data)) {
			return "", fmt.Errorf("upload instruction range %d-%d is outside the video size", first, last)
		}
		if last >= int64(len(data)) {
			last = int64(len(data)) - 1
		}

		etag, err := s.putBytes(ctx, accessToken, instr.UploadURL, data[first:last+1])
		if err != nil {
			return "", fmt.Errorf("video part upload failed: %w", err)
		}
		partIDs = append(partIDs, etag)
	}

	var finalizeReq transfer.LinkedinVideoFinalizeRequest
	finalizeReq.FinalizeUploadRequest.Video = initResp.Value.Video
	finalizeReq.FinalizeUploadRequest.UploadToken = initResp.Value.UploadToken
	finalizeReq.FinalizeUploadRequest.UploadedPartIds = partIDs

	finalizeURL := s.apiBaseURL + "/rest/videos?action=finalizeUpload"
	if err := s.postJSON(ctx, accessToken, finalizeURL, finalizeReq, nil); err != nil {
		return "", fmt.Errorf("video upload finalization failed: %w", err)
	}

	return initResp.Value.Video, nil
}

// CreatePost publishes text with zero, one, or an ordered list of media
// assets and returns the remote post id from the x-restli-id header.
func (s *linkedinService) CreatePost(ctx context.Context, accessToken, authorURN, text string, assetURNs []string) (string, error) {
	postReq := transfer.LinkedinPostRequest{
		Author:         authorURN,
		Commentary:     text,
		Visibility:     "PUBLIC",
		LifecycleState: "PUBLISHED",
	}
	postReq.Distribution.FeedDistribution = "MAIN_FEED"
	postReq.Distribution.TargetEntities = []string{}
	postReq.Distribution.ThirdPartyDistributionChannels = []string{}

	switch {
	case len(assetURNs) == 1:
		postReq.Content = &transfer.LinkedinPostContent{
			Media: &transfer.LinkedinMediaRef{ID: assetURNs[0]},
		}
	case len(assetURNs) > 1:
		images := make([]transfer.LinkedinImageRef, 0, len(assetURNs))
		for _, urn := range assetURNs {
			images = append(images, transfer.LinkedinImageRef{ID: urn})
		}
		postReq.Content = &transfer.LinkedinPostContent{
			MultiImage: &transfer.LinkedinMultiImage{Images: images},
		}
	}

	body, err := json.Marshal(postReq)
	if err != nil {
		return "", fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.apiBaseURL+"/rest/posts", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	s.setRestHeaders(req, accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", s.restError(resp)
	}

	postID := resp.Header.Get("x-restli-id")
	if postID == "" {
		return "", errors.New("no post id returned")
	}
	return postID, nil
}

func (s *linkedinService) getUserInfo(ctx context.Context, accessToken string) (*transfer.LinkedinUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.apiBaseURL+"/v2/userinfo", nil)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var userInfo transfer.LinkedinUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if userInfo.Sub == "" {
		return nil, errors.New("userinfo returned no member id")
	}
	return &userInfo, nil
}

func (s *linkedinService) postJSON(ctx context.Context, accessToken, reqURL string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	s.setRestHeaders(req, accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return s.restError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}

func (s *linkedinService) putBytes(ctx context.Context, accessToken, uploadURL string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "PUT", uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("upload destination returned status %d", resp.StatusCode)
	}
	return resp.Header.Get("ETag"), nil
}

func (s *linkedinService) setRestHeaders(req *http.Request, accessToken string) {
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("LinkedIn-Version", linkedinVersion)
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
}

func (s *linkedinService) restError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("unexpected status code from LinkedIn: %d", resp.StatusCode)
	}

	var apiErr transfer.LinkedinErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("LinkedIn rejected the request: %s (status %d)", apiErr.Message, resp.StatusCode)
	}
	return fmt.Errorf("unexpected status code from LinkedIn: %d", resp.StatusCode)
}
