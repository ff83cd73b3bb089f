package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	config "github.com/postforge/autoposter/configs"
	"github.com/postforge/autoposter/internal/models"
	"github.com/postforge/autoposter/internal/repository"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

type AuthService interface {
	GetAuthURL(state string) string
	LoginCallback(ctx context.Context, code string) (int64, error)
}

type authService struct {
	cfg config.Config
	ur  repository.UserRepository
	pf  repository.ProfileRepository
}

func NewAuthService(cfg config.Config, ur repository.UserRepository, pf repository.ProfileRepository) AuthService {
	return &authService{
		cfg: cfg,
		ur:  ur,
		pf:  pf,
	}
}

func (s *authService) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.GoogleClientID,
		ClientSecret: s.cfg.GoogleClientSecret,
		RedirectURL:  s.cfg.GoogleRedirectURI,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
}

func (s *authService) GetAuthURL(state string) string {
	params := url.Values{}
	params.Add("client_id", s.cfg.GoogleClientID)
	params.Add("redirect_uri", s.cfg.GoogleRedirectURI)
	params.Add("response_type", "code")
	params.Add("scope", "https://www.googleapis.com/auth/userinfo.profile https://www.googleapis.com/auth/userinfo.email")
	params.Add("state", state)
	params.Add("access_type", "offline")

	return fmt.Sprintf("%s?%s", google.Endpoint.AuthURL, params.Encode())
}

// LoginCallback exchanges the Google authorization code, upserts the user,
// and makes sure a default autoposter profile exists for them.
func (s *authService) LoginCallback(ctx context.Context, code string) (int64, error) {
	if code == "" {
		err := errors.New("code or state is empty")
		slog.Info(err.Error())
		return 0, err
	}

	conf := s.oauthConfig()
	if conf.ClientID == "" || conf.ClientSecret == "" || conf.RedirectURL == "" {
		err := errors.New("OAuth2 configuration is incomplete")
		slog.Info(err.Error())
		return 0, err
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	oauthService, err := googleoauth.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx, token)))
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	userInfo, err := oauthService.Userinfo.Get().Do()
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	if userInfo.Email == "" {
		err = errors.New("Google returned no email address")
		slog.Info(err.Error())
		return 0, err
	}

	user, isExist, err := s.ur.GetByEmail(ctx, userInfo.Email)
	if err != nil {
		return 0, err
	}

	var userID int64
	if !isExist {
		userID, err = s.ur.Create(ctx, nil, &models.User{
			GoogleID:       userInfo.Id,
			Email:          userInfo.Email,
			Name:           userInfo.Name,
			ProfilePicture: userInfo.Picture,
		})
		if err != nil {
			slog.Info(err.Error())
			return 0, err
		}
	} else {
		userID = user.ID
		if user.GoogleID == "" {
			user.GoogleID = userInfo.Id
			if err := s.ur.Update(ctx, user); err != nil {
				slog.Info(err.Error())
			}
		}
	}

	if err := s.ensureProfile(ctx, userID); err != nil {
		return 0, err
	}

	return userID, nil
}

// ensureProfile creates the default autoposter profile on first login:
// everything off, text posts, UTC, a morning review deadline.
func (s *authService) ensureProfile(ctx context.Context, userID int64) error {
	_, found, err := s.pf.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	profile := &models.AutoposterProfile{
		UserID:              userID,
		Timezone:            "UTC",
		DraftGenerationHour: 6,
		ReviewDeadlineHour:  8,
		PreferredMediaType:  models.MediaTypeText,
	}
	for i := range profile.PostingSchedule {
		profile.PostingSchedule[i] = models.DaySchedule{Enabled: false, PostTime: "09:00"}
	}

	_, err = s.pf.Create(ctx, profile)
	return err
}
