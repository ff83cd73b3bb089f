package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/postforge/autoposter/internal/models"
	"github.com/postforge/autoposter/internal/repository"
	"github.com/postforge/autoposter/internal/service"
)

// TokenRefreshJob renews LinkedIn tokens shortly before they expire so
// the publish sweep rarely has to refresh inline. The sweep's own lazy
// refresh stays authoritative; missing a run here costs nothing.
type TokenRefreshJob struct {
	pf repository.ProfileRepository
	li service.LinkedinService
}

func NewTokenRefreshJob(pf repository.ProfileRepository, li service.LinkedinService) *TokenRefreshJob {
	return &TokenRefreshJob{
		pf: pf,
		li: li,
	}
}

func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	profiles, err := c.pf.ListTokenExpiring(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, profile := range profiles {

		wg.Add(1)
		semaphore <- struct{}{}

		go func(profile *models.AutoposterProfile) {
			defer wg.Done()
			defer func() { <-semaphore }()

			_, err := c.li.EnsureAccessToken(ctx, profile)
			if err != nil {
				slog.Info("Unable to refresh LinkedIn token", "user_id", profile.UserID)
			}
		}(profile)
	}

	wg.Wait()
}
