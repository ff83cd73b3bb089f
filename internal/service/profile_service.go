package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/postforge/autoposter/internal/models"
	"github.com/postforge/autoposter/internal/repository"
	"github.com/postforge/autoposter/internal/transfer"
)

type ProfileService interface {
	GetProfile(ctx context.Context, userID int64) (*models.AutoposterProfile, error)
	UpdateProfile(ctx context.Context, userID int64, req *transfer.UpdateProfileRequest) error
}

type profileService struct {
	pf repository.ProfileRepository
}

func NewProfileService(pf repository.ProfileRepository) ProfileService {
	return &profileService{
		pf: pf,
	}
}

func (s *profileService) GetProfile(ctx context.Context, userID int64) (*models.AutoposterProfile, error) {
	profile, isExist, err := s.pf.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !isExist {
		err = errors.New("profile for given user doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	return profile, nil
}

// UpdateProfile applies the given fields on top of the stored profile.
// Schedule times are validated as wall-clock "15:04" strings and the
// timezone has to resolve before anything is written.
func (s *profileService) UpdateProfile(ctx context.Context, userID int64, req *transfer.UpdateProfileRequest) error {
	profile, isExist, err := s.pf.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if !isExist {
		err = errors.New("profile for given user doesn't exist")
		slog.Info(err.Error())
		return err
	}

	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			slog.Info(err.Error())
			return errors.New("unknown timezone")
		}
		profile.Timezone = req.Timezone
	}

	if req.PostingSchedule != nil {
		for i, day := range req.PostingSchedule {
			if day.Enabled {
				if _, err := time.Parse("15:04", day.PostTime); err != nil {
					slog.Info(err.Error())
					return errors.New("post_time must be formatted as HH:MM")
				}
			}
			profile.PostingSchedule[i] = models.DaySchedule{
				Enabled:  day.Enabled,
				PostTime: day.PostTime,
			}
		}
	}

	if req.ReviewDeadlineHour != nil {
		profile.ReviewDeadlineHour = *req.ReviewDeadlineHour
	}
	if req.PreferredMediaType != "" {
		profile.PreferredMediaType = req.PreferredMediaType
	}
	if req.PreferredProvider != "" {
		profile.PreferredProvider = req.PreferredProvider
	}
	if req.PreferredModel != "" {
		profile.PreferredModel = req.PreferredModel
	}
	if req.Persona != "" {
		profile.Persona = req.Persona
	}

	return s.pf.Update(ctx, profile)
}
