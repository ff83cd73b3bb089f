package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/postforge/autoposter/internal/models"
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *models.AutoposterProfile) (int64, error)
	GetByUserID(ctx context.Context, userID int64) (*models.AutoposterProfile, bool, error)
	List(ctx context.Context) ([]*models.AutoposterProfile, error)
	ListTokenExpiring(ctx context.Context, from, to time.Time) ([]*models.AutoposterProfile, error)
	Update(ctx context.Context, profile *models.AutoposterProfile) error
	ConnectLinkedin(ctx context.Context, userID int64, memberURN, accessToken, refreshToken string, expiry time.Time) error
	DisconnectLinkedin(ctx context.Context, userID int64) error
	UpdateLinkedinToken(ctx context.Context, userID int64, oldAccessToken, accessToken, refreshToken string, expiry time.Time) error
}

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) ProfileRepository {
	return &profileRepository{db: db}
}

const profileColumns = `id, user_id, posting_schedule, timezone, draft_generation_hour,
	review_deadline_hour, preferred_media_type, preferred_provider, preferred_model,
	persona, linkedin_connected, linkedin_member_urn, linkedin_access_token,
	linkedin_refresh_token, linkedin_token_expiry, created_at, updated_at`

func scanProfile(row rowScanner) (*models.AutoposterProfile, error) {
	var profile models.AutoposterProfile
	var scheduleJSON []byte
	var tokenExpiry sql.NullTime

	err := row.Scan(&profile.ID, &profile.UserID, &scheduleJSON, &profile.Timezone,
		&profile.DraftGenerationHour, &profile.ReviewDeadlineHour, &profile.PreferredMediaType,
		&profile.PreferredProvider, &profile.PreferredModel, &profile.Persona,
		&profile.LinkedinConnected, &profile.LinkedinMemberURN, &profile.LinkedinAccessToken,
		&profile.LinkedinRefreshToken, &tokenExpiry, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if tokenExpiry.Valid {
		profile.LinkedinTokenExpiry = tokenExpiry.Time
	}
	if len(scheduleJSON) > 0 {
		if err := json.Unmarshal(scheduleJSON, &profile.PostingSchedule); err != nil {
			return nil, err
		}
	}
	return &profile, nil
}

func (r *profileRepository) Create(ctx context.Context, profile *models.AutoposterProfile) (int64, error) {
	scheduleJSON, err := json.Marshal(profile.PostingSchedule)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	query := `
		INSERT INTO autoposter_profiles (user_id, posting_schedule, timezone, draft_generation_hour,
			review_deadline_hour, preferred_media_type, preferred_provider, preferred_model, persona)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	var id int64
	err = r.db.QueryRowContext(ctx, query, profile.UserID, scheduleJSON, profile.Timezone,
		profile.DraftGenerationHour, profile.ReviewDeadlineHour, profile.PreferredMediaType,
		profile.PreferredProvider, profile.PreferredModel, profile.Persona).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID int64) (*models.AutoposterProfile, bool, error) {
	query := `SELECT ` + profileColumns + ` FROM autoposter_profiles WHERE user_id = $1`

	profile, err := scanProfile(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return profile, true, nil
}

func (r *profileRepository) List(ctx context.Context) ([]*models.AutoposterProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM autoposter_profiles ORDER BY id`
	return r.queryProfiles(ctx, query)
}

func (r *profileRepository) ListTokenExpiring(ctx context.Context, from, to time.Time) ([]*models.AutoposterProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM autoposter_profiles
		WHERE linkedin_connected = TRUE
		AND linkedin_refresh_token <> ''
		AND linkedin_token_expiry BETWEEN $1 AND $2`
	return r.queryProfiles(ctx, query, from, to)
}

func (r *profileRepository) Update(ctx context.Context, profile *models.AutoposterProfile) error {
	scheduleJSON, err := json.Marshal(profile.PostingSchedule)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	query := `
		UPDATE autoposter_profiles
		SET posting_schedule = $2,
			timezone = $3,
			review_deadline_hour = $4,
			preferred_media_type = $5,
			preferred_provider = $6,
			preferred_model = $7,
			persona = $8,
			updated_at = $9
		WHERE user_id = $1
	`
	_, err = r.db.ExecContext(ctx, query, profile.UserID, scheduleJSON, profile.Timezone,
		profile.ReviewDeadlineHour, profile.PreferredMediaType, profile.PreferredProvider,
		profile.PreferredModel, profile.Persona, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *profileRepository) ConnectLinkedin(ctx context.Context, userID int64, memberURN, accessToken, refreshToken string, expiry time.Time) error {
	query := `
		UPDATE autoposter_profiles
		SET linkedin_connected = TRUE,
			linkedin_member_urn = $2,
			linkedin_access_token = $3,
			linkedin_refresh_token = $4,
			linkedin_token_expiry = $5,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1
	`
	_, err := r.db.ExecContext(ctx, query, userID, memberURN, accessToken, refreshToken, expiry)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *profileRepository) DisconnectLinkedin(ctx context.Context, userID int64) error {
	query := `
		UPDATE autoposter_profiles
		SET linkedin_connected = FALSE,
			linkedin_member_urn = '',
			linkedin_access_token = '',
			linkedin_refresh_token = '',
			linkedin_token_expiry = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1
	`
	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// UpdateLinkedinToken persists a refreshed token pair, conditioned on the
// access token the caller refreshed from. A concurrent refresh that already
// replaced the token makes this one a no-op error rather than clobbering
// the newer credentials.
func (r *profileRepository) UpdateLinkedinToken(ctx context.Context, userID int64, oldAccessToken, accessToken, refreshToken string, expiry time.Time) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE autoposter_profiles
		SET linkedin_access_token = COALESCE(NULLIF($3, ''), linkedin_access_token),
			linkedin_refresh_token = COALESCE(NULLIF($4, ''), linkedin_refresh_token),
			linkedin_token_expiry = COALESCE($5, linkedin_token_expiry),
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1 AND linkedin_access_token = $2
	`
	result, err := tx.ExecContext(ctx, query, userID, oldAccessToken, accessToken, refreshToken, expiry)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		slog.Info("no rows affected; token was already replaced")
		return errors.New("no rows affected; token was already replaced")
	}

	if err = tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *profileRepository) queryProfiles(ctx context.Context, query string, args ...interface{}) ([]*models.AutoposterProfile, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var profiles []*models.AutoposterProfile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return profiles, nil
}
