package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/Hammadwakeel/R-S-RAG-backend/internal/domain/auth"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/dbctx"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/logger"
)

type UserTokenRepo interface {
	Create(dbc dbctx.Context, rows []*types.UserToken) ([]*types.UserToken, error)
	GetByTokenHash(dbc dbctx.Context, tokenHash string) (*types.UserToken, error)
	RevokeByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	RevokeByUserIDs(dbc dbctx.Context, userIDs []uuid.UUID) error
	FullDeleteExpired(dbc dbctx.Context, cutoff time.Time) (int64, error)
}

type userTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserTokenRepo(db *gorm.DB, log *logger.Logger) UserTokenRepo {
	return &userTokenRepo{db: db, log: log.With("repo", "UserTokenRepo")}
}

func (r *userTokenRepo) Create(dbc dbctx.Context, rows []*types.UserToken) ([]*types.UserToken, error) {
	if len(rows) == 0 {
		return []*types.UserToken{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	if err := txx.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *userTokenRepo) GetByTokenHash(dbc dbctx.Context, tokenHash string) (*types.UserToken, error) {
	if tokenHash == "" {
		return nil, fmt.Errorf("missing token_hash")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out types.UserToken
	if err := txx.WithContext(dbc.Ctx).
		Where("token_hash = ?", tokenHash).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userTokenRepo) RevokeByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	now := time.Now().UTC()
	return txx.WithContext(dbc.Ctx).
		Model(&types.UserToken{}).
		Where("id IN ? AND revoked_at IS NULL", ids).
		Updates(map[string]interface{}{
			"revoked_at": now,
			"updated_at": now,
		}).Error
}

func (r *userTokenRepo) RevokeByUserIDs(dbc dbctx.Context, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	now := time.Now().UTC()
	return txx.WithContext(dbc.Ctx).
		Model(&types.UserToken{}).
		Where("user_id IN ? AND revoked_at IS NULL", userIDs).
		Updates(map[string]interface{}{
			"revoked_at": now,
			"updated_at": now,
		}).Error
}

func (r *userTokenRepo) FullDeleteExpired(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	res := txx.WithContext(dbc.Ctx).
		Unscoped().
		Where("expires_at < ?", cutoff).
		Delete(&types.UserToken{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
