package service

import (
	"context"

	"github.com/xxxsen/accountd/internal/model"
)

// UserStore is the persistence the account services need. Save is an
// optimistic write: it fails with ErrVersionConflict when the stored
// version no longer matches user.Version.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, userID string) (*model.User, error)
	Save(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, userID string) error
	DeleteSoftDeletedBefore(ctx context.Context, userID string, now int64) (bool, error)
	ListSoftDeletedBefore(ctx context.Context, now int64, limit int) ([]model.User, error)
}

// OtpStore keeps at most one record per (email, purpose). Put replaces any
// previous record for the pair.
type OtpStore interface {
	Put(ctx context.Context, rec *model.OtpRecord) error
	Get(ctx context.Context, email string, purpose model.OtpPurpose) (*model.OtpRecord, error)
	Save(ctx context.Context, rec *model.OtpRecord) error
	Delete(ctx context.Context, rec *model.OtpRecord) error
	DeleteExpiredBefore(ctx context.Context, cutoff int64) (int64, error)
}

// Notifier delivers one-time codes to their owner.
type Notifier interface {
	SendOtp(ctx context.Context, email, code string, purpose model.OtpPurpose) error
}
