package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/accountd/internal/model"
	"github.com/xxxsen/accountd/internal/pkg/dbutil"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
)

const otpTable = "otp_records"

var otpColumns = []string{"id", "email", "purpose", "code_hash", "status", "attempt_count", "max_attempts", "version", "created_at", "expires_at"}

// upsertOtpSQL replaces whatever record exists for (email, purpose).
const upsertOtpSQL = `INSERT INTO otp_records (id, email, purpose, code_hash, status, attempt_count, max_attempts, version, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (email, purpose) DO UPDATE SET
    id = EXCLUDED.id,
    code_hash = EXCLUDED.code_hash,
    status = EXCLUDED.status,
    attempt_count = EXCLUDED.attempt_count,
    max_attempts = EXCLUDED.max_attempts,
    version = otp_records.version + 1,
    created_at = EXCLUDED.created_at,
    expires_at = EXCLUDED.expires_at
RETURNING version`

type OtpRepo struct {
	db *sql.DB
}

func NewOtpRepo(db *sql.DB) *OtpRepo {
	return &OtpRepo{db: db}
}

func (r *OtpRepo) Put(ctx context.Context, rec *model.OtpRecord) error {
	args := []interface{}{
		rec.ID, rec.Email, string(rec.Purpose), rec.CodeHash, string(rec.Status),
		rec.AttemptCount, rec.MaxAttempts, int64(1), rec.CreatedAt, rec.ExpiresAt,
	}
	sqlStr, args := dbutil.Finalize(upsertOtpSQL, args)
	var version int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&version); err != nil {
		return err
	}
	rec.Version = version
	return nil
}

func (r *OtpRepo) Get(ctx context.Context, email string, purpose model.OtpPurpose) (*model.OtpRecord, error) {
	where := map[string]interface{}{"email": email, "purpose": string(purpose)}
	sqlStr, args, err := builder.BuildSelect(otpTable, where, otpColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, appErr.ErrNotFound
	}
	var (
		rec        model.OtpRecord
		purposeStr string
		statusStr  string
	)
	if err := rows.Scan(&rec.ID, &rec.Email, &purposeStr, &rec.CodeHash, &statusStr,
		&rec.AttemptCount, &rec.MaxAttempts, &rec.Version, &rec.CreatedAt, &rec.ExpiresAt); err != nil {
		return nil, err
	}
	rec.Purpose = model.OtpPurpose(purposeStr)
	rec.Status = model.OtpStatus(statusStr)
	return &rec, nil
}

// Save updates status and attempt counter of the exact record that was read.
func (r *OtpRepo) Save(ctx context.Context, rec *model.OtpRecord) error {
	where := map[string]interface{}{"id": rec.ID, "version": rec.Version}
	update := map[string]interface{}{
		"status":        string(rec.Status),
		"attempt_count": rec.AttemptCount,
		"version":       rec.Version + 1,
	}
	sqlStr, args, err := builder.BuildUpdate(otpTable, where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	affected, err := dbutil.Affected(r.db.ExecContext(ctx, sqlStr, args...))
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrVersionConflict
	}
	rec.Version++
	return nil
}

// Delete removes the record read at the given version, so a record that was
// replaced in the meantime survives.
func (r *OtpRepo) Delete(ctx context.Context, rec *model.OtpRecord) error {
	where := map[string]interface{}{"id": rec.ID, "version": rec.Version}
	sqlStr, args, err := builder.BuildDelete(otpTable, where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	affected, err := dbutil.Affected(r.db.ExecContext(ctx, sqlStr, args...))
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrVersionConflict
	}
	return nil
}

func (r *OtpRepo) DeleteExpiredBefore(ctx context.Context, cutoff int64) (int64, error) {
	sqlStr, args, err := builder.BuildDelete(otpTable, map[string]interface{}{"expires_at <": cutoff})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return dbutil.Affected(r.db.ExecContext(ctx, sqlStr, args...))
}
