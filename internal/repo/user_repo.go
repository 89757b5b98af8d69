package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/accountd/internal/model"
	"github.com/xxxsen/accountd/internal/pkg/dbutil"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
)

const userTable = "users"

var userColumns = []string{"id", "user_name", "email", "password_hash", "status", "deleted_at", "auto_purge_at", "version", "ctime", "mtime"}

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	if user.Version == 0 {
		user.Version = 1
	}
	data := map[string]interface{}{
		"id":            user.ID,
		"user_name":     user.UserName,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"status":        string(user.Status),
		"deleted_at":    user.DeletedAt,
		"auto_purge_at": user.AutoPurgeAt,
		"version":       user.Version,
		"ctime":         user.Ctime,
		"mtime":         user.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert(userTable, []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"email": email})
}

func (r *UserRepo) GetByID(ctx context.Context, userID string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"id": userID})
}

// Save writes every mutable column when the stored version still matches
// user.Version, then advances user.Version.
func (r *UserRepo) Save(ctx context.Context, user *model.User) error {
	where := map[string]interface{}{"id": user.ID, "version": user.Version}
	update := map[string]interface{}{
		"user_name":     user.UserName,
		"password_hash": user.PasswordHash,
		"status":        string(user.Status),
		"deleted_at":    user.DeletedAt,
		"auto_purge_at": user.AutoPurgeAt,
		"version":       user.Version + 1,
		"mtime":         user.Mtime,
	}
	sqlStr, args, err := builder.BuildUpdate(userTable, where, update)
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
	user.Version++
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, userID string) error {
	sqlStr, args, err := builder.BuildDelete(userTable, map[string]interface{}{"id": userID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	affected, err := dbutil.Affected(r.db.ExecContext(ctx, sqlStr, args...))
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// DeleteSoftDeletedBefore removes the user only while it is still soft
// deleted and past its purge time. It reports whether a row was removed.
func (r *UserRepo) DeleteSoftDeletedBefore(ctx context.Context, userID string, now int64) (bool, error) {
	where := map[string]interface{}{
		"id":               userID,
		"status":           string(model.UserStatusSoftDeleted),
		"auto_purge_at >":  0,
		"auto_purge_at <=": now,
	}
	sqlStr, args, err := builder.BuildDelete(userTable, where)
	if err != nil {
		return false, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	affected, err := dbutil.Affected(r.db.ExecContext(ctx, sqlStr, args...))
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *UserRepo) ListSoftDeletedBefore(ctx context.Context, now int64, limit int) ([]model.User, error) {
	where := map[string]interface{}{
		"status":           string(model.UserStatusSoftDeleted),
		"auto_purge_at >":  0,
		"auto_purge_at <=": now,
		"_orderby":         "auto_purge_at asc",
		"_limit":           []uint{0, uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect(userTable, where, userColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var users []model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *UserRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.User, error) {
	sqlStr, args, err := builder.BuildSelect(userTable, where, userColumns)
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
	return scanUser(rows)
}

func scanUser(rows *sql.Rows) (*model.User, error) {
	var (
		user   model.User
		status string
	)
	if err := rows.Scan(&user.ID, &user.UserName, &user.Email, &user.PasswordHash, &status,
		&user.DeletedAt, &user.AutoPurgeAt, &user.Version, &user.Ctime, &user.Mtime); err != nil {
		return nil, err
	}
	user.Status = model.UserStatus(status)
	return &user, nil
}
