package model

type UserStatus string

const (
	UserStatusActive      UserStatus = "active"
	UserStatusSoftDeleted UserStatus = "soft_deleted"
	UserStatusDisabled    UserStatus = "disabled"
)

func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusSoftDeleted, UserStatusDisabled:
		return true
	}
	return false
}

type User struct {
	ID           string     `json:"id"`
	UserName     string     `json:"user_name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Status       UserStatus `json:"status"`
	DeletedAt    int64      `json:"deleted_at,omitempty"`
	AutoPurgeAt  int64      `json:"auto_purge_at,omitempty"`
	Version      int64      `json:"version"`
	Ctime        int64      `json:"ctime"`
	Mtime        int64      `json:"mtime"`
}

// PurgeDue reports whether a soft deleted account is past its retention
// window at now.
func (u *User) PurgeDue(now int64) bool {
	return u.Status == UserStatusSoftDeleted && u.AutoPurgeAt != 0 && now >= u.AutoPurgeAt
}
