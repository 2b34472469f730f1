package userinfo

import (
	"context"
	"errors"
)

var (
	ErrUserInfoNotFound = errors.New("user info not found")
	ErrUserInfoExists   = errors.New("user info already exists")
)

// Info describes where and how a user is currently connected.
type Info struct {
	UserID       string
	SimIP        string
	AvatarName   string
	PasswordHash string
	AvatarType   int
	AvatarClass  int
	ServerURL    string
}

type UserInfos interface {
	Add(ctx context.Context, info Info) error
	Get(ctx context.Context, userID string) (Info, error)
	Update(ctx context.Context, info Info) error
}
