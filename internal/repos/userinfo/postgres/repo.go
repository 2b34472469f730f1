package userinfo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/moneyserver/internal/infra/pgutils"
	"github.com/fastprodman/moneyserver/internal/repos/userinfo"
)

var _ userinfo.UserInfos = (*userInfoRepo)(nil)

type userInfoRepo struct{ q pgutils.Querier }

func New(q pgutils.Querier) *userInfoRepo {
	return &userInfoRepo{q: q}
}

func (r *userInfoRepo) Add(ctx context.Context, info userinfo.Info) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO user_info (user_id, sim_ip, avatar_name, password_hash, avatar_type, avatar_class, server_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, info.UserID, info.SimIP, info.AvatarName, info.PasswordHash, info.AvatarType, info.AvatarClass, info.ServerURL)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return userinfo.ErrUserInfoExists
		}

		return fmt.Errorf("insert user info: %w", err)
	}

	return nil
}

func (r *userInfoRepo) Get(ctx context.Context, userID string) (userinfo.Info, error) {
	info := userinfo.Info{UserID: userID}

	err := r.q.QueryRowContext(ctx, `
		SELECT sim_ip, avatar_name, password_hash, avatar_type, avatar_class, server_url
		FROM user_info
		WHERE user_id = $1
	`, userID).Scan(&info.SimIP, &info.AvatarName, &info.PasswordHash, &info.AvatarType, &info.AvatarClass, &info.ServerURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return userinfo.Info{}, userinfo.ErrUserInfoNotFound
		}

		return userinfo.Info{}, fmt.Errorf("get user info: %w", err)
	}

	return info, nil
}

func (r *userInfoRepo) Update(ctx context.Context, info userinfo.Info) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE user_info
		SET sim_ip = $2, avatar_name = $3, password_hash = $4,
		    avatar_type = $5, avatar_class = $6, server_url = $7
		WHERE user_id = $1
	`, info.UserID, info.SimIP, info.AvatarName, info.PasswordHash, info.AvatarType, info.AvatarClass, info.ServerURL)
	if err != nil {
		return fmt.Errorf("update user info: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return userinfo.ErrUserInfoNotFound
	}

	return nil
}
