package memstore

import (
	"context"

	"github.com/fastprodman/moneyserver/internal/repos/userinfo"
)

type userInfoRepo struct{ sc scope }

func (r userInfoRepo) Add(_ context.Context, info userinfo.Info) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.users[info.UserID]; ok {
			return userinfo.ErrUserInfoExists
		}

		st.users[info.UserID] = info

		return nil
	})
}

func (r userInfoRepo) Get(_ context.Context, userID string) (userinfo.Info, error) {
	var info userinfo.Info

	err := r.sc.read(func(st *state) error {
		found, ok := st.users[userID]
		if !ok {
			return userinfo.ErrUserInfoNotFound
		}

		info = found

		return nil
	})

	return info, err
}

func (r userInfoRepo) Update(_ context.Context, info userinfo.Info) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.users[info.UserID]; !ok {
			return userinfo.ErrUserInfoNotFound
		}

		st.users[info.UserID] = info

		return nil
	})
}
