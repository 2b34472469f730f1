package userinfo

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/moneyserver/internal/infra/pgtestutil"
	"github.com/fastprodman/moneyserver/internal/repos/userinfo"
)

func TestUserInfo_RoundTrip(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)

	repo := New(db)
	ctx := t.Context()

	info := userinfo.Info{
		UserID:       "alice",
		SimIP:        "10.0.0.1",
		AvatarName:   "Alice Resident",
		PasswordHash: "$1$abc",
		AvatarType:   1,
		AvatarClass:  2,
		ServerURL:    "http://sim.example:9000",
	}

	err := repo.Add(ctx, info)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	err = repo.Add(ctx, info)
	if !errors.Is(err, userinfo.ErrUserInfoExists) {
		t.Fatalf("want ErrUserInfoExists, got %v", err)
	}

	info.SimIP = "10.0.0.2"
	info.AvatarClass = 3

	err = repo.Update(ctx, info)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != info {
		t.Fatalf("info mismatch: want %+v, got %+v", info, got)
	}

	err = repo.Update(ctx, userinfo.Info{UserID: "bob"})
	if !errors.Is(err, userinfo.ErrUserInfoNotFound) {
		t.Fatalf("want ErrUserInfoNotFound on update, got %v", err)
	}

	_, err = repo.Get(ctx, "bob")
	if !errors.Is(err, userinfo.ErrUserInfoNotFound) {
		t.Fatalf("want ErrUserInfoNotFound on get, got %v", err)
	}
}

func TestUserInfo_ErrorMappingMock(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO user_info").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectExec("UPDATE user_info").
		WithArgs("bob", "", "", "", 0, 0, "").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := New(db)

	err = repo.Add(t.Context(), userinfo.Info{UserID: "alice"})
	require.ErrorIs(t, err, userinfo.ErrUserInfoExists)

	err = repo.Update(t.Context(), userinfo.Info{UserID: "bob"})
	require.ErrorIs(t, err, userinfo.ErrUserInfoNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
