package persistent

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock
}

func TestFollowRepository_FollowIgnoresDuplicates(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFollowRepository(db)

	mock.ExpectExec(`INSERT INTO "follows" .* ON CONFLICT DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "follows" .* ON CONFLICT DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.Follow(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Follow(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.False(t, created)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_Unfollow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFollowRepository(db)

	mock.ExpectExec(`DELETE FROM "follows" WHERE follower_id = \$1 AND following_id = \$2`).
		WithArgs("alice", "bob").
		WillReturnResult(sqlmock.NewResult(0, 1))

	removed, err := repo.Unfollow(context.Background(), "alice", "bob")

	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_Followers(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFollowRepository(db)

	rows := sqlmock.NewRows([]string{"id", "username", "email", "profile_photo"}).
		AddRow("bob", "bob", "bob@test.com", "uploads/images.png").
		AddRow("carol", "carol", "carol@test.com", "")
	mock.ExpectQuery(`SELECT users.id, users.username, users.email, users.profile_photo FROM "users" JOIN follows ON follows.follower_id = users.id WHERE follows.following_id = \$1`).
		WithArgs("alice").
		WillReturnRows(rows)

	followers, err := repo.Followers(context.Background(), "alice")

	require.NoError(t, err)
	require.Len(t, followers, 2)
	assert.Equal(t, "bob", followers[0].ID)
	assert.Equal(t, "carol@test.com", followers[1].Email)
}

func TestUserRepository_UsernameTakenExcludesSelf(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE username = \$1 AND id <> \$2`).
		WithArgs("alice", "alice-id").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	taken, err := repo.UsernameTaken(context.Background(), "alice", "alice-id")

	require.NoError(t, err)
	assert.False(t, taken)
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "ghost")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_MalformedIDIsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	badUUID := &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`}

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).WillReturnError(badUUID)
	mock.ExpectExec(`UPDATE "users" SET "username"=\$1`).WillReturnError(badUUID)

	_, err := repo.GetByID(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.UpdateUsername(context.Background(), "abc", "neo"), ErrNotFound)
}
