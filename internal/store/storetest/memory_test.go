package storetest

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/layout-library/backend/internal/apperr"
	"github.com/ayush/layout-library/backend/internal/models"
)

func TestAccountStore_Uniqueness(t *testing.T) {
	s := NewAccountStore()
	ctx := context.Background()

	a := &models.Account{Username: "alice", Email: "a@x.io", Password: "h", Role: models.RoleUser, IsActive: true}
	require.NoError(t, s.Create(ctx, a))
	assert.NotEmpty(t, a.ID)

	dup := &models.Account{Username: "alice", Email: "other@x.io"}
	assert.ErrorIs(t, s.Create(ctx, dup), apperr.ErrConflict)

	b := &models.Account{Username: "bob", Email: "b@x.io"}
	require.NoError(t, s.Create(ctx, b))

	email := "a@x.io"
	_, err := s.Update(ctx, b.ID, models.AccountUpdate{Email: &email})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// re-applying your own email is not a conflict
	same := "b@x.io"
	_, err = s.Update(ctx, b.ID, models.AccountUpdate{Email: &same})
	assert.NoError(t, err)
}

func TestAccountStore_HidesPassword(t *testing.T) {
	s := NewAccountStore()
	ctx := context.Background()
	a := &models.Account{Username: "alice", Email: "a@x.io", Password: "hash"}
	require.NoError(t, s.Create(ctx, a))

	got, err := s.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Password)

	got, err = s.FindByEmail(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, "hash", got.Password)
}

func TestLayoutStore_ListOrderAndFilter(t *testing.T) {
	s := NewLayoutStore()
	ctx := context.Background()
	base := time.Now()

	for i, typ := range []string{"Web", "Mobile", "Web"} {
		require.NoError(t, s.Insert(ctx, &models.Layout{Title: typ, Type: typ, CreatedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	web, err := s.List(ctx, models.LayoutFilter{Type: "Web"})
	require.NoError(t, err)
	require.Len(t, web, 2)
	assert.True(t, web[0].CreatedAt.After(web[1].CreatedAt))

	_, err = s.GetByID(ctx, "not-an-id")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFileStore(t *testing.T) {
	s := NewFileStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "1-a.png", strings.NewReader("png"), 3, ""))
	assert.Error(t, s.Save(ctx, "../escape.png", strings.NewReader("x"), 1, ""))
	assert.True(t, s.Has("1-a.png"))
	assert.Equal(t, []string{"1-a.png"}, s.Names())

	rc, ct, err := s.Open(ctx, "1-a.png")
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png", string(b))
	assert.Equal(t, "image/png", ct)

	require.NoError(t, s.Remove(ctx, "1-a.png"))
	assert.ErrorIs(t, s.Remove(ctx, "1-a.png"), apperr.ErrNotFound)
	_, _, err = s.Open(ctx, "1-a.png")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
