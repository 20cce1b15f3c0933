package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, r)

	r, ok = ParseRole(" user ")
	assert.True(t, ok)
	assert.Equal(t, RoleUser, r)

	for _, bad := range []string{"", "superuser", "Admin"} {
		_, ok := ParseRole(bad)
		assert.False(t, ok, bad)
	}
}

func TestAccount_PasswordNeverSerialized(t *testing.T) {
	a := Account{ID: "1", Username: "u", Password: "$2a$10$hash", Role: RoleUser, IsActive: true}
	b, err := json.Marshal(a)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hash")
	assert.NotContains(t, string(b), "password")
}

func TestLayoutView_OwnerShadowsCreatedBy(t *testing.T) {
	v := LayoutView{
		Layout:    Layout{ID: primitive.NewObjectID(), Title: "t", CreatedBy: "abc"},
		CreatedBy: &Owner{ID: "abc", Username: "alice", Email: "a@x.io"},
	}
	b, err := json.Marshal(v)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	owner, ok := out["createdBy"].(map[string]any)
	require.True(t, ok, "createdBy should be an object: %s", b)
	assert.Equal(t, "alice", owner["username"])
}

func TestLayout_StoredFiles(t *testing.T) {
	l := Layout{Thumbnail: "1-t.png", File: []string{"2-a.zip", "", "3-b.zip"}}
	assert.Equal(t, []string{"1-t.png", "2-a.zip", "3-b.zip"}, l.StoredFiles())
}
