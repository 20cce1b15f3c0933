package layouts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/layout-library/backend/internal/logging"
	"github.com/ayush/layout-library/backend/internal/models"
	"github.com/ayush/layout-library/backend/internal/store/storetest"
)

type env struct {
	h        *Handler
	layouts  *storetest.LayoutStore
	accounts *storetest.AccountStore
	files    *storetest.FileStore
	owner    *models.Account
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		layouts:  storetest.NewLayoutStore(),
		accounts: storetest.NewAccountStore(),
		files:    storetest.NewFileStore(),
	}
	e.owner = &models.Account{Username: "alice", Email: "alice@x.io", Password: "hash", Role: models.RoleUser, IsActive: true}
	require.NoError(t, e.accounts.Create(context.Background(), e.owner))
	e.h = NewHandler(e.layouts, e.accounts, e.files, NewReceiver(e.files, 1<<10))
	return e
}

// create uploads a layout through the handler and returns its view.
func (e *env) create(t *testing.T, title, typ string) models.Layout {
	t.Helper()
	req := multipartRequest(t, http.MethodPost, "/api/upload",
		map[string][]string{"title": {title}, "type": {typ}, "techStack": {"React", "Tailwind"}},
		part{FieldThumbnail, "shot.png", "png-bytes"},
		part{FieldFile, "source.zip", "zip-bytes"},
		part{FieldFile, "notes.txt", "txt-bytes"},
	)
	rec := httptest.NewRecorder()
	e.h.Create(rec, withRoute(req, e.owner, nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Message string        `json:"message"`
		Data    models.Layout `json:"data"`
	}
	decodeBody(t, rec, &body)
	return body.Data
}

func (e *env) list(t *testing.T, typ string) []models.LayoutView {
	t.Helper()
	target := "/api/layouts"
	if typ != "" {
		target += "?type=" + typ
	}
	rec := httptest.NewRecorder()
	e.h.List(rec, withRoute(httptest.NewRequest(http.MethodGet, target, nil), e.owner, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var views []models.LayoutView
	decodeBody(t, rec, &views)
	return views
}

func (e *env) byID(fn http.HandlerFunc, method, id string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, "/api/layouts/"+id, nil)
	fn(rec, withRoute(req, e.owner, map[string]string{"id": id}))
	return rec
}

func TestCreate(t *testing.T) {
	e := newEnv(t)
	l := e.create(t, "Dashboard A", "Web")

	assert.False(t, l.ID.IsZero())
	assert.Equal(t, "Dashboard A", l.Title)
	assert.Equal(t, "Web", l.Type)
	assert.False(t, l.Archived)
	assert.Equal(t, e.owner.ID, l.CreatedBy)
	assert.Equal(t, []string{"React", "Tailwind"}, l.TechStack)
	assert.Equal(t, "shot.png", OriginalName(l.Thumbnail))
	require.Len(t, l.File, 2)
	for _, name := range l.StoredFiles() {
		assert.True(t, e.files.Has(name), name)
	}
}

func TestCreate_Rejections(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name    string
		values  map[string][]string
		parts   []part
		status  int
		message string
	}{
		{
			name:    "no thumbnail",
			values:  map[string][]string{"title": {"T"}, "type": {"Web"}},
			parts:   []part{{FieldFile, "a.zip", "a"}},
			status:  http.StatusBadRequest,
			message: "Thumbnail and File are required",
		},
		{
			name:    "no files",
			values:  map[string][]string{"title": {"T"}, "type": {"Web"}},
			parts:   []part{{FieldThumbnail, "t.png", "t"}},
			status:  http.StatusBadRequest,
			message: "Thumbnail and File are required",
		},
		{
			name:    "no title",
			values:  map[string][]string{"type": {"Web"}},
			parts:   []part{{FieldThumbnail, "t.png", "t"}, {FieldFile, "a.zip", "a"}},
			status:  http.StatusBadRequest,
			message: "Title and type are required",
		},
		{
			name:    "file too large",
			values:  map[string][]string{"title": {"T"}, "type": {"Web"}},
			parts:   []part{{FieldThumbnail, "t.png", "t"}, {FieldFile, "a.zip", string(make([]byte, 2<<10))}},
			status:  http.StatusRequestEntityTooLarge,
			message: "File too large",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := multipartRequest(t, http.MethodPost, "/api/upload", tt.values, tt.parts...)
			rec := httptest.NewRecorder()
			e.h.Create(rec, withRoute(req, e.owner, nil))
			assert.Equal(t, tt.status, rec.Code)
			var body map[string]any
			decodeBody(t, rec, &body)
			assert.Equal(t, tt.message, body["message"])
		})
	}

	assert.Empty(t, e.files.Names(), "rejected uploads leave no files behind")
	assert.Empty(t, e.list(t, ""))
}

type failingInsert struct {
	*storetest.LayoutStore
}

func (failingInsert) Insert(context.Context, *models.Layout) error {
	return errors.New("insert failed")
}

func TestCreate_InsertFailureDiscardsFiles(t *testing.T) {
	e := newEnv(t)
	h := NewHandler(failingInsert{e.layouts}, e.accounts, e.files, NewReceiver(e.files, 0))

	req := multipartRequest(t, http.MethodPost, "/api/upload",
		map[string][]string{"title": {"T"}, "type": {"Web"}},
		part{FieldThumbnail, "t.png", "t"}, part{FieldFile, "a.zip", "a"})
	rec := httptest.NewRecorder()
	h.Create(rec, withRoute(req, e.owner, nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, e.files.Names())
}

func TestList_PartitionsByArchivedAndType(t *testing.T) {
	e := newEnv(t)
	web := e.create(t, "Web one", "Web")
	mobile := e.create(t, "Mobile one", "Mobile")
	archived := e.create(t, "Old", "Web")
	require.Equal(t, http.StatusOK, e.byID(e.h.Archive, http.MethodPatch, archived.ID.Hex()).Code)

	ids := func(views []models.LayoutView) []string {
		out := make([]string, 0, len(views))
		for _, v := range views {
			out = append(out, v.ID.Hex())
		}
		return out
	}

	live := ids(e.list(t, ""))
	assert.ElementsMatch(t, []string{web.ID.Hex(), mobile.ID.Hex()}, live)
	assert.ElementsMatch(t, live, ids(e.list(t, "All")))
	assert.Equal(t, []string{web.ID.Hex()}, ids(e.list(t, "Web")))
	assert.Equal(t, []string{archived.ID.Hex()}, ids(e.list(t, "Archive")))

	rec := httptest.NewRecorder()
	e.h.ListArchived(rec, withRoute(httptest.NewRequest(http.MethodGet, "/api/layouts/archived", nil), e.owner, nil))
	var views []models.LayoutView
	decodeBody(t, rec, &views)
	assert.Equal(t, []string{archived.ID.Hex()}, ids(views))
}

func TestList_PopulatesOwner(t *testing.T) {
	e := newEnv(t)
	e.create(t, "Mine", "Web")
	orphan := &models.Layout{Title: "Orphan", Type: "Web", CreatedBy: "000000000000000000000000"}
	require.NoError(t, e.layouts.Insert(context.Background(), orphan))

	rec := httptest.NewRecorder()
	e.h.List(rec, withRoute(httptest.NewRequest(http.MethodGet, "/api/layouts", nil), e.owner, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var raw []map[string]any
	decodeBody(t, rec, &raw)
	require.Len(t, raw, 2)
	byTitle := map[string]map[string]any{}
	for _, v := range raw {
		byTitle[v["title"].(string)] = v
	}
	owner := byTitle["Mine"]["createdBy"].(map[string]any)
	assert.Equal(t, e.owner.ID, owner["_id"])
	assert.Equal(t, "alice", owner["username"])
	assert.Equal(t, "alice@x.io", owner["email"])
	assert.Nil(t, byTitle["Orphan"]["createdBy"])
}

func TestGet(t *testing.T) {
	e := newEnv(t)
	l := e.create(t, "Dashboard A", "Web")

	rec := e.byID(e.h.Get, http.MethodGet, l.ID.Hex())
	require.Equal(t, http.StatusOK, rec.Code)
	var view models.LayoutView
	decodeBody(t, rec, &view)
	assert.Equal(t, "Dashboard A", view.Title)
	require.NotNil(t, view.CreatedBy)
	assert.Equal(t, "alice", view.CreatedBy.Username)

	for _, id := range []string{"not-an-id", "000000000000000000000000"} {
		rec = e.byID(e.h.Get, http.MethodGet, id)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"message":"Item not found"}`, rec.Body.String())
	}
}

func TestArchiveRestore_RoundTrip(t *testing.T) {
	e := newEnv(t)
	l := e.create(t, "Dashboard A", "Web")
	id := l.ID.Hex()

	rec := e.byID(e.h.Archive, http.MethodPatch, id)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Message string        `json:"message"`
		Data    models.Layout `json:"data"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, "Item archived", body.Message)
	assert.True(t, body.Data.Archived)
	assert.Empty(t, e.list(t, ""))

	rec = e.byID(e.h.Restore, http.MethodPatch, id)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &body)
	assert.Equal(t, "Item restored", body.Message)
	assert.False(t, body.Data.Archived)

	restored := body.Data
	assert.Equal(t, l.Title, restored.Title)
	assert.Equal(t, l.File, restored.File)
	assert.Equal(t, l.Thumbnail, restored.Thumbnail)
	assert.Len(t, e.list(t, ""), 1)

	rec = e.byID(e.h.Archive, http.MethodPatch, "000000000000000000000000")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeletePermanent_ToleratesMissingFiles(t *testing.T) {
	e := newEnv(t)
	l := e.create(t, "Dashboard A", "Web")
	keep := e.create(t, "Other", "Web")

	require.NoError(t, e.files.Remove(context.Background(), l.File[0]))

	rec := e.byID(e.h.DeletePermanent, http.MethodDelete, l.ID.Hex())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Item permanently deleted"}`, rec.Body.String())

	for _, name := range l.StoredFiles() {
		assert.False(t, e.files.Has(name), name)
	}
	for _, name := range keep.StoredFiles() {
		assert.True(t, e.files.Has(name), name)
	}

	rec = e.byID(e.h.Get, http.MethodGet, l.ID.Hex())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.byID(e.h.DeletePermanent, http.MethodDelete, l.ID.Hex())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdate(t *testing.T) {
	e := newEnv(t)
	l := e.create(t, "Dashboard A", "Web")
	id := l.ID.Hex()

	t.Run("fields only keeps files", func(t *testing.T) {
		req := multipartRequest(t, http.MethodPatch, "/api/layouts/"+id,
			map[string][]string{"title": {"Dashboard B"}, "type": {"Mobile"}, "techStack": {"Vue"}})
		rec := httptest.NewRecorder()
		e.h.Update(rec, withRoute(req, e.owner, map[string]string{"id": id}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var body struct {
			Message string            `json:"message"`
			Data    models.LayoutView `json:"data"`
		}
		decodeBody(t, rec, &body)
		assert.Equal(t, "Layout updated successfully", body.Message)
		assert.Equal(t, "Dashboard B", body.Data.Title)
		assert.Equal(t, "Mobile", body.Data.Type)
		assert.Equal(t, models.DefaultCategory, body.Data.Category)
		assert.Equal(t, []string{"Vue"}, body.Data.TechStack)
		assert.Equal(t, l.Thumbnail, body.Data.Thumbnail)
		assert.Equal(t, l.File, body.Data.File)
		require.NotNil(t, body.Data.CreatedBy)
		assert.Equal(t, "alice", body.Data.CreatedBy.Username)
	})

	t.Run("new files replace the list", func(t *testing.T) {
		req := multipartRequest(t, http.MethodPatch, "/api/layouts/"+id,
			map[string][]string{"title": {"Dashboard C"}, "type": {"Web"}, "category": {"Admin"}},
			part{FieldFile, "v2.zip", "v2"})
		rec := httptest.NewRecorder()
		e.h.Update(rec, withRoute(req, e.owner, map[string]string{"id": id}))
		require.Equal(t, http.StatusOK, rec.Code)

		stored, err := e.layouts.GetByID(context.Background(), id)
		require.NoError(t, err)
		require.Len(t, stored.File, 1)
		assert.Equal(t, "v2.zip", OriginalName(stored.File[0]))
		assert.Equal(t, l.Thumbnail, stored.Thumbnail)
		assert.Equal(t, "Admin", stored.Category)
	})

	t.Run("unknown layout stores nothing", func(t *testing.T) {
		before := len(e.files.Names())
		req := multipartRequest(t, http.MethodPatch, "/api/layouts/x", nil, part{FieldFile, "v3.zip", "v3"})
		rec := httptest.NewRecorder()
		e.h.Update(rec, withRoute(req, e.owner, map[string]string{"id": "000000000000000000000000"}))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"message":"Layout not found"}`, rec.Body.String())
		assert.Len(t, e.files.Names(), before)
	})
}

func TestDownload(t *testing.T) {
	e := newEnv(t)
	l := e.create(t, "Dashboard A", "Web")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/download/"+l.File[0], nil)
	e.h.Download(rec, withRoute(req, nil, map[string]string{"filename": l.File[0]}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="source.zip"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "zip-bytes", rec.Body.String())

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/download/missing.zip", nil)
	e.h.Download(rec, withRoute(req, nil, map[string]string{"filename": "missing.zip"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"File not found"}`, rec.Body.String())
}

func TestServe(t *testing.T) {
	e := newEnv(t)
	l := e.create(t, "Dashboard A", "Web")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/uploads/"+l.Thumbnail, nil)
	e.h.Serve(rec, withRoute(req, nil, map[string]string{"filename": l.Thumbnail}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", rec.Body.String())
}

type cutOffFiles struct {
	*storetest.FileStore
}

func (cutOffFiles) Open(context.Context, string) (io.ReadCloser, string, error) {
	body := io.MultiReader(strings.NewReader("part"), iotest.ErrReader(errors.New("disk gone")))
	return io.NopCloser(body), "application/zip", nil
}

func TestStreaming_LogsInterruptedCopies(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	logging.SetupWriter(&logs, "layouts-test", false)
	t.Cleanup(func() { slog.SetDefault(prev) })

	e := newEnv(t)
	h := NewHandler(e.layouts, e.accounts, cutOffFiles{e.files}, NewReceiver(e.files, 0))
	params := map[string]string{"filename": "1-a.zip"}

	rec := httptest.NewRecorder()
	h.Download(rec, withRoute(httptest.NewRequest(http.MethodGet, "/api/download/1-a.zip", nil), nil, params))
	assert.Equal(t, "part", rec.Body.String())

	rec = httptest.NewRecorder()
	h.Serve(rec, withRoute(httptest.NewRequest(http.MethodGet, "/uploads/1-a.zip", nil), nil, params))
	assert.Equal(t, "part", rec.Body.String())

	assert.Contains(t, logs.String(), "download interrupted")
	assert.Contains(t, logs.String(), "serve file interrupted")
	assert.Contains(t, logs.String(), "disk gone")
}
