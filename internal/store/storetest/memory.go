// Package storetest provides in-memory stores with the same semantics as
// the database-backed ones, for handler and router tests.
package storetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/layout-library/backend/internal/apperr"
	"github.com/ayush/layout-library/backend/internal/models"
)

// AccountStore is an in-process account store.
type AccountStore struct {
	mu       sync.Mutex
	accounts map[string]models.Account
}

func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: map[string]models.Account{}}
}

func (s *AccountStore) Create(ctx context.Context, acc *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken(acc.Email, acc.Username, "") {
		return apperr.ErrConflict
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now()
	}
	acc.ID = primitive.NewObjectID().Hex()
	s.accounts[acc.ID] = *acc
	return nil
}

func (s *AccountStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	acc.Password = ""
	return &acc, nil
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.Email == email {
			return &acc, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (s *AccountStore) FindByRole(ctx context.Context, role models.Role) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *models.Account
	for _, acc := range s.accounts {
		if acc.Role != role {
			continue
		}
		if found == nil || acc.CreatedAt.Before(found.CreatedAt) {
			a := acc
			found = &a
		}
	}
	if found == nil {
		return nil, apperr.ErrNotFound
	}
	found.Password = ""
	return found, nil
}

func (s *AccountStore) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taken(email, username, ""), nil
}

func (s *AccountStore) List(ctx context.Context) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		acc.Password = ""
		out = append(out, acc)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *AccountStore) Update(ctx context.Context, id string, upd models.AccountUpdate) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	email, username := "", ""
	if upd.Email != nil {
		email = *upd.Email
	}
	if upd.Username != nil {
		username = *upd.Username
	}
	if s.taken(email, username, id) {
		return nil, apperr.ErrConflict
	}
	if upd.Username != nil {
		acc.Username = *upd.Username
	}
	if upd.Email != nil {
		acc.Email = *upd.Email
	}
	if upd.Password != nil {
		acc.Password = *upd.Password
	}
	if upd.Role != nil {
		acc.Role = *upd.Role
	}
	if upd.IsActive != nil {
		acc.IsActive = *upd.IsActive
	}
	s.accounts[id] = acc
	acc.Password = ""
	return &acc, nil
}

func (s *AccountStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return apperr.ErrNotFound
	}
	acc.LastLogin = &at
	s.accounts[id] = acc
	return nil
}

// taken reports whether another account already uses email or username.
// Empty values never match.
func (s *AccountStore) taken(email, username, exceptID string) bool {
	for id, acc := range s.accounts {
		if id == exceptID {
			continue
		}
		if (email != "" && acc.Email == email) || (username != "" && acc.Username == username) {
			return true
		}
	}
	return false
}

// LayoutStore is an in-process layout store.
type LayoutStore struct {
	mu      sync.Mutex
	layouts map[primitive.ObjectID]models.Layout
}

func NewLayoutStore() *LayoutStore {
	return &LayoutStore{layouts: map[primitive.ObjectID]models.Layout{}}
}

func (s *LayoutStore) Insert(ctx context.Context, l *models.Layout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	if l.TechStack == nil {
		l.TechStack = []string{}
	}
	l.ID = primitive.NewObjectID()
	s.layouts[l.ID] = cloneLayout(*l)
	return nil
}

func (s *LayoutStore) List(ctx context.Context, f models.LayoutFilter) ([]models.Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Layout
	for _, l := range s.layouts {
		if l.Archived != f.Archived || (f.Type != "" && l.Type != f.Type) {
			continue
		}
		out = append(out, cloneLayout(l))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *LayoutStore) GetByID(ctx context.Context, id string) (*models.Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lookup(id)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &l, nil
}

func (s *LayoutStore) Update(ctx context.Context, id string, upd models.LayoutUpdate) (*models.Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lookup(id)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	l.Title, l.Type, l.Description, l.Category = upd.Title, upd.Type, upd.Description, upd.Category
	l.TechStack = append([]string{}, upd.TechStack...)
	if upd.Thumbnail != nil {
		l.Thumbnail = *upd.Thumbnail
	}
	if upd.File != nil {
		l.File = append([]string(nil), upd.File...)
	}
	s.layouts[l.ID] = cloneLayout(l)
	return &l, nil
}

func (s *LayoutStore) SetArchived(ctx context.Context, id string, archived bool) (*models.Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lookup(id)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	l.Archived = archived
	s.layouts[l.ID] = cloneLayout(l)
	return &l, nil
}

func (s *LayoutStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lookup(id)
	if !ok {
		return apperr.ErrNotFound
	}
	delete(s.layouts, l.ID)
	return nil
}

func (s *LayoutStore) lookup(id string) (models.Layout, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Layout{}, false
	}
	l, ok := s.layouts[oid]
	return cloneLayout(l), ok
}

func cloneLayout(l models.Layout) models.Layout {
	l.File = append([]string(nil), l.File...)
	l.TechStack = append([]string{}, l.TechStack...)
	return l
}

// FileStore keeps file contents in memory.
type FileStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func NewFileStore() *FileStore {
	return &FileStore{files: map[string][]byte{}}
}

func (s *FileStore) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid file name %q", name)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = b
	return nil
}

func (s *FileStore) Open(ctx context.Context, name string) (io.ReadCloser, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[name]
	if !ok {
		return nil, "", apperr.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), contentType(name), nil
}

func (s *FileStore) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[name]; !ok {
		return apperr.ErrNotFound
	}
	delete(s.files, name)
	return nil
}

// Has reports whether a file with the given name is stored.
func (s *FileStore) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[name]
	return ok
}

// Names returns the stored file names in sorted order.
func (s *FileStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.files))
	for n := range s.files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
