package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"scdl-bot/internal/model"
)

// TimeLayout is the timestamp format of the datetime_added column.
const TimeLayout = "2006-01-02 15:04:05"

const (
	columnUserID     = "user_id"
	columnLegacyUser = "users"
	columnAddedAt    = "datetime_added"

	utf8BOM = "\ufeff"
)

// ErrUnknownCSVLayout is returned when the registry file has no user id column.
// The file is left untouched.
var ErrUnknownCSVLayout = errors.New("users csv has no user_id column")

// CSVUserRepository stores the registry as a two-column CSV file and rewrites
// the whole file on every insert. The mutex only serialises writers inside
// this process; two processes sharing the file can still lose updates.
type CSVUserRepository struct {
	path string
	mu   sync.Mutex
}

// NewCSVUserRepository creates the file with a header when missing and
// migrates older layouts (a single "users" column, no timestamp column).
func NewCSVUserRepository(path string) (*CSVUserRepository, error) {
	r := &CSVUserRepository{path: path}
	if err := r.init(); err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the location of the CSV file.
func (r *CSVUserRepository) Path() string {
	return r.path
}

func (r *CSVUserRepository) init() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := os.ReadFile(r.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return r.write(nil)
	case err != nil:
		return fmt.Errorf("read %s: %w", r.path, err)
	}

	header, err := csv.NewReader(bytes.NewReader(raw)).Read()
	if errors.Is(err, io.EOF) {
		return r.write(nil)
	}
	if err != nil {
		return fmt.Errorf("parse header of %s: %w", r.path, err)
	}
	if len(header) == 2 && header[0] == columnUserID && header[1] == columnAddedAt {
		return nil
	}
	// Legacy layouts and BOM-prefixed headers are rewritten in place.

	users, err := r.read()
	if err != nil {
		return err
	}
	return r.write(users)
}

func (r *CSVUserRepository) Get(ctx context.Context, id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.read()
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == id {
			user := u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (r *CSVUserRepository) Upsert(ctx context.Context, user model.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.read()
	if err != nil {
		return false, err
	}
	for _, u := range users {
		if u.ID == user.ID {
			return false, nil
		}
	}
	if err := r.write(append(users, user)); err != nil {
		return false, err
	}
	return true, nil
}

func (r *CSVUserRepository) List(ctx context.Context) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

func (r *CSVUserRepository) ReplaceAll(ctx context.Context, users []model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write(users)
}

// read parses the file, tolerating the legacy "users" header and
// float-formatted ids left behind by spreadsheet tools.
func (r *CSVUserRepository) read() ([]model.User, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", r.path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", r.path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	idCol, addedCol := -1, -1
	for i, name := range records[0] {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		switch strings.TrimSpace(name) {
		case columnUserID, columnLegacyUser:
			if idCol < 0 {
				idCol = i
			}
		case columnAddedAt:
			addedCol = i
		}
	}
	if idCol < 0 {
		return nil, fmt.Errorf("parse %s: %w (header %q)", r.path, ErrUnknownCSVLayout, records[0])
	}

	seen := make(map[int64]struct{}, len(records)-1)
	users := make([]model.User, 0, len(records)-1)
	for _, rec := range records[1:] {
		if idCol >= len(rec) {
			continue
		}
		id, ok := parseUserID(rec[idCol])
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		user := model.User{ID: id}
		if addedCol >= 0 && addedCol < len(rec) {
			if ts, err := time.ParseInLocation(TimeLayout, strings.TrimSpace(rec[addedCol]), time.Local); err == nil {
				user.JoinedAt = ts
			}
		}
		users = append(users, user)
	}
	return users, nil
}

// write replaces the file through a temp file in the same directory.
func (r *CSVUserRepository) write(users []model.User) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".users-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteUsersCSV(tmp, users); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace %s: %w", r.path, err)
	}
	return nil
}

// WriteUsersCSV encodes users in the registry CSV layout.
func WriteUsersCSV(w io.Writer, users []model.User) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{columnUserID, columnAddedAt}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, u := range users {
		added := ""
		if !u.JoinedAt.IsZero() {
			added = u.JoinedAt.Format(TimeLayout)
		}
		if err := cw.Write([]string{strconv.FormatInt(u.ID, 10), added}); err != nil {
			return fmt.Errorf("write user %d: %w", u.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func parseUserID(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}
