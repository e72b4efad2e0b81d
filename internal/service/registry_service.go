package service

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"scdl-bot/internal/model"
	"scdl-bot/internal/repository"
)

const registrySheet = "Users"

// RegistryService records first contact of users and exports the registry.
type RegistryService struct {
	repo repository.UserRepository
	now  func() time.Time
}

func NewRegistryService(repo repository.UserRepository) *RegistryService {
	return &RegistryService{repo: repo, now: time.Now}
}

// Register adds the user on first contact and reports whether it was new.
func (s *RegistryService) Register(ctx context.Context, userID int64) (bool, error) {
	created, err := s.repo.Upsert(ctx, model.User{ID: userID, JoinedAt: s.now().Truncate(time.Second)})
	if err != nil {
		return false, fmt.Errorf("register user %d: %w", userID, err)
	}
	return created, nil
}

func (s *RegistryService) UserIDs(ctx context.Context) ([]int64, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

func (s *RegistryService) Count(ctx context.Context) (int, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(users), nil
}

// ExportCSV renders the registry as user_id,datetime_added and returns the row count.
func (s *RegistryService) ExportCSV(ctx context.Context) ([]byte, int, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	var buf bytes.Buffer
	if err := repository.WriteUsersCSV(&buf, users); err != nil {
		return nil, 0, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), len(users), nil
}

// ExportXLSX renders the registry as a single-sheet workbook.
func (s *RegistryService) ExportXLSX(ctx context.Context) ([]byte, int, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, 0, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", registrySheet); err != nil {
		return nil, 0, fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(registrySheet, "A1", &[]interface{}{"user_id", "datetime_added"}); err != nil {
		return nil, 0, fmt.Errorf("write header: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetCellStyle(registrySheet, "A1", "B1", style); err != nil {
		return nil, 0, fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(registrySheet, "A", "B", 22); err != nil {
		return nil, 0, fmt.Errorf("set column width: %w", err)
	}

	for i, u := range users {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, 0, err
		}
		added := ""
		if !u.JoinedAt.IsZero() {
			added = u.JoinedAt.Format(repository.TimeLayout)
		}
		// ids are written as text so spreadsheet tools do not round them.
		row := []interface{}{strconv.FormatInt(u.ID, 10), added}
		if err := f.SetSheetRow(registrySheet, cell, &row); err != nil {
			return nil, 0, fmt.Errorf("write user %d: %w", u.ID, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("render workbook: %w", err)
	}
	return buf.Bytes(), len(users), nil
}
