package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"scdl-bot/internal/model"
)

const metaChannelsSeeded = "channels_seeded"

// GormChannelRepository keeps the sponsor list in a SQL table ordered by position.
type GormChannelRepository struct {
	db *gorm.DB
}

func NewGormChannelRepository(db *gorm.DB) *GormChannelRepository {
	return &GormChannelRepository{db: db}
}

func (r *GormChannelRepository) List(ctx context.Context) ([]string, error) {
	var rows []model.SponsorChannel
	if err := r.db.WithContext(ctx).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	channels := make([]string, 0, len(rows))
	for _, row := range rows {
		channels = append(channels, row.Handle)
	}
	return channels, nil
}

// ReplaceAll swaps the whole list inside one transaction and marks the list as initialized.
func (r *GormChannelRepository) ReplaceAll(ctx context.Context, channels []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.SponsorChannel{}).Error; err != nil {
			return fmt.Errorf("clear channels: %w", err)
		}
		for i, ch := range channels {
			row := model.SponsorChannel{Position: i, Handle: ch, Normalized: normalizeHandle(ch)}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("insert channel %q: %w", ch, err)
			}
		}
		flag := model.Meta{Name: metaChannelsSeeded, Value: "1"}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&flag).Error; err != nil {
			return fmt.Errorf("mark channels seeded: %w", err)
		}
		return nil
	})
}

func (r *GormChannelRepository) Initialized(ctx context.Context) (bool, error) {
	var flag model.Meta
	err := r.db.WithContext(ctx).First(&flag, "name = ?", metaChannelsSeeded).Error
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("find meta: %w", err)
	}
}
