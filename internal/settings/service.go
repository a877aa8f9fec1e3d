// Package settings is the key-value settings store: restaurant identity,
// receipt footer, service charge, and the preparation-station directory.
// The next_check_number key lives here physically but belongs to the
// check-number allocator; writes through this service reject it.
package settings

import (
	"context"
	"fmt"
	"strconv"

	"pos-core/internal/eventbus"
	"pos-core/internal/models"
	"pos-core/internal/printer"

	"github.com/uptrace/bun"
)

type Notifier interface {
	Publish(kind string, subject int64)
}

type Service struct {
	Bun *bun.DB
	Bus Notifier
}

func NewService(bunDB *bun.DB, bus Notifier) *Service {
	return &Service{Bun: bunDB, Bus: bus}
}

func (s *Service) All(ctx context.Context) (map[string]string, error) {
	var rows []models.Setting
	if err := s.Bun.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, key string) (string, error) {
	var row models.Setting
	err := s.Bun.NewSelect().Model(&row).Where("key = ?", key).Scan(ctx)
	if err != nil {
		return "", err
	}
	return row.Value, nil
}

// Save upserts the given settings in one transaction. The check-number
// counter is reserved for the allocator and cannot be written here.
func (s *Service) Save(ctx context.Context, values map[string]string) error {
	if _, ok := values[models.SettingNextCheckNumber]; ok {
		return fmt.Errorf("setting %q is reserved: %w", models.SettingNextCheckNumber, models.ErrValidation)
	}

	err := s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for key, value := range values {
			row := &models.Setting{Key: key, Value: value}
			_, err := tx.NewInsert().
				Model(row).
				On("CONFLICT (key) DO UPDATE").
				Set("value = EXCLUDED.value").
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	s.Bus.Publish(eventbus.KindSettings, 0)
	return nil
}

// Identity returns the restaurant header/footer used on receipts.
func (s *Service) Identity(ctx context.Context) (printer.Identity, error) {
	all, err := s.All(ctx)
	if err != nil {
		return printer.Identity{}, err
	}
	return printer.Identity{
		Name:    all["restaurantName"],
		Address: all["address"],
		Phone:   all["phone"],
		Footer:  all["receiptFooter"],
	}, nil
}

// ServiceChargePercent reads the configured service charge; absent or
// malformed values mean no charge.
func (s *Service) ServiceChargePercent(ctx context.Context) float64 {
	all, err := s.All(ctx)
	if err != nil {
		return 0
	}
	percent, err := strconv.ParseFloat(all["serviceCharge"], 64)
	if err != nil || percent < 0 {
		return 0
	}
	return percent
}

func (s *Service) Kitchens(ctx context.Context) ([]models.Kitchen, error) {
	var kitchens []models.Kitchen
	if err := s.Bun.NewSelect().Model(&kitchens).Order("id").Scan(ctx); err != nil {
		return nil, err
	}
	return kitchens, nil
}

func (s *Service) SaveKitchen(ctx context.Context, kitchen models.Kitchen) error {
	if kitchen.Name == "" {
		return fmt.Errorf("kitchen has no name: %w", models.ErrValidation)
	}
	if kitchen.PrinterPort == 0 {
		kitchen.PrinterPort = 9100
	}

	var err error
	if kitchen.ID > 0 {
		_, err = s.Bun.NewUpdate().
			Model(&kitchen).
			Column("name", "printer_addr", "printer_port").
			Where("id = ?", kitchen.ID).
			Exec(ctx)
	} else {
		_, err = s.Bun.NewInsert().Model(&kitchen).Exec(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to save kitchen: %w", err)
	}

	s.Bus.Publish(eventbus.KindSettings, 0)
	return nil
}

func (s *Service) DeleteKitchen(ctx context.Context, id int64) error {
	_, err := s.Bun.NewDelete().
		Model((*models.Kitchen)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete kitchen: %w", err)
	}

	s.Bus.Publish(eventbus.KindSettings, 0)
	return nil
}
