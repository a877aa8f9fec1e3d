// Package staff is the staff directory: PIN login and identity lookups
// used to stamp orders and sales.
package staff

import (
	"context"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"

	"pos-core/internal/eventbus"
	"pos-core/internal/models"

	"github.com/uptrace/bun"
	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 1000
	pbkdf2KeyLen     = 64
)

var pinPattern = regexp.MustCompile(`^\d+$`)

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

func hashPIN(pin, salt string) (string, string, error) {
	if salt == "" {
		raw := make([]byte, 16)
		if _, err := rand.Read(raw); err != nil {
			return "", "", fmt.Errorf("failed to generate salt: %w", err)
		}
		salt = hex.EncodeToString(raw)
	}
	hash := pbkdf2.Key([]byte(pin), []byte(salt), pbkdf2Iterations, pbkdf2KeyLen, sha512.New)
	return hex.EncodeToString(hash), salt, nil
}

// Resolve looks a staff member up by id for stamping onto orders.
func (s *Service) Resolve(ctx context.Context, id int64) (*models.StaffRef, error) {
	var staff models.Staff
	err := s.Bun.NewSelect().Model(&staff).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("staff %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &models.StaffRef{ID: staff.ID, Name: staff.Name, Role: staff.Role}, nil
}

// Login matches a PIN against every staff member. Salts are per-user, so
// there is no way to look the hash up directly; the staff list is small
// enough that scanning it is fine.
func (s *Service) Login(ctx context.Context, pin string) (*models.StaffRef, error) {
	var all []models.Staff
	if err := s.Bun.NewSelect().Model(&all).Scan(ctx); err != nil {
		return nil, err
	}

	for _, staff := range all {
		if matchesPIN(staff, pin) {
			return &models.StaffRef{ID: staff.ID, Name: staff.Name, Role: staff.Role}, nil
		}
	}
	return nil, fmt.Errorf("wrong PIN: %w", models.ErrNotFound)
}

// matchesPIN also accepts legacy rows that predate hashing and still hold
// the raw PIN with no salt.
func matchesPIN(staff models.Staff, pin string) bool {
	if staff.Salt == "" {
		return subtle.ConstantTimeCompare([]byte(staff.PIN), []byte(pin)) == 1
	}
	hash, _, err := hashPIN(pin, staff.Salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(staff.PIN), []byte(hash)) == 1
}

// List returns staff without credential fields.
func (s *Service) List(ctx context.Context) ([]models.StaffRef, error) {
	var all []models.Staff
	if err := s.Bun.NewSelect().Model(&all).Order("id").Scan(ctx); err != nil {
		return nil, err
	}

	refs := make([]models.StaffRef, len(all))
	for i, staff := range all {
		refs[i] = models.StaffRef{ID: staff.ID, Name: staff.Name, Role: staff.Role}
	}
	return refs, nil
}

// Save creates or updates a staff member. A new PIN is hashed with a
// fresh salt; an update without a PIN keeps the stored credential.
func (s *Service) Save(ctx context.Context, id int64, name, pin, role string) error {
	if name == "" {
		return fmt.Errorf("staff has no name: %w", models.ErrValidation)
	}
	if pin != "" && !pinPattern.MatchString(pin) {
		return fmt.Errorf("PIN must be digits only: %w", models.ErrValidation)
	}
	if role == "" {
		role = models.RoleWaiter
	}

	if id > 0 {
		if pin != "" {
			hash, salt, err := hashPIN(pin, "")
			if err != nil {
				return err
			}
			_, err = s.Bun.NewUpdate().
				Model((*models.Staff)(nil)).
				Set("name = ?", name).
				Set("pin = ?", hash).
				Set("salt = ?", salt).
				Set("role = ?", role).
				Where("id = ?", id).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to update staff: %w", err)
			}
		} else {
			_, err := s.Bun.NewUpdate().
				Model((*models.Staff)(nil)).
				Set("name = ?", name).
				Set("role = ?", role).
				Where("id = ?", id).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to update staff: %w", err)
			}
		}
	} else {
		if pin == "" {
			return fmt.Errorf("new staff needs a PIN: %w", models.ErrValidation)
		}
		if _, err := s.Login(ctx, pin); err == nil {
			return fmt.Errorf("PIN already taken: %w", models.ErrValidation)
		}

		hash, salt, err := hashPIN(pin, "")
		if err != nil {
			return err
		}
		staff := &models.Staff{Name: name, PIN: hash, Salt: salt, Role: role}
		if _, err := s.Bun.NewInsert().Model(staff).Exec(ctx); err != nil {
			return fmt.Errorf("failed to create staff: %w", err)
		}
	}

	s.Bus.Publish(eventbus.KindStaff, 0)
	return nil
}

// Delete removes a staff member. The last admin cannot be deleted.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var staff models.Staff
	err := s.Bun.NewSelect().Model(&staff).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("staff %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return err
	}

	if staff.Role == models.RoleAdmin {
		count, err := s.Bun.NewSelect().
			Model((*models.Staff)(nil)).
			Where("role = ?", models.RoleAdmin).
			Count(ctx)
		if err != nil {
			return err
		}
		if count <= 1 {
			return fmt.Errorf("cannot delete the last admin: %w", models.ErrInvalidState)
		}
	}

	_, err = s.Bun.NewDelete().Model((*models.Staff)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete staff: %w", err)
	}

	s.Bus.Publish(eventbus.KindStaff, 0)
	return nil
}
