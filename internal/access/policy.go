// Package access decides who may manage an organization's wallet.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/richardliu001/org-wallet/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrOrgNotFound is returned by Directory.MovementOf for unknown organizations.
var ErrOrgNotFound = errors.New("organization not found")

// Directory answers role questions from membership data owned elsewhere.
type Directory interface {
	IsPlatformAdmin(ctx context.Context, userID uint64) (bool, error)
	MovementOf(ctx context.Context, orgID uint64) (uint64, error)
	IsMovementAdmin(ctx context.Context, userID, movementID uint64) (bool, error)
	IsChairman(ctx context.Context, userID, orgID uint64) (bool, error)
}

// Policy is evaluated fresh on every call. Roles can be revoked at any time,
// so answers are never cached.
type Policy struct {
	dir Directory
	log *zap.SugaredLogger
}

func NewPolicy(dir Directory, logger *zap.SugaredLogger) *Policy {
	return &Policy{dir: dir, log: logger}
}

// CanManageWallet is true for platform admins, admins of the movement that owns
// the organization, and the organization's active chairman.
func (p *Policy) CanManageWallet(ctx context.Context, userID, orgID uint64) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	ok, err := p.dir.IsPlatformAdmin(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("platform admin lookup: %w", err)
	}
	if ok {
		return true, nil
	}

	movementID, err := p.dir.MovementOf(ctx, orgID)
	switch {
	case errors.Is(err, ErrOrgNotFound):
		p.log.Debugw("wallet access for unknown org", "userID", userID, "orgID", orgID)
		return false, nil
	case err != nil:
		return false, fmt.Errorf("movement lookup: %w", err)
	}
	ok, err = p.dir.IsMovementAdmin(ctx, userID, movementID)
	if err != nil {
		return false, fmt.Errorf("movement admin lookup: %w", err)
	}
	if ok {
		return true, nil
	}

	ok, err = p.dir.IsChairman(ctx, userID, orgID)
	if err != nil {
		return false, fmt.Errorf("chairman lookup: %w", err)
	}
	return ok, nil
}

// IsPlatformAdmin gates operations that span every organization.
func (p *Policy) IsPlatformAdmin(ctx context.Context, userID uint64) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	return p.dir.IsPlatformAdmin(ctx, userID)
}

// RequireOrg returns ErrOrgNotFound unless orgID names a registered
// organization. Wallets are only ever created for one.
func (p *Policy) RequireOrg(ctx context.Context, orgID uint64) error {
	if _, err := p.dir.MovementOf(ctx, orgID); err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			return err
		}
		return fmt.Errorf("organization lookup: %w", err)
	}
	return nil
}

// GormDirectory reads roles from the shared relational store.
type GormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

func (d *GormDirectory) IsPlatformAdmin(ctx context.Context, userID uint64) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND is_platform_admin = ?", userID, true).
		Count(&count).Error
	return count > 0, err
}

func (d *GormDirectory) MovementOf(ctx context.Context, orgID uint64) (uint64, error) {
	var org model.Organization
	err := d.db.WithContext(ctx).Select("id", "movement_id").Where("id = ?", orgID).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrOrgNotFound
	}
	if err != nil {
		return 0, err
	}
	return org.MovementID, nil
}

func (d *GormDirectory) IsMovementAdmin(ctx context.Context, userID, movementID uint64) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&model.MovementAdmin{}).
		Where("user_id = ? AND movement_id = ?", userID, movementID).
		Count(&count).Error
	return count > 0, err
}

func (d *GormDirectory) IsChairman(ctx context.Context, userID, orgID uint64) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&model.Membership{}).
		Where("user_id = ? AND org_id = ? AND is_chairman = ? AND is_active = ? AND is_blocked = ?",
			userID, orgID, true, true, false).
		Count(&count).Error
	return count > 0, err
}
