// Package eligibility resolves which members of an organization may receive disbursements.
package eligibility

import (
	"context"
	"fmt"
	"time"

	"github.com/richardliu001/org-wallet/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultBatchSize = 200

// Filter narrows the eligible set. Nil ids are not applied.
type Filter struct {
	StateID       *uint64
	LGAID         *uint64
	WardID        *uint64
	PollingUnitID *uint64

	// Zone filters are expanded to the states or LGAs they contain.
	GeopoliticalZoneID    *uint64
	SenatorialZoneID      *uint64
	FederalConstituencyID *uint64

	VerifiedOnly bool
}

// Member is an active, unblocked membership enriched with location names.
type Member struct {
	UserID          uint64    `json:"userId"`
	MembershipID    uint64    `json:"membershipId"`
	DisplayName     string    `json:"displayName"`
	Email           string    `json:"email"`
	PhoneNumber     string    `json:"phoneNumber,omitempty"`
	IsVerified      bool      `json:"isVerified"`
	IsLeader        bool      `json:"isLeader"`
	IsChairman      bool      `json:"isChairman"`
	JoinedAt        time.Time `json:"joinedAt"`
	StateID         *uint64   `json:"stateId,omitempty"`
	StateName       string    `json:"stateName,omitempty"`
	LGAID           *uint64   `json:"lgaId,omitempty"`
	LGAName         string    `json:"lgaName,omitempty"`
	WardID          *uint64   `json:"wardId,omitempty"`
	WardName        string    `json:"wardName,omitempty"`
	PollingUnitID   *uint64   `json:"pollingUnitId,omitempty"`
	PollingUnitName string    `json:"pollingUnitName,omitempty"`
}

type memberRow struct {
	MembershipID  uint64
	UserID        uint64
	IsLeader      bool
	IsChairman    bool
	JoinedAt      time.Time
	DisplayName   string
	Email         string
	PhoneNumber   string
	IsVerified    bool
	StateID       *uint64
	LGAID         *uint64 `gorm:"column:lga_id"`
	WardID        *uint64
	PollingUnitID *uint64
}

// Resolver reads membership and location data owned by other services.
type Resolver struct {
	db        *gorm.DB
	batchSize int
	log       *zap.SugaredLogger
}

func NewResolver(db *gorm.DB, logger *zap.SugaredLogger) *Resolver {
	return &Resolver{db: db, batchSize: defaultBatchSize, log: logger}
}

// IsEligible reports whether userID holds an active, unblocked membership of orgID.
func (r *Resolver) IsEligible(ctx context.Context, orgID, userID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Membership{}).
		Where("org_id = ? AND user_id = ? AND is_active = ? AND is_blocked = ?", orgID, userID, true, false).
		Count(&count).Error
	return count > 0, err
}

// List collects every eligible member.
func (r *Resolver) List(ctx context.Context, orgID uint64, f Filter) ([]Member, error) {
	var out []Member
	err := r.Each(ctx, orgID, f, func(m Member) error {
		out = append(out, m)
		return nil
	})
	return out, err
}

// Each streams eligible members in membership order, one batch in memory at a
// time. Returning an error from fn stops the walk and is passed through.
func (r *Resolver) Each(ctx context.Context, orgID uint64, f Filter, fn func(Member) error) error {
	base, empty, err := r.baseQuery(ctx, orgID, f)
	if err != nil {
		return err
	}
	if empty {
		return nil
	}

	names := newNameCache(r.db.WithContext(ctx))
	var lastID uint64
	for {
		var rows []memberRow
		err := base.Session(&gorm.Session{}).
			Where("m.id > ?", lastID).
			Order("m.id").
			Limit(r.batchSize).
			Scan(&rows).Error
		if err != nil {
			return fmt.Errorf("scan members: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := names.load(rows); err != nil {
			return fmt.Errorf("load location names: %w", err)
		}
		for _, row := range rows {
			if err := fn(names.enrich(row)); err != nil {
				return err
			}
		}
		lastID = rows[len(rows)-1].MembershipID
		if len(rows) < r.batchSize {
			return nil
		}
	}
}

// baseQuery applies every filter. empty is true when a zone filter expands to nothing.
func (r *Resolver) baseQuery(ctx context.Context, orgID uint64, f Filter) (*gorm.DB, bool, error) {
	db := r.db.WithContext(ctx)
	q := db.Table("org_membership AS m").
		Select("m.id AS membership_id, m.user_id, m.is_leader, m.is_chairman, m.joined_at, " +
			"u.display_name, u.email, u.phone_number, u.is_verified, " +
			"u.state_id, u.lga_id, u.ward_id, u.polling_unit_id").
		Joins("JOIN app_user u ON u.id = m.user_id").
		Where("m.org_id = ? AND m.is_active = ? AND m.is_blocked = ?", orgID, true, false)

	if f.VerifiedOnly {
		q = q.Where("u.is_verified = ?", true)
	}
	if f.StateID != nil {
		q = q.Where("u.state_id = ?", *f.StateID)
	}
	if f.LGAID != nil {
		q = q.Where("u.lga_id = ?", *f.LGAID)
	}
	if f.WardID != nil {
		q = q.Where("u.ward_id = ?", *f.WardID)
	}
	if f.PollingUnitID != nil {
		q = q.Where("u.polling_unit_id = ?", *f.PollingUnitID)
	}

	// membership location is stored per state/LGA, so zones expand first
	if f.GeopoliticalZoneID != nil {
		var stateIDs []uint64
		if err := db.Model(&model.State{}).Where("geopolitical_zone_id = ?", *f.GeopoliticalZoneID).Pluck("id", &stateIDs).Error; err != nil {
			return nil, false, fmt.Errorf("expand geopolitical zone: %w", err)
		}
		if len(stateIDs) == 0 {
			return nil, true, nil
		}
		q = q.Where("u.state_id IN ?", stateIDs)
	}
	if f.SenatorialZoneID != nil {
		var lgaIDs []uint64
		if err := db.Model(&model.LGA{}).Where("senatorial_zone_id = ?", *f.SenatorialZoneID).Pluck("id", &lgaIDs).Error; err != nil {
			return nil, false, fmt.Errorf("expand senatorial zone: %w", err)
		}
		if len(lgaIDs) == 0 {
			return nil, true, nil
		}
		q = q.Where("u.lga_id IN ?", lgaIDs)
	}
	if f.FederalConstituencyID != nil {
		var lgaIDs []uint64
		if err := db.Model(&model.LGA{}).Where("federal_constituency_id = ?", *f.FederalConstituencyID).Pluck("id", &lgaIDs).Error; err != nil {
			return nil, false, fmt.Errorf("expand federal constituency: %w", err)
		}
		if len(lgaIDs) == 0 {
			return nil, true, nil
		}
		q = q.Where("u.lga_id IN ?", lgaIDs)
	}
	return q, false, nil
}
