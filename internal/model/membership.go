package model

import "time"

// The types below are read-only projections of data owned by the membership
// and location services. The wallet never writes them outside of tests.

type Organization struct {
	ID         uint64 `gorm:"primaryKey"`
	Name       string `gorm:"size:255;not null"`
	MovementID uint64 `gorm:"not null;index"`
}

func (Organization) TableName() string { return "organization" }

type User struct {
	ID              uint64 `gorm:"primaryKey"`
	DisplayName     string `gorm:"size:255"`
	Email           string `gorm:"size:255"`
	PhoneNumber     string `gorm:"size:32"`
	IsVerified      bool   `gorm:"not null;default:false"`
	IsPlatformAdmin bool   `gorm:"not null;default:false"`
	StateID         *uint64
	LGAID           *uint64 `gorm:"column:lga_id"`
	WardID          *uint64
	PollingUnitID   *uint64
}

func (User) TableName() string { return "app_user" }

type Membership struct {
	ID         uint64 `gorm:"primaryKey"`
	UserID     uint64 `gorm:"not null;uniqueIndex:idx_membership_user_org,priority:1"`
	OrgID      uint64 `gorm:"not null;uniqueIndex:idx_membership_user_org,priority:2;index"`
	IsActive   bool   `gorm:"not null"`
	IsBlocked  bool   `gorm:"not null;default:false"`
	IsLeader   bool   `gorm:"not null;default:false"`
	IsChairman bool   `gorm:"not null;default:false"`
	JoinedAt   time.Time
}

func (Membership) TableName() string { return "org_membership" }

type MovementAdmin struct {
	ID         uint64 `gorm:"primaryKey"`
	UserID     uint64 `gorm:"not null;uniqueIndex:idx_movement_admin,priority:1"`
	MovementID uint64 `gorm:"not null;uniqueIndex:idx_movement_admin,priority:2"`
}

func (MovementAdmin) TableName() string { return "movement_admin" }
