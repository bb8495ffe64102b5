package testdb

import (
	"testing"
	"time"

	"github.com/richardliu001/org-wallet/internal/model"
	"gorm.io/gorm"
)

// Geography ids seeded by SeedGeography.
const (
	ZoneNorthCentral uint64 = 1
	ZoneSouthWest    uint64 = 2

	StatePlateau uint64 = 10
	StateLagos   uint64 = 20
	StateOyo     uint64 = 21

	SenatorialPlateauNorth uint64 = 100
	SenatorialLagosWest    uint64 = 200

	ConstituencyJosNorthBassa uint64 = 300
	ConstituencyIkeja         uint64 = 400

	LGAJosNorth    uint64 = 1000
	LGABassa       uint64 = 1001
	LGAIkeja       uint64 = 2000
	LGAAlimosho    uint64 = 2001
	LGAIbadanNorth uint64 = 2100

	WardJosCentral uint64 = 5000
	WardIkejaGRA   uint64 = 6000

	PollingUnitJos   uint64 = 9000
	PollingUnitIkeja uint64 = 9500
)

func ptr(v uint64) *uint64 { return &v }

// SeedGeography loads a small slice of the location hierarchy.
func SeedGeography(t testing.TB, db *gorm.DB) {
	t.Helper()
	rows := []interface{}{
		&[]model.GeopoliticalZone{{ID: ZoneNorthCentral, Name: "North Central"}, {ID: ZoneSouthWest, Name: "South West"}},
		&[]model.State{
			{ID: StatePlateau, Name: "Plateau", GeopoliticalZoneID: ZoneNorthCentral},
			{ID: StateLagos, Name: "Lagos", GeopoliticalZoneID: ZoneSouthWest},
			{ID: StateOyo, Name: "Oyo", GeopoliticalZoneID: ZoneSouthWest},
		},
		&[]model.SenatorialZone{
			{ID: SenatorialPlateauNorth, Name: "Plateau North", StateID: StatePlateau},
			{ID: SenatorialLagosWest, Name: "Lagos West", StateID: StateLagos},
		},
		&[]model.FederalConstituency{
			{ID: ConstituencyJosNorthBassa, Name: "Jos North/Bassa", StateID: StatePlateau},
			{ID: ConstituencyIkeja, Name: "Ikeja", StateID: StateLagos},
		},
		&[]model.LGA{
			{ID: LGAJosNorth, Name: "Jos North", StateID: StatePlateau, SenatorialZoneID: ptr(SenatorialPlateauNorth), FederalConstituencyID: ptr(ConstituencyJosNorthBassa)},
			{ID: LGABassa, Name: "Bassa", StateID: StatePlateau, SenatorialZoneID: ptr(SenatorialPlateauNorth), FederalConstituencyID: ptr(ConstituencyJosNorthBassa)},
			{ID: LGAIkeja, Name: "Ikeja", StateID: StateLagos, SenatorialZoneID: ptr(SenatorialLagosWest), FederalConstituencyID: ptr(ConstituencyIkeja)},
			{ID: LGAAlimosho, Name: "Alimosho", StateID: StateLagos, SenatorialZoneID: ptr(SenatorialLagosWest)},
			{ID: LGAIbadanNorth, Name: "Ibadan North", StateID: StateOyo},
		},
		&[]model.Ward{
			{ID: WardJosCentral, Name: "Jos Central", LGAID: LGAJosNorth},
			{ID: WardIkejaGRA, Name: "Ikeja GRA", LGAID: LGAIkeja},
		},
		&[]model.PollingUnit{
			{ID: PollingUnitJos, Name: "PU 001 Jos Central", WardID: WardJosCentral},
			{ID: PollingUnitIkeja, Name: "PU 014 Ikeja GRA", WardID: WardIkejaGRA},
		},
	}
	for _, r := range rows {
		if err := db.Create(r).Error; err != nil {
			t.Fatalf("seed geography: %v", err)
		}
	}
}

// SeedOrg registers an organization under a movement.
func SeedOrg(t testing.TB, db *gorm.DB, orgID, movementID uint64) {
	t.Helper()
	if err := db.Create(&model.Organization{ID: orgID, Name: "Org", MovementID: movementID}).Error; err != nil {
		t.Fatalf("seed org: %v", err)
	}
}

// MemberSpec describes a user and their membership. The zero value of the
// flags is an active, unblocked, unverified rank-and-file member.
type MemberSpec struct {
	UserID        uint64
	OrgID         uint64
	Name          string
	Verified      bool
	Inactive      bool
	Blocked       bool
	Leader        bool
	Chairman      bool
	PlatformAdmin bool
	StateID       uint64
	LGAID         uint64
	WardID        uint64
	PollingUnitID uint64
	NoMembership  bool
}

func optional(v uint64) *uint64 {
	if v == 0 {
		return nil
	}
	return &v
}

// SeedMember creates the user row and, unless NoMembership, the membership row.
func SeedMember(t testing.TB, db *gorm.DB, s MemberSpec) {
	t.Helper()
	u := model.User{
		ID:              s.UserID,
		DisplayName:     s.Name,
		Email:           s.Name + "@example.org",
		IsVerified:      s.Verified,
		IsPlatformAdmin: s.PlatformAdmin,
		StateID:         optional(s.StateID),
		LGAID:           optional(s.LGAID),
		WardID:          optional(s.WardID),
		PollingUnitID:   optional(s.PollingUnitID),
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if s.NoMembership {
		return
	}
	m := model.Membership{
		UserID:     s.UserID,
		OrgID:      s.OrgID,
		IsActive:   !s.Inactive,
		IsBlocked:  s.Blocked,
		IsLeader:   s.Leader,
		IsChairman: s.Chairman,
		JoinedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.UserID) * time.Hour),
	}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("seed membership: %v", err)
	}
}

// SeedMovementAdmin grants userID admin rights over a movement.
func SeedMovementAdmin(t testing.TB, db *gorm.DB, userID, movementID uint64) {
	t.Helper()
	if err := db.Create(&model.MovementAdmin{UserID: userID, MovementID: movementID}).Error; err != nil {
		t.Fatalf("seed movement admin: %v", err)
	}
}
