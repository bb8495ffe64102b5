package model

type GeopoliticalZone struct {
	ID   uint64 `gorm:"primaryKey"`
	Name string `gorm:"size:128;not null"`
}

func (GeopoliticalZone) TableName() string { return "geopolitical_zone" }

type State struct {
	ID                 uint64 `gorm:"primaryKey"`
	Name               string `gorm:"size:128;not null"`
	GeopoliticalZoneID uint64 `gorm:"not null;index"`
}

func (State) TableName() string { return "state" }

type SenatorialZone struct {
	ID      uint64 `gorm:"primaryKey"`
	Name    string `gorm:"size:128;not null"`
	StateID uint64 `gorm:"not null;index"`
}

func (SenatorialZone) TableName() string { return "senatorial_zone" }

type FederalConstituency struct {
	ID      uint64 `gorm:"primaryKey"`
	Name    string `gorm:"size:128;not null"`
	StateID uint64 `gorm:"not null;index"`
}

func (FederalConstituency) TableName() string { return "federal_constituency" }

type LGA struct {
	ID                    uint64  `gorm:"primaryKey"`
	Name                  string  `gorm:"size:128;not null"`
	StateID               uint64  `gorm:"not null;index"`
	SenatorialZoneID      *uint64 `gorm:"index"`
	FederalConstituencyID *uint64 `gorm:"index"`
}

func (LGA) TableName() string { return "lga" }

type Ward struct {
	ID    uint64 `gorm:"primaryKey"`
	Name  string `gorm:"size:128;not null"`
	LGAID uint64 `gorm:"column:lga_id;not null;index"`
}

func (Ward) TableName() string { return "ward" }

type PollingUnit struct {
	ID     uint64 `gorm:"primaryKey"`
	Name   string `gorm:"size:128;not null"`
	WardID uint64 `gorm:"not null;index"`
}

func (PollingUnit) TableName() string { return "polling_unit" }

// LedgerModels are migrated by the wallet service itself.
func LedgerModels() []interface{} {
	return []interface{}{&Wallet{}, &Transaction{}, &OutboxEvent{}}
}

// DirectoryModels are owned elsewhere; tests migrate them to seed fixtures.
func DirectoryModels() []interface{} {
	return []interface{}{
		&Organization{}, &User{}, &Membership{}, &MovementAdmin{},
		&GeopoliticalZone{}, &State{}, &SenatorialZone{}, &FederalConstituency{},
		&LGA{}, &Ward{}, &PollingUnit{},
	}
}
