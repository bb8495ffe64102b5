package eligibility

import (
	"github.com/richardliu001/org-wallet/internal/model"
	"gorm.io/gorm"
)

// nameCache resolves location ids to display names, fetching each id once per walk.
type nameCache struct {
	db           *gorm.DB
	states       map[uint64]string
	lgas         map[uint64]string
	wards        map[uint64]string
	pollingUnits map[uint64]string
}

type idName struct {
	ID   uint64
	Name string
}

func newNameCache(db *gorm.DB) *nameCache {
	return &nameCache{
		db:           db,
		states:       map[uint64]string{},
		lgas:         map[uint64]string{},
		wards:        map[uint64]string{},
		pollingUnits: map[uint64]string{},
	}
}

func missing(known map[uint64]string, ids ...*uint64) []uint64 {
	var out []uint64
	seen := map[uint64]bool{}
	for _, id := range ids {
		if id == nil || seen[*id] {
			continue
		}
		if _, ok := known[*id]; ok {
			continue
		}
		seen[*id] = true
		out = append(out, *id)
	}
	return out
}

func (c *nameCache) fetch(table interface{}, ids []uint64, into map[uint64]string) error {
	if len(ids) == 0 {
		return nil
	}
	var rows []idName
	if err := c.db.Model(table).Select("id", "name").Where("id IN ?", ids).Scan(&rows).Error; err != nil {
		return err
	}
	for _, id := range ids {
		into[id] = ""
	}
	for _, r := range rows {
		into[r.ID] = r.Name
	}
	return nil
}

func (c *nameCache) load(rows []memberRow) error {
	var states, lgas, wards, pus []*uint64
	for i := range rows {
		states = append(states, rows[i].StateID)
		lgas = append(lgas, rows[i].LGAID)
		wards = append(wards, rows[i].WardID)
		pus = append(pus, rows[i].PollingUnitID)
	}
	if err := c.fetch(&model.State{}, missing(c.states, states...), c.states); err != nil {
		return err
	}
	if err := c.fetch(&model.LGA{}, missing(c.lgas, lgas...), c.lgas); err != nil {
		return err
	}
	if err := c.fetch(&model.Ward{}, missing(c.wards, wards...), c.wards); err != nil {
		return err
	}
	return c.fetch(&model.PollingUnit{}, missing(c.pollingUnits, pus...), c.pollingUnits)
}

func lookup(m map[uint64]string, id *uint64) string {
	if id == nil {
		return ""
	}
	return m[*id]
}

func (c *nameCache) enrich(row memberRow) Member {
	return Member{
		UserID:          row.UserID,
		MembershipID:    row.MembershipID,
		DisplayName:     row.DisplayName,
		Email:           row.Email,
		PhoneNumber:     row.PhoneNumber,
		IsVerified:      row.IsVerified,
		IsLeader:        row.IsLeader,
		IsChairman:      row.IsChairman,
		JoinedAt:        row.JoinedAt,
		StateID:         row.StateID,
		StateName:       lookup(c.states, row.StateID),
		LGAID:           row.LGAID,
		LGAName:         lookup(c.lgas, row.LGAID),
		WardID:          row.WardID,
		WardName:        lookup(c.wards, row.WardID),
		PollingUnitID:   row.PollingUnitID,
		PollingUnitName: lookup(c.pollingUnits, row.PollingUnitID),
	}
}
