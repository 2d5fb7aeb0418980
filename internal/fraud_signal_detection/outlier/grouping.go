package outlier

import (
	"sort"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/normalize"
)

// DuplicateAddresses groups facilities by normalized address and returns
// the groups with more than one member.
func DuplicateAddresses(facilities []domain.Facility) []Group {
	return groupBy(facilities, func(f domain.Facility) (string, bool) {
		return normalize.Address(f.Address, f.City, f.Zip)
	})
}

// SharedAdministrators groups facilities by normalized administrator name.
func SharedAdministrators(facilities []domain.Facility) []Group {
	return groupBy(facilities, func(f domain.Facility) (string, bool) {
		return normalize.AdminName(f.AdminName)
	})
}

func groupBy(facilities []domain.Facility, key func(domain.Facility) (string, bool)) []Group {
	byKey := map[string]*Group{}
	for _, f := range facilities {
		if !f.HasID() {
			continue
		}
		k, ok := key(f)
		if !ok {
			continue
		}
		g, ok := byKey[k]
		if !ok {
			g = &Group{Key: k}
			byKey[k] = g
		}
		g.Facilities = append(g.Facilities, ref(f))
		g.TotalCapacity += f.Capacity
	}

	out := []Group{}
	for _, g := range byKey {
		if len(g.Facilities) > 1 {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Facilities) != len(out[j].Facilities) {
			return len(out[i].Facilities) > len(out[j].Facilities)
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// MissingFinancials lists facilities above minCapacity that filed no
// financial record, largest first.
func MissingFinancials(facilities []domain.Facility, fin *domain.FinancialIndex, minCapacity int) []FacilityRef {
	out := []FacilityRef{}
	for _, f := range facilities {
		if !f.HasID() || f.Capacity <= minCapacity {
			continue
		}
		if _, ok := fin.Lookup(f); ok {
			continue
		}
		out = append(out, ref(f))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Capacity != out[j].Capacity {
			return out[i].Capacity > out[j].Capacity
		}
		return out[i].ID < out[j].ID
	})
	return out
}
