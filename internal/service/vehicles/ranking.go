package vehicles

import (
	"fmt"
	"sort"

	"github.com/Domenick1991/tourbooking/internal/domain"
)

// RankingPolicy orders candidate vehicles; the first conflict-free one wins.
type RankingPolicy func(a, b domain.Vehicle) bool

// BestFit prefers the smallest vehicle that fits, then the lowest id.
func BestFit(a, b domain.Vehicle) bool {
	if a.Capacity != b.Capacity {
		return a.Capacity < b.Capacity
	}
	return a.ID < b.ID
}

func IDOrder(a, b domain.Vehicle) bool {
	return a.ID < b.ID
}

func RankingPolicyByName(name string) (RankingPolicy, error) {
	switch name {
	case "", "best_fit":
		return BestFit, nil
	case "id_order":
		return IDOrder, nil
	default:
		return nil, fmt.Errorf("unknown ranking policy %q", name)
	}
}

func rank(fleet []domain.Vehicle, partySize int, policy RankingPolicy) []domain.Vehicle {
	candidates := make([]domain.Vehicle, 0, len(fleet))
	for _, v := range fleet {
		if v.Fits(partySize) {
			candidates = append(candidates, v)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return policy(candidates[i], candidates[j]) })
	return candidates
}
