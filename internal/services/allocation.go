package services

import (
	"math/rand"
	"sort"

	"rifa-web-app/internal/apperrors"
)

// pickNumbers selects qty distinct ticket numbers uniformly at random
// from [1, totalTickets] excluding taken. Buyers are promised randomly
// assigned tickets, so selection is never sequential. The result is
// sorted for presentation; the choice itself is a uniform shuffle of the
// free set.
func pickNumbers(totalTickets int, taken []int, qty int) ([]int, error) {
	takenSet := make(map[int]struct{}, len(taken))
	for _, n := range taken {
		takenSet[n] = struct{}{}
	}

	free := make([]int, 0, totalTickets-len(takenSet))
	for n := 1; n <= totalTickets; n++ {
		if _, ok := takenSet[n]; !ok {
			free = append(free, n)
		}
	}

	if qty > len(free) {
		return nil, &apperrors.StockViolation{
			Requested: qty,
			Remaining: len(free),
			Reason:    "insufficient unassigned numbers",
		}
	}

	rand.Shuffle(len(free), func(i, j int) {
		free[i], free[j] = free[j], free[i]
	})

	numbers := append([]int(nil), free[:qty]...)
	sort.Ints(numbers)
	return numbers, nil
}
