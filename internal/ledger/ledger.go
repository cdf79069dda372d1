// Package ledger aggregates trip bills into per-member balances. Each
// member's share is weighted by headcount, so a member covering a
// family of three carries three shares.
package ledger

import (
	"github.com/fernhollow/tripsync/internal/model"
)

// MemberBalance is one member's position in the settlement.
type MemberBalance struct {
	MemberID string `json:"memberId"`
	Name     string `json:"name"`
	Weight   int    `json:"weight"`
	Paid     int64  `json:"paid"`
	Share    int64  `json:"share"`
	Balance  int64  `json:"balance"`
}

// Summary is the full settlement view. Amounts are in the smallest
// currency unit.
type Summary struct {
	Total    int64           `json:"total"`
	Balances []MemberBalance `json:"balances"`
}

// Summarize computes the settlement for the given roster and bills.
// Bills paid by members no longer on the roster still count toward the
// total, so shares reflect everything that was spent. A headcount of
// zero excludes the member from the split entirely; anything they paid
// still shows as a positive balance. Division remainders go to the
// earliest weighted members, one unit each, keeping the shares summing
// exactly to the total.
func Summarize(members []model.Member, bills []model.Bill) Summary {
	s := Summary{Balances: make([]MemberBalance, len(members))}

	paidBy := make(map[string]int64)
	for _, b := range bills {
		s.Total += b.Amount
		paidBy[b.PayerID] += b.Amount
	}

	var totalWeight int64
	for i, m := range members {
		weight := m.Headcount
		if weight < 0 {
			weight = 0
		}
		totalWeight += int64(weight)
		s.Balances[i] = MemberBalance{
			MemberID: m.ID,
			Name:     m.Name,
			Weight:   weight,
			Paid:     paidBy[m.ID],
		}
	}
	if totalWeight == 0 {
		return s
	}

	remainder := s.Total
	for i := range s.Balances {
		share := s.Total * int64(s.Balances[i].Weight) / totalWeight
		s.Balances[i].Share = share
		remainder -= share
	}
	for i := 0; remainder > 0; i++ {
		b := &s.Balances[i%len(s.Balances)]
		if b.Weight == 0 {
			continue
		}
		b.Share++
		remainder--
	}

	for i := range s.Balances {
		s.Balances[i].Balance = s.Balances[i].Paid - s.Balances[i].Share
	}
	return s
}
