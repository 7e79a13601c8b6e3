package handler

import (
	"github.com/kassaio/kassa/internal/models"
	"github.com/kassaio/kassa/internal/money"
)

// settleOutstanding decides which pending installments a deposit pays off.
// Installments are consumed in the order given (the repository already sorts
// them oldest obligation first) and only ever in full; the walk stops at the
// first installment the remaining deposit cannot cover. Partial payment of an
// installment is not modeled.
func settleOutstanding(deposit money.Kopeks, finances []models.Finance) []models.Finance {
	settled := []models.Finance{}

	remaining := deposit
	for _, finance := range finances {
		if finance.Amount > remaining {
			break
		}

		remaining -= finance.Amount
		settled = append(settled, finance)
	}

	return settled
}
