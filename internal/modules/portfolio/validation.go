package portfolio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aristath/portfolio-tracker/internal/domain"
)

// ValidatePortfolioInput checks a create payload: the name must be non-blank,
// the position list non-empty, and every position valid.
func ValidatePortfolioInput(in PortfolioInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.NewValidationError("name", "must not be empty")
	}
	return ValidatePositionInputs(in.Tickers)
}

// ValidatePositionInputs checks a batch of positions. The batch must be
// non-empty and the first invalid position rejects the whole batch.
func ValidatePositionInputs(positions []PositionInput) error {
	if len(positions) == 0 {
		return domain.NewValidationError("tickers", "must contain at least one position")
	}
	for i, p := range positions {
		if err := ValidatePositionInput(p); err != nil {
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				return domain.NewValidationError(fmt.Sprintf("tickers[%d].%s", i, ve.Field), ve.Reason)
			}
			return err
		}
	}
	return nil
}

// ValidatePositionInput checks one position: non-blank symbol, shares > 0
// and average price > 0.
func ValidatePositionInput(p PositionInput) error {
	if strings.TrimSpace(p.Symbol) == "" {
		return domain.NewValidationError("symbol", "must not be empty")
	}
	if p.NumberOfShares <= 0 {
		return domain.NewValidationError("numberOfShares", "must be greater than 0")
	}
	if !p.AverageSharePrice.IsPositive() {
		return domain.NewValidationError("averageSharePrice", "must be greater than 0")
	}
	return nil
}

// normalizePositions returns a copy with trimmed symbols
func normalizePositions(positions []PositionInput) []PositionInput {
	out := make([]PositionInput, len(positions))
	for i, p := range positions {
		p.Symbol = strings.TrimSpace(p.Symbol)
		out[i] = p
	}
	return out
}
