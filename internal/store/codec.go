package store

import (
	"encoding/json"
	"fmt"

	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

func encodeContext(mc *domain.MarketContext) ([]byte, error) {
	if mc == nil {
		return nil, nil
	}
	b, err := json.Marshal(mc)
	if err != nil {
		return nil, fmt.Errorf("marshaling market context: %w", err)
	}
	return b, nil
}

func decodeContext(b []byte) (*domain.MarketContext, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var mc domain.MarketContext
	if err := json.Unmarshal(b, &mc); err != nil {
		return nil, fmt.Errorf("unmarshaling market context: %w", err)
	}
	return &mc, nil
}
