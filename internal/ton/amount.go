package ton

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseTON converts a decimal TON string (e.g. "5.5") to nanoTON.
// 1 TON = 1_000_000_000 nanoTON. Fractional digits beyond nano precision are
// truncated.
func ParseTON(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty TON amount")
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid TON amount: %s", s)
	}

	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}

	if len(frac) > 9 {
		frac = frac[:9]
	}
	for len(frac) < 9 {
		frac += "0"
	}

	nano, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid TON amount: %s", s)
	}
	if nano.Sign() < 0 {
		return nil, fmt.Errorf("negative TON amount: %s", s)
	}
	return nano, nil
}
