package relay

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

// fmtPayloadPath substitutes value into template's single "%s"
// placeholder without pulling in fmt's format-string surface for a
// single substitution.
func fmtPayloadPath(template, value string) string {
	return strings.Replace(template, "%s", value, 1)
}

// parseWei parses a decimal wei string into a uint64 gwei value,
// matching the precision the rest of the system tracks rewards at.
func parseWei(decimalWei string) (uint64, error) {
	wei, ok := new(big.Int).SetString(decimalWei, 10)
	if !ok {
		return 0, errors.Errorf("relay: invalid decimal value %q", decimalWei)
	}
	gwei := new(big.Int).Div(wei, big.NewInt(1e9))
	if !gwei.IsUint64() {
		return 0, errors.Errorf("relay: value %q overflows uint64 gwei", decimalWei)
	}
	return gwei.Uint64(), nil
}
