package address

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aidin1998/finalex-console/pkg/errors"
)

func TestValidateAddress(t *testing.T) {
	r := NewRegistry()

	valid := map[string][]string{
		"ethereum": {
			"0x52908400098527886E0F7030069857D2E4169EE7",
			"0xde709f2102306220921060314715629080e2fb77",
			"0xDE709F2102306220921060314715629080E2FB77",
		},
		"Polygon": {"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"},
		"bitcoin": {
			"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa",
			"3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy",
			"bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq",
		},
		"bitcoin-testnet": {"tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"},
		"solana":          {"11111111111111111111111111111111", "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"},
		"tron":            {"TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"},
		"ripple":          {"rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"},
	}
	for network, addrs := range valid {
		for _, a := range addrs {
			assert.NoError(t, r.ValidateAddress(network, a), "%s %s", network, a)
		}
	}

	invalid := map[string][]string{
		"ethereum": {
			"0x52908400098527886e0F7030069857D2E4169EE7",
			"52908400098527886E0F7030069857D2E4169EE7",
			"0x1234",
		},
		"bitcoin": {
			"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNb",
			"tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx",
			"0x52908400098527886E0F7030069857D2E4169EE7",
		},
		"litecoin": {"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"},
		"solana":   {"0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl"},
		"tron":    {"TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6u", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"},
		"ripple":  {"xHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"},
		"unknown": {"0x52908400098527886E0F7030069857D2E4169EE7"},
	}
	for network, addrs := range invalid {
		for _, a := range addrs {
			err := r.ValidateAddress(network, a)
			assert.True(t, errors.Is(err, errors.ErrInvalidAddress), "%s %s: %v", network, a, err)
		}
	}
}

func TestValidateAddressEmpty(t *testing.T) {
	err := NewRegistry().ValidateAddress("ethereum", "")
	assert.True(t, errors.Is(err, errors.ErrRequired))
}

func TestRegistryFamily(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, FamilyEVM, r.Family("BSC"))
	assert.Equal(t, FamilyUTXO, r.Family("dogecoin"))
	assert.Equal(t, FamilySolana, r.Family("solana"))
	assert.Equal(t, FamilyUnknown, r.Family("cardano"))

	var empty Registry
	empty.Register(&Rule{Network: "custom", Family: FamilyRipple, MinLength: 1, MaxLength: 5})
	assert.NoError(t, empty.ValidateAddress("custom", "abc"))
	assert.Contains(t, empty.Networks(), "custom")
}
