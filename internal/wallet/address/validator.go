// Package address validates withdrawal destinations against the address
// grammar of each supported network.
package address

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"

	"github.com/Aidin1998/finalex-console/pkg/errors"
)

// Family groups networks that share an address format.
type Family string

const (
	FamilyEVM     Family = "evm"
	FamilyUTXO    Family = "utxo"
	FamilySolana  Family = "solana"
	FamilyTron    Family = "tron"
	FamilyRipple  Family = "ripple"
	FamilyUnknown Family = ""
)

// Rule defines validation for the addresses of one network.
type Rule struct {
	Network   string
	Family    Family
	MinLength int
	MaxLength int
	Pattern   *regexp.Regexp
	// Decode performs the checksum-level validation once length and
	// pattern pass. Nil means the pattern is authoritative.
	Decode func(address string) error
}

// Registry maps network names to their rules. The zero value rejects every
// address; use NewRegistry for the default networks.
type Registry struct {
	rules map[string]*Rule
}

var (
	evmPattern    = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	tronPattern   = regexp.MustCompile(`^T[1-9A-HJ-NP-Za-km-z]{33}$`)
	ripplePattern = regexp.MustCompile(`^r[1-9A-HJ-NP-Za-km-z]{24,34}$`)
)

// Litecoin and Dogecoin mainnet encodings.
var (
	litecoinParams = &chaincfg.Params{
		Name:             "litecoin",
		PubKeyHashAddrID: 0x30,
		ScriptHashAddrID: 0x32,
		Bech32HRPSegwit:  "ltc",
	}
	dogecoinParams = &chaincfg.Params{
		Name:             "dogecoin",
		PubKeyHashAddrID: 0x1e,
		ScriptHashAddrID: 0x16,
	}
)

// tronAddressVersion is the base58check version byte of Tron mainnet.
const tronAddressVersion = 0x41

// NewRegistry returns a registry with the networks the console supports.
func NewRegistry() *Registry {
	r := &Registry{rules: make(map[string]*Rule)}
	for _, network := range []string{"ethereum", "bsc", "polygon", "arbitrum", "optimism", "avalanche", "base"} {
		r.Register(evmRule(network))
	}
	r.Register(utxoRule("bitcoin", &chaincfg.MainNetParams))
	r.Register(utxoRule("bitcoin-testnet", &chaincfg.TestNet3Params))
	r.Register(utxoRule("litecoin", litecoinParams))
	r.Register(utxoRule("dogecoin", dogecoinParams))
	r.Register(&Rule{
		Network:   "solana",
		Family:    FamilySolana,
		MinLength: 32,
		MaxLength: 44,
		Decode: func(address string) error {
			_, err := solana.PublicKeyFromBase58(address)
			return err
		},
	})
	r.Register(&Rule{
		Network:   "tron",
		Family:    FamilyTron,
		MinLength: 34,
		MaxLength: 34,
		Pattern:   tronPattern,
		Decode: func(address string) error {
			_, version, err := base58.CheckDecode(address)
			if err != nil {
				return err
			}
			if version != tronAddressVersion {
				return fmt.Errorf("unexpected version byte 0x%x", version)
			}
			return nil
		},
	})
	r.Register(&Rule{
		Network:   "ripple",
		Family:    FamilyRipple,
		MinLength: 25,
		MaxLength: 35,
		Pattern:   ripplePattern,
	})
	return r
}

func evmRule(network string) *Rule {
	return &Rule{
		Network:   network,
		Family:    FamilyEVM,
		MinLength: 42,
		MaxLength: 42,
		Pattern:   evmPattern,
		Decode:    validateEIP55,
	}
}

func utxoRule(network string, params *chaincfg.Params) *Rule {
	return &Rule{
		Network:   network,
		Family:    FamilyUTXO,
		MinLength: 26,
		MaxLength: 90,
		Decode: func(address string) error {
			decoded, err := btcutil.DecodeAddress(address, params)
			if err != nil {
				return err
			}
			if !decoded.IsForNet(params) {
				return fmt.Errorf("address is not for %s", params.Name)
			}
			return nil
		},
	}
}

// validateEIP55 accepts all-lower and all-upper hex and otherwise requires
// a correct mixed-case checksum.
func validateEIP55(address string) error {
	hexPart := address[2:]
	if hexPart == strings.ToLower(hexPart) || hexPart == strings.ToUpper(hexPart) {
		return nil
	}
	if common.HexToAddress(address).Hex() != address {
		return fmt.Errorf("invalid EIP-55 checksum")
	}
	return nil
}

// Register adds or replaces the rule for rule.Network.
func (r *Registry) Register(rule *Rule) {
	if r.rules == nil {
		r.rules = make(map[string]*Rule)
	}
	r.rules[normalize(rule.Network)] = rule
}

// Family returns the address family of network.
func (r *Registry) Family(network string) Family {
	if rule, ok := r.rules[normalize(network)]; ok {
		return rule.Family
	}
	return FamilyUnknown
}

// Networks lists the registered network names.
func (r *Registry) Networks() []string {
	out := make([]string, 0, len(r.rules))
	for name := range r.rules {
		out = append(out, name)
	}
	return out
}

// ValidateAddress checks address against the rule of network. Unknown
// networks are rejected.
func (r *Registry) ValidateAddress(network, address string) error {
	rule, ok := r.rules[normalize(network)]
	if !ok {
		return errors.ErrInvalidAddress.Explain("address validation not supported for network %q", network)
	}
	if address == "" {
		return errors.ErrRequired.Explain("address is required")
	}
	if len(address) < rule.MinLength || len(address) > rule.MaxLength {
		return errors.ErrInvalidAddress.Explain("invalid address length: expected %d-%d, got %d",
			rule.MinLength, rule.MaxLength, len(address))
	}
	if rule.Pattern != nil && !rule.Pattern.MatchString(address) {
		return errors.ErrInvalidAddress.Explain("invalid address format for %s", rule.Network)
	}
	if rule.Decode != nil {
		if err := rule.Decode(address); err != nil {
			return errors.ErrInvalidAddress.Wrap(err).Explain("invalid %s address", rule.Network)
		}
	}
	return nil
}

func normalize(network string) string {
	return strings.ToLower(strings.TrimSpace(network))
}
