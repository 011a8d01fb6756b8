package types

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"

	"github.com/blockberries/tokenchain/address"
	"gopkg.in/yaml.v3"
)

// genesisTokenFile and genesisDistributionFile are the on-disk, text
// shape of a genesis token declaration: addresses in their checksummed
// text form, amounts as decimal strings, so an operator's genesis.yml
// never carries raw binary.
type genesisDistributionFile struct {
	Holder string `yaml:"holder"`
	Amount string `yaml:"amount"`
}

type genesisTokenFile struct {
	Symbol        string                    `yaml:"symbol"`
	Ticker        string                    `yaml:"ticker"`
	Name          string                    `yaml:"name"`
	Decimals      uint8                     `yaml:"decimals"`
	MaxSupply     string                    `yaml:"max_supply"`
	Distributions []genesisDistributionFile `yaml:"distributions"`
}

// genesisFile is the on-disk shape --state PATH loads.
type genesisFile struct {
	TokenAuthority    string             `yaml:"token_authority"`
	AuthorityImplicit bool               `yaml:"authority_implicit"`
	TokenIdentity     string             `yaml:"token_identity"`
	Tokens            []genesisTokenFile `yaml:"tokens"`
	ExpectedRoot      string             `yaml:"expected_root"`
}

// LoadGenesisDoc reads and parses a YAML genesis file at path into a
// GenesisDoc, resolving every address text form and decimal amount.
// canTokensCreate is assumed explicit unless the genesis file sets
// token_identity (or authority_implicit: true); either one sets
// GenesisDoc.AuthorityImplicit.
func LoadGenesisDoc(path string) (GenesisDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return GenesisDoc{}, fmt.Errorf("types: read genesis file %s: %w", path, err)
	}
	var gf genesisFile
	if err := yaml.Unmarshal(data, &gf); err != nil {
		return GenesisDoc{}, fmt.Errorf("types: parse genesis file %s: %w", path, err)
	}

	authority, err := address.Parse(gf.TokenAuthority)
	if err != nil {
		return GenesisDoc{}, fmt.Errorf("types: genesis token_authority: %w", err)
	}

	doc := GenesisDoc{
		TokenAuthority:    authority,
		AuthorityImplicit: gf.AuthorityImplicit,
	}
	if gf.TokenIdentity != "" {
		if _, err := address.Parse(gf.TokenIdentity); err != nil {
			return GenesisDoc{}, fmt.Errorf("types: genesis token_identity: %w", err)
		}
		doc.AuthorityImplicit = true
	}

	for _, tf := range gf.Tokens {
		symbol, err := address.Parse(tf.Symbol)
		if err != nil {
			return GenesisDoc{}, fmt.Errorf("types: genesis token %s symbol: %w", tf.Ticker, err)
		}
		gt := GenesisToken{
			Symbol:   symbol,
			Ticker:   tf.Ticker,
			Name:     tf.Name,
			Decimals: tf.Decimals,
		}
		if tf.MaxSupply != "" {
			max, ok := new(big.Int).SetString(tf.MaxSupply, 10)
			if !ok {
				return GenesisDoc{}, fmt.Errorf("types: genesis token %s max_supply is not a valid integer", tf.Ticker)
			}
			gt.MaxSupply = max.Bytes()
		}
		for _, df := range tf.Distributions {
			holder, err := address.Parse(df.Holder)
			if err != nil {
				return GenesisDoc{}, fmt.Errorf("types: genesis token %s distribution holder: %w", tf.Ticker, err)
			}
			amount, ok := new(big.Int).SetString(df.Amount, 10)
			if !ok {
				return GenesisDoc{}, fmt.Errorf("types: genesis token %s distribution amount %q is not a valid integer", tf.Ticker, df.Amount)
			}
			gt.Distributions = append(gt.Distributions, GenesisDistribution{
				Holder: holder,
				Amount: amount.Bytes(),
			})
		}
		doc.Tokens = append(doc.Tokens, gt)
	}

	if gf.ExpectedRoot != "" {
		raw, err := hex.DecodeString(gf.ExpectedRoot)
		if err != nil || len(raw) != 32 {
			return GenesisDoc{}, fmt.Errorf("types: genesis expected_root must be 32 hex bytes")
		}
		var h Hash
		copy(h[:], raw)
		doc.ExpectedRoot = &h
	}

	return doc, nil
}
