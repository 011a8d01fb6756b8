package migrations

import (
	"fmt"
	"strconv"

	"github.com/blockberries/tokenchain/address"
	"github.com/blockberries/tokenchain/merkle"
)

// MetaLegacyAccountCounterKey and MetaSubresourceCounterKey are the old
// and new homes of the subresource-minting counter; this migration
// moves the value from the first key to the second. The ledger and
// account modules mint from per-parent /meta/next-subresource/<parent>
// counters and read neither key.
var (
	MetaLegacyAccountCounterKey = []byte("/meta/account-id")
	MetaSubresourceCounterKey   = []byte("/meta/subresource-id")
)

// tokenMigration unifies the subresource-minting counter and, where the
// runtime configuration names one, backfills a single pre-existing
// token's metadata into the current storage layout.
//
// Grounded on the original's "Token Migration": it moved
// `/config/account_id` to `/config/subresource_id` (or seeded it at
// zero if neither existed), then wrote a token's identity, next
// counter, and TokenInfo from extra config parameters.
type tokenMigration struct{}

// TokenMigration is the named migration instance.
var TokenMigration Migration = tokenMigration{}

func (tokenMigration) Name() string { return "Token Migration" }

func (tokenMigration) Initialize(store *merkle.Store, extra map[string]string) error {
	if err := migrateSubresourceCounter(store); err != nil {
		return err
	}
	return migrateLegacyToken(store, extra)
}

func migrateSubresourceCounter(store *merkle.Store) error {
	oldCounter, oldOK, err := store.Get(MetaLegacyAccountCounterKey)
	if err != nil {
		return err
	}
	_, newOK, err := store.Get(MetaSubresourceCounterKey)
	if err != nil {
		return err
	}

	switch {
	case oldOK && !newOK:
		store.Put(MetaSubresourceCounterKey, oldCounter)
		store.Delete(MetaLegacyAccountCounterKey)
	case !oldOK && !newOK:
		store.Put(MetaSubresourceCounterKey, encodeUint32(0))
	case !oldOK && newOK:
		// Already migrated; nothing to do.
	default:
		return fmt.Errorf("migrations: both subresource counters present; aborting")
	}
	return nil
}

// migrateLegacyToken backfills one pre-existing token's metadata from
// the runtime configuration's extra parameters. It is a no-op if the
// configuration supplies none of them — most deployments run this
// migration with an empty extra map, since it only matters for chains
// that had a token minted before the unified token metadata layout
// existed.
func migrateLegacyToken(store *merkle.Store, extra map[string]string) error {
	required := []string{
		"token_identity", "token_next_subresource", "symbol",
		"symbol_name", "symbol_decimals", "symbol_total",
		"symbol_circulating", "symbol_owner",
	}
	if !anyPresent(extra, required) {
		return nil
	}
	for _, key := range required {
		if _, ok := extra[key]; !ok {
			return fmt.Errorf("migrations: missing extra parameter %q for Token Migration", key)
		}
	}

	tokenIdentity, err := address.Parse(extra["token_identity"])
	if err != nil {
		return fmt.Errorf("migrations: bad token_identity: %w", err)
	}
	nextSubresource, err := strconv.ParseUint(extra["token_next_subresource"], 10, 32)
	if err != nil {
		return fmt.Errorf("migrations: bad token_next_subresource: %w", err)
	}

	store.Put([]byte("/meta/token-identity"), tokenIdentity.Bytes())
	store.Put(MetaSubresourceCounterKey, encodeUint32(uint32(nextSubresource)))

	symbol := extra["symbol"]
	store.Put([]byte("/tokens/"+symbol+"/name"), []byte(extra["symbol_name"]))
	store.Put([]byte("/tokens/"+symbol+"/decimals"), []byte(extra["symbol_decimals"]))
	store.Put([]byte("/tokens/"+symbol+"/total"), []byte(extra["symbol_total"]))
	store.Put([]byte("/tokens/"+symbol+"/circulating"), []byte(extra["symbol_circulating"]))
	store.Put([]byte("/tokens/"+symbol+"/owner"), []byte(extra["symbol_owner"]))
	if max, ok := extra["symbol_maximum"]; ok {
		store.Put([]byte("/tokens/"+symbol+"/maximum"), []byte(max))
	}
	return nil
}

func anyPresent(m map[string]string, keys []string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func (tokenMigration) TransformRead(_, data []byte) []byte { return data }

func (tokenMigration) EndpointGate(string) bool { return true }
