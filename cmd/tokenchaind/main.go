// Command tokenchaind runs the tokenchain application core: it wires
// the Merkle store, the migrations registry, and the ledger/account/
// kvstore modules behind a bridge.Application, then serves that
// application either to a remote consensus engine over gRPC (--abci)
// or, standalone, over the client-facing HTTP envelope surface. The
// BFT consensus engine itself runs as a separate process.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"

	bridgegrpc "github.com/blockberries/tokenchain/bridge/grpc"
	"github.com/blockberries/tokenchain/bridge/local"
	"github.com/blockberries/tokenchain/bridge/node"
	"github.com/blockberries/tokenchain/bridge/types"
	"github.com/blockberries/tokenchain/codeerr"
	"github.com/blockberries/tokenchain/envelope"
	"github.com/blockberries/tokenchain/merkle"
	"github.com/blockberries/tokenchain/migrations"
	"github.com/blockberries/tokenchain/query"
)

func main() {
	pemPath := flag.String("pem", "", "path to this node's Ed25519 signing key (hex-encoded)")
	statePath := flag.String("state", "", "path to the genesis document")
	persistentPath := flag.String("persistent", "tokenchain.db", "path to the Merkle store's backing file")
	clean := flag.Bool("clean", false, "wipe the persistent directory before starting")
	abci := flag.Bool("abci", false, "serve the consensus engine's application interface over gRPC")
	addr := flag.String("addr", "127.0.0.1:26658", "listen address")
	migrationsConfigPath := flag.String("migrations-config", "", "path to the migrations configuration file")
	flag.Parse()

	if err := run(*pemPath, *statePath, *persistentPath, *clean, *abci, *addr, *migrationsConfigPath); err != nil {
		var ce *codeerr.Error
		if errors.As(err, &ce) {
			fmt.Fprintln(os.Stderr, ce.Error())
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(pemPath, statePath, persistentPath string, clean, abci bool, addr, migrationsConfigPath string) error {
	if clean {
		if err := os.RemoveAll(persistentPath); err != nil {
			return fmt.Errorf("tokenchaind: clean %s: %w", persistentPath, err)
		}
	}

	store, err := merkle.Open(persistentPath)
	if err != nil {
		return fmt.Errorf("tokenchaind: open store: %w", err)
	}
	defer store.Close()

	registry := migrations.NewRegistry(
		migrations.AccountCountDataAttribute,
		migrations.Block9400,
		migrations.MemoMigration,
		migrations.DummyHotfix,
		migrations.TokenMigration,
	)
	activation, err := registry.Load(migrationsConfigPath)
	if err != nil {
		return err
	}

	app, err := node.New(store, activation)
	if err != nil {
		return fmt.Errorf("tokenchaind: wire application: %w", err)
	}

	info, err := app.Info(context.Background(), types.InfoRequest{})
	if err != nil {
		return fmt.Errorf("tokenchaind: query info: %w", err)
	}
	if info.LastBlockHeight == 0 && statePath != "" {
		gen, err := types.LoadGenesisDoc(statePath)
		if err != nil {
			return fmt.Errorf("tokenchaind: load genesis: %w", err)
		}
		if _, err := app.InitChain(context.Background(), types.InitChainRequest{Genesis: gen}); err != nil {
			return fmt.Errorf("tokenchaind: init chain: %w", err)
		}
	}

	var signer envelope.Signer
	if pemPath != "" {
		signer, err = loadSigner(pemPath)
		if err != nil {
			return fmt.Errorf("tokenchaind: load signing key: %w", err)
		}
	}

	if abci {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("tokenchaind: listen on %s: %w", addr, err)
		}
		srv := bridgegrpc.NewServer(app)
		log.Printf("github.com/blockberries/tokenchain: Running accept thread on %s", addr)
		fmt.Fprintln(os.Stderr, "Running accept thread")
		return srv.Serve(lis)
	}

	conn := local.NewConnection(app)
	opts := []query.Option{}
	if signer != nil {
		opts = append(opts, query.WithSigner(signer))
	}
	qs := query.NewServer(conn, opts...)
	log.Printf("github.com/blockberries/tokenchain: Running accept thread on %s", addr)
	fmt.Fprintln(os.Stderr, "Running accept thread")
	return http.ListenAndServe(addr, qs.HTTPHandler())
}

// loadSigner reads a hex-encoded Ed25519 private key from path,
// following the same "hex file on disk" convention as the retrieval
// pack's own LoadEd25519PrivKey.
func loadSigner(path string) (envelope.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	key, err := hex.DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("not a valid hex-encoded key: %w", err)
	}
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("expected %d bytes, got %d", ed25519.PrivateKeySize, len(key))
	}
	return envelope.NewEd25519Signer(ed25519.PrivateKey(key)), nil
}
