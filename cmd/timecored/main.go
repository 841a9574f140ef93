// Command timecored runs a single time-core validator process: it loads
// configuration and genesis state, wires a node.Node, and runs its
// slot-production loop until signalled to stop — the
// entrypoint role the teacher's own main package plays for its
// multi-chain platform, collapsed to this module's single chain.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/time-coin/time-core/config"
	"github.com/time-coin/time-core/genesis"
	"github.com/time-coin/time-core/node"
	"github.com/time-coin/time-core/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "timecored:", err)
		os.Exit(1)
	}
}

func run() error {
	defaults := config.Defaults()
	fs := flag.NewFlagSet("timecored", flag.ExitOnError)
	config.RegisterFlags(fs, defaults)
	network := fs.String("network", genesis.Local, "genesis network: mainnet, testnet, or local")
	configFile := fs.String("config", "", "optional YAML config file")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(fs, *configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	genesisState, err := genesisForNetwork(*network, cfg)
	if err != nil {
		return fmt.Errorf("loading genesis: %w", err)
	}

	identity, err := loadOrCreateIdentity(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("loading identity: %w", err)
	}

	n, err := node.New(node.Config{Config: cfg, Network: *network, Identity: identity}, genesisState, nil)
	if err != nil {
		return fmt.Errorf("constructing node: %w", err)
	}

	addr, err := identity.BechAddress()
	if err != nil {
		return fmt.Errorf("deriving address: %w", err)
	}
	n.Log.Info("starting node",
		zap.String("network", *network),
		zap.String("address", addr),
		zap.String("chain_id", cfg.ChainID),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	n.Run(ctx)
	<-ctx.Done()
	n.Log.Info("shutting down")
	return nil
}

// genesisForNetwork loads the named network's baked-in genesis, except
// for Local, which has no baked-in state (genesis.Networks intentionally
// omits it): a local network gets a genesis carrying only the configured
// chain id and genesis timestamp, with no validators and no allocations.
func genesisForNetwork(network string, cfg config.Config) (genesis.State, error) {
	if network != genesis.Local {
		return genesis.Load(network)
	}
	return genesis.State{ChainID: cfg.ChainID, GenesisTS: cfg.GenesisTS}, nil
}

// identityKey is the pebble key this node's signing and VRF seeds are
// persisted under, so restarts keep the same validator address.
var identityKey = []byte("identity/seeds/v1")

func loadOrCreateIdentity(dataDir string) (node.Identity, error) {
	db, err := storage.OpenPebble(filepath.Join(dataDir, "identity"))
	if err != nil {
		return node.Identity{}, err
	}
	defer db.Close()

	if raw, err := db.Get(identityKey); err == nil {
		if len(raw) != 64 {
			return node.Identity{}, fmt.Errorf("identity: corrupt seed record of %d bytes", len(raw))
		}
		return node.LoadIdentity(raw[:32], raw[32:])
	} else if err != storage.ErrNotFound {
		return node.Identity{}, err
	}

	identity, err := node.NewIdentity()
	if err != nil {
		return node.Identity{}, err
	}
	seeds := append(append([]byte(nil), identity.SignSK.Seed()...), identity.VRFSK.Seed()...)
	if err := db.Put(identityKey, seeds); err != nil {
		return node.Identity{}, err
	}
	return identity, nil
}
