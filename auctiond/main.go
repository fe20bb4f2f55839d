package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudx-io/assetauction/core"
	"github.com/cloudx-io/assetauction/memledger"
	"github.com/cloudx-io/assetauction/store"
)

// registryName is the custodian identity of the daemon's in-memory asset registry.
const registryName = "registry"

func main() {
	if err := run(); err != nil {
		log.Fatalf("ERROR: %v", err)
	}
}

func run() error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	st, err := openStore(cfg.DataDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("ERROR: Failed to close store: %v", err)
		}
	}()

	registry := memledger.NewRegistry(registryName)
	bank := memledger.NewBank()
	if err := seedLedger(st, cfg.GenesisPath, registry, bank); err != nil {
		return err
	}

	keys, err := NewKeyManager()
	if err != nil {
		return fmt.Errorf("failed to initialize key manager: %w", err)
	}
	log.Printf("INFO: KeyManager initialized")

	var attester EnclaveAttester
	if cfg.Attest {
		if attester, err = getEnclaveAttester(); err != nil {
			return err
		}
		log.Printf("INFO: Receipts will carry NSM attestations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := NewAuctionServer(cfg, registry, bank, st, keys, attester)

	if cfg.KafkaTopic != "" {
		writer := NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := writer.Close(); err != nil {
				log.Printf("ERROR: Failed to close kafka writer: %v", err)
			}
		}()
		server.OnEngine(func(e *core.Engine) {
			go func() {
				log.Printf("INFO: Forwarding events of auction %s to topic %s", e.ID(), cfg.KafkaTopic)
				if err := NewEventForwarder(writer, e).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("ERROR: Event forwarder stopped: %v", err)
				}
			}()
		})
	}

	if err := server.Resume(); err != nil {
		return err
	}

	if cfg.HTTPAddr != "" {
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           server.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Printf("INFO: HTTP API listening on %s", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("ERROR: HTTP API stopped: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
		}()
	}

	return server.Start(ctx)
}

func openStore(dataDir string) (*store.Store, error) {
	if dataDir == "" {
		log.Printf("WARNING: AUCTIOND_DATA_DIR not set, auction state will not survive a restart")
		return store.OpenInMemory()
	}
	log.Printf("INFO: Opening store at %s", dataDir)
	return store.Open(dataDir)
}

// seedLedger loads the collaborator state saved with the last auction record,
// falling back to the genesis file on first start.
func seedLedger(st *store.Store, genesisPath string, registry *memledger.Registry, bank *memledger.Bank) error {
	saved, err := st.LoadLedger()
	switch {
	case err == nil:
		log.Printf("INFO: Restoring ledger state (%d assets, %d accounts)", len(saved.Assets), len(saved.Balances))
		return saved.Apply(registry, bank)
	case !errors.Is(err, store.ErrNotFound):
		return err
	}

	if genesisPath == "" {
		log.Printf("WARNING: AUCTIOND_GENESIS not set, starting with an empty registry and bank")
		return nil
	}

	f, err := os.Open(genesisPath)
	if err != nil {
		return fmt.Errorf("failed to open genesis: %w", err)
	}
	defer f.Close()

	g, err := memledger.ParseGenesis(f)
	if err != nil {
		return err
	}
	log.Printf("INFO: Applying genesis from %s (%d assets, %d accounts)", genesisPath, len(g.Assets), len(g.Balances))
	return g.Apply(registry, bank)
}
