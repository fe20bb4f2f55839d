package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/assetauction/core"
	"github.com/cloudx-io/assetauction/memledger"
)

const (
	keyPrefix = "auction/"
	ledgerKey = "ledger/state"
)

// ErrNotFound is returned when no record is stored under the requested key.
var ErrNotFound = errors.New("record not found")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	var err error
	if encMode, err = opts.EncMode(); err != nil {
		panic(fmt.Sprintf("store: cbor enc mode: %v", err))
	}
	if decMode, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic(fmt.Sprintf("store: cbor dec mode: %v", err))
	}
}

// Store persists auction records in Pebble, CBOR-encoded under auction/<id>,
// and the daemon's in-memory ledger state under ledger/state.
type Store struct {
	db *pebble.DB
}

// Open opens or creates a store at path.
func Open(path string) (*Store, error) {
	return open(path, &pebble.Options{
		Cache:        pebble.NewCache(8 << 20),
		MemTableSize: 4 << 20,
	})
}

// OpenInMemory returns a store backed by an in-memory filesystem.
func OpenInMemory() (*Store, error) {
	return open("", &pebble.Options{FS: vfs.NewMem()})
}

func open(path string, opts *pebble.Options) (*Store, error) {
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

func recordKey(id string) []byte {
	return []byte(keyPrefix + id)
}

// Save writes rec, replacing any previous record for the same auction.
// The write is synced before Save returns.
func (s *Store) Save(rec core.Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if err := s.db.Set(recordKey(rec.Auction.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to write record %s: %w", rec.Auction.ID, err)
	}
	return nil
}

// SaveWithLedger writes rec and the in-memory collaborator state in one synced batch,
// so a restart never sees one without the other.
func (s *Store) SaveWithLedger(rec core.Record, ledger *memledger.Genesis) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	state, err := encMode.Marshal(ledger)
	if err != nil {
		return fmt.Errorf("failed to encode ledger state: %w", err)
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(recordKey(rec.Auction.ID), data, nil); err != nil {
		return err
	}
	if err := batch.Set([]byte(ledgerKey), state, nil); err != nil {
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit record %s: %w", rec.Auction.ID, err)
	}
	return nil
}

// LoadLedger reads the collaborator state written by SaveWithLedger.
func (s *Store) LoadLedger() (*memledger.Genesis, error) {
	return loadLedger(s.db)
}

// LoadWithLedger reads the record for id and the collaborator state from one
// snapshot, so both reflect the same SaveWithLedger commit.
func (s *Store) LoadWithLedger(id string) (core.Record, *memledger.Genesis, error) {
	snap := s.db.NewSnapshot()
	defer snap.Close()

	rec, err := loadRecord(snap, id)
	if err != nil {
		return core.Record{}, nil, err
	}
	g, err := loadLedger(snap)
	if err != nil {
		return core.Record{}, nil, err
	}
	return rec, g, nil
}

func loadLedger(r pebble.Reader) (*memledger.Genesis, error) {
	value, closer, err := r.Get([]byte(ledgerKey))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("ledger state: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger state: %w", err)
	}
	defer closer.Close()

	var g memledger.Genesis
	if err := decMode.Unmarshal(value, &g); err != nil {
		return nil, fmt.Errorf("failed to decode ledger state: %w", err)
	}
	return &g, nil
}

func encodeRecord(rec core.Record) ([]byte, error) {
	if rec.Auction.ID == "" {
		return nil, errors.New("record has no auction id")
	}
	data, err := encMode.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record %s: %w", rec.Auction.ID, err)
	}
	return data, nil
}

// Load reads the record stored for id.
func (s *Store) Load(id string) (core.Record, error) {
	return loadRecord(s.db, id)
}

func loadRecord(r pebble.Reader, id string) (core.Record, error) {
	value, closer, err := r.Get(recordKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return core.Record{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("failed to read record %s: %w", id, err)
	}
	defer closer.Close()

	var rec core.Record
	if err := decMode.Unmarshal(value, &rec); err != nil {
		return core.Record{}, fmt.Errorf("failed to decode record %s: %w", id, err)
	}
	return rec, nil
}

// List returns the ids of every stored auction in key order.
func (s *Store) List() ([]string, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: prefixUpperBound([]byte(keyPrefix)),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var ids []string
	for iter.First(); iter.Valid(); iter.Next() {
		ids = append(ids, strings.TrimPrefix(string(iter.Key()), keyPrefix))
	}
	return ids, iter.Error()
}

// Delete removes the record for id. Deleting a missing record is not an error.
func (s *Store) Delete(id string) error {
	return s.db.Delete(recordKey(id), pebble.Sync)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// prefixUpperBound returns the exclusive upper bound for a scan over prefix.
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)

	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper[:i+1]
		}
	}
	return nil
}
