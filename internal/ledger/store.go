package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"producechain/pkg/domain"
)

// ErrReadOnly is returned by PutState inside View.
var ErrReadOnly = errors.New("ledger: write in read-only transaction")

// Option configures a Store.
type Option func(*Store)

// WithClock sets the source of transaction timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator sets the source of transaction ids.
func WithIDGenerator(next func() string) Option {
	return func(s *Store) {
		if next != nil {
			s.newID = next
		}
	}
}

// Store runs operations against a Backend. It satisfies domain.PersistentStore.
type Store struct {
	backend Backend
	clock   func() time.Time
	newID   func() string
}

var _ domain.PersistentStore = (*Store)(nil)

// NewStore constructs a store over backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		clock:   time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend { return s.backend }

// RunInTransaction runs fn in a fresh transaction and commits its write set
// when fn succeeds. Nothing is written when fn fails or the commit conflicts.
func (s *Store) RunInTransaction(ctx context.Context, callerOrg string, fn func(domain.Transaction) error) error {
	tx := s.begin(ctx, callerOrg, false)
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.ctxErr(); err != nil {
		return err
	}
	if len(tx.writeOrder) == 0 {
		return nil
	}
	if err := s.backend.Commit(ctx, tx.readSet(), tx.writeSet()); err != nil {
		return fmt.Errorf("commit %s: %w", tx.txID, err)
	}
	return nil
}

// View runs fn in a read-only transaction.
func (s *Store) View(ctx context.Context, callerOrg string, fn func(domain.Transaction) error) error {
	tx := s.begin(ctx, callerOrg, true)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.ctxErr()
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) begin(ctx context.Context, callerOrg string, readOnly bool) *localTx {
	return &localTx{
		ctx:       ctx,
		backend:   s.backend,
		callerOrg: callerOrg,
		txID:      s.newID(),
		timestamp: domain.CanonicalTimestamp(s.clock()),
		readOnly:  readOnly,
		reads:     make(map[string]uint64),
		cache:     make(map[string][]byte),
		writes:    make(map[string][]byte),
	}
}

// localTx implements domain.Transaction over a Backend with read-your-writes semantics.
type localTx struct {
	ctx        context.Context
	backend    Backend
	callerOrg  string
	txID       string
	timestamp  time.Time
	readOnly   bool
	reads      map[string]uint64
	readOrder  []string
	cache      map[string][]byte
	writes     map[string][]byte
	writeOrder []string
}

func (t *localTx) ctxErr() error {
	if t.ctx == nil {
		return nil
	}
	return t.ctx.Err()
}

func (t *localTx) CallerOrg() (string, error)      { return t.callerOrg, nil }
func (t *localTx) TxID() string                    { return t.txID }
func (t *localTx) TxTimestamp() (time.Time, error) { return t.timestamp, nil }

func (t *localTx) GetState(key string) ([]byte, error) {
	if value, ok := t.writes[key]; ok {
		return cloneBytes(value), nil
	}
	if _, ok := t.reads[key]; ok {
		return cloneBytes(t.cache[key]), nil
	}
	rec, ok, err := t.backend.Get(t.ctx, key)
	if err != nil {
		return nil, err
	}
	var value []byte
	var version uint64
	if ok {
		value, version = rec.Value, rec.Version
	}
	t.track(key, version, value)
	return cloneBytes(value), nil
}

func (t *localTx) PutState(key string, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if key == "" {
		return domain.InvalidArgument("empty ledger key")
	}
	if _, ok := t.writes[key]; !ok {
		t.writeOrder = append(t.writeOrder, key)
	}
	t.writes[key] = cloneBytes(value)
	return nil
}

func (t *localTx) GetStateByRange(startKey, endKey string) (domain.StateIterator, error) {
	records, err := t.backend.Range(t.ctx, startKey, endKey)
	if err != nil {
		return nil, err
	}
	merged := make(map[string][]byte, len(records))
	for _, rec := range records {
		t.track(rec.Key, rec.Version, rec.Value)
		merged[rec.Key] = t.cache[rec.Key]
	}
	for key, value := range t.writes {
		if InRange(key, startKey, endKey) {
			merged[key] = value
		}
	}
	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	kvs := make([]domain.KV, 0, len(keys))
	for _, key := range keys {
		if len(merged[key]) == 0 {
			continue
		}
		kvs = append(kvs, domain.KV{Key: key, Value: cloneBytes(merged[key])})
	}
	return &sliceIterator{kvs: kvs}, nil
}

// track records the first observed version of key for commit validation.
func (t *localTx) track(key string, version uint64, value []byte) {
	if _, ok := t.reads[key]; ok {
		return
	}
	t.reads[key] = version
	t.readOrder = append(t.readOrder, key)
	t.cache[key] = cloneBytes(value)
}

func (t *localTx) readSet() []Read {
	reads := make([]Read, 0, len(t.readOrder))
	for _, key := range t.readOrder {
		reads = append(reads, Read{Key: key, Version: t.reads[key]})
	}
	return reads
}

func (t *localTx) writeSet() []Write {
	writes := make([]Write, 0, len(t.writeOrder))
	for _, key := range t.writeOrder {
		writes = append(writes, Write{Key: key, Value: t.writes[key]})
	}
	return writes
}

type sliceIterator struct {
	kvs    []domain.KV
	pos    int
	closed bool
}

func (it *sliceIterator) HasNext() bool { return !it.closed && it.pos < len(it.kvs) }

func (it *sliceIterator) Next() (domain.KV, error) {
	if !it.HasNext() {
		return domain.KV{}, errors.New("ledger: iterator exhausted")
	}
	kv := it.kvs[it.pos]
	it.pos++
	return kv, nil
}

func (it *sliceIterator) Close() error {
	it.closed = true
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
