// Package leveldb implements token.Service on a goleveldb database so balances
// and the receipt journal survive restarts.
//
// Key layout:
//
//	asset/<asset>               -> 32-byte mint authority
//	bal/<asset>/<holder hex>    -> 8-byte big-endian balance
//	rcpt/<receipt id>           -> JSON receipt record
//
// Every call commits a single leveldb.Batch, so a failed call leaves no
// partial writes behind.
package leveldb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"

	loyalty "github.com/xraph/loyalty"
	"github.com/xraph/loyalty/address"
	"github.com/xraph/loyalty/id"
	"github.com/xraph/loyalty/token"
	"github.com/xraph/loyalty/types"
)

// compile-time interface check
var _ token.Service = (*Service)(nil)

// Service is a persistent token.Service.
type Service struct {
	db *leveldb.DB
	// mu serializes read-modify-write sequences; leveldb only guarantees
	// atomicity of individual batches.
	mu     sync.Mutex
	ownsDB bool
}

type receiptRecord struct {
	token.Receipt
	Reversed bool `json:"reversed"`
}

// New opens (or creates) a database at path.
func New(path string) (*Service, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("token/leveldb: open %s: %w", path, err)
	}
	return &Service{db: db, ownsDB: true}, nil
}

// NewWithDB wraps an already-open database. Close leaves db open.
func NewWithDB(db *leveldb.DB) *Service {
	return &Service{db: db}
}

// Close releases the database if New opened it.
func (s *Service) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

func (s *Service) RegisterAsset(_ context.Context, asset token.Asset, mintAuthority address.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.db.Has(assetKey(asset), nil)
	if err != nil {
		return fmt.Errorf("token/leveldb: lookup asset: %w", err)
	}
	if ok {
		return fmt.Errorf("%w: %s", loyalty.ErrAssetExists, asset)
	}
	return s.db.Put(assetKey(asset), mintAuthority.Bytes(), nil)
}

func (s *Service) Transfer(_ context.Context, asset token.Asset, from, to address.Address, amount types.Amount) (*token.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.authority(asset); err != nil {
		return nil, err
	}
	batch := new(leveldb.Batch)
	if err := s.move(batch, asset, from, to, amount, loyalty.ErrInsufficientFunds); err != nil {
		return nil, err
	}
	return s.commit(batch, token.KindTransfer, asset, from, to, amount, from)
}

func (s *Service) Mint(_ context.Context, asset token.Asset, to address.Address, amount types.Amount, authority address.Address) (*token.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	minter, err := s.authority(asset)
	if err != nil {
		return nil, err
	}
	if minter != authority {
		return nil, fmt.Errorf("%w: %s is not the mint authority of %s", loyalty.ErrUnauthorized, authority.Short(), asset)
	}
	batch := new(leveldb.Batch)
	if err := s.credit(batch, asset, to, amount); err != nil {
		return nil, err
	}
	return s.commit(batch, token.KindMint, asset, address.Zero, to, amount, authority)
}

func (s *Service) Burn(_ context.Context, asset token.Asset, from address.Address, amount types.Amount, authority address.Address) (*token.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.authority(asset); err != nil {
		return nil, err
	}
	if authority != from {
		return nil, fmt.Errorf("%w: burn must be authorized by the holder", loyalty.ErrUnauthorized)
	}
	batch := new(leveldb.Batch)
	if err := s.debit(batch, asset, from, amount, loyalty.ErrInsufficientBalance); err != nil {
		return nil, err
	}
	return s.commit(batch, token.KindBurn, asset, from, address.Zero, amount, authority)
}

func (s *Service) Balance(_ context.Context, asset token.Asset, holder address.Address) (types.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.authority(asset); err != nil {
		return 0, err
	}
	return s.balance(asset, holder)
}

func (s *Service) Reverse(_ context.Context, r *token.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := receiptKey(r.ID)
	raw, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return fmt.Errorf("%w: %s", loyalty.ErrReceiptNotFound, r.ID)
	}
	if err != nil {
		return fmt.Errorf("token/leveldb: load receipt: %w", err)
	}
	var rec receiptRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return fmt.Errorf("token/leveldb: decode receipt: %w", err)
	}
	if rec.Reversed {
		return fmt.Errorf("%w: %s", loyalty.ErrAlreadyReversed, r.ID)
	}

	// Reverse the journaled movement, not the caller's copy.
	batch := new(leveldb.Batch)
	switch rec.Kind {
	case token.KindTransfer:
		err = s.move(batch, rec.Asset, rec.To, rec.From, rec.Amount, loyalty.ErrInsufficientFunds)
	case token.KindMint:
		err = s.debit(batch, rec.Asset, rec.To, rec.Amount, loyalty.ErrInsufficientBalance)
	case token.KindBurn:
		err = s.credit(batch, rec.Asset, rec.From, rec.Amount)
	default:
		err = fmt.Errorf("%w: unknown receipt kind %q", loyalty.ErrInvalidInput, rec.Kind)
	}
	if err != nil {
		return err
	}

	rec.Reversed = true
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("token/leveldb: encode receipt: %w", err)
	}
	batch.Put(key, data)
	return s.db.Write(batch, nil)
}

// ==================== Helpers ====================

func (s *Service) authority(asset token.Asset) (address.Address, error) {
	raw, err := s.db.Get(assetKey(asset), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return address.Zero, fmt.Errorf("%w: %s", loyalty.ErrAssetNotFound, asset)
	}
	if err != nil {
		return address.Zero, fmt.Errorf("token/leveldb: lookup asset: %w", err)
	}
	var a address.Address
	copy(a[:], raw)
	return a, nil
}

func (s *Service) balance(asset token.Asset, holder address.Address) (types.Amount, error) {
	raw, err := s.db.Get(balanceKey(asset, holder), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("token/leveldb: read balance: %w", err)
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("token/leveldb: corrupt balance for %s", holder.Short())
	}
	return types.Amount(binary.BigEndian.Uint64(raw)), nil
}

func (s *Service) move(batch *leveldb.Batch, asset token.Asset, from, to address.Address, amount types.Amount, shortfall error) error {
	fromBal, err := s.balance(asset, from)
	if err != nil {
		return err
	}
	nextFrom, err := fromBal.Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: have %d, need %d", shortfall, fromBal, amount)
	}
	if from == to {
		return nil
	}
	toBal, err := s.balance(asset, to)
	if err != nil {
		return err
	}
	nextTo, err := toBal.Add(amount)
	if err != nil {
		return err
	}
	batch.Put(balanceKey(asset, from), encodeAmount(nextFrom))
	batch.Put(balanceKey(asset, to), encodeAmount(nextTo))
	return nil
}

func (s *Service) credit(batch *leveldb.Batch, asset token.Asset, to address.Address, amount types.Amount) error {
	bal, err := s.balance(asset, to)
	if err != nil {
		return err
	}
	next, err := bal.Add(amount)
	if err != nil {
		return err
	}
	batch.Put(balanceKey(asset, to), encodeAmount(next))
	return nil
}

func (s *Service) debit(batch *leveldb.Batch, asset token.Asset, from address.Address, amount types.Amount, shortfall error) error {
	bal, err := s.balance(asset, from)
	if err != nil {
		return err
	}
	next, err := bal.Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: have %d, need %d", shortfall, bal, amount)
	}
	batch.Put(balanceKey(asset, from), encodeAmount(next))
	return nil
}

// commit journals the receipt in the same batch as the balance changes.
func (s *Service) commit(batch *leveldb.Batch, kind token.Kind, asset token.Asset, from, to address.Address, amount types.Amount, authority address.Address) (*token.Receipt, error) {
	rec := receiptRecord{Receipt: token.Receipt{
		ID:        id.NewReceiptID(),
		Kind:      kind,
		Asset:     asset,
		From:      from,
		To:        to,
		Amount:    amount,
		Authority: authority,
	}}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("token/leveldb: encode receipt: %w", err)
	}
	batch.Put(receiptKey(rec.ID), data)
	if err := s.db.Write(batch, nil); err != nil {
		return nil, fmt.Errorf("token/leveldb: commit: %w", err)
	}
	out := rec.Receipt
	return &out, nil
}

func assetKey(asset token.Asset) []byte {
	return []byte("asset/" + string(asset))
}

func balanceKey(asset token.Asset, holder address.Address) []byte {
	return []byte("bal/" + string(asset) + "/" + holder.String())
}

func receiptKey(rid id.ID) []byte {
	return []byte("rcpt/" + rid.String())
}

func encodeAmount(a types.Amount) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(a))
	return b[:]
}
