package secretstore

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func testRecord(itemID, commitment string, amount int64) Record {
	return Record{
		ItemID:          itemID,
		CommitmentValue: commitment,
		Amount:          decimal.NewFromInt(amount),
		Secret:          "secret-" + commitment,
	}
}

func TestStore_PutAndGet(t *testing.T) {
	s := New()
	check.NoError(t, s.Put(testRecord("item-1", "c1", 40)))

	rec, ok := s.Get("item-1", "c1")
	check.True(t, ok)
	check.True(t, rec.Amount.Equal(decimal.NewFromInt(40)))
	check.Equal(t, "secret-c1", rec.Secret)
	check.False(t, rec.Revealed)
	check.False(t, rec.SavedAt.IsZero())

	_, ok = s.Get("item-1", "missing")
	check.False(t, ok)
}

func TestStore_PutRejectsDuplicatesAndEmptyFields(t *testing.T) {
	s := New()
	check.NoError(t, s.Put(testRecord("item-1", "c1", 40)))

	err := s.Put(testRecord("item-1", "c1", 99))
	check.True(t, errors.Is(err, ErrDuplicateRecord))

	// Same commitment on a different item is a different sealed bid.
	check.NoError(t, s.Put(testRecord("item-2", "c1", 40)))

	check.Error(t, s.Put(Record{CommitmentValue: "c", Secret: "s"}))
	check.Error(t, s.Put(Record{ItemID: "i", Secret: "s"}))
	check.Error(t, s.Put(Record{ItemID: "i", CommitmentValue: "c"}))
}

func TestStore_MarkRevealed(t *testing.T) {
	s := New()
	check.NoError(t, s.Put(testRecord("item-1", "c1", 40)))
	check.NoError(t, s.Put(testRecord("item-1", "c2", 25)))
	check.NoError(t, s.Put(testRecord("item-2", "c3", 10)))

	check.Equal(t, 2, len(s.Unrevealed("item-1")))

	at := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	check.NoError(t, s.MarkRevealed("item-1", "c1", at))

	rec, ok := s.Get("item-1", "c1")
	check.True(t, ok)
	check.True(t, rec.Revealed)
	check.True(t, rec.RevealedAt.Equal(at))

	left := s.Unrevealed("item-1")
	check.Equal(t, 1, len(left))
	check.Equal(t, "c2", left[0].CommitmentValue)

	err := s.MarkRevealed("item-1", "missing", at)
	check.True(t, errors.Is(err, ErrNoRecord))
}

func TestStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")

	s := New()
	check.NoError(t, s.Put(testRecord("item-1", "c1", 40)))
	check.NoError(t, s.Put(testRecord("item-1", "c2", 25)))
	check.NoError(t, s.MarkRevealed("item-1", "c1", time.Now()))
	check.NoError(t, s.Save(path))

	loaded := New()
	check.NoError(t, loaded.Load(path))

	rec, ok := loaded.Get("item-1", "c1")
	check.True(t, ok)
	check.True(t, rec.Revealed)
	check.True(t, rec.Amount.Equal(decimal.NewFromInt(40)))

	left := loaded.Unrevealed("item-1")
	check.Equal(t, 1, len(left))
	check.Equal(t, "c2", left[0].CommitmentValue)

	// Loaded stores keep the append-only duplicate check.
	err := loaded.Put(testRecord("item-1", "c2", 25))
	check.True(t, errors.Is(err, ErrDuplicateRecord))
}

func TestStore_LoadMissingFile(t *testing.T) {
	s := New()
	check.Error(t, s.Load(filepath.Join(t.TempDir(), "absent.json")))
}
