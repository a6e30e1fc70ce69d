// Package refdb is the reference database boundary: the engine looks items
// up by numeric id or by URI and gets CSL data back.
package refdb

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/citesync/internal/csl"
	"github.com/roach88/citesync/internal/store"
)

// ErrNotFound reports an item absent from the database.
var ErrNotFound = errors.New("item not found")

// KeyAlphabet omits characters that are easy to confuse (0, 1, O).
const KeyAlphabet = "23456789ABCDEFGHIJKLMNPQRSTUVWXYZ"

// KeyLength is the length of generated item keys.
const KeyLength = 8

// Database is the lookup surface the engine consumes.
type Database interface {
	ItemByID(ctx context.Context, id int64) (Item, error)
	ItemByURI(ctx context.Context, uri string) (Item, error)
}

// Item is a resolved reference.
type Item struct {
	ID      int64
	Key     string
	Version int
	// URIs lists every URI known for the item; URI is the canonical one.
	URI  string
	URIs []string
	Data csl.Item
}

// ItemURI is the canonical URI of an item in a local library.
func ItemURI(library, key string) string {
	return "http://zotero.org/users/local/" + library + "/items/" + key
}

// NewKey returns a random item key.
func NewKey() string {
	buf := make([]byte, KeyLength)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("refdb: read random: %v", err))
	}
	for i, b := range buf {
		buf[i] = KeyAlphabet[int(b)%len(KeyAlphabet)]
	}
	return string(buf)
}

// SQL is a Database backed by the SQLite store.
type SQL struct {
	store   *store.Store
	library string
	newKey  func() string
}

// Option configures an SQL database.
type Option func(*SQL)

// WithKeyGenerator replaces NewKey, for deterministic tests.
func WithKeyGenerator(fn func() string) Option {
	return func(d *SQL) {
		d.newKey = fn
	}
}

// NewSQL wraps st. library names the local library in generated URIs.
func NewSQL(st *store.Store, library string, opts ...Option) *SQL {
	d := &SQL{store: st, library: library, newKey: NewKey}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddItem stores data under a fresh key and returns the stored item. Extra
// URIs (for example the item's URI in another library) are indexed too.
func (d *SQL) AddItem(ctx context.Context, data csl.Item, extraURIs ...string) (Item, error) {
	key := d.newKey()
	data.ID = ""
	raw, err := data.Marshal()
	if err != nil {
		return Item{}, err
	}
	uris := append([]string{ItemURI(d.library, key)}, extraURIs...)
	id, err := d.store.CreateItem(ctx, key, raw, uris)
	if err != nil {
		return Item{}, fmt.Errorf("add item: %w", err)
	}
	return d.ItemByID(ctx, id)
}

// UpdateItem replaces an item's data.
func (d *SQL) UpdateItem(ctx context.Context, id int64, data csl.Item) error {
	data.ID = ""
	raw, err := data.Marshal()
	if err != nil {
		return err
	}
	if err := d.store.UpdateItem(ctx, id, raw); err != nil {
		return translate(err)
	}
	return nil
}

func (d *SQL) ItemByID(ctx context.Context, id int64) (Item, error) {
	rec, err := d.store.ItemByID(ctx, id)
	if err != nil {
		return Item{}, translate(err)
	}
	return d.fromRecord(rec)
}

func (d *SQL) ItemByURI(ctx context.Context, uri string) (Item, error) {
	rec, err := d.store.ItemByURI(ctx, uri)
	if err != nil {
		return Item{}, translate(err)
	}
	return d.fromRecord(rec)
}

// List returns every item ordered by id.
func (d *SQL) List(ctx context.Context) ([]Item, error) {
	recs, err := d.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(recs))
	for _, rec := range recs {
		it, err := d.fromRecord(rec)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

func (d *SQL) fromRecord(rec store.ItemRecord) (Item, error) {
	data, err := csl.Parse(rec.Data)
	if err != nil {
		return Item{}, fmt.Errorf("item %d: %w", rec.ID, err)
	}
	data.ID = strconv.FormatInt(rec.ID, 10)
	return Item{
		ID:      rec.ID,
		Key:     rec.Key,
		Version: rec.Version,
		URI:     ItemURI(d.library, rec.Key),
		URIs:    rec.URIs,
		Data:    data,
	}, nil
}

func translate(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
