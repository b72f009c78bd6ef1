// Package redis stores the people index, per-person transactions and the
// shared-links index as JSON documents under fixed keys.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"loantracker/internal/core"
	"loantracker/internal/store"
)

var _ store.Repository = (*Store)(nil)

const maxTxRetries = 5

var errTooManyRetries = errors.New("redis: optimistic transaction retries exhausted")

type Store struct {
	rdb  *goredis.Client
	keys keys
}

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// New connects to redis and verifies the connection with PING.
func New(ctx context.Context, opts Options) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.InfoContext(ctx, "Connected to redis", "addr", opts.Addr, "db", opts.DB)
	return &Store{rdb: rdb, keys: newKeys(opts.Prefix)}, nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

// Ping reports whether the server answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func readList[T any](ctx context.Context, c goredis.Cmdable, key string) ([]T, error) {
	b, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return decodeList[T](key, b)
}

// update runs fn inside WATCH/MULTI on keys and applies the returned writes.
// A nil value deletes the key.
func (s *Store) update(ctx context.Context, fn func(tx *goredis.Tx) (map[string][]byte, error), keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
			writes, err := fn(tx)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				for k, v := range writes {
					if v == nil {
						pipe.Del(ctx, k)
						continue
					}
					pipe.Set(ctx, k, v, 0)
				}
				return nil
			})
			return err
		}, keys...)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return err
	}
	return errTooManyRetries
}

func (s *Store) ListPeople(ctx context.Context) ([]core.Person, error) {
	return readList[core.Person](ctx, s.rdb, s.keys.people())
}

func (s *Store) GetPerson(ctx context.Context, id string) (core.Person, error) {
	people, err := s.ListPeople(ctx)
	if err != nil {
		return core.Person{}, err
	}
	for _, p := range people {
		if p.ID == id {
			return p, nil
		}
	}
	return core.Person{}, core.ErrNotFound
}

func upsertPerson(people []core.Person, p core.Person) []core.Person {
	for i := range people {
		if people[i].ID == p.ID {
			people[i] = p
			return people
		}
	}
	return append(people, p)
}

func (s *Store) SavePerson(ctx context.Context, p core.Person) error {
	key := s.keys.people()
	return s.update(ctx, func(tx *goredis.Tx) (map[string][]byte, error) {
		people, err := readList[core.Person](ctx, tx, key)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(upsertPerson(people, p))
		if err != nil {
			return nil, fmt.Errorf("encode people: %w", err)
		}
		return map[string][]byte{key: b}, nil
	}, key)
}

func (s *Store) DeletePerson(ctx context.Context, id string) error {
	key := s.keys.people()
	return s.update(ctx, func(tx *goredis.Tx) (map[string][]byte, error) {
		people, err := readList[core.Person](ctx, tx, key)
		if err != nil {
			return nil, err
		}
		kept := people[:0]
		found := false
		for _, p := range people {
			if p.ID == id {
				found = true
				continue
			}
			kept = append(kept, p)
		}
		if !found {
			return nil, core.ErrNotFound
		}
		b, err := json.Marshal(kept)
		if err != nil {
			return nil, fmt.Errorf("encode people: %w", err)
		}
		return map[string][]byte{key: b, s.keys.transactions(id): nil}, nil
	}, key)
}

func (s *Store) ListTransactions(ctx context.Context, personID string) ([]core.Transaction, error) {
	if _, err := s.GetPerson(ctx, personID); err != nil {
		return nil, err
	}
	return readList[core.Transaction](ctx, s.rdb, s.keys.transactions(personID))
}

func (s *Store) SaveLedger(ctx context.Context, p core.Person, txs []core.Transaction) error {
	peopleKey := s.keys.people()
	txKey := s.keys.transactions(p.ID)
	return s.update(ctx, func(tx *goredis.Tx) (map[string][]byte, error) {
		people, err := readList[core.Person](ctx, tx, peopleKey)
		if err != nil {
			return nil, err
		}
		pb, err := json.Marshal(upsertPerson(people, p))
		if err != nil {
			return nil, fmt.Errorf("encode people: %w", err)
		}
		if txs == nil {
			txs = []core.Transaction{}
		}
		tb, err := json.Marshal(txs)
		if err != nil {
			return nil, fmt.Errorf("encode transactions: %w", err)
		}
		return map[string][]byte{peopleKey: pb, txKey: tb}, nil
	}, peopleKey, txKey)
}

func (s *Store) ListLinks(ctx context.Context) ([]core.SharedLink, error) {
	return readList[core.SharedLink](ctx, s.rdb, s.keys.sharedLinks())
}

func (s *Store) GetLink(ctx context.Context, id string) (core.SharedLink, error) {
	links, err := s.ListLinks(ctx)
	if err != nil {
		return core.SharedLink{}, err
	}
	for _, l := range links {
		if l.ID == id {
			return l, nil
		}
	}
	return core.SharedLink{}, core.ErrNotFound
}

// modifyLinks applies fn to the links index under optimistic locking.
func (s *Store) modifyLinks(ctx context.Context, fn func([]core.SharedLink) ([]core.SharedLink, error)) error {
	key := s.keys.sharedLinks()
	return s.update(ctx, func(tx *goredis.Tx) (map[string][]byte, error) {
		links, err := readList[core.SharedLink](ctx, tx, key)
		if err != nil {
			return nil, err
		}
		links, err = fn(links)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(links)
		if err != nil {
			return nil, fmt.Errorf("encode shared links: %w", err)
		}
		return map[string][]byte{key: b}, nil
	}, key)
}

func (s *Store) SaveLink(ctx context.Context, l core.SharedLink) error {
	return s.modifyLinks(ctx, func(links []core.SharedLink) ([]core.SharedLink, error) {
		for i := range links {
			if links[i].ID == l.ID {
				links[i] = l
				return links, nil
			}
		}
		return append(links, l), nil
	})
}

func (s *Store) DeleteLink(ctx context.Context, id string) error {
	return s.modifyLinks(ctx, func(links []core.SharedLink) ([]core.SharedLink, error) {
		for i := range links {
			if links[i].ID == id {
				return append(links[:i], links[i+1:]...), nil
			}
		}
		return nil, core.ErrNotFound
	})
}

func (s *Store) IncrementViews(ctx context.Context, id string) (int64, error) {
	var views int64
	err := s.modifyLinks(ctx, func(links []core.SharedLink) ([]core.SharedLink, error) {
		for i := range links {
			if links[i].ID == id {
				links[i].Views++
				views = links[i].Views
				return links, nil
			}
		}
		return nil, core.ErrNotFound
	})
	return views, err
}
