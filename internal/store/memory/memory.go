package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"loantracker/internal/core"
	"loantracker/internal/store"
)

// Ensure interface conformance
var (
	_ store.Repository   = (*Store)(nil)
	_ store.LedgerReader = (*Store)(nil)
)

// Store keeps the three collections in process memory. Returned slices are
// copies; callers may modify them freely.
type Store struct {
	mu     sync.Mutex
	people []core.Person
	txs    map[string][]core.Transaction
	links  []core.SharedLink
}

// Snapshot is the on-disk seed format: the people index plus each person's
// transactions keyed by person id.
type Snapshot struct {
	People       []core.Person                 `json:"people"`
	Transactions map[string][]core.Transaction `json:"transactions,omitempty"`
	SharedLinks  []core.SharedLink             `json:"sharedLinks,omitempty"`
}

func New() *Store {
	return &Store{txs: make(map[string][]core.Transaction)}
}

// NewFromSnapshot builds a store from snap. People totals are recomputed from
// their transactions so the seed can never disagree with its ledger.
func NewFromSnapshot(snap Snapshot) (*Store, error) {
	s := New()
	for _, p := range snap.People {
		txs := append([]core.Transaction(nil), snap.Transactions[p.ID]...)
		agg, err := core.Aggregate(p, txs)
		if err != nil {
			return nil, fmt.Errorf("ledger of %s: %w", p.ID, err)
		}
		s.people = append(s.people, agg)
		s.txs[p.ID] = txs
	}
	s.links = append(s.links, snap.SharedLinks...)
	return s, nil
}

// NewFromFile seeds the store from a JSON snapshot at path. A missing file
// yields an empty store; a file that does not decode is reported as
// core.ErrStoreUnreadable.
func NewFromFile(path string) (*Store, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, core.ErrStoreUnreadable)
	}
	s, err := NewFromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w: %w", path, core.ErrStoreUnreadable, err)
	}
	return s, nil
}

// Snapshot returns a deep copy of the current contents.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		People:       clonePeople(s.people),
		Transactions: make(map[string][]core.Transaction, len(s.txs)),
		SharedLinks:  append([]core.SharedLink(nil), s.links...),
	}
	for id, txs := range s.txs {
		snap.Transactions[id] = append([]core.Transaction(nil), txs...)
	}
	return snap
}

func (s *Store) ListPeople(_ context.Context) ([]core.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePeople(s.people), nil
}

func (s *Store) GetPerson(_ context.Context, id string) (core.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.personIndex(id)
	if i < 0 {
		return core.Person{}, core.ErrNotFound
	}
	return clonePerson(s.people[i]), nil
}

func (s *Store) SavePerson(_ context.Context, p core.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putPerson(p)
	return nil
}

func (s *Store) DeletePerson(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.personIndex(id)
	if i < 0 {
		return core.ErrNotFound
	}
	s.people = append(s.people[:i], s.people[i+1:]...)
	delete(s.txs, id)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, personID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.personIndex(personID) < 0 {
		return nil, core.ErrNotFound
	}
	return append([]core.Transaction(nil), s.txs[personID]...), nil
}

func (s *Store) SaveLedger(_ context.Context, p core.Person, txs []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putPerson(p)
	s.txs[p.ID] = append([]core.Transaction(nil), txs...)
	return nil
}

func (s *Store) ListLinks(_ context.Context) ([]core.SharedLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.SharedLink(nil), s.links...), nil
}

func (s *Store) GetLink(_ context.Context, id string) (core.SharedLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.linkIndex(id)
	if i < 0 {
		return core.SharedLink{}, core.ErrNotFound
	}
	return s.links[i], nil
}

func (s *Store) SaveLink(_ context.Context, l core.SharedLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.linkIndex(l.ID); i >= 0 {
		s.links[i] = l
		return nil
	}
	s.links = append(s.links, l)
	return nil
}

func (s *Store) DeleteLink(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.linkIndex(id)
	if i < 0 {
		return core.ErrNotFound
	}
	s.links = append(s.links[:i], s.links[i+1:]...)
	return nil
}

func (s *Store) IncrementViews(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.linkIndex(id)
	if i < 0 {
		return 0, core.ErrNotFound
	}
	s.links[i].Views++
	return s.links[i].Views, nil
}

func (s *Store) putPerson(p core.Person) {
	p = clonePerson(p)
	if i := s.personIndex(p.ID); i >= 0 {
		s.people[i] = p
		return
	}
	s.people = append(s.people, p)
}

func (s *Store) personIndex(id string) int {
	for i := range s.people {
		if s.people[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) linkIndex(id string) int {
	for i := range s.links {
		if s.links[i].ID == id {
			return i
		}
	}
	return -1
}

func clonePerson(p core.Person) core.Person {
	if p.PersonalInfo != nil {
		info := *p.PersonalInfo
		p.PersonalInfo = &info
	}
	return p
}

func clonePeople(in []core.Person) []core.Person {
	out := make([]core.Person, len(in))
	for i, p := range in {
		out[i] = clonePerson(p)
	}
	return out
}
