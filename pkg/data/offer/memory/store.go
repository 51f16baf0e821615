package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/code-payments/code-escrow/pkg/data/offer"
	"github.com/code-payments/code-escrow/pkg/database/query"
	"github.com/code-payments/code-escrow/pkg/pointer"
)

type ById []*offer.Record

func (a ById) Len() int           { return len(a) }
func (a ById) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ById) Less(i, j int) bool { return a[i].Id < a[j].Id }

type store struct {
	mu      sync.RWMutex
	records []*offer.Record
	last    uint64
}

func New() offer.Store {
	return &store{}
}

func (s *store) Save(_ context.Context, data *offer.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.find(data); item != nil {
		if item.State == offer.StateExchanged {
			return offer.ErrInvalidTransition
		}
		if item.Version != data.Version {
			return offer.ErrStaleVersion
		}

		data.Version++

		item.Acceptor = pointer.Copy(data.Acceptor)
		item.ExchangeSignature = pointer.Copy(data.ExchangeSignature)
		item.State = data.State
		item.Version = data.Version

		data.Id = item.Id
		data.CreatedAt = item.CreatedAt
	} else {
		s.last++

		data.Id = s.last
		if data.CreatedAt.IsZero() {
			data.CreatedAt = time.Now()
		}
		data.Version = 1

		c := data.Clone()
		s.records = append(s.records, &c)
	}

	return nil
}

func (s *store) GetByEscrow(_ context.Context, escrow string) (*offer.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item := s.findByEscrow(escrow)
	if item == nil {
		return nil, offer.ErrNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

func (s *store) GetAllByInitializer(_ context.Context, initializer string, state offer.State) ([]*offer.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.findByInitializer(initializer)
	items = filterByState(items, state)

	if len(items) == 0 {
		return nil, offer.ErrNotFound
	}
	return cloneRecords(items), nil
}

func (s *store) GetAllByState(_ context.Context, state offer.State, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*offer.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := filterByState(s.records, state)
	if len(items) == 0 {
		return nil, offer.ErrNotFound
	}

	res := s.filter(items, cursor, limit, direction)
	if len(res) == 0 {
		return nil, offer.ErrNotFound
	}
	return cloneRecords(res), nil
}

func (s *store) CountByState(_ context.Context, state offer.State) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return uint64(len(filterByState(s.records, state))), nil
}

func (s *store) find(data *offer.Record) *offer.Record {
	return s.findByEscrow(data.Escrow)
}

func (s *store) findByEscrow(escrow string) *offer.Record {
	for _, item := range s.records {
		if item.Escrow == escrow {
			return item
		}
	}
	return nil
}

func (s *store) findByInitializer(initializer string) []*offer.Record {
	var res []*offer.Record
	for _, item := range s.records {
		if item.Initializer == initializer {
			res = append(res, item)
		}
	}
	return res
}

func (s *store) filter(items []*offer.Record, cursor query.Cursor, limit uint64, direction query.Ordering) []*offer.Record {
	var start uint64

	start = 0
	if direction == query.Descending {
		start = s.last + 1
	}
	if len(cursor) > 0 {
		start = cursor.ToUint64()
	}

	var res []*offer.Record
	for _, item := range items {
		if item.Id > start && direction == query.Ascending {
			res = append(res, item)
		}
		if item.Id < start && direction == query.Descending {
			res = append(res, item)
		}
	}

	if direction == query.Descending {
		sort.Sort(sort.Reverse(ById(res)))
	}

	if limit > 0 && len(res) >= int(limit) {
		return res[:limit]
	}

	return res
}

func filterByState(items []*offer.Record, state offer.State) []*offer.Record {
	var res []*offer.Record
	for _, item := range items {
		if item.State == state {
			res = append(res, item)
		}
	}
	return res
}

func cloneRecords(items []*offer.Record) []*offer.Record {
	var res []*offer.Record
	for _, item := range items {
		cloned := item.Clone()
		res = append(res, &cloned)
	}
	return res
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.last = 0
}
