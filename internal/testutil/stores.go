package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/apartment-management/internal/model"
	"github.com/iliyamo/apartment-management/internal/queue"
	"github.com/iliyamo/apartment-management/internal/repository"
)

// Apartments is an in-memory apartment store enforcing (number, building)
// uniqueness.
type Apartments struct {
	mu     sync.Mutex
	rows   map[uint64]*model.Apartment
	nextID uint64
}

func NewApartments() *Apartments {
	return &Apartments{rows: map[uint64]*model.Apartment{}, nextID: 1}
}

func (s *Apartments) ExistsByNumberBuilding(_ context.Context, number, building string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.rows {
		if a.Number == number && a.Building == building {
			return true, nil
		}
	}
	return false, nil
}

func (s *Apartments) Create(ctx context.Context, a *model.Apartment) error {
	if ok, _ := s.ExistsByNumberBuilding(ctx, a.Number, a.Building); ok {
		return repository.ErrDuplicate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	a.ID, a.CreatedAt, a.UpdatedAt = s.nextID, now, now
	if a.Amenities == nil {
		a.Amenities = []string{}
	}
	cp := *a
	s.rows[a.ID] = &cp
	s.nextID++
	return nil
}

func (s *Apartments) GetByID(_ context.Context, id uint64) (*model.Apartment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrApartmentNotFound
	}
	cp := *a
	return &cp, nil
}

// Visitors is an in-memory visitor store.  Apartment ids are checked against
// Apartments when it is set.
type Visitors struct {
	mu         sync.Mutex
	rows       map[uint64]*model.Visitor
	nextID     uint64
	Apartments *Apartments
}

func NewVisitors(apartments *Apartments) *Visitors {
	return &Visitors{rows: map[uint64]*model.Visitor{}, nextID: 1, Apartments: apartments}
}

func (s *Visitors) Create(ctx context.Context, v *model.Visitor) error {
	if s.Apartments != nil {
		if _, err := s.Apartments.GetByID(ctx, v.ApartmentID); err != nil {
			return repository.ErrReferenceNotFound
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	v.ID, v.CreatedAt, v.UpdatedAt = s.nextID, now, now
	cp := *v
	s.rows[v.ID] = &cp
	s.nextID++
	return nil
}

func (s *Visitors) GetByID(_ context.Context, id uint64) (*model.Visitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrVisitorNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *Visitors) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return repository.ErrVisitorNotFound
	}
	delete(s.rows, id)
	return nil
}

// Maintenance is an in-memory maintenance request store.
type Maintenance struct {
	mu         sync.Mutex
	rows       map[uint64]*model.MaintenanceRequest
	nextID     uint64
	Apartments *Apartments
}

func NewMaintenance(apartments *Apartments) *Maintenance {
	return &Maintenance{rows: map[uint64]*model.MaintenanceRequest{}, nextID: 1, Apartments: apartments}
}

func (s *Maintenance) Create(ctx context.Context, m *model.MaintenanceRequest) error {
	if s.Apartments != nil {
		if _, err := s.Apartments.GetByID(ctx, m.ApartmentID); err != nil {
			return repository.ErrReferenceNotFound
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	m.ID, m.CreatedAt, m.UpdatedAt = s.nextID, now, now
	cp := *m
	s.rows[m.ID] = &cp
	s.nextID++
	return nil
}

func (s *Maintenance) UpdateStatus(_ context.Context, id uint64, status model.MaintenanceStatus) (*model.MaintenanceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrMaintenanceNotFound
	}
	m.Status = status
	m.UpdatedAt = time.Now().UTC()
	cp := *m
	return &cp, nil
}

// Payments is an in-memory payment ledger.
type Payments struct {
	mu         sync.Mutex
	rows       []*model.Payment
	Apartments *Apartments
}

func NewPayments(apartments *Apartments) *Payments { return &Payments{Apartments: apartments} }

func (s *Payments) Create(ctx context.Context, p *model.Payment) error {
	if s.Apartments != nil {
		if _, err := s.Apartments.GetByID(ctx, p.ApartmentID); err != nil {
			return repository.ErrReferenceNotFound
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	p.ID, p.CreatedAt, p.UpdatedAt = uint64(len(s.rows)+1), now, now
	cp := *p
	s.rows = append(s.rows, &cp)
	return nil
}

func (s *Payments) ListByApartment(_ context.Context, apartmentID uint64) ([]*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*model.Payment{}
	for _, p := range s.rows {
		if p.ApartmentID == apartmentID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// Announcements is an in-memory notice board.
type Announcements struct {
	mu   sync.Mutex
	rows []*model.Announcement
}

func NewAnnouncements() *Announcements { return &Announcements{} }

func (s *Announcements) Create(_ context.Context, a *model.Announcement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = uint64(len(s.rows) + 1)
	a.CreatedAt = time.Now().UTC()
	cp := *a
	s.rows = append(s.rows, &cp)
	return nil
}

func (s *Announcements) List(_ context.Context, limit int) ([]*model.Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Announcement, 0, len(s.rows))
	for i := len(s.rows) - 1; i >= 0; i-- {
		cp := *s.rows[i]
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Important && !out[j].Important })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Events records published visitor events.
type Events struct {
	mu     sync.Mutex
	Events []queue.VisitorEvent
	Err    error
}

func (p *Events) PublishVisitorEvent(_ context.Context, ev queue.VisitorEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Events = append(p.Events, ev)
	return nil
}

// Published returns a copy of the recorded events.
func (p *Events) Published() []queue.VisitorEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.VisitorEvent(nil), p.Events...)
}
