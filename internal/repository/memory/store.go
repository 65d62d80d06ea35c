// Package memory is the default single-process Store. All repositories share
// one data set; WithTx snapshots it and restores the snapshot on failure.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	"github.com/longevaiapp/EVEREST-sub000/internal/repository"
)

type data struct {
	patients          map[uuid.UUID]*model.Patient
	patientOrder      []uuid.UUID
	tasks             map[uuid.UUID]*model.Task
	taskOrder         []uuid.UUID
	notifications     map[uuid.UUID]*model.Notification
	notificationOrder []uuid.UUID
	hosps             map[uuid.UUID]*model.Hospitalization
	hospOrder         []uuid.UUID
	outbox            map[uuid.UUID]*model.OutboxEvent
	outboxOrder       []uuid.UUID
}

func newData() *data {
	return &data{
		patients:      make(map[uuid.UUID]*model.Patient),
		tasks:         make(map[uuid.UUID]*model.Task),
		notifications: make(map[uuid.UUID]*model.Notification),
		hosps:         make(map[uuid.UUID]*model.Hospitalization),
		outbox:        make(map[uuid.UUID]*model.OutboxEvent),
	}
}

func (d *data) clone() *data {
	c := newData()
	for id, p := range d.patients {
		c.patients[id] = p.Clone()
	}
	for id, t := range d.tasks {
		cp := *t
		c.tasks[id] = &cp
	}
	for id, n := range d.notifications {
		cp := *n
		c.notifications[id] = &cp
	}
	for id, h := range d.hosps {
		c.hosps[id] = h.Clone()
	}
	for id, e := range d.outbox {
		cp := *e
		c.outbox[id] = &cp
	}
	c.patientOrder = append([]uuid.UUID(nil), d.patientOrder...)
	c.taskOrder = append([]uuid.UUID(nil), d.taskOrder...)
	c.notificationOrder = append([]uuid.UUID(nil), d.notificationOrder...)
	c.hospOrder = append([]uuid.UUID(nil), d.hospOrder...)
	c.outboxOrder = append([]uuid.UUID(nil), d.outboxOrder...)
	return c
}

type state struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	d    *data
}

// Store implements repository.Store in memory. Reads and writes outside a
// transaction wait for any running transaction to finish, so they never see
// state that is later rolled back.
type Store struct {
	st   *state
	inTx bool
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: &state{d: newData()}}
}

func (s *Store) Patients() repository.PatientRepository { return &patientRepo{s} }

func (s *Store) Tasks() repository.TaskRepository { return &taskRepo{s} }

func (s *Store) Notifications() repository.NotificationRepository {
	return &notificationRepo{s}
}

func (s *Store) Hospitalizations() repository.HospitalizationRepository {
	return &hospitalizationRepo{s}
}

func (s *Store) Outbox() repository.OutboxRepository { return &outboxRepo{s} }

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) (err error) {
	if s.inTx {
		return fn(ctx, s)
	}

	s.st.txMu.Lock()
	defer s.st.txMu.Unlock()

	s.st.mu.RLock()
	snapshot := s.st.d.clone()
	s.st.mu.RUnlock()

	rollback := func() {
		s.st.mu.Lock()
		s.st.d = snapshot
		s.st.mu.Unlock()
	}

	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err = fn(ctx, &Store{st: s.st, inTx: true}); err != nil {
		rollback()
		return err
	}
	return nil
}

func (s *Store) write(fn func(d *data) error) error {
	if !s.inTx {
		s.st.txMu.Lock()
		defer s.st.txMu.Unlock()
	}
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return fn(s.st.d)
}

func (s *Store) read(fn func(d *data) error) error {
	if !s.inTx {
		s.st.txMu.Lock()
		defer s.st.txMu.Unlock()
	}
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	return fn(s.st.d)
}
