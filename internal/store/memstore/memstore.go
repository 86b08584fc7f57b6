// Package memstore is an in-memory store.Store used by tests.
//
// Transactions are serialized and roll back by restoring a snapshot, which
// is stronger than the row locks the database store takes. Writes made
// outside a transaction while another one rolls back are lost.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	applicationRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/application/repository"
	notifRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/notification/repository"
	paymentRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/payment/repository"
	tuitionRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/tuition/repository"
	userRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/user/repository"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/store"
	"github.com/google/uuid"
)

type state struct {
	accounts      map[uuid.UUID]entity.Account
	tuitions      map[uuid.UUID]entity.TuitionPost
	applications  map[uuid.UUID]entity.Application
	payments      map[uuid.UUID]entity.PaymentRecord
	notifications map[uuid.UUID]entity.Notification
}

func newState() *state {
	return &state{
		accounts:      map[uuid.UUID]entity.Account{},
		tuitions:      map[uuid.UUID]entity.TuitionPost{},
		applications:  map[uuid.UUID]entity.Application{},
		payments:      map[uuid.UUID]entity.PaymentRecord{},
		notifications: map[uuid.UUID]entity.Notification{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.accounts {
		c.accounts[k] = copyAccount(v)
	}
	for k, v := range s.tuitions {
		c.tuitions[k] = v
	}
	for k, v := range s.applications {
		c.applications[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.notifications {
		c.notifications[k] = v
	}
	return c
}

// Store implements store.Store in memory.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   *state
	errs map[string]error
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: newState(), errs: map[string]error{}, now: time.Now}
}

// FailNext makes the next call of op (for example "payments.Create") return err.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[op] = err
}

func (s *Store) takeErr(op string) error {
	if err, ok := s.errs[op]; ok {
		delete(s.errs, op)
		return err
	}
	return nil
}

func (s *Store) Accounts() userRepo.Repository { return accounts{s} }
func (s *Store) Tuitions() tuitionRepo.Repository { return tuitions{s} }
func (s *Store) Applications() applicationRepo.Repository { return applications{s} }
func (s *Store) Payments() paymentRepo.Repository { return payments{s} }
func (s *Store) Notifications() notifRepo.NotificationRepository { return notifications{s} }

func (s *Store) Transaction(ctx context.Context, fn func(tx store.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	if err := s.takeErr("transaction"); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(txStore{s}); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("ping"); err != nil {
		return err
	}
	return ctx.Err()
}

// txStore is the handle passed into a transaction; nested transactions
// join the outer one.
type txStore struct{ *Store }

func (t txStore) Transaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(t)
}

// Snapshot helpers for assertions.

func (s *Store) Tuition(id uuid.UUID) (entity.TuitionPost, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.tuitions[id]
	return p, ok
}

func (s *Store) Application(id uuid.UUID) (entity.Application, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.st.applications[id]
	return a, ok
}

func (s *Store) PaymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.payments)
}

// CountedApplications counts pending and approved applications of a post.
func (s *Store) CountedApplications(postID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.st.applications {
		if a.TuitionPostID == postID && a.Counted() {
			n++
		}
	}
	return n
}

func (s *Store) stamp(t *time.Time) {
	if t.IsZero() {
		*t = s.now()
	}
}

func newID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func truncate(t time.Time, unit string) time.Time {
	t = t.UTC()
	switch unit {
	case "month":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case "week":
		d := t.Truncate(24 * time.Hour)
		offset := (int(d.Weekday()) + 6) % 7
		return d.AddDate(0, 0, -offset)
	default:
		return t.Truncate(24 * time.Hour)
	}
}

func sortBuckets(m map[time.Time]*entity.TimeBucket) []entity.TimeBucket {
	out := make([]entity.TimeBucket, 0, len(m))
	for _, b := range m {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
