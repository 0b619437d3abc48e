// Package memory provides an in-process implementation of the storage
// contracts. It applies the same optimistic concurrency rules as the
// Postgres store and is used for local runs and tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aliskhannn/chorequest-bot/internal/common"
	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
	"github.com/aliskhannn/chorequest-bot/internal/service"
)

// Store keeps every record in memory behind a single mutex.
type Store struct {
	mu           sync.Mutex
	progress     map[string]entities.UserProgress
	markers      map[string]entities.ProcessedMarker
	achievements map[string][]entities.Achievement
	users        map[string]entities.User
	chores       []entities.Chore
	praises      []entities.Praise

	beforeCommit func(ctx context.Context)

	commits   atomic.Int64
	conflicts atomic.Int64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		progress:     make(map[string]entities.UserProgress),
		markers:      make(map[string]entities.ProcessedMarker),
		achievements: make(map[string][]entities.Achievement),
		users:        make(map[string]entities.User),
	}
}

// SetBeforeCommit installs a hook that runs, without the lock held, right
// before a progress transaction validates and commits.
func (s *Store) SetBeforeCommit(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beforeCommit = fn
}

// Commits returns the number of committed progress transactions.
func (s *Store) Commits() int64 { return s.commits.Load() }

// Conflicts returns the number of progress transactions rejected by a conflict.
func (s *Store) Conflicts() int64 { return s.conflicts.Load() }

// WithinProgressTx implements service.ProgressStore.
func (s *Store) WithinProgressTx(ctx context.Context, fn func(ctx context.Context, tx service.ProgressTx) error) error {
	tx := &progressTx{
		store:  s,
		writes: make(map[string]entities.UserProgress),
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	hook := s.beforeCommit
	s.mu.Unlock()
	if hook != nil {
		hook(ctx)
	}

	return tx.commit()
}

// GetProgress implements service.ProgressStore.
func (s *Store) GetProgress(_ context.Context, userID string) (*entities.UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.progress[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneProgress(p), nil
}

// PutProgress stores a progress record as is. Intended for fixtures.
func (s *Store) PutProgress(p entities.UserProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Version == 0 {
		p.Version = 1
	}
	s.progress[p.UserID] = *cloneProgress(p)
}

// HasMarker reports whether the subject has a processed marker.
func (s *Store) HasMarker(subjectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.markers[subjectID]
	return ok
}

type progressTx struct {
	store  *Store
	claims []entities.ProcessedMarker
	writes map[string]entities.UserProgress
}

func (tx *progressTx) ClaimEvent(_ context.Context, marker entities.ProcessedMarker) (bool, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	if _, ok := tx.store.markers[marker.SubjectID]; ok {
		return false, nil
	}
	for _, c := range tx.claims {
		if c.SubjectID == marker.SubjectID {
			return false, nil
		}
	}

	tx.claims = append(tx.claims, marker)
	return true, nil
}

func (tx *progressTx) GetProgress(_ context.Context, userID string) (*entities.UserProgress, error) {
	if p, ok := tx.writes[userID]; ok {
		return cloneProgress(p), nil
	}

	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	p, ok := tx.store.progress[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneProgress(p), nil
}

func (tx *progressTx) SaveProgress(_ context.Context, p *entities.UserProgress) error {
	tx.store.mu.Lock()
	current := tx.store.progress[p.UserID].Version
	tx.store.mu.Unlock()

	if current != p.Version {
		return common.ErrConflict
	}

	staged := *cloneProgress(*p)
	staged.Version = p.Version + 1
	tx.writes[p.UserID] = staged
	p.Version = staged.Version

	return nil
}

func (tx *progressTx) commit() error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range tx.claims {
		if _, ok := s.markers[c.SubjectID]; ok {
			s.conflicts.Add(1)
			return common.ErrConflict
		}
	}
	for userID, w := range tx.writes {
		if s.progress[userID].Version != w.Version-1 {
			s.conflicts.Add(1)
			return common.ErrConflict
		}
	}

	for _, c := range tx.claims {
		s.markers[c.SubjectID] = c
	}
	for userID, w := range tx.writes {
		s.progress[userID] = w
	}

	s.commits.Add(1)
	return nil
}

// SeedAchievements implements service.AchievementStore.
func (s *Store) SeedAchievements(_ context.Context, userID string, seeds []entities.Achievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.achievements[userID]
	for _, seed := range seeds {
		if slices.ContainsFunc(existing, func(a entities.Achievement) bool { return a.Code == seed.Code }) {
			continue
		}
		seed.UserID = userID
		existing = append(existing, *cloneAchievement(seed))
	}
	s.achievements[userID] = existing

	return nil
}

// ListOpenAchievements implements service.AchievementStore.
func (s *Store) ListOpenAchievements(_ context.Context, userID string) ([]*entities.Achievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*entities.Achievement
	for _, a := range s.achievements[userID] {
		if !a.Completed {
			out = append(out, cloneAchievement(a))
		}
	}
	return out, nil
}

// ListAchievements implements service.AchievementStore.
func (s *Store) ListAchievements(_ context.Context, userID string) ([]*entities.Achievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*entities.Achievement, 0, len(s.achievements[userID]))
	for _, a := range s.achievements[userID] {
		out = append(out, cloneAchievement(a))
	}
	return out, nil
}

// IncrementAchievements implements service.AchievementStore.
func (s *Store) IncrementAchievements(_ context.Context, userID string, ids []string, now time.Time) ([]*entities.Achievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.achievements[userID]
	var out []*entities.Achievement
	for _, id := range ids {
		for i := range records {
			if records[i].ID != id || records[i].Completed {
				continue
			}
			records[i].Advance(now)
			out = append(out, cloneAchievement(records[i]))
		}
	}

	return out, nil
}

// PutUser stores or replaces a user.
func (s *Store) PutUser(u entities.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// GetUser implements service.UserDirectory.
func (s *Store) GetUser(_ context.Context, userID string) (*entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &u, nil
}

// GetUserByChatID implements service.UserDirectory.
func (s *Store) GetUserByChatID(_ context.Context, chatID int64) (*entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if chatID != 0 && u.ChatID == chatID {
			return &u, nil
		}
	}
	return nil, common.ErrNotFound
}

// ListDigestRecipients implements service.UserDirectory.
func (s *Store) ListDigestRecipients(_ context.Context) ([]*entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*entities.User
	for _, u := range s.users {
		if u.CanReceiveMessages() {
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PutChore stores a chore.
func (s *Store) PutChore(c entities.Chore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chores = append(s.chores, c)
}

// ListPendingDue implements service.ChoreRepository.
func (s *Store) ListPendingDue(_ context.Context, userID string, from, to time.Time, limit int) ([]entities.Chore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []entities.Chore
	for _, c := range s.chores {
		if c.AssignedTo != userID || c.Status != entities.ChoreStatusPending {
			continue
		}
		if c.DueAt.Before(from) || !c.DueAt.Before(to) {
			continue
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SavePraise implements service.PraiseRepository.
func (s *Store) SavePraise(_ context.Context, p *entities.Praise) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.praises = append(s.praises, *p)
	return nil
}

// Praises returns the recorded praise messages.
func (s *Store) Praises() []entities.Praise {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.praises)
}

func cloneProgress(p entities.UserProgress) *entities.UserProgress {
	p.LastCompletionDay = clonePtr(p.LastCompletionDay)
	p.LastCompletionAt = clonePtr(p.LastCompletionAt)
	return &p
}

func cloneAchievement(a entities.Achievement) *entities.Achievement {
	a.CompletedAt = clonePtr(a.CompletedAt)
	return &a
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

var (
	_ service.ProgressStore    = (*Store)(nil)
	_ service.AchievementStore = (*Store)(nil)
	_ service.UserDirectory    = (*Store)(nil)
	_ service.ChoreRepository  = (*Store)(nil)
	_ service.PraiseRepository = (*Store)(nil)
)
