// internal/store/memory.go
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "event-matchmaker/internal/common/errors"
	"event-matchmaker/internal/models"
)

// Memory is an in-process Store for local runs and tests. Values are copied on
// the way in and out so callers never share state with the store.
type Memory struct {
	mu       sync.RWMutex
	profiles map[string]*models.Profile
	matches  map[string]*models.Match
	users    map[string]*models.User
	order    []string
}

func NewMemory() *Memory {
	return &Memory{
		profiles: make(map[string]*models.Profile),
		matches:  make(map[string]*models.Match),
		users:    make(map[string]*models.User),
	}
}

// AddUser registers a platform account. Admin accounts linked to a profile mark it as an organizer.
func (s *Memory) AddUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &u
}

// WithTx runs fn against a private copy of the store and swaps it in when fn succeeds.
// The store stays locked until fn returns; fn must only use tx.
func (s *Memory) WithTx(ctx context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.clone()
	if err := fn(work); err != nil {
		return err
	}

	s.profiles = work.profiles
	s.matches = work.matches
	s.users = work.users
	s.order = work.order
	return nil
}

// clone deep-copies the maps. Callers hold s.mu.
func (s *Memory) clone() *Memory {
	c := &Memory{
		profiles: make(map[string]*models.Profile, len(s.profiles)),
		matches:  make(map[string]*models.Match, len(s.matches)),
		users:    make(map[string]*models.User, len(s.users)),
		order:    append([]string(nil), s.order...),
	}
	for k, v := range s.profiles {
		c.profiles[k] = copyProfile(v)
	}
	for k, v := range s.matches {
		c.matches[k] = copyMatch(v)
	}
	for k, v := range s.users {
		u := *v
		c.users[k] = &u
	}
	return c
}

func (s *Memory) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("profile", id)
	}
	return copyProfile(p), nil
}

func (s *Memory) GetProfiles(ctx context.Context, ids []string) ([]*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Profile, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.profiles[id]; ok {
			out = append(out, copyProfile(p))
		}
	}
	return out, nil
}

func (s *Memory) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Profile, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copyProfile(s.profiles[id]))
	}
	return out, nil
}

func (s *Memory) CreateProfile(ctx context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[p.ID]; exists {
		return apperrors.NewValidationError("id", "profile already exists")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.profiles[p.ID] = copyProfile(p)
	s.order = append(s.order, p.ID)
	return nil
}

func (s *Memory) UpdateProfile(ctx context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[p.ID]; !ok {
		return apperrors.NewNotFoundError("profile", p.ID)
	}
	s.profiles[p.ID] = copyProfile(p)
	return nil
}

func (s *Memory) SaveProfileDerived(ctx context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.profiles[p.ID]
	if !ok {
		return apperrors.NewNotFoundError("profile", p.ID)
	}
	cur.Summary = p.Summary
	cur.IntentTags = append([]string(nil), p.IntentTags...)
	cur.DealReadiness = p.DealReadiness
	cur.Embedding = append([]float32(nil), p.Embedding...)
	return nil
}

func (s *Memory) OrganizerProfileIDs(ctx context.Context, emails []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = models.NormalizeTag(e); e != "" {
			wanted[e] = struct{}{}
		}
	}

	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, u := range s.users {
		if u.IsAdmin && u.AttendeeID != "" {
			add(u.AttendeeID)
		}
	}
	for _, id := range s.order {
		if _, ok := wanted[models.NormalizeTag(s.profiles[id].Email)]; ok {
			add(id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Memory) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("match", id)
	}
	return copyMatch(m), nil
}

func (s *Memory) ListMatches(ctx context.Context) ([]*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Match, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, copyMatch(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Memory) ListMatchesForProfile(ctx context.Context, profileID string, includeHidden bool) ([]*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Match
	for _, m := range s.matches {
		if !m.Involves(profileID) || (m.HiddenByUser && !includeHidden) {
			continue
		}
		out = append(out, copyMatch(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OverallScore != out[j].OverallScore {
			return out[i].OverallScore > out[j].OverallScore
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Memory) FindMatchBetween(ctx context.Context, a, b string) (*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.matches {
		if m.SamePair(a, b) {
			return copyMatch(m), nil
		}
	}
	return nil, nil
}

func (s *Memory) InsertMatch(ctx context.Context, m *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.matches[m.ID]; exists {
		return apperrors.NewValidationError("id", "match already exists")
	}
	for _, existing := range s.matches {
		if existing.SamePair(m.AttendeeAID, m.AttendeeBID) {
			return ErrDuplicatePair
		}
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.matches[m.ID] = copyMatch(m)
	return nil
}

func (s *Memory) UpdateMatch(ctx context.Context, m *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.matches[m.ID]; !ok {
		return apperrors.NewNotFoundError("match", m.ID)
	}
	s.matches[m.ID] = copyMatch(m)
	return nil
}

func (s *Memory) DeleteAllMatches(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.matches))
	s.matches = make(map[string]*models.Match)
	return n, nil
}

func (s *Memory) DeleteMatchesForProfile(ctx context.Context, profileID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, m := range s.matches {
		if m.Involves(profileID) {
			delete(s.matches, id)
			n++
		}
	}
	return n, nil
}

func copyProfile(p *models.Profile) *models.Profile {
	c := *p
	c.Interests = append([]string(nil), p.Interests...)
	c.Seeking = append([]string(nil), p.Seeking...)
	c.NotLookingFor = append([]string(nil), p.NotLookingFor...)
	c.PreferredGeographies = append([]string(nil), p.PreferredGeographies...)
	c.IntentTags = append([]string(nil), p.IntentTags...)
	c.Embedding = append([]float32(nil), p.Embedding...)
	return &c
}

func copyMatch(m *models.Match) *models.Match {
	c := *m
	c.SharedContext = models.SharedContext{
		Sectors:     append([]string(nil), m.SharedContext.Sectors...),
		Synergies:   append([]string(nil), m.SharedContext.Synergies...),
		ActionItems: append([]string(nil), m.SharedContext.ActionItems...),
	}
	return &c
}
