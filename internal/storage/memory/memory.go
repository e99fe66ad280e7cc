// Package memory is a mutex-guarded in-process Store. It backs the
// handler tests and the STORAGE_DRIVER=memory mode; nothing survives a
// restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"studentrecords/internal/model"
	"studentrecords/internal/storage"
)

type Store struct {
	mu         sync.RWMutex
	identities map[string]model.Identity // by identity id
	profiles   map[string]model.Profile  // by profile id
	emails     map[string]string         // email -> identity id
	nextSeq    int64
}

func New() *Store {
	return &Store{
		identities: make(map[string]model.Identity),
		profiles:   make(map[string]model.Profile),
		emails:     make(map[string]string),
	}
}

func (s *Store) CreateIdentity(_ context.Context, identity model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.emails[identity.Email]; taken {
		return storage.ErrDuplicateEmail
	}
	s.identities[identity.ID] = identity
	s.emails[identity.Email] = identity.ID
	return nil
}

func (s *Store) CreateStudent(_ context.Context, identity model.Identity, profile model.Profile) (model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.emails[identity.Email]; taken {
		return model.Profile{}, storage.ErrDuplicateEmail
	}
	s.nextSeq++
	profile.Seq = s.nextSeq
	s.identities[identity.ID] = identity
	s.emails[identity.Email] = identity.ID
	s.profiles[profile.ID] = profile
	return profile, nil
}

func (s *Store) GetIdentityByEmail(_ context.Context, email string) (model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return model.Identity{}, storage.ErrNotFound
	}
	return s.identities[id], nil
}

func (s *Store) GetIdentityByID(_ context.Context, id string) (model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[id]
	if !ok {
		return model.Identity{}, storage.ErrNotFound
	}
	return identity, nil
}

func (s *Store) GetProfileByID(_ context.Context, id string) (model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[id]
	if !ok {
		return model.Profile{}, storage.ErrNotFound
	}
	return profile, nil
}

func (s *Store) GetProfileByIdentity(_ context.Context, identityID string) (model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, profile := range s.profiles {
		if profile.IdentityID == identityID {
			return profile, nil
		}
	}
	return model.Profile{}, storage.ErrNotFound
}

func (s *Store) ListProfiles(_ context.Context, limit, offset int) ([]model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]model.Profile, 0, len(s.profiles))
	for _, profile := range s.profiles {
		all = append(all, profile)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Seq > all[j].Seq })

	if offset >= len(all) {
		return []model.Profile{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	page := make([]model.Profile, end-offset)
	copy(page, all[offset:end])
	return page, nil
}

func (s *Store) CountProfiles(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles), nil
}

func (s *Store) UpdateProfile(_ context.Context, id string, update storage.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[id]
	if !ok {
		return storage.ErrNotFound
	}
	profile.Name = update.Name
	profile.Email = update.Email
	profile.Course = update.Course
	profile.EnrollmentDate = update.EnrollmentDate
	s.profiles[id] = profile
	return nil
}

func (s *Store) UpdateSelf(_ context.Context, identityID string, update storage.SelfUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.identities[identityID]
	if !ok {
		return storage.ErrNotFound
	}
	if update.Email != identity.Email {
		if _, taken := s.emails[update.Email]; taken {
			return storage.ErrDuplicateEmail
		}
		delete(s.emails, identity.Email)
		s.emails[update.Email] = identityID
	}
	identity.Name = update.Name
	identity.Email = update.Email
	s.identities[identityID] = identity

	for id, profile := range s.profiles {
		if profile.IdentityID == identityID {
			profile.Name = update.Name
			profile.Email = update.Email
			profile.Course = update.Course
			s.profiles[id] = profile
			break
		}
	}
	return nil
}

func (s *Store) DeleteStudent(_ context.Context, profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[profileID]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.profiles, profileID)
	if identity, ok := s.identities[profile.IdentityID]; ok {
		delete(s.emails, identity.Email)
		delete(s.identities, profile.IdentityID)
	}
	return nil
}
