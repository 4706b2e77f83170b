package store

import (
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory secret store, for testing
type MemoryStore struct {
	mu sync.RWMutex
	// versions holds every version of every secret, oldest first
	versions map[SecretIdentifier][]Secret
}

// NewMemoryStore creates an in-memory secret store
func NewMemoryStore() SecretStore {
	return &MemoryStore{
		versions: map[SecretIdentifier][]Secret{},
	}
}

// Create creates a secret in the store
func (s *MemoryStore) Create(id SecretIdentifier, value string) error {
	if err := id.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.versions[id]; ok {
		return &IdentifierAlreadyExistsError{Identifier: id}
	}
	s.versions[id] = []Secret{{Data: value, Meta: SecretMeta{Version: 0}}}
	return nil
}

// Read a secret from the store
func (s *MemoryStore) Read(id SecretIdentifier) (Secret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if versions, ok := s.versions[id]; ok {
		return versions[len(versions)-1], nil
	}
	return Secret{}, &IdentifierNotFoundError{Identifier: id}
}

// ReadVersion reads a version of a secret
func (s *MemoryStore) ReadVersion(id SecretIdentifier, version int) (Secret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions, ok := s.versions[id]
	if !ok {
		return Secret{}, &IdentifierNotFoundError{Identifier: id}
	}
	if version < 0 || version >= len(versions) {
		return Secret{}, &VersionNotFoundError{Identifier: id, Version: version}
	}
	return versions[version], nil
}

// Update appends a new version of a secret
func (s *MemoryStore) Update(id SecretIdentifier, value string) (Secret, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	versions, ok := s.versions[id]
	if !ok {
		return Secret{}, &IdentifierNotFoundError{Identifier: id}
	}
	secret := Secret{Data: value, Meta: SecretMeta{Version: len(versions)}}
	s.versions[id] = append(versions, secret)
	return secret, nil
}

// List gets all secret identifiers within a namespace
func (s *MemoryStore) List(env Environment, service string) ([]SecretIdentifier, error) {
	ids, err := s.ListAll(env)
	if err != nil {
		return []SecretIdentifier{}, err
	}
	results := []SecretIdentifier{}
	for _, id := range ids {
		if id.Service == service {
			results = append(results, id)
		}
	}
	return results, nil
}

// ListAll gets all secret identifiers within an environment
func (s *MemoryStore) ListAll(env Environment) ([]SecretIdentifier, error) {
	if !isValidEnvironmentInt(env) {
		return []SecretIdentifier{}, fmt.Errorf("env %d is invalid", env)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := []SecretIdentifier{}
	for id := range s.versions {
		if id.Environment == env {
			results = append(results, id)
		}
	}
	sort.Sort(ByIDString(results))
	return results, nil
}

// History gets the metadata of every version of a secret
func (s *MemoryStore) History(id SecretIdentifier) ([]SecretMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions, ok := s.versions[id]
	if !ok {
		return []SecretMeta{}, &IdentifierNotFoundError{Identifier: id}
	}
	metas := make([]SecretMeta, len(versions))
	for i, secret := range versions {
		metas[i] = secret.Meta
	}
	return metas, nil
}

// Delete deletes all versions of a secret
func (s *MemoryStore) Delete(id SecretIdentifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.versions[id]; !ok {
		return &IdentifierNotFoundError{Identifier: id}
	}
	delete(s.versions, id)
	return nil
}
