package apl

import (
	"context"
	"fmt"
)

// StaticStore serves one fixed credential set. Used in development and tests.
type StaticStore struct {
	data AuthData
}

var _ CredentialStore = (*StaticStore)(nil)

// NewStaticStore creates a store that always answers with data
func NewStaticStore(data AuthData) *StaticStore {
	return &StaticStore{data: data}
}

func (s *StaticStore) Get(_ context.Context, apiURL string) (*AuthData, error) {
	if s.data.APIURL != "" && s.data.APIURL != apiURL {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, apiURL)
	}
	data := s.data
	data.APIURL = apiURL
	return &data, nil
}

func (s *StaticStore) Set(_ context.Context, data AuthData) error {
	if err := data.Validate(); err != nil {
		return err
	}
	s.data = data
	return nil
}

func (s *StaticStore) Delete(_ context.Context, apiURL string) error {
	if s.data.APIURL == apiURL {
		s.data = AuthData{}
	}
	return nil
}

func (s *StaticStore) All(_ context.Context) ([]AuthData, error) {
	if s.data.Token == "" {
		return nil, nil
	}
	return []AuthData{s.data}, nil
}
