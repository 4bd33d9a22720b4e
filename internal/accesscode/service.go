// Package accesscode manages the shared-secret codes that gate bill
// downloads. Codes live in the settings table as a key-to-JSON-array plus one
// active code, matching the original deployment's persisted layout.
package accesscode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/bher20/ubill/internal/storage"
)

const (
	codesKey      = "access_codes"
	activeCodeKey = "active_access_code"

	codeLength   = 8
	initialCodes = 10
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ErrInvalidCode is returned when a download is attempted with a code that is
// neither the active code nor a member of the stored set.
var ErrInvalidCode = errors.New("invalid access code")

// Service is an explicit access-code store over an injected persistence
// backend. There is no process-wide singleton; construct one per wiring.
type Service struct {
	store storage.Storage

	mu  sync.Mutex
	rng *rand.Rand
}

func NewService(st storage.Storage) *Service {
	return &Service{
		store: st,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewServiceWithSource pins the random source, for deterministic tests.
func NewServiceWithSource(st storage.Storage, rng *rand.Rand) *Service {
	return &Service{store: st, rng: rng}
}

// Init loads the persisted code set, seeding a fresh set of ten codes with
// the first one active when none exists yet.
func (s *Service) Init(ctx context.Context) error {
	raw, err := s.store.GetSetting(ctx, codesKey)
	if err != nil {
		return fmt.Errorf("load access codes: %w", err)
	}
	if raw != "" {
		var codes []string
		if err := json.Unmarshal([]byte(raw), &codes); err == nil && len(codes) > 0 {
			active, err := s.store.GetSetting(ctx, activeCodeKey)
			if err != nil {
				return fmt.Errorf("load active code: %w", err)
			}
			if active == "" {
				return s.store.SetSetting(ctx, activeCodeKey, codes[0])
			}
			return nil
		}
		// Unparseable persisted state falls through to a reseed.
	}

	_, err = s.Regenerate(ctx)
	return err
}

// Validate reports whether code grants a download. Exact and case-sensitive:
// the code must equal the active code or be a member of the stored set. The
// empty string is always invalid.
func (s *Service) Validate(ctx context.Context, code string) (bool, error) {
	if code == "" {
		return false, nil
	}

	active, err := s.store.GetSetting(ctx, activeCodeKey)
	if err != nil {
		return false, err
	}
	if code == active {
		return true, nil
	}

	codes, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	for _, c := range codes {
		if c == code {
			return true, nil
		}
	}
	return false, nil
}

// List returns the stored code set.
func (s *Service) List(ctx context.Context) ([]string, error) {
	raw, err := s.store.GetSetting(ctx, codesKey)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var codes []string
	if err := json.Unmarshal([]byte(raw), &codes); err != nil {
		return nil, fmt.Errorf("decode access codes: %w", err)
	}
	return codes, nil
}

// Active returns the currently active code.
func (s *Service) Active(ctx context.Context) (string, error) {
	return s.store.GetSetting(ctx, activeCodeKey)
}

// SetActive marks a code as the active one.
func (s *Service) SetActive(ctx context.Context, code string) error {
	if code == "" {
		return errors.New("active code must not be empty")
	}
	return s.store.SetSetting(ctx, activeCodeKey, code)
}

// Add appends a code to the set. Empty codes and duplicates are no-ops.
func (s *Service) Add(ctx context.Context, code string) error {
	if code == "" {
		return nil
	}
	codes, err := s.List(ctx)
	if err != nil {
		return err
	}
	for _, c := range codes {
		if c == code {
			return nil
		}
	}
	return s.saveCodes(ctx, append(codes, code))
}

// Regenerate replaces the whole set with ten fresh codes, the first of which
// becomes active. All previously issued codes stop working.
func (s *Service) Regenerate(ctx context.Context) ([]string, error) {
	codes := make([]string, initialCodes)
	for i := range codes {
		codes[i] = s.GenerateCode()
	}
	if err := s.saveCodes(ctx, codes); err != nil {
		return nil, err
	}
	if err := s.store.SetSetting(ctx, activeCodeKey, codes[0]); err != nil {
		return nil, err
	}
	return codes, nil
}

// GenerateCode draws a random 8-character uppercase alphanumeric code.
// Uniqueness is best-effort, as with bill numbers.
func (s *Service) GenerateCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[s.rng.Intn(len(codeAlphabet))]
	}
	return string(b)
}

func (s *Service) saveCodes(ctx context.Context, codes []string) error {
	raw, err := json.Marshal(codes)
	if err != nil {
		return err
	}
	return s.store.SetSetting(ctx, codesKey, string(raw))
}
