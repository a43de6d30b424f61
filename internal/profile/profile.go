// Package profile manages the per-device display name, avatar and dark mode
// preference. State changes only through the named setters on Service.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/onnwee/golocal/internal/prefs"
)

// Display name constraints.
const (
	DefaultDisplayName   = "Usuário"
	MaxDisplayNameLength = 24
)

// Validation errors.
var (
	ErrDisplayNameTooLong = fmt.Errorf("display name must not exceed %d characters", MaxDisplayNameLength)
	ErrEmptyAvatar        = errors.New("avatar reference is required")
)

// Profile is the device's UI preference state.
type Profile struct {
	DisplayName string  `json:"display_name"`
	AvatarRef   *string `json:"avatar_ref"`
	DarkMode    bool    `json:"dark_mode"`
	Theme       Theme   `json:"theme"`

	// Degraded is set when one or more fields fell back to defaults because
	// the store could not be read.
	Degraded bool `json:"degraded,omitempty"`
}

// Default returns the profile of a device that never changed anything.
func Default() Profile {
	return Profile{
		DisplayName: DefaultDisplayName,
		Theme:       ThemeFor(false),
	}
}

// Service reads and writes profile fields through a preference store.
type Service struct {
	store  prefs.Store
	logger *slog.Logger
}

// NewService creates a profile service. logger may be nil.
func NewService(store prefs.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Load reads every field. Fields that cannot be read fall back to their
// defaults and mark the profile as degraded.
func (s *Service) Load(ctx context.Context, owner string) Profile {
	p := Default()

	if name, ok := s.read(ctx, owner, prefs.KeyUserName, &p); ok && strings.TrimSpace(name) != "" {
		p.DisplayName = name
	}
	if photo, ok := s.read(ctx, owner, prefs.KeyUserPhoto, &p); ok && photo != "" {
		p.AvatarRef = &photo
	}
	if raw, ok := s.read(ctx, owner, prefs.KeyDarkMode, &p); ok {
		dark, err := strconv.ParseBool(raw)
		if err != nil {
			s.logger.WarnContext(ctx, "dark mode preference unparseable, using default", "owner", owner, "value", raw)
		}
		p.DarkMode = dark
	}
	p.Theme = ThemeFor(p.DarkMode)
	return p
}

func (s *Service) read(ctx context.Context, owner string, key prefs.Key, p *Profile) (string, bool) {
	v, found, err := s.store.Get(ctx, owner, key)
	if err != nil {
		s.logger.WarnContext(ctx, "profile field unavailable, using default", "owner", owner, "key", key, "error", err)
		p.Degraded = true
		return "", false
	}
	return v, found
}

// NormalizeDisplayName trims name and applies the default for blank input.
// Names longer than MaxDisplayNameLength characters are rejected.
func NormalizeDisplayName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return DefaultDisplayName, nil
	}
	if utf8.RuneCountInString(trimmed) > MaxDisplayNameLength {
		return "", ErrDisplayNameTooLong
	}
	return trimmed, nil
}

// SetDisplayName stores a normalized display name and returns the new profile.
func (s *Service) SetDisplayName(ctx context.Context, owner, name string) (Profile, error) {
	normalized, err := NormalizeDisplayName(name)
	if err != nil {
		return Profile{}, err
	}
	if err := s.write(ctx, owner, prefs.KeyUserName, normalized); err != nil {
		return Profile{}, err
	}
	return s.Load(ctx, owner), nil
}

// SetAvatar stores an opaque avatar reference (typically an image URI).
func (s *Service) SetAvatar(ctx context.Context, owner, ref string) (Profile, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Profile{}, ErrEmptyAvatar
	}
	if err := s.write(ctx, owner, prefs.KeyUserPhoto, ref); err != nil {
		return Profile{}, err
	}
	return s.Load(ctx, owner), nil
}

// ClearAvatar removes the avatar reference.
func (s *Service) ClearAvatar(ctx context.Context, owner string) (Profile, error) {
	if err := s.write(ctx, owner, prefs.KeyUserPhoto, ""); err != nil {
		return Profile{}, err
	}
	return s.Load(ctx, owner), nil
}

// SetDarkMode stores the dark mode flag.
func (s *Service) SetDarkMode(ctx context.Context, owner string, enabled bool) (Profile, error) {
	if err := s.write(ctx, owner, prefs.KeyDarkMode, strconv.FormatBool(enabled)); err != nil {
		return Profile{}, err
	}
	return s.Load(ctx, owner), nil
}

func (s *Service) write(ctx context.Context, owner string, key prefs.Key, value string) error {
	if err := s.store.Set(ctx, owner, key, value); err != nil {
		s.logger.ErrorContext(ctx, "profile update not persisted", "owner", owner, "key", key, "error", err)
		return &prefs.PersistenceError{Op: "write", Key: key, Err: err}
	}
	return nil
}
