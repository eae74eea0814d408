package settings

import (
	"context"
	"strings"

	"github.com/rwerner/sourcing-radar/pkg/logger"
)

// store is the subset of Repository the service reads through. Narrowed to an
// interface so tests can use a fake without Postgres.
type store interface {
	Get(ctx context.Context, key string) (*Setting, error)
}

// Service implements contracts.SettingsReader with fallback-to-default
// semantics: a missing or malformed setting yields the hard-coded default and
// a warning, never an error.
type Service struct {
	store  store
	logger *logger.Logger
}

// NewService creates a settings service.
func NewService(store store, log *logger.Logger) *Service {
	return &Service{store: store, logger: log.Component("settings")}
}

// Int returns the integer value for key, falling back to the default.
func (s *Service) Int(ctx context.Context, key string) int64 {
	setting, err := s.store.Get(ctx, key)
	if err != nil || setting.IntValue == nil {
		if err != nil && err != ErrNoRows {
			s.logger.WithError(err).WithField("key", key).Warn("Setting read failed, using default")
		}
		return DefaultInt(key)
	}
	return *setting.IntValue
}

// Text returns the text value for key, falling back to the default.
func (s *Service) Text(ctx context.Context, key string) string {
	setting, err := s.store.Get(ctx, key)
	if err != nil || setting.TextValue == nil {
		if err != nil && err != ErrNoRows {
			s.logger.WithError(err).WithField("key", key).Warn("Setting read failed, using default")
		}
		return DefaultText(key)
	}
	return *setting.TextValue
}

// Strings returns a comma-separated text value split into trimmed, non-empty
// entries.
func (s *Service) Strings(ctx context.Context, key string) []string {
	raw := s.Text(ctx, key)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
