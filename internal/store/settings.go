package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dori/flowdo/internal/model"
)

// LoadSettings reads the settings record, falling back to defaults when it
// has never been written
func (s *Store) LoadSettings(ctx context.Context) (model.Settings, error) {
	raw, ok, err := s.backend.GetValue(ctx, KeySettings)
	if err != nil {
		return model.DefaultSettings(), fmt.Errorf("read settings: %w", err)
	}
	if !ok {
		return model.DefaultSettings(), nil
	}

	settings := model.DefaultSettings()
	if err := json.Unmarshal(raw, &settings); err != nil {
		return model.DefaultSettings(), fmt.Errorf("decode settings: %w", err)
	}
	settings.Normalize()
	return settings, nil
}

// SaveSettings persists the settings record
func (s *Store) SaveSettings(ctx context.Context, settings model.Settings) error {
	settings.Normalize()
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.backend.SetValues(ctx, map[string][]byte{KeySettings: raw}); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
