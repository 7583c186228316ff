package model

// Theme names accepted in settings
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// DefaultReminderLeadMinutes is the lead time used when a user asks for the default reminder
const DefaultReminderLeadMinutes = 15

// Settings is the persisted user preference record
type Settings struct {
	Theme                      string `json:"theme" yaml:"theme"`
	SoundEnabled               bool   `json:"soundEnabled" yaml:"soundEnabled"`
	DefaultReminderLeadMinutes int    `json:"defaultReminderLeadMinutes" yaml:"defaultReminderLeadMinutes"`
}

// DefaultSettings returns the record written when storage is first initialized
func DefaultSettings() Settings {
	return Settings{
		Theme:                      ThemeLight,
		SoundEnabled:               true,
		DefaultReminderLeadMinutes: DefaultReminderLeadMinutes,
	}
}

// Normalize replaces out-of-range values with defaults
func (s *Settings) Normalize() {
	if s.Theme != ThemeLight && s.Theme != ThemeDark {
		s.Theme = ThemeLight
	}
	if s.DefaultReminderLeadMinutes <= 0 {
		s.DefaultReminderLeadMinutes = DefaultReminderLeadMinutes
	}
}
