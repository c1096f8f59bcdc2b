package model

// AIProvider selects the classification backend.
type AIProvider string

const (
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
	AIProviderGemini    AIProvider = "gemini"
)

// Valid reports whether p is one of the supported providers.
func (p AIProvider) Valid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	}
	return false
}

// AIConfig controls message classification.
type AIConfig struct {
	Enabled  bool       `json:"enabled"`
	Provider AIProvider `json:"provider"`
	APIKey   string     `json:"api_key"`

	// APIEndpoint and Model override the provider defaults when set.
	APIEndpoint string `json:"api_endpoint,omitempty"`
	Model       string `json:"model,omitempty"`

	// AutoDelete drops promotional messages before they are stored.
	AutoDelete bool `json:"auto_delete"`
}

// Theme is the display theme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark || t == ThemeSystem
}

// Settings is the process-wide, persisted user preference set.
type Settings struct {
	Notifications bool      `json:"notifications"`
	AIConfig      *AIConfig `json:"ai_config,omitempty"`
	Theme         Theme     `json:"theme"`
}

// DefaultSettings returns the settings used when none are stored.
func DefaultSettings() Settings {
	return Settings{
		Notifications: true,
		Theme:         ThemeSystem,
	}
}

// ClassificationEnabled reports whether an AI config is present and
// switched on.
func (s Settings) ClassificationEnabled() bool {
	return s.AIConfig != nil && s.AIConfig.Enabled
}
