package domain

import "github.com/iconidentify/teardown/pkg/provider"

// SettingKey names one persisted setting.
type SettingKey string

// The stored keys are shared by all providers: switching provider keeps any
// custom model, base URL and key.
const (
	SettingProvider SettingKey = "provider"
	SettingBaseURL  SettingKey = "customBaseUrl"
	SettingAPIKey   SettingKey = "customApiKey"
	SettingModel    SettingKey = "customModel"
)

// String returns the string representation of the SettingKey.
func (k SettingKey) String() string {
	return string(k)
}

// Valid reports whether k is one of the fixed keys.
func (k SettingKey) Valid() bool {
	switch k {
	case SettingProvider, SettingBaseURL, SettingAPIKey, SettingModel:
		return true
	}
	return false
}

// SettingKeys returns all keys in a stable order.
func SettingKeys() []SettingKey {
	return []SettingKey{SettingProvider, SettingModel, SettingBaseURL, SettingAPIKey}
}

// Settings is a full provider selection. Empty fields in an override mean
// "not set" and leave the layer below untouched.
type Settings struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// Overlay returns s with every non-empty field of o applied on top.
func (s Settings) Overlay(o Settings) Settings {
	if o.Provider != "" {
		s.Provider = o.Provider
	}
	if o.Model != "" {
		s.Model = o.Model
	}
	if o.BaseURL != "" {
		s.BaseURL = o.BaseURL
	}
	if o.APIKey != "" {
		s.APIKey = o.APIKey
	}
	return s
}

// ProviderConfig converts s to a provider.Config.
func (s Settings) ProviderConfig() provider.Config {
	return provider.Config{
		Provider: provider.Name(s.Provider),
		Model:    s.Model,
		BaseURL:  s.BaseURL,
		APIKey:   s.APIKey,
	}
}

// ProviderDefaults are the built-in model and endpoint for one provider.
type ProviderDefaults struct {
	Model   string `json:"model"`
	BaseURL string `json:"base_url"`
}

// DefaultProvider is used when no provider has been stored.
const DefaultProvider = provider.OpenAI

var providerDefaults = map[provider.Name]ProviderDefaults{
	provider.Gemini: {
		Model:   "gemini-2.5-flash",
		BaseURL: "https://generativelanguage.googleapis.com",
	},
	provider.OpenAI: {
		Model:   "gpt-4o",
		BaseURL: "https://api.openai.com/v1",
	},
}

// DefaultsFor returns the built-in defaults for name.
func DefaultsFor(name provider.Name) (ProviderDefaults, bool) {
	d, ok := providerDefaults[name]
	return d, ok
}

// AllDefaults returns a copy of the defaults table.
func AllDefaults() map[provider.Name]ProviderDefaults {
	out := make(map[provider.Name]ProviderDefaults, len(providerDefaults))
	for k, v := range providerDefaults {
		out[k] = v
	}
	return out
}
