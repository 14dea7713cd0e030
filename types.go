package formflow

import "github.com/reoring/formflow/i18n"

// UnknownPolicy controls how keys without a declared schema are handled by
// object shapes.
type UnknownPolicy int

const (
	UnknownPassthrough UnknownPolicy = iota // Keep free fields untouched (form default).
	UnknownStrip                            // Drop free fields from the parsed output.
	UnknownStrict                           // Reject free fields with an unknown_key issue.
)

// Config is threaded into schema construction. It replaces shared mutable
// message state: two kits built from different configs never interfere.
type Config struct {
	// Translator renders default constraint messages. Nil falls back to the
	// built-in English dictionary.
	Translator i18n.Translator
}

var defaultConfig = Config{Translator: i18n.Default()}

// DefaultConfig returns the process-wide fallback configuration. The returned
// value is a copy; there is no setter.
func DefaultConfig() Config { return defaultConfig }

// Message renders a message for code using the configured translator.
func (c Config) Message(code string, params map[string]any) string {
	tr := c.Translator
	if tr == nil {
		tr = i18n.Default()
	}
	return tr.Message(code, i18n.Stringify(params))
}
