package template

// MissingAction specifies how to handle missing variables.
type MissingAction int

const (
	// MissingKeep keeps the placeholder as-is. This is the default.
	MissingKeep MissingAction = iota

	// MissingEmpty replaces the placeholder with an empty string.
	MissingEmpty

	// MissingError reports an *UndefinedVariableError.
	MissingError
)

// Funcs maps a placeholder name to a function computing its value.
type Funcs map[string]func() string

// Option configures an Expander.
type Option func(*Expander)

// WithMissingAction sets how missing variables are handled.
func WithMissingAction(action MissingAction) Option {
	return func(e *Expander) {
		e.missingAction = action
	}
}

// WithDollarStyle enables or disables $var expansion. Default: disabled.
func WithDollarStyle(enabled bool) Option {
	return func(e *Expander) {
		e.dollarStyle = enabled
	}
}

// WithFuncs registers render-time functions. Later calls add to earlier ones.
func WithFuncs(funcs Funcs) Option {
	return func(e *Expander) {
		if e.funcs == nil {
			e.funcs = make(Funcs, len(funcs))
		}
		for name, fn := range funcs {
			e.funcs[name] = fn
		}
	}
}
