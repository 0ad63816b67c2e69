// Package registry provides a generic thread-safe registry for values
// indexed by key.
//
// It backs factory lookups such as the model provider table:
//
//	factories := registry.New[Provider, Factory]()
//	factories.Register("ollama", newOllama)
//
//	factory, err := factories.Lookup(cfg.Provider)
package registry
