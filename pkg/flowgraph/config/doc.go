/*
Package config reads settings files into typed values.

A Config wraps the decoded document. Accessors take a dotted path and a
default, returning the default when the key is missing or has the wrong
type:

	cfg, err := config.FromFile("news.yaml")
	provider := cfg.String("llm.provider", "ollama")
	batch := cfg.Int("summarize.batch_size", 5)
	timeout := cfg.Duration("fetch.timeout", 30*time.Second)

Whole sections decode into structs with yaml tags:

	var llmCfg llm.Config
	err := cfg.Sub("llm").Decode(&llmCfg)

# Environment References

String values may reference environment variables as ${NAME} or $NAME.
FromFile, FromYAML and FromJSON expand them at load time. References to
unset variables are left as written. WithVars replaces the environment
as the source of values.

Config values are not modified after load; With returns a copy.
*/
package config
