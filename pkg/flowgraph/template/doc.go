/*
Package template renders ${var} placeholders in prompts and settings files.

# Basic Usage

	out := template.Expand("Summarize for ${audience}", map[string]any{"audience": "engineers"})
	// out: "Summarize for engineers"

Values are formatted for reading by a model:

  - strings are inserted as-is
  - []string values are joined with newlines
  - numbers and booleans use their Go formatting
  - nil becomes the empty string
  - anything else (maps, slices, structs) is encoded as JSON

# Missing Variables

By default a placeholder without a value is kept as-is. Agents render with
MissingError so a prompt never reaches a model with a dangling placeholder:

	exp := template.NewExpander(template.WithMissingAction(template.MissingError))
	_, err := exp.Expand("Review ${articles}", nil)
	// err: undefined variable: articles

# Functions

Functions supply values computed at render time. A variable in the vars map
shadows a function of the same name:

	exp := template.NewExpander(template.WithFuncs(template.Funcs{
	    "datetime": func() string { return time.Now().Format(time.DateTime) },
	}))

# Dollar Style

$var expansion is off by default because prompts routinely contain prices
and shell snippets. Settings files enable it with WithDollarStyle(true).

Expander is safe for concurrent use after construction.
*/
package template
