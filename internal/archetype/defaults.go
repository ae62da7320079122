package archetype

import (
	_ "embed"
	"fmt"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults returns the built-in archetype definitions.
func Defaults() []Archetype {
	defs, err := ParseDefinitions(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in archetypes: %v", err))
	}
	return defs
}
