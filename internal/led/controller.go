// Package led drives a board status LED from capture events.
package led

// Patterns understood by every Controller.
const (
	PatternSolid = "solid"
	PatternBlink = "blink"
)

// Controller abstracts LED hardware control across boards.
type Controller interface {
	// Set switches ledType on or off. pattern is PatternSolid,
	// PatternBlink or a raw trigger name; empty leaves the trigger alone.
	Set(ledType string, enabled bool, pattern string) error

	// Available returns the LED types this board has.
	Available() []string

	// Patterns returns the patterns this controller supports.
	Patterns() []string
}
