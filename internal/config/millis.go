package config

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Millis is a duration that host configurations write either as a number
// of milliseconds ({cooldown: 500}) or as a Go duration string
// ("500ms", "2s").
type Millis time.Duration

// Duration returns m as a time.Duration.
func (m Millis) Duration() time.Duration { return time.Duration(m) }

func (m Millis) String() string { return time.Duration(m).String() }

func (m *Millis) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("config: line %d: duration must be a number of milliseconds or a string", node.Line)
	}
	switch node.Tag {
	case "!!int", "!!float":
		ms, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return fmt.Errorf("config: line %d: %w", node.Line, err)
		}
		*m = Millis(ms * float64(time.Millisecond))
		return nil
	case "!!null":
		*m = 0
		return nil
	}
	d, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("config: line %d: %w", node.Line, err)
	}
	*m = Millis(d)
	return nil
}

// MarshalYAML writes the duration string form, which reads back unchanged.
func (m Millis) MarshalYAML() (any, error) { return m.String(), nil }
