package api

import "fmt"

// Validate checks the invocation for errors that must stop a run before
// anything executes.
func (inv *Invocation) Validate() error {
	if len(inv.Templates) == 0 {
		return fmt.Errorf("need at least one template")
	}
	if !validDialects[inv.Dialect] {
		return fmt.Errorf("unknown dialect %q", inv.Dialect)
	}
	if inv.ConfigRef == "" {
		return fmt.Errorf("config reference is required")
	}
	return nil
}

// Validate checks the connection parameters loaded from a config file.
func (c *Connection) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
}
