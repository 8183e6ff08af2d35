// Package profiles registers all instrument profiles with the core registry.
// Import this package to ensure all profiles are registered.
package profiles

// Profile keys.
const (
	Megohmmeter = "megohmmeter"
	Torque      = "torque"
)
