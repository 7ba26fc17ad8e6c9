// Package buildinfo holds build-time metadata injected by the linker.
package buildinfo

import "fmt"

// UnknownValue is reported for metadata that was not set at build time
const UnknownValue = "unknown"

// Context contains build-time metadata that is not user-configurable
type Context struct {
	version   string
	buildDate string
}

// NewContext creates a build context. Empty values report as UnknownValue.
func NewContext(version, buildDate string) *Context {
	return &Context{version: version, buildDate: buildDate}
}

// Version returns the build version
func (c *Context) Version() string {
	if c == nil || c.version == "" {
		return UnknownValue
	}
	return c.version
}

// BuildDate returns the build date
func (c *Context) BuildDate() string {
	if c == nil || c.buildDate == "" {
		return UnknownValue
	}
	return c.buildDate
}

// Release returns the release identifier used for error telemetry
func (c *Context) Release() string {
	return fmt.Sprintf("ppewatch@%s", c.Version())
}

// String formats the context for version output
func (c *Context) String() string {
	return fmt.Sprintf("ppewatch %s (built %s)", c.Version(), c.BuildDate())
}
