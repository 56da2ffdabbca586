// Package buildinfo contains build-time metadata and the per-invocation run ID
package buildinfo

import (
	"fmt"

	"github.com/google/uuid"
)

// UnknownValue is reported for metadata that was not injected at build time
const UnknownValue = "unknown"

// BuildInfo provides an interface for accessing build-time metadata.
type BuildInfo interface {
	GetVersion() string
	GetBuildDate() string
	GetRunID() string
}

// Context contains build-time metadata that is not user-configurable.
type Context struct {
	// Version holds the Git version tag from build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string

	// RunID identifies one invocation; it is attached to logs as trace_id
	RunID string
}

// NewContext creates a Context with a fresh random run ID.
func NewContext(version, buildDate string) *Context {
	return &Context{
		Version:   version,
		BuildDate: buildDate,
		RunID:     uuid.NewString(),
	}
}

func valueOrUnknown(v string) string {
	if v == "" {
		return UnknownValue
	}
	return v
}

// GetVersion implements BuildInfo.GetVersion
func (c *Context) GetVersion() string {
	if c == nil {
		return UnknownValue
	}
	return valueOrUnknown(c.Version)
}

// GetBuildDate implements BuildInfo.GetBuildDate
func (c *Context) GetBuildDate() string {
	if c == nil {
		return UnknownValue
	}
	return valueOrUnknown(c.BuildDate)
}

// GetRunID implements BuildInfo.GetRunID
func (c *Context) GetRunID() string {
	if c == nil {
		return UnknownValue
	}
	return valueOrUnknown(c.RunID)
}

// UserAgent returns the User-Agent sent with API requests.
func (c *Context) UserAgent() string {
	return fmt.Sprintf("bwpull/%s", c.GetVersion())
}
