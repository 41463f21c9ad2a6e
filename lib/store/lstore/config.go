package lstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/sysprop/lib/prop/area"
	"github.com/ValentinKolb/sysprop/lib/prop/contexts"
)

// DefaultPath is the property directory of a live system.
const DefaultPath = "/dev/__properties__"

// Config holds the parameters of a SystemProperties instance.
type Config struct {
	// Path is the property directory, or a legacy single area file.
	Path string
	// AreaSize is the size of areas created by AreaInit.
	AreaSize int
	// ContextFiles overrides the property_contexts files used in split mode.
	ContextFiles []string
	// Serialize makes AreaInit compile the contexts into an index file.
	Serialize bool
	// Writable maps existing areas read-write, allowing Add/Update/Delete without AreaInit.
	Writable bool
	// RequireRootOwner rejects area files not owned by root or writable by others.
	RequireRootOwner bool
	// WriterLock serialises writers across processes with a lock on the area file.
	WriterLock bool
	// LockTimeout bounds the wait for the writer lock.
	LockTimeout time.Duration
	// PruneOnDelete detaches trie nodes left without properties by Delete.
	PruneOnDelete bool
	// PersistDir stores persist.* properties on disk when set.
	PersistDir string
}

// DefaultConfig returns the configuration for reading the properties of the running system.
func DefaultConfig() Config {
	return Config{
		Path:        DefaultPath,
		AreaSize:    area.DefaultSize,
		LockTimeout: 5 * time.Second,
	}
}

func (c *Config) contextOptions() contexts.Options {
	return contexts.Options{
		Writable:         c.Writable,
		RequireRootOwner: c.RequireRootOwner,
		AreaSize:         c.AreaSize,
		ContextFiles:     c.ContextFiles,
		Serialize:        c.Serialize,
	}
}

// String returns a formatted string representation of the configuration
func (c *Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Property Areas")
	addField("Path", c.Path)
	addField("Area Size", fmt.Sprintf("%d bytes", c.AreaSize))
	if len(c.ContextFiles) > 0 {
		addField("Context Files", strings.Join(c.ContextFiles, ", "))
	}
	addField("Serialize Contexts", fmt.Sprintf("%t", c.Serialize))

	addSection("Access")
	addField("Writable", fmt.Sprintf("%t", c.Writable))
	addField("Require Root Owner", fmt.Sprintf("%t", c.RequireRootOwner))
	addField("Prune On Delete", fmt.Sprintf("%t", c.PruneOnDelete))

	addSection("Writer Lock")
	addField("Enabled", fmt.Sprintf("%t", c.WriterLock))
	if c.WriterLock {
		addField("Timeout", c.LockTimeout.String())
	}

	if c.PersistDir != "" {
		addSection("Persistence")
		addField("Directory", c.PersistDir)
	}
	return sb.String()
}
