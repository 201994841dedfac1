package building

import (
	"github.com/banshee-data/lidarclass/internal/cloud"
	"github.com/banshee-data/lidarclass/internal/monitoring"
)

// Cleaner strips extra dimensions from a tile, keeping the configured
// keep-list plus the core coordinate and classification dimensions. It backs
// the standalone cleaning task and the optional final pipeline step.
type Cleaner struct {
	// Keep lists the extra dimensions to preserve besides the core ones.
	Keep []string
	Dims Dims

	logf func(format string, v ...interface{})
}

func (c *Cleaner) log(format string, args ...interface{}) {
	if c.logf == nil {
		c.logf = monitoring.Stage("cleaning")
	}
	c.logf(format, args...)
}

// core returns the dimensions that are never stripped.
func (c *Cleaner) core() map[string]bool {
	d := c.Dims
	keep := map[string]bool{
		d.X: true, d.Y: true, d.Z: true,
		d.Classification: true,
	}
	for _, k := range c.Keep {
		keep[k] = true
	}
	return keep
}

// Run removes every dimension not on the keep-list.
func (c *Cleaner) Run(s *cloud.Store) error {
	keep := c.core()
	removed := 0
	for _, name := range s.DimensionNames() {
		if !keep[name] {
			s.RemoveDimension(name)
			removed++
		}
	}
	c.log("removed %d extra dimensions", removed)
	return nil
}
