package sync

// AliasRetention exposes the alias window to the external tests.
const AliasRetention = aliasRetention

// Tracked reports how many tasks have a sequence tracker and how many
// provisional ids still resolve.
func (c *Controller) Tracked() (trackers, aliases int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.latest), len(c.aliases)
}
