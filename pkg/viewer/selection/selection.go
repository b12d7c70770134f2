// Package selection tracks which plant the viewer is showing and the
// back-stack of plants shown before it.
//
// The controller has two states, Idle and Showing(id). Marker clicks and list
// selections both enter Showing; they differ only when the id is already
// shown: a marker re-click closes the panel, a list re-select keeps it open.
// Clear never records history, and Back pops without pushing, so Back is a
// pure undo of the last navigation.
package selection

// Source identifies where a selection came from.
type Source int

const (
	FromMarker Source = iota
	FromList
)

func (s Source) String() string {
	if s == FromList {
		return "list"
	}
	return "marker"
}

// Controller is the selection state machine. The zero value is Idle with an
// empty history. It is not safe for concurrent use.
type Controller struct {
	current string
	showing bool
	history []string
}

// New returns an idle controller.
func New() *Controller { return &Controller{} }

// Current returns the shown id, or false when idle.
func (c *Controller) Current() (string, bool) {
	return c.current, c.showing
}

// History returns a copy of the back-stack, most recent last.
func (c *Controller) History() []string {
	out := make([]string, len(c.history))
	copy(out, c.history)
	return out
}

// CanGoBack reports whether Back would change state.
func (c *Controller) CanGoBack() bool { return len(c.history) > 0 }

// Select shows id. It returns true when the controller entered Showing(id)
// from another state, which is when callers should recentre on the marker.
func (c *Controller) Select(id string, src Source) bool {
	if c.showing && c.current == id {
		if src == FromMarker {
			c.Clear()
		}
		return false
	}
	if c.showing {
		c.history = append(c.history, c.current)
	}
	c.current, c.showing = id, true
	return true
}

// Clear returns to Idle without touching history. Clearing while idle is a
// no-op.
func (c *Controller) Clear() {
	c.current, c.showing = "", false
}

// Back shows the most recently left id and drops it from history. The id
// being left is not pushed. ok is false when history is empty.
func (c *Controller) Back() (id string, ok bool) {
	n := len(c.history)
	if n == 0 {
		return "", false
	}
	id = c.history[n-1]
	c.history = c.history[:n-1]
	c.current, c.showing = id, true
	return id, true
}

// Retain drops every id for which keep reports false, from both the shown
// id and the history. Entries that end up next to an equal one collapse so
// Back never lands on the id it leaves.
func (c *Controller) Retain(keep func(id string) bool) {
	if c.showing && !keep(c.current) {
		c.Clear()
	}
	kept := c.history[:0]
	for _, id := range c.history {
		if !keep(id) {
			continue
		}
		if n := len(kept); n > 0 && kept[n-1] == id {
			continue
		}
		kept = append(kept, id)
	}
	if n := len(kept); n > 0 && c.showing && kept[n-1] == c.current {
		kept = kept[:n-1]
	}
	c.history = kept
}
