package dirwatch

// classifier folds a run of raw backend notifications into one delivered
// batch. Repeated (name, kind) pairs are coalesced; metadata-only touches
// are dropped, since the underlying content did not change. Backends that
// cannot separate a metadata touch from a real write surface it as rawWrite
// instead, which is why clients must tolerate an occasional duplicate
// Modified event.
type classifier struct {
	events    []Event
	seen      map[Event]struct{}
	coalesced int
	rootGone  bool
}

func newClassifier() *classifier {
	return &classifier{seen: make(map[Event]struct{})}
}

// add maps one raw notification into the batch. It returns true once the
// watched directory itself is gone; the caller must stop feeding the batch
// and take the source-removed path.
func (c *classifier) add(raw rawNotification) bool {
	if c.rootGone {
		return true
	}

	var kind EventKind
	switch raw.Action {
	case rawCreate, rawWrite:
		kind = Modified
	case rawRemove, rawRenamedAway:
		kind = Removed
	case rawMetadata:
		return false
	case rawRootRemoved:
		c.rootGone = true
		return true
	default:
		return false
	}

	event := Event{Name: raw.Name, Kind: kind}
	if _, dup := c.seen[event]; dup {
		c.coalesced++
		return false
	}
	c.seen[event] = struct{}{}
	c.events = append(c.events, event)
	return false
}
