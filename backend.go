package dirwatch

// rawAction is the vocabulary of the platform backends, before
// classification into client-visible event kinds.
type rawAction int

const (
	rawCreate rawAction = iota
	rawWrite
	rawRemove
	rawRenamedAway
	rawMetadata
	rawRootRemoved
)

// rawNotification is one low-level change record. Name is the entry name
// relative to the watched directory; it is empty for rawRootRemoved.
type rawNotification struct {
	Name   string
	Action rawAction
}

// platformBackend is the per-OS change notification source. The worker
// goroutine owns the backend exclusively: it drains Events and Errors and is
// the only caller of Close.
//
// The Events channel closing, a rawRootRemoved notification, or any value on
// Errors all mean the source is gone; the engine degrades to invalidation in
// every case.
type platformBackend interface {
	Events() <-chan rawNotification
	Errors() <-chan error
	Close() error
}
