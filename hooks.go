package asidecache

// Backend operation names passed to hooks and logs.
const (
	OpGet      = "get"
	OpSet      = "set"
	OpDel      = "del"
	OpFlushAll = "flush_all"
)

// Hooks lightweight callbacks for cache events.
// Implementations MUST be cheap and non-blocking; they run on the caller's
// goroutine or on a detached worker. Wrap slow ones with hooks/async.
type Hooks interface {
	// Get found a decodable entry.
	Hit(storageKey string)
	// Get found nothing; the wrapped call runs and its result is stored.
	Miss(storageKey string)

	// A backend read failed and the wrapped call ran directly.
	Bypass(op, storageKey string, err error)

	// An unreadable entry was deleted on read.
	// reason ∈ {"corrupt", "value_decode"}
	SelfHeal(storageKey, reason string)

	// A detached write failed. err is a *BackendError.
	DetachedFailed(op, storageKey string, err error)
	// A detached write was not queued (queue full or cache closed).
	DetachedDropped(op, storageKey string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Hit(string)                           {}
func (NopHooks) Miss(string)                          {}
func (NopHooks) Bypass(string, string, error)         {}
func (NopHooks) SelfHeal(string, string)              {}
func (NopHooks) DetachedFailed(string, string, error) {}
func (NopHooks) DetachedDropped(string, string)       {}
