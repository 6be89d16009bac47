package asidecache

const (
	defaultDetachWorkers = 4
	defaultDetachQueue   = 1024
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
