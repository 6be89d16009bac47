// Package asidecache puts a cache-aside layer in front of ordinary Go calls.
//
// A call site declares a Binding (key template, optional args hash, result
// shape, TTL) and a policy; the cache resolves the key from the call's named
// arguments and decides whether the wrapped call runs at all:
//
//	Get       hit => cached value, wrapped call skipped
//	          miss => call, then store the result in the background
//	Add       call, then store in the background
//	Update    delete in the background, call, then store in the background
//	Evict     delete in the background, then call
//	FlushAll  flush the backend in the background, then call
//
// The caller never waits on a write and never sees a backend error: a failing
// read degrades to calling through, a failing write is logged and dropped.
// Writes run detached from the caller's context so cancelling a request does
// not cancel the write it triggered.
//
// Storage layout:
//
//	<namespace>:<key>   ASDC-framed payload (single value or list)
//
// Example:
//
//	c, _ := asidecache.New(asidecache.Options{Backend: memory.New(memory.Config{})})
//	users := asidecache.NewSingle[User](c, codec.JSON[User]{})
//	get := asidecache.Wrap1(users, asidecache.PolicyGet,
//	    asidecache.Binding{Key: "'user:' + #id"}, "id", repo.FindUser)
//	u, err := get(ctx, "42")
package asidecache
