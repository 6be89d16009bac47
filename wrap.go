package asidecache

import "context"

// Wrap1 returns fn with policy p applied, binding its argument to name.
//
//	find := Wrap1(users, PolicyGet, Binding{Key: "#id"}, "id", repo.Find)
func Wrap1[A, V any](s *Single[V], p Policy, b Binding, name string,
	fn func(context.Context, A) (V, error)) func(context.Context, A) (V, error) {
	return func(ctx context.Context, a A) (V, error) {
		return s.Do(ctx, p, b, []Arg{{Name: name, Value: a}}, func(ctx context.Context) (V, error) {
			return fn(ctx, a)
		})
	}
}

// Wrap2 is Wrap1 for two-argument functions.
func Wrap2[A1, A2, V any](s *Single[V], p Policy, b Binding, name1, name2 string,
	fn func(context.Context, A1, A2) (V, error)) func(context.Context, A1, A2) (V, error) {
	return func(ctx context.Context, a1 A1, a2 A2) (V, error) {
		args := []Arg{{Name: name1, Value: a1}, {Name: name2, Value: a2}}
		return s.Do(ctx, p, b, args, func(ctx context.Context) (V, error) {
			return fn(ctx, a1, a2)
		})
	}
}
