package credential

// BuildDefaultCached implements §4.1's build_default_cached operation: when
// location is non-nil, build builds directly from it (uncached). When
// location is nil, the default location is resolved once behind cache and
// reused by every caller with the same cache and default.
func BuildDefaultCached[T any](
	location *Location,
	defaultLocation Location,
	providerType string,
	cache *DefaultCache[T],
	build func(Location, string) (T, error),
) (T, error) {
	if location != nil {
		return build(*location, providerType)
	}
	return cache.GetOrInit(func() (T, error) {
		return build(defaultLocation, providerType)
	})
}
