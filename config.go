package dbus

const (
	// DefaultMaxMessageSize is the default cap on a single message's
	// total length (header plus body), chosen well below the 2 GiB
	// protocol ceiling.
	DefaultMaxMessageSize = 32 * 1024 * 1024
	// DefaultAccumulatorReadSize is the default chunk size a Loader asks
	// for via GetBuffer when it has no better estimate yet, the same
	// reasoning as the teacher's DefaultConnectionReadSize: bigger
	// buffers mean fewer read syscalls for whatever feeds the loader.
	DefaultAccumulatorReadSize = 4096
)

// loaderConfig collects a Loader's tunables, set up via LoaderOption
// functions passed to NewLoader.
type loaderConfig struct {
	maxMessageSize uint32
	readSize       int
	cache          *Cache
}

// LoaderOption sets up a Loader's configuration.
type LoaderOption func(*loaderConfig)

// WithMaxMessageSize caps the total length (header plus body) of any
// single message the Loader will accept; exceeding it marks the loader
// corrupted rather than growing the accumulator without bound.
func WithMaxMessageSize(n uint32) LoaderOption {
	return func(c *loaderConfig) {
		c.maxMessageSize = n
	}
}

// WithAccumulatorReadSize sets the chunk size GetBuffer requests when
// the loader has no better estimate of how much data is coming.
func WithAccumulatorReadSize(n int) LoaderOption {
	return func(c *loaderConfig) {
		c.readSize = n
	}
}

// WithCache opts the Loader into reusing buffers from c for each
// completed message's body bytes, rather than allocating fresh ones.
func WithCache(c *Cache) LoaderOption {
	return func(lc *loaderConfig) {
		lc.cache = c
	}
}
