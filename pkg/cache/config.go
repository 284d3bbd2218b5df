package cache

import "time"

// RedisOption configures the Redis backend.
type RedisOption func(*RedisConfig)

// RedisConfig holds connection settings for the shared fit cache.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	Prefix      string
	PoolSize    int
	MinIdle     int
	PingTimeout time.Duration
}

func defaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:        "localhost:6379",
		Prefix:      "cropvol",
		PoolSize:    10,
		MinIdle:     2,
		PingTimeout: 5 * time.Second,
	}
}

// WithRedisAddr sets host:port. Empty values are ignored.
func WithRedisAddr(addr string) RedisOption {
	return func(c *RedisConfig) {
		if addr != "" {
			c.Addr = addr
		}
	}
}

// WithRedisAuth selects the logical database and the password for it.
func WithRedisAuth(password string, db int) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
		c.DB = db
	}
}

// WithRedisPrefix namespaces every key written by the cache.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) {
		if prefix != "" {
			c.Prefix = prefix
		}
	}
}

// WithRedisPool sizes the connection pool.
func WithRedisPool(size, minIdle int) RedisOption {
	return func(c *RedisConfig) {
		if size > 0 {
			c.PoolSize = size
		}
		if minIdle >= 0 {
			c.MinIdle = minIdle
		}
	}
}

// MemoryOption configures the in-process cache.
type MemoryOption func(*MemoryConfig)

// MemoryConfig bounds the in-process cache.
type MemoryConfig struct {
	MaxEntries int
	Sweep      time.Duration
}

func defaultMemoryConfig() *MemoryConfig {
	return &MemoryConfig{MaxEntries: 1000, Sweep: 5 * time.Minute}
}

// WithMemoryMaxSize caps the number of entries before LRU eviction kicks in.
func WithMemoryMaxSize(n int) MemoryOption {
	return func(c *MemoryConfig) {
		if n > 0 {
			c.MaxEntries = n
		}
	}
}

// WithMemorySweep sets how often expired entries are purged.
func WithMemorySweep(every time.Duration) MemoryOption {
	return func(c *MemoryConfig) {
		if every > 0 {
			c.Sweep = every
		}
	}
}

// LayeredOption configures the memory tier placed in front of a remote cache.
type LayeredOption func(*LayeredConfig)

// LayeredConfig holds the L1 bounds. Entries never outlive L1TTL in memory,
// whatever expiration the caller asked for on the remote side.
type LayeredConfig struct {
	Memory MemoryConfig
	L1TTL  time.Duration
}

// WithLayeredMemorySize caps the L1 entry count.
func WithLayeredMemorySize(n int) LayeredOption {
	return func(c *LayeredConfig) {
		WithMemoryMaxSize(n)(&c.Memory)
	}
}

// WithLayeredMemoryTTL caps how long an entry stays in L1.
func WithLayeredMemoryTTL(ttl time.Duration) LayeredOption {
	return func(c *LayeredConfig) {
		if ttl > 0 {
			c.L1TTL = ttl
		}
	}
}
