package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/IvanBrykalov/cachekit/cache"
	"github.com/IvanBrykalov/cachekit/metrics"
	"github.com/IvanBrykalov/cachekit/policy"
	"github.com/IvanBrykalov/cachekit/policy/fifo"
	"github.com/IvanBrykalov/cachekit/policy/lru"
	"github.com/IvanBrykalov/cachekit/ref"
	"github.com/IvanBrykalov/cachekit/schedule"
	"github.com/IvanBrykalov/cachekit/timeout"
	"github.com/IvanBrykalov/cachekit/uri"
)

// Deps carries the collaborators shared by the constructors below.
// Zero values select the package defaults.
type Deps struct {
	Metrics metrics.Metrics
	Logger  hclog.Logger
	// Monitor used by soft caches without SoftLimitBytes
	// (nil => ref.DefaultMonitor).
	Monitor *ref.Monitor
}

// NewCache builds a bounded cache of *T values as described by cfg.
func NewCache[K comparable, T any](cfg CacheConfig, d Deps) (cache.Cache[K, *T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var pol policy.Policy[K] = lru.New[K]()
	if cfg.Order == OrderInsertion {
		pol = fifo.New[K]()
	}

	var ret ref.Retention[*T]
	switch cfg.Retention {
	case RetentionWeak:
		ret = ref.Weak[T]()
	case RetentionSoft:
		ret = softRetention[T](cfg, d)
	default:
		ret = ref.Strong[*T]()
	}

	return cache.New(cache.Options[K, *T]{
		Capacity:       cfg.MaxSize,
		Policy:         pol,
		Retention:      ret,
		StopOnEviction: cfg.StopOnEviction,
		Metrics:        d.Metrics,
		Logger:         d.Logger,
	}), nil
}

// softRetention registers with d.Monitor, or with a dedicated Monitor when
// cfg.SoftLimitBytes is set. A dedicated Monitor stops with the cache.
func softRetention[T any](cfg CacheConfig, d Deps) *ref.SoftRetention[T] {
	if cfg.SoftLimitBytes > 0 {
		m := ref.NewMonitor(ref.MonitorOptions{Limit: cfg.SoftLimitBytes, Logger: d.Logger})
		m.Start()
		return ref.SoftOwned[T](m)
	}
	m := d.Monitor
	if m == nil {
		m = ref.DefaultMonitor()
	}
	return ref.Soft[T](m)
}

// NewTimeoutMap builds a timeout map purged on sched every
// cfg.PurgeInterval. With a zero interval the map is never purged and
// sched may be nil.
func NewTimeoutMap[K comparable, V any](cfg TimeoutConfig, sched schedule.Scheduler, d Deps) (*timeout.Map[K, V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.PurgeInterval == 0 {
		sched = nil
	} else if sched == nil {
		return nil, ErrNoScheduler
	}
	return timeout.New[K, V](sched, timeout.Options[K, V]{
		PurgeInterval: cfg.PurgeInterval,
		InitialDelay:  cfg.InitialDelay,
		Metrics:       d.Metrics,
		Logger:        d.Logger,
	}), nil
}

// CacheConfigFromURI reads a cache configuration written as an endpoint
// URI, for example "cache:fifo?maxSize=500&retention=weak". The path
// selects the order ("lru", "fifo", "access" or "insertion"); the order
// query option overrides it. Unset options keep DefaultCache values.
func CacheConfigFromURI(s string) (CacheConfig, error) {
	cfg := DefaultCache()

	scheme, rest, ok := strings.Cut(uri.StripQuery(s), ":")
	if !ok || scheme != "cache" {
		return cfg, fmt.Errorf("config: %q is not a cache uri", uri.SanitizeURI(s))
	}
	if path := strings.TrimPrefix(rest, "//"); path != "" {
		o, err := ParseOrder(path)
		if err != nil {
			return cfg, err
		}
		cfg.Order = o
	}

	q, _ := uri.ExtractQuery(s)
	params, err := uri.ParseQuery(q, false, false)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	for _, k := range params.Keys() {
		v, _ := params.Get(k)
		switch k {
		case "maxSize":
			if cfg.MaxSize, err = strconv.Atoi(v); err != nil {
				return cfg, fmt.Errorf("config: maxSize: %w", err)
			}
		case "order":
			if cfg.Order, err = ParseOrder(v); err != nil {
				return cfg, err
			}
		case "retention":
			if cfg.Retention, err = ParseRetention(v); err != nil {
				return cfg, err
			}
		case "stopOnEviction":
			if cfg.StopOnEviction, err = strconv.ParseBool(v); err != nil {
				return cfg, fmt.Errorf("config: stopOnEviction: %w", err)
			}
		case "softLimitBytes":
			if cfg.SoftLimitBytes, err = strconv.ParseUint(v, 10, 64); err != nil {
				return cfg, fmt.Errorf("config: softLimitBytes: %w", err)
			}
		default:
			return cfg, fmt.Errorf("%w: %q", ErrUnknownOption, k)
		}
	}
	return cfg, cfg.Validate()
}
