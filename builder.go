package goAuthClient

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/MrEthical07/goAuthClient/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles a Client. A Builder can be used once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store     TokenStore
	refresher Refresher
	auth      Authenticator
	signOut   SignOutFunc

	doer         Doer
	roundTripper http.RoundTripper

	logger    *zap.Logger
	eventSink EventSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithTokenStore sets where the session is kept. It takes precedence over WithRedis.
func (b *Builder) WithTokenStore(store TokenStore) *Builder {
	b.store = store
	return b
}

// WithRedis keeps the session in Redis under Config.Store.RedisPrefix and SessionName, so
// several processes can share one signed-in session.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRefresher is required. If the refresher also implements Authenticator it is used for
// Login, Register and Logout unless WithAuthenticator overrides it.
func (b *Builder) WithRefresher(r Refresher) *Builder {
	b.refresher = r
	return b
}

func (b *Builder) WithAuthenticator(a Authenticator) *Builder {
	b.auth = a
	return b
}

// WithSignOut sets the callback invoked after a terminal refresh failure.
func (b *Builder) WithSignOut(fn SignOutFunc) *Builder {
	b.signOut = fn
	return b
}

// WithDoer replaces the HTTP client used by Client.Do.
func (b *Builder) WithDoer(d Doer) *Builder {
	b.doer = d
	return b
}

// WithRoundTripper sets the transport wrapped by Client.Transport and used by the default Doer.
func (b *Builder) WithRoundTripper(rt http.RoundTripper) *Builder {
	b.roundTripper = rt
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithEventSink sets the session event sink and enables event delivery.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.eventSink = sink
	if sink != nil {
		b.config.Events.Enabled = true
	}
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Client.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.refresher == nil {
		return nil, errors.New("refresher required")
	}

	var baseURL *url.URL
	if cfg.Request.BaseURL != "" {
		u, err := url.Parse(cfg.Request.BaseURL)
		if err != nil {
			return nil, err
		}
		baseURL = u
	}

	// -------- SESSION STORE --------
	store := b.store
	if store == nil && b.redis != nil {
		store = session.NewRedisStore(b.redis, cfg.Store.RedisPrefix, cfg.Store.SessionName, cfg.Store.TTL)
	}
	if store == nil {
		store = session.NewMemoryStore()
	}

	auth := b.auth
	if auth == nil {
		auth, _ = b.refresher.(Authenticator)
	}

	// -------- TRANSPORT --------
	rt := b.roundTripper
	if rt == nil {
		rt = http.DefaultTransport
	}
	doer := b.doer
	if doer == nil {
		doer = &http.Client{Transport: rt, Timeout: cfg.Request.Timeout}
	}

	client := &Client{
		config:       cfg,
		baseURL:      baseURL,
		store:        store,
		refresher:    b.refresher,
		auth:         auth,
		signOut:      b.signOut,
		doer:         doer,
		roundTripper: rt,
		logger:       clientLogger(b.logger),
		metrics:      NewMetrics(cfg.Metrics),
		events:       newEventDispatcher(cfg.Events, b.eventSink),
	}

	b.built = true

	return client, nil
}
