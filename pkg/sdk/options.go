package topicdex

import (
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/topicdex/internal/config"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	solrURL   string
	configSet string
	numShards int
	rateLimit float64
	readiness time.Duration

	cacheDriver   string // "valkey" or "redis"
	cacheAddrs    []string
	cachePassword string
	standalone    bool

	inferencerURL string

	maxSum       int
	maxSumNeural int
	thetaBudget  int
	noMetaFields []string
	corpora      map[string]config.CorpusConfig

	regionsFile string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithSolr sets the base URL of the Solr cluster. Required.
func WithSolr(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.solrURL = url
	})
}

// WithConfigSet sets the configset new collections are created from.
func WithConfigSet(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.configSet = name
	})
}

// WithShards sets the shard count of new collections. Default: 1.
func WithShards(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.numShards = n
	})
}

// WithRateLimit caps engine requests per second. Zero means unlimited.
func WithRateLimit(rps float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.rateLimit = rps
	})
}

// WithReadinessTimeout bounds the initial wait for the engine and the cache.
// Default: 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readiness = d
	})
}

// WithValkeyCache enables the word-beta cache on a Valkey instance.
func WithValkeyCache(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "valkey"
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
	})
}

// WithRedisCache enables the word-beta cache on a Redis instance.
func WithRedisCache(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "redis"
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
	})
}

// WithStandalone disables cluster topology discovery on the cache.
// Use for a single Valkey/Redis node.
func WithStandalone() Option {
	return optionFunc(func(c *clientConfig) {
		c.standalone = true
	})
}

// WithInferencer sets the base URL of the topic inference service.
// Without it the text-based similarity queries return ErrInferenceFailed.
func WithInferencer(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.inferencerURL = url
	})
}

// WithBudgets sets the integer budgets of the thetas and betas encodings.
// Zero keeps the default (1000 for mallet models, 100 for neural ones,
// 1000 for inferred thetas).
func WithBudgets(maxSum, maxSumNeural, thetaBudget int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxSum = maxSum
		c.maxSumNeural = maxSumNeural
		c.thetaBudget = thetaBudget
	})
}

// WithCorpusMapping maps the raw title and date columns of a corpus.
func WithCorpusMapping(corpus, titleField, dateField string) Option {
	return optionFunc(func(c *clientConfig) {
		if c.corpora == nil {
			c.corpora = make(map[string]config.CorpusConfig)
		}
		c.corpora[strings.ToLower(corpus)] = config.CorpusConfig{TitleField: titleField, DateField: dateField}
	})
}

// WithNoMetaFields sets the fields hidden from metadata listings.
func WithNoMetaFields(fields ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.noMetaFields = fields
	})
}

// WithRegionsFile loads the continent filter table from a YAML file.
// Without it every continent filter matches all documents.
func WithRegionsFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.regionsFile = path
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// serviceConfig renders the options as a service configuration.
func (c *clientConfig) serviceConfig() config.Config {
	var cfg config.Config
	cfg.Engine.URL = c.solrURL
	cfg.Engine.ConfigSet = c.configSet
	cfg.Engine.NumShards = c.numShards
	cfg.Engine.RateLimit = c.rateLimit
	cfg.Engine.ReadinessTimeout = seconds(c.readiness)
	cfg.Cache.Enabled = len(c.cacheAddrs) > 0
	cfg.Cache.Driver = c.cacheDriver
	cfg.Cache.Addrs = c.cacheAddrs
	cfg.Cache.Password = c.cachePassword
	cfg.Cache.Standalone = c.standalone
	cfg.Cache.ReadinessTimeout = seconds(c.readiness)
	cfg.Inferencer.URL = c.inferencerURL
	cfg.Indexing.MaxSum = c.maxSum
	cfg.Indexing.MaxSumNeural = c.maxSumNeural
	cfg.Indexing.ThetaBudget = c.thetaBudget
	cfg.Indexing.NoMetaFields = c.noMetaFields
	cfg.Indexing.Corpora = c.corpora

	cfg.ApplyDefaults()
	// The server ships a default table; embedded clients opt in.
	cfg.RegionsFile = c.regionsFile
	return cfg
}

func seconds(d time.Duration) int {
	if d <= 0 {
		return int(defaultReadinessTimeout / time.Second)
	}
	return int(math.Ceil(d.Seconds()))
}
