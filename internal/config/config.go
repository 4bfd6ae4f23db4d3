// Package config loads server settings from defaults, then PLUG_* environment
// variables, then command-line flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

const (
	OrdersBackendMock  = "mock"
	OrdersBackendMySQL = "mysql"

	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string

	RedisAddr string
	MySQLDSN  string
	SeedMySQL bool

	OrdersBackend string
	Store         string

	TickResolution     time.Duration
	DeliveryInterval   time.Duration
	TechnicianInterval time.Duration
	ProcessingDelay    time.Duration
	LatencyFactor      float64
	Workers            int
	QueueSize          int

	PromoCodes []string
	PromoRate  decimal.Decimal

	LogLevel  string
	LogFormat string
	DevTools  bool
}

func Default() Config {
	return Config{
		HTTPAddr:           ":8080",
		GRPCAddr:           ":50051",
		RedisAddr:          "localhost:6379",
		MySQLDSN:           "root:root@tcp(localhost:3306)/plug?parseTime=true",
		OrdersBackend:      OrdersBackendMock,
		Store:              StoreMemory,
		TickResolution:     time.Second,
		DeliveryInterval:   10 * time.Second,
		TechnicianInterval: 8 * time.Second,
		ProcessingDelay:    2 * time.Second,
		LatencyFactor:      1,
		Workers:            4,
		QueueSize:          1000,
		PromoCodes:         []string{"PLUG10", "PLUG50"},
		PromoRate:          decimal.New(10, -2),
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

// Load applies the environment and then args on top of the defaults.
func Load(args []string) (Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	fs := pflag.NewFlagSet("plug-checkout", pflag.ContinueOnError)
	cfg.bindFlags(fs)
	promoRate := fs.String("promo-rate", cfg.PromoRate.String(), "promo discount as a fraction of the subtotal")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	rate, err := decimal.NewFromString(*promoRate)
	if err != nil {
		return Config{}, fmt.Errorf("promo-rate: %w", err)
	}
	cfg.PromoRate = rate

	return cfg, cfg.Validate()
}

func (c *Config) bindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.HTTPAddr, "http-addr", c.HTTPAddr, "HTTP listen address")
	fs.StringVar(&c.GRPCAddr, "grpc-addr", c.GRPCAddr, "gRPC listen address")
	fs.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "Redis address, used when --store=redis")
	fs.StringVar(&c.MySQLDSN, "mysql-dsn", c.MySQLDSN, "MySQL DSN, used when --orders-backend=mysql")
	fs.BoolVar(&c.SeedMySQL, "seed-mysql", c.SeedMySQL, "load the demo past orders into MySQL on startup")
	fs.StringVar(&c.OrdersBackend, "orders-backend", c.OrdersBackend, "past orders backend: mock or mysql")
	fs.StringVar(&c.Store, "store", c.Store, "idempotency and preference store: memory or redis")
	fs.DurationVar(&c.TickResolution, "tick-resolution", c.TickResolution, "base tick of the tracking scheduler")
	fs.DurationVar(&c.DeliveryInterval, "delivery-interval", c.DeliveryInterval, "time between delivery status updates")
	fs.DurationVar(&c.TechnicianInterval, "technician-interval", c.TechnicianInterval, "time between technician status updates")
	fs.DurationVar(&c.ProcessingDelay, "processing-delay", c.ProcessingDelay, "simulated payment processing time")
	fs.Float64Var(&c.LatencyFactor, "latency-factor", c.LatencyFactor, "scale for mock backend delays, 0 disables them")
	fs.IntVar(&c.Workers, "workers", c.Workers, "order recording workers")
	fs.IntVar(&c.QueueSize, "queue-size", c.QueueSize, "placed order queue size")
	fs.StringSliceVar(&c.PromoCodes, "promo-codes", c.PromoCodes, "accepted promo codes")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "json or console")
	fs.BoolVar(&c.DevTools, "dev-tools", c.DevTools, "expose /debug/sessions")
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var err error
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" && err == nil {
			d, perr := time.ParseDuration(v)
			if perr != nil {
				err = fmt.Errorf("%s: %w", key, perr)
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" && err == nil {
			b, perr := strconv.ParseBool(v)
			if perr != nil {
				err = fmt.Errorf("%s: %w", key, perr)
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" && err == nil {
			n, perr := strconv.Atoi(v)
			if perr != nil {
				err = fmt.Errorf("%s: %w", key, perr)
				return
			}
			*dst = n
		}
	}

	str("PLUG_HTTP_ADDR", &c.HTTPAddr)
	str("PLUG_GRPC_ADDR", &c.GRPCAddr)
	str("PLUG_REDIS_ADDR", &c.RedisAddr)
	str("PLUG_MYSQL_DSN", &c.MySQLDSN)
	boolean("PLUG_SEED_MYSQL", &c.SeedMySQL)
	str("PLUG_ORDERS_BACKEND", &c.OrdersBackend)
	str("PLUG_STORE", &c.Store)
	dur("PLUG_TICK_RESOLUTION", &c.TickResolution)
	dur("PLUG_DELIVERY_INTERVAL", &c.DeliveryInterval)
	dur("PLUG_TECHNICIAN_INTERVAL", &c.TechnicianInterval)
	dur("PLUG_PROCESSING_DELAY", &c.ProcessingDelay)
	integer("PLUG_WORKERS", &c.Workers)
	integer("PLUG_QUEUE_SIZE", &c.QueueSize)
	str("PLUG_LOG_LEVEL", &c.LogLevel)
	str("PLUG_LOG_FORMAT", &c.LogFormat)
	boolean("PLUG_DEV_TOOLS", &c.DevTools)

	if v, ok := lookup("PLUG_LATENCY_FACTOR"); ok && v != "" && err == nil {
		f, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			return fmt.Errorf("PLUG_LATENCY_FACTOR: %w", perr)
		}
		c.LatencyFactor = f
	}
	if v, ok := lookup("PLUG_PROMO_CODES"); ok && v != "" {
		var codes []string
		for _, code := range strings.Split(v, ",") {
			if code = strings.TrimSpace(code); code != "" {
				codes = append(codes, code)
			}
		}
		c.PromoCodes = codes
	}
	if v, ok := lookup("PLUG_PROMO_RATE"); ok && v != "" && err == nil {
		rate, perr := decimal.NewFromString(v)
		if perr != nil {
			return fmt.Errorf("PLUG_PROMO_RATE: %w", perr)
		}
		c.PromoRate = rate
	}
	return err
}

func (c Config) Validate() error {
	switch c.OrdersBackend {
	case OrdersBackendMock, OrdersBackendMySQL:
	default:
		return fmt.Errorf("unknown orders backend %q", c.OrdersBackend)
	}
	switch c.Store {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.TickResolution <= 0 {
		return fmt.Errorf("tick resolution must be positive, got %v", c.TickResolution)
	}
	if c.DeliveryInterval < c.TickResolution || c.TechnicianInterval < c.TickResolution {
		return fmt.Errorf("tracking intervals must be at least the tick resolution %v", c.TickResolution)
	}
	if c.ProcessingDelay < 0 {
		return fmt.Errorf("processing delay must not be negative")
	}
	if c.LatencyFactor < 0 {
		return fmt.Errorf("latency factor must not be negative")
	}
	if c.Workers < 1 {
		return fmt.Errorf("need at least one worker")
	}
	if c.PromoRate.IsNegative() || c.PromoRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("promo rate must be between 0 and 1, got %s", c.PromoRate)
	}
	return nil
}
