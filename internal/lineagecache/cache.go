// Package lineagecache wraps a Service (internal/lineage) with a Valkey-
// backed response cache. Forward/reverse lineage walks over a large dbt
// project are the most expensive call the core makes; caching their
// serialized {nodes, edges} payload is pure plumbing around the engines,
// which stay stateless and cache-unaware.
package lineagecache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/maraichr/dbtlineage/internal/engineconfig"
	"github.com/maraichr/dbtlineage/internal/lineage"
	"github.com/maraichr/dbtlineage/pkg/lineagegraph"
)

const keyPrefix = "dbtlineage:response:"

// Cache decorates a *lineage.Service's forward/reverse/table lineage
// calls with a Valkey-backed cache, keyed by (operation, source, column,
// depth). A nil client disables caching entirely — every call falls
// straight through to svc.
type Cache struct {
	svc    *lineage.Service
	client valkey.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New wraps svc with a response cache backed by client. Pass a nil client
// to run uncached (every Cache method becomes a direct pass-through).
func New(svc *lineage.Service, client valkey.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{svc: svc, client: client, ttl: ttl, logger: logger}
}

// NewValkeyClient connects to Valkey using cfg and pings it once to
// verify connectivity before returning.
func NewValkeyClient(cfg engineconfig.ValkeyConfig) (valkey.Client, error) {
	opts := valkey.ClientOption{InitAddress: []string{cfg.Addr}, SelectDB: cfg.DB}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}
	if err := client.Do(context.Background(), client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping valkey: %w", err)
	}
	return client, nil
}

// ForwardLineage serves Service.ForwardLineage from cache when present,
// else computes and populates it.
func (c *Cache) ForwardLineage(ctx context.Context, source, column string, depth int) lineagegraph.Result {
	key := responseKey("forward", source, column, depth)
	if result, ok := c.get(ctx, key); ok {
		return result
	}
	result := c.svc.ForwardLineage(source, column, depth)
	c.set(ctx, key, result)
	return result
}

// ReverseLineage serves Service.ReverseLineage from cache when present,
// else computes and populates it.
func (c *Cache) ReverseLineage(ctx context.Context, source, column string) lineagegraph.Result {
	key := responseKey("reverse", source, column, 0)
	if result, ok := c.get(ctx, key); ok {
		return result
	}
	result := c.svc.ReverseLineage(source, column)
	c.set(ctx, key, result)
	return result
}

// TableLineage serves Service.TableLineage from cache when present, else
// computes and populates it.
func (c *Cache) TableLineage(ctx context.Context, source string, reverse bool, depth int) lineagegraph.Result {
	direction := "down"
	if reverse {
		direction = "up"
	}
	key := responseKey("table:"+direction, source, "", depth)
	if result, ok := c.get(ctx, key); ok {
		return result
	}
	result := c.svc.TableLineage(source, reverse, depth)
	c.set(ctx, key, result)
	return result
}

func (c *Cache) get(ctx context.Context, key string) (lineagegraph.Result, bool) {
	if c.client == nil {
		return lineagegraph.Result{}, false
	}
	resp := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	data, err := resp.AsBytes()
	if err != nil {
		if !valkey.IsValkeyNil(err) {
			c.logger.Error("lineage cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return lineagegraph.Result{}, false
	}
	var result lineagegraph.Result
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("lineage cache entry corrupt", slog.String("key", key), slog.String("error", err.Error()))
		return lineagegraph.Result{}, false
	}
	return result, true
}

func (c *Cache) set(ctx context.Context, key string, result lineagegraph.Result) {
	if c.client == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("lineage cache marshal failed", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	resp := c.client.Do(ctx, c.client.B().Set().Key(key).Value(string(data)).Ex(c.ttl).Build())
	if err := resp.Error(); err != nil {
		c.logger.Error("lineage cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func responseKey(op, source, column string, depth int) string {
	parts := []string{keyPrefix + op, strings.ToLower(source), strings.ToLower(column), strconv.Itoa(depth)}
	return strings.Join(parts, ":")
}
