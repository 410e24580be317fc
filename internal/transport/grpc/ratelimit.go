package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// ClientIDMetadataKey lets trusted front ends name the caller to rate limit;
// otherwise the peer host is used.
const ClientIDMetadataKey = "x-client-id"

// WindowCounter increments the hit count of key inside the current window
// and reports how long until the window resets.
type WindowCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

// RedisCounter is a fixed-window counter shared by every server replica.
type RedisCounter struct {
	rdb redis.Scripter
}

func NewRedisCounter(rdb redis.Scripter) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	ms := window.Milliseconds()
	if ms <= 0 {
		ms = time.Minute.Milliseconds()
	}
	res, err := fixedWindowScript.Run(ctx, c.rdb, []string{key}, ms).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("unexpected redis script result %v", res)
	}
	resetIn := time.Duration(res[1]) * time.Millisecond
	if res[1] < 0 {
		// PTTL is -1 when the key lost its expiry; treat it as a full window.
		resetIn = time.Duration(ms) * time.Millisecond
	}
	return res[0], resetIn, nil
}

type RateLimiter struct {
	counter  WindowCounter
	limit    int
	window   time.Duration
	prefix   string
	failOpen bool
	log      *slog.Logger
}

func NewRateLimiter(counter WindowCounter, limit int, window time.Duration, failOpen bool, log *slog.Logger) *RateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &RateLimiter{
		counter:  counter,
		limit:    limit,
		window:   window,
		prefix:   "salonpro:rl",
		failOpen: failOpen,
		log:      log.With(slog.String("component", "grpc.ratelimit")),
	}
}

func (rl *RateLimiter) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		client := clientKey(ctx)
		count, resetIn, err := rl.counter.Incr(ctx, rl.prefix+":"+client, rl.window)
		if err != nil {
			rl.log.Warn("rate limiter unavailable", slog.Any("err", err), slog.Bool("fail_open", rl.failOpen))
			if rl.failOpen {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unavailable, "rate limiter unavailable")
		}
		if count > int64(rl.limit) {
			rl.log.Info("rate limit exceeded", slog.String("client", client), slog.String("method", info.FullMethod))
			return nil, rateLimitedStatus(client, resetIn)
		}
		return handler(ctx, req)
	}
}

func clientKey(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(ClientIDMetadataKey); len(vals) > 0 && strings.TrimSpace(vals[0]) != "" {
			return strings.TrimSpace(vals[0])
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		addr := p.Addr.String()
		if host, _, err := net.SplitHostPort(addr); err == nil {
			return host
		}
		return addr
	}
	return "unknown"
}
