// Package ratelimit implements a fixed-window request limiter shared
// through Redis.
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const limitedMessage = "Too many requests, please try again later"

// Limiter counts requests per key in fixed windows.
type Limiter struct {
	redis    *redis.Client
	requests int
	window   time.Duration
	prefix   string
	log      *zap.Logger
	// Forwarding headers are only honoured from these peers.
	trusted []*net.IPNet

	// OnLimited, when set, is called with the route of every rejected request.
	OnLimited func(route string)
}

func NewLimiter(client *redis.Client, requests int, window time.Duration, prefix string, log *zap.Logger) *Limiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &Limiter{
		redis:    client,
		requests: requests,
		window:   window,
		prefix:   prefix,
		log:      log.Named("ratelimit"),
	}
}

// TrustProxies makes the limiter read the client address from
// X-Forwarded-For or X-Real-IP when the direct peer lies in one of cidrs.
// Without trusted proxies the peer address is always used.
func (l *Limiter) TrustProxies(cidrs []string) error {
	nets, err := ParseCIDRs(cidrs)
	if err != nil {
		return err
	}
	l.trusted = nets
	return nil
}

// ParseCIDRs parses CIDR blocks; a bare IP is treated as a single host.
func ParseCIDRs(cidrs []string) ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if !strings.Contains(c, "/") {
			ip := net.ParseIP(c)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", c)
			}
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip, bits = ip.To4(), 8*net.IPv4len
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", c, err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

func (l *Limiter) isTrusted(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, n := range l.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Allow counts one request for key. On a Redis failure it allows the
// request and returns the error.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	pipe := l.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}
	return incr.Val() <= int64(l.requests), nil
}

// TTL returns the time until the window of key resets.
func (l *Limiter) TTL(ctx context.Context, key string) (time.Duration, error) {
	return l.redis.TTL(ctx, fmt.Sprintf("%s:%s", l.prefix, key)).Result()
}

// Filter limits requests per client IP and route.
func (l *Limiter) Filter() restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		ctx := req.Request.Context()
		route := req.SelectedRoutePath()
		key := l.clientIP(req.Request) + ":" + route

		allowed, err := l.Allow(ctx, key)
		if err != nil {
			l.log.Warn("Rate limiter unavailable, allowing request", zap.Error(err))
		}
		if !allowed {
			if l.OnLimited != nil {
				l.OnLimited(route)
			}
			retryAfter := l.window
			if ttl, err := l.TTL(ctx, key); err == nil && ttl > 0 {
				retryAfter = ttl
			}
			resp.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds()+0.5)))
			resp.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.requests))
			_ = resp.WriteHeaderAndJson(http.StatusTooManyRequests, map[string]string{"error": limitedMessage}, restful.MIME_JSON)
			return
		}
		chain.ProcessFilter(req, resp)
	}
}

// clientIP returns the peer address unless the peer is a trusted proxy,
// in which case the rightmost untrusted X-Forwarded-For hop is used.
func (l *Limiter) clientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !l.isTrusted(net.ParseIP(peer)) {
		return peer
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		hops := strings.Split(fwd, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			ip := net.ParseIP(hop)
			if ip == nil {
				break
			}
			if !l.isTrusted(ip) || i == 0 {
				return ip.String()
			}
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	return peer
}
