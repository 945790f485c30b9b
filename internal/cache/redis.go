package cache

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RedisConfig captures the minimal connection parameters required by the lightweight Redis client.
type RedisConfig struct {
	Address  string
	Username string
	Password string
	DB       int
	TLS      bool
	Timeout  time.Duration
}

const defaultRedisTimeout = 5 * time.Second
const redisKeyPrefix = "barangay:"

var _ Store = (*RedisClient)(nil)

// RedisClient speaks the subset of RESP needed for shared rate-limit counters: AUTH, SELECT,
// INCR, PEXPIRE, PTTL and PING over a single connection guarded by a mutex.
type RedisClient struct {
	cfg    RedisConfig
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// NewRedisClient creates a new Redis client. It eagerly establishes the connection so that
// misconfiguration is surfaced during application startup.
func NewRedisClient(cfg RedisConfig) (*RedisClient, error) {
	cfg.Address = strings.TrimSpace(cfg.Address)
	if cfg.Address == "" {
		return nil, errors.New("redis: address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRedisTimeout
	}

	client := &RedisClient{cfg: cfg}
	if err := client.ensureConnection(context.Background()); err != nil {
		return nil, err
	}
	return client, nil
}

// Close closes the underlying network connection.
func (c *RedisClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		c.reader = nil
		return err
	}
	return nil
}

// IncrementWithTTL increments key and starts its expiry on the first hit of a window. A
// counter found without an expiry is given one so it cannot outlive its window.
func (c *RedisClient) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	prefixedKey := c.prefixed(key)
	count, err := c.doInt(ctx, "INCR", prefixedKey)
	if err != nil {
		return 0, 0, err
	}

	if count > 1 {
		ttlMillis, err := c.doInt(ctx, "PTTL", prefixedKey)
		if err != nil {
			return 0, 0, err
		}
		if ttlMillis >= 0 {
			return count, time.Duration(ttlMillis) * time.Millisecond, nil
		}
	}

	if _, err := c.doInt(ctx, "PEXPIRE", prefixedKey, formatMillis(window)); err != nil {
		return 0, 0, err
	}
	return count, window, nil
}

// Ping checks the connection.
func (c *RedisClient) Ping(ctx context.Context) error {
	resp, err := c.doSimple(ctx, "PING")
	if err != nil {
		return err
	}
	if !strings.EqualFold(resp, "PONG") {
		return fmt.Errorf("redis: unexpected PING reply %q", resp)
	}
	return nil
}

func (c *RedisClient) prefixed(key string) string {
	return redisKeyPrefix + "ratelimit:" + key
}

func (c *RedisClient) doSimple(ctx context.Context, args ...string) (string, error) {
	reply, err := c.do(ctx, args...)
	if err != nil {
		return "", err
	}
	status, ok := reply.(string)
	if !ok {
		return "", fmt.Errorf("redis: %s: unexpected reply %T", args[0], reply)
	}
	return status, nil
}

func (c *RedisClient) doInt(ctx context.Context, args ...string) (int64, error) {
	reply, err := c.do(ctx, args...)
	if err != nil {
		return 0, err
	}
	n, ok := reply.(int64)
	if !ok {
		return 0, fmt.Errorf("redis: %s: unexpected reply %T", args[0], reply)
	}
	return n, nil
}

// do runs one command. Any transport or protocol failure drops the connection so the next
// call redials; server error replies keep it.
func (c *RedisClient) do(ctx context.Context, args ...string) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnectionLocked(ctx); err != nil {
		return nil, err
	}

	reply, err := roundTrip(c.conn, c.reader, deadlineFromContext(ctx, c.cfg.Timeout), args)
	var serverErr redisError
	if err != nil && !errors.As(err, &serverErr) {
		c.resetLocked()
	}
	return reply, err
}

func (c *RedisClient) ensureConnection(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ensureConnectionLocked(ctx)
}

func (c *RedisClient) ensureConnectionLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var dialer interface {
		DialContext(ctx context.Context, network, address string) (net.Conn, error)
	} = &net.Dialer{}
	if c.cfg.TLS {
		dialer = &tls.Dialer{NetDialer: &net.Dialer{}}
	}
	conn, err := dialer.DialContext(dialCtx, "tcp", c.cfg.Address)
	if err != nil {
		return fmt.Errorf("redis: dial %s: %w", c.cfg.Address, err)
	}

	reader := bufio.NewReader(conn)
	if err := c.handshake(conn, reader, deadlineFromContext(dialCtx, c.cfg.Timeout)); err != nil {
		_ = conn.Close()
		return err
	}

	c.conn = conn
	c.reader = reader
	return nil
}

// handshake authenticates and selects the configured database on a fresh connection.
func (c *RedisClient) handshake(conn net.Conn, reader *bufio.Reader, deadline time.Time) error {
	var commands [][]string
	switch {
	case c.cfg.Username != "":
		commands = append(commands, []string{"AUTH", c.cfg.Username, c.cfg.Password})
	case c.cfg.Password != "":
		commands = append(commands, []string{"AUTH", c.cfg.Password})
	}
	if c.cfg.DB > 0 {
		commands = append(commands, []string{"SELECT", strconv.Itoa(c.cfg.DB)})
	}

	for _, args := range commands {
		reply, err := roundTrip(conn, reader, deadline, args)
		if err != nil {
			return fmt.Errorf("redis: %s failed: %w", args[0], err)
		}
		if status, _ := reply.(string); !strings.EqualFold(status, "OK") {
			return fmt.Errorf("redis: %s failed: unexpected reply %v", args[0], reply)
		}
	}
	return nil
}

func (c *RedisClient) resetLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.reader = nil
}

func deadlineFromContext(ctx context.Context, fallback time.Duration) time.Time {
	if deadline, ok := ctx.Deadline(); ok {
		return deadline
	}
	return time.Now().Add(fallback)
}

// redisError is an error reply sent by the server.
type redisError string

func (e redisError) Error() string { return string(e) }

func roundTrip(conn net.Conn, reader *bufio.Reader, deadline time.Time, args []string) (any, error) {
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, err
	}
	if err := writeCommand(conn, args); err != nil {
		return nil, err
	}
	return readResponse(reader)
}

// writeCommand encodes args as a RESP array of bulk strings.
func writeCommand(w io.Writer, args []string) error {
	buf := make([]byte, 0, 64)
	buf = appendHeader(buf, '*', len(args))
	for _, arg := range args {
		buf = appendHeader(buf, '$', len(arg))
		buf = append(buf, arg...)
		buf = append(buf, '\r', '\n')
	}
	_, err := w.Write(buf)
	return err
}

func appendHeader(buf []byte, kind byte, n int) []byte {
	buf = append(buf, kind)
	buf = strconv.AppendInt(buf, int64(n), 10)
	return append(buf, '\r', '\n')
}

// readResponse decodes one RESP2 reply: status lines as string, integers as int64, bulk
// strings as []byte (nil when absent), arrays as []any and error lines as redisError.
func readResponse(r *bufio.Reader) (any, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	if len(line) < 3 || !strings.HasSuffix(line, "\r\n") {
		return nil, fmt.Errorf("redis: malformed reply line %q", line)
	}
	kind, body := line[0], line[1:len(line)-2]

	switch kind {
	case '+':
		return body, nil
	case '-':
		return nil, redisError(body)
	case ':':
		return strconv.ParseInt(body, 10, 64)
	case '$':
		size, err := strconv.Atoi(body)
		if err != nil {
			return nil, err
		}
		if size < 0 {
			return nil, nil
		}
		payload := make([]byte, size+2)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
		if payload[size] != '\r' || payload[size+1] != '\n' {
			return nil, errors.New("redis: bulk string missing CRLF")
		}
		return payload[:size], nil
	case '*':
		size, err := strconv.Atoi(body)
		if err != nil {
			return nil, err
		}
		if size < 0 {
			return nil, nil
		}
		items := make([]any, size)
		for i := range items {
			if items[i], err = readResponse(r); err != nil {
				return nil, err
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("redis: unexpected reply type %q", kind)
	}
}

func formatMillis(duration time.Duration) string {
	if duration <= 0 {
		return "0"
	}
	return strconv.FormatInt(duration.Milliseconds(), 10)
}
