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
	"time"
)

// ValkeyProvider implements Provider against a Valkey/Redis-compatible
// server, speaking just enough RESP for GET/SET/DEL. Connections are dialed
// per command; the result cache sees little traffic and a pool would be
// overkill.
type ValkeyProvider struct {
	cfg ValkeyConfig
}

// ValkeyConfig holds connection parameters for the cache server.
type ValkeyConfig struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int
	TLS          bool
}

// NewValkeyProvider creates a Provider and pings the target so bad
// credentials or connectivity fail at startup rather than mid-request.
func NewValkeyProvider(cfg ValkeyConfig) (*ValkeyProvider, error) {
	if cfg.Addr == "" {
		return nil, errors.New("valkey addr is required")
	}
	cfg.applyDefaults()
	p := &ValkeyProvider{cfg: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	reply, err := p.do(ctx, "PING")
	if err != nil {
		return nil, err
	}
	if reply.kind != kindSimple || string(reply.data) != "PONG" {
		return nil, fmt.Errorf("unexpected PING response: %s", reply.data)
	}
	return p, nil
}

// Get fetches bytes by key, returning ErrCacheMiss when the key is absent.
func (p *ValkeyProvider) Get(ctx context.Context, key string) ([]byte, error) {
	reply, err := p.do(ctx, "GET", []byte(key))
	if err != nil {
		return nil, err
	}
	switch reply.kind {
	case kindNil:
		return nil, ErrCacheMiss
	case kindBulk:
		return reply.data, nil
	default:
		return nil, fmt.Errorf("unexpected GET reply kind %q", reply.kind)
	}
}

// Set stores bytes under key with the provided TTL.
func (p *ValkeyProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := [][]byte{[]byte(key), value}
	if ttl > 0 {
		args = append(args, []byte("PX"), []byte(strconv.FormatInt(ttl.Milliseconds(), 10)))
	}
	reply, err := p.do(ctx, "SET", args...)
	if err != nil {
		return err
	}
	if reply.kind != kindSimple || string(reply.data) != "OK" {
		return fmt.Errorf("unexpected SET response: %s", reply.data)
	}
	return nil
}

// Del removes a key.
func (p *ValkeyProvider) Del(ctx context.Context, key string) error {
	_, err := p.do(ctx, "DEL", []byte(key))
	return err
}

// Close is a no-op; the provider holds no persistent connection.
func (p *ValkeyProvider) Close() error { return nil }

// do runs one command with retry on transient network errors.
func (p *ValkeyProvider) do(ctx context.Context, command string, args ...[]byte) (respReply, error) {
	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return respReply{}, ctx.Err()
		}
		if attempt > 0 {
			time.Sleep(time.Duration(1<<(attempt-1)) * 25 * time.Millisecond)
		}

		reply, err := p.once(ctx, command, args...)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !isTransient(err) {
			return respReply{}, err
		}
	}
	return respReply{}, lastErr
}

func (p *ValkeyProvider) once(ctx context.Context, command string, args ...[]byte) (respReply, error) {
	conn, err := p.dial(ctx)
	if err != nil {
		return respReply{}, err
	}
	defer conn.close()

	if err := p.handshake(conn); err != nil {
		return respReply{}, err
	}

	parts := append([][]byte{[]byte(command)}, args...)
	if err := conn.writeCommand(parts); err != nil {
		return respReply{}, err
	}
	return conn.readReply()
}

func (p *ValkeyProvider) dial(ctx context.Context) (*respConn, error) {
	dialer := net.Dialer{Timeout: p.cfg.DialTimeout}
	var (
		conn net.Conn
		err  error
	)
	if p.cfg.TLS {
		host := p.cfg.Addr
		if h, _, splitErr := net.SplitHostPort(p.cfg.Addr); splitErr == nil {
			host = h
		}
		conn, err = tls.DialWithDialer(&dialer, "tcp", p.cfg.Addr, &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: host,
		})
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", p.cfg.Addr)
	}
	if err != nil {
		return nil, err
	}
	return &respConn{
		conn:         conn,
		reader:       bufio.NewReader(conn),
		writer:       bufio.NewWriter(conn),
		readTimeout:  p.cfg.ReadTimeout,
		writeTimeout: p.cfg.WriteTimeout,
	}, nil
}

func (p *ValkeyProvider) handshake(conn *respConn) error {
	if p.cfg.Password != "" {
		auth := [][]byte{[]byte("AUTH")}
		if p.cfg.Username != "" {
			auth = append(auth, []byte(p.cfg.Username))
		}
		auth = append(auth, []byte(p.cfg.Password))
		if err := conn.writeCommand(auth); err != nil {
			return err
		}
		reply, err := conn.readReply()
		if err != nil {
			return err
		}
		if reply.kind != kindSimple || !strings.EqualFold(string(reply.data), "OK") {
			return fmt.Errorf("auth failed: %s", reply.data)
		}
	}
	if p.cfg.DB > 0 {
		if err := conn.writeCommand([][]byte{[]byte("SELECT"), []byte(strconv.Itoa(p.cfg.DB))}); err != nil {
			return err
		}
		reply, err := conn.readReply()
		if err != nil {
			return err
		}
		if reply.kind != kindSimple || !strings.EqualFold(string(reply.data), "OK") {
			return fmt.Errorf("select failed: %s", reply.data)
		}
	}
	return nil
}

func (cfg *ValkeyConfig) applyDefaults() {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 500 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 500 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
}

func isTransient(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// replyKind enumerates the RESP reply types the provider understands.
type replyKind byte

const (
	kindSimple  replyKind = '+'
	kindBulk    replyKind = '$'
	kindInteger replyKind = ':'
	kindNil     replyKind = '_'
)

type respReply struct {
	kind replyKind
	data []byte
}

type respConn struct {
	conn         net.Conn
	reader       *bufio.Reader
	writer       *bufio.Writer
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func (c *respConn) close() {
	_ = c.conn.Close()
}

func (c *respConn) writeCommand(parts [][]byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.writer, "*%d\r\n", len(parts)); err != nil {
		return err
	}
	for _, part := range parts {
		if _, err := fmt.Fprintf(c.writer, "$%d\r\n", len(part)); err != nil {
			return err
		}
		if _, err := c.writer.Write(part); err != nil {
			return err
		}
		if _, err := c.writer.WriteString("\r\n"); err != nil {
			return err
		}
	}
	return c.writer.Flush()
}

func (c *respConn) readReply() (respReply, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return respReply{}, err
	}
	prefix, err := c.reader.ReadByte()
	if err != nil {
		return respReply{}, err
	}
	switch prefix {
	case '+':
		line, err := c.readLine()
		return respReply{kind: kindSimple, data: line}, err
	case '-':
		line, err := c.readLine()
		if err != nil {
			return respReply{}, err
		}
		return respReply{}, errors.New(string(line))
	case ':':
		line, err := c.readLine()
		return respReply{kind: kindInteger, data: line}, err
	case '$':
		line, err := c.readLine()
		if err != nil {
			return respReply{}, err
		}
		size, err := strconv.Atoi(string(line))
		if err != nil {
			return respReply{}, err
		}
		if size < 0 {
			return respReply{kind: kindNil}, nil
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(c.reader, buf); err != nil {
			return respReply{}, err
		}
		if buf[size] != '\r' || buf[size+1] != '\n' {
			return respReply{}, errors.New("invalid bulk string termination")
		}
		return respReply{kind: kindBulk, data: buf[:size]}, nil
	default:
		return respReply{}, fmt.Errorf("unexpected RESP prefix %q", prefix)
	}
}

func (c *respConn) readLine() ([]byte, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return nil, err
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}
