package proxy

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"sjsage522/lotwatcher/logger"
)

const (
	defaultRefreshInterval = 30 * time.Minute
	dialTimeout            = 5 * time.Second
	handshakeTimeout       = 3 * time.Second
	maxConcurrentProbes    = 10
)

// Info holds a configured proxy and its last probe result
type Info struct {
	URL      string        `json:"url"`
	Scheme   string        `json:"scheme"`
	Host     string        `json:"host"`
	Latency  time.Duration `json:"latency"`
	LastTest time.Time     `json:"last_test"`
	Working  bool          `json:"working"`
}

// Pool ranks a fixed list of proxies by connect latency
type Pool struct {
	entries         []Info
	working         []Info
	mutex           sync.RWMutex
	lastUpdate      time.Time
	refreshInterval time.Duration

	dialer *net.Dialer
	log    *logger.Logger
}

// NewPool parses proxy specs such as "socks5://1.2.3.4:1080",
// "http://host:3128" or bare "host:port" (treated as http)
func NewPool(specs []string) (*Pool, error) {
	p := &Pool{
		refreshInterval: defaultRefreshInterval,
		dialer:          &net.Dialer{Timeout: dialTimeout},
		log:             logger.ForProxy(),
	}
	for _, spec := range specs {
		info, err := parse(spec)
		if err != nil {
			return nil, err
		}
		p.entries = append(p.entries, info)
	}
	return p, nil
}

func parse(spec string) (Info, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Info{}, fmt.Errorf("empty proxy entry")
	}
	if !strings.Contains(spec, "://") {
		spec = "http://" + spec
	}
	u, err := url.Parse(spec)
	if err != nil {
		return Info{}, fmt.Errorf("invalid proxy %q: %w", spec, err)
	}
	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case "http", "https", "socks5":
	default:
		return Info{}, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	if u.Port() == "" {
		return Info{}, fmt.Errorf("proxy %q has no port", spec)
	}
	return Info{URL: scheme + "://" + u.Host, Scheme: scheme, Host: u.Host}, nil
}

// Len returns the number of configured proxies
func (p *Pool) Len() int {
	return len(p.entries)
}

// Refresh probes every configured proxy and keeps the working ones sorted by latency
func (p *Pool) Refresh(ctx context.Context) {
	probed := make([]Info, len(p.entries))
	copy(probed, p.entries)

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, maxConcurrentProbes)
	for i := range probed {
		wg.Add(1)
		go func(info *Info) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			p.probe(ctx, info)
		}(&probed[i])
	}
	wg.Wait()

	var working []Info
	for _, info := range probed {
		if info.Working {
			working = append(working, info)
		}
	}
	sort.Slice(working, func(i, j int) bool {
		return working[i].Latency < working[j].Latency
	})

	p.mutex.Lock()
	p.working = working
	p.lastUpdate = time.Now()
	p.mutex.Unlock()

	fastest := "none"
	if len(working) > 0 {
		fastest = working[0].URL
	}
	p.log.Info().
		Int("configured", len(probed)).
		Int("working", len(working)).
		Str("fastest", fastest).
		Msg("Updated proxy list")
}

func (p *Pool) probe(ctx context.Context, info *Info) {
	start := time.Now()
	info.LastTest = start

	conn, err := p.dialer.DialContext(ctx, "tcp", info.Host)
	if err != nil {
		p.log.Debug().Str("proxy", info.URL).Err(err).Msg("TCP connection failed")
		info.Working = false
		return
	}
	defer conn.Close()

	if info.Scheme == "socks5" && !socks5Handshake(conn) {
		p.log.Debug().Str("proxy", info.URL).Msg("SOCKS5 handshake failed")
		info.Working = false
		return
	}

	info.Working = true
	info.Latency = time.Since(start)
	p.log.Debug().Str("proxy", info.URL).Dur("latency", info.Latency).Msg("Proxy working")
}

// socks5Handshake offers the no-auth method and expects it to be accepted
func socks5Handshake(conn net.Conn) bool {
	_ = conn.SetDeadline(time.Now().Add(handshakeTimeout))
	defer conn.SetDeadline(time.Time{})

	if _, err := conn.Write([]byte{0x05, 0x01, 0x00}); err != nil {
		return false
	}
	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return false
	}
	return resp[0] == 0x05 && resp[1] == 0x00
}

// Pick returns the fastest working proxy URL, refreshing a stale list
// first. An empty string means connect directly.
func (p *Pool) Pick(ctx context.Context) string {
	if p.Len() == 0 {
		return ""
	}

	p.mutex.RLock()
	stale := time.Since(p.lastUpdate) > p.refreshInterval
	p.mutex.RUnlock()
	if stale {
		p.Refresh(ctx)
	}

	p.mutex.RLock()
	defer p.mutex.RUnlock()
	if len(p.working) == 0 {
		p.log.Warn().Msg("No working proxies available, connecting directly")
		return ""
	}
	return p.working[0].URL
}

// Top returns up to n working proxies, fastest first
func (p *Pool) Top(n int) []Info {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	if n > len(p.working) {
		n = len(p.working)
	}
	result := make([]Info, n)
	copy(result, p.working[:n])
	return result
}
