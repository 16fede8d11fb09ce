package directory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.etcd.io/etcd/client/v3/concurrency"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/WeiJinUp/jg-rpc/internal/jlog"
	"github.com/WeiJinUp/jg-rpc/rpcerr"
)

// DefaultNamespace is the default root path, per spec §6.
const DefaultNamespace = "/jg-rpc"

// EtcdDirectory implements Directory on top of go.etcd.io/etcd/client/v3,
// the teacher's own registry backend. Unlike the teacher's EtcdRegistry
// (which issued bare Put/Delete/Get/Watch with a manually managed lease), it
// owns a concurrency.Session so provider leaves are genuinely
// session-scoped: the coordinator removes them itself when the session ends
// (spec §4.3 "the directory MUST delete them when the owning session
// ends"), matching spec §4.3's construction contract ("opens it at
// construction with a configured retry policy").
type EtcdDirectory struct {
	client    *clientv3.Client
	session   *concurrency.Session
	namespace string
	log       *zap.Logger

	mu       sync.Mutex
	ownLeaves map[string]Endpoint // interface -> endpoint, leaves this instance created
}

// EtcdOption configures NewEtcdDirectory.
type EtcdOption func(*etcdConfig)

type etcdConfig struct {
	namespace  string
	logger     *zap.Logger
	maxRetries int
	baseDelay  time.Duration
	sessionTTL int
}

func WithNamespace(ns string) EtcdOption {
	return func(c *etcdConfig) { c.namespace = ns }
}

func WithLogger(l *zap.Logger) EtcdOption {
	return func(c *etcdConfig) { c.logger = l }
}

// WithRetryPolicy bounds the exponential-backoff retry the adapter applies
// while opening its coordinator session at construction time.
func WithRetryPolicy(maxRetries int, baseDelay time.Duration) EtcdOption {
	return func(c *etcdConfig) { c.maxRetries = maxRetries; c.baseDelay = baseDelay }
}

// WithSessionTTL sets the lease TTL (seconds) backing the adapter's session.
func WithSessionTTL(seconds int) EtcdOption {
	return func(c *etcdConfig) { c.sessionTTL = seconds }
}

// NewEtcdDirectory connects to the given etcd endpoints and opens a
// session-scoped lease with bounded exponential-backoff retries.
func NewEtcdDirectory(endpoints []string, opts ...EtcdOption) (*EtcdDirectory, error) {
	cfg := etcdConfig{
		namespace:  DefaultNamespace,
		maxRetries: 5,
		baseDelay:  200 * time.Millisecond,
		sessionTTL: 10,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := jlog.OrNop(cfg.logger)

	client, err := clientv3.New(clientv3.Config{Endpoints: endpoints})
	if err != nil {
		return nil, &rpcerr.DirectoryError{Op: "connect", Cause: err}
	}

	var session *concurrency.Session
	delay := cfg.baseDelay
	for attempt := 0; ; attempt++ {
		session, err = concurrency.NewSession(client, concurrency.WithTTL(cfg.sessionTTL))
		if err == nil {
			break
		}
		if attempt >= cfg.maxRetries {
			client.Close()
			return nil, &rpcerr.DirectoryError{Op: "open-session", Cause: err}
		}
		logger.Warn("directory session open failed, retrying",
			zap.Int("attempt", attempt+1), zap.Duration("delay", delay), zap.Error(err))
		time.Sleep(delay)
		delay *= 2
	}

	return &EtcdDirectory{
		client:    client,
		session:   session,
		namespace: strings.TrimSuffix(cfg.namespace, "/"),
		log:       logger,
		ownLeaves: make(map[string]Endpoint),
	}, nil
}

func (d *EtcdDirectory) providersPrefix(iface string) string {
	return fmt.Sprintf("%s/%s/providers/", d.namespace, iface)
}

func (d *EtcdDirectory) leafKey(iface string, ep Endpoint) string {
	return d.providersPrefix(iface) + ep.String()
}

// Register creates the session-scoped leaf. Parent nodes in etcd's flat
// keyspace need no explicit creation — they exist only as key prefixes — so
// "creating missing parents" collapses to writing the leaf key directly,
// which is itself idempotent (spec §4.3).
func (d *EtcdDirectory) Register(iface string, endpoint Endpoint) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := d.leafKey(iface, endpoint)
	_, err := d.client.Put(ctx, key, endpoint.String(), clientv3.WithLease(d.session.Lease()))
	if err != nil {
		return &rpcerr.DirectoryError{Op: "register", Cause: err}
	}

	d.mu.Lock()
	d.ownLeaves[iface] = endpoint
	d.mu.Unlock()
	return nil
}

// Unregister deletes the leaf, silently succeeding if absent.
func (d *EtcdDirectory) Unregister(iface string, endpoint Endpoint) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := d.leafKey(iface, endpoint)
	if _, err := d.client.Delete(ctx, key); err != nil {
		return &rpcerr.DirectoryError{Op: "unregister", Cause: err}
	}

	d.mu.Lock()
	delete(d.ownLeaves, iface)
	d.mu.Unlock()
	return nil
}

// UnregisterAll deletes every leaf this instance created for endpoint.
// Individual failures are combined with multierr and logged, never returned
// as fatal (spec §4.3, §4.8 step 1: "Failures are logged, not fatal").
func (d *EtcdDirectory) UnregisterAll(endpoint Endpoint) error {
	d.mu.Lock()
	ifaces := make([]string, 0, len(d.ownLeaves))
	for iface, ep := range d.ownLeaves {
		if ep == endpoint {
			ifaces = append(ifaces, iface)
		}
	}
	d.mu.Unlock()

	var combined error
	for _, iface := range ifaces {
		if err := d.Unregister(iface, endpoint); err != nil {
			combined = multierr.Append(combined, err)
			d.log.Warn("unregister_all: leaf delete failed",
				zap.String("interface", iface), zap.Error(err))
		}
	}
	return nil // per spec: logged, not fatal — always returns nil
}

// DiscoverAll enumerates provider leaves for iface. A missing path yields an
// empty list, not an error.
func (d *EtcdDirectory) DiscoverAll(iface string) ([]Endpoint, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := d.client.Get(ctx, d.providersPrefix(iface), clientv3.WithPrefix())
	if err != nil {
		return nil, &rpcerr.DirectoryError{Op: "discover_all", Cause: err}
	}

	prefix := d.providersPrefix(iface)
	endpoints := make([]Endpoint, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		name := strings.TrimPrefix(string(kv.Key), prefix)
		ep, ok := parseLeafName(name)
		if !ok {
			continue // skip malformed entries
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

// Discover returns the first entry of DiscoverAll.
func (d *EtcdDirectory) Discover(iface string) (Endpoint, bool, error) {
	endpoints, err := d.DiscoverAll(iface)
	if err != nil {
		return Endpoint{}, false, err
	}
	if len(endpoints) == 0 {
		return Endpoint{}, false, nil
	}
	return endpoints[0], true, nil
}

// Close releases the session (which in turn revokes its lease, dropping
// every leaf this instance ever registered) and the underlying client.
func (d *EtcdDirectory) Close() error {
	var combined error
	if err := d.session.Close(); err != nil {
		combined = multierr.Append(combined, err)
	}
	if err := d.client.Close(); err != nil {
		combined = multierr.Append(combined, err)
	}
	return combined
}

func parseLeafName(name string) (Endpoint, bool) {
	idx := strings.LastIndex(name, ":")
	if idx < 0 {
		return Endpoint{}, false
	}
	host := name[:idx]
	port, err := strconv.Atoi(name[idx+1:])
	if err != nil || host == "" {
		return Endpoint{}, false
	}
	return Endpoint{Host: host, Port: port}, true
}
