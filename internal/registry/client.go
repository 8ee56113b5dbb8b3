// Package registry talks to the target image registry over the distribution
// API: reachability probe, catalog and tag listing.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/retry"

	"github.com/bnema/tarpush/internal/domain"
	"github.com/bnema/tarpush/pkg/logger"
)

const DefaultProbeTimeout = 5 * time.Second

type Config struct {
	// URL is "http://host:port", "https://host" or a bare "host:port".
	URL          string
	Insecure     bool
	Username     string
	Password     string
	ProbeTimeout time.Duration
	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client
}

// Repository is a catalog entry with its tags.
type Repository struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

type Client struct {
	reg          *remote.Registry
	host         string
	url          string
	probeTimeout time.Duration
	log          *logger.Logger
}

// ParseHost returns the host[:port] of a registry URL and whether it should be
// spoken to over plain HTTP. A bare loopback host is plain HTTP, matching the
// engine's insecure default for local registries.
func ParseHost(raw string) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, errors.New("registry url is empty")
	}
	if !strings.Contains(raw, "://") {
		host := strings.TrimSuffix(raw, "/")
		return host, isLoopback(host), nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("invalid registry url %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid registry url %q: missing host", raw)
	}
	return u.Host, u.Scheme == "http", nil
}

func isLoopback(host string) bool {
	name := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		name = h
	}
	name = strings.Trim(name, "[]")
	if strings.EqualFold(name, "localhost") {
		return true
	}
	ip := net.ParseIP(name)
	return ip != nil && ip.IsLoopback()
}

func New(cfg Config, log *logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	host, plain, err := ParseHost(cfg.URL)
	if err != nil {
		return nil, err
	}

	reg, err := remote.NewRegistry(host)
	if err != nil {
		return nil, fmt.Errorf("invalid registry host %q: %w", host, err)
	}
	reg.PlainHTTP = plain || cfg.Insecure

	base := retry.DefaultClient
	if cfg.HTTPClient != nil {
		base = cfg.HTTPClient
	}
	ac := &auth.Client{
		Client: base,
		Cache:  auth.NewCache(),
	}
	if cfg.Username != "" {
		ac.Credential = auth.StaticCredential(host, auth.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}
	ac.SetUserAgent("tarpush")
	reg.Client = ac

	probe := cfg.ProbeTimeout
	if probe <= 0 {
		probe = DefaultProbeTimeout
	}

	scheme := "https"
	if reg.PlainHTTP {
		scheme = "http"
	}
	return &Client{
		reg:          reg,
		host:         host,
		url:          scheme + "://" + host,
		probeTimeout: probe,
		log:          log,
	}, nil
}

// Host is the host[:port] images are tagged under.
func (c *Client) Host() string {
	return c.host
}

// URL is the base URL of the registry API.
func (c *Client) URL() string {
	return c.url
}

// Ping issues GET /v2/. The result is advisory: callers push regardless.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	if err := c.reg.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrRegistryUnreachable, c.url, err)
	}
	return nil
}

// Catalog lists repositories from /v2/_catalog and the tags of each. A tag
// listing failure leaves that repository with no tags instead of failing.
func (c *Client) Catalog(ctx context.Context) ([]Repository, error) {
	var names []string
	err := c.reg.Repositories(ctx, "", func(repos []string) error {
		names = append(names, repos...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: catalog: %v", domain.ErrRegistryUnreachable, err)
	}
	sort.Strings(names)

	out := make([]Repository, 0, len(names))
	for _, name := range names {
		entry := Repository{Name: name, Tags: []string{}}
		tags, err := c.Tags(ctx, name)
		if err != nil {
			c.log.Warn("Failed to list tags", "repository", name, "error", err)
		} else {
			entry.Tags = tags
		}
		out = append(out, entry)
	}
	return out, nil
}

// Tags lists the tags of one repository.
func (c *Client) Tags(ctx context.Context, name string) ([]string, error) {
	repo, err := c.reg.Repository(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("invalid repository %q: %w", name, err)
	}
	tags := []string{}
	err = repo.Tags(ctx, "", func(page []string) error {
		tags = append(tags, page...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tags of %s: %w", name, err)
	}
	sort.Strings(tags)
	return tags, nil
}
