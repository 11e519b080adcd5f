// Package discovery locates a SAM2 inference server on the local network.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is advertised by inference servers
	ServiceType = "_sam2._tcp"

	ServiceDomain = "local."

	DefaultTimeout = 5 * time.Second

	// pathKey names the TXT record holding the websocket path
	pathKey = "path="
)

var ErrNotFound = errors.New("no inference server found")

// Server is a resolved inference endpoint.
type Server struct {
	Instance string
	Host     string
	Port     int
	Path     string
}

// URL returns the websocket address of the server.
func (s Server) URL() string {
	path := s.Path
	if path == "" {
		path = "/ws"
	}
	return "ws://" + net.JoinHostPort(s.Host, strconv.Itoa(s.Port)) + path
}

// Find browses for the first advertised inference server.
func Find(ctx context.Context, timeout time.Duration) (Server, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return Server{}, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan Server, 1)

	go func() {
		for entry := range entries {
			if srv, ok := parseEntry(entry); ok {
				select {
				case found <- srv:
				default:
				}
				cancel()
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return Server{}, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case srv := <-found:
		return srv, nil
	case <-ctx.Done():
		select {
		case srv := <-found:
			return srv, nil
		default:
		}
		return Server{}, fmt.Errorf("%w within %s", ErrNotFound, timeout)
	}
}

func parseEntry(entry *zeroconf.ServiceEntry) (Server, bool) {
	if entry == nil || entry.Port == 0 {
		return Server{}, false
	}

	var host string
	switch {
	case len(entry.AddrIPv4) > 0:
		host = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		host = entry.AddrIPv6[0].String()
	case entry.HostName != "":
		host = entry.HostName
	default:
		return Server{}, false
	}

	srv := Server{Instance: entry.Instance, Host: host, Port: entry.Port}
	for _, txt := range entry.Text {
		if len(txt) > len(pathKey) && txt[:len(pathKey)] == pathKey {
			srv.Path = txt[len(pathKey):]
		}
	}
	return srv, true
}
