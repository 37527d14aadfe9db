package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// mDNS constants.
const (
	ServiceType = "_simpa-bridge._tcp"
	Domain      = "local."

	// DefaultTTL is the advertised record TTL.
	DefaultTTL = 120 * time.Second
)

// ErrNoHost means discovery found no bridge host before its timeout.
var ErrNoHost = errors.New("no telemetry host found")

// Advertise announces a bridge host on the local network. Call Shutdown on
// the returned server to withdraw it.
func Advertise(instance string, port int, scenario string) (*zeroconf.Server, error) {
	txt := []string{"v=1"}
	if scenario != "" {
		txt = append(txt, "scenario="+scenario)
	}
	server, err := zeroconf.Register(
		instance,
		ServiceType,
		Domain,
		port,
		txt,
		nil, // all interfaces
		zeroconf.TTL(uint32(DefaultTTL.Seconds())),
	)
	if err != nil {
		return nil, fmt.Errorf("advertise %s: %w", ServiceType, err)
	}
	slog.Info("advertising telemetry host", "instance", instance, "port", port)
	return server, nil
}

// Discover browses for a bridge host and returns the address of the first
// usable entry.
func Discover(ctx context.Context, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		if err := zeroconf.Browse(ctx, ServiceType, Domain, entries, removed); err != nil {
			slog.Debug("mdns browse ended", "error", err)
		}
	}()

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return "", ErrNoHost
			}
			if addr, ok := entryAddr(entry); ok {
				slog.Info("discovered telemetry host", "instance", entry.Instance, "addr", addr)
				return addr, nil
			}
		case <-removed:
		case <-ctx.Done():
			return "", ErrNoHost
		}
	}
}

// entryAddr picks a dialable address, preferring IPv4.
func entryAddr(e *zeroconf.ServiceEntry) (string, bool) {
	if e == nil || e.Port <= 0 {
		return "", false
	}
	port := strconv.Itoa(e.Port)
	if len(e.AddrIPv4) > 0 {
		return net.JoinHostPort(e.AddrIPv4[0].String(), port), true
	}
	if len(e.AddrIPv6) > 0 {
		return net.JoinHostPort(e.AddrIPv6[0].String(), port), true
	}
	if e.HostName != "" {
		return net.JoinHostPort(e.HostName, port), true
	}
	return "", false
}
