package web

import (
	"fmt"
	"log"
	"net"
	"os"
	"strconv"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the mDNS service the status page is advertised as.
const ServiceType = "_http._tcp"

// Advertiser announces the status page on the local network.
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers the status page listening on addr via mDNS.
func Advertise(addr string) (*Advertiser, error) {
	port, err := portFromAddr(addr)
	if err != nil {
		return nil, err
	}
	host, _ := os.Hostname()
	server, err := zeroconf.Register(
		instanceName(host),
		ServiceType,
		"local.",
		port,
		[]string{"path=/", "json=/index.json", "live=/live"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("register mdns service: %w", err)
	}
	log.Printf("web: mdns advertising %s on port %d", ServiceType, port)
	return &Advertiser{server: server}, nil
}

// Shutdown withdraws the advertisement.
func (a *Advertiser) Shutdown() {
	a.server.Shutdown()
}

func instanceName(host string) string {
	if host == "" {
		return "measure-sync"
	}
	return "measure-sync-" + host
}

func portFromAddr(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("parse http addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("http addr %q has no usable port", addr)
	}
	return port, nil
}
