package crm

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"syscall"
	"time"
)

// maxFetchRedirects bounds redirects followed while fetching a file URL.
const maxFetchRedirects = 5

// newFetchClient returns the client used for file URLs. It never goes through
// a proxy and re-checks the host on every redirect and the address on every
// dial, so a public name cannot be pointed at an internal address.
func (c *Client) newFetchClient(timeout time.Duration) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = nil
	tr.DialContext = c.dialFetch
	return &http.Client{
		Timeout:   timeout,
		Transport: tr,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxFetchRedirects {
				return fmt.Errorf("stopped after %d redirects", maxFetchRedirects)
			}
			if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
				return fmt.Errorf("%w: redirect to %s", ErrBlockedSource, req.URL.Scheme)
			}
			return c.checkFileHost(req.URL.Hostname())
		},
	}
}

func (c *Client) listedHost(host string) bool {
	_, ok := c.fileHosts[strings.ToLower(host)]
	return ok
}

// checkFileHost applies the host list and rejects internal IP literals
// before any connection is made.
func (c *Client) checkFileHost(host string) error {
	if c.listedHost(host) {
		return nil
	}
	if len(c.fileHosts) > 0 {
		return fmt.Errorf("%w: host %q is not in the file host list", ErrBlockedSource, host)
	}
	if addr, err := netip.ParseAddr(host); err == nil && !publicAddr(addr) {
		return fmt.Errorf("%w: internal address %s", ErrBlockedSource, addr)
	}
	return nil
}

func (c *Client) dialFetch(ctx context.Context, network, address string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	d := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	if !c.listedHost(host) {
		d.Control = rejectInternal
	}
	return d.DialContext(ctx, network, address)
}

// rejectInternal runs after name resolution, on the address actually dialed.
func rejectInternal(_, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBlockedSource, err)
	}
	if !publicAddr(ap.Addr()) {
		return fmt.Errorf("%w: internal address %s", ErrBlockedSource, ap.Addr())
	}
	return nil
}

// sharedAddressSpace is the carrier-grade NAT range (RFC 6598).
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

func publicAddr(a netip.Addr) bool {
	a = a.Unmap()
	switch {
	case !a.IsValid(),
		a.IsUnspecified(),
		a.IsLoopback(),
		a.IsPrivate(),
		a.IsLinkLocalUnicast(),
		a.IsLinkLocalMulticast(),
		a.IsInterfaceLocalMulticast(),
		a.IsMulticast(),
		sharedAddressSpace.Contains(a):
		return false
	}
	return true
}
