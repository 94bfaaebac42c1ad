package remote

import (
	"net"
	"net/http"
	"time"
)

// Timeouts bound each phase of a remote call.
type Timeouts struct {
	Connect time.Duration
	Read    time.Duration
	Write   time.Duration
}

// DefaultTimeouts returns 4s connect and 6s read/write.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Connect: 4 * time.Second,
		Read:    6 * time.Second,
		Write:   6 * time.Second,
	}
}

// Total is the end-to-end budget of one request.
func (t Timeouts) Total() time.Duration {
	return t.Connect + t.Read + t.Write
}

// NewTransport returns an *http.Transport with the connect timeout on the dialer
// and the read timeout on the response headers.
func NewTransport(t Timeouts) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   t.Connect,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   t.Connect,
		ResponseHeaderTimeout: t.Read,
		ExpectContinueTimeout: time.Second,
	}
}

// NewHTTPClient builds the client used by DataSource. A nil rt selects
// NewTransport(t). The client timeout is t.Total().
func NewHTTPClient(t Timeouts, rt http.RoundTripper) *http.Client {
	if rt == nil {
		rt = NewTransport(t)
	}
	return &http.Client{
		Transport: rt,
		Timeout:   t.Total(),
	}
}
