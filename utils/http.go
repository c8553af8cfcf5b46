package utils

import (
	"net/http"
	"time"
)

const (
	UserAgent = "Crooner/1.0 <github.com/marcus-crane/crooner>"
)

type UARoundtripper struct {
	RT http.RoundTripper
}

func (uart *UARoundtripper) RoundTrip(req *http.Request) (*http.Response, error) {
	rt := uart.RT
	if rt == nil {
		rt = http.DefaultTransport
	}
	req.Header.Set("User-Agent", UserAgent)
	return rt.RoundTrip(req)
}

// NewHTTPClient returns the shared client used for all upstream calls.
// Spotify and cover art CDNs are occasionally slow so we enforce an upper
// bound rather than hanging a request worker indefinitely.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   10 * time.Second,
		Transport: &UARoundtripper{},
	}
}
