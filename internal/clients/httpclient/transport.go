package httpclient

import (
	"net"
	"net/http"
	"net/url"
	"time"
)

// NewHTTPClient создаёт клиент, привязанный к прокси аккаунта.
// proxy == nil — прямое соединение (переменные окружения HTTP_PROXY не учитываются).
// Поддерживаются схемы http, https, socks5 и socks5h.
func NewHTTPClient(proxy *url.URL, timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
