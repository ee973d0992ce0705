package telegram

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/gotd/td/telegram/dcs"
	"golang.org/x/net/proxy"

	"tgup/internal/domain"
)

// resolverFor maps a ProxySpec onto a gotd DC resolver. A nil resolver
// means direct connection.
func resolverFor(spec domain.ProxySpec) (dcs.Resolver, error) {
	switch spec.Kind {
	case domain.ProxyNone:
		return nil, nil
	case domain.ProxyMTProxy:
		secret, err := hex.DecodeString(spec.Secret)
		if err != nil {
			return nil, fmt.Errorf("invalid mtproxy secret: %w", err)
		}
		r, err := dcs.MTProxy(spec.Addr(), secret, dcs.MTProxyOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to set up mtproxy: %w", err)
		}
		return r, nil
	case domain.ProxySOCKS5:
		var auth *proxy.Auth
		if spec.Username != "" {
			auth = &proxy.Auth{User: spec.Username, Password: spec.Password}
		}
		d, err := proxy.SOCKS5("tcp", spec.Addr(), auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to set up socks5 proxy: %w", err)
		}
		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("socks5 dialer does not support contexts")
		}
		return dcs.Plain(dcs.PlainOptions{Dial: cd.DialContext}), nil
	case domain.ProxyHTTP:
		return dcs.Plain(dcs.PlainOptions{Dial: (&httpConnectDialer{spec: spec}).DialContext}), nil
	case domain.ProxySOCKS4:
		return nil, fmt.Errorf("socks4 proxies are not supported by this transport")
	default:
		return nil, fmt.Errorf("unknown proxy kind %d", spec.Kind)
	}
}

// httpConnectDialer tunnels TCP through an HTTP proxy via CONNECT.
type httpConnectDialer struct {
	spec domain.ProxySpec
}

func (d *httpConnectDialer) DialContext(ctx context.Context, _ string, addr string) (net.Conn, error) {
	var nd net.Dialer
	conn, err := nd.DialContext(ctx, "tcp", d.spec.Addr())
	if err != nil {
		return nil, fmt.Errorf("failed to reach http proxy: %w", err)
	}

	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: addr},
		Host:   addr,
		Header: make(http.Header),
	}
	if d.spec.Username != "" {
		cred := base64.StdEncoding.EncodeToString([]byte(d.spec.Username + ":" + d.spec.Password))
		req.Header.Set("Proxy-Authorization", "Basic "+cred)
	}

	if err := req.Write(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send CONNECT: %w", err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read CONNECT response: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		conn.Close()
		return nil, fmt.Errorf("http proxy refused CONNECT: %s", resp.Status)
	}

	return conn, nil
}
