package submission

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// NormalizeImageURL returns a canonical form of an image URL typed by a user.
//
// Rules:
//   - Surrounding whitespace is trimmed
//   - Only absolute http and https URLs with a host are accepted
//   - Scheme and host are lower-cased
//   - Default ports (http:80, https:443) are dropped, others kept
//   - The fragment is removed
//
// Path and query are kept byte-for-byte since image hosts often sign them.
func NormalizeImageURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("could not parse URL: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("URL has no host")
	}

	host := strings.ToLower(u.Host)
	port := ""
	if ph, pp, err := net.SplitHostPort(host); err == nil {
		host, port = ph, pp
	} // else: host without explicit port
	if port != "" {
		if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
			u.Host = bracketIPv6(host)
		} else {
			u.Host = net.JoinHostPort(host, port)
		}
	} else {
		u.Host = host
	}

	u.Fragment = ""
	u.RawFragment = ""

	return u.String(), nil
}

func bracketIPv6(host string) string {
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}

	return host
}
