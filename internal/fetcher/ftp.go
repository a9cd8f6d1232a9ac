package fetcher

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/shortsale-cli/internal/model"
	"github.com/sells-group/shortsale-cli/pkg/apify"
)

// FTPSource reads a JSON drop of raw scraped records from an FTP server.
type FTPSource struct {
	URL     string
	Timeout time.Duration
}

// NewFTPSource creates an FTP-backed source for a ftp:// URL.
func NewFTPSource(rawURL string) *FTPSource {
	return &FTPSource{
		URL:     rawURL,
		Timeout: 30 * time.Second,
	}
}

// parseFTPURL extracts host (with port) and path from an FTP URL.
func parseFTPURL(rawURL string) (host string, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "fetcher: parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("fetcher: expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	path = u.Path
	if path == "" {
		return "", "", eris.New("fetcher: empty path in ftp url")
	}

	return host, path, nil
}

func (s *FTPSource) Fetch(ctx context.Context) ([]model.Listing, error) {
	host, path, err := parseFTPURL(s.URL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("ftp: connecting", zap.String("host", host), zap.String("path", path))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(s.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: ftp dial")
	}
	defer conn.Quit() //nolint:errcheck

	user, pass := "anonymous", "anonymous@"
	if u, parseErr := url.Parse(s.URL); parseErr == nil && u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	if err := conn.Login(user, pass); err != nil {
		return nil, eris.Wrap(err, "fetcher: ftp login")
	}

	resp, err := conn.Retr(path)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: ftp retrieve")
	}
	defer resp.Close() //nolint:errcheck

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: ftp read")
	}

	var items []apify.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, eris.Wrap(err, "fetcher: decode ftp items")
	}
	return MapItems(items), nil
}
