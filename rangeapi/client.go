package rangeapi

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gamma-omg/pwnaudit/sortedfile"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.pwnedpasswords.com/range/"

	ModeSHA1 = "sha1"
	ModeNTLM = "ntlm"

	PrefixLen = 5
)

type ClientConfig struct {
	BaseURL           string
	Mode              string
	MaxRetry          int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
	RequestsPerSecond float64
	Logger            *slog.Logger
}

type Entry struct {
	Hash  string
	Count uint64
}

type Client struct {
	http    *retryablehttp.Client
	limiter *rate.Limiter
	baseURL string
	mode    string
}

func NewClient(cfg ClientConfig) *Client {
	c := retryablehttp.NewClient()
	c.RetryMax = cfg.MaxRetry
	if cfg.RetryWaitMin > 0 {
		c.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		c.RetryWaitMax = cfg.RetryWaitMax
	}
	c.HTTPClient.Transport.(*http.Transport).MaxIdleConnsPerHost = 100
	c.Logger = nil
	if cfg.Logger != nil {
		c.Logger = cfg.Logger
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		http:    c,
		limiter: rate.NewLimiter(limit, 1),
		baseURL: baseURL,
		mode:    cfg.Mode,
	}
}

// Range fetches every hash starting with prefix, sorted ascending.
func (c *Client) Range(ctx context.Context, prefix string) ([]Entry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := c.baseURL + prefix
	if c.mode == ModeNTLM {
		url += "?mode=ntlm"
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for prefix %s: %w", prefix, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prefix %s: %w", prefix, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d for prefix %s", resp.StatusCode, prefix)
	}

	entries, err := parseRange(prefix, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("prefix %s: %w", prefix, err)
	}

	return entries, nil
}

func parseRange(prefix string, r io.Reader) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if len(strings.TrimSpace(scanner.Text())) == 0 {
			continue
		}

		suffix, value, err := sortedfile.ParseLine(scanner.Bytes())
		if err != nil {
			return nil, err
		}

		count, err := strconv.ParseUint(string(value), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad count %q", sortedfile.ErrMalformedLine, value)
		}

		// Padding entries carry a zero count.
		if count == 0 {
			continue
		}

		entries = append(entries, Entry{
			Hash:  prefix + strings.ToUpper(string(suffix)),
			Count: count,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Hash, b.Hash)
	})

	return entries, nil
}

func FormatPrefix(p int) string {
	return fmt.Sprintf("%0*X", PrefixLen, p)
}

func ParsePrefix(s string) (int, error) {
	if len(s) != PrefixLen {
		return 0, fmt.Errorf("prefix %q must be %d hex characters", s, PrefixLen)
	}

	p, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("prefix %q is not hexadecimal: %w", s, err)
	}

	return int(p), nil
}
