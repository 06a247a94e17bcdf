package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/carlmjohnson/requests"

	"transparencia/internal"
	"transparencia/internal/config"
	"transparencia/internal/util"
)

var ErrResourceNotFound = errors.New("portal: csv resource not found on dataset page")

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
	logger     *slog.Logger
	backoff    func(attempt int) time.Duration
}

func NewClient(cfg config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.HTTPRateLimitRPS),
		logger:     logger,
		backoff:    defaultBackoff,
	}
}

// FetchPayroll downloads the "relação de vínculos" CSV of one department for one period.
func (c *Client) FetchPayroll(ctx context.Context, deptID string, p internal.Period) ([]byte, error) {
	deptID = strings.TrimSpace(deptID)
	if deptID == "" {
		return nil, errors.New("portal: empty department id")
	}
	return c.fetch(ctx, "payroll "+deptID+" "+p.String(), func() *requests.Builder {
		return requests.URL(c.cfg.PayrollBaseURL).
			Path("/"+url.PathEscape(deptID)+"/rh/relatorios/relacao_vinculos_oc").
			Param("mes", strconv.Itoa(p.Month)).
			Param("ano", strconv.Itoa(p.Year)).
			Param("total", strconv.Itoa(c.cfg.PayrollRowLimit)).
			Param("docType", "csv")
	})
}

func (c *Client) FetchFile(ctx context.Context, rawURL string) ([]byte, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, errors.New("portal: empty url")
	}
	return c.fetch(ctx, rawURL, func() *requests.Builder {
		return requests.URL(rawURL)
	})
}

// ResolveCKANResource finds the csv download link on a CKAN dataset page. match, when
// set, must appear in the link.
func (c *Client) ResolveCKANResource(ctx context.Context, datasetURL, match string) (string, error) {
	base, err := url.Parse(datasetURL)
	if err != nil {
		return "", fmt.Errorf("portal: dataset url: %w", err)
	}
	page, err := c.fetch(ctx, datasetURL, func() *requests.Builder {
		return requests.URL(datasetURL).Accept("text/html")
	})
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("portal: parse dataset page: %w", err)
	}

	found := ""
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		lower := strings.ToLower(href)
		if !strings.HasSuffix(lower, ".csv") {
			return true
		}
		if match != "" && !util.ContainsFold(href, match) {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		found = base.ResolveReference(ref).String()
		return false
	})
	if found == "" {
		return "", ErrResourceNotFound
	}
	return found, nil
}

func (c *Client) fetch(ctx context.Context, label string, build func() *requests.Builder) ([]byte, error) {
	attempts := c.cfg.HTTPMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.limiter.WaitTurn(ctx); err != nil {
			return nil, err
		}

		var buf bytes.Buffer
		err := build().
			Client(c.httpClient).
			UserAgent(c.cfg.HTTPUserAgent).
			ToBytesBuffer(&buf).
			Fetch(ctx)
		if err == nil {
			return buf.Bytes(), nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		var respErr *requests.ResponseError
		if errors.As(err, &respErr) && !isRetryableStatus(respErr.StatusCode) {
			return nil, fmt.Errorf("portal: %s: status %d: %w", label, respErr.StatusCode, err)
		}
		if attempt < attempts {
			c.logger.Debug("portal request retry", "target", label, "attempt", attempt, "error", err)
			if err := sleepCtx(ctx, c.backoff(attempt)); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("portal: %s: %w", label, lastErr)
}

func defaultBackoff(attempt int) time.Duration {
	return time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
