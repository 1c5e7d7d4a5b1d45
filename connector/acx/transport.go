package acx

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"orderflow/config"
	"orderflow/internal/channel"
	"orderflow/logger"
	"orderflow/models"

	"golang.org/x/time/rate"
)

// apiPrefix is part of the signature payload, so it is fixed here rather
// than folded into the configured base URL.
const apiPrefix = "/api/v2"

// Transport issues REST calls against the venue. It owns the request
// signing secret and the process-lifetime nonce; every signed request
// attempt consumes one nonce, retries included, and the counter is never
// reset while the connector runs.
type Transport struct {
	baseURL   string
	accessKey string
	secretKey string
	client    *http.Client
	limiter   *rate.Limiter
	nonce     atomic.Int64
	log       *logger.Log
}

// NewTransport creates a transport from the venue configuration and
// announces Connected on the connectivity hub after a short delay. The
// announcement models the initial handshake only; it does not imply the
// venue is actually reachable.
func NewTransport(cfg *config.Config, connectivity *channel.Hub[models.ConnectivityStatus]) *Transport {
	log := logger.GetLogger()

	t := &Transport{
		baseURL:   cfg.Venue.RestURL,
		accessKey: cfg.Venue.AccessKey,
		secretKey: cfg.Venue.SecretKey,
		client: &http.Client{
			Timeout: time.Duration(cfg.Venue.TimeoutMs) * time.Millisecond,
		},
		limiter: rate.NewLimiter(
			rate.Limit(cfg.Venue.RateLimit.RequestsPerSecond),
			cfg.Venue.RateLimit.BurstSize,
		),
		log: log,
	}

	// Seeding from wall clock keeps nonces ahead of any issued by a
	// previous run of the connector.
	t.nonce.Store(time.Now().UnixMilli())

	go func() {
		time.Sleep(250 * time.Millisecond)
		connectivity.Publish(models.ConnectivityConnected)
		log.WithComponent("acx_transport").Info("connectivity announced")
	}()

	log.WithComponent("acx_transport").WithFields(logger.Fields{
		"base_url":   cfg.Venue.RestURL,
		"timeout_ms": cfg.Venue.TimeoutMs,
	}).Info("transport initialized")

	return t
}

// nextNonce atomically advances and returns the nonce, so concurrent
// signed calls never observe the same value.
func (t *Transport) nextNonce() int64 {
	return t.nonce.Add(1)
}

// Get issues an unauthenticated GET and returns the parsed JSON body.
func (t *Transport) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	fullURL := t.baseURL + apiPrefix + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	return t.dispatch(ctx, http.MethodGet, fullURL)
}

// SignedCall issues an authenticated request. All parameters travel in
// the query string; the signature payload is
// METHOD|<canonical path>|<sorted query including access_key and tonce>
// and the HMAC-SHA256 hex digest is appended as the signature parameter.
// A stale-nonce rejection is retried with a freshly minted nonce and the
// same logical parameters; this is the only automatic retry in the
// connector.
func (t *Transport) SignedCall(ctx context.Context, method, path string, params url.Values) (json.RawMessage, error) {
	signed := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			signed.Add(k, v)
		}
	}
	signed.Set("access_key", t.accessKey)
	signed.Set("tonce", strconv.FormatInt(t.nextNonce(), 10))

	canonical := signed.Encode()
	payload := method + "|" + apiPrefix + path + "|" + canonical

	mac := hmac.New(sha256.New, []byte(t.secretKey))
	mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))

	fullURL := t.baseURL + apiPrefix + path + "?" + canonical + "&signature=" + signature

	raw, err := t.dispatch(ctx, method, fullURL)
	if err != nil {
		return nil, err
	}

	if isStaleNonce(raw) {
		t.log.WithComponent("acx_transport").WithFields(logger.Fields{
			"path": path,
		}).Warn("venue rejected nonce as stale, retrying with fresh nonce")
		return t.SignedCall(ctx, method, path, params)
	}

	return raw, nil
}

func (t *Transport) dispatch(ctx context.Context, method, fullURL string) (json.RawMessage, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{URL: fullURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, &TransportError{URL: fullURL, Err: err}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: fullURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: fullURL, Err: err}
	}

	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &TransportError{URL: fullURL, Body: string(body), Err: err}
	}

	return raw, nil
}
