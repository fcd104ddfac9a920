package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/cropchain/cropchain-backend/api/responses"
	pkgerrors "github.com/cropchain/cropchain-backend/pkg/errors"
	"github.com/cropchain/cropchain-backend/pkg/logger"
	pkgredis "github.com/cropchain/cropchain-backend/pkg/redis"
)

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

// IdempotencyKeyHeader carries the client supplied replay key.
const IdempotencyKeyHeader = "Idempotency-Key"

// idempotencyRule guards one route. A "*" segment in path matches any single
// segment, including a chi placeholder such as "{notificationId}".
type idempotencyRule struct {
	method   string
	path     string
	ttl      time.Duration
	optional bool
}

var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, path: "/api/v1/cart/items", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, path: "/api/v1/notifications/*/read", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, path: "/api/v1/notifications/read-all", ttl: defaultIdempotencyTTL},
	// checkout works without a key; with one it doubles as the checkout id
	{method: http.MethodPost, path: "/api/v1/checkout", ttl: criticalIdempotencyTTL, optional: true},
}

func (rule idempotencyRule) matches(method, pattern string) bool {
	if rule.method != method {
		return false
	}
	want := strings.Split(rule.path, "/")
	got := strings.Split(pattern, "/")
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] != "*" && want[i] != got[i] {
			return false
		}
	}
	return true
}

// idempotencyRecord is what the key holds: a pending claim while the first
// request runs, then the response to replay.
type idempotencyRecord struct {
	RequestHash string `json:"request_hash"`
	Pending     bool   `json:"pending,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

func (rec idempotencyRecord) encode() (string, error) {
	b, err := json.Marshal(rec)
	return string(b), err
}

// Idempotency replays stored responses for requests that repeat an
// Idempotency-Key on a guarded route. A key reused with another body is
// rejected, a key still in flight conflicts, and 5xx outcomes are dropped so
// the key can be retried.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, ok := routeRule(r.Method, routePattern(r))
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if clientKey == "" {
				if rule.optional {
					next.ServeHTTP(w, r)
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := hashBody(body)
			key := store.IdempotencyKey(buildScope(r), clientKey)

			if err := claimKey(ctx, store, key, hash, rule.ttl); err != nil {
				var replay *storedReplay
				if errors.As(err, &replay) {
					replay.record.writeTo(w)
					return
				}
				responses.WriteError(ctx, logg, w, err)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			if err := store.Del(ctx, key); err != nil {
				logError(ctx, logg, "idempotency.release_failed", err)
				return
			}
			status := capture.statusOrOK()
			if status >= http.StatusInternalServerError {
				return
			}
			payload, err := idempotencyRecord{
				RequestHash: hash,
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			}.encode()
			if err != nil {
				logError(ctx, logg, "idempotency.encode_failed", err)
				return
			}
			if _, err := store.SetNX(ctx, key, payload, rule.ttl); err != nil {
				logError(ctx, logg, "idempotency.persist_failed", err)
			}
		})
	}
}

// storedReplay signals that key already holds a finished response for the
// same request body.
type storedReplay struct {
	record idempotencyRecord
}

func (*storedReplay) Error() string { return "idempotent replay" }

// claimKey reserves key with a pending record. It fails with a *storedReplay
// when a finished response can be replayed, or with a typed error otherwise.
func claimKey(ctx context.Context, store pkgredis.IdempotencyStore, key, hash string, ttl time.Duration) error {
	stored, err := store.Get(ctx, key)
	switch {
	case err != nil && !errors.Is(err, redis.Nil):
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	case err == nil && stored != "":
		var rec idempotencyRecord
		if err := json.Unmarshal([]byte(stored), &rec); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
		}
		if rec.RequestHash != hash {
			return pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body")
		}
		if rec.Pending {
			return errKeyInFlight()
		}
		return &storedReplay{record: rec}
	}

	pending, err := idempotencyRecord{RequestHash: hash, Pending: true}.encode()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode idempotency claim")
	}
	claimed, err := store.SetNX(ctx, key, pending, ttl)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key")
	}
	if !claimed {
		return errKeyInFlight()
	}
	return nil
}

func errKeyInFlight() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is in progress")
}

func (rec idempotencyRecord) writeTo(w http.ResponseWriter) {
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}

// buildScope keys a reservation by caller, method and concrete path.
func buildScope(r *http.Request) string {
	return UserIDFromContext(r.Context()) + "|" + r.Method + "|" + r.URL.Path
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		// middleware on a mounted router still sees the "/*" mount pattern
		if pattern := rc.RoutePattern(); pattern != "" && !strings.HasSuffix(pattern, "*") {
			return pattern
		}
	}
	return r.URL.Path
}

func routeRule(method, pattern string) (idempotencyRule, bool) {
	for _, rule := range idempotencyRules {
		if rule.matches(method, pattern) {
			return rule, true
		}
	}
	return idempotencyRule{}, false
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) statusOrOK() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
