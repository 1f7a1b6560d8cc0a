package cmapi

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
)

// SignatureHeader carries the base64 HMAC-SHA256 digest of the raw request body.
const SignatureHeader = "x-adobe-signature"

// DefaultMaxWebhookBody bounds the size of an accepted notification.
const DefaultMaxWebhookBody = 1 << 20

// ComputeSignature returns base64(HMAC-SHA256(secret, body)).
func ComputeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ValidSignature reports whether signature is the digest of body under secret.
// A mismatch is not an error; the comparison runs in constant time.
func ValidSignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}

	expected := ComputeSignature(body, secret)

	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

// VerifySignature is ValidSignature returning ErrMissingSignature or ErrInvalidSignature.
func VerifySignature(body []byte, signature, secret string) error {
	if strings.TrimSpace(signature) == "" {
		return ErrMissingSignature
	}

	if !ValidSignature(body, signature, secret) {
		return ErrInvalidSignature
	}

	return nil
}

// EventCallback receives an authenticated event of a known kind and its raw payload.
type EventCallback func(ctx context.Context, event Event, raw []byte) error

// UnknownEventCallback receives an authenticated event whose kind is not registered.
type UnknownEventCallback func(ctx context.Context, envelope *EventEnvelope) error

// WebhookOption configures a WebhookHandler.
type WebhookOption func(*WebhookHandler)

// WithWebhookLogger sets the handler logger.
func WithWebhookLogger(logger Logger) WebhookOption {
	return func(h *WebhookHandler) {
		h.logger = logger
	}
}

// WithUnknownEventCallback sets the callback for unregistered event kinds.
func WithUnknownEventCallback(callback UnknownEventCallback) WebhookOption {
	return func(h *WebhookHandler) {
		h.onUnknown = callback
	}
}

// WithMaxBodyBytes overrides DefaultMaxWebhookBody.
func WithMaxBodyBytes(limit int64) WebhookOption {
	return func(h *WebhookHandler) {
		if limit > 0 {
			h.maxBody = limit
		}
	}
}

// WebhookHandler receives Cloud Manager notifications.
//
// GET requests carrying a challenge query parameter are answered with the challenge,
// which completes webhook registration. POST requests are authenticated against the
// signature header, classified and passed to the callback:
//
//	401 missing or invalid signature
//	400 malformed payload
//	202 authenticated event of an unregistered kind
//	500 callback failure
//	200 event delivered
type WebhookHandler struct {
	secret    string
	onEvent   EventCallback
	onUnknown UnknownEventCallback
	logger    Logger
	maxBody   int64
}

// NewWebhookHandler creates a handler verifying signatures with secret.
func NewWebhookHandler(secret string, onEvent EventCallback, opts ...WebhookOption) *WebhookHandler {
	h := &WebhookHandler{
		secret:  secret,
		onEvent: onEvent,
		maxBody: DefaultMaxWebhookBody,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// ServeHTTP implements http.Handler.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.serveChallenge(w, r)
	case http.MethodPost:
		h.serveEvent(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

func (h *WebhookHandler) serveChallenge(w http.ResponseWriter, r *http.Request) {
	challenge := r.URL.Query().Get("challenge")
	if challenge == "" {
		http.Error(w, "missing challenge", http.StatusBadRequest)

		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, challenge)
}

func (h *WebhookHandler) serveEvent(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, h.maxBody+1))
	if err != nil {
		h.log("reading webhook body failed", map[string]interface{}{"error": err.Error()})
		http.Error(w, "unreadable body", http.StatusBadRequest)

		return
	}

	if int64(len(raw)) > h.maxBody {
		http.Error(w, "body too large", http.StatusRequestEntityTooLarge)

		return
	}

	err = VerifySignature(raw, r.Header.Get(SignatureHeader), h.secret)
	if err != nil {
		h.log("rejected webhook", map[string]interface{}{"reason": err.Error()})
		http.Error(w, err.Error(), http.StatusUnauthorized)

		return
	}

	event, err := DecodeEvent(raw)
	if err != nil {
		h.log("malformed webhook payload", map[string]interface{}{"error": err.Error()})
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	if event == nil {
		h.serveUnknown(w, r, raw)

		return
	}

	if h.onEvent != nil {
		err = h.onEvent(r.Context(), event, raw)
		if err != nil {
			h.log("event callback failed", map[string]interface{}{
				"kind":  event.Kind().String(),
				"error": err.Error(),
			})
			http.Error(w, "event handling failed", http.StatusInternalServerError)

			return
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) serveUnknown(w http.ResponseWriter, r *http.Request, raw []byte) {
	envelope, err := ReadEnvelope(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	if h.onUnknown != nil {
		err = h.onUnknown(r.Context(), envelope)
		if err != nil {
			h.log("unknown event callback failed", map[string]interface{}{"error": err.Error()})
			http.Error(w, "event handling failed", http.StatusInternalServerError)

			return
		}
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *WebhookHandler) log(msg string, fields map[string]interface{}) {
	if h.logger != nil {
		h.logger.Warn(msg, fields)
	}
}

// ParseEvent authenticates and decodes a notification outside of an HTTP handler.
// Unknown kinds yield (nil, nil).
func ParseEvent(raw []byte, signature, secret string) (Event, error) {
	err := VerifySignature(raw, signature, secret)
	if err != nil {
		return nil, err
	}

	return DecodeEvent(raw)
}
