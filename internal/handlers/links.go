package handlers

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/tinylink/internal/events"
	"github.com/serroba/tinylink/internal/messaging"
	"github.com/serroba/tinylink/internal/shortener"
	"go.uber.org/zap"
)

//go:embed notfound.html
var notFoundPage []byte

const htmlContentType = "text/html; charset=utf-8"

// Issuer issues unique tokens for URLs.
type Issuer interface {
	Issue(ctx context.Context, url string) (shortener.Token, error)
}

// Observer receives request outcomes for metrics.
type Observer interface {
	ObserveIssue(err error)
	ObservePublishFailure()
}

type nopObserver struct{}

func (nopObserver) ObserveIssue(error)     {}
func (nopObserver) ObservePublishFailure() {}

// NopObserver discards all observations.
var NopObserver Observer = nopObserver{}

// LinkHandler serves issuance and resolution.
type LinkHandler struct {
	issuer            Issuer
	registry          shortener.Registry
	baseURL           string
	publishLinkIssued messaging.Publish[events.LinkIssued]
	observer          Observer
	logger            *zap.Logger
}

// NewLinkHandler creates a new link handler.
func NewLinkHandler(
	issuer Issuer,
	registry shortener.Registry,
	baseURL string,
	publishLinkIssued messaging.Publish[events.LinkIssued],
	observer Observer,
	logger *zap.Logger,
) *LinkHandler {
	return &LinkHandler{
		issuer:            issuer,
		registry:          registry,
		baseURL:           baseURL,
		publishLinkIssued: publishLinkIssued,
		observer:          observer,
		logger:            logger,
	}
}

func (h *LinkHandler) IssueLink(ctx context.Context, req *IssueRequest) (*IssueResponse, error) {
	token, err := h.issuer.Issue(ctx, req.Body.URL)
	h.observer.ObserveIssue(err)

	if err != nil {
		switch {
		case errors.Is(err, shortener.ErrInvalidInput):
			return nil, huma.Error400BadRequest("missing url", err)
		case errors.Is(err, shortener.ErrExhausted):
			h.logger.Error("token space exhausted", zap.Error(err))

			return nil, huma.Error500InternalServerError("failed to generate unique token")
		default:
			h.logger.Error("failed to issue token", zap.Error(err))

			return nil, huma.Error500InternalServerError("internal error")
		}
	}

	// The token is already reserved; a lost event only means a colder cache.
	event := &events.LinkIssued{
		Token:    string(token),
		URL:      req.Body.URL,
		IssuedAt: time.Now().UTC(),
	}

	if err := h.publishLinkIssued(ctx, event); err != nil {
		h.observer.ObservePublishFailure()
		h.logger.Warn("failed to publish link issued event",
			zap.String("token", event.Token),
			zap.Error(err),
		)
	}

	shortURL := fmt.Sprintf("%s/t/%s", h.baseURL, token)

	resp := &IssueResponse{}
	resp.Headers.Location = shortURL
	resp.Body.Token = string(token)
	resp.Body.ShortURL = shortURL

	return resp, nil
}

// Redirect resolves the path token and redirects to its destination. Unknown
// tokens and lookup failures both render the fallback page, with distinct statuses.
func (h *LinkHandler) Redirect(ctx context.Context, req *TokenRequest) (*RedirectResponse, error) {
	link, err := h.registry.Resolve(ctx, shortener.Token(req.Token))
	if err != nil {
		status := http.StatusNotFound

		if !errors.Is(err, shortener.ErrNotFound) {
			status = http.StatusInternalServerError
			h.logger.Error("failed to resolve token", zap.String("token", req.Token), zap.Error(err))
		}

		resp := &RedirectResponse{Status: status, Body: notFoundPage}
		resp.Headers.ContentType = htmlContentType

		return resp, nil
	}

	resp := &RedirectResponse{Status: http.StatusTemporaryRedirect}
	resp.Headers.Location = link.URL

	return resp, nil
}

func (h *LinkHandler) GetLink(ctx context.Context, req *TokenRequest) (*LinkResponse, error) {
	link, err := h.registry.Resolve(ctx, shortener.Token(req.Token))
	if err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			return nil, huma.Error404NotFound("link not found")
		}

		h.logger.Error("failed to resolve token", zap.String("token", req.Token), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to get link")
	}

	resp := &LinkResponse{}
	resp.Body.Token = string(link.Token)
	resp.Body.URL = link.URL
	resp.Body.CreatedAt = link.CreatedAt

	return resp, nil
}
