// Package matchlight is a client for the Matchlight fingerprint monitoring
// API. It registers fingerprints of documents, source code and PII with the
// service, searches for matching content seen elsewhere and exports alert
// feeds.
//
//	ml, err := matchlight.New(matchlight.LoadConfig())
//	if err != nil {
//		return err
//	}
//	res, err := ml.Search.Search(ctx, matchlight.SearchQuery{Email: "familybird@terbiumlabs.com"})
package matchlight

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/raphaelgruber/matchlight-go/internal/client"
	"github.com/raphaelgruber/matchlight-go/internal/config"
	"github.com/raphaelgruber/matchlight-go/internal/fingerprint"
	"github.com/raphaelgruber/matchlight-go/internal/metrics"
	"github.com/raphaelgruber/matchlight-go/internal/models"
	"github.com/raphaelgruber/matchlight-go/internal/service"
)

type (
	Config = config.Config

	Project      = models.Project
	Record       = models.Record
	PIIRecord    = models.PIIRecord
	Alert        = models.Alert
	AlertState   = models.AlertState
	Feed         = models.Feed
	FeedRow      = models.FeedRow
	SearchResult = models.SearchResult

	ProjectRef  = models.ProjectRef
	UploadToken = models.UploadToken
	RecordRef   = models.RecordRef
	RecordID    = models.RecordID
	AlertRef    = models.AlertRef
	AlertID     = models.AlertID
	FeedRef     = models.FeedRef
	FeedName    = models.FeedName

	SearchQuery     = service.SearchQuery
	SearchResults   = service.SearchResults
	AlertFilter     = service.AlertFilter
	ContentRecord   = service.ContentRecord
	DownloadOptions = service.DownloadOptions
	ExportJob       = service.ExportJob

	ConfigurationError = client.ConfigurationError
	ConnectionError    = client.ConnectionError
	APIError           = client.APIError
	ValidationError    = client.ValidationError
	DomainError        = client.DomainError

	Primitive = fingerprint.Primitive
	Stats     = metrics.Snapshot
)

var (
	ErrPollTimeout = client.ErrPollTimeout
	ErrNotFound    = service.ErrNotFound
	// ErrNoFingerprinter is returned by operations that derive fingerprints
	// when no native fingerprint library was compiled in.
	ErrNoFingerprinter = fingerprint.ErrUnavailable
)

// DefaultConfig returns the built-in settings without credentials.
func DefaultConfig() Config { return config.Default() }

// LoadConfig reads settings from MATCHLIGHT_* environment variables.
func LoadConfig() Config { return config.Load() }

// Client bundles the Matchlight services around one connection.
type Client struct {
	Projects *service.ProjectService
	Records  *service.RecordService
	Alerts   *service.AlertService
	Feeds    *service.FeedService
	Search   *service.SearchService

	conn *client.Client
}

type options struct {
	prim       fingerprint.Primitive
	clientOpts []client.Option
}

// Option customizes New.
type Option func(*options)

// WithPrimitive sets the fingerprint primitive instead of the native library.
func WithPrimitive(p Primitive) Option {
	return func(o *options) { o.prim = p }
}

// WithLogger sets the logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.clientOpts = append(o.clientOpts, client.WithLogger(l)) }
}

// WithHTTPClient replaces the HTTP client used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.clientOpts = append(o.clientOpts, client.WithHTTPClient(hc)) }
}

// New creates a Client. Credentials missing from cfg are read from the
// environment; a *ConfigurationError is returned if there are none.
func New(cfg Config, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	conn, err := client.New(cfg, o.clientOpts...)
	if err != nil {
		return nil, err
	}

	prim := o.prim
	if prim == nil {
		prim, err = fingerprint.Default()
		if err != nil && !errors.Is(err, fingerprint.ErrUnavailable) {
			return nil, err
		}
	}
	var fp *fingerprint.Dispatcher
	if prim != nil {
		fp = fingerprint.NewDispatcher(prim)
	} else {
		slog.Debug("fingerprinting disabled", "reason", fingerprint.ErrUnavailable)
	}

	search := service.NewSearchService(conn, fp)
	if cfg.SearchTimeout > 0 {
		search.SetTimeout(cfg.SearchTimeout)
	}
	feeds := service.NewFeedService(conn)
	if cfg.FeedPollInterval > 0 {
		feeds.PollInterval = cfg.FeedPollInterval
	}
	if cfg.FeedMaxPolls != 0 {
		feeds.MaxPollAttempts = cfg.FeedMaxPolls
	}

	return &Client{
		Projects: service.NewProjectService(conn),
		Records:  service.NewRecordService(conn, fp),
		Alerts:   service.NewAlertService(conn),
		Feeds:    feeds,
		Search:   search,
		conn:     conn,
	}, nil
}

// Stats returns request timings recorded since the client was created.
func (c *Client) Stats() Stats { return c.conn.Stats() }
