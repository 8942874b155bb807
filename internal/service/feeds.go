package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/raphaelgruber/matchlight-go/internal/client"
	"github.com/raphaelgruber/matchlight-go/internal/models"
	"golang.org/x/text/encoding/unicode"
)

const (
	msgFeedFailed   = "Feed failed to be generated. Please try again later."
	msgUnknownError = "An unknown error occurred."
)

// ExportStatus is the state of a feed export as reported by the link endpoint.
type ExportStatus string

const (
	ExportStatusPrepared ExportStatus = "prepared"
	ExportStatusPending  ExportStatus = "pending"
	ExportStatusReady    ExportStatus = "ready"
	ExportStatusFailed   ExportStatus = "failed"
)

// FeedService lists feeds and drives bulk feed exports.
type FeedService struct {
	client *client.Client

	// PollInterval is the fixed wait between link polls.
	PollInterval time.Duration
	// MaxPollAttempts bounds the poll loop. Zero or less polls until the
	// export leaves the pending state.
	MaxPollAttempts int
	// Sleep waits between polls. Replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewFeedService creates a feed service polling once a second, at most 600 times.
func NewFeedService(c *client.Client) *FeedService {
	return &FeedService{
		client:          c,
		PollInterval:    time.Second,
		MaxPollAttempts: 600,
		Sleep:           sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// All returns every feed available to the account.
func (s *FeedService) All(ctx context.Context) ([]models.Feed, error) {
	resp, err := s.client.Request(ctx, "/feeds", nil)
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}
	var body struct {
		Feeds []models.Feed `json:"feeds"`
	}
	if err := resp.JSON(&body); err != nil {
		return nil, err
	}
	return body.Feeds, nil
}

type dateRange struct {
	Start int64 `json:"start_date"`
	End   int64 `json:"end_date"`
}

func newDateRange(start, end time.Time) dateRange {
	return dateRange{Start: models.UnixSeconds(start), End: models.UnixSeconds(end)}
}

// Counts returns the number of alerts per day (YYYY-MM-DD, UTC) for a feed
// between start and end.
func (s *FeedService) Counts(ctx context.Context, feed models.FeedRef, start, end time.Time) (map[string]int, error) {
	name := feed.FeedIdent()
	resp, err := s.client.Request(ctx, "/feeds/"+name, newDateRange(start, end))
	if err != nil {
		return nil, fmt.Errorf("feed %s counts: %w", name, err)
	}

	var raw map[string]int
	if err := resp.JSON(&raw); err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(raw))
	for k, v := range raw {
		var ts models.UnixTime
		if err := ts.UnmarshalJSON([]byte(k)); err != nil {
			return nil, fmt.Errorf("feed %s counts: %w", name, err)
		}
		counts[ts.Time().Format(time.DateOnly)] += v
	}
	return counts, nil
}

// ExportJob tracks one feed export through prepare, poll and fetch.
type ExportJob struct {
	Feed       string
	Start      time.Time
	End        time.Time
	ResponseID json.RawMessage
	Status     ExportStatus
	URL        string
	Polls      int
}

// Export runs the export state machine for one feed and date range.
type Export struct {
	svc   *FeedService
	feed  string
	start time.Time
	end   time.Time
}

// Export returns the export workflow for feed between start and end.
func (s *FeedService) Export(feed models.FeedRef, start, end time.Time) *Export {
	return &Export{svc: s, feed: feed.FeedIdent(), start: start, end: end}
}

// Prepare asks the service to generate the export.
func (e *Export) Prepare(ctx context.Context) (*ExportJob, error) {
	resp, err := e.svc.client.Request(ctx, "/feed/"+e.feed+"/prepare", newDateRange(e.start, e.end))
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			slog.Warn("feed prepare rejected", "feed", e.feed, "status", apiErr.StatusCode)
			return nil, &client.DomainError{Msg: msgFeedFailed}
		}
		return nil, fmt.Errorf("prepare feed %s: %w", e.feed, err)
	}

	var body struct {
		FeedResponseID json.RawMessage `json:"feed_response_id"`
	}
	if err := resp.JSON(&body); err != nil {
		return nil, err
	}

	slog.Info("feed export prepared", "feed", e.feed, "response_id", string(body.FeedResponseID))
	return &ExportJob{
		Feed:       e.feed,
		Start:      e.start,
		End:        e.end,
		ResponseID: body.FeedResponseID,
		Status:     ExportStatusPrepared,
	}, nil
}

// Poll checks the export status once. A failed or unrecognised status is
// returned as a *client.DomainError.
func (e *Export) Poll(ctx context.Context, job *ExportJob) error {
	req := map[string]json.RawMessage{"feed_response_id": job.ResponseID}
	resp, err := e.svc.client.Request(ctx, "/feed/"+job.Feed+"/link", req)
	if err != nil {
		return fmt.Errorf("poll feed %s: %w", job.Feed, err)
	}
	job.Polls++

	var body struct {
		Status string `json:"status"`
		URL    string `json:"url"`
	}
	if err := resp.JSON(&body); err != nil {
		return err
	}

	switch ExportStatus(body.Status) {
	case ExportStatusPending:
		job.Status = ExportStatusPending
		return nil
	case ExportStatusReady:
		job.Status = ExportStatusReady
		job.URL = body.URL
		return nil
	case ExportStatusFailed:
		job.Status = ExportStatusFailed
		return &client.DomainError{Msg: msgFeedFailed}
	default:
		job.Status = ExportStatus(body.Status)
		return &client.DomainError{Msg: msgUnknownError}
	}
}

// Wait polls until the export is ready, sleeping PollInterval between
// polls. onPoll, if set, is called after every poll.
func (e *Export) Wait(ctx context.Context, job *ExportJob, onPoll func(ExportJob)) error {
	for {
		if err := e.Poll(ctx, job); err != nil {
			return err
		}
		if onPoll != nil {
			onPoll(*job)
		}
		if job.Status == ExportStatusReady {
			return nil
		}
		if e.svc.MaxPollAttempts > 0 && job.Polls >= e.svc.MaxPollAttempts {
			return fmt.Errorf("feed %s after %d polls: %w", job.Feed, job.Polls, client.ErrPollTimeout)
		}
		if err := e.svc.Sleep(ctx, e.svc.PollInterval); err != nil {
			return fmt.Errorf("wait for feed %s: %w", job.Feed, err)
		}
	}
}

// Fetch downloads a ready export from its pre-signed URL.
func (e *Export) Fetch(ctx context.Context, job *ExportJob) ([]byte, error) {
	if job.Status != ExportStatusReady {
		return nil, fmt.Errorf("feed %s export is %s, not ready", job.Feed, job.Status)
	}
	data, err := e.svc.client.Fetch(ctx, job.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s export: %w", job.Feed, err)
	}
	return data, nil
}

// DownloadOptions configures Download.
type DownloadOptions struct {
	// SavePath, when set, receives the raw export and Download returns no rows.
	SavePath string
	// OnPoll is called after every status poll.
	OnPoll func(ExportJob)
}

// Download prepares a feed export, waits for it and fetches it. Without a
// SavePath the export is parsed into rows in file order.
func (s *FeedService) Download(ctx context.Context, feed models.FeedRef, start, end time.Time, opts DownloadOptions) ([]models.FeedRow, error) {
	exp := s.Export(feed, start, end)

	job, err := exp.Prepare(ctx)
	if err != nil {
		return nil, err
	}
	if err := exp.Wait(ctx, job, opts.OnPoll); err != nil {
		return nil, err
	}
	data, err := exp.Fetch(ctx, job)
	if err != nil {
		return nil, err
	}

	if opts.SavePath != "" {
		if err := os.WriteFile(opts.SavePath, data, 0o644); err != nil {
			return nil, fmt.Errorf("save feed export: %w", err)
		}
		slog.Info("feed export saved", "feed", job.Feed, "path", opts.SavePath, "bytes", len(data))
		return nil, nil
	}
	return DecodeExport(data)
}

// DecodeExport parses a feed export: UTF-8 text, optionally BOM prefixed,
// comma separated with a header row and a "ts" column.
func DecodeExport(data []byte) ([]models.FeedRow, error) {
	text, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode feed export: %w", err)
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read feed export header: %w", err)
	}

	var rows []models.FeedRow
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read feed export: %w", err)
		}

		cols := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(rec) {
				cols[name] = rec[i]
			} else {
				cols[name] = ""
			}
		}
		ts, err := models.ParseTimestamp(cols["ts"])
		if err != nil {
			return nil, fmt.Errorf("feed export row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, models.FeedRow{TS: ts, Columns: cols})
	}
	return rows, nil
}
