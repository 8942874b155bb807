package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/raphaelgruber/matchlight-go/internal/client"
	"github.com/raphaelgruber/matchlight-go/internal/fingerprint"
	"github.com/raphaelgruber/matchlight-go/internal/models"
)

// blindWidth is the length of a blinded first or last name.
const blindWidth = 5

// RecordService uploads and manages fingerprinted records.
type RecordService struct {
	client *client.Client
	fp     *fingerprint.Dispatcher
}

// NewRecordService creates a record service. Uploads fail with
// fingerprint.ErrUnavailable when fp is nil.
func NewRecordService(c *client.Client, fp *fingerprint.Dispatcher) *RecordService {
	return &RecordService{client: c, fp: fp}
}

// ContentRecord is a document or source file to fingerprint and upload.
// A nil MinScore leaves the service default in place.
type ContentRecord struct {
	Name        string
	Description string
	Content     []byte
	MinScore    *int
}

type contentUpload struct {
	Name         string            `json:"name"`
	Desc         string            `json:"desc"`
	Fingerprints []string          `json:"fingerprints"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// AddDocument fingerprints a text document and uploads it to project.
func (s *RecordService) AddDocument(ctx context.Context, project models.ProjectRef, rec ContentRecord) (*models.Record, error) {
	return s.addContent(ctx, project, "document", fingerprint.ModeText, rec)
}

// AddSourceCode fingerprints a source file in code mode and uploads it to project.
func (s *RecordService) AddSourceCode(ctx context.Context, project models.ProjectRef, rec ContentRecord) (*models.Record, error) {
	return s.addContent(ctx, project, "source_code", fingerprint.ModeCode, rec)
}

func (s *RecordService) addContent(ctx context.Context, project models.ProjectRef, kind string, mode fingerprint.Mode, rec ContentRecord) (*models.Record, error) {
	if s.fp == nil {
		return nil, fingerprint.ErrUnavailable
	}
	fps, err := s.fp.Tokens(rec.Content, mode)
	if err != nil {
		return nil, err
	}

	up := contentUpload{Name: rec.Name, Desc: rec.Description, Fingerprints: fps}
	if rec.MinScore != nil {
		up.Metadata = map[string]string{"min_score": strconv.Itoa(*rec.MinScore)}
	}
	return s.upload(ctx, kind, project.ProjectToken(), up)
}

type piiUpload struct {
	*fingerprint.PIIPayload

	Name         string `json:"name"`
	Desc         string `json:"desc"`
	UserRecordID string `json:"user_record_id"`
	BlindedFirst string `json:"blinded_first"`
	BlindedLast  string `json:"blinded_last"`
	BlindedEmail string `json:"blinded_email"`
}

// AddPII fingerprints the populated PII fields of rec and uploads them to
// project. Only blinded forms of the name and email leave the process.
func (s *RecordService) AddPII(ctx context.Context, project models.ProjectRef, rec models.PIIRecord) (*models.Record, error) {
	if s.fp == nil {
		return nil, fingerprint.ErrUnavailable
	}
	payload, err := s.fp.PII(fingerprint.PIIFields{
		FirstName:  rec.FirstName,
		MiddleName: rec.MiddleName,
		LastName:   rec.LastName,
		Email:      rec.Email,
		SSN:        rec.SSN,
		Address:    rec.Address,
		City:       rec.City,
		State:      rec.State,
		Zipcode:    rec.Zipcode,
		Phone:      rec.Phone,
	})
	if err != nil {
		return nil, err
	}

	userID := rec.UserRecordID
	if userID == "" {
		userID = "-"
	}
	up := piiUpload{
		PIIPayload:   payload,
		Name:         models.BlindEmail(rec.Email),
		Desc:         rec.Description,
		UserRecordID: userID,
		BlindedFirst: models.BlindName(rec.FirstName, blindWidth),
		BlindedLast:  models.BlindName(rec.LastName, blindWidth),
		BlindedEmail: models.BlindEmail(rec.Email),
	}
	return s.upload(ctx, "pii", project.ProjectToken(), up)
}

func (s *RecordService) upload(ctx context.Context, kind, token string, body any) (*models.Record, error) {
	resp, err := s.client.Request(ctx, "/records/upload/"+kind+"/"+url.PathEscape(token), body)
	if err != nil {
		return nil, fmt.Errorf("upload %s record: %w", kind, err)
	}

	var out struct {
		ID models.Identifier `json:"id"`
	}
	if err := resp.JSON(&out); err != nil {
		return nil, err
	}
	slog.Info("record uploaded", "kind", kind, "upload_token", token, "record_id", string(out.ID))

	return s.Get(ctx, string(out.ID))
}

// Delete removes a record.
func (s *RecordService) Delete(ctx context.Context, record models.RecordRef) error {
	id := record.RecordIdent()
	if _, err := s.client.Request(ctx, "/record/"+url.PathEscape(id)+"/delete", []byte("{}")); err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	slog.Info("record deleted", "record_id", id)
	return nil
}

// Filter lists the records of project, or of every project when project is
// nil or has no upload token.
func (s *RecordService) Filter(ctx context.Context, project models.ProjectRef) ([]models.Record, error) {
	var q url.Values
	if token := projectToken(project); token != "" {
		q = url.Values{"upload_token": {token}}
	}
	resp, err := s.client.Request(ctx, "/records", nil, client.WithQuery(q))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	var body struct {
		Data []models.Record `json:"data"`
	}
	if err := resp.JSON(&body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// All lists every record of the account.
func (s *RecordService) All(ctx context.Context) ([]models.Record, error) {
	return s.Filter(ctx, nil)
}

// Get returns the record with the given id, or nil if there is none. The
// API has no single-record lookup, so this scans the full record list.
func (s *RecordService) Get(ctx context.Context, id string) (*models.Record, error) {
	records, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	return nil, nil
}
