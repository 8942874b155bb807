package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/raphaelgruber/matchlight-go/internal/client"
	"github.com/raphaelgruber/matchlight-go/internal/models"
)

// ErrNotFound is returned by operations that need an existing resource
// the API does not know.
var ErrNotFound = errors.New("not found")

// ProjectService manages monitoring projects.
type ProjectService struct {
	client *client.Client
}

// NewProjectService creates a project service.
func NewProjectService(c *client.Client) *ProjectService {
	return &ProjectService{client: c}
}

// Add creates a project and returns it as the API reports it.
func (s *ProjectService) Add(ctx context.Context, name, projectType string) (*models.Project, error) {
	resp, err := s.client.Request(ctx, "/project/add", map[string]string{"name": name, "type": projectType})
	if err != nil {
		return nil, fmt.Errorf("add project: %w", err)
	}

	var body struct {
		Data struct {
			UploadToken string `json:"upload_token"`
		} `json:"data"`
	}
	if err := resp.JSON(&body); err != nil {
		return nil, err
	}
	slog.Info("project created", "name", name, "type", projectType, "upload_token", body.Data.UploadToken)

	p, err := s.Get(ctx, body.Data.UploadToken)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("project %s: %w", body.Data.UploadToken, ErrNotFound)
	}
	return p, nil
}

// Delete removes a project and all of its records.
func (s *ProjectService) Delete(ctx context.Context, project models.ProjectRef) error {
	token := project.ProjectToken()
	if _, err := s.client.Request(ctx, "/project/"+url.PathEscape(token)+"/delete", []byte("{}")); err != nil {
		return fmt.Errorf("delete project %s: %w", token, err)
	}
	slog.Info("project deleted", "upload_token", token)
	return nil
}

// Edit renames a project and returns the renamed copy. A raw token is
// resolved first; an unknown token yields ErrNotFound.
func (s *ProjectService) Edit(ctx context.Context, project models.ProjectRef, name string) (*models.Project, error) {
	var p models.Project
	if ref, ok := project.(*models.Project); ok && ref != nil {
		p = *ref
	} else {
		token := projectToken(project)
		if token == "" {
			return nil, &client.ValidationError{Msg: "project is required"}
		}
		got, err := s.Get(ctx, token)
		if err != nil {
			return nil, err
		}
		if got == nil {
			return nil, fmt.Errorf("project %s: %w", token, ErrNotFound)
		}
		p = *got
	}

	if _, err := s.client.Request(ctx, "/project/"+url.PathEscape(p.UploadToken)+"/edit", map[string]string{"name": name}); err != nil {
		return nil, fmt.Errorf("edit project %s: %w", p.UploadToken, err)
	}
	p.Name = name
	return &p, nil
}

// Filter lists projects, restricted to projectType unless it is empty.
func (s *ProjectService) Filter(ctx context.Context, projectType string) ([]models.Project, error) {
	resp, err := s.client.Request(ctx, "/projects", nil,
		client.WithQuery(url.Values{"project_type": {projectType}}))
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	var body struct {
		Data []models.Project `json:"data"`
	}
	if err := resp.JSON(&body); err != nil {
		return nil, err
	}

	projects := make([]models.Project, 0, len(body.Data))
	for _, p := range body.Data {
		if projectType != "" && p.Type != projectType {
			continue
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// All lists every project of the account.
func (s *ProjectService) All(ctx context.Context) ([]models.Project, error) {
	return s.Filter(ctx, "")
}

// Get returns the project with the given upload token, or nil if there is none.
func (s *ProjectService) Get(ctx context.Context, uploadToken string) (*models.Project, error) {
	resp, found, err := s.client.Lookup(ctx, "/project/"+url.PathEscape(uploadToken))
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", uploadToken, err)
	}
	if !found {
		return nil, nil
	}
	var p models.Project
	if err := resp.JSON(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// projectToken returns the upload token of project. A nil ref, including a
// nil *models.Project, has none.
func projectToken(project models.ProjectRef) string {
	if project == nil {
		return ""
	}
	return project.ProjectToken()
}

// recordIdent returns the id of record, or "" for a nil ref.
func recordIdent(record models.RecordRef) string {
	if record == nil {
		return ""
	}
	return record.RecordIdent()
}
