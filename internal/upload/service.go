// Package upload runs an upload form submission from candidate listing to hand-off.
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Annany2002/nebula-uploads/config"
	"github.com/Annany2002/nebula-uploads/internal/domain"
	"github.com/Annany2002/nebula-uploads/internal/forms"
	"github.com/Annany2002/nebula-uploads/internal/logger"
)

var (
	customLog = logger.NewLogger()

	ErrUnknownFormat = errors.New("unknown upload format")
	ErrHandOff       = errors.New("upload request could not be handed to the ingestion pipeline")
)

// CandidateLister computes the databases a user may upload into.
type CandidateLister interface {
	ListEligibleDatabases(ctx context.Context, user *domain.User) ([]domain.DatabaseTarget, error)
}

// Pipeline consumes validated upload requests.
type Pipeline interface {
	Submit(ctx context.Context, req *domain.UploadRequest) error
}

// FormDescription is everything a client needs to render one upload form.
type FormDescription struct {
	Format domain.FileFormat        `json:"format"`
	Fields []forms.FieldDescription `json:"fields"`
}

// Service validates upload submissions and forwards them to the pipeline.
type Service struct {
	candidates CandidateLister
	engine     *forms.Engine
	schemas    map[domain.FileFormat]*forms.Schema
	pipeline   Pipeline
}

// NewService builds the form schemas from cfg and wires the collaborators.
func NewService(candidates CandidateLister, cfg config.UploadConfig, pipeline Pipeline) *Service {
	return &Service{
		candidates: candidates,
		engine:     forms.NewEngine(),
		schemas:    forms.NewSchemas(cfg),
		pipeline:   pipeline,
	}
}

// ParseFormat maps a path segment to a known format.
func ParseFormat(raw string) (domain.FileFormat, error) {
	switch f := domain.FileFormat(strings.ToLower(strings.TrimSpace(raw))); f {
	case domain.FormatCSV, domain.FormatExcel, domain.FormatColumnar:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
}

// EligibleDatabases lists the databases the user may select.
func (s *Service) EligibleDatabases(ctx context.Context, user *domain.User) ([]domain.DatabaseTarget, error) {
	return s.candidates.ListEligibleDatabases(ctx, user)
}

// Describe returns the field set of a format with the user's database choices.
func (s *Service) Describe(ctx context.Context, user *domain.User, format domain.FileFormat) (*FormDescription, error) {
	schema, ok := s.schemas[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	databases, err := s.candidates.ListEligibleDatabases(ctx, user)
	if err != nil {
		return nil, err
	}
	return &FormDescription{Format: format, Fields: schema.Describe(databases)}, nil
}

// Submit validates a submission and hands the resulting request to the pipeline.
// The request gets a fresh id; correlationID is only recorded alongside it.
// Candidates are computed once per call. A forms.FieldErrors is returned when any
// field fails; nothing reaches the pipeline in that case.
func (s *Service) Submit(ctx context.Context, user *domain.User, format domain.FileFormat, correlationID string, sub forms.Submission) (*domain.UploadRequest, error) {
	schema, ok := s.schemas[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	databases, err := s.candidates.ListEligibleDatabases(ctx, user)
	if err != nil {
		return nil, err
	}

	values, err := s.engine.Validate(schema, sub, databases)
	if err != nil {
		return nil, err
	}

	req := &domain.UploadRequest{ID: uuid.NewString(), CorrelationID: correlationID, Format: format}
	if user != nil {
		req.RequestedBy = user.ID
	}
	schema.Bind(values, req)

	if err := s.pipeline.Submit(ctx, req); err != nil {
		customLog.Warnf("Upload: pipeline rejected request %s: %v", req.ID, err)
		return nil, fmt.Errorf("%w: %w", ErrHandOff, err)
	}

	customLog.Printf("Upload: accepted %s upload %s (correlation %q) into database %d table %q", format, req.ID, req.CorrelationID, req.DatabaseID, req.TableName)
	return req, nil
}
