package upload

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Annany2002/nebula-uploads/config"
	"github.com/Annany2002/nebula-uploads/internal/domain"
	"github.com/Annany2002/nebula-uploads/internal/eligibility"
	"github.com/Annany2002/nebula-uploads/internal/forms"
)

type mockLister struct {
	ListFn func(ctx context.Context, user *domain.User) ([]domain.DatabaseTarget, error)
	calls  int
}

func (m *mockLister) ListEligibleDatabases(ctx context.Context, user *domain.User) ([]domain.DatabaseTarget, error) {
	m.calls++
	return m.ListFn(ctx, user)
}

type recordingPipeline struct {
	err      error
	requests []*domain.UploadRequest
}

func (p *recordingPipeline) Submit(_ context.Context, req *domain.UploadRequest) error {
	if p.err != nil {
		return p.err
	}
	p.requests = append(p.requests, req)
	return nil
}

func listerOf(targets ...domain.DatabaseTarget) *mockLister {
	return &mockLister{ListFn: func(context.Context, *domain.User) ([]domain.DatabaseTarget, error) {
		return targets, nil
	}}
}

func excelSubmission() forms.Submission {
	return forms.Submission{
		Values: map[string][]string{
			"name":       {"Orders"},
			"database":   {"3"},
			"if_exists":  {"replace"},
			"sheet_name": {"Q1"},
		},
		Files: map[string][]forms.File{"excel_file": {{Name: "orders.xls", Size: 99}}},
	}
}

func TestParseFormat(t *testing.T) {
	for raw, want := range map[string]domain.FileFormat{"csv": domain.FormatCSV, "Excel": domain.FormatExcel, " columnar ": domain.FormatColumnar} {
		got, err := ParseFormat(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("json")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestSubmit_Success(t *testing.T) {
	lister := listerOf(domain.DatabaseTarget{ID: 3, Name: "lake", AllowFileUpload: true})
	pipeline := &recordingPipeline{}
	svc := NewService(lister, config.DefaultUploadConfig(), pipeline)

	req, err := svc.Submit(context.Background(), &domain.User{ID: 42}, domain.FormatExcel, "req-1", excelSubmission())
	require.NoError(t, err)

	assert.Equal(t, 1, lister.calls, "candidates are computed once per submission")
	require.Len(t, pipeline.requests, 1)
	assert.Same(t, req, pipeline.requests[0])
	assert.Len(t, req.ID, 36)
	assert.Equal(t, "req-1", req.CorrelationID)
	assert.Equal(t, domain.FormatExcel, req.Format)
	assert.Equal(t, int64(42), req.RequestedBy)
	assert.Equal(t, int64(3), req.DatabaseID)
	assert.Equal(t, "lake", req.DatabaseName)
	assert.Equal(t, "Q1", req.SheetName)
	assert.Equal(t, domain.ConflictReplace, req.IfExists)
	assert.Equal(t, config.DefaultNANames, req.NullValues)
}

func TestSubmit_GeneratesRequestID(t *testing.T) {
	svc := NewService(listerOf(domain.DatabaseTarget{ID: 3, Name: "lake"}), config.DefaultUploadConfig(), &recordingPipeline{})

	req, err := svc.Submit(context.Background(), &domain.User{ID: 1}, domain.FormatExcel, "", excelSubmission())
	require.NoError(t, err)
	assert.Len(t, req.ID, 36)
	assert.Empty(t, req.CorrelationID)
}

func TestSubmit_CallerCannotChooseRequestID(t *testing.T) {
	pipeline := &recordingPipeline{}
	svc := NewService(listerOf(domain.DatabaseTarget{ID: 3, Name: "lake"}), config.DefaultUploadConfig(), pipeline)

	first, err := svc.Submit(context.Background(), &domain.User{ID: 1}, domain.FormatExcel, "same", excelSubmission())
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), &domain.User{ID: 2}, domain.FormatExcel, "same", excelSubmission())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, "same", first.ID)
	assert.Equal(t, "same", first.CorrelationID)
	assert.Equal(t, "same", second.CorrelationID)
	require.Len(t, pipeline.requests, 2)
}

func TestSubmit_FieldErrorsSkipPipeline(t *testing.T) {
	pipeline := &recordingPipeline{}
	svc := NewService(listerOf(), config.DefaultUploadConfig(), pipeline)

	_, err := svc.Submit(context.Background(), &domain.User{ID: 1}, domain.FormatExcel, "", excelSubmission())
	var fieldErrs forms.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, []string{forms.MsgInvalidChoice}, fieldErrs["database"])
	assert.Empty(t, pipeline.requests)
}

func TestSubmit_EligibilityFailure(t *testing.T) {
	lister := &mockLister{ListFn: func(context.Context, *domain.User) ([]domain.DatabaseTarget, error) {
		return nil, eligibility.ErrEligibilityComputation
	}}
	pipeline := &recordingPipeline{}
	svc := NewService(lister, config.DefaultUploadConfig(), pipeline)

	_, err := svc.Submit(context.Background(), &domain.User{ID: 1}, domain.FormatExcel, "", excelSubmission())
	assert.ErrorIs(t, err, eligibility.ErrEligibilityComputation)
	assert.Empty(t, pipeline.requests)
}

func TestSubmit_PipelineFailure(t *testing.T) {
	boom := errors.New("queue full")
	svc := NewService(listerOf(domain.DatabaseTarget{ID: 3, Name: "lake"}), config.DefaultUploadConfig(), &recordingPipeline{err: boom})

	_, err := svc.Submit(context.Background(), &domain.User{ID: 1}, domain.FormatExcel, "", excelSubmission())
	assert.ErrorIs(t, err, ErrHandOff)
	assert.ErrorIs(t, err, boom)
}

func TestSubmit_UnknownFormat(t *testing.T) {
	lister := listerOf()
	svc := NewService(lister, config.DefaultUploadConfig(), &recordingPipeline{})

	_, err := svc.Submit(context.Background(), &domain.User{ID: 1}, domain.FileFormat("json"), "", forms.Submission{})
	assert.ErrorIs(t, err, ErrUnknownFormat)
	assert.Zero(t, lister.calls)
}

func TestDescribe(t *testing.T) {
	svc := NewService(listerOf(domain.DatabaseTarget{ID: 9, Name: "mart"}), config.DefaultUploadConfig(), &recordingPipeline{})

	desc, err := svc.Describe(context.Background(), &domain.User{ID: 1}, domain.FormatColumnar)
	require.NoError(t, err)
	assert.Equal(t, domain.FormatColumnar, desc.Format)

	var found bool
	for _, f := range desc.Fields {
		if f.Name == "database" {
			found = true
			assert.Equal(t, []forms.Choice{{Value: "9", Label: "mart"}}, f.Choices)
		}
	}
	assert.True(t, found)
}

func TestLogPipeline(t *testing.T) {
	p := NewLogPipeline()
	assert.NoError(t, p.Submit(context.Background(), &domain.UploadRequest{ID: "x", Format: domain.FormatCSV}))
}
