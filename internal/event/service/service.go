package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	docketmodels "caseflow/internal/docket/models"
	documentmodels "caseflow/internal/document/models"
	"caseflow/internal/event/models"
	filingmodels "caseflow/internal/filing/models"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
)

var tracer = otel.Tracer("caseflow/event")

// DocketService creates plain text entries.
type DocketService interface {
	CreateTextEntry(ctx context.Context, in docketmodels.CreateEntryInput) (*docketmodels.DocketEntry, error)
}

// FilingService runs the atomic submission workflow.
type FilingService interface {
	Submit(ctx context.Context, req filingmodels.SubmitFilingRequest) (*filingmodels.SubmissionResult, error)
}

// DocumentService promotes attachments.
type DocumentService interface {
	Promote(ctx context.Context, attID id.AttachmentID, title, documentType string) (*documentmodels.Document, error)
}

// Dispatcher is the single entry point for docket events: it parses the
// tagged request and routes each variant to its workflow.
type Dispatcher struct {
	docket    DocketService
	filings   FilingService
	documents DocumentService
	logger    *slog.Logger
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

func NewDispatcher(docket DocketService, filings FilingService, documents DocumentService, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		docket:    docket,
		filings:   filings,
		documents: documents,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch parses and executes one submitted event.
func (d *Dispatcher) Dispatch(ctx context.Context, req models.SubmitEventRequest) (*models.SubmitEventResponse, error) {
	ctx, span := tracer.Start(ctx, "event.dispatch", trace.WithAttributes(
		attribute.String("event_kind", req.EventKind),
	))
	defer span.End()

	event, err := req.Parse()
	if err != nil {
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
		return nil, err
	}

	var resp *models.SubmitEventResponse
	switch ev := event.(type) {
	case models.TextEntry:
		resp, err = d.dispatchTextEntry(ctx, ev)
	case models.FilingSubmission:
		resp, err = d.dispatchFiling(ctx, ev)
	case models.PromoteAttachment:
		resp, err = d.dispatchPromote(ctx, ev)
	default:
		err = dErrors.New(dErrors.CodeInternal, "unhandled event variant")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
		return nil, err
	}
	return resp, nil
}

func (d *Dispatcher) dispatchTextEntry(ctx context.Context, ev models.TextEntry) (*models.SubmitEventResponse, error) {
	entry, err := d.docket.CreateTextEntry(ctx, docketmodels.CreateEntryInput{
		CaseID:      ev.CaseID,
		EntryType:   ev.EntryType,
		Description: ev.Description,
		FiledBy:     ev.FiledBy,
	})
	if err != nil {
		return nil, err
	}
	return &models.SubmitEventResponse{
		EventKind:     string(models.KindTextEntry),
		DocketEntryID: entry.ID.String(),
		EntryNumber:   entry.EntryNumber,
	}, nil
}

func (d *Dispatcher) dispatchFiling(ctx context.Context, ev models.FilingSubmission) (*models.SubmitEventResponse, error) {
	result, err := d.filings.Submit(ctx, ev.Request)
	if err != nil {
		return nil, err
	}
	docID := result.Document.ID.String()
	filingID := result.Filing.ID.String()
	nefID := result.Nef.NefID.String()
	return &models.SubmitEventResponse{
		EventKind:     string(models.KindFiling),
		DocketEntryID: result.DocketEntryID.String(),
		EntryNumber:   result.EntryNumber,
		DocumentID:    &docID,
		FilingID:      &filingID,
		NefID:         &nefID,
	}, nil
}

func (d *Dispatcher) dispatchPromote(ctx context.Context, ev models.PromoteAttachment) (*models.SubmitEventResponse, error) {
	doc, err := d.documents.Promote(ctx, ev.AttachmentID, ev.Title, ev.DocumentType)
	if err != nil {
		return nil, err
	}
	docID := doc.ID.String()
	return &models.SubmitEventResponse{
		EventKind:  string(models.KindPromoteAttachment),
		DocumentID: &docID,
	}, nil
}
