package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/travel-reimbursement/internal/application/port"
	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	"github.com/garyjia/travel-reimbursement/internal/domain/event"
)

// transitionNote is the outbox payload of a state change
type transitionNote struct {
	FromState string `json:"fromState"`
	ToState   string `json:"toState"`
	Trigger   string `json:"trigger"`
	ActorID   string `json:"actorId"`
	Comment   string `json:"comment,omitempty"`

	// Document is the report as committed by the transition; archive entries only
	Document json.RawMessage `json:"document,omitempty"`
}

// SideEffectService turns committed transitions into outbox entries and
// delivers them. Delivery reads reports but never writes them.
type SideEffectService interface {
	// HandleStateChanged is subscribed to event.TypeStateChanged
	HandleStateChanged(ctx context.Context, evt *event.Event) error
	Deliver(ctx context.Context, effect *entity.SideEffect) error
}

type sideEffectServiceImpl struct {
	outbox     port.SideEffectRepository
	reports    port.ReportRepository
	files      port.FileStorage
	documents  port.DocumentReader
	sender     port.MessageSender
	translator port.Translator
	formatter  port.MoneyFormatter
	lang       string
	logger     Logger
	now        func() time.Time
}

// NewSideEffectService creates a new SideEffectService
func NewSideEffectService(
	outbox port.SideEffectRepository,
	reports port.ReportRepository,
	files port.FileStorage,
	documents port.DocumentReader,
	sender port.MessageSender,
	translator port.Translator,
	formatter port.MoneyFormatter,
	lang string,
	logger Logger,
) SideEffectService {
	return &sideEffectServiceImpl{
		outbox:     outbox,
		reports:    reports,
		files:      files,
		documents:  documents,
		sender:     sender,
		translator: translator,
		formatter:  formatter,
		lang:       lang,
		logger:     logger,
		now:        time.Now,
	}
}

// HandleStateChanged enqueues one notify and one archive entry per snapshot.
// Redelivered events hit the idempotency key and enqueue nothing.
func (s *sideEffectServiceImpl) HandleStateChanged(ctx context.Context, evt *event.Event) error {
	snapshotID := evt.GetPayloadString(event.KeySnapshotID)
	if snapshotID == "" {
		return fmt.Errorf("state change of report %s carries no snapshot id", evt.ReportID)
	}
	note := transitionNote{
		FromState: evt.GetPayloadString(event.KeyFromState),
		ToState:   evt.GetPayloadString(event.KeyToState),
		Trigger:   evt.GetPayloadString(event.KeyTrigger),
		ActorID:   evt.GetPayloadString(event.KeyActorID),
		Comment:   evt.GetPayloadString(event.KeyComment),
	}
	notifyPayload, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to encode side effect payload: %w", err)
	}

	document, err := s.committedDocument(ctx, evt)
	if err != nil {
		return err
	}
	note.Document = document
	archivePayload, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to encode side effect payload: %w", err)
	}

	now := s.now()
	for effect, payload := range map[string][]byte{
		entity.SideEffectNotify:  notifyPayload,
		entity.SideEffectArchive: archivePayload,
	} {
		entry := &entity.SideEffect{
			ID:             uuid.NewString(),
			IdempotencyKey: snapshotID + ":" + effect,
			Effect:         effect,
			ReportID:       evt.ReportID,
			SnapshotID:     snapshotID,
			Payload:        string(payload),
			Status:         entity.SideEffectStatusPending,
			NextAttemptAt:  now,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.outbox.Enqueue(ctx, entry); err != nil {
			s.logger.Error("Failed to enqueue side effect", "report_id", evt.ReportID, "effect", effect, "error", err)
			return err
		}
	}
	return nil
}

// committedDocument returns the report JSON carried by the event. Events
// without one fall back to the live report at enqueue time.
func (s *sideEffectServiceImpl) committedDocument(ctx context.Context, evt *event.Event) (json.RawMessage, error) {
	if doc := evt.GetPayloadString(event.KeyDocument); doc != "" {
		if !json.Valid([]byte(doc)) {
			return nil, fmt.Errorf("state change of report %s carries an invalid document", evt.ReportID)
		}
		return json.RawMessage(doc), nil
	}

	report, err := s.reports.GetByID(ctx, evt.ReportID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("State change carries no document, archiving live report", "report_id", evt.ReportID)
	doc, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return doc, nil
}

// Deliver performs one outbox entry. It is safe to call repeatedly.
func (s *sideEffectServiceImpl) Deliver(ctx context.Context, effect *entity.SideEffect) error {
	var note transitionNote
	if effect.Payload != "" {
		if err := json.Unmarshal([]byte(effect.Payload), &note); err != nil {
			return fmt.Errorf("failed to decode side effect payload: %w", err)
		}
	}

	report, err := s.reports.GetByID(ctx, effect.ReportID)
	if entity.IsNotFound(err) {
		s.logger.Info("Report gone, dropping side effect", "report_id", effect.ReportID, "effect", effect.Effect)
		return nil
	}
	if err != nil {
		return err
	}

	switch effect.Effect {
	case entity.SideEffectNotify:
		return s.notify(ctx, report, note)
	case entity.SideEffectArchive:
		if len(note.Document) == 0 {
			return fmt.Errorf("archive entry %s carries no document", effect.ID)
		}
		return s.archive(ctx, report.ID, effect.SnapshotID, note.Document)
	}
	return fmt.Errorf("unknown side effect %q", effect.Effect)
}

func (s *sideEffectServiceImpl) notify(ctx context.Context, report *entity.Report, note transitionNote) error {
	if note.ActorID == report.Owner {
		return nil
	}

	args := map[string]string{
		"name":  report.Name,
		"kind":  s.translator.Translate("kind."+string(report.Kind), s.lang, nil),
		"state": s.translator.Translate("state."+note.ToState, s.lang, nil),
	}
	text := s.translator.Translate("notify.stateChanged", s.lang, args)
	if len(report.AddUp) > 0 {
		var balance float64
		for _, a := range report.AddUp {
			balance += a.Balance
		}
		text += "\n" + s.translator.Translate("notify.balance", s.lang, map[string]string{
			"amount": s.formatter.Format(balance, s.lang),
		})
	}
	if note.Comment != "" {
		text += "\n" + note.Comment
	}

	if err := s.sender.SendMessage(ctx, report.Owner, text); err != nil {
		return fmt.Errorf("failed to notify %s: %w", report.Owner, err)
	}
	return nil
}

// archive writes the document as committed by the transition plus a copy of
// every receipt it references. Retries write the same content.
func (s *sideEffectServiceImpl) archive(ctx context.Context, reportID, snapshotID string, document json.RawMessage) error {
	var committed entity.Report
	if err := json.Unmarshal(document, &committed); err != nil {
		return fmt.Errorf("failed to decode archived report: %w", err)
	}
	doc, err := json.MarshalIndent(&committed, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := s.files.Save(ctx, ArchivePath(reportID, snapshotID), doc); err != nil {
		return err
	}

	for _, ref := range committed.Receipts() {
		content, err := s.documents.ReadDocument(ctx, ref.ID)
		if err != nil {
			s.logger.Error("Receipt missing from archive", "report_id", reportID, "receipt_id", ref.ID, "error", err)
			continue
		}
		if err := s.files.Save(ctx, ArchiveReceiptPath(reportID, snapshotID, ref.ID), content); err != nil {
			return err
		}
	}
	return nil
}

// LogMessageSender writes messages to the log when no chat channel is configured
type LogMessageSender struct {
	logger Logger
}

// NewLogMessageSender creates a new LogMessageSender
func NewLogMessageSender(logger Logger) *LogMessageSender {
	return &LogMessageSender{logger: logger}
}

func (l *LogMessageSender) SendMessage(ctx context.Context, to string, content string) error {
	l.logger.Info("Notification", "to", to, "content", content)
	return nil
}

var _ port.MessageSender = (*LogMessageSender)(nil)
