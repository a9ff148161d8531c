package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"voyagemail/internal/config"
	"voyagemail/internal/csvio"
	"voyagemail/internal/model"
	"voyagemail/pkg/metrics"
)

// Store is the table storage the resolver and driver write through.
type Store interface {
	TableExists(ctx context.Context, table string) (bool, error)
	CreateTable(ctx context.Context, table string, cols []config.ColumnSpec) error
	InsertRow(ctx context.Context, table string, row []Field) error
}

// Archiver keeps a copy of a message body before its rows are ingested.
type Archiver interface {
	Save(name string, content []byte) (string, error)
}

// Notifier announces a handled message to interested consumers. Publishing
// is best effort; a failure never rolls back the ingested rows.
type Notifier interface {
	MessageIngested(ctx context.Context, evt Ingestion) error
}

// Ingestion describes one handled message.
type Ingestion struct {
	MessageID string
	DocType   string
	Table     string
	Rows      int
}

// Captures holds the named submatches extracted from a message subject.
type Captures map[string]string

type Service struct {
	types    []*config.DocumentType
	store    Store
	archiver Archiver
	notifier Notifier
	logger   *zap.Logger
}

func NewService(types []*config.DocumentType, store Store, archiver Archiver, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		types:    types,
		store:    store,
		archiver: archiver,
		notifier: notifier,
		logger:   logger,
	}
}

// Classify finds the first document type whose sender and subject pattern
// both accept the message. Declaration order decides ties. A message that
// matches nothing is not an error, it is simply not ours to handle.
func (s *Service) Classify(msg *model.Message) (*config.DocumentType, Captures, bool) {
	for _, dt := range s.types {
		if msg.From != dt.Sender {
			s.logger.Debug("sender does not match",
				zap.String("type", dt.Name),
				zap.String("from", msg.From),
				zap.String("expected", dt.Sender),
			)
			continue
		}
		re := dt.SubjectRegexp()
		m := re.FindStringSubmatch(msg.Subject)
		if m == nil {
			s.logger.Debug("subject does not match",
				zap.String("type", dt.Name),
				zap.String("subject", msg.Subject),
			)
			continue
		}
		caps := Captures{}
		for i, name := range re.SubexpNames() {
			if i == 0 || name == "" || i >= len(m) {
				continue
			}
			caps[name] = m[i]
		}
		s.logger.Debug("message classified",
			zap.String("type", dt.Name),
			zap.Any("captures", caps),
		)
		return dt, caps, true
	}
	return nil, nil, false
}

// ResolveTable expands the type's table template with the subject captures
// and makes sure the table exists, creating it on first sight. Resolving the
// same captures twice is safe; the second call only probes.
func (s *Service) ResolveTable(ctx context.Context, dt *config.DocumentType, caps Captures) (string, error) {
	table, err := ExpandTemplate(dt.TableTemplate, caps)
	if err != nil {
		return "", fmt.Errorf("resolve table for type %q: %w", dt.Name, err)
	}

	exists, err := s.store.TableExists(ctx, table)
	if err != nil {
		return "", fmt.Errorf("check table %q: %w", table, err)
	}
	if !exists {
		s.logger.Info("creating table",
			zap.String("type", dt.Name),
			zap.String("table", table),
		)
		if err := s.store.CreateTable(ctx, table, dt.Columns); err != nil {
			return "", fmt.Errorf("create table %q: %w", table, err)
		}
		metrics.IncrementTableCreated(dt.Name)
	}
	return table, nil
}

// ProcessMessage runs one message through classification, table resolution,
// archiving and row ingestion. It reports whether the message was handled;
// a message matching no type returns (false, nil). The first failing row
// aborts the message with the rows so far already inserted.
func (s *Service) ProcessMessage(ctx context.Context, msg *model.Message) (bool, error) {
	s.logger.Debug("examining message",
		zap.String("message_id", msg.ID),
		zap.String("from", msg.From),
		zap.String("subject", msg.Subject),
	)

	dt, caps, ok := s.Classify(msg)
	if !ok {
		return false, nil
	}

	table, err := s.ResolveTable(ctx, dt, caps)
	if err != nil {
		return false, err
	}

	if dt.SavePathTemplate != "" {
		name, err := ExpandTemplate(dt.SavePathTemplate, caps)
		if err != nil {
			return false, fmt.Errorf("archive name for type %q: %w", dt.Name, err)
		}
		path, err := s.archiver.Save(name, []byte(msg.Body))
		if err != nil {
			return false, fmt.Errorf("archive message %q: %w", msg.ID, err)
		}
		s.logger.Info("message body archived", zap.String("path", path))
	}

	reader := csvio.NewReader(strings.NewReader(msg.Body))
	rows := 0
	for {
		record, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return false, &ParseError{Err: err}
		}
		fields, err := CoerceRow(record, dt.Columns)
		if err != nil {
			return false, err
		}
		if err := s.store.InsertRow(ctx, table, fields); err != nil {
			return false, fmt.Errorf("insert row into %q: %w", table, err)
		}
		rows++
		metrics.IncrementRowInserted(dt.Name)
	}

	s.logger.Info("message ingested",
		zap.String("message_id", msg.ID),
		zap.String("type", dt.Name),
		zap.String("table", table),
		zap.Int("rows", rows),
	)

	if s.notifier != nil {
		evt := Ingestion{
			MessageID: msg.ID,
			DocType:   dt.Name,
			Table:     table,
			Rows:      rows,
		}
		if err := s.notifier.MessageIngested(ctx, evt); err != nil {
			s.logger.Warn("failed to publish ingestion event",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
	}

	return true, nil
}
