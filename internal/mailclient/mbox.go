package mailclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/emersion/go-mbox"
	"go.uber.org/zap"

	"voyagemail/internal/model"
)

// MboxSource reads messages sequentially from a local mbox file. It exists
// for backfills and for running the pipeline without an IMAP account.
type MboxSource struct {
	path   string
	file   *os.File
	mr     *mbox.Reader
	logger *zap.Logger
}

func OpenMbox(path string, logger *zap.Logger) (*MboxSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mbox: %w", err)
	}
	return &MboxSource{
		path:   path,
		file:   f,
		mr:     mbox.NewReader(f),
		logger: logger,
	}, nil
}

// SelectInbox is part of the Source contract; an mbox file has exactly one
// inbox and it was opened in OpenMbox.
func (s *MboxSource) SelectInbox(ctx context.Context) error {
	s.logger.Info("reading mbox file", zap.String("path", s.path))
	return ctx.Err()
}

func (s *MboxSource) Next(ctx context.Context) (*model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := s.mr.NextMessage()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("next mbox message: %w", err)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read mbox message: %w", err)
	}
	msg, err := parseMessage(raw)
	if err != nil {
		return nil, fmt.Errorf("parse mbox message: %w", err)
	}
	return msg, nil
}

func (s *MboxSource) Close() error {
	return s.file.Close()
}
