package mailclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	"voyagemail/internal/config"
	"voyagemail/internal/model"
)

// IMAPSource pulls messages from one mailbox. SelectInbox lists the UIDs to
// visit; Next fetches and parses them one at a time in UID order.
type IMAPSource struct {
	cfg    config.IMAPConfig
	client *imapclient.Client
	uids   []imap.UID
	pos    int
	logger *zap.Logger
}

// DialIMAP connects and authenticates against the configured server.
func DialIMAP(cfg config.IMAPConfig, logger *zap.Logger) (*IMAPSource, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	var (
		client *imapclient.Client
		err    error
	)
	if cfg.UseTLS {
		opts := &imapclient.Options{
			TLSConfig: &tls.Config{
				ServerName:         cfg.Host,
				InsecureSkipVerify: cfg.InsecureSkipVerify,
			},
		}
		client, err = imapclient.DialTLS(addr, opts)
	} else {
		client, err = imapclient.DialInsecure(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	if err := client.Login(cfg.User, cfg.Password).Wait(); err != nil {
		client.Close()
		return nil, fmt.Errorf("login as %s: %w", cfg.User, err)
	}

	logger.Info("IMAP connection established",
		zap.String("host", cfg.Host),
		zap.String("user", cfg.User),
	)
	return &IMAPSource{cfg: cfg, client: client, logger: logger}, nil
}

// SelectInbox opens the mailbox and collects the UIDs to ingest, honoring
// the unseen_only setting.
func (s *IMAPSource) SelectInbox(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	box, err := s.client.Select(s.cfg.Mailbox, nil).Wait()
	if err != nil {
		return fmt.Errorf("select %s: %w", s.cfg.Mailbox, err)
	}

	criteria := &imap.SearchCriteria{}
	if s.cfg.UnseenOnly {
		criteria.NotFlag = []imap.Flag{imap.FlagSeen}
	}
	data, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return fmt.Errorf("search %s: %w", s.cfg.Mailbox, err)
	}
	s.uids = data.AllUIDs()
	s.pos = 0

	s.logger.Info("mailbox selected",
		zap.String("mailbox", s.cfg.Mailbox),
		zap.Uint32("messages", box.NumMessages),
		zap.Int("to_ingest", len(s.uids)),
	)
	return nil
}

// Next fetches the following message. When mark_seen is set the message is
// flagged as soon as it is fetched, before any processing happens.
func (s *IMAPSource) Next(ctx context.Context) (*model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.uids) {
		return nil, io.EOF
	}
	uid := s.uids[s.pos]
	s.pos++

	set := imap.UIDSetNum(uid)
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{{}},
	}
	bufs, err := s.client.Fetch(set, fetchOpts).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetch uid %d: %w", uid, err)
	}
	if len(bufs) == 0 {
		return nil, fmt.Errorf("fetch uid %d: no data returned", uid)
	}
	buf := bufs[0]

	raw := buf.FindBodySection(&imap.FetchItemBodySection{})
	if raw == nil {
		return nil, fmt.Errorf("fetch uid %d: missing body section", uid)
	}

	msg, err := parseMessage(raw)
	if err != nil {
		return nil, fmt.Errorf("parse uid %d: %w", uid, err)
	}
	fillFromEnvelope(msg, buf.Envelope)

	if s.cfg.MarkSeen {
		store := &imap.StoreFlags{
			Op:     imap.StoreFlagsAdd,
			Flags:  []imap.Flag{imap.FlagSeen},
			Silent: true,
		}
		if err := s.client.Store(set, store, nil).Close(); err != nil {
			s.logger.Warn("failed to mark message seen",
				zap.Uint32("uid", uint32(uid)),
				zap.Error(err),
			)
		}
	}
	return msg, nil
}

// fillFromEnvelope backfills fields the MIME parse could not produce with
// the server-parsed envelope.
func fillFromEnvelope(msg *model.Message, env *imap.Envelope) {
	if env == nil {
		return
	}
	if msg.ID == "" {
		msg.ID = env.MessageID
	}
	if msg.Subject == "" {
		msg.Subject = env.Subject
	}
	if msg.From == "" && len(env.From) > 0 {
		msg.From = env.From[0].Addr()
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = env.Date
	}
}

// Close logs out and drops the connection.
func (s *IMAPSource) Close() error {
	if err := s.client.Logout().Wait(); err != nil {
		s.logger.Debug("IMAP logout failed", zap.Error(err))
		return s.client.Close()
	}
	return nil
}
