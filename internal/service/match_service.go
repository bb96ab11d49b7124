package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/repository"
	"github.com/VibeKonekPilipinas/vibe-konek-core/lib/logger/sl"
)

const maxDrainBatch = 64

type Options struct {
	QueueTTL       time.Duration
	SweepInterval  time.Duration
	PresenceTTL    time.Duration
	SessionTTL     time.Duration
	RequeuePartner bool
	EventBuffer    int
	Now            func() time.Time
}

func (o *Options) setDefaults() {
	if o.QueueTTL <= 0 {
		o.QueueTTL = 120 * time.Second
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = 10 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// SweepReport counts what one sweep removed.
type SweepReport struct {
	Evicted      int
	Disconnected int
	TimedOut     int
}

type MatchService struct {
	store    repository.StateStore
	sessions repository.SessionLogRepository
	log      *slog.Logger
	opts     Options

	mu        sync.Mutex
	stop      context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewMatchService(store repository.StateStore, sessions repository.SessionLogRepository, log *slog.Logger, opts Options) *MatchService {
	opts.setDefaults()
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		store = repository.NewInMemoryStateStore(opts.QueueTTL)
	}
	if sessions == nil {
		sessions = repository.NewInMemorySessionLogRepository()
	}
	return &MatchService{
		store:    store,
		sessions: sessions,
		log:      log,
		opts:     opts,
	}
}

// changes collects session log writes made inside a critical section; they are flushed after it.
type changes struct {
	created []domain.Session
	ended   []domain.Session
}

func (s *MatchService) now() time.Time {
	return s.opts.Now().UTC()
}

func (s *MatchService) Connect(ctx context.Context, peerID string, transport domain.Transport) (*domain.Client, error) {
	const op = "service.match.connect"
	log := s.log.With("op", op)

	c := domain.NewClient(peerID, transport, s.opts.EventBuffer)
	err := s.store.Atomically(ctx, func(st *repository.State) error {
		c.Touch(s.now())
		return st.Presence.Add(c)
	})
	if err != nil {
		log.Info("connect rejected", slog.String("peer_id", c.ID), sl.Err(err))
		return nil, err
	}

	log.Info("client connected", "peer_id", c.ID, "transport", c.Transport)
	return c, nil
}

// Disconnect removes the client, ends its session and notifies the partner once.
func (s *MatchService) Disconnect(ctx context.Context, peerID string) error {
	const op = "service.match.disconnect"
	log := s.log.With("op", op, "peer_id", peerID)

	var ch changes
	err := s.store.Atomically(ctx, func(st *repository.State) error {
		if _, ok := st.Presence.Get(peerID); !ok {
			return domain.ErrClientNotFound
		}
		s.disconnectLocked(st, peerID, s.now(), &ch)
		return nil
	})
	s.flush(ctx, &ch)
	if err != nil {
		log.Debug("disconnect skipped", sl.Err(err))
		return err
	}

	log.Info("client disconnected", "sessions_ended", len(ch.ended))
	return nil
}

// Authorize checks an HTTP caller's token. Websocket clients are bound to their socket
// and cannot be driven over HTTP.
func (s *MatchService) Authorize(ctx context.Context, creds domain.Credentials) error {
	const op = "service.match.authorize"

	if creds.PeerID == "" {
		return domain.Invalid("peerId", "is required")
	}
	err := s.store.Atomically(ctx, func(st *repository.State) error {
		c, ok := st.Presence.Get(creds.PeerID)
		if !ok {
			return domain.ErrClientNotFound
		}
		if c.Transport != domain.TransportHTTP {
			return domain.ErrSocketBound
		}
		if !c.CheckToken(creds.Token) {
			return domain.ErrBadToken
		}
		c.Touch(s.now())
		return nil
	})
	if err != nil {
		s.log.Debug("authorization failed", slog.String("op", op), slog.String("peer_id", creds.PeerID), sl.Err(err))
	}
	return err
}

func (s *MatchService) Enqueue(ctx context.Context, peerID string, criteria domain.Criteria) (domain.MatchResult, error) {
	const op = "service.match.enqueue"
	log := s.log.With("op", op, "peer_id", peerID)

	if peerID == "" {
		return domain.MatchResult{}, domain.Invalid("peerId", "is required")
	}
	criteria, err := normalizeCriteria(criteria)
	if err != nil {
		return domain.MatchResult{}, err
	}

	var (
		res domain.MatchResult
		ch  changes
	)
	err = s.store.Atomically(ctx, func(st *repository.State) error {
		now := s.now()
		c, ok := st.Presence.Get(peerID)
		if !ok {
			return domain.ErrClientNotFound
		}
		c.Touch(now)
		// Asking for a new match while paired skips the current partner.
		if sess, ok := st.Sessions.Lookup(c.ID); ok {
			s.endSessionLocked(st, sess.ID, domain.ReasonExplicitEnd, c.ID, now, &ch)
		}
		c.TakePendingMatch()
		c.Criteria = criteria

		res, err = s.matchLocked(st, c, now, &ch)
		return err
	})
	s.flush(ctx, &ch)
	if err != nil {
		log.Info("enqueue failed", sl.Err(err))
		return domain.MatchResult{}, err
	}

	log.Info("enqueue handled",
		"status", res.Status,
		"session_id", res.SessionID,
		"mode", criteria.Mode,
		"interests", len(criteria.Interests),
	)
	return res, nil
}

// PollMatch returns a pending match exactly once; afterwards, and when nothing is pending, it reports waiting.
func (s *MatchService) PollMatch(ctx context.Context, peerID string) (domain.MatchResult, error) {
	var res domain.MatchResult
	err := s.store.Atomically(ctx, func(st *repository.State) error {
		c, ok := st.Presence.Get(peerID)
		if !ok {
			return domain.ErrClientNotFound
		}
		c.Touch(s.now())
		if pending := c.TakePendingMatch(); pending != nil {
			res = *pending
			return nil
		}
		res = domain.Waiting()
		return nil
	})
	if err != nil {
		return domain.MatchResult{}, err
	}
	return res, nil
}

func (s *MatchService) Cancel(ctx context.Context, peerID string) error {
	const op = "service.match.cancel"
	log := s.log.With("op", op, "peer_id", peerID)

	var removed bool
	err := s.store.Atomically(ctx, func(st *repository.State) error {
		c, ok := st.Presence.Get(peerID)
		if !ok {
			return domain.ErrClientNotFound
		}
		c.Touch(s.now())
		removed = st.Queue.Remove(c.ID)
		if removed {
			c.State = domain.StateIdle
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("queue cancel", "removed", removed)
	return nil
}

// EndSession ends a session on behalf of one of its participants. Ending an unknown or
// already ended session is a no-op.
func (s *MatchService) EndSession(ctx context.Context, sessionID string, peerID string) error {
	const op = "service.match.end"
	log := s.log.With("op", op, "peer_id", peerID, "session_id", sessionID)

	if sessionID == "" {
		return domain.Invalid("sessionId", "is required")
	}
	if peerID == "" {
		return domain.Invalid("peerId", "is required")
	}

	var (
		ended bool
		ch    changes
	)
	err := s.store.Atomically(ctx, func(st *repository.State) error {
		now := s.now()
		sess, ok := st.Sessions.Get(sessionID)
		if !ok {
			return nil
		}
		if !sess.Has(peerID) {
			return fmt.Errorf("%w: %q is not in session %q", domain.ErrForbidden, peerID, sessionID)
		}

		partner := s.endSessionLocked(st, sessionID, domain.ReasonExplicitEnd, peerID, now, &ch)
		ended = true
		if c, ok := st.Presence.Get(peerID); ok {
			c.Touch(now)
			c.State = domain.StateIdle
		}
		if partner != nil && s.opts.RequeuePartner {
			s.requeueLocked(st, partner, now, &ch)
		}
		return nil
	})
	s.flush(ctx, &ch)
	if err != nil {
		log.Info("end rejected", sl.Err(err))
		return err
	}

	if ended {
		log.Info("session ended")
	}
	return nil
}

// Relay forwards a negotiation or application message to the sender's session partner.
// The payload is never inspected.
func (s *MatchService) Relay(ctx context.Context, senderID string, msg domain.SignalMessage) error {
	const op = "service.match.relay"
	log := s.log.With(
		"op", op,
		"peer_id", senderID,
		"session_id", msg.SessionID,
		"type", string(msg.Type),
	)

	if !msg.Type.IsRelayed() {
		return domain.Invalid("type", fmt.Sprintf("%q is not relayed", msg.Type))
	}
	if senderID == "" {
		return domain.Invalid("from", "is required")
	}
	if msg.SessionID == "" {
		return domain.Invalid("sessionId", "is required")
	}
	if msg.From != "" && msg.From != senderID {
		return fmt.Errorf("%w: from does not match the sender", domain.ErrForbidden)
	}

	var connected, dropped bool
	err := s.store.Atomically(ctx, func(st *repository.State) error {
		sess, ok := st.Sessions.Get(msg.SessionID)
		if !ok {
			return domain.ErrSessionNotFound
		}
		if !sess.Has(senderID) {
			return fmt.Errorf("%w: %q is not in session %q", domain.ErrForbidden, senderID, sess.ID)
		}
		other := sess.Other(senderID)
		if msg.To != "" && msg.To != other {
			return fmt.Errorf("%w: %q is not the session partner", domain.ErrClientNotFound, msg.To)
		}
		target, ok := st.Presence.Get(other)
		if !ok {
			return domain.ErrClientNotFound
		}
		if sender, ok := st.Presence.Get(senderID); ok {
			sender.Touch(s.now())
		}

		forward := msg
		forward.From = senderID
		forward.To = other
		dropped = !s.deliver(target, forward)

		if msg.Type == domain.KindAnswer && st.Sessions.MarkConnected(sess.ID) {
			for _, id := range []string{sess.ParticipantA, sess.ParticipantB} {
				if c, ok := st.Presence.Get(id); ok {
					c.State = domain.StateConnected
				}
			}
			connected = true
		}
		return nil
	})
	if err != nil {
		log.Info("relay rejected", sl.Err(err))
		return err
	}

	switch {
	case connected:
		log.Info("session connected")
	case dropped:
		log.Warn("relay dropped, partner mailbox full")
	default:
		log.Debug("relayed")
	}
	return nil
}

// Events exposes the client's mailbox. It is closed when the client disconnects.
func (s *MatchService) Events(ctx context.Context, peerID string) (<-chan domain.SignalMessage, error) {
	var events <-chan domain.SignalMessage
	err := s.store.Atomically(ctx, func(st *repository.State) error {
		c, ok := st.Presence.Get(peerID)
		if !ok {
			return domain.ErrClientNotFound
		}
		c.Touch(s.now())
		events = c.Events
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// WaitEvents drains the mailbox, waiting up to wait for the first message.
func (s *MatchService) WaitEvents(ctx context.Context, peerID string, wait time.Duration) ([]domain.SignalMessage, error) {
	events, err := s.Events(ctx, peerID)
	if err != nil {
		return nil, err
	}

	out := drain(events, make([]domain.SignalMessage, 0, 4))
	if len(out) > 0 || wait <= 0 {
		return out, nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case msg, ok := <-events:
		if !ok {
			return out, nil
		}
		out = append(out, msg)
	case <-timer.C:
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return drain(events, out), nil
}

func drain(events <-chan domain.SignalMessage, out []domain.SignalMessage) []domain.SignalMessage {
	for len(out) < maxDrainBatch {
		select {
		case msg, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
	return out
}

func (s *MatchService) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	err := s.store.Atomically(ctx, func(st *repository.State) error {
		stats = domain.Stats{
			Online:   st.Presence.Len(),
			Waiting:  st.Queue.Waiting(s.now()),
			Sessions: st.Sessions.Len(),
		}
		return nil
	})
	return stats, err
}

// SessionInfo reads a session from the audit log, live or finished.
func (s *MatchService) SessionInfo(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordMissing) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

// Sweep evicts expired queue entries, disconnects silent HTTP clients and times out old sessions.
func (s *MatchService) Sweep(ctx context.Context) (SweepReport, error) {
	const op = "service.match.sweep"
	log := s.log.With("op", op)

	var (
		rep SweepReport
		ch  changes
	)
	err := s.store.Atomically(ctx, func(st *repository.State) error {
		now := s.now()
		for _, c := range st.Queue.Sweep(now) {
			if c.State == domain.StateQueued {
				c.State = domain.StateIdle
			}
			rep.Evicted++
		}
		for _, c := range st.Presence.Stale(now, s.opts.PresenceTTL) {
			s.disconnectLocked(st, c.ID, now, &ch)
			rep.Disconnected++
		}
		for _, sess := range st.Sessions.Expired(now, s.opts.SessionTTL) {
			s.endSessionLocked(st, sess.ID, domain.ReasonTimeout, "", now, &ch)
			rep.TimedOut++
		}
		return nil
	})
	s.flush(ctx, &ch)
	if err != nil {
		return rep, err
	}

	if rep != (SweepReport{}) {
		log.Info("sweep done",
			"evicted", rep.Evicted,
			"disconnected", rep.Disconnected,
			"timed_out", rep.TimedOut,
		)
	}
	return rep, nil
}

// Start runs the periodic sweep until ctx is done or Close is called.
func (s *MatchService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.stop = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.opts.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
					s.log.Error("sweep failed", sl.Err(err))
				}
			}
		}
	}()
}

// Close stops the sweeper, closes every mailbox and releases the store.
func (s *MatchService) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		if s.stop != nil {
			s.stop()
		}
		s.mu.Unlock()
		s.wg.Wait()

		_ = s.store.Atomically(context.Background(), func(st *repository.State) error {
			for _, c := range st.Presence.All() {
				st.Presence.Remove(c.ID)
				close(c.Events)
			}
			return nil
		})
		err = s.store.Close()
	})
	return err
}

// matchLocked runs c through the queue and opens a session on a match. The result is
// from c's side; the partner is notified here.
func (s *MatchService) matchLocked(st *repository.State, c *domain.Client, now time.Time, ch *changes) (domain.MatchResult, error) {
	out, err := st.Queue.EnqueueOrMatch(c, now)
	if err != nil {
		return domain.MatchResult{}, err
	}
	if !out.Matched {
		c.State = domain.StateQueued
		c.QueuedAt = now
		return domain.Waiting(), nil
	}

	partner := out.Partner
	sess, err := st.Sessions.Create(c.ID, partner.ID, c.ID, c.Criteria.Mode, now)
	if err != nil {
		partner.State = domain.StateIdle
		return domain.MatchResult{}, err
	}
	ch.created = append(ch.created, *sess)

	for _, p := range []*domain.Client{c, partner} {
		p.State = domain.StateMatched
		p.SessionID = sess.ID
	}

	s.notifyMatch(partner, domain.MatchResult{
		Status:    domain.StatusMatched,
		PartnerID: c.ID,
		Initiator: false,
		SessionID: sess.ID,
		Mode:      sess.Mode,
	})
	return domain.MatchResult{
		Status:    domain.StatusMatched,
		PartnerID: partner.ID,
		Initiator: true,
		SessionID: sess.ID,
		Mode:      sess.Mode,
	}, nil
}

// notifyMatch delivers res exactly once: pushed to socket clients, held for the next poll otherwise.
func (s *MatchService) notifyMatch(c *domain.Client, res domain.MatchResult) {
	if c.Transport == domain.TransportWebSocket && c.EnqueueEvent(domain.NewEvent(domain.KindMatched, res.SessionID, res)) {
		return
	}
	c.SetPendingMatch(&res)
}

func (s *MatchService) requeueLocked(st *repository.State, c *domain.Client, now time.Time, ch *changes) {
	res, err := s.matchLocked(st, c, now, ch)
	if err != nil {
		s.log.Warn("requeue failed", slog.String("peer_id", c.ID), sl.Err(err))
		return
	}
	if res.Status == domain.StatusMatched {
		s.notifyMatch(c, res)
		return
	}
	s.deliver(c, domain.NewEvent(domain.KindWaiting, "", res))
}

func (s *MatchService) disconnectLocked(st *repository.State, peerID string, now time.Time, ch *changes) {
	c, ok := st.Presence.Remove(peerID)
	if !ok {
		return
	}
	st.Queue.Remove(peerID)

	if sess, ok := st.Sessions.Lookup(peerID); ok {
		partner := s.endSessionLocked(st, sess.ID, domain.ReasonParticipantLeft, peerID, now, ch)
		if partner != nil && s.opts.RequeuePartner {
			s.requeueLocked(st, partner, now, ch)
		}
	}

	c.State = domain.StateEnded
	c.SessionID = ""
	c.TakePendingMatch()
	close(c.Events)
}

// endSessionLocked ends the session and notifies every connected participant except leaver.
// It returns leaver's partner when that partner is still connected.
func (s *MatchService) endSessionLocked(st *repository.State, sessionID string, reason domain.EndReason, leaver string, now time.Time, ch *changes) *domain.Client {
	sess, ok := st.Sessions.End(sessionID, reason, now)
	if !ok {
		return nil
	}
	ch.ended = append(ch.ended, *sess)

	event := domain.NewEvent(domain.KindSessionEnded, sess.ID, domain.SessionEndedPayload{Reason: reason})
	var partner *domain.Client
	for _, id := range []string{sess.ParticipantA, sess.ParticipantB} {
		c, ok := st.Presence.Get(id)
		if !ok {
			continue
		}
		if c.SessionID == sess.ID {
			c.SessionID = ""
			c.State = domain.StateEnded
		}
		c.DropPendingMatch(sess.ID)
		if id == leaver {
			continue
		}
		s.deliver(c, event)
		if leaver != "" {
			partner = c
		}
	}
	return partner
}

func (s *MatchService) deliver(c *domain.Client, msg domain.SignalMessage) bool {
	if c.EnqueueEvent(msg) {
		return true
	}
	s.log.Debug("dropping event, mailbox full",
		slog.String("peer_id", c.ID),
		slog.String("type", string(msg.Type)),
	)
	return false
}

func (s *MatchService) flush(ctx context.Context, ch *changes) {
	const op = "service.match.flush"
	if len(ch.created) == 0 && len(ch.ended) == 0 {
		return
	}
	log := s.log.With("op", op)
	ctx = context.WithoutCancel(ctx)

	for i := range ch.created {
		if err := s.sessions.Record(ctx, &ch.created[i]); err != nil {
			log.Error("failed to record session", slog.String("session_id", ch.created[i].ID), sl.Err(err))
		}
	}
	for i := range ch.ended {
		if err := s.sessions.Finish(ctx, &ch.ended[i]); err != nil {
			log.Error("failed to finish session", slog.String("session_id", ch.ended[i].ID), sl.Err(err))
		}
	}
}

func normalizeCriteria(c domain.Criteria) (domain.Criteria, error) {
	if c.Mode == "" {
		c.Mode = domain.ModeText
	}
	if c.Gender == "" {
		c.Gender = domain.GenderAny
	}
	if !c.Mode.Valid() {
		return domain.Criteria{}, domain.Invalid("mode", fmt.Sprintf("%q is not supported", c.Mode))
	}
	if !c.Gender.Valid() {
		return domain.Criteria{}, domain.Invalid("gender", fmt.Sprintf("%q is not supported", c.Gender))
	}
	c.Interests = domain.NormalizeInterests(c.Interests)
	return c, nil
}
