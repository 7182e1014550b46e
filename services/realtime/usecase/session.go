package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/piresc/nebengjek-dispatch/services/realtime"
	"github.com/piresc/nebengjek-dispatch/services/realtime/metrics"
	"golang.org/x/sync/errgroup"
)

const chatFetchConcurrency = 4

// Session is one client's cache of its active rides, open offers and chat
// threads. Feed events are applied last-write-wins by (UpdatedAt, Version);
// reconciling fetches are the source of truth.
type Session struct {
	userID       uuid.UUID
	role         models.Role
	fetcher      realtime.Fetcher
	notifier     realtime.Notifier
	fetchTimeout time.Duration
	metrics      *metrics.Metrics
	logger       *logger.ZapLogger

	sub       realtime.Subscription
	closeOnce sync.Once

	// reconcileMu serializes full fetches
	reconcileMu sync.Mutex

	mu        sync.Mutex
	rides     map[uuid.UUID]models.Ride
	withdrawn map[uuid.UUID]struct{}
	threads   map[uuid.UUID]*thread
	selected  *uuid.UUID
	// watermark is the store time of the last reconciling fetch; an unknown
	// ride written before it may have committed after the fetch read
	watermark time.Time
	// epoch counts applied ride writes; touched holds each ride's epoch at
	// its last feed write
	epoch   uint64
	touched map[uuid.UUID]uint64
	recheck bool
	seq     uint64
	closed  bool

	pushMu sync.Mutex
	pushed uint64
}

// thread is one ride's chat as seen by the session owner
type thread struct {
	messages []models.ChatMessage
	// viewedUpTo is the creation time of the newest message shown when the
	// owner last opened the thread
	viewedUpTo time.Time
}

func newSession(userID uuid.UUID, role models.Role, fetcher realtime.Fetcher, notifier realtime.Notifier,
	fetchTimeout time.Duration, m *metrics.Metrics, log *logger.ZapLogger) *Session {
	return &Session{
		userID:       userID,
		role:         role,
		fetcher:      fetcher,
		notifier:     notifier,
		fetchTimeout: fetchTimeout,
		metrics:      m,
		logger:       log.With(logger.UUID("user_id", userID), logger.String("role", string(role))),
		rides:        make(map[uuid.UUID]models.Ride),
		withdrawn:    make(map[uuid.UUID]struct{}),
		touched:      make(map[uuid.UUID]uint64),
		threads:      make(map[uuid.UUID]*thread),
	}
}

// HandleRideEvent applies a ride change from the feed
func (s *Session) HandleRideEvent(event models.RideEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	changed, late := s.applyRideLocked(event.Op, event.Ride)
	seq, snap := s.commitLocked(changed)
	recheck := late && s.requestRecheckLocked()
	s.mu.Unlock()

	s.observe("ride", changed)
	if changed {
		s.push(seq, snap)
	}
	if recheck {
		go s.Reconcile(context.Background())
	}
}

// HandleChatEvent applies a chat message change from the feed
func (s *Session) HandleChatEvent(event models.ChatEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	changed := s.applyMessageLocked(event.Message)
	seq, snap := s.commitLocked(changed)
	s.mu.Unlock()

	s.observe("chat", changed)
	if changed {
		s.push(seq, snap)
	}
}

// HandleReconnect refetches everything the feed may have missed
func (s *Session) HandleReconnect() {
	s.logger.Info("Feed reconnected, reconciling")
	s.Reconcile(context.Background())
}

// Reconcile fetches the active rides, offers and their chat threads and
// merges them into the cache. Failures leave the cache stale until the next
// reconcile.
func (s *Session) Reconcile(ctx context.Context) {
	s.reconcileMu.Lock()
	defer s.reconcileMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	since := s.epoch
	s.recheck = false
	s.mu.Unlock()

	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	active, err := s.fetcher.FetchActiveRides(ctx, s.userID, s.role)
	s.metrics.ObserveReconcile(err)
	if err != nil {
		s.logger.Warn("Reconcile failed, state may be stale", logger.Err(err))
		return
	}

	messages := s.fetchThreads(ctx, active.Rides)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	late := s.mergeLocked(active, messages, since)
	seq, snap := s.commitLocked(true)
	recheck := late && s.requestRecheckLocked()
	s.mu.Unlock()

	s.push(seq, snap)
	if recheck {
		go s.Reconcile(context.Background())
	}
}

// requestRecheckLocked reports whether the caller should start a follow-up
// reconcile; at most one is pending at a time
func (s *Session) requestRecheckLocked() bool {
	if s.closed || s.recheck {
		return false
	}
	s.recheck = true
	s.metrics.ObserveRecheck()
	return true
}

// fetchThreads loads the chat of every ride that has one, in parallel. A
// thread that fails to load keeps its cached messages.
func (s *Session) fetchThreads(ctx context.Context, rides []models.Ride) map[uuid.UUID][]models.ChatMessage {
	var (
		mu       sync.Mutex
		messages = make(map[uuid.UUID][]models.ChatMessage)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(chatFetchConcurrency)
	for _, ride := range rides {
		if ride.Status != models.RideStatusAccepted && ride.Status != models.RideStatusInProgress {
			continue
		}
		rideID := ride.ID
		g.Go(func() error {
			msgs, err := s.fetcher.FetchMessages(gctx, rideID, s.userID)
			if err != nil {
				s.logger.Warn("Chat fetch failed, keeping cached thread",
					logger.UUID("ride_id", rideID),
					logger.Err(err))
				return nil
			}
			mu.Lock()
			messages[rideID] = msgs
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return messages
}

// mergeLocked folds a full fetch into the cache. It reports whether a ride
// the feed wrote while the fetch was in flight was missing from it, in which
// case another fetch has to confirm it.
func (s *Session) mergeLocked(active *models.ActiveRides, messages map[uuid.UUID][]models.ChatMessage, since uint64) bool {
	fetched := make(map[uuid.UUID]struct{}, len(active.Rides)+len(active.Offers))
	for _, list := range [][]models.Ride{active.Rides, active.Offers} {
		for _, r := range list {
			fetched[r.ID] = struct{}{}
			if cached, ok := s.rides[r.ID]; !ok || !cached.NewerThan(&r) {
				s.rides[r.ID] = r
			}
		}
	}

	// anything the fetch no longer returns is gone, unless the feed
	// delivered a write newer than the fetch itself or one the fetch may
	// have raced
	late := false
	for id, r := range s.rides {
		if _, ok := fetched[id]; ok || !r.UpdatedAt.Before(active.ServerTime) {
			continue
		}
		if s.touched[id] > since && (s.isActive(r) || s.isOffer(r)) {
			late = true
			continue
		}
		delete(s.rides, id)
		delete(s.touched, id)
	}
	for id := range s.withdrawn {
		if _, ok := s.rides[id]; !ok {
			delete(s.withdrawn, id)
		}
	}
	if active.ServerTime.After(s.watermark) {
		s.watermark = active.ServerTime
	}

	for rideID, msgs := range messages {
		for _, m := range msgs {
			s.applyMessageLocked(m)
		}
		s.thread(rideID)
	}
	for id := range s.threads {
		if r, ok := s.rides[id]; !ok || !s.isActive(r) {
			delete(s.threads, id)
		}
	}
	return late
}

// applyRideLocked stores r if it is newer than the cached copy and reports
// whether the cache changed. late is set when r is an unknown ride written
// before the last fetch; it is shown but needs a fetch to confirm it.
func (s *Session) applyRideLocked(op models.FeedOp, r models.Ride) (changed, late bool) {
	if op == models.FeedOpWithdraw {
		if s.role != models.RoleDriver {
			return false, false
		}
		_, was := s.withdrawn[r.ID]
		s.withdrawn[r.ID] = struct{}{}
		return !was, false
	}

	cached, ok := s.rides[r.ID]
	if ok && !r.NewerThan(&cached) {
		return false, false
	}
	if !ok {
		if !s.isActive(r) && !s.isOffer(r) {
			return false, false
		}
		late = r.UpdatedAt.Before(s.watermark)
	}
	s.rides[r.ID] = r
	s.epoch++
	s.touched[r.ID] = s.epoch
	return true, late
}

// applyMessageLocked inserts m in creation order, or records its read
// receipt when the message is already known
func (s *Session) applyMessageLocked(m models.ChatMessage) bool {
	t := s.thread(m.RideID)
	for i := range t.messages {
		if t.messages[i].ID != m.ID {
			continue
		}
		if t.messages[i].ReadAt == nil && m.ReadAt != nil {
			t.messages[i].ReadAt = m.ReadAt
			return true
		}
		return false
	}

	i := sort.Search(len(t.messages), func(i int) bool {
		return m.Before(&t.messages[i])
	})
	t.messages = append(t.messages, models.ChatMessage{})
	copy(t.messages[i+1:], t.messages[i:])
	t.messages[i] = m
	return true
}

func (s *Session) thread(rideID uuid.UUID) *thread {
	t, ok := s.threads[rideID]
	if !ok {
		t = &thread{}
		s.threads[rideID] = t
	}
	return t
}

// isActive reports whether r belongs in the owner's active set
func (s *Session) isActive(r models.Ride) bool {
	if s.role == models.RoleDriver {
		return r.HasDriver(s.userID) &&
			(r.Status == models.RideStatusAccepted || r.Status == models.RideStatusInProgress)
	}
	return r.PassengerID == s.userID && r.Status.IsActive()
}

// isOffer reports whether r is a pending ride the driver may still accept
func (s *Session) isOffer(r models.Ride) bool {
	if s.role != models.RoleDriver || r.Status != models.RideStatusPending {
		return false
	}
	if _, gone := s.withdrawn[r.ID]; gone {
		return false
	}
	return r.DriverID == nil || *r.DriverID == s.userID
}

// commitLocked clears a selection that left the active set and, when the
// cache changed, captures the snapshot to push
func (s *Session) commitLocked(changed bool) (uint64, models.SessionSnapshot) {
	if s.selected != nil {
		if r, ok := s.rides[*s.selected]; !ok || !s.isActive(r) {
			s.selected = nil
			changed = true
		}
	}
	if !changed {
		return 0, models.SessionSnapshot{}
	}
	s.seq++
	return s.seq, s.snapshotLocked()
}

// push delivers snap unless a newer snapshot already went out
func (s *Session) push(seq uint64, snap models.SessionSnapshot) {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()
	if seq <= s.pushed {
		return
	}
	s.pushed = seq
	if err := s.notifier.Notify(snap); err != nil {
		s.logger.Debug("Snapshot push failed", logger.Err(err))
	}
}

func (s *Session) observe(kind string, changed bool) {
	result := "stale"
	if changed {
		result = "applied"
	}
	s.metrics.ObserveFeedEvent(kind, result)
}

// Select points the current display at an active ride; nil clears it
func (s *Session) Select(rideID *uuid.UUID) error {
	s.mu.Lock()
	if rideID == nil {
		s.selected = nil
	} else {
		r, ok := s.rides[*rideID]
		if !ok || !s.isActive(r) {
			s.mu.Unlock()
			return models.NewValidationError("ride_id", "is not one of your active rides")
		}
		id := *rideID
		s.selected = &id
	}
	seq, snap := s.commitLocked(true)
	s.mu.Unlock()

	s.push(seq, snap)
	return nil
}

// Selected returns the selected ride id, if any
func (s *Session) Selected() *uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return nil
	}
	id := *s.selected
	return &id
}

// Current returns the selected ride, else the only active ride, else nil
func (s *Session) Current() *models.Ride {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked(s.activeLocked())
}

// ActiveRides returns the active set ordered by request time
func (s *Session) ActiveRides() []models.Ride {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked()
}

// Unread returns the unread counter of a ride's thread
func (s *Session) Unread(rideID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadLocked(rideID)
}

// MarkViewed resets the thread's unread counter and records the read on the
// server
func (s *Session) MarkViewed(ctx context.Context, rideID uuid.UUID) {
	s.mu.Lock()
	t := s.thread(rideID)
	hadUnread := s.unreadLocked(rideID) > 0
	if n := len(t.messages); n > 0 && t.messages[n-1].CreatedAt.After(t.viewedUpTo) {
		t.viewedUpTo = t.messages[n-1].CreatedAt
	}
	seq, snap := s.commitLocked(hadUnread)
	s.mu.Unlock()

	if hadUnread {
		s.push(seq, snap)
	}
	if err := s.fetcher.MarkChatRead(ctx, rideID, s.userID); err != nil {
		s.logger.Warn("Failed to record chat read",
			logger.UUID("ride_id", rideID),
			logger.Err(err))
	}
}

func (s *Session) unreadLocked(rideID uuid.UUID) int {
	t, ok := s.threads[rideID]
	if !ok {
		return 0
	}
	n := 0
	for _, m := range t.messages {
		if m.SenderID != s.userID && m.ReadAt == nil && m.CreatedAt.After(t.viewedUpTo) {
			n++
		}
	}
	return n
}

// Snapshot returns the state a client renders
func (s *Session) Snapshot() models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() models.SessionSnapshot {
	active := s.activeLocked()
	snap := models.SessionSnapshot{
		UserID:      s.userID,
		Role:        s.role,
		ActiveRides: active,
		CurrentRide: s.currentLocked(active),
		Messages:    make(map[uuid.UUID][]models.ChatMessage, len(active)),
		Unread:      make(map[uuid.UUID]int, len(active)),
	}
	if s.role == models.RoleDriver {
		snap.Offers = s.offersLocked()
	}
	if s.selected != nil {
		id := *s.selected
		snap.SelectedRideID = &id
	}
	for _, r := range active {
		t, ok := s.threads[r.ID]
		if !ok {
			continue
		}
		snap.Messages[r.ID] = append([]models.ChatMessage(nil), t.messages...)
		snap.Unread[r.ID] = s.unreadLocked(r.ID)
	}
	return snap
}

func (s *Session) activeLocked() []models.Ride {
	active := make([]models.Ride, 0, len(s.rides))
	for _, r := range s.rides {
		if s.isActive(r) {
			active = append(active, r)
		}
	}
	sortRides(active)
	return active
}

func (s *Session) offersLocked() []models.Ride {
	offers := make([]models.Ride, 0)
	for _, r := range s.rides {
		if s.isOffer(r) {
			offers = append(offers, r)
		}
	}
	sortRides(offers)
	return offers
}

func (s *Session) currentLocked(active []models.Ride) *models.Ride {
	if s.selected != nil {
		for i := range active {
			if active[i].ID == *s.selected {
				return &active[i]
			}
		}
	}
	if len(active) == 1 {
		return &active[0]
	}
	return nil
}

func sortRides(rides []models.Ride) {
	sort.Slice(rides, func(i, j int) bool {
		if !rides[i].RequestedAt.Equal(rides[j].RequestedAt) {
			return rides[i].RequestedAt.Before(rides[j].RequestedAt)
		}
		return rides[i].ID.String() < rides[j].ID.String()
	})
}

// Close stops the feed subscription; further events are ignored
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if s.sub != nil {
			if err := s.sub.Unsubscribe(); err != nil {
				s.logger.Warn("Failed to unsubscribe feed", logger.Err(err))
			}
		}
		s.metrics.SessionClosed()
	})
}
