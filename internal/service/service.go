package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Aleph-Project/Aleph/internal/deadletter"
	"github.com/Aleph-Project/Aleph/internal/dedupe"
	"github.com/Aleph-Project/Aleph/internal/enrich"
	"github.com/Aleph-Project/Aleph/internal/models"
	"github.com/Aleph-Project/Aleph/internal/repo/interfaces"
	"github.com/Aleph-Project/Aleph/internal/timedim"
)

// ErrEventDropped marks a permanent per-event failure: the event was
// logged and dead-lettered, and redelivering it cannot succeed. The
// consumer acknowledges these; any other error leaves the offset
// unmarked so the broker redelivers.
var ErrEventDropped = errors.New("event dropped")

type PlayEventService struct {
	repo       interfaces.WarehouseRepo
	enricher   enrich.Enricher
	dedupe     dedupe.Deduplicator
	deadLetter deadletter.Sink
	topic      string

	metrics *Metrics
}

type Metrics struct {
	mu              sync.RWMutex
	TotalProcessed  int64
	TotalDropped    int64
	TotalDuplicates int64
	LastProcessedAt time.Time
}

type MetricsData struct {
	TotalProcessed  int64
	TotalDropped    int64
	TotalDuplicates int64
	LastProcessedAt time.Time
}

// NewPlayEventService wires the per-event pipeline. dedupe and deadLetter
// are optional; pass nil to disable them.
func NewPlayEventService(repo interfaces.WarehouseRepo, enricher enrich.Enricher, dd dedupe.Deduplicator, dl deadletter.Sink, topic string) *PlayEventService {
	return &PlayEventService{
		repo:       repo,
		enricher:   enricher,
		dedupe:     dd,
		deadLetter: dl,
		topic:      topic,
		metrics:    &Metrics{},
	}
}

// HandlePlayEvent processes one raw message end to end: decode, enrich,
// derive the time dimension, and record everything in one warehouse
// transaction. Events are handled strictly one at a time; any failure
// aborts the whole event with no partial writes.
func (s *PlayEventService) HandlePlayEvent(ctx context.Context, message []byte) error {
	var event models.PlayEventMessage
	if err := json.Unmarshal(message, &event); err != nil {
		return s.drop(ctx, message, fmt.Sprintf("malformed payload: %v", err))
	}
	if event.UserID == "" || event.SongID == "" || event.PlayedAt == "" {
		return s.drop(ctx, message, "missing required fields")
	}

	timeDim, playedAt, err := timedim.Derive(event.PlayedAt)
	if err != nil {
		return s.drop(ctx, message, fmt.Sprintf("invalid played_at: %v", err))
	}

	if s.dedupe != nil {
		// Read-only check; the key is set only after the warehouse
		// commit, so a failed attempt never masks its own redelivery.
		seen, err := s.dedupe.Seen(ctx, event.UserID, event.SongID, event.PlayedAt)
		if err != nil {
			logrus.WithError(err).Warn("dedupe check failed, continuing")
		} else if seen {
			s.metrics.incrementDuplicates()
			logrus.WithFields(logrus.Fields{
				"user_id": event.UserID,
				"song_id": event.SongID,
			}).Debug("duplicate play event skipped")
			return nil
		}
	}

	profile, err := s.enricher.GetUserProfile(ctx, event.UserID)
	if err != nil {
		return s.drop(ctx, message, fmt.Sprintf("user profile unavailable: %v", err))
	}

	song, err := s.enricher.GetSongByID(ctx, event.SongID)
	if err != nil {
		return s.drop(ctx, message, fmt.Sprintf("song metadata unavailable: %v", err))
	}

	play := &models.PlayRecord{
		Profile:        *profile,
		Song:           *song,
		Time:           timeDim,
		PlayedAt:       playedAt,
		DurationPlayed: event.DurationPlayed,
	}

	if err := s.repo.RecordPlay(ctx, play); err != nil {
		// Transient warehouse failure: leave the offset unmarked so the
		// broker redelivers instead of silently losing the play.
		return fmt.Errorf("record play: %w", err)
	}

	if s.dedupe != nil {
		if err := s.dedupe.MarkSeen(ctx, event.UserID, event.SongID, event.PlayedAt); err != nil {
			logrus.WithError(err).Warn("failed to mark play event as seen")
		}
	}

	s.metrics.incrementProcessed()
	logrus.WithFields(logrus.Fields{
		"user_id":  event.UserID,
		"song_id":  event.SongID,
		"time_key": timeDim.ID,
	}).Info("play event recorded")

	return nil
}

func (s *PlayEventService) drop(ctx context.Context, message []byte, reason string) error {
	s.metrics.incrementDropped()
	logrus.WithField("reason", reason).Warn("dropping play event")

	if s.deadLetter != nil {
		if err := s.deadLetter.Record(ctx, s.topic, message, reason); err != nil {
			logrus.WithError(err).Error("failed to dead-letter event")
		}
	}

	return fmt.Errorf("%w: %s", ErrEventDropped, reason)
}

func (s *PlayEventService) GetMetrics() MetricsData {
	s.metrics.mu.RLock()
	defer s.metrics.mu.RUnlock()
	return MetricsData{
		TotalProcessed:  s.metrics.TotalProcessed,
		TotalDropped:    s.metrics.TotalDropped,
		TotalDuplicates: s.metrics.TotalDuplicates,
		LastProcessedAt: s.metrics.LastProcessedAt,
	}
}

func (m *Metrics) incrementProcessed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalProcessed++
	m.LastProcessedAt = time.Now()
}

func (m *Metrics) incrementDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalDropped++
}

func (m *Metrics) incrementDuplicates() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalDuplicates++
}
