package sources

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/solgems/gemscan/internal/domain"
)

// launchQueueCap bounds the buffered launch events between cycles. Oldest
// events drop first when the detector falls behind.
const launchQueueCap = 256

// LiveLaunchStream subscribes to a pump-portal-style websocket of new token
// launches and buffers events until the next cycle drains them. The stream
// runs in its own goroutine; Discover never blocks on the network.
type LiveLaunchStream struct {
	wsURL string

	mu     sync.Mutex
	queue  []domain.Candidate
	cancel context.CancelFunc
	dialer *websocket.Dialer
}

// NewLiveLaunchStream creates the live-launch adapter.
func NewLiveLaunchStream(wsURL string) *LiveLaunchStream {
	return &LiveLaunchStream{
		wsURL:  wsURL,
		dialer: websocket.DefaultDialer,
	}
}

func (s *LiveLaunchStream) Name() string { return string(domain.SourceLiveLaunch) }

type launchEvent struct {
	Mint         string  `json:"mint"`
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	MarketCapSol float64 `json:"marketCapSol"`
	SolInCurve   float64 `json:"vSolInBondingCurve"`
	Timestamp    int64   `json:"timestamp"` // unix millis
}

// Start opens the websocket and keeps reading until ctx is cancelled,
// redialling with backoff on failure.
func (s *LiveLaunchStream) Start(ctx context.Context) {
	streamCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		backoff := time.Second
		for streamCtx.Err() == nil {
			if err := s.readLoop(streamCtx); err != nil && streamCtx.Err() == nil {
				log.Warn().Err(err).Dur("backoff", backoff).Msg("live launch stream disconnected")
				select {
				case <-streamCtx.Done():
					return
				case <-time.After(backoff):
				}
				if backoff < 30*time.Second {
					backoff *= 2
				}
			} else {
				backoff = time.Second
			}
		}
	}()
}

// Stop tears down the stream goroutine.
func (s *LiveLaunchStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *LiveLaunchStream) readLoop(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"method": "subscribeNewToken"}); err != nil {
		return err
	}
	log.Info().Str("url", s.wsURL).Msg("live launch stream connected")

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ev launchEvent
		if err := json.Unmarshal(payload, &ev); err != nil || ev.Mint == "" {
			continue
		}
		s.enqueue(ev)
	}
}

func (s *LiveLaunchStream) enqueue(ev launchEvent) {
	now := time.Now()
	c := domain.Candidate{
		Address:      ev.Mint,
		Symbol:       ev.Symbol,
		Name:         ev.Name,
		Source:       domain.SourceLiveLaunch,
		DiscoveredAt: now,
	}
	if ev.Timestamp > 0 {
		c.AgeMinutes = now.Sub(time.UnixMilli(ev.Timestamp)).Minutes()
	}
	if ev.SolInCurve > 0 {
		progress := ev.SolInCurve / (float64(curveTargetLamports) / lamportsPerSol) * 100
		if progress > 100 {
			progress = 100
		}
		c.BondingCurveProgress = progress
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) >= launchQueueCap {
		s.queue = s.queue[1:]
	}
	s.queue = append(s.queue, c)
}

// Discover drains the buffered launch events. The stream goroutine produces
// into the queue and never reads it back.
func (s *LiveLaunchStream) Discover(ctx context.Context) ([]domain.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drained := s.queue
	s.queue = nil
	return drained, nil
}
