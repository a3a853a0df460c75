package simulator

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"

	"pawchat/internal/auth"
	"pawchat/internal/client"
	"pawchat/internal/config"
	"pawchat/internal/engine"
	"pawchat/internal/models"
	"pawchat/internal/utils"
)

type SimConfig struct {
	NumUsers         int
	SimulationTime   time.Duration
	MessageFrequency float64 // messages per user per minute
	ServerURL        string
	Secret           string
}

type SimulationStats struct {
	mu             sync.RWMutex
	StartTime      time.Time
	SendAttempts   int64
	SendSuccesses  int64
	SendFailures   int64
	SendLatencies  []time.Duration
	UnreadObserved int64
}

func (s *SimulationStats) recordSend(latency time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SendAttempts++
	if err != nil {
		s.SendFailures++
		return
	}
	s.SendSuccesses++
	s.SendLatencies = append(s.SendLatencies, latency)
}

func (s *SimulationStats) AverageSendLatency() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.SendLatencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, l := range s.SendLatencies {
		total += l
	}
	return total / time.Duration(len(s.SendLatencies))
}

// simulatedUser is one full client core driven by the simulator.
type simulatedUser struct {
	ID     uuid.UUID
	Engine *engine.Engine
	Cancel context.CancelFunc
}

// Simulator drives N real client cores against a running devserver and
// measures send outcomes and delivery as observed through unread counters.
type Simulator struct {
	cfg   SimConfig
	stats *SimulationStats
	users []*simulatedUser
	rng   *rand.Rand
}

func NewSimulator(cfg SimConfig) *Simulator {
	return &Simulator{
		cfg:   cfg,
		stats: &SimulationStats{StartTime: time.Now()},
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Simulator) GetStats() *SimulationStats {
	return s.stats
}

// Run connects all users, generates traffic for the configured duration,
// then tears everything down.
func (s *Simulator) Run(ctx context.Context) error {
	if err := s.connectUsers(ctx); err != nil {
		return err
	}
	defer s.disconnectUsers()

	// Let connections and presence settle before traffic starts.
	time.Sleep(500 * time.Millisecond)

	interval := time.Duration(float64(time.Minute) / (s.cfg.MessageFrequency * float64(s.cfg.NumUsers)))
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	deadline := time.After(s.cfg.SimulationTime)
	for {
		select {
		case <-ctx.Done():
			return s.collectUnread()
		case <-deadline:
			return s.collectUnread()
		case <-ticker.C:
			s.sendRandomMessage(ctx)
		}
	}
}

func (s *Simulator) connectUsers(ctx context.Context) error {
	for i := 0; i < s.cfg.NumUsers; i++ {
		userID := uuid.New()
		token, err := auth.GenerateToken(userID, s.cfg.Secret)
		if err != nil {
			return err
		}
		session, err := auth.ParseSession(token)
		if err != nil {
			return err
		}

		cfg := &config.Config{
			Transport: &config.TransportConfig{
				ServerURL:         s.cfg.ServerURL,
				ReconnectAttempts: 5,
				ReconnectDelay:    time.Second,
			},
			Chat:  config.DefaultChatConfig(),
			Cache: &config.CacheConfig{},
			Token: token,
		}

		system := actor.NewActorSystem()
		rest := client.NewRestClient(s.cfg.ServerURL, token)
		core := engine.NewEngine(system, session, rest, nil, utils.NewMetricsCollector(), cfg)

		userCtx, cancel := context.WithCancel(ctx)
		go func() {
			if err := core.Run(userCtx); err != nil {
				log.Printf("Simulator: user %s transport stopped: %v", userID, err)
			}
		}()

		s.users = append(s.users, &simulatedUser{ID: userID, Engine: core, Cancel: cancel})
	}
	log.Printf("Simulator: connected %d users", len(s.users))
	return nil
}

func (s *Simulator) disconnectUsers() {
	for _, u := range s.users {
		u.Cancel()
	}
}

func (s *Simulator) sendRandomMessage(ctx context.Context) {
	if len(s.users) < 2 {
		return
	}
	from := s.users[s.rng.Intn(len(s.users))]
	to := s.users[s.rng.Intn(len(s.users))]
	if from == to {
		return
	}

	conv, err := from.Engine.StartDirectConversation(ctx, to.ID)
	if err != nil {
		s.stats.recordSend(0, err)
		return
	}

	startTime := time.Now()
	err = from.Engine.Send(ctx, conv.ID, models.KindDirect, randomContent(s.rng), nil)
	s.stats.recordSend(time.Since(startTime), err)
}

// collectUnread sums unread counters across all users as a proxy for
// delivered-but-unread messages.
func (s *Simulator) collectUnread() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var total int64
	for _, u := range s.users {
		conversations, err := u.Engine.LoadConversations(ctx)
		if err != nil {
			continue
		}
		for _, conv := range conversations {
			total += int64(conv.UnreadCount)
		}
	}
	s.stats.mu.Lock()
	s.stats.UnreadObserved = total
	s.stats.mu.Unlock()
	return nil
}

var contentSamples = []string{
	"Bella is due for her rabies booster next week",
	"Can you take Max to the vet on Friday?",
	"The groomer moved our slot to 3pm",
	"Did anyone refill the water bowl?",
	"Reminder: heartworm pill tonight",
	"New photo of Luna in the park!",
}

func randomContent(rng *rand.Rand) string {
	return contentSamples[rng.Intn(len(contentSamples))]
}
