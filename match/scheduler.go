package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/botarena/backend/auth"
	"github.com/botarena/backend/conf"
	"github.com/botarena/backend/logger"
	"github.com/botarena/backend/pool"
	"github.com/botarena/backend/registry"
	"github.com/botarena/backend/sandbox"
)

// GameTimeSlack is added on top of a contest's game time before the
// hard force-stop fires and before the match token expires.
const GameTimeSlack = 180 * time.Second

// Runtime is the container engine surface the scheduler needs.
type Runtime interface {
	ListNames(ctx context.Context) ([]string, error)
	Run(ctx context.Context, spec sandbox.Spec) (string, error)
	Stop(ctx context.Context, id string) error
	OnExit(id string, fn func())
}

type SchedulerConfig struct {
	Registry  registry.Registry
	Queue     Queue
	Ports     *pool.PortPool
	Gate      *pool.SlotGate
	Runtime   Runtime
	Images    *conf.ImageMap
	JwtKey    []byte
	FinishURL string
	BaseDir   string

	// Batch caps how many requests one tick may process; defaults
	// to 10, the SQS receive limit.
	Batch        int
	TickInterval time.Duration
	Logger       *slog.Logger
}

// Scheduler drains the match queue on a fixed tick, launching one
// runner sandbox per runnable request.
type Scheduler struct {
	reg       registry.Registry
	queue     Queue
	ports     *pool.PortPool
	gate      *pool.SlotGate
	runtime   Runtime
	images    *conf.ImageMap
	jwtKey    []byte
	finishURL string
	baseDir   string
	batch     int
	tick      time.Duration
	logger    *slog.Logger
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Batch <= 0 {
		cfg.Batch = 10
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{
		reg:       cfg.Registry,
		queue:     cfg.Queue,
		ports:     cfg.Ports,
		gate:      cfg.Gate,
		runtime:   cfg.Runtime,
		images:    cfg.Images,
		jwtKey:    cfg.JwtKey,
		finishURL: cfg.FinishURL,
		baseDir:   cfg.BaseDir,
		batch:     cfg.Batch,
		tick:      cfg.TickInterval,
		logger:    cfg.Logger,
	}
}

// Start ticks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.logger.Error("scheduler tick failed", "error", err)
			}
		}
	}
}

// Tick processes up to `cap - currentContainerCount` queued requests.
// Per-request failures are isolated: a semantic failure (gate,
// duplicate, launch error) drops the request with a log line, while
// port exhaustion leaves the message un-acked so the queue redelivers
// it on a later tick.
func (s *Scheduler) Tick(ctx context.Context) error {
	avail, err := s.gate.Available(ctx)
	if err != nil {
		return err
	}
	if avail <= 0 {
		return nil
	}
	if avail > s.batch {
		avail = s.batch
	}

	msgs, err := s.queue.Receive(ctx, avail)
	if err != nil {
		return err
	}

	for _, msg := range msgs {
		reqCtx := logger.WithRoomID(logger.WithLogger(ctx, s.logger), msg.Req.RoomID)
		log := logger.FromContext(reqCtx)
		err := s.launch(reqCtx, msg.Req)
		switch {
		case err == nil:
			s.ack(ctx, msg.Handle, log)
		case errors.Is(err, pool.ErrNoPortFree):
			log.Warn("no stream port free, leaving request queued")
		default:
			log.Error("dropping match request", "error", err)
			s.ack(ctx, msg.Handle, log)
		}
	}
	return nil
}

func (s *Scheduler) ack(ctx context.Context, handle string, log *slog.Logger) {
	if err := s.queue.Ack(ctx, handle); err != nil {
		log.Error("failed to ack match request", "error", err)
	}
}

func (s *Scheduler) launch(ctx context.Context, req MatchRequest) error {
	contest, err := s.reg.GetContest(ctx, req.ContestID)
	if err != nil {
		return fmt.Errorf("resolve contest %s: %w", req.ContestID, err)
	}

	ready, err := s.teamsCompiled(ctx, req.RoomID)
	if err != nil {
		return fmt.Errorf("check compile status: %w", err)
	}
	if !ready {
		return errors.New("not all team codes are compiled")
	}

	name := RunnerName(contest.Name, req.RoomID)
	names, err := s.runtime.ListNames(ctx)
	if err != nil {
		return fmt.Errorf("list containers: %w", err)
	}
	if slices.Contains(names, name) {
		return fmt.Errorf("runner %s is already in flight", name)
	}

	gameTime := time.Duration(contest.GameTimeSec) * time.Second
	token, err := auth.GenerateMatchToken(
		req.ContestID, req.RoomID, req.TeamIDs, gameTime+GameTimeSlack, s.jwtKey)
	if err != nil {
		return fmt.Errorf("mint match token: %w", err)
	}

	roomDir := RoomDir(s.baseDir, contest.Name, req.RoomID)
	port := 0
	if req.Exposed {
		port, err = s.ports.Lease(req.RoomID, roomDir)
		if err != nil {
			return err
		}
	}

	id, err := s.runtime.Run(ctx, s.runnerSpec(req, contest, name, token, roomDir, port))
	if err != nil {
		if req.Exposed {
			s.ports.Release(req.RoomID)
		}
		return fmt.Errorf("launch runner: %w", err)
	}

	log := logger.FromContext(ctx)
	if req.Exposed {
		if req.Competition {
			if err := s.reg.SetRoomPort(ctx, req.RoomID, &port); err != nil {
				log.Warn("failed to persist room port", "error", err)
			}
		}
		s.armPortReclaim(id, req, roomDir)
	}
	s.armForceStop(id, gameTime+GameTimeSlack)

	if err := s.reg.SetRoomStatus(ctx, req.RoomID, registry.RoomRunning); err != nil {
		log.Warn("failed to mark room running", "error", err)
	}
	log.Info("launched match runner", "container", name, "port", port)
	return nil
}

func (s *Scheduler) runnerSpec(req MatchRequest, contest *registry.Contest, name, token, roomDir string, port int) sandbox.Spec {
	binds := []string{
		roomDir + ":/game/output",
		MapDir(s.baseDir, contest.Name) + ":/game/map:ro",
	}
	for i, teamID := range req.TeamIDs {
		binds = append(binds, fmt.Sprintf("%s:/game/code/%s:ro",
			TeamCodeDir(s.baseDir, contest.Name, teamID), req.Labels[i]))
	}

	mode := "0"
	if req.Competition {
		mode = "1"
	}
	exposed := "0"
	if req.Exposed {
		exposed = "1"
	}
	env := []string{
		"FINISH_URL=" + s.finishURL,
		"TOKEN=" + token,
		"MODE=" + mode,
		"MAP_ID=" + req.MapID,
		fmt.Sprintf("GAME_TIME=%d", contest.GameTimeSec),
		"EXPOSED=" + exposed,
	}
	if req.Exposed {
		env = append(env, fmt.Sprintf("PORT=%d", port))
	}

	return sandbox.Spec{
		Image:      s.images.For(contest.Name).Runner,
		Name:       name,
		Env:        env,
		Binds:      binds,
		MemLimitMB: contest.MemLimitMB,
		Port:       port,
		AutoRemove: true,
	}
}

// teamsCompiled gates the launch: every code bound to the room must
// have finished compiling, or be written in a language that never
// compiles.
func (s *Scheduler) teamsCompiled(ctx context.Context, roomID string) (bool, error) {
	roomTeams, err := s.reg.ListRoomTeams(ctx, roomID)
	if err != nil {
		return false, err
	}
	if len(roomTeams) != 2 {
		return false, nil
	}
	for _, rt := range roomTeams {
		for _, codeID := range rt.CodeIDs {
			code, err := s.reg.GetCode(ctx, codeID)
			if err != nil {
				return false, err
			}
			if code.Status != registry.CompileSuccess && code.Status != registry.CompileNoNeed {
				return false, nil
			}
		}
	}
	return true, nil
}

func (s *Scheduler) armPortReclaim(id string, req MatchRequest, roomDir string) {
	s.runtime.OnExit(id, func() {
		if req.Competition {
			if err := s.reg.SetRoomPort(context.Background(), req.RoomID, nil); err != nil {
				s.logger.Warn("failed to clear room port", "room_id", req.RoomID, "error", err)
			}
		}
		s.ports.Release(req.RoomID)
		if err := pool.WriteSentinel(roomDir); err != nil {
			s.logger.Warn("failed to write sentinel", "room_id", req.RoomID, "error", err)
		}
	})
}

func (s *Scheduler) armForceStop(id string, after time.Duration) {
	time.AfterFunc(after, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.runtime.Stop(ctx, id); err != nil {
			s.logger.Debug("force stop skipped", "container", id, "error", err)
		}
	})
}
