// Package monitor runs the periodic monitoring cycle: decide whether to run,
// obtain or rotate the agent session, invoke the remote agent, extract the
// structured result, and persist context and history. Cycles run strictly
// sequentially; all cross-cycle state lives in the session and context stores
// so a restart picks up exactly where the previous process left off.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/verdant/internal/agent"
	"github.com/kalambet/verdant/internal/extract"
	"github.com/kalambet/verdant/internal/state"
	"github.com/kalambet/verdant/internal/storage"
)

const defaultInterval = 30 * time.Minute

// AgentClient is the remote agent surface the coordinator needs.
type AgentClient interface {
	CreateSession(ctx context.Context) (string, error)
	Run(ctx context.Context, sessionID, text string) ([]agent.Event, error)
}

// LogSink records one entry per run attempt that received an agent response.
// Append failures must not fail the cycle.
type LogSink interface {
	AppendExecutionLog(storage.ExecutionLog) error
}

// Deps carries the coordinator's collaborators.
type Deps struct {
	Agent    AgentClient
	Sessions *state.SessionStore
	Contexts *state.ContextStore
	Sink     LogSink

	Quiet         QuietPolicy
	Interval      time.Duration // fixed cadence between cycles
	MaxSessionAge time.Duration // 0 disables rotation

	Now    func() time.Time // defaults to time.Now
	Logger *slog.Logger     // defaults to slog.Default()
}

// Coordinator drives the monitoring cycle.
type Coordinator struct {
	agent    AgentClient
	sessions *state.SessionStore
	contexts *state.ContextStore
	sink     LogSink

	quiet         QuietPolicy
	interval      time.Duration
	maxSessionAge time.Duration

	now    func() time.Time
	logger *slog.Logger

	// lastSuccess feeds the quiet-hours override. It is seeded from the
	// context snapshot so a restart during quiet hours does not immediately
	// re-run a job that completed minutes before the crash.
	lastSuccess time.Time
}

// New creates a Coordinator. The context snapshot's timestamp, when present,
// seeds the last-successful-run time.
func New(deps Deps) *Coordinator {
	if deps.Interval <= 0 {
		deps.Interval = defaultInterval
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	c := &Coordinator{
		agent:         deps.Agent,
		sessions:      deps.Sessions,
		contexts:      deps.Contexts,
		sink:          deps.Sink,
		quiet:         deps.Quiet,
		interval:      deps.Interval,
		maxSessionAge: deps.MaxSessionAge,
		now:           deps.Now,
		logger:        deps.Logger,
	}

	if snap, ok := c.contexts.Load(); ok && !snap.Timestamp.IsZero() {
		c.lastSuccess = snap.Timestamp
	}
	return c
}

// Run executes one cycle immediately, then one per interval until ctx is
// cancelled. Cycle errors are logged and never stop the loop.
func (c *Coordinator) Run(ctx context.Context) {
	c.logger.Info("monitor started", "interval", c.interval)

	if err := c.RunOnce(ctx); err != nil {
		c.logger.Error("monitoring cycle failed", "error", err)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("monitor stopped")
			return
		case <-ticker.C:
			if err := c.RunOnce(ctx); err != nil {
				c.logger.Error("monitoring cycle failed", "error", err)
			}
		}
	}
}

// RunOnce executes a single monitoring cycle. The returned error means "this
// cycle produced nothing"; the caller retries on the next tick.
func (c *Coordinator) RunOnce(ctx context.Context) error {
	now := c.now()

	if c.quiet.ShouldSkip(now, c.lastSuccess) {
		c.logger.Info("skipping cycle: quiet hours",
			"quiet_start", c.quiet.StartHour, "quiet_end", c.quiet.EndHour)
		return nil
	}

	rec, ok := c.sessions.Load()
	if ok && c.maxSessionAge > 0 && !rec.CreatedAt.IsZero() && now.Sub(rec.CreatedAt) >= c.maxSessionAge {
		c.rotateSession(ctx, rec, now)
		ok = false
	}

	sessionID := rec.SessionID
	if !ok {
		id, err := c.createSession(ctx, now)
		if err != nil {
			return err
		}
		sessionID = id
	} else {
		c.logger.Debug("reusing session", "session_id", sessionID)
	}

	var snap *state.Snapshot
	if s, found := c.contexts.Load(); found {
		snap = &s
	}
	prompt := buildPrompt(snap)

	events, err := c.agent.Run(ctx, sessionID, prompt)
	if err != nil {
		var se *agent.StatusError
		if !errors.As(err, &se) || !se.SessionInvalid() {
			return fmt.Errorf("running agent: %w", err)
		}

		// The server no longer knows this session. Clear it and retry the
		// whole prompt exactly once on a fresh one.
		c.logger.Warn("session rejected by agent, resetting", "session_id", sessionID, "status", se.Code)
		if clearErr := c.sessions.Clear(); clearErr != nil {
			c.logger.Error("clearing session record failed", "error", clearErr)
		}
		sessionID, err = c.createSession(ctx, now)
		if err != nil {
			return err
		}
		events, err = c.agent.Run(ctx, sessionID, prompt)
		if err != nil {
			return fmt.Errorf("retry after session reset: %w", err)
		}
	}

	result := extract.Extract(agent.Text(events))
	c.persist(sessionID, result)
	return nil
}

// createSession obtains a fresh session from the agent and records it. A
// store write failure is logged loudly but does not abort the cycle: the
// in-memory id still carries this run, and the next cycle will create a new
// session.
func (c *Coordinator) createSession(ctx context.Context, now time.Time) (string, error) {
	id, err := c.agent.CreateSession(ctx)
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	c.logger.Info("created session", "session_id", id)

	if err := c.sessions.Save(id, now); err != nil {
		c.logger.Error("persisting session record failed", "error", err)
	}
	return id, nil
}

// rotateSession runs the handover prompt on an expired session, seeds the
// context store from its summary, and clears the session record. Every step
// is best-effort: a failed handover just means the next session starts
// without a fresh summary.
func (c *Coordinator) rotateSession(ctx context.Context, rec state.SessionRecord, now time.Time) {
	c.logger.Info("session exceeded max age, rotating",
		"session_id", rec.SessionID, "age", now.Sub(rec.CreatedAt))

	events, err := c.agent.Run(ctx, rec.SessionID, handoverInstruction)
	if err != nil {
		c.logger.Warn("handover failed, rotating without summary", "error", err)
	} else {
		result := extract.Extract(agent.Text(events))
		report := extract.ReportFrom(result)
		if report.HasStatus() {
			c.saveSnapshot(report)
		} else {
			c.logger.Warn("handover produced no structured summary")
		}
		c.appendLog(rec.SessionID, result)
	}

	if err := c.sessions.Clear(); err != nil {
		c.logger.Error("clearing rotated session failed", "error", err)
	}
}

// persist finishes a successful cycle: record the success time for the
// quiet-hours policy, refresh the context snapshot when the result carries
// status fields, and always append to the execution log.
func (c *Coordinator) persist(sessionID string, result map[string]any) {
	c.lastSuccess = c.now()

	report := extract.ReportFrom(result)
	if report.HasStatus() {
		c.saveSnapshot(report)
	} else {
		c.logger.Warn("agent output not structured, keeping previous context",
			"session_id", sessionID)
	}

	c.appendLog(sessionID, result)
}

func (c *Coordinator) saveSnapshot(report extract.Report) {
	snap := state.Snapshot{
		Timestamp:     c.now(),
		PlantStatus:   report.PlantStatus,
		GrowthStage:   report.GrowthStage,
		LastOperation: report.Operations,
		LastComment:   report.Comment,
	}
	if err := c.contexts.Save(snap); err != nil {
		c.logger.Error("persisting context snapshot failed", "error", err)
	}
}

func (c *Coordinator) appendLog(sessionID string, result map[string]any) {
	data, err := json.Marshal(result)
	if err != nil {
		// Extracted results come from json.Unmarshal and always remarshal;
		// guard anyway so a sink entry is never silently dropped.
		data = []byte(fmt.Sprintf(`{"raw_output": %q}`, fmt.Sprint(result)))
	}

	entry := storage.ExecutionLog{
		ID:        uuid.New().String(),
		Timestamp: c.now().UTC(),
		SessionID: sessionID,
		DataJSON:  string(data),
	}
	if err := c.sink.AppendExecutionLog(entry); err != nil {
		c.logger.Error("appending execution log failed", "error", err)
	}
}
