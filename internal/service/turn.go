package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/roundtable-dev/roundtable/internal/adapter/otel"
	"github.com/roundtable-dev/roundtable/internal/adapter/ws"
	"github.com/roundtable-dev/roundtable/internal/domain/conductor"
	"github.com/roundtable-dev/roundtable/internal/domain/message"
	"github.com/roundtable-dev/roundtable/internal/domain/persona"
	"github.com/roundtable-dev/roundtable/internal/domain/session"
	"github.com/roundtable-dev/roundtable/internal/pool"
	"github.com/roundtable-dev/roundtable/internal/port/broadcast"
	"github.com/roundtable-dev/roundtable/internal/port/messagequeue"
	"github.com/roundtable-dev/roundtable/internal/port/repository"
	"github.com/roundtable-dev/roundtable/internal/port/selector"
	"github.com/roundtable-dev/roundtable/internal/port/settings"
)

// DefaultMessageWindow is the number of recent messages shown to the selector.
const DefaultMessageWindow = 10

// TurnService orchestrates one conductor turn: it sequences the pure
// decision pipeline in internal/domain/conductor and drives the external
// collaborators (repository, selector gateway, settings) in order.
type TurnService struct {
	store    repository.Store
	gateway  selector.Gateway
	settings settings.Provider
	hub      broadcast.Broadcaster
	queue    messagequeue.Queue
	metrics  *otel.Metrics

	policy        conductor.SafetyPolicy
	messageWindow int
	selPool       *pool.Pool

	// Per-session locks: two concurrent turns for one session would read
	// each other's half-applied writes.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTurnService creates a TurnService with all dependencies. hub, queue and
// metrics are optional; a nil value disables that concern.
func NewTurnService(
	store repository.Store,
	gateway selector.Gateway,
	settings settings.Provider,
	hub broadcast.Broadcaster,
	queue messagequeue.Queue,
	metrics *otel.Metrics,
	policy conductor.SafetyPolicy,
	messageWindow int,
) *TurnService {
	if messageWindow <= 0 {
		messageWindow = DefaultMessageWindow
	}
	return &TurnService{
		store:         store,
		gateway:       gateway,
		settings:      settings,
		hub:           hub,
		queue:         queue,
		metrics:       metrics,
		policy:        policy,
		messageWindow: messageWindow,
		locks:         make(map[string]*sync.Mutex),
	}
}

// SetSelectorPool installs a shared limit on concurrent selector calls.
func (s *TurnService) SetSelectorPool(p *pool.Pool) {
	s.selPool = p
}

// RunTurn executes one conductor turn for the session and returns exactly
// one of CircuitBreakerStopped, TurnWaitForUser, or TurnTriggerPersona.
// Domain and infrastructure failures abort the turn; nothing already
// committed is rolled back.
func (s *TurnService) RunTurn(ctx context.Context, sessionID string) (conductor.TurnResult, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	ctx, span := otel.StartTurnSpan(ctx, sessionID)
	defer span.End()

	if s.metrics != nil {
		s.metrics.TurnsStarted.Add(ctx, 1)
	}

	// 1. Load and gate the session snapshot.
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if err := conductor.ValidateSession(sess); err != nil {
		return nil, err
	}

	// 2. Admission control.
	warning := ""
	switch d := conductor.Admit(sess.AutoReplyCount, sess.TokenCount, s.policy).(type) {
	case conductor.Pause:
		slog.Info("turn paused by circuit breaker", "session_id", sessionID, "message", d.Message)
		if s.metrics != nil {
			s.metrics.TurnsPaused.Add(ctx, 1)
		}
		s.broadcast(ctx, ws.EventTurnPaused, ws.TurnPausedEvent{
			SessionID: sessionID,
			Message:   d.Message,
		})
		return conductor.CircuitBreakerStopped{Message: d.Message}, nil
	case conductor.ContinueWithWarning:
		warning = d.Warning
	case conductor.ContinueWithinBudget:
	}

	// 3. Tick down hush counters before eligibility is computed.
	if err := s.store.DecrementAllHushTurns(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("decrement hush turns: %w", err)
	}

	// 4. Load personas and locate the conductor.
	personas, err := s.store.GetSessionPersonas(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get personas: %w", err)
	}
	if len(personas) == 0 {
		return nil, conductor.ErrNoPersonas
	}
	conductorID, ok := findConductor(personas)
	if !ok {
		return nil, conductor.ErrConductorPersonaMissing
	}

	// 5. Load the recent transcript window and build the selector plan.
	// A wait decision ends the turn here, before settings are resolved:
	// settings exist only to build the selector request.
	msgs, err := s.store.GetLastMessages(ctx, sessionID, s.messageWindow)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}

	plan, err := conductor.BuildSelectorPlan(sess, personas, msgs, conductorID)
	if err != nil {
		return nil, err
	}

	var req conductor.Request
	switch p := plan.(type) {
	case conductor.WaitBeforeSelection:
		if s.metrics != nil {
			s.metrics.TurnsWaiting.Add(ctx, 1)
		}
		s.broadcast(ctx, ws.EventTurnWaiting, ws.TurnWaitingEvent{
			SessionID: sessionID,
			Reasoning: p.Reasoning,
		})
		return conductor.TurnWaitForUser{Reasoning: p.Reasoning}, nil
	case conductor.RequestDecision:
		req = p.Request
	}

	// 6. External selector call.
	sel, err := s.settings.Selector(ctx)
	if err != nil {
		return nil, fmt.Errorf("selector settings: %w", err)
	}
	req.ModelID = sel.ModelID
	selCtx, selSpan := otel.StartSelectorSpan(ctx, sessionID, sel.ModelID)
	start := time.Now()
	var decision conductor.Decision
	err = s.selPool.Run(selCtx, func() error {
		var gwErr error
		decision, gwErr = s.gateway.SelectNextSpeaker(selCtx, req)
		return gwErr
	})
	selSpan.End()
	if s.metrics != nil {
		s.metrics.SelectorLatency.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("select next speaker: %w", err)
	}

	// 7. Apply follow-up effects. This runs before the selected persona id
	// is validated: a decision that names an unknown persona still commits
	// its blackboard patch and intervention message.
	if err := s.applyEffects(ctx, sessionID, conductor.PlanEffects(sess.Blackboard, decision)); err != nil {
		return nil, err
	}

	// 8. Validate the selection and decide the final action.
	action, err := conductor.DecideNextAction(decision, personaIDs(personas))
	if err != nil {
		return nil, err
	}

	// 9. Terminal result.
	switch a := action.(type) {
	case conductor.WaitForUser:
		if s.metrics != nil {
			s.metrics.TurnsWaiting.Add(ctx, 1)
		}
		s.broadcast(ctx, ws.EventTurnWaiting, ws.TurnWaitingEvent{
			SessionID: sessionID,
			Reasoning: a.Reasoning,
		})
		return conductor.TurnWaitForUser{
			Reasoning:        a.Reasoning,
			BlackboardUpdate: decision.BlackboardPatch,
		}, nil
	case conductor.TriggerPersona:
		count, err := s.store.IncrementAutoReplyCount(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("increment auto-reply count: %w", err)
		}
		s.dispatchTrigger(ctx, sessionID, personas, a)
		if s.metrics != nil {
			s.metrics.PersonasTriggered.Add(ctx, 1,
				metric.WithAttributes(attribute.Bool("intervention", a.IsIntervention)))
		}
		slog.Info("persona triggered",
			"session_id", sessionID,
			"persona_id", a.PersonaID,
			"intervention", a.IsIntervention,
			"auto_reply_count", count,
		)
		return conductor.TurnTriggerPersona{
			PersonaID:        a.PersonaID,
			Reasoning:        a.Reasoning,
			BlackboardUpdate: decision.BlackboardPatch,
			IsIntervention:   a.IsIntervention,
			AutoReplyCount:   count,
			Warning:          warning,
		}, nil
	}
	return nil, fmt.Errorf("unhandled next action %T", action)
}

// applyEffects commits planned effects in list order: blackboard merge
// first, intervention record second.
func (s *TurnService) applyEffects(ctx context.Context, sessionID string, effects []conductor.Effect) error {
	for _, eff := range effects {
		switch e := eff.(type) {
		case conductor.MergeBlackboard:
			if err := s.store.UpdateBlackboard(ctx, sessionID, e.Next); err != nil {
				return fmt.Errorf("update blackboard: %w", err)
			}
			s.broadcast(ctx, ws.EventBlackboardUpdated, ws.BlackboardUpdatedEvent{
				SessionID:  sessionID,
				Blackboard: e.Next,
			})
		case conductor.RecordIntervention:
			turn, err := s.store.NextTurnNumber(ctx, sessionID)
			if err != nil {
				return fmt.Errorf("next turn number: %w", err)
			}
			msg, err := s.store.CreateInterventionMessage(ctx, repository.InterventionMessage{
				SessionID:  sessionID,
				Content:    e.Content,
				Reasoning:  e.Reasoning,
				TurnNumber: turn,
			})
			if err != nil {
				return fmt.Errorf("create intervention message: %w", err)
			}
			s.broadcast(ctx, ws.EventConductorMessage, ws.ConductorMessageEvent{
				SessionID: sessionID,
				MessageID: msg.ID,
				Content:   e.Content,
				Reasoning: e.Reasoning,
			})
		}
	}
	return nil
}

// dispatchTrigger publishes the speaking turn to persona workers and
// notifies clients. The turn result is already committed; a dispatch
// failure is logged, not returned.
func (s *TurnService) dispatchTrigger(ctx context.Context, sessionID string, personas []persona.Persona, a conductor.TriggerPersona) {
	s.broadcast(ctx, ws.EventPersonaTriggered, ws.PersonaTriggeredEvent{
		SessionID:      sessionID,
		PersonaID:      a.PersonaID,
		Reasoning:      a.Reasoning,
		IsIntervention: a.IsIntervention,
	})

	if s.queue == nil {
		return
	}
	payload := messagequeue.PersonaTurnTriggerPayload{
		SessionID:      sessionID,
		PersonaID:      a.PersonaID,
		Reasoning:      a.Reasoning,
		IsIntervention: a.IsIntervention,
	}
	for i := range personas {
		if personas[i].ID == a.PersonaID {
			payload.ModelID = personas[i].ModelID
			payload.SystemPrompt = personas[i].SystemPrompt
			break
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal persona trigger", "session_id", sessionID, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectPersonaTurnTrigger, data); err != nil {
		slog.Error("publish persona trigger", "session_id", sessionID, "persona_id", a.PersonaID, "error", err)
	}
}

// HandlePersonaTurnComplete processes a finished persona contribution from
// the worker queue: it stores the message, accounts token usage, and, in
// automatic control mode, immediately runs the next conductor turn.
func (s *TurnService) HandlePersonaTurnComplete(ctx context.Context, _ string, data []byte) error {
	var payload messagequeue.PersonaTurnCompletePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("unmarshal persona turn complete: %w", err)
	}

	if payload.Error != "" {
		slog.Error("persona turn failed",
			"session_id", payload.SessionID,
			"persona_id", payload.PersonaID,
			"error", payload.Error,
		)
		return nil
	}

	turn, err := s.store.NextTurnNumber(ctx, payload.SessionID)
	if err != nil {
		return fmt.Errorf("next turn number: %w", err)
	}
	msg, err := s.store.CreateMessage(ctx, &message.Message{
		SessionID:  payload.SessionID,
		Source:     message.SourcePersona,
		PersonaID:  payload.PersonaID,
		Content:    payload.Content,
		TurnNumber: turn,
		TokensIn:   payload.TokensIn,
		TokensOut:  payload.TokensOut,
	})
	if err != nil {
		return fmt.Errorf("store persona message: %w", err)
	}

	total := payload.TokensIn + payload.TokensOut
	if total > 0 {
		if err := s.store.AddTokenUsage(ctx, payload.SessionID, uint(total)); err != nil {
			slog.Error("add token usage", "session_id", payload.SessionID, "error", err)
		}
	}

	s.broadcast(ctx, ws.EventPersonaMessage, ws.PersonaMessageEvent{
		SessionID: payload.SessionID,
		MessageID: msg.ID,
		PersonaID: payload.PersonaID,
		Content:   payload.Content,
	})

	// Automatic mode chains the next turn; the circuit breaker bounds the loop.
	sess, err := s.store.GetSession(ctx, payload.SessionID)
	if err != nil {
		return fmt.Errorf("get session after persona turn: %w", err)
	}
	if sess.ConductorEnabled && sess.ControlMode == session.ControlAutomatic {
		if _, err := s.RunTurn(ctx, payload.SessionID); err != nil {
			slog.Error("auto turn failed", "session_id", payload.SessionID, "error", err)
		}
	}
	return nil
}

// StartCompletionSubscriber subscribes to turns.persona.complete on the queue.
// Returns a cancel function to stop the subscription.
func (s *TurnService) StartCompletionSubscriber(ctx context.Context) (func(), error) {
	if s.queue == nil {
		return func() {}, nil
	}
	return s.queue.Subscribe(ctx, messagequeue.SubjectPersonaTurnComplete, func(subject string, data []byte) error {
		return s.HandlePersonaTurnComplete(ctx, subject, data)
	})
}

func (s *TurnService) broadcast(ctx context.Context, eventType string, payload any) {
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, eventType, payload)
	}
}

func (s *TurnService) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

func findConductor(personas []persona.Persona) (string, bool) {
	for i := range personas {
		if personas[i].IsConductor() {
			return personas[i].ID, true
		}
	}
	return "", false
}

func personaIDs(personas []persona.Persona) []string {
	ids := make([]string, len(personas))
	for i := range personas {
		ids[i] = personas[i].ID
	}
	return ids
}
