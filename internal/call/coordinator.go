package call

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"receptionist-server/internal/observability"
)

// maxProposedSlots bounds how many open times are read to the caller at once.
const maxProposedSlots = 3

// archiveTimeout bounds post-call persistence work.
const archiveTimeout = 10 * time.Second

// Config holds the coordinator's retry and re-prompt bounds.
type Config struct {
	MaxRetries   int
	RetryBackoff time.Duration
	MaxReprompts int
	MaxReoffers  int
	InboxLen     int
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 200 * time.Millisecond
	}
	if c.MaxReprompts <= 0 {
		c.MaxReprompts = 2
	}
	if c.MaxReoffers <= 0 {
		c.MaxReoffers = 2
	}
	if c.InboxLen <= 0 {
		c.InboxLen = 8
	}
	return c
}

// Reply is what the telephony layer plays back for one caller utterance.
type Reply struct {
	Prompt Prompt
	// Hangup tells the telephony layer to end the call after playback.
	Hangup bool
}

type inbound struct {
	text  string
	reply chan Reply
}

type session struct {
	CallSession
	inbox  chan inbound
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Coordinator drives the per-call workflow state machine. It is the only
// component with cross-turn memory: one worker goroutine per active call
// processes utterances strictly in order, while independent calls run
// concurrently.
type Coordinator struct {
	policy   DialogPolicy
	calendar CalendarAdapter
	speech   SpeechSynthesizer
	archiver SessionArchiver
	logger   *observability.Logger
	cfg      Config

	mu       sync.Mutex
	sessions map[string]*session
}

// NewCoordinator creates a call workflow coordinator.
func NewCoordinator(policy DialogPolicy, calendar CalendarAdapter, speech SpeechSynthesizer,
	archiver SessionArchiver, logger *observability.Logger, cfg Config) *Coordinator {
	return &Coordinator{
		policy:   policy,
		calendar: calendar,
		speech:   speech,
		archiver: archiver,
		logger:   logger,
		cfg:      cfg.withDefaults(),
		sessions: make(map[string]*session),
	}
}

// StartSession registers a new call session in the Listening state.
// Starting an already active call SID is a no-op.
func (c *Coordinator) StartSession(ctx context.Context, callSID, callerNumber string) error {
	if callSID == "" {
		return fmt.Errorf("call SID is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sessions[callSID]; ok {
		return nil
	}

	// The session outlives the webhook request that created it.
	sessCtx, cancel := context.WithCancel(context.Background())
	s := &session{
		CallSession: CallSession{
			CallSID:      callSID,
			CallerNumber: callerNumber,
			Caller:       CallerInfo{PhoneNumber: callerNumber},
			State:        StateListening,
			StartedAt:    time.Now().UTC(),
		},
		inbox:  make(chan inbound, c.cfg.InboxLen),
		ctx:    sessCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.sessions[callSID] = s

	c.logger.Info(observability.WithFields(sessCtx,
		observability.Field{Key: "call_sid", Value: callSID},
		observability.Field{Key: "caller_number", Value: callerNumber},
	), "call session started")

	go c.runSession(s)
	return nil
}

// HandleUtterance queues one caller utterance for the session and waits for
// the coordinator's spoken reply. Utterances arriving while a previous turn
// is still processing are buffered and handled in arrival order.
func (c *Coordinator) HandleUtterance(ctx context.Context, callSID, text string) (Reply, error) {
	c.mu.Lock()
	s, ok := c.sessions[callSID]
	c.mu.Unlock()
	if !ok {
		return Reply{}, ErrSessionNotFound
	}
	if s.ctx.Err() != nil {
		return Reply{}, ErrSessionEnded
	}

	in := inbound{text: text, reply: make(chan Reply, 1)}
	select {
	case s.inbox <- in:
	case <-s.ctx.Done():
		return Reply{}, ErrSessionEnded
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}

	select {
	case reply := <-in.reply:
		return reply, nil
	case <-s.ctx.Done():
		return Reply{}, ErrSessionEnded
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// EndCall terminates a session immediately, e.g. on caller hangup. Any
// in-flight calendar result is discarded by the session worker.
func (c *Coordinator) EndCall(ctx context.Context, callSID, reason string) error {
	c.mu.Lock()
	s, ok := c.sessions[callSID]
	c.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	c.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "call_sid", Value: callSID},
		observability.Field{Key: "reason", Value: reason},
	), "ending call session")
	s.cancel()
	return nil
}

// ActiveSessions reports how many calls are currently in progress.
func (c *Coordinator) ActiveSessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Shutdown cancels every active session and waits for their workers.
func (c *Coordinator) Shutdown(ctx context.Context) {
	c.mu.Lock()
	active := make([]*session, 0, len(c.sessions))
	for _, s := range c.sessions {
		active = append(active, s)
	}
	c.mu.Unlock()

	for _, s := range active {
		s.cancel()
	}
	for _, s := range active {
		select {
		case <-s.done:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Coordinator) runSession(s *session) {
	defer c.finishSession(s)
	for {
		select {
		case <-s.ctx.Done():
			return
		case in := <-s.inbox:
			reply := c.processTurn(s, in.text)
			in.reply <- reply
			if s.State.Terminal() {
				return
			}
		}
	}
}

// finishSession archives the session exactly once and removes it from the
// registry. A hangup before any terminal transition counts as Ended.
func (c *Coordinator) finishSession(s *session) {
	defer close(s.done)
	s.cancel()

	c.mu.Lock()
	delete(c.sessions, s.CallSID)
	c.mu.Unlock()

	if !s.State.Terminal() {
		s.State = StateEnded
	}
	s.EndedAt = time.Now().UTC()

	// A hangup mid-confirmation leaves a booked but unconfirmed mutation
	// behind; cancel it so no appointment outlives the call unacknowledged.
	if intent := s.Intent; intent != nil && intent.mutationComplete && !intent.rolledBack &&
		intent.ConfirmationID != "" && intent.Status != ConfirmationConfirmed &&
		intent.Action != ActionCancel {
		c.rollbackOrphan(s.CallSID, intent.ConfirmationID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "call_sid", Value: s.CallSID},
		observability.Field{Key: "state", Value: string(s.State)},
	)

	// Anything the caller said after the session ended is dropped.
	for {
		select {
		case in := <-s.inbox:
			c.logger.Warn(observability.WithFields(ctx,
				observability.Field{Key: "utterance", Value: in.text},
			), "discarding buffered utterance after session end")
			continue
		default:
		}
		break
	}

	if err := c.archiver.ArchiveSession(ctx, Archive{
		CallSID:      s.CallSID,
		CallerNumber: s.CallerNumber,
		State:        s.State,
		Turns:        s.Turns,
		Intent:       s.Intent,
		StartedAt:    s.StartedAt,
		EndedAt:      s.EndedAt,
	}); err != nil {
		c.logger.Error(ctx, "failed to archive call session", err)
	}
	c.logger.Info(ctx, "call session finished")
}

func (c *Coordinator) processTurn(s *session, text string) Reply {
	ctx := observability.WithFields(s.ctx,
		observability.Field{Key: "call_sid", Value: s.CallSID},
		observability.Field{Key: "state", Value: string(s.State)},
	)
	s.appendTurn(SpeakerCaller, text)

	switch s.State {
	case StateListening:
		s.State = StateInterpreting
		return c.interpret(ctx, s)
	case StateConfirming:
		return c.resolveConfirmation(ctx, s)
	default:
		// The telephony layer delivered a turn while another one is mid
		// flight; the inbox should prevent this, so just re-prompt.
		c.logger.Warn(ctx, "utterance arrived in unexpected state")
		return c.say(ctx, s, utteranceReprompt, s.State, false)
	}
}

// interpret runs the dialog policy on the latest caller utterance while the
// session is in the Interpreting state.
func (c *Coordinator) interpret(ctx context.Context, s *session) Reply {
	decision, err := c.decide(ctx, s)
	if err != nil {
		if errors.Is(err, ErrPolicyAmbiguous) {
			s.reprompts++
			if s.reprompts > c.cfg.MaxReprompts {
				c.logger.Warn(ctx, "re-prompt bound exhausted, ending call")
				return c.say(ctx, s, utteranceGiveUp, StateEnded, true)
			}
			return c.say(ctx, s, utteranceReprompt, StateListening, false)
		}
		c.logger.Error(ctx, "dialog policy failed", err)
		return c.fail(ctx, s)
	}
	s.reprompts = 0

	if decision.EndCall {
		text := utteranceGoodbye
		if decision.Utterance != "" {
			text = decision.Utterance
		}
		return c.say(ctx, s, text, StateEnded, true)
	}

	if decision.Intent == nil {
		// Clarifying question; no calendar work this turn.
		text := decision.Utterance
		if text == "" {
			text = utteranceReprompt
		}
		return c.say(ctx, s, text, StateListening, false)
	}

	c.applyIntentUpdate(s, decision.Intent)
	if s.Intent.Action == "" {
		// Name or doctor details alone give the calendar nothing to do yet.
		text := decision.Utterance
		if text == "" {
			text = utteranceReprompt
		}
		return c.say(ctx, s, text, StateListening, false)
	}
	return c.runCalendarAction(ctx, s)
}

// applyIntentUpdate folds the policy's output into the session intent. A new
// AppointmentIntent instance, and with it a fresh booking idempotence scope,
// is created when there is no live intent to update.
func (c *Coordinator) applyIntentUpdate(s *session, u *IntentUpdate) {
	if u.CallerName != "" {
		s.Caller.Name = u.CallerName
	}
	if s.Intent == nil || s.Intent.Status == ConfirmationRejected || s.Intent.mutationComplete {
		s.Intent = &AppointmentIntent{Status: ConfirmationUnconfirmed}
	}
	if u.Action != "" {
		s.Intent.Action = u.Action
	}
	if u.TargetBookingID != "" {
		s.Intent.TargetBookingID = u.TargetBookingID
	}
	if u.Slot != nil {
		slot := *u.Slot
		s.Intent.Chosen = &slot
		if slot.Doctor != "" {
			s.Intent.Doctor = slot.Doctor
		}
	}
	if u.Doctor != "" {
		s.Intent.Doctor = u.Doctor
	}
}

// runCalendarAction transitions into AwaitingCalendarResult and performs
// whatever calendar work the current intent allows.
func (c *Coordinator) runCalendarAction(ctx context.Context, s *session) Reply {
	intent := s.Intent
	s.State = StateAwaitingCalendar

	if (intent.Action == ActionCancel || intent.Action == ActionReschedule) && intent.TargetBookingID == "" {
		return c.say(ctx, s, utteranceAskBookingID, StateListening, false)
	}
	if (intent.Action == ActionBook || intent.Action == ActionReschedule) && intent.Chosen == nil {
		return c.proposeSlots(ctx, s)
	}

	if intent.Action == ActionCancel {
		// A cancellation cannot be rolled back, so the mutation is sent
		// only after the caller confirms.
		return c.say(ctx, s, utteranceConfirmQuestion(intent), StateConfirming, false)
	}

	confirmationID, err := c.applyMutation(ctx, s, intent)
	return c.onCalendarResult(ctx, s, confirmationID, err)
}

// proposeSlots is the read-only availability path: fetch open slots and ask
// the caller to pick one. No mutation is sent here.
func (c *Coordinator) proposeSlots(ctx context.Context, s *session) Reply {
	from := time.Now()
	to := from.AddDate(0, 0, 7)

	var slots []Slot
	err := c.withRetry(ctx, "list availability", func() error {
		found, err := c.calendar.ListAvailability(ctx, s.Intent.Doctor, from, to)
		if err != nil {
			return err
		}
		slots = found
		return nil
	})
	if err != nil {
		if s.ctx.Err() != nil {
			return Reply{Hangup: true}
		}
		c.logger.Error(ctx, "failed to list availability", err)
		return c.fail(ctx, s)
	}

	if len(slots) == 0 {
		return c.say(ctx, s, utteranceNoSlots(s.Intent.Doctor), StateEnded, true)
	}
	if len(slots) > maxProposedSlots {
		slots = slots[:maxProposedSlots]
	}
	s.Intent.Candidates = slots
	return c.say(ctx, s, utteranceProposal(slots), StateListening, false)
}

// applyMutation sends the calendar mutation for the current intent at most
// once. Only a transient failure on a prior attempt allows a re-send; once
// complete it always returns the recorded confirmation id.
func (c *Coordinator) applyMutation(ctx context.Context, s *session, intent *AppointmentIntent) (string, error) {
	if intent.mutationComplete {
		return intent.ConfirmationID, nil
	}

	var confirmationID string
	err := c.withRetry(ctx, "calendar mutation", func() error {
		id, err := c.mutate(ctx, s, intent)
		if err != nil {
			return err
		}
		confirmationID = id
		return nil
	})
	if err != nil {
		return "", err
	}
	intent.mutationComplete = true
	return confirmationID, nil
}

func (c *Coordinator) mutate(ctx context.Context, s *session, intent *AppointmentIntent) (string, error) {
	switch intent.Action {
	case ActionBook:
		return c.calendar.Book(ctx, *intent.Chosen, s.Caller)
	case ActionCancel:
		if err := c.calendar.Cancel(ctx, intent.TargetBookingID); err != nil {
			return "", err
		}
		return intent.TargetBookingID, nil
	case ActionReschedule:
		return c.calendar.Reschedule(ctx, intent.TargetBookingID, *intent.Chosen)
	default:
		return "", PermanentFailure(fmt.Sprintf("unknown action %q", intent.Action), nil)
	}
}

// onCalendarResult applies the outcome of a calendar mutation. A result
// arriving after the caller hung up is discarded; a booking that already
// went through is rolled back best-effort so no orphan appointment remains.
func (c *Coordinator) onCalendarResult(ctx context.Context, s *session, confirmationID string, err error) Reply {
	if out, done := c.discardAfterHangup(ctx, s, confirmationID, err); done {
		return out
	}

	if err != nil {
		c.logger.Error(ctx, "calendar action failed", err)
		return c.fail(ctx, s)
	}

	s.Intent.ConfirmationID = confirmationID
	return c.say(ctx, s, utteranceConfirmQuestion(s.Intent), StateConfirming, false)
}

// discardAfterHangup reports whether the caller hung up while a calendar
// call was in flight. The result is logged, never applied, and a booking
// that already went through is rolled back so no orphan appointment remains.
func (c *Coordinator) discardAfterHangup(ctx context.Context, s *session, confirmationID string, err error) (Reply, bool) {
	if s.ctx.Err() == nil {
		return Reply{}, false
	}
	if err == nil && confirmationID != "" && s.Intent.Action != ActionCancel {
		c.rollbackOrphan(s.CallSID, confirmationID)
	}
	c.logger.Warn(observability.WithFields(ctx,
		observability.Field{Key: "confirmation_id", Value: confirmationID},
	), "discarding calendar result after hangup")
	return Reply{Hangup: true}, true
}

// resolveConfirmation handles the caller's answer to a pending
// "shall I confirm?" question.
func (c *Coordinator) resolveConfirmation(ctx context.Context, s *session) Reply {
	decision, err := c.decide(ctx, s)
	if err != nil && !errors.Is(err, ErrPolicyAmbiguous) {
		c.logger.Error(ctx, "dialog policy failed during confirmation", err)
		c.rollbackIntent(ctx, s)
		return c.fail(ctx, s)
	}

	answer := ConfirmationUnconfirmed
	if err == nil && decision.Intent != nil {
		answer = decision.Intent.Confirmation
	}

	switch answer {
	case ConfirmationConfirmed:
		s.reprompts = 0
		if s.Intent.Action == ActionCancel {
			confirmationID, mutErr := c.applyMutation(ctx, s, s.Intent)
			if out, done := c.discardAfterHangup(ctx, s, confirmationID, mutErr); done {
				return out
			}
			if mutErr != nil {
				c.logger.Error(ctx, "calendar cancellation failed", mutErr)
				return c.fail(ctx, s)
			}
			s.Intent.ConfirmationID = confirmationID
		}
		s.Intent.Status = ConfirmationConfirmed
		return c.say(ctx, s, utteranceConfirmed(s.Intent), StateEnded, true)

	case ConfirmationRejected:
		s.reprompts = 0
		s.Intent.Status = ConfirmationRejected
		if s.Intent.Action == ActionCancel {
			// Nothing was mutated yet; leave the appointment alone.
			return c.say(ctx, s, utteranceKeepBooking, StateEnded, true)
		}
		c.rollbackIntent(ctx, s)
		s.reoffers++
		if s.reoffers > c.cfg.MaxReoffers {
			c.logger.Warn(ctx, "re-offer bound exhausted, ending call")
			return c.say(ctx, s, utteranceGiveUp, StateEnded, true)
		}
		// Reopen the calendar passage with fresh candidates and a fresh
		// intent instance so the next booking attempt is its own
		// idempotence scope.
		s.State = StateAwaitingCalendar
		rejected := s.Intent
		s.Intent = &AppointmentIntent{
			Action: rejected.Action,
			Doctor: rejected.Doctor,
			Status: ConfirmationUnconfirmed,
		}
		if rejected.Action == ActionReschedule {
			s.Intent.TargetBookingID = rejected.TargetBookingID
		}
		return c.proposeSlots(ctx, s)

	default:
		s.reprompts++
		if s.reprompts > c.cfg.MaxReprompts {
			c.logger.Warn(ctx, "confirmation re-prompt bound exhausted, ending call")
			c.rollbackIntent(ctx, s)
			return c.say(ctx, s, utteranceGiveUp, StateEnded, true)
		}
		return c.say(ctx, s, utteranceConfirmQuestion(s.Intent), StateConfirming, false)
	}
}

// rollbackIntent cancels a mutation the caller ultimately did not confirm.
// Failure to roll back is logged for manual cleanup; the session still
// proceeds so the caller is not stranded.
func (c *Coordinator) rollbackIntent(ctx context.Context, s *session) {
	intent := s.Intent
	if intent == nil || !intent.mutationComplete || intent.rolledBack ||
		intent.ConfirmationID == "" || intent.Action == ActionCancel {
		return
	}
	err := c.withRetry(ctx, "booking rollback", func() error {
		return c.calendar.Cancel(ctx, intent.ConfirmationID)
	})
	if err != nil {
		c.logger.Error(observability.WithFields(ctx,
			observability.Field{Key: "confirmation_id", Value: intent.ConfirmationID},
		), "failed to roll back unconfirmed booking, manual cleanup required", err)
		return
	}
	intent.rolledBack = true
	c.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "confirmation_id", Value: intent.ConfirmationID},
	), "rolled back unconfirmed booking")
}

// rollbackOrphan cancels a booking whose result arrived after hangup.
// Runs detached from the session so archive is not delayed.
func (c *Coordinator) rollbackOrphan(callSID, confirmationID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		ctx = observability.WithFields(ctx,
			observability.Field{Key: "call_sid", Value: callSID},
			observability.Field{Key: "confirmation_id", Value: confirmationID},
		)
		err := c.withRetry(ctx, "orphan booking rollback", func() error {
			return c.calendar.Cancel(ctx, confirmationID)
		})
		if err != nil {
			c.logger.Error(ctx, "failed to roll back orphan booking, manual cleanup required", err)
			return
		}
		c.logger.Info(ctx, "rolled back booking made after hangup")
	}()
}

// decide invokes the dialog policy with a copy of the transcript.
func (c *Coordinator) decide(ctx context.Context, s *session) (Decision, error) {
	snapshot := Snapshot{
		CallSID:      s.CallSID,
		CallerNumber: s.CallerNumber,
		State:        s.State,
	}
	if s.Intent != nil {
		snapshot.Candidates = s.Intent.Candidates
		snapshot.PendingSlot = s.Intent.Chosen
		snapshot.Action = s.Intent.Action
	}

	var decision Decision
	err := c.withRetry(ctx, "dialog policy", func() error {
		d, err := c.policy.Decide(ctx, append([]Turn(nil), s.Turns...), snapshot)
		if err != nil {
			return err
		}
		decision = d
		return nil
	})
	return decision, err
}

// say performs the single speech synthesis call for a state transition,
// records the assistant turn, and settles the session into next.
func (c *Coordinator) say(ctx context.Context, s *session, text string, next State, hangup bool) Reply {
	s.State = StateResponding

	var prompt Prompt
	err := c.withRetry(ctx, "speech synthesis", func() error {
		p, synthErr := c.speech.Synthesize(ctx, text)
		if synthErr != nil {
			return synthErr
		}
		prompt = p
		return nil
	})
	if err != nil {
		// The call goes on with the telephony provider's own voice.
		c.logger.Error(ctx, "speech synthesis failed, falling back to provider voice", err)
		prompt = Prompt{Text: text}
	}
	if prompt.Text == "" {
		prompt.Text = text
	}

	s.appendTurn(SpeakerAssistant, text)
	s.State = next
	return Reply{Prompt: prompt, Hangup: hangup}
}

func (c *Coordinator) fail(ctx context.Context, s *session) Reply {
	return c.say(ctx, s, utteranceApology, StateFailed, true)
}

// withRetry retries fn on transient adapter failures with doubling backoff,
// up to the configured bound. Permanent failures and context cancellation
// return immediately.
func (c *Coordinator) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	backoff := c.cfg.RetryBackoff
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsTransient(err) {
			return err
		}
		c.logger.Warn(observability.WithFields(ctx,
			observability.Field{Key: "operation", Value: op},
			observability.Field{Key: "attempt", Value: attempt},
		), "transient adapter failure, backing off")
	}
	return lastErr
}
