package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Yogeshviper/azure-ai-operator/internal/core/domain"
	"github.com/Yogeshviper/azure-ai-operator/internal/core/ports"
	"github.com/Yogeshviper/azure-ai-operator/internal/monitoring"
)

// Dispatcher handles chat turns: it asks the intent compiler what the user
// wants, runs the matching provisioning call and produces the reply.
type Dispatcher struct {
	intent      ports.IntentCompiler
	provisioner ports.ResourceProvisioner
	repo        ports.TurnRepository
	monitor     *monitoring.Monitor
	logger      *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewDispatcher constructs a Dispatcher. monitor and logger may be nil.
func NewDispatcher(
	intent ports.IntentCompiler,
	provisioner ports.ResourceProvisioner,
	repo ports.TurnRepository,
	monitor *monitoring.Monitor,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		intent:      intent,
		provisioner: provisioner,
		repo:        repo,
		monitor:     monitor,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// StartSession opens a new chat session and returns the greeting for it.
func (d *Dispatcher) StartSession(ctx context.Context) (domain.Session, string, error) {
	s := domain.Session{ID: d.newID(), CreatedAt: d.now()}
	if err := d.repo.CreateSession(ctx, s); err != nil {
		return domain.Session{}, "", fmt.Errorf("service: failed to create session: %w", err)
	}
	d.logger.Info("session started", "session", s.ID)
	return s, domain.Greeting, nil
}

// HandleMessage runs one turn for the given session. Errors from the intent
// compiler or the provisioner fail the turn and are returned unchanged in
// kind; only an unrecognized action produces a graceful reply.
func (d *Dispatcher) HandleMessage(ctx context.Context, sessionID, message string) (domain.Reply, error) {
	if _, err := d.repo.GetSession(ctx, sessionID); err != nil {
		return domain.Reply{}, fmt.Errorf("service: failed to load session %s: %w", sessionID, err)
	}

	turn := domain.Turn{
		ID:        d.newID(),
		SessionID: sessionID,
		Message:   message,
		CreatedAt: d.now(),
	}

	intent, err := d.intent.AnalyzeIntent(ctx, message)
	if err != nil {
		d.monitor.ObserveIntentFailure()
		d.monitor.ObserveTurn("", monitoring.OutcomeError)
		turn.Error = err.Error()
		d.record(ctx, turn)
		return domain.Reply{}, fmt.Errorf("service: failed to analyze intent: %w", err)
	}
	turn.Action = intent.Action()
	log := d.logger.With("session", sessionID, "turn", turn.ID, "action", turn.Action)
	if u, ok := intent.(domain.Unrecognized); ok {
		turn.Tag = u.Tag
		log = log.With("tag", u.Tag)
	}

	text, err := d.dispatch(ctx, intent)
	if err != nil {
		log.Error("turn failed", "error", err)
		d.monitor.ObserveTurn(string(turn.Action), monitoring.OutcomeError)
		turn.Error = err.Error()
		d.record(ctx, turn)
		return domain.Reply{}, fmt.Errorf("service: %s failed: %w", turn.Action, err)
	}

	outcome := monitoring.OutcomeSuccess
	if turn.Action == domain.ActionUnrecognized {
		outcome = monitoring.OutcomeUnrecognized
	}
	d.monitor.ObserveTurn(string(turn.Action), outcome)
	log.Info("turn handled", "outcome", outcome)

	turn.Reply = text
	d.record(ctx, turn)
	return domain.Reply{TurnID: turn.ID, Action: turn.Action, Message: text}, nil
}

// History returns the turns of a session, oldest first.
func (d *Dispatcher) History(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	if _, err := d.repo.GetSession(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("service: failed to load session %s: %w", sessionID, err)
	}
	turns, err := d.repo.ListTurns(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load turns: %w", err)
	}
	return turns, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, intent domain.Intent) (string, error) {
	switch in := intent.(type) {
	case domain.CreateResourceGroup:
		err := d.timed("resource_group", func() error {
			return d.provisioner.CreateResourceGroup(ctx, in.Name, in.Location)
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Resource Group %s created", in.Name), nil

	case domain.CreateStorageAccount:
		err := d.timed("storage_account", func() error {
			return d.provisioner.CreateStorageAccount(ctx, in.Name, in.ResourceGroup, in.Location)
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Storage account %s created", in.Name), nil

	case domain.CreateVirtualMachine:
		err := d.timed("virtual_machine", func() error {
			return d.provisioner.CreateVirtualMachine(ctx, in.ResourceGroup, in.Location, in.Name, in.OSType)
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("VM %s deployed successfully", in.Name), nil

	case domain.Unrecognized:
		return domain.FallbackReply, nil

	default:
		return "", fmt.Errorf("unhandled intent %T", intent)
	}
}

func (d *Dispatcher) timed(resource string, fn func() error) error {
	start := time.Now()
	err := fn()
	d.monitor.ObserveProvisioning(resource, time.Since(start), err)
	return err
}

// record persists the turn. A failure is logged and does not change the
// outcome of the turn.
func (d *Dispatcher) record(ctx context.Context, t domain.Turn) {
	if err := d.repo.SaveTurn(context.WithoutCancel(ctx), t); err != nil {
		d.logger.Warn("failed to record turn", "turn", t.ID, "error", err)
	}
}
