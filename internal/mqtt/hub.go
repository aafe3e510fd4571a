package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"emofuse/internal/domain"
)

type HubConfig struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// PassTrigger starts one fusion pass for a subject/session. Implemented by
// the pipeline service.
type PassTrigger interface {
	TriggerPass(ctx context.Context, subjectID, sessionID string) error
}

// Hub bridges the engine to the event channel: it subscribes to
// per-subject observation events to trigger fusion passes, and publishes
// alert events when a pass lands at high or critical risk.
type Hub struct {
	cfg     HubConfig
	client  paho.Client
	trigger PassTrigger
	logger  *slog.Logger
}

func NewHub(cfg HubConfig, trigger PassTrigger, logger *slog.Logger) *Hub {
	if cfg.ClientID == "" {
		cfg.ClientID = "fusion-" + uuid.NewString()[:8]
	}
	return &Hub{cfg: cfg, trigger: trigger, logger: logger}
}

// SetTrigger wires the pass trigger after construction; the hub and the
// pipeline reference each other (trigger in, alerts out), so one side is
// attached late. Call before Start.
func (h *Hub) SetTrigger(trigger PassTrigger) {
	h.trigger = trigger
}

func (h *Hub) Start(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(h.cfg.BrokerURL).
		SetClientID(h.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	if h.cfg.Username != "" {
		opts.SetUsername(h.cfg.Username)
		opts.SetPassword(h.cfg.Password)
	}

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		h.logger.Error("mqtt connection lost", "error", err)
	})

	h.client = paho.NewClient(opts)
	if token := h.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	if token := h.client.Subscribe(TopicSubjectObservations(h.cfg.TopicPrefix), 1, h.handleObservationEvent); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	go func() {
		<-ctx.Done()
		h.client.Disconnect(100)
	}()

	return nil
}

func (h *Hub) handleObservationEvent(_ paho.Client, msg paho.Message) {
	subjectID, err := ParseSubjectID(msg.Topic(), h.cfg.TopicPrefix)
	if err != nil {
		h.logger.Warn("skip invalid observation topic", "topic", msg.Topic(), "error", err)
		return
	}

	var event domain.ObservationEvent
	if err := json.Unmarshal(msg.Payload(), &event); err != nil {
		h.logger.Warn("invalid observation event payload", "subject_id", subjectID, "error", err)
		return
	}
	if event.SubjectID == "" {
		event.SubjectID = subjectID
	}
	if event.SubjectID != subjectID {
		h.logger.Warn("observation event subject mismatch", "topic_subject", subjectID, "payload_subject", event.SubjectID)
		return
	}
	if event.SessionID == "" {
		h.logger.Warn("observation event missing session_id", "subject_id", subjectID)
		return
	}

	if h.trigger == nil {
		return
	}
	// Passes for the same subject/session may run concurrently; the result
	// sink write is idempotent by timestamp, so no coordination here.
	go func() {
		if err := h.trigger.TriggerPass(context.Background(), event.SubjectID, event.SessionID); err != nil {
			h.logger.Warn("triggered fusion pass failed", "subject_id", event.SubjectID, "session_id", event.SessionID, "error", err)
		}
	}()
}

// PublishAlert emits one alert event, at-least-once, without blocking the
// fusion pass on broker acknowledgment.
func (h *Hub) PublishAlert(_ context.Context, alert domain.AlertEvent) error {
	if h.client == nil {
		return fmt.Errorf("mqtt hub not started")
	}
	if alert.TS == "" {
		alert.TS = time.Now().UTC().Format(time.RFC3339Nano)
	}
	body, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	token := h.client.Publish(TopicAlert(h.cfg.TopicPrefix, alert.SubjectID), 1, false, body)
	go func() {
		if token.Wait() && token.Error() != nil {
			h.logger.Error("alert publish failed", "subject_id", alert.SubjectID, "error", token.Error())
		}
	}()
	return nil
}
