package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"genset-bridge/pkg/config"
	"genset-bridge/pkg/logger"
	"genset-bridge/pkg/protocol"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Publisher exports generator snapshots and bridge availability over MQTT.
// The Last Will marks the availability topic offline if the process dies.
type Publisher struct {
	client paho.Client
	cfg    *config.MQTTConfig
}

// diagnosticPayload is the JSON body published on the diagnostic topic
type diagnosticPayload struct {
	Code      int       `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPublisher creates an MQTT publisher from the configuration
func NewPublisher(cfg *config.MQTTConfig) *Publisher {
	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)

	keepAlive := cfg.KeepAlive
	if keepAlive == 0 {
		keepAlive = 60
	}
	opts.SetKeepAlive(time.Duration(keepAlive) * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Broker marks us offline automatically if the connection drops
	opts.SetWill(cfg.AvailabilityTopic, "offline", 1, true)

	opts.SetOnConnectHandler(func(client paho.Client) {
		logger.LogInfo("✅ Publisher connected to MQTT broker")
		if token := client.Publish(cfg.AvailabilityTopic, 1, true, "online"); token.Wait() && token.Error() != nil {
			logger.LogWarn("⚠️ Error publishing online status on connect: %v", token.Error())
		}
	})

	opts.SetConnectionLostHandler(func(client paho.Client, err error) {
		logger.LogError("❌ Publisher disconnected from MQTT broker: %v", err)
	})

	return &Publisher{
		client: paho.NewClient(opts),
		cfg:    cfg,
	}
}

// Connect connects the publisher to the broker with infinite retry
func (p *Publisher) Connect(ctx context.Context) error {
	retryDelay := time.Duration(p.cfg.RetryDelay) * time.Millisecond
	if retryDelay == 0 {
		retryDelay = 5000 * time.Millisecond
	}

	attempt := 1
	for {
		logger.LogDebug("🔄 Attempting to connect publisher to MQTT broker (attempt %d)...", attempt)

		if token := p.client.Connect(); token.Wait() && token.Error() != nil {
			logger.LogError("❌ Publisher connection failed (attempt %d): %v", attempt, token.Error())
			logger.LogInfo("⏳ Retrying in %.0f seconds...", retryDelay.Seconds())

			select {
			case <-ctx.Done():
				return fmt.Errorf("publisher connection cancelled: %w", ctx.Err())
			case <-time.After(retryDelay):
				attempt++
				continue
			}
		}

		// Token success is not full establishment, poll for it
		connected := false
		for i := 0; i < 50; i++ {
			if p.client.IsConnected() {
				connected = true
				break
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("publisher connection cancelled during establishment: %w", ctx.Err())
			case <-time.After(100 * time.Millisecond):
			}
		}

		if connected {
			logger.LogInfo("✅ Publisher connected to MQTT broker after %d attempts", attempt)
			return nil
		}

		logger.LogWarn("⏰ Publisher connection establishment timeout (attempt %d)", attempt)
		select {
		case <-ctx.Done():
			return fmt.Errorf("publisher connection cancelled during timeout: %w", ctx.Err())
		case <-time.After(retryDelay):
			attempt++
		}
	}
}

// Disconnect disconnects the publisher
func (p *Publisher) Disconnect() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

// PublishState publishes the generator snapshot as JSON on the state topic
func (p *Publisher) PublishState(ctx context.Context, st protocol.GeneratorState) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("error marshalling generator state: %w", err)
	}

	token := p.client.Publish(p.cfg.StateTopic, 0, false, payload)
	return waitToken(ctx, token, "state")
}

// PublishAvailability publishes "online" or "offline" retained on the
// availability topic
func (p *Publisher) PublishAvailability(ctx context.Context, online bool) error {
	payload := "offline"
	if online {
		payload = "online"
	}

	token := p.client.Publish(p.cfg.AvailabilityTopic, 1, true, payload)
	return waitToken(ctx, token, "availability")
}

// PublishDiagnostic publishes a diagnostic code and message. Code 0 means
// everything is healthy.
func (p *Publisher) PublishDiagnostic(ctx context.Context, code int, message string) error {
	body, err := json.Marshal(diagnosticPayload{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("error marshalling diagnostic: %w", err)
	}

	token := p.client.Publish(p.cfg.DiagnosticTopic, 1, false, body)
	return waitToken(ctx, token, "diagnostic")
}

// RunHeartbeat republishes the retained availability flag periodically so a
// broker restart cannot leave the topic stale. Blocks until ctx is cancelled.
func (p *Publisher) RunHeartbeat(ctx context.Context, online func() bool) {
	interval := time.Duration(p.cfg.HeartbeatInterval) * time.Second
	if interval == 0 {
		interval = 60 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.PublishAvailability(ctx, online()); err != nil {
				logger.LogWarn("⚠️ Heartbeat availability publish failed: %v", err)
			}
		}
	}
}

// waitToken waits for a publish token honouring context cancellation
func waitToken(ctx context.Context, token paho.Token, what string) error {
	done := make(chan struct{})
	go func() {
		token.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("publishing %s cancelled: %w", what, ctx.Err())
	case <-done:
		if err := token.Error(); err != nil {
			return fmt.Errorf("error publishing %s: %w", what, err)
		}
		return nil
	}
}
