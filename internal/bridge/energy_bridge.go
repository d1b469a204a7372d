package bridge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"homegrid-data/internal/apperrors"
	"homegrid-data/internal/config"
	"homegrid-data/internal/domain"
	"homegrid-data/internal/repository"
)

// EnergyBridge MQTT用电量采集桥接器
//
// Devices publish "ON"/"OFF" to "<device-id>/status". The bridge appends a
// status event for every transition and, when a device turns OFF, converts
// the on-duration into kWh and accumulates it into that day's usage row.
type EnergyBridge struct {
	cfg     *config.MQTTConfig
	devices repository.DevicesRepository
	energy  repository.EnergyRepository
	logger  *zap.Logger

	client mqtt.Client
	now    func() time.Time

	mu        sync.Mutex
	lastState map[string]domain.DeviceStatus
	onSince   map[string]time.Time
}

func NewEnergyBridge(
	cfg *config.MQTTConfig,
	devices repository.DevicesRepository,
	energy repository.EnergyRepository,
	logger *zap.Logger,
) *EnergyBridge {
	return &EnergyBridge{
		cfg:       cfg,
		devices:   devices,
		energy:    energy,
		logger:    logger,
		now:       time.Now,
		lastState: make(map[string]domain.DeviceStatus),
		onSince:   make(map[string]time.Time),
	}
}

// Start connects to the broker and subscribes to the status topic filter.
func (b *EnergyBridge) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.cfg.Broker)
	opts.SetClientID(b.cfg.ClientID)

	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username)
	}
	if b.cfg.Password != "" {
		opts.SetPassword(b.cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	b.client = mqtt.NewClient(opts)
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	handler := func(client mqtt.Client, msg mqtt.Message) {
		if err := b.HandleMessage(ctx, msg.Topic(), msg.Payload()); err != nil {
			b.logger.Error("status message handling failed",
				zap.String("topic", msg.Topic()),
				zap.Error(err))
		}
	}
	if token := b.client.Subscribe(b.cfg.StatusTopic, 1, handler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", b.cfg.StatusTopic, token.Error())
	}

	b.logger.Info("energy bridge started",
		zap.String("broker", b.cfg.Broker),
		zap.String("topic", b.cfg.StatusTopic))
	return nil
}

// Stop disconnects from the broker.
func (b *EnergyBridge) Stop() {
	if b.client != nil && b.client.IsConnected() {
		b.client.Disconnect(250)
	}
}

// HandleMessage processes one status publication. Exposed for the bridge
// tests, which feed messages directly instead of running a broker.
func (b *EnergyBridge) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	deviceID, ok := deviceFromTopic(topic)
	if !ok {
		return fmt.Errorf("unexpected topic %q", topic)
	}

	status := domain.DeviceStatus(strings.ToUpper(strings.TrimSpace(string(payload))))
	if status != domain.StatusOn && status != domain.StatusOff {
		return fmt.Errorf("invalid status payload %q for device %s", payload, deviceID)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	last, seen := b.lastState[deviceID]
	if !seen {
		// First message after startup: seed from the event log so a device
		// re-announcing its state does not get double-recorded.
		stored, err := b.energy.LastStatus(ctx, deviceID)
		if err != nil {
			return err
		}
		last = stored
	}
	if status == last {
		b.logger.Debug("ignoring duplicate status",
			zap.String("device_id", deviceID),
			zap.String("status", string(status)))
		b.lastState[deviceID] = status
		return nil
	}
	b.lastState[deviceID] = status

	occurred := b.now()
	if err := b.energy.InsertStatusEvent(ctx, &domain.StatusEvent{
		DeviceID:   deviceID,
		Status:     status,
		OccurredAt: occurred,
	}); err != nil {
		return err
	}

	switch status {
	case domain.StatusOn:
		b.onSince[deviceID] = occurred
		b.logger.Info("device turned on", zap.String("device_id", deviceID))
	case domain.StatusOff:
		onAt, wasOn := b.onSince[deviceID]
		if !wasOn {
			b.logger.Warn("device turned off without a recorded on time",
				zap.String("device_id", deviceID))
			return nil
		}
		delete(b.onSince, deviceID)

		kwh := domain.EnergyKWh(b.wattageFor(ctx, deviceID), occurred.Sub(onAt))
		day := time.Date(occurred.Year(), occurred.Month(), occurred.Day(), 0, 0, 0, 0, time.UTC)
		if err := b.energy.AddDailyUsage(ctx, deviceID, day, kwh); err != nil {
			return err
		}
		b.logger.Info("accumulated energy usage",
			zap.String("device_id", deviceID),
			zap.Float64("kwh", kwh),
			zap.Duration("on_for", occurred.Sub(onAt)))
	}
	return nil
}

// wattageFor looks up the device's rated wattage, falling back to the
// default for devices that have not been registered yet.
func (b *EnergyBridge) wattageFor(ctx context.Context, deviceID string) int {
	d, err := b.devices.GetDevice(ctx, deviceID)
	if err != nil {
		if !apperrors.IsKind(err, apperrors.KindNotFound) {
			b.logger.Warn("device lookup failed, using default wattage",
				zap.String("device_id", deviceID),
				zap.Error(err))
		}
		return domain.DefaultWattage
	}
	return d.WattageWatts
}

func deviceFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 2 || parts[1] != "status" || parts[0] == "" {
		return "", false
	}
	return parts[0], true
}
