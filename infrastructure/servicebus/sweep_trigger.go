package servicebus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"social-scheduler/infrastructure/logger"
)

const sweepQueue = "scheduler-sweep"

// ISweepTrigger lets external systems request an immediate dispatch sweep
// instead of waiting for the next ticker interval.
type ISweepTrigger interface {
	SendTrigger(ctx context.Context, reason string) error
	Listen(ctx context.Context, onTrigger func(ctx context.Context)) error
}

type sweepTriggerMessage struct {
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

type SweepTrigger struct {
	AzservicebusClient *azservicebus.Client
}

func NewSweepTrigger(azServiceBusClient *azservicebus.Client) ISweepTrigger {
	return &SweepTrigger{AzservicebusClient: azServiceBusClient}
}

func (t *SweepTrigger) SendTrigger(ctx context.Context, reason string) error {
	if t.AzservicebusClient == nil {
		logger.GetLogger().Debug("Service Bus client is nil - skipping sweep trigger")
		return nil
	}
	sender, err := t.AzservicebusClient.NewSender(sweepQueue, nil)
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while making new sender service bus.")
		return err
	}
	defer func(sender *azservicebus.Sender, ctx context.Context) {
		if err := sender.Close(ctx); err != nil {
			logger.GetLogger().
				WithField("error", err).
				Error("Error while closing sender.")
		}
	}(sender, context.Background())

	body, err := json.Marshal(sweepTriggerMessage{Reason: reason, RequestedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	sbMessage := &azservicebus.Message{
		Body: body,
	}
	if err := sender.SendMessage(ctx, sbMessage, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}

// Listen receives sweep trigger messages until ctx is cancelled, invoking
// onTrigger for each completed message.
func (t *SweepTrigger) Listen(ctx context.Context, onTrigger func(ctx context.Context)) error {
	if t.AzservicebusClient == nil {
		logger.GetLogger().Info("Service Bus client is nil - sweep trigger listener disabled")
		<-ctx.Done()
		return nil
	}
	receiver, err := t.AzservicebusClient.NewReceiverForQueue(sweepQueue, nil)
	if err != nil {
		return err
	}
	defer func(receiver *azservicebus.Receiver, ctx context.Context) {
		if err := receiver.Close(ctx); err != nil {
			logger.GetLogger().
				WithField("error", err).
				Error("Error while closing receiver.")
		}
	}(receiver, context.Background())

	for {
		messages, err := receiver.ReceiveMessages(ctx, 1, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.GetLogger().WithField("error", err).Error("Error while receiving messages.")
			continue
		}
		for _, message := range messages {
			var trigger sweepTriggerMessage
			if err := json.Unmarshal(message.Body, &trigger); err != nil {
				logger.GetLogger().WithField("error", err).Warn("Malformed sweep trigger message")
			} else {
				logger.GetLogger().WithField("reason", trigger.Reason).Info("Sweep trigger received")
			}
			onTrigger(ctx)
			if err := receiver.CompleteMessage(ctx, message, nil); err != nil {
				logger.GetLogger().WithField("error", err).Error("Error while completing message.")
			}
		}
	}
}
