package cmd

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/planora/core-service/internal/core/events"
	"github.com/planora/core-service/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event bus commands",
	Long:  `Inspect the in-process event bus: publish test payment events and watch handlers react`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test payment event",
	Long:  `Publish a synthetic payment lifecycle event to the bus, with a logging handler subscribed, to verify event wiring`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		publishTestEvent(args[0])
	},
}

var eventPaymentServiceID string

func publishTestEvent(eventType string) {
	lg := logger.L()

	eventBus := events.NewEventBus(lg)

	eventBus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
		lg.Info("test handler received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	var testEvent events.Event
	switch eventType {
	case events.EventTypePaymentCompleted:
		testEvent = events.NewPaymentCompletedEvent(0, eventPaymentServiceID, "pi_test", nil, nil)
	case events.EventTypePaymentFailed:
		testEvent = events.NewPaymentFailedEvent(0, eventPaymentServiceID, "pi_test", "test failure")
	case events.EventTypePaymentCanceled:
		testEvent = events.NewPaymentCanceledEvent(0, eventPaymentServiceID, "pi_test")
	default:
		testEvent = events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"source": "cli-command",
			},
		}
	}

	lg.Info("publishing test event", "event_type", eventType, "event_id", testEvent.EventID())

	if err := eventBus.Publish(context.Background(), testEvent); err != nil {
		lg.Error("failed to publish event", "error", err)
		return
	}

	// Handlers run asynchronously; give them a beat before the process exits.
	time.Sleep(100 * time.Millisecond)
	lg.Info("test event published")
}

func init() {
	publishEventCmd.Flags().StringVar(&eventPaymentServiceID, "payment-service-id", "ps_test", "payment_service_id carried in the test event")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
