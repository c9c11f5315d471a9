package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/constants"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/models"
)

// PubSubManager fans run reports and settlements out to Redis channels.
type PubSubManager struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewPubSubManager(client *redis.Client, logger *logrus.Logger) *PubSubManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &PubSubManager{client: client, logger: logger}
}

// RunChannels lists every channel a report is published to.
func RunChannels(report *models.RunReport) []string {
	return []string{
		constants.PubSubChannelRuns,
		fmt.Sprintf("%s:pair:%s", constants.PubSubChannelRuns, report.TokenPair),
		fmt.Sprintf("%s:state:%s", constants.PubSubChannelRuns, report.State),
	}
}

// PublishRun publishes the encoded report to all of its channels.
func (p *PubSubManager) PublishRun(ctx context.Context, report *models.RunReport, data []byte) error {
	pipe := p.client.Pipeline()
	for _, channel := range RunChannels(report) {
		pipe.Publish(ctx, channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish run report: %w", err)
	}
	return nil
}

// PublishSettlement publishes one confirmed on-chain action.
func (p *PubSubManager) PublishSettlement(ctx context.Context, s *models.Settlement) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settlement: %w", err)
	}

	pipe := p.client.Pipeline()
	pipe.Publish(ctx, constants.PubSubChannelSettlements, data)
	pipe.Publish(ctx, fmt.Sprintf("%s:%s", constants.PubSubChannelSettlements, s.Kind), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish settlement: %w", err)
	}
	return nil
}

// SubscribeRuns decodes reports from channel until ctx is cancelled. The
// returned channel is closed when the subscription ends.
func (p *PubSubManager) SubscribeRuns(ctx context.Context, channel string) (<-chan *models.RunReport, error) {
	sub := p.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	p.logger.WithField("channel", channel).Info("subscribed")

	out := make(chan *models.RunReport)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var rep models.RunReport
				if err := json.Unmarshal([]byte(msg.Payload), &rep); err != nil {
					p.logger.WithError(err).WithField("channel", msg.Channel).Warn("error unmarshaling run report")
					continue
				}
				select {
				case out <- &rep:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
