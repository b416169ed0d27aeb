package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-api-realtime/internal/config"
)

// publishAPI is the subset of *sns.Client the mirror needs.
type publishAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Mirror copies broker payloads to an SNS topic so consumers outside this
// process (mobile push, analytics) see the same events. The broker topic
// travels as the "topic" message attribute.
type Mirror struct {
	client   publishAPI
	topicARN string
}

func NewMirror(cfg *config.Config) (*Mirror, error) {
	if cfg.SNSMirrorTopicARN == "" {
		return nil, fmt.Errorf("SNS_MIRROR_TOPIC_ARN not set")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.SNSRegion)}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, err
	}
	clientOpts := []func(*sns.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return &Mirror{client: sns.NewFromConfig(awsCfg, clientOpts...), topicARN: cfg.SNSMirrorTopicARN}, nil
}

func (m *Mirror) Publish(ctx context.Context, topic string, payload []byte) error {
	_, err := m.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(m.topicARN),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"topic": {DataType: aws.String("String"), StringValue: aws.String(topic)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish %s: %w", topic, err)
	}
	return nil
}
