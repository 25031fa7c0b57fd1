package sms

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type SNSProvider struct {
	client *sns.Client
}

func NewSNSProvider(region string) (*SNSProvider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SNSProvider{
		client: sns.NewFromConfig(cfg),
	}, nil
}

func (s *SNSProvider) Send(ctx context.Context, to, body string) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(body),
	})
	if err != nil {
		return fmt.Errorf("failed to publish SNS message: %w", err)
	}

	return nil
}
