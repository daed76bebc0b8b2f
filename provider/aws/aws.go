package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
)

func defaultAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	return config.LoadDefaultConfig(ctx, opts...)
}

func defaultR53Client(ctx context.Context, region string) (*route53.Client, error) {
	cfg, err := defaultAWSConfig(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("could not get default AWS config: %w", err)
	}
	return route53.NewFromConfig(cfg), nil
}
