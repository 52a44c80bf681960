package awso

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// ClientProvider lazily builds and caches a single AWS service client.
// Invalidate drops the cached client so the next Client call rebuilds it with
// freshly resolved credentials.
type ClientProvider[T any] struct {
	region      string
	buildClient func(cfg aws.Config) *T
	client      *T
}

func NewClientProvider[T any](region string, buildClient func(cfg aws.Config) *T) ClientProvider[T] {
	return ClientProvider[T]{region: region, buildClient: buildClient}
}

func (cp *ClientProvider[T]) Client(ctx context.Context) (*T, error) {
	if cp.client == nil {
		cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cp.region))
		if err != nil {
			return nil, err
		}
		cp.client = cp.buildClient(cfg)
	}
	return cp.client, nil
}

func (cp *ClientProvider[T]) Invalidate() {
	cp.client = nil
}
