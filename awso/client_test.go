package awso

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssts "github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func p(s string) *string {
	return &s
}

func TestClientCaching(t *testing.T) {
	buildClientInvocations := 0
	cp := NewClientProvider("us-east-1", func(cfg aws.Config) *string {
		buildClientInvocations++
		return p("dummy client")
	})

	for i := 0; i < 5; i++ {
		client, err := cp.Client(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "dummy client", *client)
	}

	assert.Equal(t, 1, buildClientInvocations)
}

func TestInvalidateRebuildsClient(t *testing.T) {
	buildClientInvocations := 0
	cp := NewClientProvider("us-east-1", func(cfg aws.Config) *string {
		buildClientInvocations++
		return p("dummy client")
	})

	_, err := cp.Client(context.Background())
	require.NoError(t, err)
	cp.Invalidate()
	_, err = cp.Client(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, buildClientInvocations)
}

func TestRegionPassedToBuilder(t *testing.T) {
	cp := NewClientProvider("eu-west-1", func(cfg aws.Config) *string {
		return p(cfg.Region)
	})

	region, err := cp.Client(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", *region)
}

func TestCallsToSts(t *testing.T) {
	if os.Getenv("SERIALMON_LIVE_AWS") == "" {
		t.Skip("set SERIALMON_LIVE_AWS to run against real AWS")
	}

	sts := NewClientProvider("us-east-1", func(cfg aws.Config) *awssts.Client {
		fmt.Println("constructing new client")
		return awssts.NewFromConfig(cfg)
	})

	for i := 0; i < 5; i++ {
		client, err := sts.Client(context.Background())
		require.NoError(t, err)
		resp, err := client.GetCallerIdentity(context.Background(), nil)
		require.NoError(t, err)
		fmt.Println(*resp.Arn)
		time.Sleep(1 * time.Second)
	}
}
