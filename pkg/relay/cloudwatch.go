package relay

import (
	"context"
	"errors"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/smithy-go"

	"github.com/esplan/serialmon/pkg/monitor"
)

// CloudwatchAPI is the subset of the Cloudwatch client used by the publisher.
type CloudwatchAPI interface {
	PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, opts ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

type CloudwatchClientProvider interface {
	Client(ctx context.Context) (CloudwatchAPI, error)
	Invalidate()
}

// CloudwatchPublisher counts decoded and raw lines during a run and publishes
// the totals as Cloudwatch metrics when the run ends. It implements
// monitor.LineHandler.
type CloudwatchPublisher struct {
	cw              CloudwatchClientProvider
	metricNamespace string
	device          string

	decoded int
	raw     int
}

func NewCloudwatchPublisher(cw CloudwatchClientProvider, metricNamespace string, device string) *CloudwatchPublisher {
	return &CloudwatchPublisher{cw: cw, metricNamespace: metricNamespace, device: device}
}

func (pub *CloudwatchPublisher) HandleLine(l monitor.Line) {
	if l.Valid {
		pub.decoded++
	} else {
		pub.raw++
	}
}

// Publish sends the run totals. An expired-credentials failure invalidates
// the cached client and retries once.
func (pub *CloudwatchPublisher) Publish(ctx context.Context) error {
	if err := pub.publish(ctx); err != nil {
		var apiErr smithy.APIError
		if !errors.As(err, &apiErr) || apiErr.ErrorCode() != "ExpiredToken" {
			return err
		}

		log.Println("IAM creds are expired, refreshing client and retrying")
		pub.cw.Invalidate()

		if err := pub.publish(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (pub *CloudwatchPublisher) publish(ctx context.Context) error {
	client, err := pub.cw.Client(ctx)
	if err != nil {
		return err
	}

	dimensions := []types.Dimension{
		{
			Name:  aws.String("Device"),
			Value: aws.String(pub.device),
		},
	}
	_, err = client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(pub.metricNamespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String("LinesDecoded"),
				Dimensions: dimensions,
				Value:      aws.Float64(float64(pub.decoded)),
			},
			{
				MetricName: aws.String("LinesRaw"),
				Dimensions: dimensions,
				Value:      aws.Float64(float64(pub.raw)),
			},
		},
	})

	if err == nil {
		log.Printf("Published run metrics for device %s\n", pub.device)
	}
	return err
}
