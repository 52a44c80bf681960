package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"github.com/esplan/serialmon/awso"
	"github.com/esplan/serialmon/pkg/monitor"
	"github.com/esplan/serialmon/pkg/relay"
)

var (
	device   = flag.String("device", "/dev/ttyACM0", "serial device to read from")
	baud     = flag.Int("baud", 115200, "baudrate to use")
	timeout  = flag.Duration("timeout", 1*time.Second, "read timeout for a single read")
	duration = flag.Duration("duration", 15*time.Second, "how long to monitor before exiting")

	mqttAddress  = flag.String("mqttAddress", "", "address:port of MQTT broker to relay lines to (empty disables the relay)")
	mqttTopic    = flag.String("mqttTopic", "device/serialmon/console", "MQTT topic to publish lines on")
	mqttUsername = flag.String("mqttUsername", "<none>", "MQTT username")
	mqttPassword = flag.String("mqttPassword", "<none>", "MQTT password")

	metrics         = flag.Bool("metrics", false, "publish run metrics to Cloudwatch when the run ends")
	region          = flag.String("region", "us-east-1", "Cloudwatch region to use")
	metricNamespace = flag.String("metricNamespace", "Testing", "Metric namespace to publish in")
)

// cwProvider adapts the generic client provider to the relay's interface.
type cwProvider struct {
	cp awso.ClientProvider[cloudwatch.Client]
}

func (p *cwProvider) Client(ctx context.Context) (relay.CloudwatchAPI, error) {
	return p.cp.Client(ctx)
}

func (p *cwProvider) Invalidate() {
	p.cp.Invalidate()
}

func main() {
	flag.Parse()

	log.SetFlags(0)
	log.SetOutput(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	mon, err := monitor.Open(monitor.Config{
		Device:      *device,
		Baud:        *baud,
		ReadTimeout: *timeout,
		Duration:    *duration,
	})
	if err != nil {
		return fmt.Errorf("error opening serial port: %w", err)
	}
	defer mon.Close()

	if *mqttAddress != "" {
		r, err := relay.NewMQTTRelay(relay.MQTTRelayConfig{
			BrokerAddress: *mqttAddress,
			Topic:         *mqttTopic,
			Username:      *mqttUsername,
			Password:      *mqttPassword,
			Logger:        log.New(os.Stdout, "[mqtt] ", 0),
		})
		if err != nil {
			return fmt.Errorf("error connecting MQTT relay: %w", err)
		}
		defer r.Close()
		mon.AddHandler(r)
	}

	var publisher *relay.CloudwatchPublisher
	if *metrics {
		cw := awso.NewClientProvider(*region, func(cfg aws.Config) *cloudwatch.Client {
			log.Println("Creating new Cloudwatch client")
			return cloudwatch.NewFromConfig(cfg)
		})
		publisher = relay.NewCloudwatchPublisher(&cwProvider{cw}, *metricNamespace, *device)
		mon.AddHandler(publisher)
	}

	if err := mon.Run(ctx); err != nil {
		return err
	}

	if publisher != nil {
		// ctx may already be cancelled when the run was interrupted.
		if err := publisher.Publish(context.Background()); err != nil {
			return fmt.Errorf("error publishing run metrics: %w", err)
		}
	}
	return nil
}
