package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/taskfleet/deployer-backend/pkg/domain/entities"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

type PutObjectAPI interface {
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
}

// Sink writes one JSON object per deployment record, keyed by fleet,
// date and record id so the bucket stays queryable by time range.
type Sink struct {
	client PutObjectAPI
	bucket string
}

func NewSink(client PutObjectAPI, bucket string) *Sink {
	return &Sink{client: client, bucket: bucket}
}

func NewSinkFromRegion(ctx context.Context, region, bucket string) (*Sink, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSink(awss3.NewFromConfig(cfg), bucket), nil
}

func (s *Sink) Save(ctx context.Context, record entities.DeploymentRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal deployment record: %w", err)
	}
	key := fmt.Sprintf("deployments/%s/%s/%s.json",
		record.FleetID,
		record.FinishedAt.UTC().Format("2006/01/02"),
		record.ID)
	_, err = s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put deployment record %s: %w", key, err)
	}
	return nil
}
