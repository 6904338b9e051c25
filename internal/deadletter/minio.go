package deadletter

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Sink records events the pipeline dropped so operators can inspect and
// backfill them later.
type Sink interface {
	Record(ctx context.Context, topic string, payload []byte, reason string) error
}

// FailureRecord is the stored shape of one dropped event.
type FailureRecord struct {
	Topic     string          `json:"topic"`
	Payload   json.RawMessage `json:"payload"`
	Reason    string          `json:"reason"`
	DroppedAt time.Time       `json:"dropped_at"`
}

type MinIOSink struct {
	client *minio.Client
	bucket string
}

func NewMinIOSink(endpoint, accessKey, secretKey, bucket string) (*MinIOSink, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinIOSink{
		client: client,
		bucket: bucket,
	}, nil
}

func (s *MinIOSink) Record(ctx context.Context, topic string, payload []byte, reason string) error {
	droppedAt := time.Now().UTC()

	record := FailureRecord{
		Topic:     topic,
		Payload:   normalizePayload(payload),
		Reason:    reason,
		DroppedAt: droppedAt,
	}

	jsonData, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal failure record: %w", err)
	}

	// year/month/day/<payload hash>.json keeps records browsable by drop
	// date and stable across redeliveries of the same payload.
	objectPath := fmt.Sprintf("%d/%02d/%02d/%x.json",
		droppedAt.Year(),
		droppedAt.Month(),
		droppedAt.Day(),
		sha256.Sum256(payload),
	)

	_, err = s.client.PutObject(ctx, s.bucket, objectPath, bytes.NewReader(jsonData), int64(len(jsonData)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("upload failure record: %w", err)
	}

	return nil
}

// normalizePayload keeps the original bytes when they are valid JSON and
// re-encodes them as a JSON string otherwise, so the record itself always
// marshals.
func normalizePayload(payload []byte) json.RawMessage {
	if json.Valid(payload) {
		return json.RawMessage(payload)
	}
	quoted, _ := json.Marshal(string(payload))
	return json.RawMessage(quoted)
}
