package s3infra

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/parkspot-api/internal/config"
)

// ReceiptStore archives booking receipts in S3, one object per booking.
type ReceiptStore struct {
	client *s3.Client
	bucket string
}

// NewClient creates an S3 client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint and enables path-style addressing.
func NewClient(cfg *config.Config) *s3.Client {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}

	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		panic("failed to load AWS config for S3: " + err.Error())
	}

	clientOpts := []func(*s3.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...)
}

// NewReceiptStore creates a ReceiptStore writing to the given bucket.
func NewReceiptStore(client *s3.Client, bucket string) *ReceiptStore {
	return &ReceiptStore{client: client, bucket: bucket}
}

func receiptKey(bookingID string) string {
	return fmt.Sprintf("receipts/%s.txt", bookingID)
}

// Put stores the receipt text for bookingID.
func (s *ReceiptStore) Put(ctx context.Context, bookingID, body string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(receiptKey(bookingID)),
		Body:        strings.NewReader(body),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("s3 put receipt: %w", err)
	}
	return nil
}

// Get retrieves the receipt stream for bookingID.
func (s *ReceiptStore) Get(ctx context.Context, bookingID string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(receiptKey(bookingID)),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get receipt: %w", err)
	}
	return out.Body, nil
}

// Delete removes the receipt for bookingID.
func (s *ReceiptStore) Delete(ctx context.Context, bookingID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(receiptKey(bookingID)),
	})
	return err
}
