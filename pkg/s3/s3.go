package s3

import (
	"context"
	"fmt"
	"io"
	"strings"

	"snapbuzz/pkg/config"
	"snapbuzz/pkg/logger"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

type Client struct {
	s3Client *s3.S3
	uploader *s3manager.Uploader
	bucket   string
}

func NewClient(cfg *config.Config, log *logger.Logger) (*Client, error) {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.AWSRegion),
		Credentials: credentials.NewStaticCredentials(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		),
	}

	// MinIO in local development
	if cfg.AWSEndpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.AWSEndpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
		if cfg.S3UseSSL == "false" {
			awsConfig.DisableSSL = aws.Bool(true)
		}
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	client := &Client{
		s3Client: s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		bucket:   cfg.S3BucketName,
	}

	if _, err := client.s3Client.HeadBucket(&s3.HeadBucketInput{
		Bucket: aws.String(cfg.S3BucketName),
	}); err != nil {
		if _, err := client.s3Client.CreateBucket(&s3.CreateBucketInput{
			Bucket: aws.String(cfg.S3BucketName),
		}); err != nil {
			log.Warn("[S3] Could not create bucket %s: %v", cfg.S3BucketName, err)
		}
	}

	return client, nil
}

// UploadFile stores body under key and returns its public URL.
func (c *Client) UploadFile(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	_, err := c.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}

	return ObjectURL(aws.StringValue(c.s3Client.Config.Endpoint), aws.BoolValue(c.s3Client.Config.DisableSSL), aws.StringValue(c.s3Client.Config.Region), c.bucket, key), nil
}

// DeleteFile accepts either an object key or a URL returned by UploadFile.
func (c *Client) DeleteFile(ctx context.Context, key string) error {
	_, err := c.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(KeyFromURL(c.bucket, key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}

// ObjectURL builds the public URL for key. A non-AWS endpoint yields a
// path-style MinIO URL.
func ObjectURL(endpoint string, disableSSL bool, region, bucket, key string) string {
	if endpoint != "" && !strings.Contains(endpoint, "amazonaws.com") {
		protocol := "https"
		if disableSSL || strings.HasPrefix(endpoint, "http://") {
			protocol = "http"
		}
		endpoint = strings.TrimPrefix(endpoint, "http://")
		endpoint = strings.TrimPrefix(endpoint, "https://")
		return fmt.Sprintf("%s://%s/%s/%s", protocol, endpoint, bucket, key)
	}

	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}

func KeyFromURL(bucket, value string) string {
	if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		return value
	}
	if i := strings.Index(value, "/"+bucket+"/"); i >= 0 {
		return value[i+len(bucket)+2:]
	}
	if i := strings.Index(value, ".amazonaws.com/"); i >= 0 {
		return value[i+len(".amazonaws.com/"):]
	}
	return value
}
