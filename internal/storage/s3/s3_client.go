package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"driftbox/internal/domain"
	"driftbox/internal/port"
)

type s3Client struct {
	client    *s3.Client
	presigner *s3.PresignClient
	uploader  *manager.Uploader
	bucket    string
}

// NewClient creates an S3-backed ObjectStore for one storage mount.
func NewClient(mount *domain.StorageMount) (port.ObjectStore, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(mount.Region))

	if mount.AccessKey != "" && mount.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(mount.AccessKey, mount.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if mount.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(mount.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return &s3Client{
		client:    client,
		presigner: s3.NewPresignClient(client),
		uploader:  manager.NewUploader(client),
		bucket:    mount.Bucket,
	}, nil
}

func (c *s3Client) CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	result, err := c.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", classify("s3 create multipart", err)
	}
	return aws.ToString(result.UploadId), nil
}

func (c *s3Client) UploadPart(ctx context.Context, key, uploadID string, partNumber int32, body io.Reader, size int64) (string, error) {
	result, err := c.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		UploadId:      aws.String(uploadID),
		PartNumber:    aws.Int32(partNumber),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", classify("s3 upload part", err)
	}
	return aws.ToString(result.ETag), nil
}

func (c *s3Client) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []port.CompletedPart) (string, error) {
	completed := make([]types.CompletedPart, 0, len(parts))
	for _, p := range parts {
		completed = append(completed, types.CompletedPart{
			PartNumber: aws.Int32(p.PartNumber),
			ETag:       aws.String(p.ETag),
		})
	}

	result, err := c.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(c.bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return "", classify("s3 complete multipart", err)
	}
	return aws.ToString(result.ETag), nil
}

func (c *s3Client) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	_, err := c.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(c.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		return classify("s3 abort multipart", err)
	}
	return nil
}

func (c *s3Client) ListParts(ctx context.Context, key, uploadID string) ([]port.CompletedPart, error) {
	var parts []port.CompletedPart
	var marker *string
	for {
		result, err := c.client.ListParts(ctx, &s3.ListPartsInput{
			Bucket:           aws.String(c.bucket),
			Key:              aws.String(key),
			UploadId:         aws.String(uploadID),
			PartNumberMarker: marker,
		})
		if err != nil {
			return nil, classify("s3 list parts", err)
		}
		for _, p := range result.Parts {
			parts = append(parts, port.CompletedPart{
				PartNumber: aws.ToInt32(p.PartNumber),
				ETag:       aws.ToString(p.ETag),
				Size:       aws.ToInt64(p.Size),
			})
		}
		if !aws.ToBool(result.IsTruncated) {
			break
		}
		marker = result.NextPartNumberMarker
	}
	return parts, nil
}

func (c *s3Client) Upload(ctx context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	result, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(input.Key),
		Body:        input.Body,
		ContentType: aws.String(input.ContentType),
	})
	if err != nil {
		return nil, classify("s3 upload", err)
	}
	return &port.UploadOutput{
		Location: result.Location,
		ETag:     aws.ToString(result.ETag),
	}, nil
}

func (c *s3Client) CopyObject(ctx context.Context, srcKey, dstKey, contentType string) (string, error) {
	result, err := c.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(dstKey),
		CopySource:  aws.String(c.bucket + "/" + srcKey),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", classify("s3 copy object", err)
	}
	if result.CopyObjectResult == nil {
		return "", nil
	}
	return aws.ToString(result.CopyObjectResult.ETag), nil
}

func (c *s3Client) ListObjects(ctx context.Context, prefix string) ([]port.ObjectInfo, error) {
	var objects []port.ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("s3 list objects", err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, port.ObjectInfo{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			})
		}
	}
	return objects, nil
}

func (c *s3Client) Delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return classify("s3 delete", err)
	}
	return nil
}

func (c *s3Client) PresignGetObject(ctx context.Context, key string, expiry time.Duration) (string, error) {
	result, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("s3 presign get: %w", err)
	}
	return result.URL, nil
}

func (c *s3Client) PresignPutObject(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	result, err := c.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("s3 presign put: %w", err)
	}
	return result.URL, nil
}

// classify wraps a store error with a domain sentinel so callers can decide
// retryability without inspecting message text. The store's own error text is
// kept verbatim in the chain.
func classify(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchUpload", "NoSuchKey":
			return fmt.Errorf("%s: %w: %v", op, domain.ErrNotFound, err)
		}
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		if respErr.HTTPStatusCode() >= 500 {
			return fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
		}
		return fmt.Errorf("%s: %w: %v", op, domain.ErrStoreRejected, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
