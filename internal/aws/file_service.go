package aws

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// FileService stores uploaded catalog spreadsheets and serves them back to
// the import worker.
type FileService interface {
	UploadFile(ctx context.Context, key string, file io.Reader) (string, error)
	DownloadFile(ctx context.Context, key string) (io.ReadCloser, error)
	TestConnection() error
}

type fileService struct {
	s3     *s3.Client
	bucket string
	region string
}

func NewFileService(accessKey, secretKey, bucketName, region string) (FileService, error) {
	credProvider := aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     accessKey,
			SecretAccessKey: secretKey,
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credProvider),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg)

	return &fileService{
		s3:     client,
		bucket: bucketName,
		region: region,
	}, nil
}

// ImportObjectKey builds a unique S3 key for an uploaded spreadsheet. The
// uuid salt avoids collisions when the same filename is submitted twice.
func ImportObjectKey(storeID, filename string) string {
	return path.Join("imports", storeID, uuid.NewString()+"-"+path.Base(filename))
}

func (s *fileService) UploadFile(ctx context.Context, key string, file io.Reader) (string, error) {
	uploader := manager.NewUploader(s.s3)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   file,
	})

	if err != nil {
		return "", err
	}

	// Construct the URL manually
	fileURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	return fileURL, nil
}

func (s *fileService) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	output, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to download file from S3")
		return nil, err
	}

	return output.Body, nil
}

func (s *fileService) TestConnection() error {
	// Try to list objects with max 1 result to test the connection
	_, err := s.s3.ListObjectsV2(context.TODO(), &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		MaxKeys: aws.Int32(1), // Only fetch 1 key to minimize data transfer
	})
	log.Err(err).Msg("AWS S3 Test Connection")

	return err
}
