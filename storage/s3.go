package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	log "github.com/sirupsen/logrus"

	"github.com/uc-cdis/nf-rangeland/config"
)

// Uploader copies a local file to a remote path
type Uploader interface {
	Upload(ctx context.Context, localPath, remote string) error
}

// S3Uploader uploads files with the s3manager uploader
type S3Uploader struct {
	uploader s3manageriface.UploaderAPI
}

// NewS3Uploader builds an uploader for region.
// creds may be nil, in which case the SDK's default credential chain applies.
func NewS3Uploader(region string, creds *config.AWSCredentials) (*S3Uploader, error) {
	awsConfig := &aws.Config{
		Region: aws.String(region),
	}
	if creds != nil {
		awsConfig.Credentials = credentials.NewStaticCredentials(creds.ID, creds.Secret, "")
	}
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %v", err)
	}
	return &S3Uploader{uploader: s3manager.NewUploader(sess)}, nil
}

// NewS3UploaderWith wraps an existing s3manager uploader
func NewS3UploaderWith(uploader s3manageriface.UploaderAPI) *S3Uploader {
	return &S3Uploader{uploader: uploader}
}

func (u *S3Uploader) Upload(ctx context.Context, localPath, remote string) error {
	loc, err := ParseS3(remote)
	if err != nil {
		return err
	}
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %v: %v", localPath, err)
	}
	defer f.Close()

	out, err := u.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file, %v", err)
	}
	log.WithField("location", out.Location).Debug("upload complete")
	return nil
}
