// Package capture handles screenshot/video artifact storage for the
// commands surface: inline for small screenshots, streamed to S3 above a
// size threshold, and ffmpeg-driven recordings of a page.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"browsergate/models/capture"
)

// Uploader streams capture artifacts to S3. Grounded on the teacher's
// S3UploadManager (execution_bridge/s3_upload_manager.go): a shared
// s3manager.Uploader and a bucket, one upload call per artifact.
type Uploader struct {
	uploader *s3manager.Uploader
	bucket   string
}

// NewUploader builds an Uploader against the given bucket in region.
func NewUploader(bucket, region string) *Uploader {
	sess := session.Must(session.NewSession(&aws.Config{Region: aws.String(region)}))
	return &Uploader{
		uploader: s3manager.NewUploader(sess),
		bucket:   bucket,
	}
}

// PutScreenshot uploads screenshot bytes, keyed by session and time, and
// returns the storage key.
func (u *Uploader) PutScreenshot(ctx context.Context, sessionID string, format capture.ScreenshotFormat, data []byte) (string, error) {
	key := fmt.Sprintf("screenshots/%s/%s.%s", sessionID, time.Now().UTC().Format("20060102T150405.000000000"), format)

	contentType := "image/png"
	if format == capture.FormatJPEG {
		contentType = "image/jpeg"
	}

	_, err := u.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 screenshot upload: %w", err)
	}
	return key, nil
}

// PutRecording uploads a finished recording's bytes, which the caller
// reads from disk once ffmpeg has exited; the Recorder does not call it.
func (u *Uploader) PutRecording(ctx context.Context, sessionID string, body []byte) (string, error) {
	key := fmt.Sprintf("recordings/%s/%s.mp4", sessionID, time.Now().UTC().Format("2006-01-02"))

	_, err := u.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("video/mp4"),
		Metadata: map[string]*string{
			"session-id": aws.String(sessionID),
		},
	})
	if err != nil {
		return "", fmt.Errorf("s3 recording upload: %w", err)
	}
	return key, nil
}
