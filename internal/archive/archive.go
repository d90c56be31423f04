// Package archive copies generated images from the upstream API's
// short-lived URLs into an S3-compatible bucket so gallery entries stay
// renderable after the upstream link expires.
package archive

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/bimg"
	"github.com/rs/zerolog"

	"github.com/krampattern/kram-api/internal/config"
)

const thumbWidth = 512

// Uploader is the slice of the S3 client the archiver uses.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver downloads a generated image and stores it with a thumbnail.
type Archiver struct {
	client    Uploader
	bucket    string
	publicURL string
	http      *http.Client
}

// NewS3Client builds the R2/S3 client from archive config.
func NewS3Client(ctx context.Context, cfg config.ArchiveConfig) (*s3.Client, error) {
	tr := &http.Transport{
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithHTTPClient(&http.Client{Transport: tr}),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.AccessKeySecret, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
	}), nil
}

func New(client Uploader, bucket, publicURL string) *Archiver {
	return &Archiver{client: client, bucket: bucket, publicURL: publicURL, http: http.DefaultClient}
}

// Archive fetches sourceURL, uploads the original plus a thumbnail under
// the history's key prefix, and returns the public URL of the original.
func (a *Archiver) Archive(ctx context.Context, historyID, sourceURL string) (string, error) {
	logger := zerolog.Ctx(ctx)

	data, contentType, err := a.download(ctx, sourceURL)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("kram/%s/original.png", historyID)
	obj, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload original: %w", err)
	}
	logger.Info().Str("key", key).Str("etag", aws.ToString(obj.ETag)).Msg("image archived")

	// Thumbnail is best effort; gallery falls back to the original.
	if thumb, terr := bimg.NewImage(data).Process(bimg.Options{Width: thumbWidth, Type: bimg.JPEG}); terr != nil {
		logger.Warn().Err(terr).Msg("thumbnail generation failed")
	} else {
		thumbKey := fmt.Sprintf("kram/%s/thumb.jpg", historyID)
		if _, terr = a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         aws.String(thumbKey),
			Body:        bytes.NewReader(thumb),
			ContentType: aws.String("image/jpeg"),
		}); terr != nil {
			logger.Warn().Err(terr).Msg("thumbnail upload failed")
		}
	}

	return CleanURL(fmt.Sprintf(a.publicURL, key)), nil
}

func (a *Archiver) download(ctx context.Context, sourceURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read image body: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	return data, contentType, nil
}

// CleanURL percent-encodes spaces and reparses the URL.
func CleanURL(urlStr string) string {
	urlStr = strings.ReplaceAll(urlStr, " ", "%20")
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return urlStr
	}
	return parsed.String()
}
