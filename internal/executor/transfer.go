package executor

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/everlauncher/internal/utils"
)

// S3API is the subset of the S3 client used for s3:// transfers.
type S3API interface {
	manager.DownloadAPIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

func (e *LocalExecutor) httpTransfer(ctx context.Context, h *handle) error {
	resp, err := e.client.Get(ctx, h.url)
	if err != nil {
		return fmt.Errorf("error executing GET request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if resp.ContentLength >= 0 {
		h.total.Store(resp.ContentLength)
	}
	buffer := make([]byte, utils.DefaultBufferSize)
	for {
		n, readErr := resp.Body.Read(buffer)
		if n > 0 {
			h.write(buffer[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("error reading response body: %v", readErr)
		}
	}
	if resp.ContentLength < 0 {
		h.total.Store(h.downloaded.Load())
	}
	return nil
}

func (e *LocalExecutor) s3Transfer(ctx context.Context, h *handle) error {
	bucket, key, err := parseS3URL(h.url)
	if err != nil {
		return err
	}
	client, err := e.getS3Client(ctx)
	if err != nil {
		return err
	}
	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("error getting object info: %v", err)
	}
	var size int64
	if head.ContentLength != nil {
		size = *head.ContentLength
	}
	h.total.Store(size)

	buf := manager.NewWriteAtBuffer(make([]byte, 0, size))
	downloader := manager.NewDownloader(client)
	_, err = downloader.Download(ctx, &progressWriterAt{buf: buf, h: h}, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("error downloading object: %v", err)
	}
	data := buf.Bytes()
	h.setPayload(data)
	h.downloaded.Store(int64(len(data)))
	h.total.Store(int64(len(data)))
	return nil
}

func (e *LocalExecutor) getS3Client(ctx context.Context) (S3API, error) {
	e.s3Once.Do(func() {
		opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRetryMode(aws.RetryModeAdaptive)}
		if e.s3Profile != "" {
			opts = append(opts, awsconfig.WithSharedConfigProfile(e.s3Profile))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			e.s3Err = fmt.Errorf("error loading AWS config: %v", err)
			return
		}
		e.s3Client = s3.NewFromConfig(cfg)
		log.Debug().Str("op", "executor/transfer").Msgf("created S3 client with profile %q", e.s3Profile)
	})
	return e.s3Client, e.s3Err
}

func parseS3URL(link string) (string, string, error) {
	parsed, err := url.Parse(link)
	if err != nil {
		return "", "", fmt.Errorf("invalid S3 URL: %v", err)
	}
	bucket := parsed.Host
	key := strings.TrimPrefix(parsed.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid S3 URL %q: expected s3://bucket/key", link)
	}
	return bucket, key, nil
}

// progressWriterAt reports the distinct bytes written by the S3 downloader.
// A retried part rewrites its range, so overlapping writes count once.
type progressWriterAt struct {
	buf *manager.WriteAtBuffer
	h   *handle

	mu    sync.Mutex
	spans []span
}

type span struct {
	start, end int64
}

func (w *progressWriterAt) WriteAt(p []byte, off int64) (int, error) {
	n, err := w.buf.WriteAt(p, off)
	if n > 0 {
		w.h.downloaded.Store(w.cover(off, off+int64(n)))
	}
	return n, err
}

// cover records [start, end) and returns the number of bytes covered so far.
func (w *progressWriterAt) cover(start, end int64) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	merged := span{start, end}
	kept := make([]span, 0, len(w.spans)+1)
	for _, s := range w.spans {
		if s.end < merged.start || s.start > merged.end {
			kept = append(kept, s)
			continue
		}
		merged.start = min(merged.start, s.start)
		merged.end = max(merged.end, s.end)
	}
	kept = append(kept, merged)
	w.spans = kept
	var total int64
	for _, s := range kept {
		total += s.end - s.start
	}
	return total
}
