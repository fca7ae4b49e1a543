package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"StudyVault/internal/apperr"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API — подмножество клиента S3, которое нужно хранилищу.
type S3API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Options — параметры подключения к S3-совместимому хранилищу (AWS, MinIO).
type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
	PathStyle bool
	MaxSize   int64
}

// S3Store хранит блобы объектами <prefix><fileId>.pdf в одном бакете.
type S3Store struct {
	client   S3API
	uploader *manager.Uploader
	bucket   string
	prefix   string
	maxSize  int64
}

// NewS3Store загружает конфигурацию AWS (env, shared config) и создаёт клиента.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 blob backend requires S3_BUCKET")
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})
	return NewS3StoreWithClient(client, opts.Bucket, opts.Prefix, opts.MaxSize), nil
}

// NewS3StoreWithClient собирает хранилище поверх готового клиента.
func NewS3StoreWithClient(client S3API, bucket, prefix string, maxSize int64) *S3Store {
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
		maxSize:  maxSize,
	}
}

func (s *S3Store) key(id string) string {
	return s.prefix + id + blobExt
}

// Put: объект становится видимым только после успешного PutObject
// или CompleteMultipartUpload, при ошибке manager прерывает multipart-загрузку.
func (s *S3Store) Put(ctx context.Context, r io.Reader, contentType string) (string, error) {
	lr, err := prepare(r, contentType, s.maxSize)
	if err != nil {
		return "", err
	}
	id := newID()
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(id)),
		Body:        lr,
		ContentType: aws.String(ContentTypePDF),
	})
	if err != nil {
		if err = lr.result(err); errors.Is(err, apperr.ErrPayloadTooLarge) {
			return "", err
		}
		return "", apperr.Storage("s3 upload", err)
	}
	return id, nil
}

func (s *S3Store) head(ctx context.Context, id string) (*s3.HeadObjectOutput, error) {
	if !validID(id) {
		return nil, fmt.Errorf("blob %q: %w", id, apperr.ErrNotFound)
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("blob %s: %w", id, apperr.ErrNotFound)
		}
		return nil, apperr.Storage("s3 head", err)
	}
	return out, nil
}

// Get не скачивает объект сразу: тело читается диапазонами по мере Read/Seek.
func (s *S3Store) Get(ctx context.Context, id string) (*Object, error) {
	h, err := s.head(ctx, id)
	if err != nil {
		return nil, err
	}
	size := aws.ToInt64(h.ContentLength)
	return &Object{
		ID:          id,
		ContentType: ContentTypePDF,
		Size:        size,
		ModTime:     aws.ToTime(h.LastModified).UTC(),
		Body: &s3RangeReader{
			ctx:    ctx,
			client: s.client,
			bucket: s.bucket,
			key:    s.key(id),
			size:   size,
		},
	}, nil
}

// Delete проверяет существование: DeleteObject в S3 успешен и для отсутствующих ключей.
func (s *S3Store) Delete(ctx context.Context, id string) error {
	if _, err := s.head(ctx, id); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		return apperr.Storage("s3 delete", err)
	}
	return nil
}

func (s *S3Store) List(ctx context.Context) ([]Info, error) {
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	var out []Info
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, apperr.Storage("s3 list", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			id := strings.TrimSuffix(name, blobExt)
			if !strings.HasSuffix(name, blobExt) || !validID(id) {
				continue
			}
			out = append(out, Info{
				ID:        id,
				Size:      aws.ToInt64(obj.Size),
				CreatedAt: aws.ToTime(obj.LastModified).UTC(),
			})
		}
	}
	return out, nil
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

// s3RangeReader — ReadSeekCloser поверх ranged GetObject.
// Тело открывается лениво с текущей позиции и переоткрывается после Seek.
type s3RangeReader struct {
	ctx    context.Context
	client S3API
	bucket string
	key    string
	size   int64
	offset int64
	body   io.ReadCloser
}

func (r *s3RangeReader) Read(p []byte) (int, error) {
	if r.offset >= r.size {
		return 0, io.EOF
	}
	if r.body == nil {
		out, err := r.client.GetObject(r.ctx, &s3.GetObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    aws.String(r.key),
			Range:  aws.String(fmt.Sprintf("bytes=%d-", r.offset)),
		})
		if err != nil {
			if isS3NotFound(err) {
				return 0, apperr.ErrNotFound
			}
			return 0, apperr.Storage("s3 get", err)
		}
		r.body = out.Body
	}
	n, err := r.body.Read(p)
	r.offset += int64(n)
	return n, err
}

func (r *s3RangeReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.offset + offset
	case io.SeekEnd:
		abs = r.size + offset
	default:
		return 0, errors.New("s3 reader: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("s3 reader: negative position")
	}
	if abs != r.offset && r.body != nil {
		_ = r.body.Close()
		r.body = nil
	}
	r.offset = abs
	return abs, nil
}

func (r *s3RangeReader) Close() error {
	if r.body == nil {
		return nil
	}
	err := r.body.Close()
	r.body = nil
	return err
}

var _ Store = (*S3Store)(nil)
