package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ignite/adreport-ingest/internal/ingest"
	"github.com/ignite/adreport-ingest/internal/sheetio"
)

func loadAWSConfig(ctx context.Context, region, profile, accessKey, secretKey string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	switch {
	case accessKey != "" && secretKey != "":
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	case profile != "":
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}

// S3API is the subset of the S3 client used here.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3KV stores each key as an object under prefix.
type S3KV struct {
	client S3API
	bucket string
	prefix string
}

func NewS3KV(client S3API, bucket, prefix string) *S3KV {
	return &S3KV{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3KV) objectKey(key string) string {
	return s.prefix + key + ".json"
}

func (s *S3KV) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("reading S3 object body: %w", err)
	}
	return data, nil
}

func (s *S3KV) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(value),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting object to S3: %w", err)
	}
	return nil
}

func (s *S3KV) Close() error { return nil }

// DynamoAPI is the subset of the DynamoDB client used here.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoDBItem represents an item stored in DynamoDB
type DynamoDBItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Data      string `dynamodbav:"Data"`
	Timestamp string `dynamodbav:"Timestamp"`
}

const dynamoSortKey = "STATE"

// DynamoKV stores each key as a single item in a PK/SK table.
type DynamoKV struct {
	client DynamoAPI
	table  string
	now    func() time.Time
}

func NewDynamoKV(client DynamoAPI, table string) *DynamoKV {
	return &DynamoKV{client: client, table: table, now: time.Now}
}

func (d *DynamoKV) Get(ctx context.Context, key string) ([]byte, error) {
	pk, err := attributevalue.Marshal("KV#" + key)
	if err != nil {
		return nil, err
	}
	sk, err := attributevalue.Marshal(dynamoSortKey)
	if err != nil {
		return nil, err
	}
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key:       map[string]types.AttributeValue{"PK": pk, "SK": sk},
	})
	if err != nil {
		return nil, fmt.Errorf("getting item from DynamoDB: %w", err)
	}
	if len(result.Item) == 0 {
		return nil, ErrNotFound
	}

	var item DynamoDBItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshaling item: %w", err)
	}
	return []byte(item.Data), nil
}

func (d *DynamoKV) Set(ctx context.Context, key string, value []byte) error {
	item := DynamoDBItem{
		PK:        "KV#" + key,
		SK:        dynamoSortKey,
		Data:      string(value),
		Timestamp: d.now().UTC().Format(time.RFC3339),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshaling item: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting item to DynamoDB: %w", err)
	}
	return nil
}

func (d *DynamoKV) Close() error { return nil }

// S3Inbox lists report exports dropped into a bucket prefix.
type S3Inbox struct {
	client   S3API
	bucket   string
	prefix   string
	maxFiles int
}

func NewS3Inbox(client S3API, bucket, prefix string, maxFiles int) *S3Inbox {
	return &S3Inbox{client: client, bucket: bucket, prefix: prefix, maxFiles: maxFiles}
}

// NewS3InboxFromConfig builds the inbox with a client from the default
// credential chain.
func NewS3InboxFromConfig(ctx context.Context, bucket, prefix, region string, maxFiles int) (*S3Inbox, error) {
	cfg, err := loadAWSConfig(ctx, region, "", "", "")
	if err != nil {
		return nil, err
	}
	return NewS3Inbox(s3.NewFromConfig(cfg), bucket, prefix, maxFiles), nil
}

// Files returns lazily fetched handles for every object with a report
// extension. Object bodies are read when the processor opens them.
func (in *S3Inbox) Files(ctx context.Context) ([]ingest.File, error) {
	var files []ingest.File
	paginator := s3.NewListObjectsV2Paginator(in.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(in.bucket),
		Prefix: aws.String(in.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing s3://%s/%s: %w", in.bucket, in.prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !sheetio.Known(sheetio.Ext(key)) {
				continue
			}
			files = append(files, &s3File{
				ctx:    ctx,
				client: in.client,
				bucket: in.bucket,
				key:    key,
				etag:   aws.ToString(obj.ETag),
			})
			if in.maxFiles > 0 && len(files) >= in.maxFiles {
				return files, nil
			}
		}
	}
	return files, nil
}

type s3File struct {
	ctx    context.Context
	client S3API
	bucket string
	key    string
	etag   string
}

func (f *s3File) Name() string { return path.Base(f.key) }

// Version identifies this revision of the object; it changes when the
// object is overwritten.
func (f *s3File) Version() string {
	if f.etag == "" {
		return ""
	}
	return f.key + "@" + f.etag
}

func (f *s3File) Open() (io.ReadCloser, error) {
	result, err := f.client.GetObject(f.ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting s3://%s/%s: %w", f.bucket, f.key, err)
	}
	return result.Body, nil
}
