// Command backup dumps the warehouse schema, uploads it gzipped to S3 and
// deletes the oldest dumps beyond KEEP_BACKUPS.
package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

const keyPrefix = "warehouse/"

type BackupConfig struct {
	DBHost          string `envconfig:"DB_HOST" required:"true"`
	DBPort          int    `envconfig:"DB_PORT" default:"5432"`
	DBUser          string `envconfig:"DB_USER" required:"true"`
	DBPassword      string `envconfig:"DB_PASSWORD"`
	DBName          string `envconfig:"DB_NAME" required:"true"`
	WarehouseSchema string `envconfig:"WAREHOUSE_SCHEMA" default:"dw"`
	BackupBucket    string `envconfig:"BACKUP_S3_BUCKET" required:"true"`
	BackupEndpoint  string `envconfig:"BACKUP_S3_ENDPOINT" required:"true"`
	BackupAccessKey string `envconfig:"BACKUP_S3_ACCESS_KEY" required:"true"`
	BackupSecretKey string `envconfig:"BACKUP_S3_SECRET_KEY" required:"true"`
	BackupRegion    string `envconfig:"BACKUP_S3_REGION" default:"us-east-1"`
	KeepBackups     int    `envconfig:"KEEP_BACKUPS" default:"4"`
}

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	_ = godotenv.Load()
	var cfg BackupConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal("Failed to load backup configuration", zap.Error(err))
	}

	ctx := context.Background()
	dump, err := createDump(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to dump warehouse schema", zap.Error(err))
	}

	client, err := createS3Client(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to create S3 client", zap.Error(err))
	}

	key := backupKey(cfg.WarehouseSchema, time.Now())
	if _, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(cfg.BackupBucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(dump),
	}); err != nil {
		log.Fatal("Failed to upload backup", zap.String("key", key), zap.Error(err))
	}
	log.Info("Backup uploaded", zap.String("bucket", cfg.BackupBucket), zap.String("key", key), zap.Int("bytes", len(dump)))

	if err := rotateBackups(ctx, client, cfg, log); err != nil {
		log.Fatal("Failed to rotate old backups", zap.Error(err))
	}
}

func backupKey(schema string, now time.Time) string {
	return fmt.Sprintf("%s%s-%s.sql.gz", keyPrefix, schema, now.UTC().Format("2006-01-02T15-04-05Z"))
}

func dumpArgs(cfg BackupConfig) []string {
	return []string{
		"-h", cfg.DBHost,
		"-p", fmt.Sprint(cfg.DBPort),
		"-U", cfg.DBUser,
		"-d", cfg.DBName,
		"-n", cfg.WarehouseSchema,
		"-w",
	}
}

func createDump(ctx context.Context, cfg BackupConfig) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "pg_dump", dumpArgs(cfg)...)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+cfg.DBPassword)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := io.Copy(gz, stdout); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("pg_dump: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return buf.Bytes(), nil
}

func createS3Client(ctx context.Context, cfg BackupConfig) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{URL: cfg.BackupEndpoint, HostnameImmutable: true}, nil
	})
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.BackupAccessKey, cfg.BackupSecretKey, "")),
		config.WithRegion(cfg.BackupRegion),
	)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg), nil
}

// expired returns the objects beyond the newest keep ones.
func expired(objects []types.Object, keep int) []types.Object {
	if len(objects) <= keep {
		return nil
	}
	sorted := append([]types.Object(nil), objects...)
	sort.Slice(sorted, func(i, j int) bool {
		return aws.ToTime(sorted[i].LastModified).After(aws.ToTime(sorted[j].LastModified))
	})
	return sorted[keep:]
}

func rotateBackups(ctx context.Context, client *s3.Client, cfg BackupConfig, log *zap.Logger) error {
	out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(cfg.BackupBucket),
		Prefix: aws.String(keyPrefix),
	})
	if err != nil {
		return err
	}
	old := expired(out.Contents, cfg.KeepBackups)
	if len(old) == 0 {
		log.Info("No rotation needed", zap.Int("backups", len(out.Contents)), zap.Int("keep", cfg.KeepBackups))
		return nil
	}
	for _, obj := range old {
		key := aws.ToString(obj.Key)
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(cfg.BackupBucket),
			Key:    obj.Key,
		}); err != nil {
			log.Warn("Failed to delete old backup", zap.String("key", key), zap.Error(err))
			continue
		}
		log.Info("Deleted old backup", zap.String("key", key))
	}
	return nil
}
