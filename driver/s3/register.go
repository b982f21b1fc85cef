package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/gobeaver/cowkit"
)

func init() {
	cowkit.RegisterDriver("s3", createS3FileSystem)
}

func createS3FileSystem(cfg *cowkit.DriverConfig) (cowkit.FileSystem, error) {
	if cfg.S3Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	s3Client, err := createS3Client(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return New(s3Client, cfg.S3Bucket, adapterOptions(cfg)...), nil
}

func adapterOptions(cfg *cowkit.DriverConfig) []AdapterOption {
	var opts []AdapterOption
	if cfg.S3Prefix != "" {
		opts = append(opts, WithPrefix(cfg.S3Prefix))
	}
	if cfg.S3PublicURL != "" {
		opts = append(opts, WithPublicURL(cfg.S3PublicURL))
	}
	return opts
}

// createS3Client creates an S3 client from config
func createS3Client(cfg *cowkit.DriverConfig) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.S3Region),
	)
	if err != nil {
		return nil, err
	}

	// Override with explicit credentials if provided
	if cfg.S3AccessKeyID != "" && cfg.S3SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)
	}

	return s3.NewFromConfig(awsCfg, clientOptions(cfg)), nil
}

func clientOptions(cfg *cowkit.DriverConfig) func(*s3.Options) {
	return func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		if cfg.S3ForcePathStyle {
			o.UsePathStyle = true
		}
	}
}
