package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/marcogenualdo/upload-gate/internal/auth/github"
	"github.com/marcogenualdo/upload-gate/internal/cache"
	"github.com/marcogenualdo/upload-gate/internal/config"
	"github.com/marcogenualdo/upload-gate/internal/logging"
	"github.com/marcogenualdo/upload-gate/internal/server"
	"github.com/marcogenualdo/upload-gate/internal/upload"
)

const version = "1.0.0"

const defaultConfigPath = "/etc/upload-gate/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	configPathShort := flag.String("c", defaultConfigPath, "path to configuration file (short)")
	showVersion := flag.Bool("version", false, "show version and exit")
	showHelp := flag.Bool("help", false, "show help and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("upload-gate v%s\n", version)
		os.Exit(0)
	}

	if *showHelp {
		fmt.Println("upload-gate - GitHub organization login and direct S3 uploads")
		fmt.Println("\nUsage:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfgPath := *configPath
	if *configPathShort != defaultConfigPath {
		cfgPath = *configPathShort
	}

	if err := run(cfgPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Storage.Region))
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	var notifier *logging.Notifier
	if cfg.Logging.SNSTopicARN != "" {
		notifier = logging.NewNotifier(sns.NewFromConfig(awsCfg), cfg.Logging.SNSTopicARN)
		defer notifier.Close()
	}

	logger := logging.NewLogger(cfg.Logging, os.Stdout, notifier)
	logger.Info("starting upload-gate", "version", version)

	cacheInstance, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}
	logger.Info("cache initialized", "type", cfg.Cache.Type)

	provider := github.NewProvider(cfg.GitHub)
	logger.Info("provider initialized", "name", provider.Name(), "org", cfg.GitHub.Org)

	issuer := upload.NewIssuer(cfg.Storage, awsCfg.Credentials)
	logger.Info("upload issuer initialized", "bucket", cfg.Storage.Bucket, "key_root", cfg.Storage.KeyRoot)

	srv, err := server.New(*cfg, cacheInstance, provider, issuer, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
