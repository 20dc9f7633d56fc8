package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
)

type config struct {
	DBPath     string
	Addr       string
	LogPath    string
	Debug      bool
	ClaimRate  float64
	ClaimBurst int

	S3Bucket    string
	S3Endpoint  string
	S3Region    string
	S3Prefix    string
	S3AccessKey string
	S3SecretKey string
}

const usage = `Usage: najdeno [flags]

Flags:
  -d, -db <path>           SQLite database path (default: najdeno.sqlite3)
  -a, -addr <host:port>    listen address (default: :8080)
  -l, -log <path>          log file path (default: stdout/stderr only)
  -v, -verbose             log debug messages
  -claim-rate <n>          claim submissions per user per minute (default: 10)
  -claim-burst <n>         claim submission burst (default: 5)
  -s3-bucket <name>        store proof photos in this bucket instead of SQLite
  -s3-endpoint <url>       S3-compatible endpoint (MinIO, Spaces)
  -s3-region <region>      bucket region (default: us-east-1)
  -s3-prefix <prefix>      key prefix inside the bucket
  -h, -help                show this help and exit

Every flag can also be set in the environment or a .env file as NAJDENO_<FLAG>,
for example NAJDENO_DB or NAJDENO_S3_BUCKET. NAJDENO_S3_ACCESS_KEY and
NAJDENO_S3_SECRET_KEY set static bucket credentials; without them the default
AWS credential chain is used.
`

// parseConfig reads flags from args. Environment values become the flag
// defaults, so an explicit flag always wins.
func parseConfig(args []string, getenv func(string) string, out io.Writer) (config, error) {
	env := func(key, fallback string) string {
		if v := getenv("NAJDENO_" + key); v != "" {
			return v
		}
		return fallback
	}

	var cfg config
	fs := flag.NewFlagSet("najdeno", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { fmt.Fprint(out, usage) }

	dbPath := env("DB", "najdeno.sqlite3")
	fs.StringVar(&cfg.DBPath, "db", dbPath, "")
	fs.StringVar(&cfg.DBPath, "d", dbPath, "")

	addr := env("ADDR", ":8080")
	fs.StringVar(&cfg.Addr, "addr", addr, "")
	fs.StringVar(&cfg.Addr, "a", addr, "")

	logPath := env("LOG", "")
	fs.StringVar(&cfg.LogPath, "log", logPath, "")
	fs.StringVar(&cfg.LogPath, "l", logPath, "")

	debug := env("VERBOSE", "") != ""
	fs.BoolVar(&cfg.Debug, "verbose", debug, "")
	fs.BoolVar(&cfg.Debug, "v", debug, "")

	rate, err := strconv.ParseFloat(env("CLAIM_RATE", "10"), 64)
	if err != nil {
		return cfg, fmt.Errorf("NAJDENO_CLAIM_RATE: %w", err)
	}
	fs.Float64Var(&cfg.ClaimRate, "claim-rate", rate, "")

	burst, err := strconv.Atoi(env("CLAIM_BURST", "5"))
	if err != nil {
		return cfg, fmt.Errorf("NAJDENO_CLAIM_BURST: %w", err)
	}
	fs.IntVar(&cfg.ClaimBurst, "claim-burst", burst, "")

	fs.StringVar(&cfg.S3Bucket, "s3-bucket", env("S3_BUCKET", ""), "")
	fs.StringVar(&cfg.S3Endpoint, "s3-endpoint", env("S3_ENDPOINT", ""), "")
	fs.StringVar(&cfg.S3Region, "s3-region", env("S3_REGION", "us-east-1"), "")
	fs.StringVar(&cfg.S3Prefix, "s3-prefix", env("S3_PREFIX", ""), "")
	cfg.S3AccessKey = env("S3_ACCESS_KEY", "")
	cfg.S3SecretKey = env("S3_SECRET_KEY", "")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		return cfg, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	if cfg.ClaimRate <= 0 || cfg.ClaimBurst <= 0 {
		return cfg, fmt.Errorf("claim rate and burst must be positive")
	}
	return cfg, nil
}
