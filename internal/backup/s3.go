package backup

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path"
	"strings"
)

const defaultS3Region = "us-east-1"

// S3Config identifies the bucket and credentials for snapshot uploads.
// BucketURL takes the form s3://bucket[/prefix].
type S3Config struct {
	BucketURL    string
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	SessionToken string
	UseSSL       bool
}

// S3Uploader shells out to `aws s3 cp` with static credentials in the
// child environment, which keeps the Go side free of an SDK.
type S3Uploader struct {
	bucket string
	prefix string
	conf   S3Config
}

// NewS3Uploader parses the bucket URL and verifies credentials and the
// aws binary are present before any upload is attempted.
func NewS3Uploader(conf S3Config) (*S3Uploader, error) {
	bucket, prefix, err := parseBucketURL(conf.BucketURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(conf.AccessKey) == "" || strings.TrimSpace(conf.SecretKey) == "" {
		return nil, fmt.Errorf("s3: uploads need both an access key and a secret key")
	}
	if _, err := exec.LookPath("aws"); err != nil {
		return nil, fmt.Errorf("s3: no aws binary on PATH: %w", err)
	}
	if strings.TrimSpace(conf.Region) == "" {
		conf.Region = defaultS3Region
	}
	return &S3Uploader{bucket: bucket, prefix: prefix, conf: conf}, nil
}

// Upload copies localPath under the configured bucket and prefix.
func (u *S3Uploader) Upload(ctx context.Context, localPath string) error {
	key := path.Base(localPath)
	if u.prefix != "" {
		key = path.Join(u.prefix, key)
	}

	args := []string{
		"s3", "cp", localPath, fmt.Sprintf("s3://%s/%s", u.bucket, key),
		"--region", u.conf.Region,
		"--only-show-errors",
	}
	if ep := endpointURL(u.conf.Endpoint, u.conf.UseSSL); ep != "" {
		args = append(args, "--endpoint-url", ep)
	}

	cmd := exec.CommandContext(ctx, "aws", args...)
	cmd.Env = append(os.Environ(),
		"AWS_ACCESS_KEY_ID="+u.conf.AccessKey,
		"AWS_SECRET_ACCESS_KEY="+u.conf.SecretKey,
		"AWS_DEFAULT_REGION="+u.conf.Region,
	)
	if strings.TrimSpace(u.conf.SessionToken) != "" {
		cmd.Env = append(cmd.Env, "AWS_SESSION_TOKEN="+u.conf.SessionToken)
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("s3: aws s3 cp: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// endpointURL turns a bare host into a URL, honoring UseSSL; explicit
// schemes pass through untouched.
func endpointURL(raw string, useSSL bool) string {
	ep := strings.TrimSpace(raw)
	switch {
	case ep == "":
		return ""
	case strings.HasPrefix(ep, "http://"), strings.HasPrefix(ep, "https://"):
		return ep
	case useSSL:
		return "https://" + ep
	default:
		return "http://" + ep
	}
}

func parseBucketURL(rawURL string) (bucket, prefix string, err error) {
	loc, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", "", fmt.Errorf("s3: bucket-url %q: %w", rawURL, err)
	}
	if loc.Scheme != "s3" {
		return "", "", fmt.Errorf("s3: bucket-url must use the s3:// scheme, got %q", rawURL)
	}
	if strings.TrimSpace(loc.Host) == "" {
		return "", "", fmt.Errorf("s3: bucket-url %q has no bucket name", rawURL)
	}
	return loc.Host, strings.Trim(strings.TrimSpace(loc.Path), "/"), nil
}
