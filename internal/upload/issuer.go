package upload

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/google/uuid"

	"github.com/marcogenualdo/upload-gate/internal/auth"
	"github.com/marcogenualdo/upload-gate/internal/config"
)

const expirationLayout = "2006-01-02T15:04:05Z"

var ErrNoIdentity = errors.New("upload credentials require a verified identity")

// Policy is an S3 browser-upload policy document.
type Policy struct {
	Expiration time.Time
	Conditions []any
}

func (p Policy) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Expiration string `json:"expiration"`
		Conditions []any  `json:"conditions"`
	}{
		Expiration: p.Expiration.UTC().Format(expirationLayout),
		Conditions: p.Conditions,
	})
}

// Form holds everything the browser's multipart POST to the bucket needs.
// Field values must be submitted verbatim.
type Form struct {
	Action        string
	Bucket        string
	Redirect      string
	Key           string
	KeyPrefix     string
	Policy        string
	Signature     string
	AccessKey     string
	SecurityToken string
	Expiration    time.Time
	MinSize       int64
	MaxSize       int64
}

// Issuer signs upload policies confined to one caller's key prefix.
type Issuer struct {
	bucket      string
	keyRoot     string
	window      time.Duration
	minSize     int64
	maxSize     int64
	action      string
	credentials aws.CredentialsProvider
	now         func() time.Time
}

func NewIssuer(cfg config.StorageConfig, credentials aws.CredentialsProvider) *Issuer {
	action := cfg.EndpointURL
	if action == "" {
		action = fmt.Sprintf("https://%s.s3.amazonaws.com/", cfg.Bucket)
	}

	return &Issuer{
		bucket:      cfg.Bucket,
		keyRoot:     strings.Trim(cfg.KeyRoot, "/"),
		window:      cfg.Window,
		minSize:     cfg.MinSize,
		maxSize:     cfg.MaxSize,
		action:      action,
		credentials: credentials,
		now:         time.Now,
	}
}

func (i *Issuer) Issue(ctx context.Context, identity *auth.Identity, redirectURL string) (*Form, error) {
	if identity == nil || identity.Login == "" {
		return nil, ErrNoIdentity
	}

	creds, err := i.credentials.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve storage credentials: %w", err)
	}

	prefix := i.keyPrefix(identity.Login)
	expires := i.now().Add(i.window).UTC().Truncate(time.Second)

	policy := Policy{
		Expiration: expires,
		Conditions: []any{
			map[string]string{"bucket": i.bucket},
			[]any{"starts-with", "$key", prefix},
			map[string]string{"success_action_redirect": redirectURL},
			[]any{"content-length-range", i.minSize, i.maxSize},
		},
	}
	if creds.SessionToken != "" {
		policy.Conditions = append(policy.Conditions, map[string]string{"x-amz-security-token": creds.SessionToken})
	}

	doc, err := json.Marshal(policy)
	if err != nil {
		return nil, fmt.Errorf("failed to encode policy: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(doc)

	return &Form{
		Action:        i.action,
		Bucket:        i.bucket,
		Redirect:      redirectURL,
		Key:           prefix + "${filename}",
		KeyPrefix:     prefix,
		Policy:        encoded,
		Signature:     sign(creds.SecretAccessKey, encoded),
		AccessKey:     creds.AccessKeyID,
		SecurityToken: creds.SessionToken,
		Expiration:    expires,
		MinSize:       i.minSize,
		MaxSize:       i.maxSize,
	}, nil
}

// keyPrefix embeds the login and a random segment so two uploads never share
// a prefix, even for the same user.
func (i *Issuer) keyPrefix(login string) string {
	random := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("%s/%s/%s/", i.keyRoot, login, random)
}

func sign(secret, encodedPolicy string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(encodedPolicy))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
