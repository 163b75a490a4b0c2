package upload

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/marcogenualdo/upload-gate/internal/auth"
	"github.com/marcogenualdo/upload-gate/internal/config"
)

const (
	testBucket   = "data.example.com"
	testRedirect = "https://gate.example.com/upload-cache"
	maxSize      = 600 * 1024 * 1024
)

func testIssuer(sessionToken string) *Issuer {
	return NewIssuer(config.StorageConfig{
		Bucket:  testBucket,
		KeyRoot: "cache/uploads",
		Window:  5 * time.Minute,
		MinSize: 16,
		MaxSize: maxSize,
	}, credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "wJalrXUtnFEMI/K7MDENG", sessionToken))
}

func decodePolicy(t *testing.T, form *Form) gjson.Result {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(form.Policy)
	require.NoError(t, err)
	require.True(t, gjson.ValidBytes(raw))
	return gjson.ParseBytes(raw)
}

func TestIssue_AliceScenario(t *testing.T) {
	form, err := testIssuer("").Issue(context.Background(), &auth.Identity{Login: "alice"}, testRedirect)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(form.KeyPrefix, "cache/uploads/alice/"))
	assert.Equal(t, form.KeyPrefix+"${filename}", form.Key)
	assert.EqualValues(t, maxSize, form.MaxSize)
	assert.Equal(t, testBucket, form.Bucket)
	assert.Equal(t, testRedirect, form.Redirect)
	assert.Equal(t, "AKIDEXAMPLE", form.AccessKey)
	assert.Empty(t, form.SecurityToken)
	assert.Equal(t, "https://data.example.com.s3.amazonaws.com/", form.Action)

	policy := decodePolicy(t, form)
	conditions := policy.Get("conditions").Array()
	require.Len(t, conditions, 4)
	assert.Equal(t, testBucket, conditions[0].Get("bucket").String())
	assert.Equal(t, []string{"starts-with", "$key", form.KeyPrefix}, stringsOf(conditions[1]))
	assert.Equal(t, testRedirect, conditions[2].Get("success_action_redirect").String())
	assert.Equal(t, "content-length-range", conditions[3].Array()[0].String())
	assert.EqualValues(t, 16, conditions[3].Array()[1].Int())
	assert.EqualValues(t, maxSize, conditions[3].Array()[2].Int())
}

func TestIssue_SegmentIsHex(t *testing.T) {
	form, err := testIssuer("").Issue(context.Background(), &auth.Identity{Login: "alice"}, testRedirect)
	require.NoError(t, err)

	parts := strings.Split(strings.TrimSuffix(form.KeyPrefix, "/"), "/")
	require.Len(t, parts, 4)
	assert.Regexp(t, `^[0-9a-f]{32}$`, parts[3])
}

func TestIssue_SignatureCoversEncodedPolicy(t *testing.T) {
	form, err := testIssuer("").Issue(context.Background(), &auth.Identity{Login: "alice"}, testRedirect)
	require.NoError(t, err)

	mac := hmac.New(sha1.New, []byte("wJalrXUtnFEMI/K7MDENG"))
	mac.Write([]byte(form.Policy))
	assert.Equal(t, base64.StdEncoding.EncodeToString(mac.Sum(nil)), form.Signature)
}

func TestIssue_SessionTokenAddsCondition(t *testing.T) {
	form, err := testIssuer("FQoGZXIvYXdzEXAMPLE").Issue(context.Background(), &auth.Identity{Login: "alice"}, testRedirect)
	require.NoError(t, err)

	assert.Equal(t, "FQoGZXIvYXdzEXAMPLE", form.SecurityToken)
	conditions := decodePolicy(t, form).Get("conditions").Array()
	require.Len(t, conditions, 5)
	assert.Equal(t, "FQoGZXIvYXdzEXAMPLE", conditions[4].Get("x-amz-security-token").String())
}

func TestIssue_ExpirationWithinWindow(t *testing.T) {
	issuer := testIssuer("")

	for i := 0; i < 20; i++ {
		before := time.Now().UTC().Truncate(time.Second)
		form, err := issuer.Issue(context.Background(), &auth.Identity{Login: "alice"}, testRedirect)
		require.NoError(t, err)
		after := time.Now().UTC()

		assert.False(t, form.Expiration.Before(before))
		assert.False(t, form.Expiration.After(after.Add(5*time.Minute)))

		expiration := decodePolicy(t, form).Get("expiration").String()
		assert.Equal(t, form.Expiration.Format(expirationLayout), expiration)
	}
}

func TestIssue_FixedClockExpiration(t *testing.T) {
	issuer := testIssuer("")
	issuer.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 500, time.UTC) }

	form, err := issuer.Issue(context.Background(), &auth.Identity{Login: "alice"}, testRedirect)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T12:05:00Z", decodePolicy(t, form).Get("expiration").String())
}

func TestIssue_PrefixesNeverCollide(t *testing.T) {
	issuer := testIssuer("")
	seen := make(map[string]struct{})

	for i := 0; i < 500; i++ {
		for _, login := range []string{"alice", "bob"} {
			form, err := issuer.Issue(context.Background(), &auth.Identity{Login: login}, testRedirect)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(form.KeyPrefix, "cache/uploads/"+login+"/"))

			_, dup := seen[form.KeyPrefix]
			require.False(t, dup, "prefix %s issued twice", form.KeyPrefix)
			seen[form.KeyPrefix] = struct{}{}
		}
	}
}

func TestIssue_RequiresIdentity(t *testing.T) {
	_, err := testIssuer("").Issue(context.Background(), nil, testRedirect)
	require.ErrorIs(t, err, ErrNoIdentity)

	_, err = testIssuer("").Issue(context.Background(), &auth.Identity{}, testRedirect)
	require.ErrorIs(t, err, ErrNoIdentity)
}

func stringsOf(r gjson.Result) []string {
	var out []string
	for _, v := range r.Array() {
		out = append(out, v.String())
	}
	return out
}
