package encryption

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nurseconnect-registration/internal/config"
)

type fakeKMS struct {
	generated int
	decrypted int
}

func (f *fakeKMS) GenerateDataKey(ctx context.Context, params *kms.GenerateDataKeyInput, optFns ...func(*kms.Options)) (*kms.GenerateDataKeyOutput, error) {
	f.generated++
	key := make([]byte, 32)
	key[0] = byte(f.generated)
	return &kms.GenerateDataKeyOutput{
		Plaintext:      key,
		CiphertextBlob: append([]byte("wrapped:"), key...),
		KeyId:          params.KeyId,
	}, nil
}

func (f *fakeKMS) Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error) {
	f.decrypted++
	return &kms.DecryptOutput{Plaintext: params.CiphertextBlob[len("wrapped:"):]}, nil
}

func TestLocalSealOpen(t *testing.T) {
	em := NewEncryptionManager(&config.Config{SecretKey: "s3cret"}, nil)
	ctx := context.Background()

	envelope, err := em.Seal(ctx, []byte(`{"msisdn":"+27820001001"}`), "session")
	require.NoError(t, err)
	assert.NotContains(t, string(envelope), "27820001001")

	plain, err := em.Open(ctx, envelope, "session")
	require.NoError(t, err)
	assert.Equal(t, `{"msisdn":"+27820001001"}`, string(plain))

	_, err = em.Open(ctx, envelope, "other-purpose")
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestLocalKeySurvivesCacheClear(t *testing.T) {
	em := NewEncryptionManager(&config.Config{SecretKey: "s3cret"}, nil)
	ctx := context.Background()

	envelope, err := em.Seal(ctx, []byte("persal"), "session")
	require.NoError(t, err)

	em.ClearCache()
	assert.Equal(t, 0, em.GetCacheSize())

	plain, err := em.Open(ctx, envelope, "session")
	require.NoError(t, err)
	assert.Equal(t, "persal", string(plain))

	other := NewEncryptionManager(&config.Config{SecretKey: "different"}, nil)
	_, err = other.Open(ctx, envelope, "session")
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestKMSDataKeyReuseAndRotation(t *testing.T) {
	fk := &fakeKMS{}
	cfg := &config.Config{KMS: config.KMSConfig{Enabled: true, KeyID: "alias/nurseconnect"}}
	em := NewEncryptionManager(cfg, fk)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	em.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := em.Seal(ctx, []byte("a"), "session")
	require.NoError(t, err)
	_, err = em.Seal(ctx, []byte("b"), "session")
	require.NoError(t, err)
	assert.Equal(t, 1, fk.generated)

	now = now.Add(2 * time.Hour)
	envelope, err := em.Seal(ctx, []byte("c"), "session")
	require.NoError(t, err)
	assert.Equal(t, 2, fk.generated)

	em.ClearCache()
	plain, err := em.Open(ctx, envelope, "session")
	require.NoError(t, err)
	assert.Equal(t, "c", string(plain))
	assert.Equal(t, 1, fk.decrypted)
}
