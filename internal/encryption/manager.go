package encryption

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"nurseconnect-registration/internal/config"
	"nurseconnect-registration/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"go.uber.org/zap"
)

var (
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")
)

const localKeyID = "local"

// dataKeyLifetime bounds how long one data key encrypts new values before a
// fresh one is requested.
const dataKeyLifetime = time.Hour

// KMSAPI is the subset of the AWS KMS client the manager needs.
type KMSAPI interface {
	GenerateDataKey(ctx context.Context, params *kms.GenerateDataKeyInput, optFns ...func(*kms.Options)) (*kms.GenerateDataKeyOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// EncryptedData is the envelope persisted alongside the ciphertext.
type EncryptedData struct {
	EncryptedValue string    `json:"encrypted_value"`
	EncryptedDEK   string    `json:"encrypted_dek"`
	KeyID          string    `json:"key_id"`
	Version        string    `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
}

type DataKey struct {
	Plaintext  []byte
	Ciphertext []byte
	KeyID      string
	issuedAt   time.Time
}

// EncryptionManager performs envelope encryption: values are sealed with a
// per-purpose AES-256-GCM data key, and the data key itself is wrapped either by
// KMS or, when KMS is disabled, by a master key derived from SECRET_KEY.
type EncryptionManager struct {
	kmsClient KMSAPI
	config    *config.Config
	masterKey []byte
	keyCache  sync.Map
	mu        sync.Mutex
	current   map[string]*DataKey
	now       func() time.Time
}

func NewEncryptionManager(cfg *config.Config, kmsClient KMSAPI) *EncryptionManager {
	master := sha256.Sum256([]byte("nurseconnect-session:" + cfg.SecretKey))
	return &EncryptionManager{
		kmsClient: kmsClient,
		config:    cfg,
		masterKey: master[:],
		current:   make(map[string]*DataKey),
		now:       time.Now,
	}
}

func (em *EncryptionManager) kmsEnabled() bool {
	return em.config.KMS.Enabled && em.kmsClient != nil
}

// GenerateDataKey returns the live data key for keyPurpose, requesting a new
// one once the current key is older than an hour.
func (em *EncryptionManager) GenerateDataKey(ctx context.Context, keyPurpose string) (*DataKey, error) {
	em.mu.Lock()
	defer em.mu.Unlock()

	if dk, ok := em.current[keyPurpose]; ok && em.now().Sub(dk.issuedAt) < dataKeyLifetime {
		return dk, nil
	}

	var (
		dk  *DataKey
		err error
	)
	if em.kmsEnabled() {
		dk, err = em.generateKMSKey(ctx)
	} else {
		dk, err = em.generateLocalKey()
	}
	if err != nil {
		return nil, err
	}

	dk.issuedAt = em.now()
	em.current[keyPurpose] = dk
	em.keyCache.Store(base64.StdEncoding.EncodeToString(dk.Ciphertext), dk.Plaintext)

	util.Debug("Data key issued",
		zap.String("key_purpose", keyPurpose),
		zap.String("key_id", dk.KeyID),
	)
	return dk, nil
}

func (em *EncryptionManager) generateKMSKey(ctx context.Context) (*DataKey, error) {
	result, err := em.kmsClient.GenerateDataKey(ctx, &kms.GenerateDataKeyInput{
		KeyId:   aws.String(em.config.KMS.KeyID),
		KeySpec: types.DataKeySpecAes256,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate data key: %w", err)
	}

	return &DataKey{
		Plaintext:  result.Plaintext,
		Ciphertext: result.CiphertextBlob,
		KeyID:      em.config.KMS.KeyID,
	}, nil
}

func (em *EncryptionManager) generateLocalKey() (*DataKey, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate local data key: %w", err)
	}

	wrapped, err := seal(em.masterKey, key, []byte(localKeyID))
	if err != nil {
		return nil, err
	}

	return &DataKey{
		Plaintext:  key,
		Ciphertext: wrapped,
		KeyID:      localKeyID,
	}, nil
}

// EncryptField seals plaintext, binding it to keyPurpose.
func (em *EncryptionManager) EncryptField(ctx context.Context, plaintext []byte, keyPurpose string) (*EncryptedData, error) {
	dataKey, err := em.GenerateDataKey(ctx, keyPurpose)
	if err != nil {
		return nil, err
	}

	ciphertext, err := seal(dataKey.Plaintext, plaintext, []byte(keyPurpose))
	if err != nil {
		return nil, err
	}

	return &EncryptedData{
		EncryptedValue: base64.StdEncoding.EncodeToString(ciphertext),
		EncryptedDEK:   base64.StdEncoding.EncodeToString(dataKey.Ciphertext),
		KeyID:          dataKey.KeyID,
		Version:        "v1",
		CreatedAt:      em.now().UTC(),
	}, nil
}

// DecryptField reverses EncryptField. keyPurpose must match the one used to
// encrypt.
func (em *EncryptionManager) DecryptField(ctx context.Context, encryptedData *EncryptedData, keyPurpose string) ([]byte, error) {
	key, err := em.unwrapDEK(ctx, encryptedData)
	if err != nil {
		return nil, err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encryptedData.EncryptedValue)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ciphertext format", ErrDecryptionFailed)
	}
	return open(key, ciphertext, []byte(keyPurpose))
}

func (em *EncryptionManager) unwrapDEK(ctx context.Context, encryptedData *EncryptedData) ([]byte, error) {
	if cached, ok := em.keyCache.Load(encryptedData.EncryptedDEK); ok {
		return cached.([]byte), nil
	}

	blob, err := base64.StdEncoding.DecodeString(encryptedData.EncryptedDEK)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid DEK format", ErrDecryptionFailed)
	}

	var plaintextDEK []byte
	if encryptedData.KeyID == localKeyID {
		plaintextDEK, err = open(em.masterKey, blob, []byte(localKeyID))
		if err != nil {
			return nil, err
		}
	} else {
		if !em.kmsEnabled() {
			return nil, fmt.Errorf("%w: kms key %s but kms is disabled", ErrDecryptionFailed, encryptedData.KeyID)
		}
		result, err := em.kmsClient.Decrypt(ctx, &kms.DecryptInput{CiphertextBlob: blob})
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decrypt DEK: %v", ErrDecryptionFailed, err)
		}
		plaintextDEK = result.Plaintext
	}

	em.keyCache.Store(encryptedData.EncryptedDEK, plaintextDEK)
	return plaintextDEK, nil
}

// Seal encrypts plaintext and returns the JSON envelope.
func (em *EncryptionManager) Seal(ctx context.Context, plaintext []byte, keyPurpose string) ([]byte, error) {
	data, err := em.EncryptField(ctx, plaintext, keyPurpose)
	if err != nil {
		return nil, err
	}
	return json.Marshal(data)
}

// Open decodes a JSON envelope produced by Seal.
func (em *EncryptionManager) Open(ctx context.Context, envelope []byte, keyPurpose string) ([]byte, error) {
	var data EncryptedData
	if err := json.Unmarshal(envelope, &data); err != nil {
		return nil, fmt.Errorf("%w: invalid envelope: %v", ErrDecryptionFailed, err)
	}
	return em.DecryptField(ctx, &data, keyPurpose)
}

// ClearCache drops cached data keys, forcing a new key for the next write.
func (em *EncryptionManager) ClearCache() {
	em.keyCache.Range(func(key, _ interface{}) bool {
		em.keyCache.Delete(key)
		return true
	})
	em.mu.Lock()
	em.current = make(map[string]*DataKey)
	em.mu.Unlock()
}

func (em *EncryptionManager) GetCacheSize() int {
	count := 0
	em.keyCache.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

func seal(key, plaintext, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	return gcm.Seal(nonce, nonce, plaintext, aad), nil
}

func open(key, ciphertext, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
