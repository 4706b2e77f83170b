// Package kmsutil encrypts and decrypts keys with KMS, exchanging ciphertext as base 64 text.
package kmsutil

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/apex/log"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/pkg/errors"
)

// API is the part of the KMS client used here. Both *kms.Client and *awsmock.KMS implement it.
type API interface {
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// EncryptKey encrypts plaintext with the given key (a key ID, key ARN, alias name or alias ARN)
// and returns the ciphertext in base 64. A nil logger means log.Log.
func EncryptKey(ctx context.Context, api API, keyID, plaintext string, logger log.Interface) (string, error) {
	if logger == nil {
		logger = log.Log
	}
	start := time.Now()
	out, err := api.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     aws.String(keyID),
		Plaintext: []byte(plaintext),
	})
	took := time.Since(start)
	if err != nil {
		logger.WithDuration(took).WithError(err).Errorf("KMS encrypt took %d ms", took.Milliseconds())
		return "", err
	}
	logger.WithDuration(took).Infof("KMS encrypt took %d ms", took.Milliseconds())
	return base64.StdEncoding.EncodeToString(out.CiphertextBlob), nil
}

// DecryptKey decrypts the given base 64 ciphertext and returns the plaintext. A nil logger means
// log.Log.
func DecryptKey(ctx context.Context, api API, ciphertextBase64 string, logger log.Interface) (string, error) {
	if logger == nil {
		logger = log.Log
	}
	blob, err := base64.StdEncoding.DecodeString(ciphertextBase64)
	if err != nil {
		logger.WithError(err).Error("KMS decrypt given malformed ciphertext")
		return "", errors.Wrap(err, "ciphertext is not base 64")
	}
	start := time.Now()
	out, err := api.Decrypt(ctx, &kms.DecryptInput{CiphertextBlob: blob})
	took := time.Since(start)
	if err != nil {
		logger.WithDuration(took).WithError(err).Errorf("KMS decrypt failure took %d ms", took.Milliseconds())
		return "", err
	}
	logger.WithDuration(took).Infof("KMS decrypt success took %d ms", took.Milliseconds())
	return string(out.Plaintext), nil
}
