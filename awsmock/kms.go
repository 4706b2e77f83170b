package awsmock

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/apex/log"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/pkg/errors"

	"github.com/Clever/awsmock/request"
)

// KMSOptions configures a mock KMS client
type KMSOptions struct {
	// DecryptErr, if set, is the error every decrypt fails with
	DecryptErr error
	// DecryptedPlaintext, if set, is the plaintext every decrypt returns. Otherwise decrypt
	// reverses the ciphertext.
	DecryptedPlaintext string
	// EncryptErr, if set, is the error every encrypt fails with
	EncryptErr error
	// EncryptedCiphertextBase64, if set, is the base 64 ciphertext every encrypt returns.
	// Otherwise encrypt reverses the plaintext.
	EncryptedCiphertextBase64 string
	// Delay is the simulated IO time of every call
	Delay time.Duration
	// Logger defaults to log.Log
	Logger log.Interface
}

// KMS is a mock KMS client that simulates Encrypt and Decrypt
type KMS struct {
	opts   KMSOptions
	logger log.Interface
}

// NewKMS creates a mock KMS client
func NewKMS(opts KMSOptions) *KMS {
	logger := opts.Logger
	if logger == nil {
		logger = log.Log
	}
	return &KMS{opts: opts, logger: logger}
}

// EncryptRequest simulates an encrypt call, returning a request that can be completed with the
// given callbacks, Send or Wait.
func (k *KMS) EncryptRequest(in *kms.EncryptInput, callbacks ...request.Callback[*kms.EncryptOutput]) *request.Request[*kms.EncryptOutput] {
	k.logger.WithField("params", preview(in, 22)).Info("Simulating KMS encrypt")

	deliver := func(context.Context) (*kms.EncryptOutput, error) {
		if k.opts.EncryptErr != nil {
			return nil, k.opts.EncryptErr
		}
		var blob []byte
		if k.opts.EncryptedCiphertextBase64 != "" {
			decoded, err := base64.StdEncoding.DecodeString(k.opts.EncryptedCiphertextBase64)
			if err != nil {
				return nil, errors.Wrap(err, "canned ciphertext is not base 64")
			}
			blob = decoded
		} else if in != nil {
			blob = simulateEncrypt(in.Plaintext)
		}
		out := &kms.EncryptOutput{CiphertextBlob: blob}
		if in != nil {
			out.KeyId = in.KeyId
		}
		return out, nil
	}
	return request.New(k.opts.Delay, deliver, callbacks...)
}

// DecryptRequest simulates a decrypt call, returning a request that can be completed with the
// given callbacks, Send or Wait.
func (k *KMS) DecryptRequest(in *kms.DecryptInput, callbacks ...request.Callback[*kms.DecryptOutput]) *request.Request[*kms.DecryptOutput] {
	k.logger.WithField("params", preview(in, 42)).Info("Simulating KMS decrypt")

	plaintext := k.opts.DecryptedPlaintext
	if plaintext == "" && in != nil {
		plaintext = simulateDecrypt(in.CiphertextBlob)
	}

	deliver := func(context.Context) (*kms.DecryptOutput, error) {
		if k.opts.DecryptErr != nil {
			return nil, k.opts.DecryptErr
		}
		out := &kms.DecryptOutput{Plaintext: []byte(plaintext)}
		if in != nil {
			out.KeyId = in.KeyId
		}
		return out, nil
	}
	return request.New(k.opts.Delay, deliver, callbacks...)
}

// Encrypt simulates encryption with the signature of the aws-sdk-go-v2 KMS client
func (k *KMS) Encrypt(ctx context.Context, in *kms.EncryptInput, _ ...func(*kms.Options)) (*kms.EncryptOutput, error) {
	return k.EncryptRequest(in).Wait(ctx)
}

// Decrypt simulates decryption with the signature of the aws-sdk-go-v2 KMS client
func (k *KMS) Decrypt(ctx context.Context, in *kms.DecryptInput, _ ...func(*kms.Options)) (*kms.DecryptOutput, error) {
	return k.DecryptRequest(in).Wait(ctx)
}

func simulateEncrypt(plaintext []byte) []byte {
	return []byte(reverse(string(plaintext)))
}

func simulateDecrypt(ciphertext []byte) string {
	return reverse(string(ciphertext))
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// preview renders at most n characters of v as JSON, so plaintext never reaches the logs whole
func preview(v interface{}, n int) string {
	s := toJSON(v)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
