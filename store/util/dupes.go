package util

import (
	"time"

	"github.com/Clever/awsmock/store"
)

// ReadInterval is the pause between secret reads, to stay under table and KMS rate limits
var ReadInterval = 100 * time.Millisecond

// FindDupes finds all secrets in envs whose value matches the secret with the specified identifier
func FindDupes(s store.SecretStore, id store.SecretIdentifier, envs []store.Environment) ([]store.SecretIdentifier, error) {
	secret, err := s.Read(id)
	if err != nil {
		return []store.SecretIdentifier{}, err
	}
	var dupes []store.SecretIdentifier
	for _, e := range envs {
		ids, err := s.ListAll(e)
		if err != nil {
			return []store.SecretIdentifier{}, err
		}
		for _, id := range ids {
			time.Sleep(ReadInterval)
			newSecret, err := s.Read(id)
			if err != nil {
				return []store.SecretIdentifier{}, err
			}
			if newSecret.Data == secret.Data {
				dupes = append(dupes, id)
			}
		}
	}
	return dupes, nil
}
