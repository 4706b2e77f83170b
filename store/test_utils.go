package store

import (
	"math/rand"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"

	"github.com/Clever/awsmock/awsmock"
)

// Stores returns every SecretStore implementation, the DynamoDB one running on mock clients
func Stores() map[string]SecretStore {
	var stores = make(map[string]SecretStore)
	stores["Memory"] = NewMemoryStore()
	stores["Dynamo"] = NewMockDynamoStore(nil)
	return stores
}

// NewMockDynamoStore creates a DynamoStore on a fresh MockTable and a mock KMS that reverses
// plaintexts. t, if not nil, gets a log line for every simulated DynamoDB call.
func NewMockDynamoStore(t awsmock.TestingT) *DynamoStore {
	quiet := &log.Logger{Handler: discard.New(), Level: log.ErrorLevel}
	kms := awsmock.NewKMS(awsmock.KMSOptions{Delay: time.Millisecond, Logger: quiet})
	return NewDynamoStore(NewMockTable().NewMockDocClient(t), kms, DefaultTables(), quiet)
}

// GetRandomTestSecretIdentifier returns a random key in the ci-test environment
func GetRandomTestSecretIdentifier() SecretIdentifier {
	return SecretIdentifier{Environment: CITestEnvironment, Service: "test", Key: randSeq(10)}
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

var random = rand.New(rand.NewSource(time.Now().UTC().UnixNano()))

func randSeq(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[random.Intn(len(letters))]
	}
	return string(b)
}
