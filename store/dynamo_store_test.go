package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-test/deep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clever/awsmock/awsmock"
	"github.com/Clever/awsmock/util"
)

var testID = SecretIdentifier{Environment: CITestEnvironment, Service: "svc", Key: "key"}

// reversed gives the base 64 ciphertext the mock KMS produces for plaintext
func reversed(plaintext string) string {
	runes := []rune(plaintext)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return util.ToBase64FromUTF8(string(runes))
}

func storeWith(t *testing.T, sources map[string]awsmock.Source, kmsOpts awsmock.KMSOptions) *DynamoStore {
	docs := awsmock.NewDocClient(t, t.Name(), time.Millisecond, sources)
	if kmsOpts.Delay == 0 {
		kmsOpts.Delay = time.Millisecond
	}
	return NewDynamoStore(docs, awsmock.NewKMS(kmsOpts), DefaultTables(), nil)
}

func TestDynamoReadQuery(t *testing.T) {
	s := storeWith(t, map[string]awsmock.Source{
		awsmock.OpQuery: awsmock.Fixed(&awsmock.Response{
			Result: []interface{}{
				map[string]interface{}{"name": testID.String(), "version": paddedInt(3), "contents": reversed("s3cret")},
			},
			Validate: func(vt awsmock.TestingT, input interface{}) {
				in, ok := input.(*dynamodb.QueryInput)
				if !assert.True(vt, ok, "query input should be a *dynamodb.QueryInput") {
					return
				}
				assert.Equal(vt, "stealth-ci-test", aws.ToString(in.TableName))
				assert.Equal(vt, int32(1), aws.ToInt32(in.Limit))
				assert.False(vt, aws.ToBool(in.ScanIndexForward))
				assert.Len(vt, in.ExpressionAttributeValues, 1)
			},
		}),
	}, awsmock.KMSOptions{})

	secret, err := s.Read(testID)
	require.NoError(t, err)
	assert.Equal(t, Secret{Data: "s3cret", Meta: SecretMeta{Version: 3}}, secret)
}

func TestDynamoReadMalformedVersion(t *testing.T) {
	s := storeWith(t, map[string]awsmock.Source{
		awsmock.OpQuery: awsmock.Fixed(&awsmock.Response{
			Result: map[string]interface{}{
				"Items": []interface{}{map[string]interface{}{"name": testID.String(), "version": "v1"}},
			},
		}),
	}, awsmock.KMSOptions{})

	_, err := s.Read(testID)
	assert.Equal(t, &MalformedVersionError{Identifier: testID, MalformedVersion: "v1"}, err)

	_, err = s.History(testID)
	assert.Equal(t, &MalformedVersionError{Identifier: testID, MalformedVersion: "v1"}, err)
}

func TestDynamoErrorsPassThrough(t *testing.T) {
	queryErr := errors.New("ProvisionedThroughputExceededException")
	s := storeWith(t, map[string]awsmock.Source{
		awsmock.OpQuery: awsmock.Fixed(&awsmock.Response{Err: queryErr}),
		awsmock.OpScan:  awsmock.Fixed(&awsmock.Response{Err: queryErr}),
	}, awsmock.KMSOptions{})

	_, err := s.Read(testID)
	assert.Equal(t, queryErr, err)
	_, err = s.History(testID)
	assert.Equal(t, queryErr, err)
	err = s.Create(testID, "value")
	assert.Equal(t, queryErr, err)
	_, err = s.ListAll(CITestEnvironment)
	assert.Equal(t, queryErr, err)
}

func TestDynamoKMSErrors(t *testing.T) {
	decryptErr := errors.New("Decrypt kaboom")
	encryptErr := errors.New("Encrypt kaboom")
	s := storeWith(t, map[string]awsmock.Source{
		awsmock.OpQuery: awsmock.Sequence(
			&awsmock.Response{Result: []interface{}{
				map[string]interface{}{"name": testID.String(), "version": paddedInt(0), "contents": reversed("x")},
			}},
			&awsmock.Response{Result: []interface{}{}},
		),
	}, awsmock.KMSOptions{DecryptErr: decryptErr, EncryptErr: encryptErr})

	t.Log("the first query finds a version that cannot be decrypted")
	_, err := s.Read(testID)
	assert.Equal(t, decryptErr, err)

	t.Log("the second finds nothing, so create tries to encrypt")
	err = s.Create(testID, "value")
	assert.Equal(t, encryptErr, err)
}

func TestDynamoUpdateConflict(t *testing.T) {
	s := storeWith(t, map[string]awsmock.Source{
		awsmock.OpQuery: awsmock.Fixed(&awsmock.Response{Result: []interface{}{
			map[string]interface{}{"name": testID.String(), "version": paddedInt(4), "contents": reversed("old")},
		}}),
		awsmock.OpPut: awsmock.Fixed(&awsmock.Response{
			Err: &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")},
			Validate: func(vt awsmock.TestingT, input interface{}) {
				in := input.(*dynamodb.PutItemInput)
				assert.NotNil(vt, in.ConditionExpression)
				assert.Equal(vt, &types.AttributeValueMemberS{Value: paddedInt(5)}, in.Item["version"])
			},
		}),
	}, awsmock.KMSOptions{})

	_, err := s.Update(testID, "new")
	assert.Equal(t, &VersionConflictError{Identifier: testID, Version: 5}, err)
}

func TestDynamoListAllPages(t *testing.T) {
	other := SecretIdentifier{Environment: CITestEnvironment, Service: "svc", Key: "another"}
	s := storeWith(t, map[string]awsmock.Source{
		awsmock.OpScan: awsmock.Sequence(
			&awsmock.Response{Result: map[string]interface{}{
				"Items": []interface{}{
					map[string]interface{}{"name": testID.String()},
					map[string]interface{}{"name": testID.String()},
					map[string]interface{}{"name": "not-an-identifier"},
				},
				"LastEvaluatedKey": map[string]interface{}{"name": testID.String(), "version": paddedInt(1)},
			}},
			&awsmock.Response{
				Result: []interface{}{map[string]interface{}{"name": other.String()}},
				Validate: func(vt awsmock.TestingT, input interface{}) {
					in := input.(*dynamodb.ScanInput)
					assert.Equal(vt, &types.AttributeValueMemberS{Value: testID.String()}, in.ExclusiveStartKey["name"])
				},
			},
		),
	}, awsmock.KMSOptions{})

	ids, err := s.ListAll(CITestEnvironment)
	require.NoError(t, err)
	if diff := deep.Equal(ids, []SecretIdentifier{other, testID}); diff != nil {
		t.Error(diff)
	}
}

func TestDynamoDeleteBatches(t *testing.T) {
	table := NewMockTable()
	s := NewDynamoStore(table.NewMockDocClient(t), awsmock.NewKMS(awsmock.KMSOptions{Delay: time.Millisecond}), DefaultTables(), nil)

	require.NoError(t, s.Create(testID, "v0"))
	for i := 1; i < 30; i++ {
		_, err := s.Update(testID, "next")
		require.NoError(t, err)
	}
	history, err := s.History(testID)
	require.NoError(t, err)
	assert.Len(t, history, 30)

	require.NoError(t, s.Delete(testID))
	_, err = s.History(testID)
	assert.Equal(t, &IdentifierNotFoundError{Identifier: testID}, err)
}

func TestDynamoDeleteUnprocessed(t *testing.T) {
	s := storeWith(t, map[string]awsmock.Source{
		awsmock.OpQuery: awsmock.Fixed(&awsmock.Response{Result: []interface{}{
			map[string]interface{}{"name": testID.String(), "version": paddedInt(0)},
		}}),
		awsmock.OpBatchWrite: awsmock.Fixed(&awsmock.Response{Result: map[string]interface{}{"UnprocessedItems": 1}}),
	}, awsmock.KMSOptions{})

	assert.Error(t, s.Delete(testID))
}

func TestMockTableRejectsWrongParams(t *testing.T) {
	docs := NewMockTable().NewMockDocClient(t)
	_, err := docs.Get(map[string]interface{}{"TableName": "stealth"}).Wait(context.Background())
	_, ok := err.(*ParamsTypeError)
	assert.True(t, ok, "expected a *ParamsTypeError, got %T", err)
}
