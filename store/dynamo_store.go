package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/apex/log"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/Clever/awsmock/kmsutil"
)

const (
	nameAttr    = "name"
	versionAttr = "version"
	// maxBatchWrite is the most requests DynamoDB accepts in one BatchWriteItem
	maxBatchWrite = 25
)

// secretItem is one version of a secret, as stored in DynamoDB. Contents is the KMS ciphertext in base 64.
type secretItem struct {
	Name     string `dynamodbav:"name" mapstructure:"name"`
	Version  string `dynamodbav:"version" mapstructure:"version"`
	Contents string `dynamodbav:"contents,omitempty" mapstructure:"contents"`
}

type secretKey struct {
	Name    string `dynamodbav:"name"`
	Version string `dynamodbav:"version"`
}

type itemEnvelope struct {
	Item *secretItem `mapstructure:"Item"`
}

type itemsEnvelope struct {
	Items            []secretItem           `mapstructure:"Items"`
	LastEvaluatedKey map[string]interface{} `mapstructure:"LastEvaluatedKey"`
}

type batchWriteEnvelope struct {
	UnprocessedItems int `mapstructure:"UnprocessedItems"`
}

// paddedInt formats a version so versions sort lexically in the table's range key
func paddedInt(i int) string {
	return fmt.Sprintf("%019d", i)
}

// DynamoStore is a secret store keeping KMS-encrypted, versioned secrets in DynamoDB, one table per
// environment. The hash key is the identifier string, the range key the zero-padded version.
type DynamoStore struct {
	docs   DocumentClient
	kms    kmsutil.API
	tables map[Environment]TableConfig
	logger log.Interface
}

// NewDynamoStore creates a secret store on top of the given DynamoDB and KMS clients. A nil logger
// means log.Log.
func NewDynamoStore(docs DocumentClient, kms kmsutil.API, tables map[Environment]TableConfig, logger log.Interface) *DynamoStore {
	if logger == nil {
		logger = log.Log
	}
	return &DynamoStore{docs: docs, kms: kms, tables: tables, logger: logger}
}

func (s *DynamoStore) table(env Environment) (TableConfig, error) {
	cfg, ok := s.tables[env]
	if !ok {
		return TableConfig{}, fmt.Errorf("env %d is invalid", env)
	}
	return cfg, nil
}

// Create creates a key in the store
func (s *DynamoStore) Create(id SecretIdentifier, value string) error {
	if err := id.validate(); err != nil {
		return err
	}
	_, err := s.Read(id)
	if err == nil {
		return &IdentifierAlreadyExistsError{Identifier: id}
	}
	if _, ok := err.(*IdentifierNotFoundError); !ok {
		return err
	}
	return s.put(id, 0, value)
}

// Read reads the latest version of the secret
func (s *DynamoStore) Read(id SecretIdentifier) (Secret, error) {
	items, err := s.versions(id, true)
	if err != nil {
		return Secret{}, err
	}
	if len(items) == 0 {
		return Secret{}, &IdentifierNotFoundError{Identifier: id}
	}
	return s.decrypt(id, items[0])
}

// ReadVersion reads a version of a secret
func (s *DynamoStore) ReadVersion(id SecretIdentifier, version int) (Secret, error) {
	if version < 0 {
		if _, err := s.Read(id); err != nil {
			return Secret{}, err
		}
		return Secret{}, &VersionNotFoundError{Identifier: id, Version: version}
	}
	cfg, err := s.table(id.Environment)
	if err != nil {
		return Secret{}, err
	}
	key, err := attributevalue.MarshalMap(secretKey{Name: id.String(), Version: paddedInt(version)})
	if err != nil {
		return Secret{}, errors.Wrap(err, "marshalling key")
	}
	res, err := s.docs.Get(&dynamodb.GetItemInput{
		TableName:      aws.String(cfg.TableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	}).Wait(context.Background())
	if err != nil {
		return Secret{}, err
	}
	var envelope itemEnvelope
	if err := decode(res, &envelope); err != nil {
		return Secret{}, err
	}
	if envelope.Item == nil {
		if _, err := s.Read(id); err != nil {
			return Secret{}, err
		}
		return Secret{}, &VersionNotFoundError{Identifier: id, Version: version}
	}
	return s.decrypt(id, *envelope.Item)
}

// Update writes a new version of the key
func (s *DynamoStore) Update(id SecretIdentifier, value string) (Secret, error) {
	latest, err := s.Read(id)
	if err != nil {
		return Secret{}, err
	}
	next := latest.Meta.Version + 1
	if err := s.put(id, next, value); err != nil {
		return Secret{}, err
	}
	return Secret{Data: value, Meta: SecretMeta{Version: next}}, nil
}

// List gets all secret identifiers within a namespace
func (s *DynamoStore) List(env Environment, service string) ([]SecretIdentifier, error) {
	ids, err := s.ListAll(env)
	if err != nil {
		return []SecretIdentifier{}, err
	}
	results := []SecretIdentifier{}
	for _, id := range ids {
		if id.Service == service {
			results = append(results, id)
		}
	}
	return results, nil
}

// ListAll gets all secret identifiers within an environment
func (s *DynamoStore) ListAll(env Environment) ([]SecretIdentifier, error) {
	if !isValidEnvironmentInt(env) {
		return []SecretIdentifier{}, fmt.Errorf("env %d is invalid", env)
	}
	cfg, err := s.table(env)
	if err != nil {
		return []SecretIdentifier{}, err
	}
	expr, err := expression.NewBuilder().
		WithProjection(expression.NamesList(expression.Name(nameAttr))).
		Build()
	if err != nil {
		return []SecretIdentifier{}, errors.Wrap(err, "building scan expression")
	}
	in := &dynamodb.ScanInput{
		TableName:                aws.String(cfg.TableName),
		ProjectionExpression:     expr.Projection(),
		ExpressionAttributeNames: expr.Names(),
	}

	seen := map[string]bool{}
	results := []SecretIdentifier{}
	for {
		res, err := s.docs.Scan(in).Wait(context.Background())
		if err != nil {
			return []SecretIdentifier{}, err
		}
		var envelope itemsEnvelope
		if err := decode(res, &envelope); err != nil {
			return []SecretIdentifier{}, err
		}
		for _, item := range envelope.Items {
			if seen[item.Name] {
				continue
			}
			seen[item.Name] = true
			id, err := stringToSecretIdentifier(item.Name)
			if err != nil {
				s.logger.WithError(err).WithField("name", item.Name).Warn("skipping unparseable secret name")
				continue
			}
			if id.Environment == env {
				results = append(results, id)
			}
		}
		if len(envelope.LastEvaluatedKey) == 0 {
			break
		}
		if in.ExclusiveStartKey, err = attributevalue.MarshalMap(envelope.LastEvaluatedKey); err != nil {
			return []SecretIdentifier{}, errors.Wrap(err, "marshalling last evaluated key")
		}
	}
	sort.Sort(ByIDString(results))
	return results, nil
}

// History returns the metadata of all versions of a secret
func (s *DynamoStore) History(id SecretIdentifier) ([]SecretMeta, error) {
	items, err := s.versions(id, false)
	if err != nil {
		return []SecretMeta{}, err
	}
	if len(items) == 0 {
		return []SecretMeta{}, &IdentifierNotFoundError{Identifier: id}
	}
	metas := make([]SecretMeta, len(items))
	for i, item := range items {
		version, err := strconv.Atoi(item.Version)
		if err != nil {
			return []SecretMeta{}, &MalformedVersionError{Identifier: id, MalformedVersion: item.Version}
		}
		metas[i] = SecretMeta{Version: version}
	}
	return metas, nil
}

// Delete deletes all versions of a secret
func (s *DynamoStore) Delete(id SecretIdentifier) error {
	items, err := s.versions(id, false)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return &IdentifierNotFoundError{Identifier: id}
	}
	cfg, err := s.table(id.Environment)
	if err != nil {
		return err
	}

	requests := make([]types.WriteRequest, 0, len(items))
	for _, item := range items {
		key, err := attributevalue.MarshalMap(secretKey{Name: item.Name, Version: item.Version})
		if err != nil {
			return errors.Wrap(err, "marshalling key")
		}
		requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}})
	}
	for start := 0; start < len(requests); start += maxBatchWrite {
		end := start + maxBatchWrite
		if end > len(requests) {
			end = len(requests)
		}
		res, err := s.docs.BatchWrite(&dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{cfg.TableName: requests[start:end]},
		}).Wait(context.Background())
		if err != nil {
			return err
		}
		var envelope batchWriteEnvelope
		if err := decode(res, &envelope); err != nil {
			return err
		}
		if envelope.UnprocessedItems > 0 {
			return fmt.Errorf("%d versions of %s were left undeleted", envelope.UnprocessedItems, id)
		}
	}
	s.logger.WithField("id", id.String()).WithField("versions", len(items)).Info("deleted secret")
	return nil
}

// versions queries the versions of a secret, either all of them oldest first or only the latest
func (s *DynamoStore) versions(id SecretIdentifier, latestOnly bool) ([]secretItem, error) {
	cfg, err := s.table(id.Environment)
	if err != nil {
		return nil, err
	}
	keyCond := expression.Key(nameAttr).Equal(expression.Value(id.String()))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, errors.Wrap(err, "building query expression")
	}
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(cfg.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
		ScanIndexForward:          aws.Bool(!latestOnly),
	}
	if latestOnly {
		in.Limit = aws.Int32(1)
	}
	res, err := s.docs.Query(in).Wait(context.Background())
	if err != nil {
		return nil, err
	}
	var envelope itemsEnvelope
	if err := decode(res, &envelope); err != nil {
		return nil, err
	}
	return envelope.Items, nil
}

func (s *DynamoStore) put(id SecretIdentifier, version int, value string) error {
	cfg, err := s.table(id.Environment)
	if err != nil {
		return err
	}
	ciphertext, err := kmsutil.EncryptKey(context.Background(), s.kms, cfg.KeyAlias, value, s.logger)
	if err != nil {
		return err
	}
	item, err := attributevalue.MarshalMap(secretItem{Name: id.String(), Version: paddedInt(version), Contents: ciphertext})
	if err != nil {
		return errors.Wrap(err, "marshalling item")
	}
	// never overwrite an existing version
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(nameAttr))).
		Build()
	if err != nil {
		return errors.Wrap(err, "building put condition")
	}
	_, err = s.docs.Put(&dynamodb.PutItemInput{
		TableName:                 aws.String(cfg.TableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}).Wait(context.Background())
	if isConditionalCheckFailed(err) {
		if version == 0 {
			return &IdentifierAlreadyExistsError{Identifier: id}
		}
		return &VersionConflictError{Identifier: id, Version: version}
	}
	if err != nil {
		return err
	}
	s.logger.WithField("id", id.String()).WithField(versionAttr, version).Info("wrote secret")
	return nil
}

func (s *DynamoStore) decrypt(id SecretIdentifier, item secretItem) (Secret, error) {
	version, err := strconv.Atoi(item.Version)
	if err != nil {
		return Secret{}, &MalformedVersionError{Identifier: id, MalformedVersion: item.Version}
	}
	plaintext, err := kmsutil.DecryptKey(context.Background(), s.kms, item.Contents, s.logger)
	if err != nil {
		return Secret{}, err
	}
	return Secret{Data: plaintext, Meta: SecretMeta{Version: version}}, nil
}

func isConditionalCheckFailed(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}

func decode(result interface{}, out interface{}) error {
	return errors.Wrap(mapstructure.Decode(result, out), "decoding DynamoDB result")
}
