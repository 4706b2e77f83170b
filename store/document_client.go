package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pkg/errors"

	"github.com/Clever/awsmock/awsmock"
	"github.com/Clever/awsmock/request"
)

// DocumentClient is the document-style DynamoDB client the DynamoStore talks to. Params are
// aws-sdk-go-v2 inputs (*dynamodb.GetItemInput and friends); results are plain documents shaped
// like DocumentClient envelopes ({"Item": ...}, {"Items": [...], "Count": n, ...}).
// *awsmock.DocClient and *SDKDocumentClient implement it.
type DocumentClient interface {
	Get(params interface{}, callbacks ...request.Callback[interface{}]) *request.Request[interface{}]
	Put(params interface{}, callbacks ...request.Callback[interface{}]) *request.Request[interface{}]
	Delete(params interface{}, callbacks ...request.Callback[interface{}]) *request.Request[interface{}]
	Query(params interface{}, callbacks ...request.Callback[interface{}]) *request.Request[interface{}]
	Scan(params interface{}, callbacks ...request.Callback[interface{}]) *request.Request[interface{}]
	BatchWrite(params interface{}, callbacks ...request.Callback[interface{}]) *request.Request[interface{}]
}

var _ DocumentClient = (*awsmock.DocClient)(nil)
var _ DocumentClient = (*SDKDocumentClient)(nil)

// DynamoDBAPI is the part of the aws-sdk-go-v2 DynamoDB client used by SDKDocumentClient
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// ParamsTypeError occurs when a DocumentClient operation is given params of the wrong type
type ParamsTypeError struct {
	Operation string
	Params    interface{}
}

func (e *ParamsTypeError) Error() string {
	return fmt.Sprintf("%s cannot take params of type %T", e.Operation, e.Params)
}

// SDKDocumentClient adapts a real DynamoDB client to DocumentClient
type SDKDocumentClient struct {
	api DynamoDBAPI
}

// NewSDKDocumentClient wraps api, usually a *dynamodb.Client
func NewSDKDocumentClient(api DynamoDBAPI) *SDKDocumentClient {
	return &SDKDocumentClient{api: api}
}

// Get calls GetItem
func (c *SDKDocumentClient) Get(params interface{}, callbacks ...request.Callback[interface{}]) *request.Request[interface{}] {
	return request.New(0, func(ctx context.Context) (interface{}, error) {
		in, ok := params.(*dynamodb.GetItemInput)
		if !ok {
			return nil, &ParamsTypeError{Operation: awsmock.OpGet, Params: params}
		}
		out, err := c.api.GetItem(ctx, in)
		if err != nil {
			return nil, err
		}
		doc := map[string]interface{}{awsmock.ItemKey: nil}
		if out.Item != nil {
			item, err := toDocument(out.Item)
			if err != nil {
				return nil, err
			}
			doc[awsmock.ItemKey] = item
		}
		return doc, nil
	}, callbacks...)
}

// Put calls PutItem
func (c *SDKDocumentClient) Put(params interface{}, callbacks ...request.Callback[interface{}]) *request.Request[interface{}] {
	return request.New(0, func(ctx context.Context) (interface{}, error) {
		in, ok := params.(*dynamodb.PutItemInput)
		if !ok {
			return nil, &ParamsTypeError{Operation: awsmock.OpPut, Params: params}
		}
		if _, err := c.api.PutItem(ctx, in); err != nil {
			return nil, err
		}
		return map[string]interface{}{}, nil
	}, callbacks...)
}

// Delete calls DeleteItem
func (c *SDKDocumentClient) Delete(params interface{}, callbacks ...request.Callback[interface{}]) *request.Request[interface{}] {
	return request.New(0, func(ctx context.Context) (interface{}, error) {
		in, ok := params.(*dynamodb.DeleteItemInput)
		if !ok {
			return nil, &ParamsTypeError{Operation: awsmock.OpDelete, Params: params}
		}
		if _, err := c.api.DeleteItem(ctx, in); err != nil {
			return nil, err
		}
		return map[string]interface{}{}, nil
	}, callbacks...)
}

// Query calls Query
func (c *SDKDocumentClient) Query(params interface{}, callbacks ...request.Callback[interface{}]) *request.Request[interface{}] {
	return request.New(0, func(ctx context.Context) (interface{}, error) {
		in, ok := params.(*dynamodb.QueryInput)
		if !ok {
			return nil, &ParamsTypeError{Operation: awsmock.OpQuery, Params: params}
		}
		out, err := c.api.Query(ctx, in)
		if err != nil {
			return nil, err
		}
		return toItemsEnvelope(out.Items, out.Count, out.ScannedCount, out.LastEvaluatedKey)
	}, callbacks...)
}

// Scan calls Scan
func (c *SDKDocumentClient) Scan(params interface{}, callbacks ...request.Callback[interface{}]) *request.Request[interface{}] {
	return request.New(0, func(ctx context.Context) (interface{}, error) {
		in, ok := params.(*dynamodb.ScanInput)
		if !ok {
			return nil, &ParamsTypeError{Operation: awsmock.OpScan, Params: params}
		}
		out, err := c.api.Scan(ctx, in)
		if err != nil {
			return nil, err
		}
		return toItemsEnvelope(out.Items, out.Count, out.ScannedCount, out.LastEvaluatedKey)
	}, callbacks...)
}

// BatchWrite calls BatchWriteItem. The result counts the requests left unprocessed.
func (c *SDKDocumentClient) BatchWrite(params interface{}, callbacks ...request.Callback[interface{}]) *request.Request[interface{}] {
	return request.New(0, func(ctx context.Context) (interface{}, error) {
		in, ok := params.(*dynamodb.BatchWriteItemInput)
		if !ok {
			return nil, &ParamsTypeError{Operation: awsmock.OpBatchWrite, Params: params}
		}
		out, err := c.api.BatchWriteItem(ctx, in)
		if err != nil {
			return nil, err
		}
		unprocessed := 0
		for _, requests := range out.UnprocessedItems {
			unprocessed += len(requests)
		}
		return map[string]interface{}{unprocessedKey: unprocessed}, nil
	}, callbacks...)
}

const unprocessedKey = "UnprocessedItems"

func toDocument(item map[string]types.AttributeValue) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
		return nil, errors.Wrap(err, "unmarshalling item")
	}
	return doc, nil
}

func toItemsEnvelope(items []map[string]types.AttributeValue, count, scanned int32,
	lastKey map[string]types.AttributeValue) (map[string]interface{}, error) {
	docs := []interface{}{}
	for _, item := range items {
		doc, err := toDocument(item)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	envelope := map[string]interface{}{
		awsmock.ItemsKey:        docs,
		awsmock.CountKey:        int(count),
		awsmock.ScannedCountKey: int(scanned),
	}
	if lastKey != nil {
		key, err := toDocument(lastKey)
		if err != nil {
			return nil, err
		}
		envelope["LastEvaluatedKey"] = key
	}
	return envelope, nil
}
