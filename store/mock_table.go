package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/Clever/awsmock/awsmock"
)

// MockTable keeps secret items in memory and answers the DynamoStore's DynamoDB calls through
// generator sources of an awsmock.DocClient. Queries match on the single key condition value.
type MockTable struct {
	mu sync.Mutex
	// items by table, then name, then version
	items map[string]map[string]map[string]secretItem
}

// NewMockTable creates an empty mock table
func NewMockTable() *MockTable {
	return &MockTable{items: map[string]map[string]map[string]secretItem{}}
}

// Sources returns the response sources for an awsmock.DocClient backed by this table
func (m *MockTable) Sources() map[string]awsmock.Source {
	return map[string]awsmock.Source{
		awsmock.OpGet:        awsmock.Generator(m.get),
		awsmock.OpPut:        awsmock.Generator(m.put),
		awsmock.OpDelete:     awsmock.Generator(m.delete),
		awsmock.OpQuery:      awsmock.Generator(m.query),
		awsmock.OpScan:       awsmock.Generator(m.scan),
		awsmock.OpBatchWrite: awsmock.Generator(m.batchWrite),
	}
}

// NewMockDocClient creates a mock DocClient backed by this table
func (m *MockTable) NewMockDocClient(t awsmock.TestingT) *awsmock.DocClient {
	return awsmock.NewDocClient(t, "mock-table", awsmock.DefaultDelay, m.Sources())
}

func (m *MockTable) table(name *string) map[string]map[string]secretItem {
	tableName := aws.ToString(name)
	if _, ok := m.items[tableName]; !ok {
		m.items[tableName] = map[string]map[string]secretItem{}
	}
	return m.items[tableName]
}

func badParams(op string, params interface{}) *awsmock.Response {
	return &awsmock.Response{Err: &ParamsTypeError{Operation: op, Params: params}}
}

func unmarshalKey(key map[string]types.AttributeValue) (secretKey, error) {
	var k secretKey
	err := attributevalue.UnmarshalMap(key, &k)
	return k, err
}

func itemDocument(item secretItem) map[string]interface{} {
	return map[string]interface{}{nameAttr: item.Name, versionAttr: item.Version, "contents": item.Contents}
}

func (m *MockTable) get(params interface{}) *awsmock.Response {
	in, ok := params.(*dynamodb.GetItemInput)
	if !ok {
		return badParams(awsmock.OpGet, params)
	}
	key, err := unmarshalKey(in.Key)
	if err != nil {
		return &awsmock.Response{Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.table(in.TableName)[key.Name][key.Version]; ok {
		return &awsmock.Response{Result: itemDocument(item)}
	}
	// a nil result still comes back as {"Item": nil}
	return &awsmock.Response{}
}

func (m *MockTable) put(params interface{}) *awsmock.Response {
	in, ok := params.(*dynamodb.PutItemInput)
	if !ok {
		return badParams(awsmock.OpPut, params)
	}
	var item secretItem
	if err := attributevalue.UnmarshalMap(in.Item, &item); err != nil {
		return &awsmock.Response{Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	table := m.table(in.TableName)
	if _, exists := table[item.Name][item.Version]; exists && in.ConditionExpression != nil {
		return &awsmock.Response{Err: &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}}
	}
	if table[item.Name] == nil {
		table[item.Name] = map[string]secretItem{}
	}
	table[item.Name][item.Version] = item
	return &awsmock.Response{Result: map[string]interface{}{}}
}

func (m *MockTable) delete(params interface{}) *awsmock.Response {
	in, ok := params.(*dynamodb.DeleteItemInput)
	if !ok {
		return badParams(awsmock.OpDelete, params)
	}
	key, err := unmarshalKey(in.Key)
	if err != nil {
		return &awsmock.Response{Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(m.table(in.TableName), key)
	return &awsmock.Response{Result: map[string]interface{}{}}
}

func (m *MockTable) deleteLocked(table map[string]map[string]secretItem, key secretKey) {
	delete(table[key.Name], key.Version)
	if len(table[key.Name]) == 0 {
		delete(table, key.Name)
	}
}

func (m *MockTable) query(params interface{}) *awsmock.Response {
	in, ok := params.(*dynamodb.QueryInput)
	if !ok {
		return badParams(awsmock.OpQuery, params)
	}
	if len(in.ExpressionAttributeValues) != 1 {
		return &awsmock.Response{Err: fmt.Errorf("mock table queries take exactly one key condition value, got %d",
			len(in.ExpressionAttributeValues))}
	}
	var name string
	for _, v := range in.ExpressionAttributeValues {
		if err := attributevalue.Unmarshal(v, &name); err != nil {
			return &awsmock.Response{Err: err}
		}
	}

	m.mu.Lock()
	versions := m.table(in.TableName)[name]
	items := make([]secretItem, 0, len(versions))
	for _, item := range versions {
		items = append(items, item)
	}
	m.mu.Unlock()

	forward := in.ScanIndexForward == nil || *in.ScanIndexForward
	sort.Slice(items, func(i, j int) bool {
		if forward {
			return items[i].Version < items[j].Version
		}
		return items[i].Version > items[j].Version
	})
	if in.Limit != nil && int(*in.Limit) < len(items) {
		items = items[:*in.Limit]
	}
	docs := make([]interface{}, len(items))
	for i, item := range items {
		docs[i] = itemDocument(item)
	}
	// bare items; the DocClient adds Count and ScannedCount
	return &awsmock.Response{Result: docs}
}

func (m *MockTable) scan(params interface{}) *awsmock.Response {
	in, ok := params.(*dynamodb.ScanInput)
	if !ok {
		return badParams(awsmock.OpScan, params)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := []interface{}{}
	for _, versions := range m.table(in.TableName) {
		for _, item := range versions {
			docs = append(docs, itemDocument(item))
		}
	}
	return &awsmock.Response{Result: map[string]interface{}{awsmock.ItemsKey: docs}}
}

func (m *MockTable) batchWrite(params interface{}) *awsmock.Response {
	in, ok := params.(*dynamodb.BatchWriteItemInput)
	if !ok {
		return badParams(awsmock.OpBatchWrite, params)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for tableName, requests := range in.RequestItems {
		table := m.table(aws.String(tableName))
		for _, r := range requests {
			switch {
			case r.DeleteRequest != nil:
				key, err := unmarshalKey(r.DeleteRequest.Key)
				if err != nil {
					return &awsmock.Response{Err: err}
				}
				m.deleteLocked(table, key)
			case r.PutRequest != nil:
				var item secretItem
				if err := attributevalue.UnmarshalMap(r.PutRequest.Item, &item); err != nil {
					return &awsmock.Response{Err: err}
				}
				if table[item.Name] == nil {
					table[item.Name] = map[string]secretItem{}
				}
				table[item.Name][item.Version] = item
			}
		}
	}
	return &awsmock.Response{Result: map[string]interface{}{unprocessedKey: 0}}
}
