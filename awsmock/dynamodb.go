package awsmock

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apex/log"

	"github.com/Clever/awsmock/request"
)

// DocClient operation names, as used for keys of the response sources
const (
	OpBatchGet   = "batchGet"
	OpBatchWrite = "batchWrite"
	OpDelete     = "delete"
	OpGet        = "get"
	OpPut        = "put"
	OpQuery      = "query"
	OpScan       = "scan"
	OpUpdate     = "update"
)

// OperationNames lists the DocClient operations that can be given a response source
var OperationNames = []string{OpBatchGet, OpBatchWrite, OpDelete, OpGet, OpPut, OpQuery, OpScan, OpUpdate}

// DefaultDelay is the simulated IO time used when none is given
const DefaultDelay = time.Millisecond

// DocClient is a mock DynamoDB DocumentClient. Each operation resolves its response source when
// called, and delivers the outcome after the configured delay.
type DocClient struct {
	t        TestingT
	prefix   string
	delay    time.Duration
	resolver *Resolver
	logger   log.Interface
}

// NewDocClient creates a mock DocumentClient. t, if not nil, gets a log line per simulated call
// and is passed to each response's Validate. prefix labels those log lines. A delay of zero or
// less means DefaultDelay. sources maps operation names (see OperationNames) to response sources.
func NewDocClient(t TestingT, prefix string, delay time.Duration, sources map[string]Source) *DocClient {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &DocClient{
		t:        t,
		prefix:   prefix,
		delay:    delay,
		resolver: NewResolver(sources),
		logger:   log.Log,
	}
}

// WithLogger sets the logger used for calls that do not go through the assertion context
func (c *DocClient) WithLogger(logger log.Interface) *DocClient {
	c.logger = logger
	return c
}

// Cursor returns the cursor of op's response source; see Resolver.Cursor
func (c *DocClient) Cursor(op string) (int, bool) {
	return c.resolver.Cursor(op)
}

// BatchGet simulates a batchGet call
func (c *DocClient) BatchGet(params interface{}, callbacks ...request.Callback[interface{}]) *request.Request[interface{}] {
	return c.newRequest(OpBatchGet, params, NormalizeBatchGet, callbacks)
}

// BatchWrite simulates a batchWrite call
func (c *DocClient) BatchWrite(params interface{}, callbacks ...request.Callback[interface{}]) *request.Request[interface{}] {
	return c.newRequest(OpBatchWrite, params, nil, callbacks)
}

// Delete simulates a delete call
func (c *DocClient) Delete(params interface{}, callbacks ...request.Callback[interface{}]) *request.Request[interface{}] {
	return c.newRequest(OpDelete, params, nil, callbacks)
}

// Get simulates a get call. The result is shaped with NormalizeSingle.
func (c *DocClient) Get(params interface{}, callbacks ...request.Callback[interface{}]) *request.Request[interface{}] {
	return c.newRequest(OpGet, params, NormalizeSingle, callbacks)
}

// Put simulates a put call
func (c *DocClient) Put(params interface{}, callbacks ...request.Callback[interface{}]) *request.Request[interface{}] {
	return c.newRequest(OpPut, params, nil, callbacks)
}

// Query simulates a query call. The result is shaped with NormalizeMany.
func (c *DocClient) Query(params interface{}, callbacks ...request.Callback[interface{}]) *request.Request[interface{}] {
	return c.newRequest(OpQuery, params, NormalizeMany, callbacks)
}

// Scan simulates a scan call. The result is shaped with NormalizeMany.
func (c *DocClient) Scan(params interface{}, callbacks ...request.Callback[interface{}]) *request.Request[interface{}] {
	return c.newRequest(OpScan, params, NormalizeMany, callbacks)
}

// Update simulates an update call
func (c *DocClient) Update(params interface{}, callbacks ...request.Callback[interface{}]) *request.Request[interface{}] {
	return c.newRequest(OpUpdate, params, nil, callbacks)
}

// CreateSet simulates createSet, which only logs
func (c *DocClient) CreateSet(list interface{}, options map[string]interface{}) {
	c.logger.WithFields(log.Fields{
		"list":    toJSON(list),
		"options": toJSON(options),
	}).Infof("%s simulated createSet on DynamoDB.DocumentClient", c.prefix)
}

func (c *DocClient) newRequest(op string, params interface{}, refine func(interface{}) interface{},
	callbacks []request.Callback[interface{}]) *request.Request[interface{}] {
	// resolved now, so the cursor follows invocation order rather than completion order
	r := c.resolver.Resolve(op, params)

	deliver := func(context.Context) (interface{}, error) {
		if c.t != nil {
			c.t.Logf("%s simulated %s to DynamoDB.DocumentClient with (%s)", c.prefix, op, toJSON(params))
		}
		if r != nil && r.Validate != nil {
			r.Validate(c.t, params)
		}
		if r != nil && r.Err != nil {
			return nil, r.Err
		}
		var result interface{}
		if r != nil {
			result = r.Result
		}
		if refine != nil {
			result = refine(result)
		}
		return result, nil
	}
	return request.New(c.delay, deliver, callbacks...)
}

func toJSON(v interface{}) string {
	bytes, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(bytes)
}
