package store

import "os"

// Region is the default AWS region, overridden by AWS_REGION
var Region = "us-west-1"

func init() {
	if region := os.Getenv("AWS_REGION"); region != "" {
		Region = region
	}
}

// TableConfig names the DynamoDB table and the KMS key used for one environment
type TableConfig struct {
	TableName string
	KeyAlias  string
}

// DefaultTables returns the tables and keys used for each environment
func DefaultTables() map[Environment]TableConfig {
	return map[Environment]TableConfig{
		ProductionEnvironment:  {TableName: "stealth", KeyAlias: "alias/stealth-key"},
		DevelopmentEnvironment: {TableName: "stealth-dev", KeyAlias: "alias/stealth-key-dev"},
		CITestEnvironment:      {TableName: "stealth-ci-test", KeyAlias: "alias/stealth-key-dev"},
	}
}
