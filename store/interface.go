package store

import (
	"fmt"
	"strings"
)

// SecretMeta is metadata to manage a secret
type SecretMeta struct {
	Version int `json:"version"`
}

// Secret is the unit the secret store
type Secret struct {
	// Data is the actual secret value
	Data string `json:"data"`
	// Meta is the information about the secret
	Meta SecretMeta `json:"meta"`
}

// Environment is the environment a secret belongs to
type Environment int

const (
	// ProductionEnvironment is an index for prod
	ProductionEnvironment Environment = iota
	// DevelopmentEnvironment is an index for dev
	DevelopmentEnvironment
	// CITestEnvironment is an index for ci-test
	CITestEnvironment
)

var environmentNames = map[Environment]string{
	ProductionEnvironment:  "production",
	DevelopmentEnvironment: "development",
	CITestEnvironment:      "ci-test",
}

// Environments lists every valid environment
var Environments = []Environment{ProductionEnvironment, DevelopmentEnvironment, CITestEnvironment}

func (e Environment) String() string {
	if name, ok := environmentNames[e]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(e))
}

func isValidEnvironmentInt(env Environment) bool {
	_, ok := environmentNames[env]
	return ok
}

// ParseEnvironment converts an environment name to an Environment
func ParseEnvironment(s string) (Environment, error) {
	for env, name := range environmentNames {
		if name == s {
			return env, nil
		}
	}
	return -1, fmt.Errorf("unknown environment %q", s)
}

// SecretIdentifier is a lookup key for a secret, including the environment, the service name, and the specific key
type SecretIdentifier struct {
	Environment  Environment
	Service, Key string
}

// EnvironmentString returns the environment used for the secret identifier, as a string
func (id SecretIdentifier) EnvironmentString() string {
	return id.Environment.String()
}

// String() returns the key used for the secret identifier
func (id SecretIdentifier) String() string {
	return fmt.Sprintf("%s.%s.%s", id.EnvironmentString(), id.Service, id.Key)
}

func (id SecretIdentifier) validate() error {
	if !isValidEnvironmentInt(id.Environment) || id.Service == "" || id.Key == "" ||
		strings.Contains(id.Service, ".") || strings.Contains(id.Key, ".") {
		return &InvalidIdentifierError{Identifier: id}
	}
	return nil
}

// stringToSecretIdentifier parses the "environment.service.key" form of an identifier
func stringToSecretIdentifier(s string) (SecretIdentifier, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return SecretIdentifier{}, fmt.Errorf("identifier %q must have the form environment.service.key", s)
	}
	env, err := ParseEnvironment(parts[0])
	if err != nil {
		return SecretIdentifier{}, err
	}
	id := SecretIdentifier{Environment: env, Service: parts[1], Key: parts[2]}
	if err := id.validate(); err != nil {
		return SecretIdentifier{}, err
	}
	return id, nil
}

// StringToSecretID parses the "environment.service.key" form of an identifier
func StringToSecretID(s string) (SecretIdentifier, error) {
	return stringToSecretIdentifier(s)
}

// ByIDString sorts identifiers by their string form
type ByIDString []SecretIdentifier

func (ids ByIDString) Len() int           { return len(ids) }
func (ids ByIDString) Swap(i, j int)      { ids[i], ids[j] = ids[j], ids[i] }
func (ids ByIDString) Less(i, j int) bool { return ids[i].String() < ids[j].String() }

// SecretStore is the CRUD-like interface for Secrets
type SecretStore interface {
	// Creates a Secret in the secret store. Version is guaranteed to be zero if no error is returned.
	Create(id SecretIdentifier, value string) error

	// Read a Secret from the store
	Read(id SecretIdentifier) (Secret, error)

	// ReadVersion reads a specific version of a secret from the store
	// Version is 0-indexed
	ReadVersion(id SecretIdentifier, version int) (Secret, error)

	// Updates a Secret from the store and increments version number.
	Update(id SecretIdentifier, value string) (Secret, error)

	// List gets secrets within a namespace (env/service)
	List(env Environment, service string) ([]SecretIdentifier, error)

	// ListAll gets all secrets within a environment (env)
	ListAll(env Environment) ([]SecretIdentifier, error)

	// History gets history for a secret, returning all versions from the store
	History(id SecretIdentifier) ([]SecretMeta, error)

	// Delete deletes all versions of a secret
	Delete(id SecretIdentifier) error
}

// IdentifierNotFoundError occurs when a secret identifier cannot be found (during Read, History, Update)
type IdentifierNotFoundError struct {
	Identifier SecretIdentifier
}

func (e *IdentifierNotFoundError) Error() string {
	return fmt.Sprintf("Identifier not found: %s", e.Identifier)
}

// InvalidIdentifierError occurs when a malformed identifier argument is given to a SecretStore method
type InvalidIdentifierError struct {
	Identifier SecretIdentifier
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("The given identifier is invalid: %s", e.Identifier)
}

// IdentifierAlreadyExistsError occurs when Create is called and an identifier already exists
type IdentifierAlreadyExistsError struct {
	Identifier SecretIdentifier
}

func (e *IdentifierAlreadyExistsError) Error() string {
	return fmt.Sprintf("The identifier already exists: %s", e.Identifier)
}

// VersionNotFoundError occurs when a secret version cannot be found (during ReadVersion)
type VersionNotFoundError struct {
	Identifier SecretIdentifier
	Version    int
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("Version %d not found for identifier: %s", e.Version, e.Identifier)
}

// MalformedVersionError occurs when a secret version is malformed
type MalformedVersionError struct {
	Identifier       SecretIdentifier
	MalformedVersion string
}

func (e *MalformedVersionError) Error() string {
	return fmt.Sprintf("Version string %s for identifier %s is malformed", e.MalformedVersion, e.Identifier)
}

// VersionConflictError occurs when another writer created the same version of a secret first
type VersionConflictError struct {
	Identifier SecretIdentifier
	Version    int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("Version %d of identifier %s was written concurrently", e.Version, e.Identifier)
}
