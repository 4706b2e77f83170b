package util

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/apex/log"
	"github.com/pkg/errors"

	"github.com/Clever/awsmock/store"
)

// FindGroups groups all secrets that share a value. With a groupsFile (a JSON array of secret
// identifier strings) only the values of the listed secrets form groups. Read and list failures
// are collected and returned next to whatever groups could be built.
func FindGroups(s store.SecretStore, envs []store.Environment, groupsFile string) ([][]store.SecretIdentifier, []error) {
	g := &grouper{store: s, groups: map[string][]store.SecretIdentifier{}}
	if groupsFile != "" {
		if err := g.seedFromFile(groupsFile); err != nil {
			return [][]store.SecretIdentifier{}, []error{err}
		}
	}
	g.collect(envs, groupsFile == "")
	return g.result(), g.errs
}

type grouper struct {
	store  store.SecretStore
	groups map[string][]store.SecretIdentifier
	errs   []error
}

func (g *grouper) read(id store.SecretIdentifier) (store.Secret, bool) {
	time.Sleep(ReadInterval)
	secret, err := g.store.Read(id)
	if err != nil {
		log.WithError(err).WithField("secret", id.String()).Warn("error reading secret")
		g.errs = append(g.errs, err)
		return store.Secret{}, false
	}
	return secret, true
}

func (g *grouper) seedFromFile(groupsFile string) error {
	bytes, err := os.ReadFile(groupsFile)
	if err != nil {
		return errors.Wrapf(err, "reading groups file %s", groupsFile)
	}
	var secretKeyStrings []string
	if err := json.Unmarshal(bytes, &secretKeyStrings); err != nil {
		return errors.Wrapf(err, "parsing groups file %s", groupsFile)
	}
	for _, secret := range secretKeyStrings {
		id, err := store.StringToSecretID(secret)
		if err != nil {
			log.WithError(err).WithField("secret", secret).Warn("error parsing secret identifier")
			g.errs = append(g.errs, err)
			continue
		}
		if current, ok := g.read(id); ok {
			if _, seen := g.groups[current.Data]; !seen {
				g.groups[current.Data] = []store.SecretIdentifier{}
			}
		}
	}
	return nil
}

// collect adds every secret in envs to the group of its value. Unless addNew is set, values
// without a group are skipped.
func (g *grouper) collect(envs []store.Environment, addNew bool) {
	for _, e := range envs {
		ids, err := g.store.ListAll(e)
		if err != nil {
			log.WithError(err).WithField("environment", e.String()).Warn("error listing secrets")
			g.errs = append(g.errs, err)
			continue
		}
		for _, id := range ids {
			current, ok := g.read(id)
			if !ok {
				continue
			}
			if _, seen := g.groups[current.Data]; seen || addNew {
				g.groups[current.Data] = append(g.groups[current.Data], id)
			}
		}
	}
}

// result drops the values and orders groups by their first identifier
func (g *grouper) result() [][]store.SecretIdentifier {
	groups := [][]store.SecretIdentifier{}
	for _, group := range g.groups {
		if len(group) == 0 {
			continue
		}
		sort.Sort(store.ByIDString(group))
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i][0].String() < groups[j][0].String()
	})
	return groups
}
