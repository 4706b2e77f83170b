package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin"
	"github.com/apex/log"
	"github.com/apex/log/handlers/json"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kms"

	"github.com/Clever/awsmock/kmsutil"
	"github.com/Clever/awsmock/store"
	"github.com/Clever/awsmock/store/util"
)

var (
	app    = kingpin.New("stealth", "The interface to Clever's secret store.")
	region = app.Flag("region", "AWS region of the secret tables and KMS keys.").Default(store.Region).String()
	debug  = app.Flag("debug", "Log at debug level.").Bool()

	cmdEncrypt       = app.Command("encrypt", "Encrypts a plaintext with a KMS key.")
	encryptKeyID     = cmdEncrypt.Flag("key-id", "KMS key id or alias.").Required().String()
	encryptPlaintext = cmdEncrypt.Flag("plaintext", "Value to encrypt.").Required().String()

	cmdDecrypt        = app.Command("decrypt", "Decrypts a base64 KMS ciphertext.")
	decryptCiphertext = cmdDecrypt.Flag("ciphertext", "Base64 ciphertext to decrypt.").Required().String()

	cmdRead         = app.Command("read", "Reads a secret.")
	readEnvironment = cmdRead.Flag("environment", "Environment that the secret belongs to.").Required().String()
	readService     = cmdRead.Flag("service", "Service that key belongs to.").Required().String()
	readKey         = cmdRead.Flag("key", "Key to read.").Required().String()
	readVersion     = cmdRead.Flag("version", "Version to read, the latest if unset.").Default("-1").Int()

	cmdFindDupes  = app.Command("find-dupes", "Finds duplicate values of a secret.")
	dupesEnv      = cmdFindDupes.Flag("environment", "Environment that the secret belongs to.").Required().String()
	dupesService  = cmdFindDupes.Flag("service", "Service that key belongs to.").Required().String()
	dupesKey      = cmdFindDupes.Flag("key", "Key to find duplicate values of.").Required().String()
	cmdFindGroups = app.Command("find-groups", "Groups secrets that share a value.")
	groupsFile    = cmdFindGroups.Flag("groups-file", "JSON array of secret ids whose values form the groups.").String()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))
	log.SetHandler(json.New(os.Stderr))
	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	ctx := context.Background()
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(*region))
	if err != nil {
		log.WithError(err).Fatal("loading AWS config")
	}
	kmsClient := kms.NewFromConfig(cfg)
	newStore := func() store.SecretStore {
		docs := store.NewSDKDocumentClient(dynamodb.NewFromConfig(cfg))
		return store.NewDynamoStore(docs, kmsClient, store.DefaultTables(), log.Log)
	}

	switch command {
	case cmdEncrypt.FullCommand():
		ciphertext, err := kmsutil.EncryptKey(ctx, kmsClient, *encryptKeyID, *encryptPlaintext, log.Log)
		if err != nil {
			log.WithError(err).Fatal("encrypt failed")
		}
		fmt.Println(ciphertext)
	case cmdDecrypt.FullCommand():
		plaintext, err := kmsutil.DecryptKey(ctx, kmsClient, *decryptCiphertext, log.Log)
		if err != nil {
			log.WithError(err).Fatal("decrypt failed")
		}
		fmt.Println(plaintext)
	case cmdRead.FullCommand():
		id := mustIdentifier(*readEnvironment, *readService, *readKey)
		s := newStore()
		var secret store.Secret
		if *readVersion < 0 {
			secret, err = s.Read(id)
		} else {
			secret, err = s.ReadVersion(id, *readVersion)
		}
		if err != nil {
			log.WithError(err).Fatal("read failed")
		}
		fmt.Println(secret.Data)
	case cmdFindDupes.FullCommand():
		id := mustIdentifier(*dupesEnv, *dupesService, *dupesKey)
		envs := []store.Environment{store.DevelopmentEnvironment, store.ProductionEnvironment}
		matchingIds, err := util.FindDupes(newStore(), id, envs)
		if err != nil {
			log.WithError(err).Fatal("find-dupes failed")
		}
		fmt.Println("Matching IDs")
		fmt.Println("============")
		for _, id := range matchingIds {
			fmt.Println(id)
		}
	case cmdFindGroups.FullCommand():
		envs := []store.Environment{store.DevelopmentEnvironment, store.ProductionEnvironment}
		groups, errs := util.FindGroups(newStore(), envs, *groupsFile)
		for i, group := range groups {
			fmt.Printf("Group %d\n", i+1)
			fmt.Println("========")
			for _, id := range group {
				fmt.Println(id)
			}
		}
		if len(errs) > 0 {
			log.WithField("errors", len(errs)).Fatal("find-groups finished with errors")
		}
	}
}

func mustIdentifier(environment, service, key string) store.SecretIdentifier {
	env, err := store.ParseEnvironment(environment)
	if err != nil {
		log.WithError(err).Fatal("environment flag must be one of production, development, ci-test")
	}
	return store.SecretIdentifier{Environment: env, Service: service, Key: key}
}
