// Package test provides helpers to spin up the external services the tests
// depend on.
package test

import (
	"context"
	"fmt"

	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/avadhworkzone/qna/internal"
)

// MongoImage is the image used for the test MongoDB container. Transactions
// require a replica set, so the container is started as a single-node one.
const MongoImage = "mongo:7"

// StartMongoContainer starts a single-node replica-set MongoDB container for
// testing. The caller is responsible for terminating it.
func StartMongoContainer(ctx context.Context) (*mongodb.MongoDBContainer, error) {
	container, err := mongodb.Run(ctx, MongoImage, mongodb.WithReplicaSet("rs0"))
	if err != nil {
		return nil, fmt.Errorf("failed to start MongoDB container: %w", err)
	}
	return container, nil
}

// RandomDatabaseName returns a random database name, so every test run works
// against a fresh database on the shared container.
func RandomDatabaseName() string {
	return fmt.Sprintf("testdb_%s", internal.RandomHex(8))
}
