package db

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/avadhworkzone/qna/test"
)

var testDB *MongoStorage

// Common test constants
const (
	testUserID     = "user-1234"
	testUserEmail  = "test@example.com"
	testCustomerID = "cus_test123"
	testPriceID    = "price_starter123"
	testSessionID  = "cs_test_abc123"
)

func TestMain(m *testing.M) {
	ctx := context.Background()
	// start a MongoDB container for testing
	dbContainer, err := test.StartMongoContainer(ctx)
	if err != nil {
		panic(fmt.Sprintf("failed to start MongoDB container: %v", err))
	}

	// get the MongoDB connection string
	mongoURI, err := dbContainer.ConnectionString(ctx)
	if err != nil {
		panic(fmt.Sprintf("failed to get MongoDB connection string: %v", err))
	}

	testDB, err = New(mongoURI, test.RandomDatabaseName())
	if err != nil {
		panic(fmt.Sprintf("failed to create new MongoDB connection: %v", err))
	}

	code := m.Run()

	// close the database connection
	testDB.Close()

	// stop the MongoDB container
	if err := dbContainer.Terminate(ctx); err != nil {
		panic(fmt.Sprintf("failed to terminate MongoDB container: %v", err))
	}

	os.Exit(code)
}
