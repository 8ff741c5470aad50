// Package test provides testing utilities for the billing backend, including
// a MongoDB test container.
package test

import (
	"context"
	"fmt"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/airpanel/billing-backend/internal"
)

// MongoPort is the port used by the MongoDB test container.
const MongoPort = "27017"

// StartMongoContainer starts a MongoDB container for testing. It returns the
// container and any error encountered during startup. Use the container
// Endpoint method with the "mongodb" protocol to get the connection string.
func StartMongoContainer(ctx context.Context) (testcontainers.Container, error) {
	port := fmt.Sprintf("%s/tcp", MongoPort)
	return testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "mongo:7",
				ExposedPorts: []string{port},
				WaitingFor:   wait.ForListeningPort(MongoPort),
			},
			Started: true,
		})
}

// RandomDatabaseName returns a random database name, so parallel test
// packages don't step on each other inside a shared container.
func RandomDatabaseName() string {
	return fmt.Sprintf("billingtest%s", internal.RandomHex(8))
}
