package database

import (
	"context"
	"fmt"

	"cloud.google.com/go/datastore"
)

// NewDatastoreClient connects to Cloud Datastore. With DATASTORE_EMULATOR_HOST
// set the client talks to the local emulator.
func NewDatastoreClient(ctx context.Context, projectID string) (*datastore.Client, error) {
	if projectID == "" {
		projectID = datastore.DetectProjectID
	}
	client, err := datastore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create datastore client: %w", err)
	}
	return client, nil
}
