package database

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// FirebaseScopes cover Firestore, Cloud Storage and FCM.
var FirebaseScopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/datastore",
	"https://www.googleapis.com/auth/devstorage.read_write",
	"https://www.googleapis.com/auth/firebase.messaging",
}

type FirebaseApp struct {
	App     *firebase.App
	Options []option.ClientOption
}

var (
	readCredentialsFile = os.ReadFile
	credentialsFromJSON = google.CredentialsFromJSON
	findDefaultCreds    = google.FindDefaultCredentials
	newFirebaseApp      = firebase.NewApp
)

// NewFirebaseApp loads service credentials from credentialsFile, or the
// application default credentials when it is empty.
func NewFirebaseApp(ctx context.Context, projectID, credentialsFile, storageBucket string) (*FirebaseApp, error) {
	var creds *google.Credentials
	if credentialsFile != "" {
		data, err := readCredentialsFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading firebase credentials: %w", err)
		}
		creds, err = credentialsFromJSON(ctx, data, FirebaseScopes...)
		if err != nil {
			return nil, fmt.Errorf("parsing firebase credentials: %w", err)
		}
	} else {
		var err error
		creds, err = findDefaultCreds(ctx, FirebaseScopes...)
		if err != nil {
			return nil, fmt.Errorf("finding default credentials: %w", err)
		}
	}

	if projectID == "" {
		projectID = creds.ProjectID
	}
	opts := []option.ClientOption{option.WithCredentials(creds)}

	app, err := newFirebaseApp(ctx, &firebase.Config{
		ProjectID:     projectID,
		StorageBucket: storageBucket,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}
	return &FirebaseApp{App: app, Options: opts}, nil
}
