// Package firestore implements the installation store on Google Cloud
// Firestore.
package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
)

// InstallationStore persists device installations per owner.
type InstallationStore struct {
	client *firestore.Client
}

func NewInstallationStore(client *firestore.Client) *InstallationStore {
	return &InstallationStore{client: client}
}

// installationRecord is the internal DB representation of one device.
type installationRecord struct {
	Token     string    `firestore:"token"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// Register upserts the installation. The token hash is the doc ID, which
// both deduplicates re-registrations and avoids hot-spotting on
// sequential IDs.
func (s *InstallationStore) Register(ctx context.Context, owner urn.URN, token string) error {
	record := installationRecord{
		Token:     token,
		UpdatedAt: time.Now(),
	}
	_, err := s.installationRef(owner, token).Set(ctx, record)
	return err
}

// Unregister removes the installation. Deleting a missing doc is a no-op
// in Firestore, which gives us the idempotency the contract asks for.
func (s *InstallationStore) Unregister(ctx context.Context, owner urn.URN, token string) error {
	_, err := s.installationRef(owner, token).Delete(ctx)
	return err
}

// Tokens returns all device tokens registered for the owner.
func (s *InstallationStore) Tokens(ctx context.Context, owner urn.URN) ([]string, error) {
	iter := s.installationsCollection(owner).Documents(ctx)
	defer iter.Stop()

	tokens := make([]string, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore iteration failed: %w", err)
		}

		var record installationRecord
		if err := doc.DataTo(&record); err != nil {
			// Corrupt rows are skipped rather than failing the fan-out.
			continue
		}
		if record.Token != "" {
			tokens = append(tokens, record.Token)
		}
	}
	return tokens, nil
}

// installationRef: users/{owner}/installations/{tokenHash}
func (s *InstallationStore) installationRef(owner urn.URN, token string) *firestore.DocumentRef {
	return s.installationsCollection(owner).Doc(hashToken(token))
}

func (s *InstallationStore) installationsCollection(owner urn.URN) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(owner.String()).Collection("installations")
}

func hashToken(t string) string {
	sum := sha256.Sum256([]byte(t))
	return hex.EncodeToString(sum[:])
}
