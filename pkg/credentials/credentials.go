// Package credentials handles Google Cloud credential blobs for the bridge.
// It parses service-account and authorized-user JSON, validates the fields
// the bridge depends on, and produces oauth2 token sources scoped for
// Vertex AI. The blob itself is passed through to golang.org/x/oauth2/google
// opaquely; only the envelope is inspected here.
package credentials

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// CloudPlatformScope is the OAuth scope required for Vertex AI.
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Type identifies the kind of Google credential JSON.
type Type string

const (
	// TypeServiceAccount is a service account key blob.
	TypeServiceAccount Type = "service_account"
	// TypeAuthorizedUser is an Application Default Credentials user blob.
	TypeAuthorizedUser Type = "authorized_user"
)

// Info is a parsed credential blob.
type Info struct {
	// Type of the credential, from the blob's "type" field
	Type Type

	// ProjectID from the blob, if present. For authorized_user blobs the
	// project always comes from bridge configuration instead.
	ProjectID string

	// ClientEmail of a service account, if present
	ClientEmail string

	raw map[string]interface{}
}

// Parse parses and validates a credential JSON blob.
func Parse(blob []byte) (*Info, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("credentials JSON is empty")
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(blob, &raw); err != nil {
		return nil, fmt.Errorf("credentials JSON is invalid or malformed: %w", err)
	}

	credType, _ := raw["type"].(string)
	info := &Info{Type: Type(credType), raw: raw}
	info.ProjectID, _ = raw["project_id"].(string)
	info.ClientEmail, _ = raw["client_email"].(string)

	switch info.Type {
	case TypeServiceAccount:
		for _, field := range []string{"project_id", "private_key", "client_email"} {
			if s, _ := raw[field].(string); s == "" {
				return nil, fmt.Errorf("service account credentials are missing required field %q", field)
			}
		}
	case TypeAuthorizedUser:
		for _, field := range []string{"client_id", "client_secret", "refresh_token"} {
			if s, _ := raw[field].(string); s == "" {
				return nil, fmt.Errorf("authorized user credentials are missing required field %q", field)
			}
		}
		// quota_project_id conflicts with the bridge-configured project when
		// the blob was exported from gcloud ADC, so it is dropped.
		delete(raw, "quota_project_id")
	case "":
		return nil, fmt.Errorf("credentials JSON has no type field")
	default:
		return nil, fmt.Errorf("invalid credential type: %q (must be %q or %q)",
			credType, TypeServiceAccount, TypeAuthorizedUser)
	}

	return info, nil
}

// JSON re-serializes the (possibly cleaned) credential blob.
func (i *Info) JSON() ([]byte, error) {
	return json.Marshal(i.raw)
}

// TokenSource builds an oauth2 token source for Vertex AI from the blob.
func (i *Info) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	blob, err := i.JSON()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, blob, CloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("failed to create credentials from JSON: %w", err)
	}

	return creds.TokenSource, nil
}

// DefaultTokenSource returns a token source built from Application Default
// Credentials, used when no blob is configured.
func DefaultTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	creds, err := google.FindDefaultCredentials(ctx, CloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("failed to find default credentials: %w", err)
	}
	return creds.TokenSource, nil
}
