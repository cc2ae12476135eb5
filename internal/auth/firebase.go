package auth

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// TokenVerifier turns a bearer token into user claims.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*UserClaims, error)
}

// FirebaseAuth verifies Firebase ID tokens
type FirebaseAuth struct {
	client *auth.Client
}

// FirebaseOptions configures the Firebase app.
type FirebaseOptions struct {
	ProjectID string
	// CredentialsFile is a service account key. Empty uses application default
	// credentials, which work on Cloud Run.
	CredentialsFile string
}

// NewFirebaseAuth creates a new FirebaseAuth instance
func NewFirebaseAuth(ctx context.Context, o FirebaseOptions) (*FirebaseAuth, error) {
	var opts []option.ClientOption
	if o.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(o.CredentialsFile))
	}

	var conf *firebase.Config
	if o.ProjectID != "" {
		conf = &firebase.Config{ProjectID: o.ProjectID}
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Auth client: %w", err)
	}

	return &FirebaseAuth{client: client}, nil
}

// VerifyToken verifies a Firebase ID token.
func (f *FirebaseAuth) VerifyToken(ctx context.Context, idToken string) (*UserClaims, error) {
	token, err := f.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}
	claims := claimsFromMap(token.Claims)
	claims.UID = token.UID
	claims.Provider = "firebase"
	return claims, nil
}

// claimsFromMap reads the standard OpenID profile claims.
func claimsFromMap(m map[string]interface{}) *UserClaims {
	claims := &UserClaims{}
	claims.Verified, _ = m["email_verified"].(bool)
	claims.Email, _ = m["email"].(string)
	claims.DisplayName, _ = m["name"].(string)
	claims.Picture, _ = m["picture"].(string)
	return claims
}

// ExtractTokenFromHeader extracts the Bearer token from Authorization header
func ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", fmt.Errorf("authorization header is required")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("authorization header must be Bearer token")
	}

	return parts[1], nil
}
