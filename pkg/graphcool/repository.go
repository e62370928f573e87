package graphcool

import (
	"context"
	"fmt"

	idmerrors "github.com/tendant/simple-linkrule/pkg/errors"
	"github.com/tidwall/gjson"
)

const (
	findIdentityQuery = `query FindIdentity($auth0UserId: String) {
  Auth0Identity(auth0UserId: $auth0UserId) {
    user {
      id
    }
  }
}`

	findUserQuery = `query FindUser($email: String) {
  User(email: $email) {
    id
  }
}`

	createUserMutation = `mutation CreateUser($email: String!) {
  createUser(email: $email) {
    id
  }
}`

	createIdentityMutation = `mutation CreateIdentity($auth0UserId: String!, $userId: ID!) {
  createAuth0Identity(auth0UserId: $auth0UserId, userId: $userId) {
    user {
      id
    }
  }
}`
)

// FindLinkByExternalID looks up the Auth0Identity node for an external id
func (c *Client) FindLinkByExternalID(ctx context.Context, externalID string) (string, error) {
	data, err := c.post(ctx, c.simpleURL, true, newRequest(findIdentityQuery).variable("auth0UserId", externalID))
	if err != nil {
		return "", err
	}

	identity := data.Get("Auth0Identity")
	if !identity.Exists() {
		return "", fmt.Errorf("graphql response has no Auth0Identity field")
	}
	if identity.Type == gjson.Null {
		return "", idmerrors.NotFound("link", externalID)
	}
	userID := identity.Get("user.id").String()
	if userID == "" {
		return "", fmt.Errorf("auth0 identity %s has no user", externalID)
	}
	return userID, nil
}

// FindUserByEmail looks up a User node by email
func (c *Client) FindUserByEmail(ctx context.Context, email string) (string, error) {
	data, err := c.post(ctx, c.simpleURL, true, newRequest(findUserQuery).variable("email", email))
	if err != nil {
		return "", err
	}

	user := data.Get("User")
	if !user.Exists() {
		return "", fmt.Errorf("graphql response has no User field")
	}
	if user.Type == gjson.Null {
		return "", idmerrors.NotFound("user", email)
	}
	userID := user.Get("id").String()
	if userID == "" {
		return "", fmt.Errorf("user %s has no id", email)
	}
	return userID, nil
}

// CreateUser creates a User node
func (c *Client) CreateUser(ctx context.Context, email string) (string, error) {
	data, err := c.post(ctx, c.simpleURL, true, newRequest(createUserMutation).variable("email", email))
	if err != nil {
		if idmerrors.IsCode(err, idmerrors.ErrCodeAlreadyExists) {
			return "", idmerrors.AlreadyExists("user", email)
		}
		return "", err
	}

	userID := data.Get("createUser.id").String()
	if userID == "" {
		return "", fmt.Errorf("createUser returned no id")
	}
	return userID, nil
}

// CreateLink creates an Auth0Identity node attached to a user
func (c *Client) CreateLink(ctx context.Context, externalID, userID string) error {
	req := newRequest(createIdentityMutation).
		variable("auth0UserId", externalID).
		variable("userId", userID)

	data, err := c.post(ctx, c.simpleURL, true, req)
	if err != nil {
		if idmerrors.IsCode(err, idmerrors.ErrCodeAlreadyExists) {
			return idmerrors.AlreadyExists("link", externalID)
		}
		return err
	}

	if linked := data.Get("createAuth0Identity.user.id").String(); linked != userID {
		return fmt.Errorf("createAuth0Identity linked %q, expected %q", linked, userID)
	}
	return nil
}
