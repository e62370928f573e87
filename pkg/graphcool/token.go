package graphcool

import (
	"context"
	"fmt"
)

const generateNodeTokenMutation = `mutation GenerateNodeToken($input: GenerateNodeTokenInput!) {
  generateNodeToken(input: $input) {
    token
  }
}`

// IssueToken asks the System API for a node token scoped to a User node.
// The root token travels in the mutation input, not in a header.
func (c *Client) IssueToken(ctx context.Context, userID string) (string, error) {
	req := newRequest(generateNodeTokenMutation).
		variable("input.rootToken", c.rootToken).
		variable("input.serviceId", c.serviceID).
		variable("input.nodeId", userID).
		variable("input.modelName", "User").
		variable("input.clientMutationId", "")

	data, err := c.post(ctx, c.systemURL, false, req)
	if err != nil {
		return "", err
	}

	token := data.Get("generateNodeToken.token").String()
	if token == "" {
		return "", fmt.Errorf("generateNodeToken returned no token")
	}
	return token, nil
}
